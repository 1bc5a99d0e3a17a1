package perform

import "fmt"

// Warning records a recoverable anomaly encountered during a calculation:
// an unrepresentable day, a missing price or rate, a non-converging root
// search. Warnings never interrupt a calculation; they are collected on the
// result for the caller to inspect.
type Warning struct {
	On  Date
	Msg string
}

func (w Warning) String() string {
	if w.On.IsZero() {
		return w.Msg
	}
	return w.On.String() + ": " + w.Msg
}

// Warnings is an append-only list of warnings attached to a result.
type Warnings []Warning

func (ws *Warnings) addf(on Date, format string, args ...any) {
	*ws = append(*ws, Warning{On: on, Msg: fmt.Sprintf(format, args...)})
}

// merge appends all warnings from another list.
func (ws *Warnings) merge(other Warnings) {
	*ws = append(*ws, other...)
}
