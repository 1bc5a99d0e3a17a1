package perform

import "github.com/shopspring/decimal"

// WeightOne is a full assignment, in hundredths of a percent. A vehicle
// assigned below WeightOne belongs to a classification only partially; the
// remainder lands in the taxonomy's unassigned bucket.
const WeightOne = 100_00

// Assignment ties an investment vehicle (a security or an account) to a
// classification with a weight out of WeightOne.
type Assignment struct {
	Security string // ticker, mutually exclusive with Account
	Account  string
	Weight   int
}

// Classification is a node in a taxonomy tree: asset classes, regions,
// sectors. Vehicles may be assigned to any node, at any weight, and the
// same vehicle may appear in several nodes of one taxonomy.
type Classification struct {
	name        string
	children    []*Classification
	assignments []Assignment
}

// NewClassification creates a leafless, unassigned node.
func NewClassification(name string) *Classification {
	return &Classification{name: name}
}

func (c *Classification) Name() string { return c.name }

func (c *Classification) Children() []*Classification { return c.children }

func (c *Classification) Assignments() []Assignment { return c.assignments }

// Add attaches child nodes.
func (c *Classification) Add(children ...*Classification) *Classification {
	c.children = append(c.children, children...)
	return c
}

// AssignSecurity assigns a security to this node at a weight out of WeightOne.
func (c *Classification) AssignSecurity(ticker string, weight int) *Classification {
	c.assignments = append(c.assignments, Assignment{Security: ticker, Weight: weight})
	return c
}

// AssignAccount assigns an account to this node at a weight out of WeightOne.
func (c *Classification) AssignAccount(name string, weight int) *Classification {
	c.assignments = append(c.assignments, Assignment{Account: name, Weight: weight})
	return c
}

// visit walks the subtree and yields every assignment, accumulating repeat
// assignments of one vehicle across nodes.
func (c *Classification) visit(fn func(Assignment)) {
	for _, a := range c.assignments {
		fn(a)
	}
	for _, child := range c.children {
		child.visit(fn)
	}
}

// Find returns the descendant node with this name, or nil.
func (c *Classification) Find(name string) *Classification {
	if c.name == name {
		return c
	}
	for _, child := range c.children {
		if found := child.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Taxonomy is one way of slicing the client: a named classification tree.
type Taxonomy struct {
	name string
	root *Classification
}

// NewTaxonomy creates a taxonomy around a root classification.
func NewTaxonomy(name string, root *Classification) *Taxonomy {
	return &Taxonomy{name: name, root: root}
}

func (t *Taxonomy) Name() string          { return t.name }
func (t *Taxonomy) Root() *Classification { return t.root }

// Find returns the node with this name anywhere in the tree, or nil.
func (t *Taxonomy) Find(name string) *Classification { return t.root.Find(name) }

// Unassigned builds a virtual node holding, for every vehicle of the
// client, the weight not assigned anywhere in the taxonomy. A vehicle fully
// assigned does not appear; an untouched vehicle appears at WeightOne.
func (t *Taxonomy) Unassigned(c *Client) *Classification {
	assigned := make(map[string]int)
	t.root.visit(func(a Assignment) {
		assigned[vehicleKey(a)] += a.Weight
	})

	node := NewClassification("unassigned")
	for _, s := range c.Securities() {
		if rest := WeightOne - assigned["s:"+s.Ticker()]; rest > 0 {
			node.AssignSecurity(s.Ticker(), rest)
		}
	}
	for _, a := range c.Accounts() {
		if rest := WeightOne - assigned["a:"+a.Name()]; rest > 0 {
			node.AssignAccount(a.Name(), rest)
		}
	}
	return node
}

func vehicleKey(a Assignment) string {
	if a.Security != "" {
		return "s:" + a.Security
	}
	return "a:" + a.Account
}

// fractionOf converts a weight into the multiplier weight/WeightOne.
func fractionOf(weight int) decimal.Decimal {
	return decimal.New(int64(weight), -4)
}
