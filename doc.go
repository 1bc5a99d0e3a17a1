// Package perform computes the valuation history and performance attribution
// of an investment portfolio over arbitrary reporting periods.
//
// The holdings model (accounts, portfolios, securities, transactions) is a
// read-only input produced elsewhere; the engine reconstructs point-in-time
// valuations from it, either by full replay for a single date or through an
// incremental iterator for an ordered date series.
//
// On top of valuation the package provides:
//   - Daily Performance Index: a linked-chain time-weighted return series
//     (totals, transferals, taxes, daily delta, compounded accumulated
//     return) over a reporting interval.
//   - Aggregation: re-bucketing of a daily index into weekly, monthly,
//     quarterly or yearly points by compounding.
//   - Money-Weighted Return: the internal rate of return of the signed
//     external cash-flow series bounded by the start and end valuations.
//   - Attribution: decomposition of the valuation change into capital gains,
//     realized gains, earnings, fees, taxes, currency gains and transfers,
//     reconciling exactly with the total change.
//   - View Synthesis: scoped variants (single account, portfolio, security,
//     or weighted classification slice) obtained by building a synthetic
//     holdings model and reusing the same daily-series algorithm.
//
// All monetary arithmetic is exact (decimal fixed-point); only ratios such
// as returns and discount rates use floating point. Recoverable anomalies
// are collected as warnings on the result; a broken data-model invariant
// aborts the calculation with an error.
package perform
