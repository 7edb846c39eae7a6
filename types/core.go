package types

/*

	These are the "immutable" core types of Ritornello,
	provided for cross-package use (e.g. Plugins) and testing.

	There are no functions defined here.
	Struct constructors are housed in their own packages.
	Methods taking these types should create local aliases,
	for example: type Events []Mt.Event

*/

import "time"

// Event is one timestamped observation from a source.
// The Timestamp is the only thing the estimator consumes,
// the SourceID is carried for journaling and audit.
type Event struct {
	SourceID  string    // identifies the source
	Timestamp time.Time // normalized to UTC on ingest
}

// DensityCurve is one sampled period of a circular density estimate.
// Xs are ascending sample positions in [0, modulo),
// Ys are the estimated density at each position.
// The curve is continuous across the wrap point:
// Ys[0] and Ys[len(Ys)-1] describe neighboring phases.
type DensityCurve struct {
	Xs []float64
	Ys []float64
}

// Run is a maximal stretch of consecutive period indices with activity,
// e.g. five weeks in a row. Indices ascend.
type Run []int64

// PatternInfo is the display-facing summary of one modulo pattern.
type PatternInfo struct {
	Name       string   `json:"name"`
	AxisName   string   `json:"axisName"`
	AxisLabels []string `json:"axisLabels"`
	Items      int      `json:"items"`    // observations accumulated
	Periods    float64  `json:"periods"`  // period instances spanned
	Valid      bool     `json:"valid"`    // past the validity gate
	MinPeriods float64  `json:"minPeriods"`
	MinItems   int      `json:"minItems"`
}
