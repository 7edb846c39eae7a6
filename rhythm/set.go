package ritornello

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"

	Mt "github.com/maroda/ritornello/types"
)

// powerMeanExp is the aggregation exponent. A power mean this close to
// zero behaves like a soft minimum: one strongly unlikely pattern pulls
// the combined score down hard, without being a strict min.
const powerMeanExp = 0.1

// CountKey addresses the auxiliary count indices:
// a coarse bucket (hour of day, nth 7-day stretch, nth full week)
// paired with a weekday name.
type CountKey struct {
	N       int
	Weekday string
}

// RhythmSet learns the recurring structure of one event stream.
// It owns one ModuloPattern per period granularity, routes every
// incoming timestamp to all nine, and aggregates their outputs into
// a single likelihood or similarity score.
//
// Methods do not lock. The MU is held by whatever serves the set
// concurrently, the same way a View holds it for drawing.
type RhythmSet struct {
	MU sync.RWMutex

	// Timestamps is the append-only ingest log, audit only
	Timestamps []time.Time

	// count indices by (bucket, weekday) -> ingest log positions
	HourDay map[CountKey][]int
	NDay    map[CountKey][]int
	NWeek   map[CountKey][]int

	Day        *ModuloPattern
	Week       *ModuloPattern
	TwoWeek    *ModuloPattern
	Month      *ModuloPattern
	TwoMonth   *ModuloPattern
	ThreeMonth *ModuloPattern
	SixMonth   *ModuloPattern
	Year       *ModuloPattern
	TwoYear    *ModuloPattern
}

// Threshold is one granularity's validity gate. Short periods need
// little history before their shape is trustworthy, rare periods need
// years of it.
type Threshold struct {
	MinPeriods float64 `json:"min_periods"`
	MinItems   int     `json:"min_items"`
}

// DefaultThresholds is the shipped validity table, keyed by pattern name.
var DefaultThresholds = map[string]Threshold{
	"day":       {MinPeriods: 0, MinItems: 12},
	"week":      {MinPeriods: 4, MinItems: 12},
	"fortnight": {MinPeriods: 12, MinItems: 12}, // about 6 months
	"month":     {MinPeriods: 4, MinItems: 12},
	"2-month":   {MinPeriods: 6, MinItems: 12}, // 1 year
	"quarter":   {MinPeriods: 4, MinItems: 12},
	"6-month":   {MinPeriods: 4, MinItems: 24},
	"year":      {MinPeriods: 4, MinItems: 36}, // across 3 years
	"2-year":    {MinPeriods: 4, MinItems: 72}, // across 6 years
}

var (
	hourLabels = []string{
		"1am", "2am", "3am", "4am", "5am", "6am",
		"7am", "8am", "9am", "10am", "11am", "12nn",
		"1pm", "2pm", "3pm", "4pm", "5pm", "6pm",
		"7pm", "8pm", "9pm", "10pm", "11pm", "12mn"}
	weekdayLabels = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	monthLabels   = []string{
		"Jan", "Feb", "Mar", "Apr", "May", "Jun",
		"Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
)

// NewRhythmSet builds an empty set with the default thresholds and the
// default embedding dimension.
func NewRhythmSet() (*RhythmSet, error) {
	return newRhythmSet(DefaultThresholds, DefaultVectorDimension)
}

func newRhythmSet(thresholds map[string]Threshold, vectorDim int) (*RhythmSet, error) {
	build := func(name, axisName string, labels []string) (*ModuloPattern, error) {
		th, ok := thresholds[name]
		if !ok {
			th = DefaultThresholds[name]
		}
		p, err := NewModuloPattern(name, 1, th.MinPeriods, th.MinItems, vectorDim)
		if err != nil {
			return nil, err
		}
		p.AxisName = axisName
		p.AxisLabels = labels
		return p, nil
	}

	s := &RhythmSet{
		HourDay: make(map[CountKey][]int),
		NDay:    make(map[CountKey][]int),
		NWeek:   make(map[CountKey][]int),
	}

	var err error
	if s.Day, err = build("day", "hour", hourLabels); err != nil {
		return nil, err
	}
	if s.Week, err = build("week", "day", weekdayLabels); err != nil {
		return nil, err
	}
	if s.TwoWeek, err = build("fortnight", "day", doubled(weekdayLabels)); err != nil {
		return nil, err
	}
	if s.Month, err = build("month", "10-day period", []string{"early", "mid", "late"}); err != nil {
		return nil, err
	}
	if s.TwoMonth, err = build("2-month", "month", []string{"Odd", "Even"}); err != nil {
		return nil, err
	}
	if s.ThreeMonth, err = build("quarter", "month",
		[]string{"Jan/May/Sep", "Feb/Jun/Oct", "Mar/Jul/Nov", "Apr/Aug/Dec"}); err != nil {
		return nil, err
	}
	if s.SixMonth, err = build("6-month", "month",
		[]string{"Jan/Jul", "Feb/Aug", "Mar/Sep", "Apr/Oct", "May/Nov", "Jun/Dec"}); err != nil {
		return nil, err
	}
	if s.Year, err = build("year", "month", monthLabels); err != nil {
		return nil, err
	}
	if s.TwoYear, err = build("2-year", "month", doubled(monthLabels)); err != nil {
		return nil, err
	}

	return s, nil
}

func doubled(labels []string) []string {
	return append(append([]string{}, labels...), labels...)
}

// Patterns returns all nine patterns, coarse to fine, valid or not.
func (s *RhythmSet) Patterns() []*ModuloPattern {
	return []*ModuloPattern{
		s.Day,
		s.Week, s.TwoWeek,
		s.Month, s.TwoMonth, s.ThreeMonth, s.SixMonth,
		s.Year, s.TwoYear,
	}
}

func (s *RhythmSet) validPatterns() []*ModuloPattern {
	valid := make([]*ModuloPattern, 0, 9)
	for _, p := range s.Patterns() {
		if p.IsValid() {
			valid = append(valid, p)
		}
	}
	return valid
}

// coordinates orders a timestamp's phase values the same way Patterns
// orders the patterns that consume them.
func coordinates(ph Phases) [9]float64 {
	return [9]float64{
		ph.Day,
		ph.Week, ph.TwoWeek,
		ph.Month, ph.TwoMonth, ph.ThreeMonth, ph.SixMonth,
		ph.Year, ph.TwoYear,
	}
}

// Add ingests timestamps. Each one is normalized to UTC, appended to
// the log, counted into the auxiliary indices, and routed to all nine
// patterns. The nine coordinates are computed and checked before any
// state changes, so a single timestamp lands in all patterns or none.
// Timestamps in one batch are independent: a failure partway leaves
// the earlier ones committed.
func (s *RhythmSet) Add(timestamps ...time.Time) error {
	for _, ts := range timestamps {
		ts = ts.UTC()
		ph := PhasesOf(ts)

		coords := coordinates(ph)
		for _, c := range coords {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return fmt.Errorf("%w: phase of %v", ErrBadValue, ts)
			}
		}

		idx := len(s.Timestamps)
		s.Timestamps = append(s.Timestamps, ts)

		hd := CountKey{N: ph.Hour, Weekday: ph.Weekday}
		nd := CountKey{N: ph.NthSeven, Weekday: ph.Weekday}
		nw := CountKey{N: ph.FullWeek, Weekday: ph.Weekday}
		s.HourDay[hd] = append(s.HourDay[hd], idx)
		s.NDay[nd] = append(s.NDay[nd], idx)
		s.NWeek[nw] = append(s.NWeek[nw], idx)

		for i, p := range s.Patterns() {
			// coords are already known finite, Add cannot reject them
			if err := p.Add(coords[i], idx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Likelihood scores timestamps against the learned pattern set: each
// one collects a point likelihood from every pattern, valid or not,
// and the nine are combined with the power mean. Sparse patterns may
// not block a likelihood estimate, only a similarity embedding.
//
// Scores come back ordered by ascending timestamp, not input order.
func (s *RhythmSet) Likelihood(timestamps ...time.Time) []float64 {
	sorted := make([]time.Time, len(timestamps))
	copy(sorted, timestamps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	out := make([]float64, 0, len(sorted))
	for _, ts := range sorted {
		ph := PhasesOf(ts.UTC())
		coords := coordinates(ph)

		scores := make([]float64, 0, 9)
		for i, p := range s.Patterns() {
			scores = append(scores, p.Likelihood(coords[i]))
		}
		out = append(out, PowerMean(scores, powerMeanExp))
	}
	return out
}

// Similarity compares the learned shapes of two sets. Only patterns
// valid on both sides take part: each contributes the dot product of
// the two unit embeddings, and the dots combine with the power mean.
// Patterns embedded at different vector dimensions are not comparable
// and sit out. The count of compared patterns comes back alongside the
// score; nothing comparable yields (0, 0), a defined case rather than
// an error.
func (s *RhythmSet) Similarity(other *RhythmSet) (float64, int) {
	theirs := other.Embeddings()

	similarities := make([]float64, 0, 9)
	for _, p := range s.validPatterns() {
		w, ok := theirs[p.Name]
		if !ok {
			continue
		}
		v := p.Embedding()
		if len(v) != len(w) {
			continue
		}
		similarities = append(similarities, floats.Dot(v, w))
	}
	if len(similarities) == 0 {
		return 0, 0
	}
	return PowerMean(similarities, powerMeanExp), len(similarities)
}

// Embeddings returns each valid pattern's unit fingerprint vector.
func (s *RhythmSet) Embeddings() map[string][]float64 {
	out := make(map[string][]float64)
	for _, p := range s.validPatterns() {
		out[p.Name] = p.Embedding()
	}
	return out
}

// Consecutive reports streaks of active period indices per valid pattern.
func (s *RhythmSet) Consecutive(minLength int) map[string][]Mt.Run {
	out := make(map[string][]Mt.Run)
	for _, p := range s.validPatterns() {
		out[p.Name] = p.Consecutive(minLength)
	}
	return out
}

// Densities returns each valid pattern's curve at the given resolution.
func (s *RhythmSet) Densities(dim int) (map[string]*Mt.DensityCurve, error) {
	out := make(map[string]*Mt.DensityCurve)
	for _, p := range s.validPatterns() {
		c, err := p.Density(dim)
		if err != nil {
			return nil, err
		}
		out[p.Name] = c
	}
	return out, nil
}

// Fractions returns each valid pattern's sorted phase observations.
func (s *RhythmSet) Fractions() map[string][]float64 {
	out := make(map[string][]float64)
	for _, p := range s.validPatterns() {
		out[p.Name] = p.Fractions()
	}
	return out
}

// Info summarizes all nine patterns for display, valid or not.
func (s *RhythmSet) Info() []Mt.PatternInfo {
	out := make([]Mt.PatternInfo, 0, 9)
	for _, p := range s.Patterns() {
		out = append(out, p.Info())
	}
	return out
}

// PowerMean is (mean(x^p))^(1/p). Inputs are non-negative scores;
// anything below zero clamps to zero first so a fractional power never
// goes complex. An empty list means "nothing to aggregate" and is 0.
func PowerMean(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		if x < 0 {
			x = 0
		}
		sum += math.Pow(x, p)
	}
	return math.Pow(sum/float64(len(xs)), 1/p)
}
