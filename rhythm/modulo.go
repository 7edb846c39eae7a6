package ritornello

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	Mt "github.com/maroda/ritornello/types"
)

const (
	// DefaultVectorDimension is the embedding length used by the
	// shipped patterns: long enough to carry the curve shape,
	// short enough that a dot product is cheap.
	DefaultVectorDimension = 128

	// likelihoodCurveDim is the curve resolution behind point lookups
	likelihoodCurveDim = 1000
)

// ModuloPattern models the recurring structure of one period
// granularity, e.g. "position within the week". Raw phase values are
// split into quotient (which period instance) and remainder (position
// inside it); the remainders feed a circular density estimate.
//
// The density curve and the embedding vector are memoized and thrown
// away on every Add. Nothing here locks: callers needing concurrent
// access hold the owning RhythmSet's mutex.
type ModuloPattern struct {
	Name            string
	AxisName        string   // display only
	AxisLabels      []string // display only, never read by the math
	Modulo          float64
	VectorDimension int
	MinPeriods      float64
	MinItems        int

	min        float64
	max        float64
	remainders []float64

	// item references by period index and by phase position,
	// insertion-ordered; only Consecutive reads the quotient side
	quotients   map[int64][]any
	byRemainder map[float64][]any

	// memoized derivations, invalidated by Add
	curves map[int]*Mt.DensityCurve
	vector []float64
}

// NewModuloPattern builds an empty pattern and fails fast on a bad
// configuration. All thresholds are fixed for the pattern's lifetime.
func NewModuloPattern(name string, modulo, minPeriods float64, minItems, vectorDim int) (*ModuloPattern, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is empty", ErrConfig)
	}
	if modulo == 0 {
		return nil, fmt.Errorf("%w: modulo must not be zero", ErrConfig)
	}
	if vectorDim <= 0 {
		return nil, fmt.Errorf("%w: vector dimension must be positive, got %d", ErrConfig, vectorDim)
	}

	return &ModuloPattern{
		Name:            name,
		Modulo:          modulo,
		VectorDimension: vectorDim,
		MinPeriods:      minPeriods,
		MinItems:        minItems,
		min:             math.Inf(1),
		max:             math.Inf(-1),
		quotients:       make(map[int64][]any),
		byRemainder:     make(map[float64][]any),
		curves:          make(map[int]*Mt.DensityCurve),
	}, nil
}

// Add records one raw phase value and drops every memoized derivation.
// A non-finite value is rejected before any state changes.
func (p *ModuloPattern) Add(value float64, item any) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %v", ErrBadValue, value)
	}

	p.curves = make(map[int]*Mt.DensityCurve)
	p.vector = nil

	p.min = math.Min(p.min, value)
	p.max = math.Max(p.max, value)

	q := int64(math.Floor(value / p.Modulo))
	r := value - float64(q)*p.Modulo
	p.remainders = append(p.remainders, r)
	p.quotients[q] = append(p.quotients[q], item)
	p.byRemainder[r] = append(p.byRemainder[r], item)
	return nil
}

// Items is the number of observations accumulated so far.
func (p *ModuloPattern) Items() int {
	return len(p.remainders)
}

// NPeriods is how many period instances the observations span.
func (p *ModuloPattern) NPeriods() float64 {
	return math.Max(0, (p.max-p.min)/p.Modulo)
}

// IsValid gates the pattern out of aggregates until it has seen enough
// history: a density over too few periods or too few samples is noise.
func (p *ModuloPattern) IsValid() bool {
	return p.NPeriods() >= p.MinPeriods && len(p.remainders) >= p.MinItems
}

// Density returns the circular density curve sampled at dim points,
// memoized by dim until the next Add.
func (p *ModuloPattern) Density(dim int) (*Mt.DensityCurve, error) {
	if c, ok := p.curves[dim]; ok {
		return c, nil
	}
	c, err := CircularDensity(p.remainders, p.Modulo, 0, dim)
	if err != nil {
		return nil, err
	}
	p.curves[dim] = c
	return c, nil
}

// Embedding is the pattern's fingerprint: the density curve sampled at
// VectorDimension points and L2-normalized to unit length. Two patterns
// with the same relative shape produce nearly parallel vectors. The
// zero vector comes back only when no observation exists. The returned
// slice is the caller's own copy; the memo stays private.
func (p *ModuloPattern) Embedding() []float64 {
	if len(p.vector) != p.VectorDimension {
		c, err := p.Density(p.VectorDimension)
		if err != nil {
			slog.Error("Could not derive embedding", slog.String("pattern", p.Name), slog.Any("Error", err))
			return nil
		}

		v := make([]float64, len(c.Ys))
		copy(v, c.Ys)
		if norm := floats.Norm(v, 2); norm > 0 {
			floats.Scale(1/norm, v)
		}
		p.vector = v
	}

	out := make([]float64, len(p.vector))
	copy(out, p.vector)
	return out
}

// Likelihood is a point estimate of how likely a phase value is under
// the learned curve: the remainder is bisected into the memoized xs and
// the index wraps modulo the curve length, so a value at or past the
// last sample reads the density just after the wrap. Proportional to,
// not equal to, true probability mass.
func (p *ModuloPattern) Likelihood(value float64) float64 {
	c, err := p.Density(likelihoodCurveDim)
	if err != nil {
		slog.Error("Could not derive density", slog.String("pattern", p.Name), slog.Any("Error", err))
		return 0
	}

	q := math.Floor(value / p.Modulo)
	r := value - q*p.Modulo
	idx := sort.SearchFloat64s(c.Xs, r) % len(c.Xs)
	return c.Ys[idx]
}

// Consecutive returns the maximal runs of consecutive period indices
// with at least one observation, ascending, keeping only runs of
// minLength or more. Detects streaks like five weeks in a row.
func (p *ModuloPattern) Consecutive(minLength int) []Mt.Run {
	keys := make([]int64, 0, len(p.quotients))
	for q := range p.quotients {
		keys = append(keys, q)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]Mt.Run, 0)
	var buffer Mt.Run
	flush := func() {
		if len(buffer) >= minLength {
			out = append(out, buffer)
		}
		buffer = nil
	}
	for _, q := range keys {
		if len(buffer) > 0 && q != buffer[len(buffer)-1]+1 {
			flush()
		}
		buffer = append(buffer, q)
	}
	flush()
	return out
}

// Fractions returns a sorted copy of every remainder observed.
func (p *ModuloPattern) Fractions() []float64 {
	fractions := make([]float64, len(p.remainders))
	copy(fractions, p.remainders)
	sort.Float64s(fractions)
	return fractions
}

// Info summarizes the pattern for display and the API.
func (p *ModuloPattern) Info() Mt.PatternInfo {
	return Mt.PatternInfo{
		Name:       p.Name,
		AxisName:   p.AxisName,
		AxisLabels: p.AxisLabels,
		Items:      len(p.remainders),
		Periods:    p.NPeriods(),
		Valid:      p.IsValid(),
		MinPeriods: p.MinPeriods,
		MinItems:   p.MinItems,
	}
}
