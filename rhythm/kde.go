package ritornello

import (
	"fmt"
	"math"

	"github.com/aclements/go-moremath/stats"
	"gonum.org/v1/gonum/floats"

	Mt "github.com/maroda/ritornello/types"
)

// Density fitting is a library call (go-moremath), not our math.
// What lives here is the circular extension: a plain fit on [0, m)
// cannot see mass sitting just across the wrap point, so the samples
// are replicated at -m and +m before fitting.

// defaultBandwidthFrac is the kernel bandwidth as a fraction of the
// period width, used whenever no explicit bandwidth is given.
const defaultBandwidthFrac = 0.03

// SampleDensity fits a Gaussian kernel density estimate over the values
// and samples it at n evenly spaced points spanning [minVal, maxVal],
// both endpoints included. A bandwidth of zero selects the default.
func SampleDensity(values []float64, minVal, maxVal, bandwidth float64, n int) ([]float64, []float64, error) {
	if maxVal <= minVal {
		return nil, nil, fmt.Errorf("%w: domain [%v, %v] is empty", ErrConfig, minVal, maxVal)
	}
	if n <= 0 {
		return nil, nil, fmt.Errorf("%w: sample count %d", ErrConfig, n)
	}
	if bandwidth <= 0 {
		bandwidth = (maxVal - minVal) * defaultBandwidthFrac
	}

	kde := stats.KDE{
		Sample:    stats.Sample{Xs: values},
		Kernel:    stats.GaussianKernel,
		Bandwidth: bandwidth,
	}

	xs := make([]float64, n)
	floats.Span(xs, minVal, maxVal)
	ys := make([]float64, n)
	for i, x := range xs {
		ys[i] = kde.PDF(x)
	}
	return xs, ys, nil
}

// CircularDensity estimates the density of values that wrap at modulo.
// Each value is folded into [0, modulo) and replicated one period down
// and one period up, the estimator is fit over the extension, and one
// period is sampled at n points. The closing sample at modulo duplicates
// the one at zero and is dropped, so Xs holds n points in [0, modulo).
// An empty input yields a zero curve rather than an estimator error.
func CircularDensity(values []float64, modulo, bandwidth float64, n int) (*Mt.DensityCurve, error) {
	if modulo <= 0 {
		return nil, fmt.Errorf("%w: modulo %v", ErrConfig, modulo)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: sample count %d", ErrConfig, n)
	}

	xs := make([]float64, n+1)
	floats.Span(xs, 0, modulo)
	xs = xs[:n]

	if len(values) == 0 {
		return &Mt.DensityCurve{Xs: xs, Ys: make([]float64, n)}, nil
	}

	extended := make([]float64, 0, 3*len(values))
	for _, v := range values {
		r := math.Mod(v, modulo)
		if r < 0 {
			r += modulo
		}
		extended = append(extended, r-modulo, r, r+modulo)
	}

	sampled, ys, err := SampleDensity(extended, 0, modulo, bandwidth, n+1)
	if err != nil {
		return nil, err
	}
	return &Mt.DensityCurve{Xs: sampled[:n], Ys: ys[:n]}, nil
}
