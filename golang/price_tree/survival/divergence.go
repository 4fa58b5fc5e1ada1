package survival

import (
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
)

//Divergence scores the dissimilarity of two distributions over the same price bins.
type Divergence interface {
	Measure(p, q []float64) float64
}

//SquaredDivergence is the sum of squared bin-wise differences. It stands in for the KL
//divergence and stays finite when a bin has zero probability.
type SquaredDivergence struct{}

//Measure panics when p and q have different lengths.
func (SquaredDivergence) Measure(p, q []float64) float64 {
	d := floats.Distance(p, q, 2)
	return d * d
}

//AreaDivergence is the area between two cumulative curves on a unit price axis, i.e. the
//first Wasserstein distance between the binned distributions.
type AreaDivergence struct{}

//Measure panics when p and q have different lengths.
func (AreaDivergence) Measure(p, q []float64) float64 {
	if len(p) == 0 {
		return 0
	}
	return floats.Distance(p, q, 1) / float64(len(p))
}

const (
	Squared   = "squared"
	AreaBased = "area-based"
)

//NewDivergence resolves a divergence mode by its configuration name.
func NewDivergence(mode string) (Divergence, error) {
	switch mode {
	case Squared:
		return SquaredDivergence{}, nil
	case AreaBased:
		return AreaDivergence{}, nil
	}
	return nil, eris.Wrapf(ErrInvalidConfig, "unknown divergence mode %q", mode)
}
