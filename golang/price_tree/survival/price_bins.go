package survival

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
)

//Observation is a single censored price observation. Price is the winning price for a won
//auction and the own bid for a lost one.
type Observation struct {
	Price float64
	Won   bool
}

//PriceBins is the frozen equal-width discretization of the price axis. Boundaries holds
//NumBins-1 ascending values; bin i covers (Boundaries[i-1], Boundaries[i]].
type PriceBins struct {
	Low        float64
	High       float64
	Boundaries []float64
}

//NewPriceBins splits [low, high] into numBins equal-width bins.
func NewPriceBins(low, high float64, numBins int) (PriceBins, error) {
	if numBins < 1 {
		return PriceBins{}, eris.Wrapf(ErrInvalidConfig, "number of price bins must be positive, got %d", numBins)
	}
	if high < low {
		return PriceBins{}, eris.Wrapf(ErrInvalidConfig, "price range [%g, %g] is inverted", low, high)
	}
	width := (high - low) / float64(numBins)
	boundaries := make([]float64, numBins-1)
	for ind := range boundaries {
		boundaries[ind] = low + float64(ind+1)*width
	}
	return PriceBins{Low: low, High: high, Boundaries: boundaries}, nil
}

//PriceBinsFromObservations spans the observed prices of a training set.
func PriceBinsFromObservations(observations []Observation, numBins int) (PriceBins, error) {
	if len(observations) == 0 {
		return PriceBins{}, eris.Wrap(ErrInvalidArgument, "no observations to span price bins")
	}
	low, high := math.Inf(1), math.Inf(-1)
	for ind, obs := range observations {
		if math.IsNaN(obs.Price) || math.IsInf(obs.Price, 0) {
			return PriceBins{}, eris.Wrapf(ErrInvalidArgument, "observation %d: price %g is not finite", ind, obs.Price)
		}
		if obs.Price < low {
			low = obs.Price
		}
		if obs.Price > high {
			high = obs.Price
		}
	}
	return NewPriceBins(low, high, numBins)
}

//NumBins returns the number of price bins.
func (pb PriceBins) NumBins() int {
	return len(pb.Boundaries) + 1
}

//Index returns the bin of a price: the first bin whose upper boundary is not below it.
func (pb PriceBins) Index(price float64) int {
	return sort.SearchFloat64s(pb.Boundaries, price)
}
