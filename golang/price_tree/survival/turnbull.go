package survival

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
)

//Convention selects how a censored observation is turned into a price interval.
type Convention int

const (
	//LossBracketed treats a win as an exact price and a loss at bid b as a price in [b, b+w].
	LossBracketed Convention = iota
	//BothBracketed treats a win at p as a price in [p-w, p] and a loss at b as a price in [b, b+w].
	BothBracketed
)

const (
	LossBracketedName = "loss-bracketed"
	BothBracketedName = "both-bracketed"
)

var conventionNames = map[string]Convention{
	LossBracketedName: LossBracketed,
	BothBracketedName: BothBracketed,
}

//ParseConvention resolves a censoring convention by its configuration name.
func ParseConvention(name string) (Convention, error) {
	convention, ok := conventionNames[name]
	if !ok {
		return 0, eris.Wrapf(ErrInvalidConfig, "unknown censoring convention %q", name)
	}
	return convention, nil
}

func (c Convention) String() string {
	for name, value := range conventionNames {
		if value == c {
			return name
		}
	}
	return "unknown"
}

const (
	DefaultIntervalWidth = 3.0
	DefaultEpsilon       = 0.01
	DefaultMaxIterations = 1000
)

//TurnbullParams collects the tuning knobs of the interval-censored estimator.
type TurnbullParams struct {
	Convention    Convention
	IntervalWidth float64
	Epsilon       float64
	MaxIterations int
}

//Turnbull is the iterative NPMLE for interval-censored prices.
type Turnbull struct {
	Bins   PriceBins
	Params TurnbullParams
}

//TurnbullResult holds the converged density together with loop diagnostics.
type TurnbullResult struct {
	Density    []float64
	CDF        []float64
	Iterations int
	Converged  bool
}

//NewTurnbull creates an interval-censored estimator. Non-positive Epsilon and MaxIterations
//fall back to the defaults; a negative IntervalWidth is treated as zero.
func NewTurnbull(bins PriceBins, params TurnbullParams) Turnbull {
	if params.IntervalWidth < 0 {
		params.IntervalWidth = 0
	}
	if params.Epsilon <= 0 {
		params.Epsilon = DefaultEpsilon
	}
	if params.MaxIterations <= 0 {
		params.MaxIterations = DefaultMaxIterations
	}
	return Turnbull{Bins: bins, Params: params}
}

//interval returns the bin range [lo, hi] that brackets the market price of an observation.
func (tb Turnbull) interval(obs Observation) (lo, hi int) {
	w := tb.Params.IntervalWidth
	if obs.Won {
		if tb.Params.Convention == LossBracketed {
			pos := tb.Bins.Index(obs.Price)
			return pos, pos
		}
		return tb.Bins.Index(math.Max(obs.Price-w, tb.Bins.Low)), tb.Bins.Index(obs.Price)
	}
	return tb.Bins.Index(obs.Price), tb.Bins.Index(math.Min(obs.Price+w, tb.Bins.High))
}

//Estimate returns the cumulative distribution of the converged density.
func (tb Turnbull) Estimate(observations []Observation) []float64 {
	return tb.Fit(observations).CDF
}

//Fit runs the self-consistency iterations until the L1 change of the density falls below
//Epsilon or MaxIterations is reached.
func (tb Turnbull) Fit(observations []Observation) TurnbullResult {
	m := tb.Bins.NumBins()
	if len(observations) == 0 {
		return TurnbullResult{Density: make([]float64, m), CDF: make([]float64, m), Converged: true}
	}

	ranges := make([][2]int, len(observations))
	for ind, obs := range observations {
		lo, hi := tb.interval(obs)
		ranges[ind] = [2]int{lo, hi}
	}

	density := make([]float64, m)
	for ind := range density {
		density[ind] = 1 / float64(m)
	}
	next := make([]float64, m)

	result := TurnbullResult{}
	for result.Iterations < tb.Params.MaxIterations {
		turnbullStep(ranges, density, next)
		result.Iterations++
		diff := floats.Distance(next, density, 1)
		density, next = next, density
		if diff < tb.Params.Epsilon {
			result.Converged = true
			break
		}
	}

	result.Density = density
	result.CDF = floats.CumSum(make([]float64, m), density)
	for ind, val := range result.CDF {
		result.CDF[ind] = math.Min(math.Max(val, 0), 1)
	}
	return result
}

//turnbullStep writes into next one redistribution of density over the observation ranges.
func turnbullStep(ranges [][2]int, density, next []float64) {
	for ind := range next {
		next[ind] = 0
	}
	for _, r := range ranges {
		denominator := floats.Sum(density[r[0] : r[1]+1])
		if denominator == 0 {
			continue
		}
		for j := r[0]; j <= r[1]; j++ {
			next[j] += density[j] / denominator
		}
	}
	floats.Scale(1/float64(len(ranges)), next)
}
