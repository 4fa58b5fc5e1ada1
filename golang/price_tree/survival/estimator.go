package survival

import "github.com/rotisserie/eris"

//Estimator turns censored observations into a cumulative win-probability curve over price bins.
//The result always has PriceBins.NumBins() entries, is non-decreasing and lies in [0, 1].
type Estimator interface {
	Estimate(observations []Observation) []float64
}

const (
	RightCensored    = "right-censored"
	IntervalCensored = "interval-censored"
)

//NewEstimator resolves a censoring model name into an estimator over the given price bins.
//The Turnbull params are only used by the interval-censored model.
func NewEstimator(model string, bins PriceBins, params TurnbullParams) (Estimator, error) {
	switch model {
	case RightCensored:
		return NewKaplanMeier(bins), nil
	case IntervalCensored:
		return NewTurnbull(bins, params), nil
	}
	return nil, eris.Wrapf(ErrInvalidConfig, "unknown censoring model %q", model)
}
