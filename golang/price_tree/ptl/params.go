package ptl

import (
	"github.com/rotisserie/eris"
	"github.com/tarstars/censored_price_tree/golang/price_tree/survival"
	"go.uber.org/zap"
)

//DefaultMaxSearchPasses bounds the local search when TreeParams leaves it unset.
const DefaultMaxSearchPasses = 100

//TreeParams collect arguments required to grow a tree.
type TreeParams struct {
	MaxHeight       int // number of levels, the root is level 1
	MinLeafSize     int
	Estimator       survival.Estimator
	Divergence      survival.Divergence
	Seed            int64
	MaxSearchPasses int
	ThreadsNum      int
	Logger          *zap.Logger
}

func (params TreeParams) validated() (TreeParams, error) {
	if params.MaxHeight < 1 {
		return params, eris.Wrapf(ErrInvalidConfig, "max height must be positive, got %d", params.MaxHeight)
	}
	if params.MinLeafSize < 1 {
		return params, eris.Wrapf(ErrInvalidConfig, "min leaf size must be positive, got %d", params.MinLeafSize)
	}
	if params.Estimator == nil {
		return params, eris.Wrap(ErrInvalidConfig, "estimator is not set")
	}
	if params.Divergence == nil {
		return params, eris.Wrap(ErrInvalidConfig, "divergence is not set")
	}
	if params.MaxSearchPasses < 1 {
		params.MaxSearchPasses = DefaultMaxSearchPasses
	}
	if params.ThreadsNum < 1 {
		params.ThreadsNum = 1
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return params, nil
}
