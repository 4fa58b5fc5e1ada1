// SPDX-License-Identifier: Apache-2.0

package main

import (
	"sync"

	"github.com/rotisserie/eris"
	"github.com/tarstars/censored_price_tree/golang/price_tree/ptl"
	"github.com/tarstars/censored_price_tree/golang/price_tree/survival"
)

var (
	handleMu   sync.Mutex
	nextHandle uint64 = 1
	trees             = make(map[uint64]*ptl.PriceTree)

	lastErrorMu sync.Mutex
	lastError   string
)

func setLastError(err error) {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	if err != nil {
		lastError = err.Error()
	} else {
		lastError = ""
	}
}

func getLastError() string {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	return lastError
}

func storeTree(tree *ptl.PriceTree) uint64 {
	handleMu.Lock()
	defer handleMu.Unlock()
	handle := nextHandle
	trees[handle] = tree
	nextHandle++
	return handle
}

func fetchTree(handle uint64) (*ptl.PriceTree, error) {
	handleMu.Lock()
	defer handleMu.Unlock()
	tree, ok := trees[handle]
	if !ok {
		return nil, eris.Wrapf(ptl.ErrInvalidArgument, "invalid tree handle %d", handle)
	}
	return tree, nil
}

func freeTree(handle uint64) {
	handleMu.Lock()
	defer handleMu.Unlock()
	delete(trees, handle)
}

var (
	censoringKinds  = []string{survival.RightCensored, survival.IntervalCensored}
	conventionKinds = []string{survival.LossBracketedName, survival.BothBracketedName}
	divergenceKinds = []string{survival.Squared, survival.AreaBased}
)

func kindName(kinds []string, kind int, what string) (string, error) {
	if kind < 0 || kind >= len(kinds) {
		return "", eris.Wrapf(ptl.ErrInvalidConfig, "unsupported %s kind %d", what, kind)
	}
	return kinds[kind], nil
}

//treeConfig maps the numeric arguments of the C interface onto a training config. Zero sizes
//keep the defaults.
func treeConfig(isDiscrete []bool, maxHeight, minLeafSize, numCategories, numPriceBins, censoring, convention, divergence, threadsNum int, seed int64) (ptl.Config, error) {
	cfg := ptl.DefaultConfig()
	cfg.IsDiscrete = isDiscrete
	cfg.Seed = seed
	if maxHeight > 0 {
		cfg.MaxHeight = maxHeight
	}
	if minLeafSize > 0 {
		cfg.MinLeafSize = minLeafSize
	}
	if numCategories > 0 {
		cfg.NumCategories = numCategories
	}
	if numPriceBins > 0 {
		cfg.NumPriceBins = numPriceBins
	}
	if threadsNum > 0 {
		cfg.ThreadsNum = threadsNum
	}

	var err error
	if cfg.Censoring, err = kindName(censoringKinds, censoring, "censoring"); err != nil {
		return cfg, err
	}
	if cfg.Convention, err = kindName(conventionKinds, convention, "convention"); err != nil {
		return cfg, err
	}
	if cfg.Divergence, err = kindName(divergenceKinds, divergence, "divergence"); err != nil {
		return cfg, err
	}
	return cfg, nil
}
