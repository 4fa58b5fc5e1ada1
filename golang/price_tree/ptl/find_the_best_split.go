package ptl

import (
	"math/rand"

	"github.com/tarstars/censored_price_tree/golang/price_tree/survival"
	"golang.org/x/sync/errgroup"
)

//BestSplit contains results of the split selection algorithm for one attribute.
type BestSplit struct {
	bestValue         float64
	featureIndex      int
	rule              SplitRule
	leftIds, rightIds []int
	validSplit        bool
	numberOfObjects   int
	passes            int
}

//Divergence returns the divergence between the two sides of the split.
func (bs BestSplit) Divergence() float64 {
	return bs.bestValue
}

//searchState is the local search over the buckets of one attribute. Bucket distributions
//do not depend on the assignment and are estimated once.
type searchState struct {
	bucketIds   [][]int
	bucketDists [][]float64
	assignment  []bool // true is the left side
	leftIds     []int
	rightIds    []int
	leftDist    []float64
	rightDist   []float64
}

func newSearchState(ds *Dataset, ids []int, q int, estimator survival.Estimator, rng *rand.Rand) *searchState {
	k := ds.Binning.Attributes[q].NumBuckets()
	state := &searchState{
		bucketIds:   make([][]int, k),
		bucketDists: make([][]float64, k),
		assignment:  make([]bool, k),
	}
	for _, id := range ids {
		b := ds.Buckets[id][q]
		state.bucketIds[b] = append(state.bucketIds[b], id)
	}
	for b := 0; b < k; b++ {
		state.bucketDists[b] = estimator.Estimate(ds.observations(state.bucketIds[b]))
		state.assignment[b] = rng.Intn(2) == 1
	}
	return state
}

//gather regroups the records by the current assignment and re-estimates both sides.
func (state *searchState) gather(ds *Dataset, estimator survival.Estimator) {
	state.leftIds, state.rightIds = state.leftIds[:0], state.rightIds[:0]
	for b, ids := range state.bucketIds {
		if state.assignment[b] {
			state.leftIds = append(state.leftIds, ids...)
		} else {
			state.rightIds = append(state.rightIds, ids...)
		}
	}
	state.leftDist = estimator.Estimate(ds.observations(state.leftIds))
	state.rightDist = estimator.Estimate(ds.observations(state.rightIds))
}

//reassign moves every bucket to the side it is less divergent from and reports whether
//anything moved. Ties keep the current side.
func (state *searchState) reassign(divergence survival.Divergence) (moved bool) {
	for b, dist := range state.bucketDists {
		leftDiv := divergence.Measure(state.leftDist, dist)
		rightDiv := divergence.Measure(state.rightDist, dist)
		if leftDiv < rightDiv && !state.assignment[b] {
			state.assignment[b] = true
			moved = true
		} else if leftDiv > rightDiv && state.assignment[b] {
			state.assignment[b] = false
			moved = true
		}
	}
	return
}

func (state *searchState) leftBuckets() (count int) {
	for _, left := range state.assignment {
		if left {
			count++
		}
	}
	return
}

//scanForSplit runs the local search for attribute q over the records ids.
func scanForSplit(ds *Dataset, ids []int, q int, params TreeParams, rng *rand.Rand) (bestSplit BestSplit) {
	bestSplit.featureIndex = q
	bestSplit.numberOfObjects = len(ids)

	state := newSearchState(ds, ids, q, params.Estimator, rng)
	state.gather(ds, params.Estimator)
	for bestSplit.passes < params.MaxSearchPasses {
		bestSplit.passes++
		if !state.reassign(params.Divergence) {
			break
		}
		state.gather(ds, params.Estimator)
	}

	leftBuckets := state.leftBuckets()
	if leftBuckets == 0 || leftBuckets == len(state.assignment) {
		return
	}
	minSize := params.MinLeafSize
	if minSize < 1 {
		minSize = 1
	}
	if len(state.leftIds) < minSize || len(state.rightIds) < minSize {
		return
	}

	bestSplit.validSplit = true
	bestSplit.bestValue = params.Divergence.Measure(state.leftDist, state.rightDist)
	bestSplit.leftIds = append([]int(nil), state.leftIds...)
	bestSplit.rightIds = append([]int(nil), state.rightIds...)
	bestSplit.rule = newSplitRule(ds.Binning.Attributes[q], state.assignment)
	return
}

//TheBestSplit finds the attribute whose split maximizes the divergence between its sides.
//Every attribute search gets its own seed drawn from rng in attribute order, so the result
//does not depend on ThreadsNum. Ties go to the smallest attribute index; nil means no split.
func TheBestSplit(ds *Dataset, ids []int, params TreeParams, rng *rand.Rand) (*BestSplit, error) {
	w := ds.Width()
	seeds := make([]int64, w)
	for q := range seeds {
		seeds[q] = rng.Int63()
	}

	result := make([]BestSplit, w)
	if params.ThreadsNum <= 1 {
		for q := 0; q < w; q++ {
			result[q] = scanForSplit(ds, ids, q, params, rand.New(rand.NewSource(seeds[q])))
		}
	} else {
		var g errgroup.Group
		g.SetLimit(params.ThreadsNum)
		for q := 0; q < w; q++ {
			localQ := q
			g.Go(func() error {
				result[localQ] = scanForSplit(ds, ids, localQ, params, rand.New(rand.NewSource(seeds[localQ])))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	maximalDivergence := 0.0
	bestIndex := 0
	firstTime := true
	for ind, currentSplit := range result {
		if currentSplit.validSplit && (firstTime || currentSplit.bestValue > maximalDivergence) {
			firstTime = false
			maximalDivergence = currentSplit.bestValue
			bestIndex = ind
		}
	}

	if firstTime {
		return nil, nil
	}
	return &result[bestIndex], nil
}
