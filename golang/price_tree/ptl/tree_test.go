package ptl

import (
	"math/rand"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarstars/censored_price_tree/golang/price_tree/survival"
)

//separableRecords returns records whose first (discrete) attribute perfectly separates
//cheap wins (value 1) from losses (value 2). The second attribute is continuous noise.
func separableRecords(rng *rand.Rand, n int) []Record {
	records := make([]Record, 0, 2*n)
	for ind := 0; ind < n; ind++ {
		records = append(records, Record{
			Won:          true,
			WinningPrice: 1 + rng.Float64(),
			ObservedBid:  2,
			Attributes:   []float64{1, rng.Float64()},
		})
		records = append(records, Record{
			Won:          false,
			WinningPrice: UnobservedPrice,
			ObservedBid:  5 + rng.Float64(),
			Attributes:   []float64{2, rng.Float64()},
		})
	}
	return records
}

func randomRecords(rng *rand.Rand, n int) []Record {
	records := make([]Record, n)
	for p := range records {
		attributes := []float64{
			float64(1 + rng.Intn(3)),
			float64(1 + rng.Intn(5)),
			rng.Float64() * 10,
			rng.NormFloat64(),
		}
		bid := attributes[0] + attributes[2]*0.5 + rng.Float64()*4
		market := attributes[1] + rng.Float64()*6
		records[p] = Record{Won: bid > market, WinningPrice: UnobservedPrice, ObservedBid: bid, Attributes: attributes}
		if records[p].Won {
			records[p].WinningPrice = market
		}
	}
	return records
}

func kaplanMeierParams(ds *Dataset, maxHeight, minLeafSize int, seed int64) TreeParams {
	return TreeParams{
		MaxHeight:   maxHeight,
		MinLeafSize: minLeafSize,
		Estimator:   survival.NewKaplanMeier(ds.Binning.Price),
		Divergence:  survival.SquaredDivergence{},
		Seed:        seed,
	}
}

func TestSingleLeafForIdenticalRecords(t *testing.T) {
	record := Record{Won: true, WinningPrice: 3, ObservedBid: 4, Attributes: []float64{1, 2.5}}
	records := []Record{record, record, record, record}
	ds, err := NewDataset(records, 10, 10, []bool{true, false})
	require.NoError(t, err)

	params := kaplanMeierParams(ds, 1, 1, 42)
	tree, err := NewPriceTree(ds, params)
	require.NoError(t, err)

	require.Len(t, tree.TreeNodes, 1)
	require.Len(t, tree.LeafNodes, 1)
	assert.True(t, tree.TreeNodes[0].IsLeaf())
	assert.Equal(t, 4, tree.LeafNodes[0].NumberOfRecords)

	direct := params.Estimator.Estimate(ds.observations(ds.RecordIds()))
	assert.Equal(t, direct, tree.LeafNodes[0].Distribution)
	assert.Len(t, tree.LeafNodes[0].Distribution, 10)
}

func TestTwoValueAttributeSplitsCleanly(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ds, err := NewDataset(separableRecords(rng, 20), 4, 20, []bool{true, false})
	require.NoError(t, err)

	for seed := int64(0); seed < 16; seed++ {
		params, err := kaplanMeierParams(ds, 2, 5, seed).validated()
		require.NoError(t, err)

		split := scanForSplit(ds, ds.RecordIds(), 0, params, rand.New(rand.NewSource(seed)))
		require.True(t, split.validSplit, "seed %d", seed)
		require.Len(t, split.rule.LeftValues, 1, "seed %d", seed)
		assert.Len(t, split.leftIds, 20)
		assert.Len(t, split.rightIds, 20)

		leftValue := split.rule.LeftValues[0]
		for _, id := range split.leftIds {
			assert.Equal(t, leftValue, ds.Records[id].Attributes[0])
		}
		for _, id := range split.rightIds {
			assert.NotEqual(t, leftValue, ds.Records[id].Attributes[0])
		}
		assert.Greater(t, split.Divergence(), 0.0)
	}
}

func TestUnseenDiscreteValueGoesRight(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	ds, err := NewDataset(separableRecords(rng, 20), 4, 20, []bool{true, false})
	require.NoError(t, err)

	tree, err := NewPriceTree(ds, kaplanMeierParams(ds, 2, 5, 9))
	require.NoError(t, err)

	root := tree.TreeNodes[0]
	require.False(t, root.IsLeaf())
	require.Equal(t, 0, root.AttributeIndex)
	require.True(t, root.Rule.Discrete)

	right := tree.TreeNodes[root.RightIndex]
	require.True(t, right.IsLeaf())

	dist, err := tree.Predict([]float64{3, 0.5})
	require.NoError(t, err)
	assert.Equal(t, tree.LeafNodes[right.LeafIndex].Distribution, dist)
	assert.False(t, root.Rule.GoesLeft(3))
}

func TestTreeInvariantsOnRandomData(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	for trial := 0; trial < 12; trial++ {
		records := randomRecords(rng, 150+rng.Intn(250))
		ds, err := NewDataset(records, 2+rng.Intn(10), 5+rng.Intn(30), []bool{true, true, false, false})
		require.NoError(t, err)

		maxHeight := 1 + rng.Intn(5)
		minLeafSize := 1 + rng.Intn(40)
		params := kaplanMeierParams(ds, maxHeight, minLeafSize, rng.Int63())
		if trial%2 == 1 {
			params.Estimator = survival.NewTurnbull(ds.Binning.Price, survival.TurnbullParams{Convention: survival.BothBracketed, IntervalWidth: 2})
			params.Divergence = survival.AreaDivergence{}
		}
		tree, err := NewPriceTree(ds, params)
		require.NoError(t, err)

		assert.LessOrEqual(t, tree.Height(), maxHeight)
		total := 0
		for _, leaf := range tree.LeafNodes {
			total += leaf.NumberOfRecords
			if len(tree.TreeNodes) > 1 {
				assert.GreaterOrEqual(t, leaf.NumberOfRecords, minLeafSize)
			}
			require.Len(t, leaf.Distribution, ds.Binning.Price.NumBins())
			for ind, val := range leaf.Distribution {
				assert.GreaterOrEqual(t, val, 0.0)
				assert.LessOrEqual(t, val, 1.0)
				if ind > 0 {
					assert.GreaterOrEqual(t, val, leaf.Distribution[ind-1])
				}
			}
		}
		assert.Equal(t, len(records), total)

		for _, node := range tree.TreeNodes {
			if node.IsLeaf() {
				continue
			}
			require.GreaterOrEqual(t, node.LeftIndex, 0)
			require.GreaterOrEqual(t, node.RightIndex, 0)
			assert.Equal(t, node.NumberOfRecords,
				countRecords(tree, node.LeftIndex)+countRecords(tree, node.RightIndex))
		}
	}
}

func countRecords(tree *PriceTree, ind int) int {
	return tree.TreeNodes[ind].NumberOfRecords
}

func TestAcceptedSplitHasTwoNonEmptySides(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	records := randomRecords(rng, 300)
	ds, err := NewDataset(records, 6, 20, []bool{true, true, false, false})
	require.NoError(t, err)

	ids := ds.RecordIds()
	for trial := 0; trial < 200; trial++ {
		rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		subset := append([]int(nil), ids[:20+rng.Intn(200)]...)
		params, err := kaplanMeierParams(ds, 3, 1, 0).validated()
		require.NoError(t, err)

		q := rng.Intn(ds.Width())
		split := scanForSplit(ds, subset, q, params, rand.New(rand.NewSource(rng.Int63())))
		if !split.validSplit {
			continue
		}
		assert.NotEmpty(t, split.leftIds)
		assert.NotEmpty(t, split.rightIds)
		assert.ElementsMatch(t, subset, append(append([]int(nil), split.leftIds...), split.rightIds...))
		for _, id := range split.leftIds {
			assert.True(t, split.rule.GoesLeft(ds.Records[id].Attributes[q]))
		}
		for _, id := range split.rightIds {
			assert.False(t, split.rule.GoesLeft(ds.Records[id].Attributes[q]))
		}
	}
}

func TestTreeIsReproducibleAcrossThreads(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	ds, err := NewDataset(randomRecords(rng, 400), 8, 25, []bool{true, true, false, false})
	require.NoError(t, err)

	params := kaplanMeierParams(ds, 4, 20, 77)
	single, err := NewPriceTree(ds, params)
	require.NoError(t, err)

	params.ThreadsNum = 4
	parallel, err := NewPriceTree(ds, params)
	require.NoError(t, err)

	assert.Equal(t, single.TreeNodes, parallel.TreeNodes)
	assert.Equal(t, single.LeafNodes, parallel.LeafNodes)
}

func TestPredictIsStableAndValidated(t *testing.T) {
	rng := rand.New(rand.NewSource(37))
	ds, err := NewDataset(randomRecords(rng, 300), 8, 25, []bool{true, true, false, false})
	require.NoError(t, err)
	tree, err := NewPriceTree(ds, kaplanMeierParams(ds, 3, 20, 5))
	require.NoError(t, err)

	features := []float64{2, 3, 4.5, 0.1}
	first, err := tree.Predict(features)
	require.NoError(t, err)
	first[0] = -1
	second, err := tree.Predict(features)
	require.NoError(t, err)
	third, err := tree.Predict(features)
	require.NoError(t, err)
	assert.Equal(t, second, third)
	assert.NotEqual(t, -1.0, second[0])

	_, err = tree.Predict([]float64{1, 2})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidArgument))

	_, err = tree.Node(len(tree.TreeNodes))
	assert.True(t, eris.Is(err, ErrInvalidArgument))
	_, err = tree.Leaf(-1)
	assert.True(t, eris.Is(err, ErrInvalidArgument))
	_, err = ds.Record(ds.Height())
	assert.True(t, eris.Is(err, ErrInvalidArgument))
	_, err = ds.AttributeBins(4)
	assert.True(t, eris.Is(err, ErrInvalidArgument))
}

func TestNewPriceTreeRejectsBadParams(t *testing.T) {
	rng := rand.New(rand.NewSource(41))
	ds, err := NewDataset(randomRecords(rng, 50), 4, 10, []bool{true, true, false, false})
	require.NoError(t, err)

	params := kaplanMeierParams(ds, 0, 1, 0)
	_, err = NewPriceTree(ds, params)
	assert.True(t, eris.Is(err, ErrInvalidConfig))

	params = kaplanMeierParams(ds, 2, 0, 0)
	_, err = NewPriceTree(ds, params)
	assert.True(t, eris.Is(err, ErrInvalidConfig))

	params = kaplanMeierParams(ds, 2, 1, 0)
	params.Estimator = nil
	_, err = NewPriceTree(ds, params)
	assert.True(t, eris.Is(err, ErrInvalidConfig))
}
