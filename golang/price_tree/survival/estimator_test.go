package survival

import (
	"math"
	"math/rand"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func randomObservations(rng *rand.Rand, n int, high float64) []Observation {
	observations := make([]Observation, n)
	for ind := range observations {
		observations[ind] = Observation{Price: rng.Float64() * high, Won: rng.Intn(2) == 1}
	}
	return observations
}

func assertCDF(t *testing.T, dist []float64, numBins int) {
	t.Helper()
	require.Len(t, dist, numBins)
	for ind, val := range dist {
		assert.GreaterOrEqual(t, val, 0.0, "bin %d", ind)
		assert.LessOrEqual(t, val, 1.0, "bin %d", ind)
		if ind > 0 {
			assert.GreaterOrEqual(t, val, dist[ind-1], "bin %d decreases", ind)
		}
	}
}

func TestPriceBinsIndex(t *testing.T) {
	bins, err := NewPriceBins(0, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 6, 8}, bins.Boundaries)
	assert.Equal(t, 5, bins.NumBins())

	assert.Equal(t, 0, bins.Index(-1))
	assert.Equal(t, 0, bins.Index(0))
	assert.Equal(t, 0, bins.Index(2))
	assert.Equal(t, 1, bins.Index(2.5))
	assert.Equal(t, 4, bins.Index(10))
	assert.Equal(t, 4, bins.Index(100))
}

func TestPriceBinsRejectsBadConfig(t *testing.T) {
	_, err := NewPriceBins(0, 10, 0)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidConfig))

	_, err = PriceBinsFromObservations(nil, 10)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidArgument))

	for _, price := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err = PriceBinsFromObservations([]Observation{{Price: 1, Won: true}, {Price: price}}, 10)
		assert.True(t, eris.Is(err, ErrInvalidArgument), "price %g", price)
		_, err = PriceBinsFromObservations([]Observation{{Price: price, Won: true}, {Price: 1}}, 10)
		assert.True(t, eris.Is(err, ErrInvalidArgument), "price %g", price)
	}
}

func TestKaplanMeierHandComputed(t *testing.T) {
	bins, err := NewPriceBins(0, 4, 4)
	require.NoError(t, err)
	observations := []Observation{
		{Price: 0.5, Won: true},
		{Price: 0.7, Won: false},
		{Price: 1.5, Won: true},
		{Price: 3.5, Won: true},
	}
	dist := NewKaplanMeier(bins).Estimate(observations)

	//bin 0: 1 win of 4 at risk; bin 1: 1 win of 2; bin 2: nothing; bin 3: 1 win of 1
	expected := []float64{0.25, 1 - 0.75*0.5, 1 - 0.75*0.5, 1}
	assert.InDeltaSlice(t, expected, dist, 1e-12)
}

func TestKaplanMeierEmptyRiskSetCarriesForward(t *testing.T) {
	bins, err := NewPriceBins(0, 10, 10)
	require.NoError(t, err)
	dist := NewKaplanMeier(bins).Estimate([]Observation{{Price: 1, Won: false}})
	assert.Equal(t, make([]float64, 10), dist)

	dist = NewKaplanMeier(bins).Estimate(nil)
	assert.Equal(t, make([]float64, 10), dist)
}

func TestKaplanMeierProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		observations := randomObservations(rng, 1+rng.Intn(200), 50)
		bins, err := PriceBinsFromObservations(observations, 1+rng.Intn(40))
		require.NoError(t, err)
		assertCDF(t, NewKaplanMeier(bins).Estimate(observations), bins.NumBins())
	}
}

func TestTurnbullDensitySumsToOneEveryStep(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	observations := randomObservations(rng, 300, 20)
	bins, err := PriceBinsFromObservations(observations, 25)
	require.NoError(t, err)

	for _, convention := range []Convention{LossBracketed, BothBracketed} {
		tb := NewTurnbull(bins, TurnbullParams{Convention: convention, IntervalWidth: 3})
		ranges := make([][2]int, len(observations))
		for ind, obs := range observations {
			lo, hi := tb.interval(obs)
			require.LessOrEqual(t, lo, hi)
			ranges[ind] = [2]int{lo, hi}
		}

		density := make([]float64, bins.NumBins())
		for ind := range density {
			density[ind] = 1 / float64(len(density))
		}
		next := make([]float64, len(density))
		for step := 0; step < 30; step++ {
			turnbullStep(ranges, density, next)
			assert.InDelta(t, 1.0, floats.Sum(next), 1e-9, "%v step %d", convention, step)
			density, next = next, density
		}
	}
}

func TestTurnbullTerminatesWithinCap(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	observations := randomObservations(rng, 100, 20)
	bins, err := PriceBinsFromObservations(observations, 40)
	require.NoError(t, err)

	result := NewTurnbull(bins, TurnbullParams{
		Convention:    BothBracketed,
		IntervalWidth: 3,
		Epsilon:       1e-300,
		MaxIterations: 7,
	}).Fit(observations)
	assert.Equal(t, 7, result.Iterations)
	assert.False(t, result.Converged)
	assertCDF(t, result.CDF, bins.NumBins())

	result = NewTurnbull(bins, TurnbullParams{Convention: BothBracketed, IntervalWidth: 3}).Fit(observations)
	assert.LessOrEqual(t, result.Iterations, DefaultMaxIterations)
	assert.InDelta(t, 1.0, result.CDF[len(result.CDF)-1], 1e-9)
}

func TestTurnbullStopsStrictlyBelowEpsilon(t *testing.T) {
	bins, err := NewPriceBins(0, 10, 2)
	require.NoError(t, err)
	observations := []Observation{{Price: 2, Won: true}}

	//the first step moves the uniform start to [1, 0], an L1 change of exactly 1
	result := NewTurnbull(bins, TurnbullParams{Convention: LossBracketed, Epsilon: 1}).Fit(observations)
	assert.Equal(t, 2, result.Iterations)
	assert.True(t, result.Converged)
	assert.Equal(t, []float64{1, 0}, result.Density)

	result = NewTurnbull(bins, TurnbullParams{Convention: LossBracketed, Epsilon: 1.5}).Fit(observations)
	assert.Equal(t, 1, result.Iterations)
	assert.True(t, result.Converged)
}

func TestTurnbullPointObservedWins(t *testing.T) {
	bins, err := NewPriceBins(0, 10, 10)
	require.NoError(t, err)
	observations := []Observation{{Price: 2.5, Won: true}, {Price: 7.5, Won: true}}
	dist := NewTurnbull(bins, TurnbullParams{Convention: LossBracketed, IntervalWidth: 3}).Estimate(observations)

	assert.InDelta(t, 0.0, dist[1], 1e-9)
	assert.InDelta(t, 0.5, dist[2], 1e-9)
	assert.InDelta(t, 0.5, dist[6], 1e-9)
	assert.InDelta(t, 1.0, dist[7], 1e-9)
}

func TestTurnbullEmpty(t *testing.T) {
	bins, err := NewPriceBins(0, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, make([]float64, 4), NewTurnbull(bins, TurnbullParams{}).Estimate(nil))
}

func TestNewEstimator(t *testing.T) {
	bins, err := NewPriceBins(0, 1, 4)
	require.NoError(t, err)

	est, err := NewEstimator(RightCensored, bins, TurnbullParams{})
	require.NoError(t, err)
	assert.IsType(t, KaplanMeier{}, est)

	est, err = NewEstimator(IntervalCensored, bins, TurnbullParams{})
	require.NoError(t, err)
	assert.IsType(t, Turnbull{}, est)

	_, err = NewEstimator("left-censored", bins, TurnbullParams{})
	assert.True(t, eris.Is(err, ErrInvalidConfig))

	for name, expected := range map[string]Convention{LossBracketedName: LossBracketed, BothBracketedName: BothBracketed} {
		convention, err := ParseConvention(name)
		require.NoError(t, err)
		assert.Equal(t, expected, convention)
		assert.Equal(t, name, convention.String())
	}
	assert.Equal(t, "both-bracketed", BothBracketedName)
	_, err = ParseConvention("bracketed")
	assert.True(t, eris.Is(err, ErrInvalidConfig))
}

func TestDivergenceProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for _, mode := range []string{Squared, AreaBased} {
		div, err := NewDivergence(mode)
		require.NoError(t, err)
		for trial := 0; trial < 100; trial++ {
			n := 1 + rng.Intn(30)
			p, q := make([]float64, n), make([]float64, n)
			for ind := range p {
				p[ind], q[ind] = rng.Float64(), rng.Float64()
			}
			assert.GreaterOrEqual(t, div.Measure(p, q), 0.0)
			assert.Equal(t, 0.0, div.Measure(p, p))
			assert.InDelta(t, div.Measure(p, q), div.Measure(q, p), 1e-12)
		}
	}

	_, err := NewDivergence("kl")
	assert.True(t, eris.Is(err, ErrInvalidConfig))
}

func TestDivergenceValues(t *testing.T) {
	p := []float64{0, 0.5, 1, 1}
	q := []float64{0.5, 0.5, 0.5, 1}
	assert.InDelta(t, 0.5, SquaredDivergence{}.Measure(p, q), 1e-12)
	assert.InDelta(t, 0.25, AreaDivergence{}.Measure(p, q), 1e-12)
	assert.Equal(t, 0.0, AreaDivergence{}.Measure(nil, nil))
	assert.Panics(t, func() { SquaredDivergence{}.Measure(p, q[:2]) })
}
