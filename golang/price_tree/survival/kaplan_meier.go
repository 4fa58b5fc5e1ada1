package survival

//KaplanMeier is the product-limit estimator for right-censored prices: a win at price p is an
//event at p, a loss at bid b only says the market price exceeds b.
type KaplanMeier struct {
	Bins PriceBins
}

//NewKaplanMeier creates a product-limit estimator over the frozen price bins.
func NewKaplanMeier(bins PriceBins) KaplanMeier {
	return KaplanMeier{Bins: bins}
}

//Estimate returns the cumulative win probability per price bin.
func (km KaplanMeier) Estimate(observations []Observation) []float64 {
	m := km.Bins.NumBins()
	wins := make([]int, m)
	totals := make([]int, m)
	for _, obs := range observations {
		pos := km.Bins.Index(obs.Price)
		if obs.Won {
			wins[pos]++
		}
		totals[pos]++
	}

	dist := make([]float64, m)
	loseProb := 1.0
	atRisk := len(observations)
	for ind := 0; ind < m; ind++ {
		if atRisk != 0 {
			loseProb *= 1 - float64(wins[ind])/float64(atRisk)
		}
		dist[ind] = 1 - loseProb
		atRisk -= totals[ind]
	}
	return dist
}
