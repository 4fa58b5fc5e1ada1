package ptl

import (
	"github.com/tarstars/censored_price_tree/golang/price_tree/survival"
)

//UnobservedPrice is stored as the winning price of a lost auction.
const UnobservedPrice = -1.0

var (
	ErrInvalidConfig   = survival.ErrInvalidConfig
	ErrInvalidArgument = survival.ErrInvalidArgument
)

//Record is one censored bidding opportunity. A won record reveals the market price,
//a lost one only tells that the market price was above ObservedBid.
type Record struct {
	Won          bool
	WinningPrice float64
	ObservedBid  float64
	Attributes   []float64
}

//ObservedPrice is the winning price for a won record and the own bid otherwise.
func (r Record) ObservedPrice() float64 {
	if r.Won {
		return r.WinningPrice
	}
	return r.ObservedBid
}

//Observation converts the record into an estimator input.
func (r Record) Observation() survival.Observation {
	return survival.Observation{Price: r.ObservedPrice(), Won: r.Won}
}
