package asim

import (
	"math"
	"math/rand"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/tarstars/censored_price_tree/golang/price_tree/ptl"
	"go.uber.org/zap"
)

var paramsValidate = validator.New()

//Competitor bids a noisy linear function of the auction attributes until its budget runs out.
type Competitor struct {
	CompetitorId     int
	AttributeWeights []float64
	RemainingBudget  float64
	BidHistory       []float64
}

//NewCompetitor draws attribute weights uniformly from [0, 1).
func NewCompetitor(competitorId, numAttributes int, budget float64, rng *rand.Rand) *Competitor {
	competitor := &Competitor{CompetitorId: competitorId, RemainingBudget: budget, AttributeWeights: make([]float64, numAttributes)}
	for ind := range competitor.AttributeWeights {
		competitor.AttributeWeights[ind] = rng.Float64()
	}
	return competitor
}

//Bid returns max(w·a + U(0,1)·len(a), 0), capped by and charged to the remaining budget.
func (c *Competitor) Bid(attributes []float64, rng *rand.Rand) float64 {
	price := 0.0
	for ind, weight := range c.AttributeWeights {
		price += weight * attributes[ind]
	}
	price = math.Max(price+rng.Float64()*float64(len(c.AttributeWeights)), 0)
	if price > c.RemainingBudget {
		price = c.RemainingBudget
		c.RemainingBudget = 0
	} else {
		c.RemainingBudget -= price
	}
	c.BidHistory = append(c.BidHistory, price)
	return price
}

//ExchangeParams configures the simulated ad exchange.
type ExchangeParams struct {
	NumCompetitors         int         `mapstructure:"num_competitors" validate:"gte=2"`
	NumIntegerAttributes   int         `mapstructure:"num_integer_attributes" validate:"gte=0"`
	IntegerAttributesRange []int       `mapstructure:"integer_attributes_range" validate:"omitempty,dive,gt=0"`
	NumFloatAttributes     int         `mapstructure:"num_float_attributes" validate:"gte=0"`
	FloatAttributesRange   []float64   `mapstructure:"float_attributes_range" validate:"omitempty,dive,gt=0"`
	AuctionType            string      `mapstructure:"auction_type" validate:"oneof=first second"`
	Budget                 float64     `mapstructure:"budget" validate:"gte=0"` // 0 means unlimited
	Seed                   int64       `mapstructure:"seed"`
	Logger                 *zap.Logger `mapstructure:"-" validate:"-"`
}

//DefaultExchangeParams reproduces the historical setup: 20 competitors, three integer
//attributes with ranges 2, 5 and 10 and seven float attributes, first-price clearing.
func DefaultExchangeParams() ExchangeParams {
	return ExchangeParams{
		NumCompetitors:         20,
		NumIntegerAttributes:   3,
		IntegerAttributesRange: []int{2, 5, 10},
		NumFloatAttributes:     7,
		AuctionType:            "first",
	}
}

//Bid is one cleared auction.
type Bid struct {
	WinningPrice float64
	WinningId    int
	Attributes   []float64
	Bids         []float64 // indexed by competitor id
}

//Exchange runs sealed-bid auctions among its competitors and keeps the history.
type Exchange struct {
	params      ExchangeParams
	rng         *rand.Rand
	Competitors []*Competitor
	BidRecord   []Bid
}

//NewExchange validates the params and creates the competitors.
func NewExchange(params ExchangeParams) (*Exchange, error) {
	if err := paramsValidate.Struct(params); err != nil {
		return nil, eris.Wrapf(ptl.ErrInvalidConfig, "%v", err)
	}
	if len(params.IntegerAttributesRange) == 0 {
		params.IntegerAttributesRange = make([]int, params.NumIntegerAttributes)
		for ind := range params.IntegerAttributesRange {
			params.IntegerAttributesRange[ind] = 4
		}
	} else if len(params.IntegerAttributesRange) != params.NumIntegerAttributes {
		return nil, eris.Wrapf(ptl.ErrInvalidConfig, "integer_attributes_range has %d entries for %d integer attributes",
			len(params.IntegerAttributesRange), params.NumIntegerAttributes)
	}
	if len(params.FloatAttributesRange) == 0 {
		average := 0.0
		for _, r := range params.IntegerAttributesRange {
			average += float64(r)
		}
		if len(params.IntegerAttributesRange) > 0 {
			average /= float64(len(params.IntegerAttributesRange))
		}
		params.FloatAttributesRange = make([]float64, params.NumFloatAttributes)
		for ind := range params.FloatAttributesRange {
			params.FloatAttributesRange[ind] = average + 1
		}
	} else if len(params.FloatAttributesRange) != params.NumFloatAttributes {
		return nil, eris.Wrapf(ptl.ErrInvalidConfig, "float_attributes_range has %d entries for %d float attributes",
			len(params.FloatAttributesRange), params.NumFloatAttributes)
	}
	if params.NumIntegerAttributes+params.NumFloatAttributes == 0 {
		return nil, eris.Wrap(ptl.ErrInvalidConfig, "the exchange needs at least one attribute")
	}
	if params.Budget == 0 {
		params.Budget = math.Inf(1)
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}

	exchange := &Exchange{params: params, rng: rand.New(rand.NewSource(params.Seed))}
	for ind := 0; ind < params.NumCompetitors; ind++ {
		exchange.Competitors = append(exchange.Competitors, NewCompetitor(ind, exchange.NumAttributes(), params.Budget, exchange.rng))
	}
	return exchange, nil
}

//NumAttributes returns the number of integer plus float attributes.
func (ex *Exchange) NumAttributes() int {
	return ex.params.NumIntegerAttributes + ex.params.NumFloatAttributes
}

func (ex *Exchange) randomAttributes() []float64 {
	attributes := make([]float64, ex.NumAttributes())
	for ind := range attributes {
		if ind < ex.params.NumIntegerAttributes {
			attributes[ind] = float64(1 + ex.rng.Intn(ex.params.IntegerAttributesRange[ind]))
		} else {
			attributes[ind] = ex.rng.Float64() * ex.params.FloatAttributesRange[ind-ex.params.NumIntegerAttributes]
		}
	}
	return attributes
}

//GenerateOneBid runs one auction. The highest bid wins; it pays its own bid in a first-price
//auction and the runner-up bid in a second-price one. Equal bids go to the higher id.
func (ex *Exchange) GenerateOneBid() Bid {
	bid := Bid{Attributes: ex.randomAttributes(), Bids: make([]float64, len(ex.Competitors))}
	for ind, competitor := range ex.Competitors {
		bid.Bids[ind] = competitor.Bid(bid.Attributes, ex.rng)
	}

	order := make([]int, len(bid.Bids))
	for ind := range order {
		order[ind] = ind
	}
	sort.Slice(order, func(i, j int) bool {
		if bid.Bids[order[i]] == bid.Bids[order[j]] {
			return order[i] > order[j]
		}
		return bid.Bids[order[i]] > bid.Bids[order[j]]
	})

	bid.WinningId = order[0]
	bid.WinningPrice = bid.Bids[order[0]]
	if ex.params.AuctionType == "second" {
		bid.WinningPrice = bid.Bids[order[1]]
	}
	return bid
}

//GenerateBids appends n auctions to the history and returns the whole history.
func (ex *Exchange) GenerateBids(n int) []Bid {
	for ind := 0; ind < n; ind++ {
		ex.BidRecord = append(ex.BidRecord, ex.GenerateOneBid())
	}
	ex.params.Logger.Debug("auctions generated", zap.Int("new", n), zap.Int("total", len(ex.BidRecord)))
	return ex.BidRecord
}

//CensoredRecords is the view of the history from one competitor: the price is revealed only
//for the auctions it won.
func (ex *Exchange) CensoredRecords(competitorId int) ([]ptl.Record, error) {
	if competitorId < 0 || competitorId >= len(ex.Competitors) {
		return nil, eris.Wrapf(ptl.ErrInvalidArgument, "competitor %d out of range [0, %d)", competitorId, len(ex.Competitors))
	}
	records := make([]ptl.Record, len(ex.BidRecord))
	for ind, bid := range ex.BidRecord {
		records[ind] = ptl.Record{
			Won:          bid.WinningId == competitorId,
			WinningPrice: ptl.UnobservedPrice,
			ObservedBid:  bid.Bids[competitorId],
			Attributes:   append([]float64(nil), bid.Attributes...),
		}
		if records[ind].Won {
			records[ind].WinningPrice = bid.WinningPrice
		}
	}
	return records, nil
}

//Clear drops the auction history and the competitors' bid histories. Budgets are not restored.
func (ex *Exchange) Clear() {
	ex.BidRecord = nil
	for _, competitor := range ex.Competitors {
		competitor.BidHistory = nil
	}
}
