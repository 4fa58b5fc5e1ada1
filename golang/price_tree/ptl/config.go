package ptl

import (
	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/tarstars/censored_price_tree/golang/price_tree/survival"
	"go.uber.org/zap"
)

var configValidate = validator.New()

//Config is the user facing description of a training run. Mode fields use the names
//accepted by survival.NewEstimator, survival.NewDivergence and survival.ParseConvention.
type Config struct {
	MaxHeight       int     `mapstructure:"max_height" validate:"gt=0"`
	MinLeafSize     int     `mapstructure:"min_leaf_size" validate:"gt=0"`
	NumCategories   int     `mapstructure:"num_categories" validate:"gt=0"`
	NumPriceBins    int     `mapstructure:"num_price_bins" validate:"gt=0"`
	IsDiscrete      []bool  `mapstructure:"is_discrete"`
	Divergence      string  `mapstructure:"divergence" validate:"oneof=squared area-based"`
	Censoring       string  `mapstructure:"censoring" validate:"oneof=right-censored interval-censored"`
	Convention      string  `mapstructure:"convention" validate:"omitempty,oneof=loss-bracketed both-bracketed"`
	IntervalWidth   float64 `mapstructure:"interval_width" validate:"gte=0"`
	Epsilon         float64 `mapstructure:"epsilon" validate:"gte=0"`
	MaxIterations   int     `mapstructure:"max_iterations" validate:"gte=0"`
	MaxSearchPasses int     `mapstructure:"max_search_passes" validate:"gte=0"`
	Seed            int64   `mapstructure:"seed"`
	ThreadsNum      int     `mapstructure:"threads_num" validate:"gte=0"`
}

//DefaultConfig mirrors the historical defaults: five levels, leaves of at least 100 records,
//100 attribute categories and 100 price bins.
func DefaultConfig() Config {
	return Config{
		MaxHeight:       5,
		MinLeafSize:     100,
		NumCategories:   100,
		NumPriceBins:    100,
		Divergence:      survival.Squared,
		Censoring:       survival.RightCensored,
		Convention:      survival.LossBracketedName,
		IntervalWidth:   survival.DefaultIntervalWidth,
		Epsilon:         survival.DefaultEpsilon,
		MaxIterations:   survival.DefaultMaxIterations,
		MaxSearchPasses: DefaultMaxSearchPasses,
		ThreadsNum:      1,
	}
}

//Validate checks the config against the number of attributes of the training records.
func (cfg Config) Validate(numAttributes int) error {
	if err := configValidate.Struct(cfg); err != nil {
		return eris.Wrapf(ErrInvalidConfig, "%v", err)
	}
	if len(cfg.IsDiscrete) != numAttributes {
		return eris.Wrapf(ErrInvalidConfig, "is_discrete has %d flags for %d attributes", len(cfg.IsDiscrete), numAttributes)
	}
	return nil
}

//Train validates the config, freezes the bins over the records and grows a tree.
func Train(records []Record, cfg Config, logger *zap.Logger) (*PriceTree, error) {
	if len(records) == 0 {
		return nil, eris.Wrap(ErrInvalidArgument, "no training records")
	}
	if err := cfg.Validate(len(records[0].Attributes)); err != nil {
		return nil, err
	}

	convention := survival.LossBracketed
	if cfg.Convention != "" {
		var err error
		if convention, err = survival.ParseConvention(cfg.Convention); err != nil {
			return nil, err
		}
	}

	ds, err := NewDataset(records, cfg.NumCategories, cfg.NumPriceBins, cfg.IsDiscrete)
	if err != nil {
		return nil, err
	}
	estimator, err := survival.NewEstimator(cfg.Censoring, ds.Binning.Price, survival.TurnbullParams{
		Convention:    convention,
		IntervalWidth: cfg.IntervalWidth,
		Epsilon:       cfg.Epsilon,
		MaxIterations: cfg.MaxIterations,
	})
	if err != nil {
		return nil, err
	}
	divergence, err := survival.NewDivergence(cfg.Divergence)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("training",
		zap.Int("records", ds.Height()),
		zap.Int("attributes", ds.Width()),
		zap.String("censoring", cfg.Censoring),
		zap.String("convention", convention.String()),
		zap.String("divergence", cfg.Divergence),
		zap.Int64("seed", cfg.Seed),
	)

	return NewPriceTree(ds, TreeParams{
		MaxHeight:       cfg.MaxHeight,
		MinLeafSize:     cfg.MinLeafSize,
		Estimator:       estimator,
		Divergence:      divergence,
		Seed:            cfg.Seed,
		MaxSearchPasses: cfg.MaxSearchPasses,
		ThreadsNum:      cfg.ThreadsNum,
		Logger:          logger,
	})
}
