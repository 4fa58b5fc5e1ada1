package main

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"github.com/tarstars/censored_price_tree/golang/price_tree/asim"
	"github.com/tarstars/censored_price_tree/golang/price_tree/ptl"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//Config is everything the command line needs: tree training, the auction simulator and logging.
type Config struct {
	Tree      ptl.Config      `mapstructure:"tree"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Log       LogConfig       `mapstructure:"log"`
}

//SimulatorConfig adds the size of the generated sample to the exchange setup.
type SimulatorConfig struct {
	asim.ExchangeParams `mapstructure:",squash"`
	NumBids             int `mapstructure:"num_bids" validate:"gt=0"`
	Competitor          int `mapstructure:"competitor" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

var configValidate = validator.New()

func newViper() *viper.Viper {
	v := viper.New()

	v.SetConfigName("price_tree")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PRICETREE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	tree := ptl.DefaultConfig()
	v.SetDefault("tree.max_height", tree.MaxHeight)
	v.SetDefault("tree.min_leaf_size", tree.MinLeafSize)
	v.SetDefault("tree.num_categories", tree.NumCategories)
	v.SetDefault("tree.num_price_bins", tree.NumPriceBins)
	v.SetDefault("tree.is_discrete", []bool{})
	v.SetDefault("tree.divergence", tree.Divergence)
	v.SetDefault("tree.censoring", tree.Censoring)
	v.SetDefault("tree.convention", tree.Convention)
	v.SetDefault("tree.interval_width", tree.IntervalWidth)
	v.SetDefault("tree.epsilon", tree.Epsilon)
	v.SetDefault("tree.max_iterations", tree.MaxIterations)
	v.SetDefault("tree.max_search_passes", tree.MaxSearchPasses)
	v.SetDefault("tree.seed", tree.Seed)
	v.SetDefault("tree.threads_num", tree.ThreadsNum)

	exchange := asim.DefaultExchangeParams()
	v.SetDefault("simulator.num_competitors", exchange.NumCompetitors)
	v.SetDefault("simulator.num_integer_attributes", exchange.NumIntegerAttributes)
	v.SetDefault("simulator.integer_attributes_range", exchange.IntegerAttributesRange)
	v.SetDefault("simulator.num_float_attributes", exchange.NumFloatAttributes)
	v.SetDefault("simulator.float_attributes_range", []float64{})
	v.SetDefault("simulator.auction_type", exchange.AuctionType)
	v.SetDefault("simulator.budget", exchange.Budget)
	v.SetDefault("simulator.seed", exchange.Seed)
	v.SetDefault("simulator.num_bids", 10000)
	v.SetDefault("simulator.competitor", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	return v
}

//Load reads the config file (optional, overridden by --config), the environment and the bound flags.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := configValidate.Struct(cfg); err != nil {
		return nil, eris.Wrapf(ptl.ErrInvalidConfig, "config: %v", err)
	}
	return &cfg, nil
}

//InitLogger builds the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
