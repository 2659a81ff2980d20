package strategy

import (
	"encoding/json"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/quantfork/cryptbot/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SupportedIntervals are the kline intervals accepted by the exchange.
var SupportedIntervals = []string{
	"1m", "3m", "5m", "15m", "30m",
	"1h", "2h", "4h", "6h", "8h", "12h",
	"1d", "3d", "1w", "1M",
}

// Config holds the named, typed strategy parameters. All fields are validated
// at construction; an invalid configuration never reaches a running strategy.
type Config struct {
	// ShortWindow is the short simple-moving-average window length.
	ShortWindow int `yaml:"short_window" json:"short_window" jsonschema:"title=Short Window,description=Short moving average window length" validate:"required,gt=0"`
	// LongWindow is the long simple-moving-average window length.
	// Must be strictly greater than ShortWindow for crossovers to be meaningful.
	LongWindow int `yaml:"long_window" json:"long_window" jsonschema:"title=Long Window,description=Long moving average window length" validate:"required,gt=0"`
	// TradingFraction is the part of the free quote balance spent on each buy, in (0,1].
	TradingFraction float64 `yaml:"trading_fraction" json:"trading_fraction" jsonschema:"title=Trading Fraction,description=Fraction of quote capital used per buy" validate:"required,gt=0,lte=1"`
	// LossFraction is the capital floor as a fraction of initial capital, in (0,1].
	// The run stops once total assets fall strictly below initial capital times this fraction.
	LossFraction float64 `yaml:"loss_fraction" json:"loss_fraction" jsonschema:"title=Loss Fraction,description=Stop threshold as a fraction of initial capital" validate:"required,gt=0,lte=1"`
	// Interval is the candle interval, e.g. "5m".
	Interval string `yaml:"interval" json:"interval" jsonschema:"title=Interval,description=Candle interval" validate:"required"`
}

// DefaultConfig returns the historical default parameters.
func DefaultConfig() Config {
	return Config{
		ShortWindow:     20,
		LongWindow:      50,
		TradingFraction: 0.2,
		LossFraction:    0.8,
		Interval:        "5m",
	}
}

// Validate validates the configuration, including the cross-field window
// ordering and the interval whitelist.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid strategy config", err)
	}

	if c.ShortWindow >= c.LongWindow {
		return errors.Newf(errors.ErrCodeInvalidWindow,
			"short window (%d) must be strictly smaller than long window (%d)",
			c.ShortWindow, c.LongWindow)
	}

	if !slices.Contains(SupportedIntervals, c.Interval) {
		return errors.Newf(errors.ErrCodeInvalidInterval, "unsupported candle interval: %s", c.Interval)
	}

	return nil
}

// ParseConfig parses a YAML configuration string and validates it.
func ParseConfig(yamlConfig string) (Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(yamlConfig), &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse strategy config", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// GenerateSchemaJSON returns the JSON schema describing the configuration.
func (c *Config) GenerateSchemaJSON() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(c)
	schema.Title = "sma-cross-strategy-config"
	schema.Description = "Configuration schema for the SMA crossover strategy"

	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
