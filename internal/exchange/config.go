package exchange

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/quantfork/cryptbot/pkg/errors"
)

// Config contains the Binance collaborator configuration.
type Config struct {
	BaseAsset  string `json:"base_asset" yaml:"base_asset" jsonschema:"title=Base Asset,description=Base asset of the traded pair (e.g. BTC)" validate:"required,uppercase"`
	QuoteAsset string `json:"quote_asset" yaml:"quote_asset" jsonschema:"title=Quote Asset,description=Quote asset of the traded pair (e.g. USDT)" validate:"required,uppercase"`
	APIKey     string `json:"api_key" yaml:"api_key" jsonschema:"title=API Key,description=Binance API key"`
	SecretKey  string `json:"secret_key" yaml:"secret_key" jsonschema:"title=Secret Key,description=Binance API secret key"`
	// UseTestnet switches REST and WebSocket endpoints to the spot testnet.
	UseTestnet bool `json:"use_testnet" yaml:"use_testnet" jsonschema:"title=Use Testnet,description=Connect to the Binance spot testnet"`
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid exchange config", err)
	}

	return nil
}

// ParseConfig parses a JSON configuration string into a Config.
func ParseConfig(jsonConfig string) (*Config, error) {
	var config Config
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse exchange config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
