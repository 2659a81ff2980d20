package strategy

import (
	"encoding/json"
	"testing"

	"github.com/quantfork/cryptbot/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestDefaultConfigIsValid() {
	cfg := DefaultConfig()
	suite.Require().NoError(cfg.Validate())
}

func (suite *ConfigTestSuite) TestValidate() {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		errCode errors.ErrorCode
	}{
		{
			name:    "short window equal to long window",
			mutate:  func(c *Config) { c.ShortWindow = c.LongWindow },
			errCode: errors.ErrCodeInvalidWindow,
		},
		{
			name:    "short window greater than long window",
			mutate:  func(c *Config) { c.ShortWindow = c.LongWindow + 1 },
			errCode: errors.ErrCodeInvalidWindow,
		},
		{
			name:    "zero short window",
			mutate:  func(c *Config) { c.ShortWindow = 0 },
			errCode: errors.ErrCodeInvalidConfiguration,
		},
		{
			name:    "negative long window",
			mutate:  func(c *Config) { c.LongWindow = -5 },
			errCode: errors.ErrCodeInvalidConfiguration,
		},
		{
			name:    "trading fraction above one",
			mutate:  func(c *Config) { c.TradingFraction = 1.5 },
			errCode: errors.ErrCodeInvalidConfiguration,
		},
		{
			name:    "zero trading fraction",
			mutate:  func(c *Config) { c.TradingFraction = 0 },
			errCode: errors.ErrCodeInvalidConfiguration,
		},
		{
			name:    "loss fraction above one",
			mutate:  func(c *Config) { c.LossFraction = 2 },
			errCode: errors.ErrCodeInvalidConfiguration,
		},
		{
			name:    "unsupported interval",
			mutate:  func(c *Config) { c.Interval = "7m" },
			errCode: errors.ErrCodeInvalidInterval,
		},
		{
			name:    "empty interval",
			mutate:  func(c *Config) { c.Interval = "" },
			errCode: errors.ErrCodeInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			suite.Require().Error(err)
			suite.True(errors.HasCode(err, tt.errCode))
		})
	}
}

func (suite *ConfigTestSuite) TestParseConfigAppliesDefaults() {
	cfg, err := ParseConfig("short_window: 3\nlong_window: 8\n")
	suite.Require().NoError(err)

	suite.Equal(3, cfg.ShortWindow)
	suite.Equal(8, cfg.LongWindow)
	suite.Equal(DefaultConfig().TradingFraction, cfg.TradingFraction)
	suite.Equal(DefaultConfig().Interval, cfg.Interval)
}

func (suite *ConfigTestSuite) TestParseConfigRejectsInvalidYAML() {
	_, err := ParseConfig("short_window: [broken")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestGenerateSchemaJSON() {
	cfg := DefaultConfig()

	schema, err := cfg.GenerateSchemaJSON()
	suite.Require().NoError(err)

	var decoded map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schema), &decoded))
	suite.Equal("sma-cross-strategy-config", decoded["title"])

	props, ok := decoded["properties"].(map[string]any)
	suite.Require().True(ok)
	suite.Contains(props, "short_window")
	suite.Contains(props, "long_window")
	suite.Contains(props, "trading_fraction")
	suite.Contains(props, "loss_fraction")
	suite.Contains(props, "interval")
}
