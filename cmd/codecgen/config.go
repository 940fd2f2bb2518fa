package main

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/bincodec/stream"
	"github.com/wippyai/bincodec/synth"
)

// Config holds codecgen settings read from codecgen.yaml, BINCODEC_*
// environment variables and flags.
type Config struct {
	StringPrefix        string `mapstructure:"string_prefix"`
	MaxStringSize       int    `mapstructure:"max_string_size"`
	MaxCollectionLength int    `mapstructure:"max_collection_length"`
	LogLevel            string `mapstructure:"log_level"`
	// Color is auto, always or never.
	Color string `mapstructure:"color"`
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("string_prefix", "varint")
	v.SetDefault("max_string_size", stream.MaxStringSize)
	v.SetDefault("max_collection_length", synth.DefaultMaxCollectionLength)
	v.SetDefault("log_level", "warn")
	v.SetDefault("color", "auto")

	v.SetConfigName("codecgen")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BINCODEC")
	v.AutomaticEnv()
	return v
}

func loadConfig(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, ok := stream.ParseStringPrefix(c.StringPrefix); !ok {
		return fmt.Errorf("string_prefix must be varint or fixed32, got %q", c.StringPrefix)
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("color must be auto, always or never, got %q", c.Color)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// synthConfig maps the settings onto a synthesizer configuration.
func (c *Config) synthConfig() synth.Config {
	prefix, _ := stream.ParseStringPrefix(c.StringPrefix)
	opts := []stream.Option{stream.WithStringPrefix(prefix)}
	if c.MaxStringSize > 0 {
		opts = append(opts, stream.WithMaxStringSize(c.MaxStringSize))
	}
	return synth.Config{
		MaxCollectionLength: c.MaxCollectionLength,
		Stream:              opts,
	}
}

func (c *Config) newLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = true
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
