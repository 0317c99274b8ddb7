package core

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v9"
	"github.com/go-playground/validator"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	AnyOrigin = "*"

	defaultPort           = 4000
	defaultMaxUploadBytes = 10 << 20
	defaultMaxInputPixels = 16383 * 16383
)

// CompressionConfig holds the values applied when a request omits a parameter
type CompressionConfig struct {
	DefaultQuality    int    `yaml:"defaultQuality" validate:"min=40,max=95"`
	DefaultFormat     string `yaml:"defaultFormat" validate:"oneof=jpeg png webp"`
	DefaultMaxWidth   int    `yaml:"defaultMaxWidth" validate:"min=1"`
	ResampleFilter    string `yaml:"resampleFilter" env:"RESAMPLE_FILTER"`
	SVGFallbackWidth  int    `yaml:"svgFallbackWidth" validate:"min=0"`
	SVGFallbackHeight int    `yaml:"svgFallbackHeight" validate:"min=0"`
	// MaxInputPixels caps width*height of decoded uploads; 0 disables the cap
	MaxInputPixels int64 `yaml:"maxInputPixels" env:"MAX_INPUT_PIXELS" validate:"min=0"`
}

type LogConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" env:"LOG_FORMAT" validate:"oneof=text json"`
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"maxSizeMB" validate:"min=0"`
	MaxBackups int    `yaml:"maxBackups" validate:"min=0"`
	MaxAgeDays int    `yaml:"maxAgeDays" validate:"min=0"`
}

// ServiceConfig is loaded once at startup and not modified afterwards
type ServiceConfig struct {
	Port           int               `yaml:"port" env:"PORT" validate:"min=1,max=65535"`
	FrontendOrigin string            `yaml:"frontendOrigin" env:"FRONTEND_ORIGIN" validate:"required"`
	MaxUploadBytes int64             `yaml:"maxUploadBytes" env:"MAX_UPLOAD_BYTES" validate:"min=1"`
	Compression    CompressionConfig `yaml:"compression"`
	Log            LogConfig         `yaml:"log"`
}

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() ServiceConfig {
	return ServiceConfig{
		Port:           defaultPort,
		FrontendOrigin: AnyOrigin,
		MaxUploadBytes: defaultMaxUploadBytes,
		Compression: CompressionConfig{
			DefaultQuality:    80,
			DefaultFormat:     "jpeg",
			DefaultMaxWidth:   1920,
			ResampleFilter:    "lanczos",
			SVGFallbackWidth:  1024,
			SVGFallbackHeight: 1024,
			MaxInputPixels:    defaultMaxInputPixels,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// AllowsAnyOrigin reports whether cross-origin requests are accepted from every origin
func (c *ServiceConfig) AllowsAnyOrigin() bool {
	return c.FrontendOrigin == AnyOrigin
}

// LoadConfig builds the configuration from defaults, the optional YAML file at
// configPath, a .env file in the working directory and the process environment,
// in that order of increasing precedence. An empty configPath skips the YAML file.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	config := DefaultConfig()

	if configPath != "" {
		// Read the config file
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}

		// Parse YAML
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	// .env is optional; existing environment variables win over its entries
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func validateConfig(config *ServiceConfig) error {
	return validator.New().Struct(config)
}
