package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	BaseURL string        `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	HTTP    HTTPConfig    `yaml:"http" envconfig:"HTTP"`
	Browser BrowserConfig `yaml:"browser" envconfig:"BROWSER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Output  OutputConfig  `yaml:"output" envconfig:"OUTPUT"`
}

// HTTPConfig contains outbound HTTP client configuration
type HTTPConfig struct {
	// Timeout bounds a single request. Zero disables the bound, which
	// matches how long a large report page can legitimately take.
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gte=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" validate:"gte=0"`
	Burst             int           `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
	UserAgent         string        `yaml:"user_agent" envconfig:"USER_AGENT"`
}

// BrowserConfig controls the cookie-harvesting browser session
type BrowserConfig struct {
	Headless    bool   `yaml:"headless" envconfig:"HEADLESS"`
	UserDataDir string `yaml:"user_data_dir" envconfig:"USER_DATA_DIR" validate:"required"`
	ExecPath    string `yaml:"exec_path" envconfig:"EXEC_PATH"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=text json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// OutputConfig controls where report files land
type OutputConfig struct {
	BaseDir string `yaml:"base_dir" envconfig:"BASE_DIR" validate:"required"`
	Excel   bool   `yaml:"excel" envconfig:"EXCEL"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		BaseURL: "https://www.ice.com",
		HTTP: HTTPConfig{
			Timeout: time.Minute,
			Burst:   1,
		},
		Browser: BrowserConfig{
			UserDataDir: "chromedp",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Output:   "console",
			FilePath: "logs/goce.log",
		},
		Output: OutputConfig{
			BaseDir: "goce",
		},
	}
}

// Load loads configuration from defaults, config file and environment variables
func Load() (*Config, error) {
	cfg := Default()

	// A .env file supplies environment variables without touching the
	// shell; a missing file is not an error.
	_ = godotenv.Load()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process("GOCE", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile overlays configuration from a YAML file onto cfg. Fields
// absent from the file keep their current values.
func loadFromFile(cfg *Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	// Check for config file in common locations
	locations := []string{
		"goce.yaml",
		"configs/goce.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Validate validates the configuration against its struct tags
func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("config validation failed: %w", err)
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		messages = append(messages, formatValidationError(fieldError))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
}

func newValidator() *validator.Validate {
	v := validator.New()

	// Use YAML tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required", "required_unless":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}
