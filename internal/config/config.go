// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

// ServiceAreaConfig is the league's registration coverage area. Defaults
// preserve the historical values: 50 miles around Salina, Kansas, with the
// Kansas region fallback for coarse IP geolocation.
type ServiceAreaConfig struct {
	CenterLat   float64 `yaml:"center_lat"`
	CenterLon   float64 `yaml:"center_lon"`
	RadiusMiles float64 `yaml:"radius_miles"`
	Region      string  `yaml:"region"`
	RegionName  string  `yaml:"region_name"`
}

type EmailConfig struct {
	Enabled bool   `yaml:"enabled"`
	Region  string `yaml:"region"`
	Sender  string `yaml:"sender"`
	// Credentials loaded from environment
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
}

type GeocodeConfig struct {
	BaseURL string `yaml:"base_url"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
		SecretKey   string `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database    DatabaseConfig    `yaml:"database"`
	ServiceArea ServiceAreaConfig `yaml:"service_area"`
	Email       EmailConfig       `yaml:"email"`
	Geocode     GeocodeConfig     `yaml:"geocode"`

	Features struct {
		EnableDebug bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// Read and parse YAML config
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg.applyDefaults()

	// Load sensitive values from environment
	cfg.App.SecretKey = os.Getenv("APP_SECRET_KEY")
	cfg.Email.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	cfg.Email.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ServiceArea.RadiusMiles == 0 {
		c.ServiceArea = ServiceAreaConfig{
			CenterLat:   38.8403,
			CenterLon:   -97.6114,
			RadiusMiles: 50,
			Region:      "KS",
			RegionName:  "Kansas",
		}
	}
	if c.Geocode.BaseURL == "" {
		c.Geocode.BaseURL = "https://api.zippopotam.us"
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.ServiceArea.RadiusMiles <= 0 {
		return fmt.Errorf("service area radius must be positive")
	}

	if c.Email.Enabled {
		if c.Email.Region == "" || c.Email.Sender == "" {
			return fmt.Errorf("email region and sender are required when email is enabled")
		}
		if c.Email.AccessKeyID == "" || c.Email.SecretAccessKey == "" {
			return fmt.Errorf("email credentials are required when email is enabled")
		}
	}

	return nil
}
