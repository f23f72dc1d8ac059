package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	// ErrSourceRequired is returned when a source has neither a path nor a table
	ErrSourceRequired = errors.New("source path or table is required")
	// ErrColumnsRequired is returned when a source declares no columns
	ErrColumnsRequired = errors.New("source columns are required")
	// ErrOutputRequired is returned when no output table path is set
	ErrOutputRequired = errors.New("output table path is required")
	// ErrInvalidValue is returned for out-of-range numeric settings
	ErrInvalidValue = errors.New("invalid configuration value")
)

// SourceConfig describes where one input table comes from and which columns
// it must carry, in order. A source is read from Path, or from Table in
// PostgreSQL when Table is set.
type SourceConfig struct {
	Path    string   `yaml:"path"`
	DSN     string   `yaml:"dsn"`
	Table   string   `yaml:"table"`
	Columns []string `yaml:"columns"`
}

// FromPostgres reports whether the source is read from a database table.
func (s SourceConfig) FromPostgres() bool {
	return s.Table != ""
}

// SourcesConfig maps each source file name to its configuration.
type SourcesConfig struct {
	Locations  SourceConfig `yaml:"locations"`
	Prices     SourceConfig `yaml:"prices"`
	Facilities SourceConfig `yaml:"facilities"`
}

// OutputConfig holds the paths of everything a run writes.
type OutputConfig struct {
	Table    string `yaml:"table" default:"./data/monmouthshire_properties.csv"`
	Metadata string `yaml:"metadata" default:"./data/metadata/variable_info.csv"`
	Shape    string `yaml:"shape" default:"./data/metadata/property_data_shape.csv"`
	Metrics  string `yaml:"metrics"`
}

// PostgresConfig is used by sources that name a Table but no DSN.
type PostgresConfig struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     string `yaml:"port" default:"5432"`
	User     string `yaml:"user" default:"pipeline"`
	Password string `yaml:"password"`
	DB       string `yaml:"db" default:"properties"`
	SSLMode  string `yaml:"sslmode" default:"disable"`
}

// DSN returns the PostgreSQL connection string.
func (c PostgresConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DB +
		" sslmode=" + c.SSLMode
}

// Config holds all application configuration.
type Config struct {
	LogLevel string `yaml:"log_level" default:"info"`

	Sources  SourcesConfig  `yaml:"sources"`
	Output   OutputConfig   `yaml:"output"`
	Postgres PostgresConfig `yaml:"postgres"`

	StoreRadiusMeters float64  `yaml:"store_radius_meters" default:"10000"`
	FacilityCounties  []string `yaml:"facility_counties"`
	JoinTolerance     float64  `yaml:"join_tolerance" default:"0"`
	Workers           int      `yaml:"workers" default:"1"`
	ChunkSize         int      `yaml:"chunk_size" default:"512"`
	Strict            bool     `yaml:"strict"`
}

// Default returns a Config populated from struct tags and the default source
// layout.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	cfg.Sources = SourcesConfig{
		Locations: SourceConfig{
			Path:    "./data/monmouthshire_postcodes.csv",
			Columns: []string{"postcode", "in_use", "latitude", "longitude", "introduced", "terminated", "altitude", "ward", "parish"},
		},
		Prices: SourceConfig{
			Path: "./data/monmouthshire_prices.csv",
			Columns: []string{"unique_id", "price_paid", "deed_date", "postcode", "property_type", "new_build",
				"estate_type", "saon", "paon", "street", "locality", "town", "district", "county", "transaction_category"},
		},
		Facilities: SourceConfig{
			Path:    "./data/geolytix_supermarkets_locations.csv",
			Columns: []string{"id", "retailer", "fascia", "postcode", "lat_wgs", "long_wgs", "county"},
		},
	}
	return cfg, nil
}

// Load builds the configuration: defaults, then the YAML file at path (a
// missing file is not an error), then a .env file, then environment
// variables.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // user-provided config path
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	// .env is optional; system env vars apply either way
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnv("PIPELINE_LOG_LEVEL", c.LogLevel)
	c.Sources.Locations.Path = getEnv("PIPELINE_LOCATIONS_PATH", c.Sources.Locations.Path)
	c.Sources.Prices.Path = getEnv("PIPELINE_PRICES_PATH", c.Sources.Prices.Path)
	c.Sources.Facilities.Path = getEnv("PIPELINE_FACILITIES_PATH", c.Sources.Facilities.Path)
	c.Output.Table = getEnv("PIPELINE_OUTPUT_PATH", c.Output.Table)
	c.Output.Metadata = getEnv("PIPELINE_METADATA_PATH", c.Output.Metadata)
	c.Output.Metrics = getEnv("PIPELINE_METRICS_PATH", c.Output.Metrics)
	c.StoreRadiusMeters = getEnvFloat("PIPELINE_STORE_RADIUS_METERS", c.StoreRadiusMeters)
	c.Workers = getEnvInt("PIPELINE_WORKERS", c.Workers)
	c.Strict = getEnvBool("PIPELINE_STRICT", c.Strict)
	if counties := os.Getenv("PIPELINE_FACILITY_COUNTIES"); counties != "" {
		c.FacilityCounties = strings.Split(counties, ",")
	}

	c.Postgres.Host = getEnv("POSTGRES_HOST", c.Postgres.Host)
	c.Postgres.Port = getEnv("POSTGRES_PORT", c.Postgres.Port)
	c.Postgres.User = getEnv("POSTGRES_USER", c.Postgres.User)
	c.Postgres.Password = getEnv("POSTGRES_PASSWORD", c.Postgres.Password)
	c.Postgres.DB = getEnv("POSTGRES_DB", c.Postgres.DB)
	c.Postgres.SSLMode = getEnv("POSTGRES_SSLMODE", c.Postgres.SSLMode)
}

// SourceDSN returns the connection string for a database-backed source.
func (c *Config) SourceDSN(s SourceConfig) string {
	if s.DSN != "" {
		return s.DSN
	}
	return getEnv("POSTGRES_DSN", c.Postgres.DSN())
}

// Validate checks the configuration for missing or out-of-range values.
func (c *Config) Validate() error {
	for name, s := range map[string]SourceConfig{
		"locations":  c.Sources.Locations,
		"prices":     c.Sources.Prices,
		"facilities": c.Sources.Facilities,
	} {
		if s.Path == "" && s.Table == "" {
			return fmt.Errorf("%w: %s", ErrSourceRequired, name)
		}
		if len(s.Columns) == 0 {
			return fmt.Errorf("%w: %s", ErrColumnsRequired, name)
		}
	}

	if c.Output.Table == "" {
		return ErrOutputRequired
	}
	if c.StoreRadiusMeters <= 0 {
		return fmt.Errorf("%w: store_radius_meters must be positive, got %v", ErrInvalidValue, c.StoreRadiusMeters)
	}
	if c.JoinTolerance < 0 {
		return fmt.Errorf("%w: join_tolerance must not be negative, got %v", ErrInvalidValue, c.JoinTolerance)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidValue, c.Workers)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size must be at least 1, got %d", ErrInvalidValue, c.ChunkSize)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return fallback
}
