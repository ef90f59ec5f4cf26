package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/RockaiDev/bariqe-dashboard/internal/db"
	"github.com/RockaiDev/bariqe-dashboard/internal/logging"
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

// EnvPrefix is the prefix of environment overrides, e.g. BARIQE_SERVER_PORT.
const EnvPrefix = "BARIQE"

type ServerConfig struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
	MetricsEnabled bool
	// DefaultOrganizationID scopes requests that carry no organization header.
	DefaultOrganizationID string
}

type QueryConfig struct {
	DefaultPerPage int
	MaxPerPage     int
	StrictFilters  bool
}

type CacheConfig struct {
	ProfileTTL time.Duration
}

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig
	Database db.Config
	Backend  string
	Mongo    db.MongoConfig
	Query    QueryConfig
	Cache    CacheConfig
	Logging  logging.Config

	// File is the config file that was read, empty when only defaults and env applied.
	File string
}

func setDefaults(v *viper.Viper) {
	dbDefaults := db.DefaultConfig()
	mongoDefaults := db.DefaultMongoConfig()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.metrics_enabled", true)
	v.SetDefault("server.default_organization_id", "")

	v.SetDefault("database.host", dbDefaults.Host)
	v.SetDefault("database.port", dbDefaults.Port)
	v.SetDefault("database.user", dbDefaults.User)
	v.SetDefault("database.password", dbDefaults.Password)
	v.SetDefault("database.dbname", dbDefaults.DBName)
	v.SetDefault("database.sslmode", dbDefaults.SSLMode)
	v.SetDefault("database.max_conns", dbDefaults.MaxConns)

	v.SetDefault("storage.backend", BackendPostgres)
	v.SetDefault("mongo.uri", mongoDefaults.URI)
	v.SetDefault("mongo.database", mongoDefaults.Database)

	v.SetDefault("query.default_per_page", 15)
	v.SetDefault("query.max_per_page", 500)
	v.SetDefault("query.strict_filters", false)

	v.SetDefault("cache.profile_ttl", 5*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
}

// Load reads config.yaml from configPath when present, then applies BARIQE_*
// environment overrides over the defaults.
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Config{
		Server: ServerConfig{
			Port:                  v.GetInt("server.port"),
			ReadTimeout:           v.GetDuration("server.read_timeout"),
			WriteTimeout:          v.GetDuration("server.write_timeout"),
			IdleTimeout:           v.GetDuration("server.idle_timeout"),
			AllowedOrigins:        v.GetStringSlice("server.allowed_origins"),
			MetricsEnabled:        v.GetBool("server.metrics_enabled"),
			DefaultOrganizationID: v.GetString("server.default_organization_id"),
		},
		Database: db.Config{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
			MaxConns: v.GetInt32("database.max_conns"),
		},
		Backend: strings.ToLower(v.GetString("storage.backend")),
		Mongo: db.MongoConfig{
			URI:      v.GetString("mongo.uri"),
			Database: v.GetString("mongo.database"),
		},
		Query: QueryConfig{
			DefaultPerPage: v.GetInt("query.default_per_page"),
			MaxPerPage:     v.GetInt("query.max_per_page"),
			StrictFilters:  v.GetBool("query.strict_filters"),
		},
		Cache: CacheConfig{
			ProfileTTL: v.GetDuration("cache.profile_ttl"),
		},
		Logging: logging.Config{
			Level:       v.GetString("logging.level"),
			Development: v.GetBool("logging.development"),
		},
		File: v.ConfigFileUsed(),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendPostgres, BackendMongo, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Backend)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Query.DefaultPerPage <= 0 {
		return fmt.Errorf("query.default_per_page must be positive")
	}
	if c.Query.MaxPerPage > 0 && c.Query.MaxPerPage < c.Query.DefaultPerPage {
		return fmt.Errorf("query.max_per_page must not be below query.default_per_page")
	}
	return nil
}
