package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Cache    CacheConfig
	Import   ImportConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL string
}

// StorageConfig holds S3-compatible object storage configuration
type StorageConfig struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	PublicURL    string
}

// AuthConfig holds JWT verification configuration
type AuthConfig struct {
	Secret string
	Issuer string
}

// CacheConfig holds caching TTL configuration
type CacheConfig struct {
	StatsTTL       time.Duration
	ReviewsListTTL time.Duration
}

// ImportConfig holds batch import configuration
type ImportConfig struct {
	CheckpointRows int
}

// Load reads configuration from environment variables and returns a Config struct
func Load() (*Config, error) {
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_READ_TIMEOUT", "10s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "product_reviews")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("NATS_URL", "nats://localhost:4222")

	viper.SetDefault("STORAGE_ENDPOINT", "http://localhost:9000")
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_BUCKET", "product-reviews")
	viper.SetDefault("STORAGE_ACCESS_KEY", "")
	viper.SetDefault("STORAGE_SECRET_KEY", "")
	viper.SetDefault("STORAGE_USE_PATH_STYLE", true)
	viper.SetDefault("STORAGE_PUBLIC_URL", "")

	viper.SetDefault("AUTH_JWT_SECRET", "")
	viper.SetDefault("AUTH_JWT_ISSUER", "product-reviews")

	viper.SetDefault("CACHE_TTL_STATS", "300s")
	viper.SetDefault("CACHE_TTL_REVIEWS_LIST", "120s")

	viper.SetDefault("IMPORT_CHECKPOINT_ROWS", 15)

	readTimeout, err := time.ParseDuration(viper.GetString("SERVER_READ_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := time.ParseDuration(viper.GetString("SERVER_WRITE_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := time.ParseDuration(viper.GetString("SERVER_SHUTDOWN_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT: %w", err)
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}

	statsTTL, err := time.ParseDuration(viper.GetString("CACHE_TTL_STATS"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL_STATS: %w", err)
	}

	reviewsListTTL, err := time.ParseDuration(viper.GetString("CACHE_TTL_REVIEWS_LIST"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL_REVIEWS_LIST: %w", err)
	}

	allowedOriginsStr := viper.GetString("CORS_ALLOWED_ORIGINS")
	allowedOrigins := strings.Split(allowedOriginsStr, ",")
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}

	config := &Config{
		Env: viper.GetString("ENV"),
		Server: ServerConfig{
			Port:            viper.GetString("SERVER_PORT"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AllowedOrigins:  allowedOrigins,
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetString("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Name:            viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		NATS: NATSConfig{
			URL: viper.GetString("NATS_URL"),
		},
		Storage: StorageConfig{
			Endpoint:     viper.GetString("STORAGE_ENDPOINT"),
			Region:       viper.GetString("STORAGE_REGION"),
			Bucket:       viper.GetString("STORAGE_BUCKET"),
			AccessKey:    viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:    viper.GetString("STORAGE_SECRET_KEY"),
			UsePathStyle: viper.GetBool("STORAGE_USE_PATH_STYLE"),
			PublicURL:    viper.GetString("STORAGE_PUBLIC_URL"),
		},
		Auth: AuthConfig{
			Secret: viper.GetString("AUTH_JWT_SECRET"),
			Issuer: viper.GetString("AUTH_JWT_ISSUER"),
		},
		Cache: CacheConfig{
			StatsTTL:       statsTTL,
			ReviewsListTTL: reviewsListTTL,
		},
		Import: ImportConfig{
			CheckpointRows: viper.GetInt("IMPORT_CHECKPOINT_ROWS"),
		},
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
