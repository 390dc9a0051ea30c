package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Provider exposes configuration through getters so services never reach for
// os.Getenv directly. It also keeps tests free to substitute a stub.
type Provider interface {
	GetAppAddr() string
	GetDBURL() string
	GetDBUser() string
	GetDBPass() string
	GetDBNs() string
	GetDBDb() string
	GetTokenSecret() []byte
	GetTokenTTL() time.Duration
}

// Config holds all configuration for the service.
type Config struct {
	AppAddr     string
	DBUrl       string
	DBNs        string
	DBDb        string
	DBUser      string
	DBPass      string
	TokenSecret string
	TokenTTL    time.Duration
}

const defaultTokenTTL = 24 * time.Hour

// New loads configuration from environment variables, reading a .env file
// first when one exists.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		AppAddr:     getEnv("APP_ADDR", ":8080"),
		DBUrl:       os.Getenv("SURREAL_URL"),
		DBUser:      os.Getenv("SURREAL_USER"),
		DBPass:      os.Getenv("SURREAL_PASS"),
		DBNs:        os.Getenv("SURREAL_NS"),
		DBDb:        os.Getenv("SURREAL_DB"),
		TokenSecret: os.Getenv("TOKEN_SECRET"),
		TokenTTL:    defaultTokenTTL,
	}

	if ttl := os.Getenv("TOKEN_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			log.Fatalf("Invalid TOKEN_TTL %q: %v", ttl, err)
		}
		cfg.TokenTTL = d
	}

	if cfg.DBUrl == "" || cfg.DBNs == "" || cfg.DBDb == "" {
		log.Fatal("Required environment variables SURREAL_URL, SURREAL_NS, or SURREAL_DB are not set.")
	}
	if cfg.TokenSecret == "" {
		log.Fatal("Required environment variable TOKEN_SECRET is not set.")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (c *Config) GetAppAddr() string         { return c.AppAddr }
func (c *Config) GetDBURL() string           { return c.DBUrl }
func (c *Config) GetDBUser() string          { return c.DBUser }
func (c *Config) GetDBPass() string          { return c.DBPass }
func (c *Config) GetDBNs() string            { return c.DBNs }
func (c *Config) GetDBDb() string            { return c.DBDb }
func (c *Config) GetTokenSecret() []byte     { return []byte(c.TokenSecret) }
func (c *Config) GetTokenTTL() time.Duration { return c.TokenTTL }
