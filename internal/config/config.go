package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	DatabaseDriver string `env:"DB_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`

	// DiscussionStore selects where the discussion log lives: "sql" or "mongo".
	DiscussionStore string `env:"DISCUSSION_STORE" envDefault:"sql"`
	MongoURI        string `env:"MONGO_URI"`
	MongoDatabase   string `env:"MONGO_DATABASE" envDefault:"felicity"`

	JWTSecret    string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL       time.Duration `env:"JWT_TTL" envDefault:"168h"`
	CookieDomain string        `env:"DOMAIN"`

	ClientURL      string   `env:"CLIENT_URL"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	SendgridAPIKey string `env:"SENDGRID_API_KEY"`
	FromEmail      string `env:"FROM_EMAIL" envDefault:"noreply@felicity.local"`
	FromName       string `env:"FROM_NAME" envDefault:"Felicity"`

	RollbarToken string `env:"ROLLBAR_TOKEN"`

	OutboxInterval    time.Duration `env:"OUTBOX_INTERVAL" envDefault:"5s"`
	OutboxBatch       int           `env:"OUTBOX_BATCH" envDefault:"20"`
	OutboxMaxAttempts int           `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"5"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DatabaseURL == "" && cfg.DatabaseDriver != "sqlite" {
		return Config{}, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	if cfg.DiscussionStore != "sql" && cfg.DiscussionStore != "mongo" {
		return Config{}, fmt.Errorf("unsupported DISCUSSION_STORE %q", cfg.DiscussionStore)
	}

	if cfg.DiscussionStore == "mongo" && cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGO_URI is required when DISCUSSION_STORE=mongo")
	}

	if cfg.Port == "" {
		cfg.Port = "3000"
		log.Println("PORT not set, defaulting to 3000")
	}

	return cfg, nil
}

// Origins returns the CORS/websocket origin allow-list.
func (c Config) Origins() []string {
	origins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}

	if c.ClientURL != "" {
		origins = append(origins, c.ClientURL)
	}

	for _, origin := range c.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}

	return origins
}

// Debug reports whether the process runs outside production.
func (c Config) Debug() bool {
	return c.Environment != "production"
}
