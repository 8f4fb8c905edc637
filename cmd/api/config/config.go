package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// ErrHelp is returned by Load when -h or --help was requested.
var ErrHelp = pflag.ErrHelp

type Config struct {
	Port            int
	Storage         string
	DatabaseURL     string
	MigrationsPath  string
	DBMaxConns      int
	NotificationURL string
	LogLevel        slog.Level
	LogFormat       string
	ShutdownTimeout time.Duration
}

/*
Load reads the configuration from the environment (optionally seeded by a .env file) and
lets command-line flags override it. Variables already set in the environment win over .env.
*/
func Load(args []string, envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	port, err := envInt("PORT", 8080)
	if err != nil {
		return Config{}, err
	}
	maxConns, err := envInt("DATABASE_MAX_CONNS", 5)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:            port,
		Storage:         envString("STORAGE", StoragePostgres),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		MigrationsPath:  os.Getenv("DATABASE_MIGRATIONS_PATH"),
		DBMaxConns:      maxConns,
		NotificationURL: os.Getenv("NTFY_URL"),
		LogFormat:       envString("LOG_FORMAT", "text"),
		ShutdownTimeout: 10 * time.Second,
	}
	logLevel := envString("LOG_LEVEL", "info")

	flagSet := pflag.NewFlagSet("books-api", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.IntVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	flagSet.StringVar(&cfg.Storage, "storage", cfg.Storage, "storage backend: postgres or memory")
	flagSet.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "PostgreSQL connection string")
	flagSet.StringVar(&cfg.MigrationsPath, "migrations", cfg.MigrationsPath, "directory with migration files (default: embedded)")
	flagSet.IntVar(&cfg.DBMaxConns, "db-max-conns", cfg.DBMaxConns, "maximum open database connections")
	flagSet.StringVar(&cfg.NotificationURL, "ntfy-url", cfg.NotificationURL, "ntfy base URL for book notifications (empty disables them)")
	flagSet.StringVar(&logLevel, "log-level", logLevel, "log level: debug, info, warn or error")
	flagSet.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text or json")
	flagSet.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown timeout")

	err = flagSet.Parse(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Usage of books-api:\n%s", flagSet.FlagUsages())
		}
		return Config{}, fmt.Errorf("parsing flags: %w", err)
	}

	err = cfg.LogLevel.UnmarshalText([]byte(logLevel))
	if err != nil {
		return Config{}, fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}

	err = cfg.validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	switch cfg.Storage {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q, must be %s or %s", cfg.Storage, StoragePostgres, StorageMemory)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.DBMaxConns <= 0 {
		return fmt.Errorf("invalid db max conns %d, must be positive", cfg.DBMaxConns)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q, must be text or json", cfg.LogFormat)
	}
	return nil
}

/* Builds the process logger described by the configuration. */
func (cfg Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
