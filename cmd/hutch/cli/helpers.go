package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Jonathanferreras/watch-the-hutch/internal/config"
	"github.com/Jonathanferreras/watch-the-hutch/internal/security"
	"github.com/Jonathanferreras/watch-the-hutch/internal/service"
	"github.com/Jonathanferreras/watch-the-hutch/internal/store"
)

var (
	// dataDir holds the --data-dir persistent flag value.
	dataDir string
	// databaseURL holds the --database-url persistent flag value.
	databaseURL string
)

// resolveDataDir returns the data directory from --data-dir flag,
// HUTCH_DATA_DIR env var, or ~/.hutch as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("HUTCH_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".hutch")
}

// loadConfig decodes the effective configuration: defaults, then the YAML
// file, then the environment, then flags bound into viper.
func loadConfig() (*config.YAMLConfig, error) {
	cfg := config.DefaultYAMLConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if databaseURL != "" {
		cfg.Database.URL = databaseURL
	}
	cfg.Database.URL = resolveDatabaseURL(cfg.Database.URL,
		viper.GetString("postgres.user"),
		viper.GetString("postgres.password"),
		viper.GetString("postgres.host"),
		viper.GetString("postgres.port"),
		viper.GetString("postgres.db"),
	)
	return cfg, nil
}

// resolveDatabaseURL prefers an explicit URL and otherwise assembles one from
// the POSTGRES_* parts. An empty result selects the SQLite store.
func resolveDatabaseURL(explicit, user, password, host, port, db string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	return config.PostgresURL(user, password, host, port, db)
}

// openStore connects to the configured database and applies migrations.
func openStore(ctx context.Context, cfg *config.YAMLConfig) (*store.Store, error) {
	st, err := store.Open(ctx, store.Options{
		URL:          cfg.Database.URL,
		DataDir:      resolveDataDir(),
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// newEventService wires the reconciler and event service over st.
func newEventService(st *store.Store, cfg *config.YAMLConfig, logger *slog.Logger) *service.EventService {
	reconciler := service.NewReconciler(st, service.ReconcilerConfig{
		MaxRetries:       cfg.Reconcile.MaxRetries,
		RejectOutOfOrder: cfg.Reconcile.RejectOutOfOrder,
	}, logger)
	return service.NewEventService(st, reconciler, logger)
}

// newOperatorAuthService builds an AuthService for commands that manage
// accounts but never issue session tokens, so no signing key is needed.
func newOperatorAuthService(st *store.Store, logger *slog.Logger) *service.AuthService {
	return service.NewAuthService(st, nil, 0, logger)
}

// newSessionAuthService builds an AuthService that can issue and verify
// session tokens. It fails with config.ErrMissingSecretKey when no key is
// configured.
func newSessionAuthService(st *store.Store, cfg *config.YAMLConfig, logger *slog.Logger) (*service.AuthService, error) {
	key, err := config.DecodeSecretKey(cfg.Auth.SecretKey)
	if err != nil {
		return nil, err
	}
	tokens, err := security.NewTokenService(key)
	if err != nil {
		return nil, fmt.Errorf("init token service: %w", err)
	}
	ttl := parseDuration(cfg.Auth.SessionTTL, service.DefaultSessionTTL)
	return service.NewAuthService(st, tokens, ttl, logger), nil
}

// newLogger builds the process logger from the logging section. verbose
// forces debug level.
func newLogger(w io.Writer, cfg config.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// parseDuration parses s, returning fallback when s is empty or invalid.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
