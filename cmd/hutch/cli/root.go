package cli

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Jonathanferreras/watch-the-hutch/internal/config"
)

var (
	cfgFile    string
	appVersion string // set in Execute, reported by serve, openapi and mcp
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hutch",
		Short: "Track the Hutchinson River bridge and stream its camera",
		Long: `Watch the Hutch records bridge events reported by cameras, reconciles them into
a single current bridge state, and serves that state over a JSON API, a status
page and an admin page with a live WebRTC camera feed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./hutch.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the SQLite store (default: ~/.hutch)")
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "database URL (postgres://, mysql:// or sqlite://); overrides DATABASE_URL")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newAdminCmd())
	cmd.AddCommand(newEventsCmd())
	cmd.AddCommand(newStateCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newOpenAPICmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// envBindings maps config keys onto the environment variable names used by
// existing deployments. HUTCH_-prefixed names keep working through
// AutomaticEnv.
var envBindings = map[string][]string{
	"auth.secret_key":     {"ADMIN_SECRET_KEY"},
	"auth.cookie_secure":  {"COOKIE_SECURE"},
	"database.url":        {"DATABASE_URL"},
	"webrtc.upstream_url": {"MEDIAMTX_WEBRTC_URL"},
	"admin.username":      {"ADMIN_USERNAME"},
	"admin.password":      {"ADMIN_PASSWORD"},
	"admin.role":          {"ADMIN_ROLE"},
	"admin.force":         {"FORCE_RECREATE_ADMIN"},
	"postgres.user":       {"POSTGRES_USER"},
	"postgres.password":   {"POSTGRES_PASSWORD"},
	"postgres.host":       {"POSTGRES_HOST"},
	"postgres.port":       {"POSTGRES_PORT"},
	"postgres.db":         {"POSTGRES_DB"},
}

func initConfig() {
	viper.SetEnvPrefix("HUTCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for key, names := range envBindings {
		prefixed := "HUTCH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		viper.BindEnv(append([]string{key, prefixed}, names...)...)
	}

	// The file (or the built-in defaults) is loaded through the config
	// package so ${VAR} references are expanded, then handed to viper as the
	// base layer beneath the environment and flags.
	base := config.DefaultYAMLConfig()
	if path := findConfigFile(); path != "" {
		loaded, err := config.LoadYAMLConfig(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v; using defaults\n", err)
		} else {
			base = loaded
			viper.SetConfigFile(path)
		}
	}
	data, err := base.Marshal()
	if err != nil {
		return
	}
	viper.SetConfigType("yaml")
	viper.ReadConfig(bytes.NewReader(data))
}

// findConfigFile returns --config, or the first hutch.yaml found in the
// working directory or ~/.hutch.
func findConfigFile() string {
	if cfgFile != "" {
		return cfgFile
	}
	candidates := []string{"hutch.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, home+"/.hutch/hutch.yaml")
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
