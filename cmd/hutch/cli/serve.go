package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Jonathanferreras/watch-the-hutch/internal/config"
	"github.com/Jonathanferreras/watch-the-hutch/internal/handler"
	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
	"github.com/Jonathanferreras/watch-the-hutch/internal/server"
	"github.com/Jonathanferreras/watch-the-hutch/internal/service"
)

const banner = `
 _   _ _   _ _____ ____ _   _
| | | | | | |_   _/ ___| | | |
| |_| | | | | | || |   | |_| |
|  _  | |_| | | || |___|  _  |
|_| |_|\___/  |_| \____|_| |_|
`

func newServeCmd() *cobra.Command {
	var (
		noUI    bool
		noMCP   bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the bridge state API server",
		Long: `Start the HTTP server that ingests bridge events, serves the current state,
the admin API, the status and admin pages, and the WHEP camera proxy.

ADMIN_SECRET_KEY must be set; the server refuses to start without it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), noUI, noMCP, verbose)
		},
	}

	cmd.Flags().IntP("port", "p", 8000, "HTTP listen port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().Bool("cookie-secure", false, "Mark the session cookie Secure (requires HTTPS)")
	cmd.Flags().BoolVar(&noUI, "no-ui", false, "Disable the status and admin pages")
	cmd.Flags().BoolVar(&noMCP, "no-mcp", false, "Disable the MCP endpoint at /mcp")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("auth.cookie_secure", cmd.Flags().Lookup("cookie-secure"))

	return cmd
}

func runServe(ctx context.Context, noUI, noMCP, verbose bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.Logging, verbose)

	// Fail before touching the database if sessions cannot be signed.
	if _, err := config.DecodeSecretKey(cfg.Auth.SecretKey); err != nil {
		return fmt.Errorf("%w: set ADMIN_SECRET_KEY (64 hex characters recommended)", err)
	}

	fmt.Print(banner)
	fmt.Println()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info("store initialized", "dialect", st.Dialect(), "url", config.MaskURL(cfg.Database.URL))

	authSvc, err := newSessionAuthService(st, cfg, logger)
	if err != nil {
		return err
	}
	events := newEventService(st, cfg, logger)

	if err := seedAdminFromEnv(ctx, authSvc, logger); err != nil {
		return err
	}
	if admins, err := authSvc.ListAdmins(ctx); err != nil {
		logger.Warn("failed to check for admin", "error", err)
	} else if len(admins) == 0 {
		logger.Warn("no admin account found - run: hutch admin create")
	}

	upstream := handler.NormalizeUpstreamURL(cfg.WebRTC.UpstreamURL)
	if upstream == "" {
		logger.Warn("MEDIAMTX_WEBRTC_URL is not set; the camera proxy will answer 503")
	}

	srvCfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: parseDuration(cfg.Server.ShutdownTimeout, server.DefaultConfig().ShutdownTimeout),
		CORSOrigins:     cfg.Server.CORS.Origins,
		EnableUI:        cfg.Server.EnableUI && !noUI,
		EnableMCP:       cfg.MCP.Enabled && !noMCP,
		CookieSecure:    cfg.Auth.CookieSecure,
		LoginRateLimit:  cfg.Server.RateLimit.Login,
		EventRateLimit:  cfg.Server.RateLimit.Events,
		WHEPUpstream:    upstream,
		WHEPTimeout:     parseDuration(cfg.WebRTC.Timeout, server.DefaultConfig().WHEPTimeout),
		Version:         versionString(),

		TrustProxyHeaders: cfg.Server.TrustProxy,
	}
	srv := server.New(srvCfg, st, authSvc, events, logger)

	host := srvCfg.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	fmt.Printf("→ Watch the Hutch %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", host, srvCfg.Port)
	if srvCfg.EnableUI {
		fmt.Printf("→ Status page: http://%s:%d/\n", host, srvCfg.Port)
		fmt.Printf("→ Admin page:  http://%s:%d/admin\n", host, srvCfg.Port)
	}
	fmt.Printf("→ OpenAPI:     http://%s:%d/api/v1/openapi.json\n", host, srvCfg.Port)
	fmt.Printf("→ Health:      http://%s:%d/healthz\n", host, srvCfg.Port)
	if srvCfg.EnableMCP {
		fmt.Printf("→ MCP:         http://%s:%d/mcp\n", host, srvCfg.Port)
	}
	fmt.Println()

	return srv.ListenAndServe()
}

// seedAdminFromEnv creates the ADMIN_USERNAME account on startup when both
// ADMIN_USERNAME and ADMIN_PASSWORD are set. An existing account is left
// alone unless FORCE_RECREATE_ADMIN is true.
func seedAdminFromEnv(ctx context.Context, authSvc *service.AuthService, logger *slog.Logger) error {
	username := viper.GetString("admin.username")
	password := viper.GetString("admin.password")
	if username == "" || password == "" {
		return nil
	}

	role, err := seedRole(viper.GetString("admin.role"))
	if err != nil {
		return err
	}

	_, created, err := authSvc.Bootstrap(ctx, model.AdminCreate{
		Username: username,
		Password: password,
		Role:     role,
	}, viper.GetBool("admin.force"))
	if err != nil {
		return fmt.Errorf("seed admin %q: %w", username, err)
	}
	if created {
		logger.Info("seeded admin from environment", "username", username, "role", role)
	}
	return nil
}

// seedRole parses ADMIN_ROLE, defaulting to ADMIN for seeded accounts.
func seedRole(raw string) (model.Role, error) {
	if raw == "" {
		return model.RoleAdmin, nil
	}
	role, err := model.ParseRole(raw)
	if err != nil {
		return "", fmt.Errorf("ADMIN_ROLE: %w", err)
	}
	return role, nil
}
