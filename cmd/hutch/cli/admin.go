package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
	"github.com/Jonathanferreras/watch-the-hutch/internal/service"
	"github.com/Jonathanferreras/watch-the-hutch/internal/store"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin users",
		Long:  "Create, list, verify and enable or disable the accounts that can sign in to the admin page.",
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminListCmd())
	cmd.AddCommand(newAdminVerifyCmd())
	cmd.AddCommand(newAdminSetActiveCmd("activate", true))
	cmd.AddCommand(newAdminSetActiveCmd("deactivate", false))

	return cmd
}

// withAdminStore opens the store and an operator AuthService for the
// duration of fn.
func withAdminStore(ctx context.Context, fn func(authSvc *service.AuthService) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return fn(newOperatorAuthService(st, logger))
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		username string
		password string
		role     string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new admin user",
		Long: `Create an admin account. Flags fall back to ADMIN_USERNAME, ADMIN_PASSWORD,
ADMIN_ROLE and FORCE_RECREATE_ADMIN. The password is prompted for when neither
is given.`,
		Example: `  hutch admin create --username wth_admin --role ADMIN
  ADMIN_USERNAME=wth_admin ADMIN_PASSWORD=secret hutch admin create`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				username = viper.GetString("admin.username")
			}
			if password == "" {
				password = viper.GetString("admin.password")
			}
			if role == "" {
				role = viper.GetString("admin.role")
			}
			if !cmd.Flags().Changed("force") {
				force = viper.GetBool("admin.force")
			}
			return runAdminCreate(cmd.Context(), cmd.OutOrStdout(), username, password, role, force)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Admin username (3-64 characters)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")
	cmd.Flags().StringVar(&role, "role", "", "Role: VIEWER, EDITOR or ADMIN (default ADMIN)")
	cmd.Flags().BoolVar(&force, "force", false, "Delete and recreate the account if it already exists")

	return cmd
}

func runAdminCreate(ctx context.Context, out io.Writer, username, password, roleName string, force bool) error {
	if username == "" {
		return fmt.Errorf("--username is required (or set ADMIN_USERNAME)")
	}
	role, err := seedRole(roleName)
	if err != nil {
		return err
	}

	if password == "" {
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}

	return withAdminStore(ctx, func(authSvc *service.AuthService) error {
		admin, created, err := authSvc.Bootstrap(ctx, model.AdminCreate{
			Username: username,
			Password: password,
			Role:     role,
		}, force)
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		if !created {
			fmt.Fprintf(out, "Admin user %q already exists (id %d, role %s)\n", admin.Username, admin.ID, admin.Role)
			fmt.Fprintln(out, "  Use --force or FORCE_RECREATE_ADMIN=true to recreate it.")
			return nil
		}
		fmt.Fprintf(out, "Created admin user %q (id %d, role %s)\n", admin.Username, admin.ID, admin.Role)
		return nil
	})
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--password is required when stdin is not a terminal")
	}

	fmt.Print("Password: ")
	pwBytes, err := term.ReadPassword(fd)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(fd)
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Println()

	if string(pwBytes) != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pwBytes), nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all admin users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdminStore(cmd.Context(), func(authSvc *service.AuthService) error {
				admins, err := authSvc.ListAdmins(cmd.Context())
				if err != nil {
					return err
				}
				return printAdmins(cmd.OutOrStdout(), admins, jsonOutput)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func printAdmins(out io.Writer, admins []model.Admin, jsonOutput bool) error {
	if jsonOutput {
		return printJSON(out, admins)
	}

	if len(admins) == 0 {
		fmt.Fprintln(out, "No admin users configured. Use 'hutch admin create' to create one.")
		return nil
	}

	fmt.Fprintf(out, "%-6s %-24s %-8s %-8s %-20s\n", "ID", "USERNAME", "ROLE", "ACTIVE", "LAST LOGIN")
	fmt.Fprintf(out, "%-6s %-24s %-8s %-8s %-20s\n", "--", "--------", "----", "------", "----------")
	for _, a := range admins {
		active := "yes"
		if !a.IsActive {
			active = "no"
		}
		lastLogin := "never"
		if a.LastLoginAt != nil {
			lastLogin = a.LastLoginAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(out, "%-6d %-24s %-8s %-8s %-20s\n", a.ID, a.Username, a.Role, active, lastLogin)
	}
	return nil
}

// ---------- admin verify ----------

func newAdminVerifyCmd() *cobra.Command {
	var (
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check whether an admin could sign in",
		Long: `Look up an admin account and test a password against it, reporting which
check fails. Falls back to ADMIN_USERNAME and ADMIN_PASSWORD.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				username = viper.GetString("admin.username")
			}
			if password == "" {
				password = viper.GetString("admin.password")
			}
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}
			return withAdminStore(cmd.Context(), func(authSvc *service.AuthService) error {
				check, err := authSvc.VerifyCredentials(cmd.Context(), username, password)
				if err != nil {
					return err
				}
				return printCredentialCheck(cmd.OutOrStdout(), username, check)
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Admin username")
	cmd.Flags().StringVar(&password, "password", "", "Password to test")

	return cmd
}

// errLoginWouldFail makes `hutch admin verify` exit non-zero.
var errLoginWouldFail = errors.New("login would fail")

func printCredentialCheck(out io.Writer, username string, check *service.CredentialCheck) error {
	if !check.Found {
		fmt.Fprintf(out, "Admin user %q does not exist.\n", username)
		fmt.Fprintln(out, "  Create it with: hutch admin create --username "+username)
		return errLoginWouldFail
	}

	a := check.Admin
	fmt.Fprintln(out, "Admin user found:")
	fmt.Fprintf(out, "  ID:       %d\n", a.ID)
	fmt.Fprintf(out, "  Username: %s\n", a.Username)
	fmt.Fprintf(out, "  Role:     %s\n", a.Role)
	fmt.Fprintf(out, "  Active:   %t\n", a.IsActive)
	fmt.Fprintf(out, "  Created:  %s\n", a.CreatedAt.UTC().Format("2006-01-02 15:04:05"))

	if check.PasswordValid {
		fmt.Fprintln(out, "Password:   matches")
	} else {
		fmt.Fprintln(out, "Password:   does not match the stored hash; recreate the account with --force")
	}

	if !check.CanLogin {
		if check.PasswordValid && !a.IsActive {
			fmt.Fprintln(out, "Login:      blocked, account is inactive (hutch admin activate "+a.Username+")")
		} else {
			fmt.Fprintln(out, "Login:      would fail")
		}
		return errLoginWouldFail
	}
	fmt.Fprintln(out, "Login:      would succeed")
	return nil
}

// ---------- admin activate / deactivate ----------

func newAdminSetActiveCmd(use string, active bool) *cobra.Command {
	short := "Re-enable a disabled admin user"
	if !active {
		short = "Disable an admin user without deleting it"
	}

	return &cobra.Command{
		Use:   use + " <username>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdminStore(cmd.Context(), func(authSvc *service.AuthService) error {
				admin, err := authSvc.SetAdminActiveByUsername(cmd.Context(), args[0], active)
				if err != nil {
					if errors.Is(err, service.ErrAdminNotFound) || errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("admin user %q not found", args[0])
					}
					return err
				}
				state := "active"
				if !admin.IsActive {
					state = "inactive"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Admin user %q is now %s\n", admin.Username, state)
				return nil
			})
		},
	}
}
