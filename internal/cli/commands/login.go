package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bankctl-dev/bankctl/internal/cli/router"
	"github.com/bankctl-dev/bankctl/internal/cli/userconfig"
	"github.com/bankctl-dev/bankctl/internal/models"
	"github.com/spf13/cobra"
)

type loginOptions struct {
	username string
	password string
	code     string
}

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var opts loginOptions

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the banking API",
		Long: `Authenticate with the banking API.

Accounts with two-factor authentication enabled are asked for a one-time
code after the password is accepted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			return runLogin(cmd.Context(), cmd.OutOrStdout(), rt, opts)
		},
	}

	cmd.Flags().StringVar(&opts.username, "username", "", "Username (or set BANK_USERNAME)")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password (or set BANK_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&opts.code, "code", "", "2FA code (will prompt if required and not provided)")

	return BindRoute(cmd, router.PathLogin)
}

func runLogin(ctx context.Context, out io.Writer, rt *Runtime, opts loginOptions) error {
	// Check for environment variables (useful for CI/CD)
	if opts.username == "" {
		opts.username = os.Getenv("BANK_USERNAME")
	}
	if opts.password == "" {
		opts.password = os.Getenv("BANK_PASSWORD")
	}

	var err error
	if opts.username == "" {
		if opts.username, err = promptUsername(rt); err != nil {
			return fmt.Errorf("username is required (use --username flag or BANK_USERNAME env var): %w", err)
		}
	}
	if opts.password == "" {
		if opts.password, err = rt.Prompter.Secret("Password"); err != nil {
			return fmt.Errorf("password is required (use --password flag or BANK_PASSWORD env var): %w", err)
		}
	}

	fmt.Fprintf(out, "Logging in to %s...\n", rt.ServerName)

	result, err := rt.Session.Login(ctx, models.Credentials{
		Username: opts.username,
		Password: opts.password,
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	from := router.MustResolve(router.PathLogin)

	if result.Pending != nil {
		fmt.Fprintln(out, result.Pending.Message)

		code := opts.code
		if code == "" {
			if code, err = rt.Prompter.Secret("2FA code"); err != nil {
				return fmt.Errorf("2FA code is required (use --code flag): %w", err)
			}
		}

		result, err = rt.Session.Login2FA(ctx, result.Pending.UserID, code)
		if err != nil {
			return fmt.Errorf("2FA verification failed: %w", err)
		}
		from = router.MustResolve(router.PathTwoFactor)
	}

	if err := userconfig.RememberLogin(rt.APIURL, result.User.Username, time.Now()); err != nil {
		rt.Logger.Warn().Err(err).Msg("Failed to remember login")
	}

	fmt.Fprintln(out, "✓ Login successful!")
	fmt.Fprintf(out, "  User: %s (%s)\n", displayName(result.User), result.User.Email)
	if result.User.IsAdmin {
		fmt.Fprintln(out, "  Role: Admin")
	}

	// Land on the dashboard the way the web client does after login
	if _, err := rt.Navigate(ctx, router.MustResolve(router.PathDashboard), from); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return renderDashboard(ctx, out, rt)
}

// promptUsername offers the last account used against this API as the default
func promptUsername(rt *Runtime) (string, error) {
	last, ok := userconfig.LastAccount(rt.APIURL)
	if !ok {
		return rt.Prompter.Line("Username")
	}

	username, err := rt.Prompter.Line(fmt.Sprintf("Username [%s]", last.Username))
	if err != nil {
		return "", err
	}
	if username == "" {
		return last.Username, nil
	}
	return username, nil
}

func displayName(u *models.User) string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			return runLogout(cmd.Context(), cmd.OutOrStdout(), rt)
		},
	}

	return NeedsSession(cmd)
}

func runLogout(ctx context.Context, out io.Writer, rt *Runtime) error {
	if !rt.Session.IsAuthenticated() {
		fmt.Fprintln(out, "Not logged in.")
		return nil
	}

	rt.Session.Logout(ctx)
	fmt.Fprintf(out, "✓ Logged out of %s\n", rt.ServerName)
	return nil
}

// NewRegisterCmd creates the register command
func NewRegisterCmd() *cobra.Command {
	var reg models.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			return runRegister(cmd.Context(), cmd.OutOrStdout(), rt, reg)
		},
	}

	cmd.Flags().StringVar(&reg.Username, "username", "", "Username")
	cmd.Flags().StringVar(&reg.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&reg.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&reg.Password, "password", "", "Password (will prompt if not provided)")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")

	return BindRoute(cmd, "/auth/register")
}

func runRegister(ctx context.Context, out io.Writer, rt *Runtime, reg models.Registration) error {
	if reg.Password == "" {
		password, err := rt.Prompter.Secret("Password")
		if err != nil {
			return err
		}
		confirm, err := rt.Prompter.Secret("Confirm password")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}
		reg.Password = password
	}

	user, err := rt.Session.Register(ctx, reg)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Fprintf(out, "✓ Account created for %s (%s)\n", user.Username, user.Email)
	fmt.Fprintln(out, "Run 'bankctl login' to sign in")
	return nil
}

// NewPasswordResetCmd creates the password-reset command group
func NewPasswordResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password-reset",
		Short: "Reset a forgotten password",
	}

	var email string
	request := &cobra.Command{
		Use:   "request",
		Short: "Ask for a password reset link",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			msg, err := rt.Session.RequestPasswordReset(cmd.Context(), email)
			if err != nil {
				return fmt.Errorf("password reset request failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", msg.Message)
			return nil
		},
	}
	request.Flags().StringVar(&email, "email", "", "Account email address")
	request.MarkFlagRequired("email")

	var resetToken, newPassword string
	confirm := &cobra.Command{
		Use:   "confirm",
		Short: "Set a new password with the token from the reset link",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			if newPassword == "" {
				if newPassword, err = rt.Prompter.Secret("New password"); err != nil {
					return err
				}
			}
			msg, err := rt.Session.ResetPassword(cmd.Context(), resetToken, newPassword)
			if err != nil {
				return fmt.Errorf("password reset failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", msg.Message)
			return nil
		},
	}
	confirm.Flags().StringVar(&resetToken, "token", "", "Reset token")
	confirm.Flags().StringVar(&newPassword, "password", "", "New password (will prompt if not provided)")
	confirm.MarkFlagRequired("token")

	cmd.AddCommand(
		BindRoute(request, "/auth/password-reset"),
		BindRoute(confirm, "/auth/password-reset"),
	)
	return cmd
}
