package commands

import (
	"fmt"

	"github.com/bankctl-dev/bankctl/internal/cli/services"
	"github.com/spf13/cobra"
)

// NewTwoFactorCmd creates the 2fa command group
func NewTwoFactorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "2fa",
		Short: "Manage two-factor authentication",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether 2FA is enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			s, err := rt.Services.TwoFactor.Status(cmd.Context())
			if err != nil {
				return rt.apiError(cmd.Context(), "failed to load 2FA status", err)
			}

			out := cmd.OutOrStdout()
			if s.TwoFactorEnabled {
				fmt.Fprintln(out, "Two-factor authentication: enabled")
				return nil
			}
			fmt.Fprintln(out, "Two-factor authentication: disabled")
			if s.Secret != "" {
				fmt.Fprintf(out, "\nAdd this secret to your authenticator app:\n  %s\n", s.Secret)
			}
			if s.QRCodeURL != "" {
				fmt.Fprintf(out, "or scan:\n  %s\n", s.QRCodeURL)
			}
			fmt.Fprintln(out, "\nThen run 'bankctl 2fa enable' with the code it shows.")
			return nil
		},
	}

	cmd.AddCommand(
		BindRoute(status, "/security"),
		newTwoFactorCodeCmd("enable", "Turn on 2FA with a code from your authenticator"),
		newTwoFactorCodeCmd("disable", "Turn off 2FA"),
	)
	return cmd
}

func newTwoFactorCodeCmd(op, short string) *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   op,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			if code == "" {
				if code, err = rt.Prompter.Secret("2FA code"); err != nil {
					return err
				}
			}

			call := rt.Services.TwoFactor.Enable
			if op == "disable" {
				call = rt.Services.TwoFactor.Disable
			}

			s, err := call(cmd.Context(), code)
			if err != nil {
				return rt.apiError(cmd.Context(), "failed to "+op+" 2FA", err)
			}
			msg := s.Message
			if msg == "" {
				msg = fmt.Sprintf("2FA %sd", op)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", msg)
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Code from your authenticator app (will prompt if not provided)")

	return BindRoute(cmd, "/security")
}

// NewChangePasswordCmd creates the change-password command
func NewChangePasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "change-password",
		Short: "Change your password",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}

			var change services.PasswordChange
			if change.CurrentPassword, err = rt.Prompter.Secret("Current password"); err != nil {
				return err
			}
			if change.NewPassword, err = rt.Prompter.Secret("New password"); err != nil {
				return err
			}
			confirm, err := rt.Prompter.Secret("Confirm new password")
			if err != nil {
				return err
			}
			if confirm != change.NewPassword {
				return fmt.Errorf("passwords do not match")
			}

			msg, err := rt.Services.Users.ChangePassword(cmd.Context(), change)
			if err != nil {
				return rt.apiError(cmd.Context(), "failed to change password", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", msg.Message)
			return nil
		},
	}

	return BindRoute(cmd, "/security")
}
