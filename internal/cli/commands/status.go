package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bankctl-dev/bankctl/internal/cli/auth"
	"github.com/bankctl-dev/bankctl/internal/cli/config"
	"github.com/bankctl-dev/bankctl/internal/cli/refresh"
	"github.com/spf13/cobra"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}

			user := rt.Session.User()
			if user == nil {
				return auth.ErrNotAuthenticated
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Username: %s\n", user.Username)
			if user.Name != "" {
				fmt.Fprintf(out, "Name:     %s\n", user.Name)
			}
			fmt.Fprintf(out, "Email:    %s\n", user.Email)
			if user.IsAdmin {
				fmt.Fprintln(out, "Role:     Admin")
			}
			fmt.Fprintf(out, "2FA:      %s\n", enabled(user.TwoFactorEnabled))
			return nil
		},
	}

	return BindRoute(cmd, "/profile")
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the selected API and session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			return runStatus(cmd.OutOrStdout(), rt, time.Now())
		},
	}

	return NeedsSession(cmd)
}

func runStatus(out io.Writer, rt *Runtime, now time.Time) error {
	snap := rt.Session.Snapshot()

	fmt.Fprintf(out, "Server:  %s (%s)\n", rt.ServerName, rt.APIURL)
	if !snap.IsAuthenticated() {
		fmt.Fprintln(out, "Session: logged out")
		return nil
	}

	if snap.User != nil {
		fmt.Fprintf(out, "Session: logged in as %s\n", snap.User.Username)
	} else {
		fmt.Fprintln(out, "Session: logged in")
	}

	// Read from the token for display only; the API decides validity
	if exp, ok := auth.PeekExpiry(snap.Token); ok {
		if exp.After(now) {
			fmt.Fprintf(out, "Token:   expires in %s (%s)\n", exp.Sub(now).Round(time.Second), exp.Local().Format(time.RFC3339))
		} else {
			fmt.Fprintf(out, "Token:   expired %s ago\n", now.Sub(exp).Round(time.Second))
		}
	}
	return nil
}

// NewRefreshCmd creates the refresh command
func NewRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the stored token for a fresh one",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			if !rt.Session.IsAuthenticated() {
				return auth.ErrNotAuthenticated
			}
			if !rt.Session.RefreshToken(cmd.Context()) {
				return fmt.Errorf("%w: token refresh failed, you have been logged out", auth.ErrNotAuthenticated)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Token refreshed")
			return nil
		},
	}

	return NeedsSession(cmd)
}

// NewKeepaliveCmd creates the keepalive command
func NewKeepaliveCmd() *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "keepalive",
		Short: "Refresh the token on a schedule until interrupted",
		Long: `Refresh the token on a schedule until interrupted.

The schedule is a cron expression or descriptor such as "@every 10m".
It defaults to keepalive.schedule in bankctl.yaml, then "@every 10m".
Keepalive stops when a refresh fails and the session is logged out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			return runKeepalive(cmd.Context(), cmd.OutOrStdout(), rt, keepaliveSchedule(schedule))
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "Refresh schedule (cron expression or @every <duration>)")

	return NeedsSession(cmd)
}

func keepaliveSchedule(flag string) string {
	if flag != "" {
		return flag
	}
	if cfg, err := config.LoadFromCurrentDir(); err == nil && cfg.Keepalive.Schedule != "" {
		return cfg.Keepalive.Schedule
	}
	return refresh.DefaultSchedule
}

func runKeepalive(ctx context.Context, out io.Writer, rt *Runtime, expr string) error {
	if !rt.Session.IsAuthenticated() {
		return auth.ErrNotAuthenticated
	}

	schedule, err := refresh.ParseSchedule(expr)
	if err != nil {
		return err
	}

	scheduler := refresh.New(rt.Session, schedule, rt.Logger)
	scheduler.OnRefresh = func(at time.Time) {
		fmt.Fprintf(out, "✓ Token refreshed at %s\n", at.Local().Format(time.TimeOnly))
	}

	fmt.Fprintf(out, "Keeping session on %s alive (%s), next refresh at %s\n",
		rt.ServerName, expr, scheduler.NextRun(time.Now()).Local().Format(time.TimeOnly))

	stats, err := scheduler.Run(ctx)
	if err != nil {
		return fmt.Errorf("keepalive stopped after %d refreshes: %w", stats.Refreshes, err)
	}

	fmt.Fprintf(out, "Keepalive stopped after %d refreshes\n", stats.Refreshes)
	return nil
}
