package commands

import (
	"fmt"

	"github.com/bankctl-dev/bankctl/internal/cli/services"
	"github.com/bankctl-dev/bankctl/internal/models"
	"github.com/spf13/cobra"
)

// NewLoginHistoryCmd creates the login-history command
func NewLoginHistoryCmd() *cobra.Command {
	var limit int
	var recent bool

	cmd := &cobra.Command{
		Use:   "login-history",
		Short: "Show recent sign-in attempts on your account",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}

			var entries []models.LoginHistory
			if recent {
				entries, err = rt.Services.LoginHistory.Recent(cmd.Context(), limit)
			} else {
				entries, err = rt.Services.LoginHistory.List(cmd.Context(), limit)
			}
			if err != nil {
				return rt.apiError(cmd.Context(), "failed to load login history", err)
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No login history.")
				return nil
			}
			w := newTable(cmd.OutOrStdout(), "DATE", "STATUS", "IP ADDRESS", "USER AGENT")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", formatTime(e.CreatedAt), e.Status, e.IPAddress, e.UserAgent)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", services.DefaultLoginHistoryLimit, "Maximum number of entries")
	cmd.Flags().BoolVar(&recent, "recent", false, "Only the most recent attempts")

	return BindRoute(cmd, "/login-history")
}
