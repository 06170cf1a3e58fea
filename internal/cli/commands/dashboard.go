package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/bankctl-dev/bankctl/internal/cli/auth"
	"github.com/bankctl-dev/bankctl/internal/cli/client"
	"github.com/bankctl-dev/bankctl/internal/cli/router"
	"github.com/spf13/cobra"
)

const dashboardRecent = 5

// NewDashboardCmd creates the dashboard command
func NewDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show balance and recent activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			return renderDashboard(cmd.Context(), cmd.OutOrStdout(), rt)
		},
	}

	return BindRoute(cmd, router.PathDashboard)
}

// apiError wraps a failed API call. A rejected token is confirmed with one
// profile fetch, which logs the session out if the API agrees.
func (rt *Runtime) apiError(ctx context.Context, action string, err error) error {
	if client.IsUnauthorized(err) && rt.Session.IsAuthenticated() {
		if _, verr := rt.Session.CurrentUser(ctx); verr != nil {
			return fmt.Errorf("%s: session expired: %w", action, auth.ErrNotAuthenticated)
		}
	}
	return fmt.Errorf("%s: %w", action, err)
}

func renderDashboard(ctx context.Context, out io.Writer, rt *Runtime) error {
	balance, err := rt.Services.Wallets.Balance(ctx)
	if err != nil {
		return rt.apiError(ctx, "failed to load balance", err)
	}

	if user := rt.Session.User(); user != nil {
		fmt.Fprintf(out, "Welcome back, %s\n\n", displayName(user))
	}
	fmt.Fprintf(out, "Balance:      %s\n", formatMoney(balance.Balance, balance.Currency))
	fmt.Fprintf(out, "Transactions: %d\n", balance.TransactionCount)

	txs, err := rt.Services.Transactions.List(ctx, dashboardRecent)
	if err != nil {
		return rt.apiError(ctx, "failed to load transactions", err)
	}
	if len(txs) == 0 {
		return nil
	}

	fmt.Fprintln(out, "\nRecent activity:")
	return printTransactions(out, txs)
}

// RenderDashboard prints the dashboard for the command's output
func RenderDashboard(cmd *cobra.Command, rt *Runtime) error {
	return renderDashboard(cmd.Context(), cmd.OutOrStdout(), rt)
}
