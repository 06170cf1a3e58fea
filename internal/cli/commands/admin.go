package commands

import (
	"fmt"

	"github.com/bankctl-dev/bankctl/internal/cli/services"
	"github.com/spf13/cobra"
)

// NewAdminCmd creates the admin command group
func NewAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administration (admins only)",
	}

	dashboard := &cobra.Command{
		Use:   "dashboard",
		Short: "Show system totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			d, err := rt.Services.Admin.Dashboard(cmd.Context())
			if err != nil {
				return rt.apiError(cmd.Context(), "failed to load admin dashboard", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Users:         %d\n", d.TotalUsers)
			fmt.Fprintf(out, "Wallets:       %d\n", d.TotalWallets)
			fmt.Fprintf(out, "Transactions:  %d\n", d.TotalTransactions)
			fmt.Fprintf(out, "Total balance: %s\n", formatMoney(d.TotalBalance, ""))
			fmt.Fprintf(out, "Open tickets:  %d\n", d.OpenTickets)
			return nil
		},
	}

	users := &cobra.Command{
		Use:   "users",
		Short: "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			list, err := rt.Services.Admin.Users(cmd.Context())
			if err != nil {
				return rt.apiError(cmd.Context(), "failed to list users", err)
			}
			w := newTable(cmd.OutOrStdout(), "USERNAME", "EMAIL", "ADMIN", "2FA", "ACTIVE", "CREATED AT")
			for _, u := range list {
				fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%t\t%s\n", u.Username, u.Email, u.IsAdmin, u.TwoFactorEnabled, u.IsActive, formatTime(u.CreatedAt))
			}
			return w.Flush()
		},
	}

	var limit int
	transactions := &cobra.Command{
		Use:   "transactions",
		Short: "List transactions across all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			txs, err := rt.Services.Admin.Transactions(cmd.Context(), limit)
			if err != nil {
				return rt.apiError(cmd.Context(), "failed to list transactions", err)
			}
			if len(txs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transactions.")
				return nil
			}
			return printTransactions(cmd.OutOrStdout(), txs)
		},
	}
	transactions.Flags().IntVar(&limit, "limit", services.DefaultAdminTransactionLimit, "Maximum number of transactions")

	for _, sub := range []*cobra.Command{dashboard, users, transactions} {
		cmd.AddCommand(BindRoute(sub, "/admin"))
	}
	return cmd
}
