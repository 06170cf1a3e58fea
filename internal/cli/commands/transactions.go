package commands

import (
	"fmt"
	"io"

	"github.com/bankctl-dev/bankctl/internal/cli/services"
	"github.com/bankctl-dev/bankctl/internal/models"
	"github.com/spf13/cobra"
)

// NewTransactionsCmd creates the transactions command
func NewTransactionsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List recent transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			txs, err := rt.Services.Transactions.List(cmd.Context(), limit)
			if err != nil {
				return rt.apiError(cmd.Context(), "failed to list transactions", err)
			}
			if len(txs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transactions yet.")
				return nil
			}
			return printTransactions(cmd.OutOrStdout(), txs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", services.DefaultTransactionLimit, "Maximum number of transactions")

	return BindRoute(cmd, "/transactions")
}

func printTransactions(out io.Writer, txs []models.Transaction) error {
	w := newTable(out, "DATE", "TYPE", "AMOUNT", "STATUS", "DESCRIPTION")
	for _, tx := range txs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			formatTime(tx.CreatedAt),
			tx.Type,
			formatMoney(tx.Amount, tx.Currency),
			tx.Status,
			tx.Description,
		)
	}
	return w.Flush()
}
