package commands

import (
	"fmt"

	"github.com/bankctl-dev/bankctl/internal/models"
	"github.com/spf13/cobra"
)

// NewWalletCmd creates the wallet command group
func NewWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage your wallet",
	}

	balance := &cobra.Command{
		Use:   "balance",
		Short: "Show the wallet balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			b, err := rt.Services.Wallets.Balance(cmd.Context())
			if err != nil {
				return rt.apiError(cmd.Context(), "failed to load balance", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d transactions)\n", formatMoney(b.Balance, b.Currency), b.TransactionCount)
			return nil
		},
	}

	list := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List wallets",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			wallets, err := rt.Services.Wallets.List(cmd.Context())
			if err != nil {
				return rt.apiError(cmd.Context(), "failed to list wallets", err)
			}
			if len(wallets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No wallets found.")
				return nil
			}
			w := newTable(cmd.OutOrStdout(), "ID", "BALANCE", "CREATED AT")
			for _, wallet := range wallets {
				fmt.Fprintf(w, "%s\t%s\t%s\n", wallet.ID, formatMoney(wallet.Balance, wallet.Currency), formatTime(wallet.CreatedAt))
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(
		BindRoute(balance, "/wallet"),
		BindRoute(list, "/wallet"),
		newAmountCmd("deposit", "Add funds to the wallet"),
		newAmountCmd("withdraw", "Withdraw funds from the wallet"),
		newTransferCmd(),
	)
	return cmd
}

func newAmountCmd(op, short string) *cobra.Command {
	var req models.AmountRequest

	cmd := &cobra.Command{
		Use:   op,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			if req.Amount <= 0 {
				return fmt.Errorf("--amount must be positive")
			}

			call := rt.Services.Wallets.Deposit
			if op == "withdraw" {
				call = rt.Services.Wallets.Withdraw
			}

			result, err := call(cmd.Context(), req)
			if err != nil {
				return rt.apiError(cmd.Context(), op+" failed", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ %s\n", result.Message)
			if result.Wallet != nil {
				fmt.Fprintf(out, "  New balance: %s\n", formatMoney(result.Wallet.Balance, result.Wallet.Currency))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&req.Amount, "amount", 0, "Amount")
	cmd.Flags().StringVar(&req.Description, "description", "", "Description")
	cmd.MarkFlagRequired("amount")

	return BindRoute(cmd, "/wallet")
}

func newTransferCmd() *cobra.Command {
	var req models.TransferRequest

	cmd := &cobra.Command{
		Use:   "transfer <recipient>",
		Short: "Send money to another user by username or email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			if req.Amount <= 0 {
				return fmt.Errorf("--amount must be positive")
			}
			req.Recipient = args[0]

			result, err := rt.Services.Wallets.Transfer(cmd.Context(), req)
			if err != nil {
				return rt.apiError(cmd.Context(), "transfer failed", err)
			}

			out := cmd.OutOrStdout()
			currency := result.SenderWallet.Currency
			fmt.Fprintf(out, "✓ %s\n", result.Message)
			fmt.Fprintf(out, "  To:          %s (%s)\n", result.Recipient.Username, result.Recipient.Email)
			fmt.Fprintf(out, "  Amount:      %s\n", formatMoney(result.Transfer.Amount, currency))
			fmt.Fprintf(out, "  Fee:         %s\n", formatMoney(result.Transfer.TransferFee, currency))
			fmt.Fprintf(out, "  Total:       %s\n", formatMoney(result.Transfer.TotalAmount, currency))
			fmt.Fprintf(out, "  New balance: %s\n", formatMoney(result.SenderWallet.Balance, currency))
			return nil
		},
	}

	cmd.Flags().Float64Var(&req.Amount, "amount", 0, "Amount to send")
	cmd.Flags().StringVar(&req.Description, "description", "", "Description")
	cmd.MarkFlagRequired("amount")

	return BindRoute(cmd, "/transfer")
}
