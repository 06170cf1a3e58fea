package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bankctl-dev/bankctl/internal/cli/auth"
	"github.com/bankctl-dev/bankctl/internal/cli/commands"
	"github.com/bankctl-dev/bankctl/internal/cli/router"
	appconfig "github.com/bankctl-dev/bankctl/internal/config"
	"github.com/bankctl-dev/bankctl/internal/logger"
	"github.com/spf13/cobra"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree. Fields left empty in opts are filled
// from the environment before the first command runs.
func NewRootCmd(version string, opts *commands.Options) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "bankctl",
		Short: "bankctl - command-line client for the banking API",
		Long: `bankctl - command-line client for the banking API.

Check balances, move money, follow support tickets and manage your
account's security from the terminal. Sessions survive between runs:
the access token is kept in the OS keychain.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Env == nil {
				env, err := appconfig.Load()
				if err != nil {
					return err
				}
				opts.Env = env
			}

			level := opts.Env.Logging.Level
			if verbose {
				level = "debug"
			}
			logger.Init(level, opts.Env.Logging.Format)
			opts.Logger = logger.Logger

			if opts.Tokens == nil {
				opts.Tokens = auth.OpenKeyring
			}
			if opts.Prompter == nil {
				opts.Prompter = commands.NewTerminalPrompter()
			}

			return commands.Prepare(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := commands.RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			if rt.Route.Path == router.PathDashboard {
				return commands.RenderDashboard(cmd, rt)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bankctl %s, connected to %s\n\n", version, rt.ServerName)
			fmt.Fprintln(cmd.OutOrStdout(), "Run 'bankctl login' to sign in, 'bankctl register' to open an account,")
			fmt.Fprintln(cmd.OutOrStdout(), "or 'bankctl blog ls' to read the latest posts.")
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.ServerAlias, "server", "", "Server alias from bankctl.yaml")
	rootCmd.PersistentFlags().StringVar(&opts.APIURL, "api-url", "", "API base URL, overrides bankctl.yaml and BANK_API_URL")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log API requests to stderr")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bankctl version %s\n", version)
		},
	})

	rootCmd.AddCommand(
		commands.NewInitCmd(),
		commands.NewSelectServerCmd(),
		commands.NewLoginCmd(),
		commands.NewLogoutCmd(),
		commands.NewRegisterCmd(),
		commands.NewPasswordResetCmd(),
		commands.NewWhoamiCmd(),
		commands.NewStatusCmd(),
		commands.NewRefreshCmd(),
		commands.NewKeepaliveCmd(),
		commands.NewDashboardCmd(),
		commands.NewWalletCmd(),
		commands.NewTransactionsCmd(),
		commands.NewSupportCmd(),
		commands.NewLoginHistoryCmd(),
		commands.NewTwoFactorCmd(),
		commands.NewChangePasswordCmd(),
		commands.NewAdminCmd(),
		commands.NewBlogCmd(),
		commands.NewDataCmd(),
	)

	return commands.BindRoute(rootCmd, router.PathLanding)
}

// Execute runs the root command. Interrupts cancel the command's context so
// long-running commands like keepalive stop cleanly.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd(version, &commands.Options{})
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
