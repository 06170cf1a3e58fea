package commands

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/bankctl-dev/bankctl/internal/cli/config"
	"github.com/spf13/cobra"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	var alias string

	cmd := &cobra.Command{
		Use:   "init <api-url>",
		Short: "Add a banking API to ./bankctl.yaml",
		Long: `Add a banking API to ./bankctl.yaml, creating the file if needed.

Examples:
  $ bankctl init http://localhost:8000/api
  $ bankctl init https://bank.staging.example.com/api --alias staging`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			currentDir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}
			return runInit(cmd.OutOrStdout(), currentDir, args[0], alias)
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "", "Server alias (defaults to local, server-2, ...)")

	return cmd
}

func runInit(out io.Writer, dir, apiURL, alias string) error {
	if u, err := url.Parse(apiURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API URL %q: expected e.g. https://bank.example.com/api", apiURL)
	}

	configPath := filepath.Join(dir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Fprintf(out, "Found existing %s\n", config.ConfigFileName)
	} else {
		cfg = &config.Config{}
		isNewConfig = true
	}

	for _, server := range cfg.Servers {
		if server.URL == apiURL {
			fmt.Fprintf(out, "Server %s already exists in %s (%s)\n", apiURL, config.ConfigFileName, server.Alias)
			return nil
		}
	}

	if alias == "" {
		if len(cfg.Servers) == 0 {
			alias = "local"
		} else {
			alias = fmt.Sprintf("server-%d", len(cfg.Servers)+1)
		}
	}
	if _, err := cfg.GetServerByAlias(alias); err == nil {
		return fmt.Errorf("alias '%s' is already used in %s", alias, config.ConfigFileName)
	}

	cfg.Servers = append(cfg.Servers, config.Server{
		Alias: alias,
		URL:   apiURL,
	})

	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	if isNewConfig {
		fmt.Fprintf(out, "✓ Created ./%s with server %s (%s)\n", config.ConfigFileName, apiURL, alias)
	} else {
		fmt.Fprintf(out, "✓ Added server %s (%s) to ./%s\n", apiURL, alias, config.ConfigFileName)
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Run 'bankctl register' to create an account, or")
	fmt.Fprintln(out, "  2. Run 'bankctl login' to authenticate")

	return nil
}
