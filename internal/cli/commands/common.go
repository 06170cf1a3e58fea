package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/bankctl-dev/bankctl/internal/cli/config"
	"github.com/bankctl-dev/bankctl/internal/cli/serverselect"
	"github.com/bankctl-dev/bankctl/internal/models"
)

// resolveAPI picks the API to talk to: --api-url, then bankctl.yaml (with
// server selection), then BANK_API_URL
func resolveAPI(opts *Options) (name, apiURL string, err error) {
	if opts.APIURL != "" {
		return opts.APIURL, opts.APIURL, nil
	}

	cfg, err := config.LoadFromCurrentDir()
	switch {
	case err == nil:
		server, err := serverselect.New(opts.Logger).Resolve(cfg, opts.ServerAlias)
		if err != nil {
			return "", "", err
		}
		return server.Alias, server.URL, nil
	case errors.Is(err, config.ErrNotFound):
		if opts.ServerAlias != "" {
			return "", "", fmt.Errorf("--server requires a %s: %w\nRun 'bankctl init <api-url>' to create one", config.ConfigFileName, err)
		}
		return opts.Env.API.URL, opts.Env.API.URL, nil
	default:
		return "", "", fmt.Errorf("failed to load config: %w\nRun 'bankctl init <api-url>' to create a configuration file", err)
	}
}

// newTable returns a tabwriter with a header and underline row
func newTable(out io.Writer, columns ...string) *tabwriter.Writer {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(columns, "\t"))

	underline := make([]string, len(columns))
	for i, c := range columns {
		underline[i] = strings.Repeat("─", len([]rune(c)))
	}
	fmt.Fprintln(w, strings.Join(underline, "\t"))
	return w
}

func formatMoney(amount models.Amount, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%.2f %s", amount.Float64(), currency)
}

func formatTime(t models.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
