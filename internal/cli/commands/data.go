package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// NewDataCmd creates the data command group
func NewDataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Inspect the API's demo data",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show record counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := RuntimeFrom(cmd)
			if err != nil {
				return err
			}
			s, err := rt.Services.Data.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load stats: %w", err)
			}

			names := make([]string, 0, len(s.Stats))
			for name := range s.Stats {
				names = append(names, name)
			}
			sort.Strings(names)

			w := newTable(cmd.OutOrStdout(), "TABLE", "ROWS")
			for _, name := range names {
				fmt.Fprintf(w, "%s\t%d\n", name, s.Stats[name])
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(NeedsSession(stats))
	return cmd
}
