package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keepnetics/waterzone/internal/report"
	"github.com/keepnetics/waterzone/internal/store"
)

// newLookupCmd creates the 'lookup' subcommand: the read side that
// summarizes stored measurements for one postcode as JSON.
func newLookupCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "lookup <postcode>",
		Short: "Print the water quality report for a postcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush
			if dbPath != "" {
				cfg.DB.Path = dbPath
			}

			provider, err := store.NewSQLiteProvider(cmd.Context(), cfg.DB.Path)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer provider.Close()

			postcode := store.NormalizePostcode(args[0])
			rep, err := report.Build(cmd.Context(), provider, postcode)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no zone known for postcode %s", postcode)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}

	cmd.Flags().StringVarP(&dbPath, "db", "d", "", "SQLite database path (overrides config)")

	return cmd
}
