package cli

import (
	"github.com/anilpraneeth/time-series-rollup/internal/config"

	"github.com/spf13/cobra"
)

func newPerformRollupCmd(flags *config.Config) *cobra.Command {
	var sourceTable string
	cmd := &cobra.Command{
		Use:   "perform-rollup",
		Short: "run one pass of PerformRollup over eligible configs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(*flags)
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			a.setupMetrics()
			defer a.flushMetrics()

			return a.orchestrator.PerformRollup(cmd.Context(), sourceTable)
		},
	}
	cmd.Flags().StringVar(&sourceTable, "source-table", "", "restrict to one source table (default: all active configs)")
	return cmd
}

func newHandleRetriesCmd(flags *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "handle-retries",
		Short: "sweep for due, backed-off configs and re-run them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(*flags)
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			a.setupMetrics()
			defer a.flushMetrics()

			return a.orchestrator.HandleRetries(cmd.Context())
		},
	}
}
