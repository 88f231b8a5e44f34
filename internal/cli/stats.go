package cli

import (
	"fmt"

	"github.com/anilpraneeth/time-series-rollup/internal/config"

	"github.com/spf13/cobra"
)

func newGetPartitionStatsCmd(flags *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-partition-stats [target-table]",
		Short: "report storage and chunk statistics for one target table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(*flags)
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.monitor.GetPartitionStats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("table=%s total_size=%d table_size=%d index_size=%d rows=%d chunks=%d\n",
				stats.TableName, stats.TotalSize, stats.TableSize, stats.IndexSize, stats.RowEstimate, stats.ChunkCount)
			if stats.OldestChunk != nil && stats.NewestChunk != nil {
				fmt.Printf("chunk range: %s .. %s\n", stats.OldestChunk.Format("2006-01-02T15:04:05"), stats.NewestChunk.Format("2006-01-02T15:04:05"))
			}
			return nil
		},
	}
	return cmd
}

func newGetDetailedStatsCmd(flags *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-detailed-stats [source-table-pattern]",
		Short: "report health and throughput for configs matching a LIKE pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(*flags)
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			rows, err := a.monitor.GetDetailedStats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, r := range rows {
				fmt.Printf("%s -> %s health=%s status=%s retries=%d success_rate_24h=%.2f avg_24h=%s\n",
					r.SourceTable, r.TargetTable, r.Health, r.Status, r.RetryCount, r.SuccessRate24h, r.Avg24hDuration)
				if r.LastError != nil {
					fmt.Printf("  last error: %s\n", r.LastError.Message)
				}
			}
			return nil
		},
	}
	return cmd
}
