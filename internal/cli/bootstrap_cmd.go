package cli

import (
	"fmt"
	"time"

	"github.com/anilpraneeth/time-series-rollup/internal/bootstrap"
	"github.com/anilpraneeth/time-series-rollup/internal/config"
	"github.com/anilpraneeth/time-series-rollup/internal/model"

	"github.com/spf13/cobra"
)

func newCreateRollupTableCmd(flags *config.Config) *cobra.Command {
	var (
		sourceTable      string
		targetSchema     string
		targetName       string
		rollupInterval   time.Duration
		lookBackWindow   time.Duration
		retentionPeriod  time.Duration
		processingWindow time.Duration
		active           bool
	)

	cmd := &cobra.Command{
		Use:   "create-rollup-table",
		Short: "provision a new rollup target and its RollupConfig row",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(*flags)
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.bootstrapper.CreateRollupTable(cmd.Context(), bootstrap.Params{
				SourceTable:      sourceTable,
				TargetSchema:     targetSchema,
				TargetName:       targetName,
				RollupInterval:   rollupInterval,
				LookBackWindow:   lookBackWindow,
				RetentionPeriod:  retentionPeriod,
				ProcessingWindow: processingWindow,
				InitialStatus:    model.LeaseIdle,
				IsActive:         active,
			})
			if err != nil {
				return err
			}
			fmt.Printf("created rollup config id=%d target=%s.%s\n", id, targetSchema, targetName)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&sourceTable, "source-table", "", "qualified source table (required)")
	f.StringVar(&targetSchema, "target-schema", "gold", "schema for the new rollup table")
	f.StringVar(&targetName, "target-name", "", "name of the new rollup table (required)")
	f.DurationVar(&rollupInterval, "rollup-interval", time.Hour, "time_bucket width")
	f.DurationVar(&lookBackWindow, "look-back-window", 2*time.Hour, "steady-state look-back window")
	f.DurationVar(&retentionPeriod, "retention-period", 30*24*time.Hour, "retention for the new target")
	f.DurationVar(&processingWindow, "processing-window", time.Hour, "initial processing window size")
	f.BoolVar(&active, "active", true, "mark the new config active immediately")
	cmd.MarkFlagRequired("source-table")
	cmd.MarkFlagRequired("target-name")
	return cmd
}

func newMaintainTimeseriesTablesCmd(flags *config.Config) *cobra.Command {
	var sourceTable, targetTable string
	cmd := &cobra.Command{
		Use:   "maintain-timeseries-tables",
		Short: "reconcile a target's chunk interval against current ingest rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(*flags)
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.bootstrapper.MaintainTimeseriesTables(cmd.Context(), targetTable, sourceTable)
		},
	}
	f := cmd.Flags()
	f.StringVar(&sourceTable, "source-table", "", "source table driving the ingest-rate sample (required)")
	f.StringVar(&targetTable, "target-table", "", "qualified target table to reconcile (required)")
	cmd.MarkFlagRequired("source-table")
	cmd.MarkFlagRequired("target-table")
	return cmd
}
