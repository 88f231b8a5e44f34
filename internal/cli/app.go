// Package cli assembles the rollupctl subcommands, wiring internal/config,
// internal/pgstore, and the C1-C8 components into a runnable cobra tree.
package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/anilpraneeth/time-series-rollup/internal/bootstrap"
	"github.com/anilpraneeth/time-series-rollup/internal/config"
	"github.com/anilpraneeth/time-series-rollup/internal/ids"
	"github.com/anilpraneeth/time-series-rollup/internal/metrics"
	"github.com/anilpraneeth/time-series-rollup/internal/metrics/prompush"
	"github.com/anilpraneeth/time-series-rollup/internal/monitor"
	"github.com/anilpraneeth/time-series-rollup/internal/orchestrator"
	"github.com/anilpraneeth/time-series-rollup/internal/partitionmgr"
	"github.com/anilpraneeth/time-series-rollup/internal/pgstore"
	"github.com/anilpraneeth/time-series-rollup/internal/schedule"
	"github.com/anilpraneeth/time-series-rollup/internal/schema"
	"github.com/anilpraneeth/time-series-rollup/internal/validate"

	"github.com/spf13/cobra"
)

// app bundles every wired component a subcommand might need. Built once per
// invocation from a resolved config.Config.
type app struct {
	cfg          config.Config
	store        *pgstore.Store
	closeStore   func()
	inspector    *schema.Inspector
	orchestrator *orchestrator.Orchestrator
	monitor      *monitor.Monitor
	bootstrapper *bootstrap.Bootstrapper
	partMgr      *partitionmgr.Client
	validator    *validate.Validator
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	store, closeStore, err := pgstore.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}

	inspector := schema.New(store.Columns, store.Dimensions)
	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = ids.NewWorkerID()
	}
	partMgr := partitionmgr.New(store)

	return &app{
		cfg:          cfg,
		store:        store,
		closeStore:   closeStore,
		inspector:    inspector,
		orchestrator: orchestrator.New(store, inspector, workerID, cfg.PollTimeout),
		monitor:      monitor.New(store),
		bootstrapper: bootstrap.New(store, inspector, partMgr),
		partMgr:      partMgr,
		validator:    validate.New(store),
	}, nil
}

func (a *app) Close() {
	if a.closeStore != nil {
		a.closeStore()
	}
}

func (a *app) setupMetrics() {
	switch a.cfg.MetricsBackend {
	case "pushgateway":
		b, err := prompush.NewBackend(a.cfg.MetricsJob, a.cfg.PushgatewayURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return
		}
		metrics.SetBackend(b)
	case "", "none":
		// nop backend remains installed
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", a.cfg.MetricsBackend)
	}
}

func (a *app) flushMetrics() {
	if err := metrics.Flush(); err != nil {
		log.Printf("metrics: flush error: %v", err)
	}
}

// resolveConfig merges cobra-bound flag values with environment fallbacks
// and validates the result, exiting the process on a fatal configuration
// issue.
func resolveConfig(flags config.Config) config.Config {
	cfg := config.FromEnv(flags)
	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Fatalf("rollupctl: invalid configuration")
	}
	return cfg
}

// NewRootCmd builds the full rollupctl command tree.
func NewRootCmd() *cobra.Command {
	var flags config.Config

	root := &cobra.Command{
		Use:   "rollupctl",
		Short: "Control plane for pre-aggregated rollup tables",
		Long: `rollupctl drives the rollup orchestrator: it schedules and runs
PerformRollup and HandleRetries against configured source/target table
pairs, provisions new rollup targets, and reports operational health.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.DSN, "dsn", "", "Postgres connection string (env ROLLUP_DSN)")
	pf.StringVar(&flags.WorkerID, "worker-id", "", "lease worker identity (env ROLLUP_WORKER_ID, default random)")
	pf.DurationVar(&flags.PollTimeout, "poll-timeout", 0, "per-invocation soft timeout (env ROLLUP_POLL_TIMEOUT)")
	pf.StringVar(&flags.MetricsBackend, "metrics-backend", "", "metrics backend: pushgateway or none (env ROLLUP_METRICS_BACKEND)")
	pf.StringVar(&flags.PushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL)")
	pf.StringVar(&flags.MetricsJob, "metrics-job", "", "Pushgateway job label (env ROLLUP_METRICS_JOB)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose logs")

	root.AddCommand(
		newPerformRollupCmd(&flags),
		newHandleRetriesCmd(&flags),
		newCreateRollupTableCmd(&flags),
		newMaintainTimeseriesTablesCmd(&flags),
		newGetPartitionStatsCmd(&flags),
		newGetDetailedStatsCmd(&flags),
		newValidateRollupConfigCmd(&flags),
		newServeCmd(&flags),
	)

	return root
}

func newServeCmd(flags *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the cron scheduler in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(*flags)
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			a.setupMetrics()
			defer a.flushMetrics()

			sched := schedule.New(schedule.Jobs{
				PerformRollup:            func(ctx context.Context) error { return a.orchestrator.PerformRollup(ctx, "") },
				HandleRetries:            a.orchestrator.HandleRetries,
				MaintainTimeseriesTables: a.bootstrapper.MaintainAllTimeseriesTables,
			})
			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()

			log.Printf("rollupctl: serving")
			<-cmd.Context().Done()
			return nil
		},
	}
}
