// Package schedule wires the orchestrator's recurring jobs into a cron
// scheduler: PerformRollup on a short tick, HandleRetries less often, and
// MaintainTimeseriesTables daily.
package schedule

import (
	"context"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

const (
	performRollupSpec  = "* * * * *"     // every minute
	handleRetriesSpec  = "*/5 * * * *"   // every 5 minutes
	maintainTablesSpec = "0 3 * * *"     // daily at 03:00
)

// Jobs is the set of callbacks the scheduler drives. Any may be nil, in
// which case that job is not registered.
type Jobs struct {
	PerformRollup           func(ctx context.Context) error
	HandleRetries           func(ctx context.Context) error
	MaintainTimeseriesTables func(ctx context.Context) error
}

// Scheduler owns a cron.Cron instance and keeps its registrations
// idempotent by job name, mirroring the pipeline scheduler's entries map so
// re-registering the same job name replaces rather than duplicates it.
type Scheduler struct {
	cron *cron.Cron
	jobs Jobs

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func New(jobs Jobs) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		jobs:    jobs,
		entries: make(map[string]cron.EntryID),
	}
}

// Start registers every configured job and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.jobs.PerformRollup != nil {
		if err := s.register("perform_rollup", performRollupSpec, s.jobs.PerformRollup); err != nil {
			return err
		}
	}
	if s.jobs.HandleRetries != nil {
		if err := s.register("handle_retries", handleRetriesSpec, s.jobs.HandleRetries); err != nil {
			return err
		}
	}
	if s.jobs.MaintainTimeseriesTables != nil {
		if err := s.register("maintain_timeseries_tables", maintainTablesSpec, s.jobs.MaintainTimeseriesTables); err != nil {
			return err
		}
	}
	s.cron.Start()
	log.Printf("schedule: started with %d jobs", len(s.entries))
	return nil
}

// Stop halts the cron loop, waiting for any running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Printf("schedule: stopped")
}

// register adds or replaces a named job. Calling it twice with the same
// name removes the previous entry first, so registration is idempotent on
// name regardless of how many times a caller invokes it.
func (s *Scheduler) register(name, spec string, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.entries[name]; ok {
		s.cron.Remove(prev)
		delete(s.entries, name)
	}

	entryID, err := s.cron.AddFunc(spec, func() {
		ctx := context.Background()
		if err := fn(ctx); err != nil {
			log.Printf("schedule: job %s failed: %v", name, err)
		}
	})
	if err != nil {
		return err
	}
	s.entries[name] = entryID
	log.Printf("schedule: registered job %s (%s)", name, spec)
	return nil
}
