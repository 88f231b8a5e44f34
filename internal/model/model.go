// Package model defines the persisted data model for the rollup orchestrator:
// RollupConfig, DimensionConfig, RefreshLog, and ErrorLog rows, plus the
// small value types (SemanticType, LeaseStatus, HealthStatus) shared across
// the rest of the packages that read and write them.
package model

import "time"

// SemanticType classifies a source or target column for aggregation purposes.
type SemanticType string

const (
	SemanticTimestamp SemanticType = "TIMESTAMP"
	SemanticNumeric   SemanticType = "NUMERIC"
	SemanticJSON      SemanticType = "JSON"
	SemanticOther     SemanticType = "OTHER"
)

// LeaseStatus is the processing state of a RollupConfig row.
type LeaseStatus string

const (
	LeaseIdle       LeaseStatus = "idle"
	LeaseProcessing LeaseStatus = "processing"
)

// HealthStatus is the derived operational status reported by the Operations
// Monitor (C7).
type HealthStatus string

const (
	HealthOK      HealthStatus = "OK"
	HealthRunning HealthStatus = "RUNNING"
	HealthWarning HealthStatus = "WARNING"
	HealthAlert   HealthStatus = "ALERT"
)

// Column describes one column returned by schema introspection.
type Column struct {
	Name     string
	Semantic SemanticType
	SQLType  string // raw information_schema.data_type / udt_name
}

// RollupConfig is one (source_table, target_table) rollup pipeline. It is
// the sole unit of concurrency: a lease is held on this row for the
// duration of one window's processing.
type RollupConfig struct {
	ID          int64
	SourceTable string // qualified, e.g. "raw.metrics"
	TargetTable string // qualified, e.g. "gold.metrics_1h"
	IsActive    bool

	RollupInterval    time.Duration
	LookBackWindow    time.Duration
	MaxLookBackWindow time.Duration
	ProcessingWindow  time.Duration
	ChunkInterval     time.Duration
	RetentionPeriod   time.Duration

	LastProcessedTime *time.Time // nil before first run

	Status    LeaseStatus
	WorkerID  *string
	StartedAt *time.Time

	AvgProcessingTime    time.Duration
	LastProcessedRows    int64
	LastOptimizationTime *time.Time

	RetryCount    int
	LastErrorTime *time.Time
	NextRetryTime *time.Time

	MaxExecutionTime time.Duration
	AlertThreshold   time.Duration
}

// DimensionConfig declares one GROUP BY key carried through a source
// table's rollup. Order of a config's dimensions is significant: the same
// order must be used by the Plan Builder's GROUP BY / ON CONFLICT target and
// by the Bootstrap step's primary key.
type DimensionConfig struct {
	SourceTable      string
	DimensionColumn  string
	IsActive         bool
}

// RefreshLog is an append-only record of one successfully committed window.
type RefreshLog struct {
	TableName        string
	StartTime        time.Time
	EndTime          time.Time
	RecordsProcessed int64
	RefreshTimestamp time.Time
}

// Duration is the wall-clock span of the logged window.
func (r RefreshLog) Duration() time.Duration { return r.EndTime.Sub(r.StartTime) }

// ErrorLog is an append-only diagnostic record for one failed or partially
// failed run. Fields mirror the PL/pgSQL exception payload the source
// program raised for GET STACKED DIAGNOSTICS.
type ErrorLog struct {
	Kind           string
	SourceTable    string
	TargetTable    string
	ErrorTimestamp time.Time
	Message        string
	SQLState       string
	Detail         string
	Hint           string
	Context        string
	AttemptedQuery string

	// Fingerprint is a stable hash of (kind, message, sql_state), used to
	// group recurring instances of the same underlying failure across runs
	// without depending on message text matching exactly.
	Fingerprint uint64
}

// ValidationResult is one row of ValidateRollupConfig's report.
type ValidationResult struct {
	SourceTable string
	TargetTable string
	IsValid     bool
	Message     string
}

// PartitionStats is a snapshot of one target table's physical storage
// characteristics, as reported by GetPartitionStats.
type PartitionStats struct {
	TableName       string
	TotalSize       int64 // bytes, including indexes
	TableSize       int64 // bytes, heap only
	IndexSize       int64 // bytes, all indexes
	RowEstimate     int64
	ChunkCount      int
	OldestChunk     *time.Time
	NewestChunk     *time.Time
}

// DetailedStats is one row of GetDetailedStats, joining a RollupConfig with
// its derived health and recent throughput.
type DetailedStats struct {
	SourceTable       string
	TargetTable       string
	Health            HealthStatus
	Status            LeaseStatus
	RetryCount        int
	LastProcessedTime *time.Time
	AvgProcessingTime time.Duration
	Avg24hDuration    time.Duration
	SuccessRate24h    float64 // fraction in [0,1]
	LastError         *ErrorLog
}
