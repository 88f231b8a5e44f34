// Package rollerr defines the error taxonomy of the rollup orchestrator.
// Each Kind is a direct translation of one PL/pgSQL "BEGIN ... EXCEPTION
// WHEN OTHERS" boundary in the source program; all kinds share the single
// Error type, which carries the same diagnostic fields ErrorLog persists.
package rollerr

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

// Kind identifies which error taxonomy bucket an Error belongs to.
type Kind string

const (
	KindTransientStore     Kind = "transient_store"
	KindSchemaInspection   Kind = "schema_inspection"
	KindPlanDegeneracy     Kind = "plan_degeneracy"
	KindExecution          Kind = "execution"
	KindBudgetOverrun      Kind = "budget_overrun"
	KindLostLease          Kind = "lost_lease"
	KindValidationFailure  Kind = "validation_failure"
)

// Error is the concrete diagnostic type carried into ErrorLog rows. Its
// Kind determines both the log payload and, via Retryable, whether the
// caller should schedule a backoff or just release the lease.
type Error struct {
	Kind           Kind
	Message        string
	SQLState       string
	Detail         string
	Hint           string
	Context        string
	AttemptedQuery string

	// Wrapped is the underlying error, if any (e.g. a pgconn.PgError).
	Wrapped error
}

func (e *Error) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("%s: %s (sqlstate=%s)", e.Kind, e.Message, e.SQLState)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New constructs an Error of the given kind with a plain message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error wrapping an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Wrapped: err}
}

// WithContext returns a copy of e with Context set, for chaining at the call
// site closest to where the failing operation is known (e.g. "dimension
// column check", "claim", "execute").
func (e *Error) WithContext(context string) *Error {
	cp := *e
	cp.Context = context
	return &cp
}

// WithQuery returns a copy of e with AttemptedQuery set.
func (e *Error) WithQuery(query string) *Error {
	cp := *e
	cp.AttemptedQuery = query
	return &cp
}

// Fingerprint hashes the kind, message, and SQL state into a single value
// stable across occurrences of the same underlying failure, so ErrorLog rows
// for a chronic issue can be grouped without matching message text or
// attempted_query verbatim (attempted_query varies with $2/$3 bind values
// even when the fault is identical).
func (e *Error) Fingerprint() uint64 {
	return xxh3.HashString(string(e.Kind) + "|" + e.Message + "|" + e.SQLState)
}

// Retryable reports whether the error kind should feed the retry scheduler
// (C5) rather than being absorbed (schema inspection errors are logged and
// end the run, but the lease is released without scheduling a backoff).
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransientStore, KindPlanDegeneracy, KindExecution, KindBudgetOverrun:
		return true
	default:
		return false
	}
}
