// Package ids generates the two identifier flavors the orchestrator uses:
// an opaque worker id (google/uuid) that is written into a RollupConfig's
// lease, and a sortable run correlation id (oklog/ulid) that ties together
// one invocation's log lines and ErrorLog rows.
package ids

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewWorkerID returns a fresh opaque worker identity, stable for the
// lifetime of one orchestrator process.
func NewWorkerID() string {
	return uuid.NewString()
}

// NewRunID returns a new sortable run id for one PerformRollup/HandleRetries
// invocation.
func NewRunID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String()
}
