// Package partitionmgr is a thin client for the external partition manager
// the orchestrator delegates physical partitioning to (e.g. pg_partman). It
// is consumed as an opaque service per the external interfaces section: the
// orchestrator core never reasons about chunk boundaries directly.
package partitionmgr

import (
	"context"
	"fmt"
	"time"
)

// Execer is the minimal capability partitionmgr needs from the store: run
// one SQL statement. Kept narrow so this package has no pgstore dependency.
type Execer interface {
	ExecRaw(ctx context.Context, sql string, args ...any) (int64, error)
}

// Client calls the partition manager's maintenance functions, installed in
// the target database as SQL-callable procedures.
type Client struct {
	exec Execer
}

func New(exec Execer) *Client {
	return &Client{exec: exec}
}

// CreateParent registers a table for partition management: control_column
// is the range column (always "timestamp" here), interval is the
// partition width, and premake is how many future partitions to
// pre-create.
func (c *Client) CreateParent(ctx context.Context, table, controlColumn string, interval time.Duration, premake int) error {
	sql := `SELECT partman.create_parent(
		p_parent_table => $1,
		p_control => $2,
		p_type => 'range',
		p_interval => $3,
		p_premake => $4
	)`
	_, err := c.exec.ExecRaw(ctx, sql, table, controlColumn, interval.String(), premake)
	if err != nil {
		return fmt.Errorf("partitionmgr: create_parent(%s): %w", table, err)
	}
	return nil
}

// RunMaintenance triggers one maintenance pass (creating scheduled future
// partitions, dropping/detaching retired ones per each table's retention).
func (c *Client) RunMaintenance(ctx context.Context) error {
	_, err := c.exec.ExecRaw(ctx, `SELECT partman.run_maintenance()`)
	if err != nil {
		return fmt.Errorf("partitionmgr: run_maintenance: %w", err)
	}
	return nil
}

// SetRetention configures a table's retention policy. keepTable controls
// whether retired partitions are dropped or merely detached; infinite keeps
// pre-creating future partitions even when no new data arrives.
func (c *Client) SetRetention(ctx context.Context, table string, retention time.Duration, keepTable, infinite bool) error {
	sql := `UPDATE partman.part_config SET retention = $2, retention_keep_table = $3, infinite_time_partitions = $4 WHERE parent_table = $1`
	_, err := c.exec.ExecRaw(ctx, sql, table, retention.String(), keepTable, infinite)
	if err != nil {
		return fmt.Errorf("partitionmgr: set_retention(%s): %w", table, err)
	}
	return nil
}
