// Package mysql provides the MySQL persistence backend, also used for
// MySQL-compatible databases such as OceanBase.
//
// MySQL has no partial unique indexes. Active-fact uniqueness is enforced
// through a stored generated column (fact_hash when the row is active, NULL
// otherwise) carrying a unique index, so a racing duplicate insert fails
// with ER_DUP_ENTRY and surfaces as a retryable conflict just as on the
// other backends.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/lumina-ai/recall-go/pkg/storage"
)

// Client implements storage.Store using MySQL as the backend.
type Client struct {
	db *sql.DB
}

// Config contains configuration for creating a MySQL store.
type Config struct {
	// Host is the database server host.
	Host string

	// Port is the database server port.
	Port int

	// User is the database user.
	User string

	// Password is the database password.
	Password string

	// DBName is the database name.
	DBName string
}

// NewClient creates a new MySQL store.
//
// The schema is not created here; it is applied by the migration manager.
func NewClient(cfg *Config) (*Client, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
	}

	return &Client{db: db}, nil
}

// RunInTx executes fn inside a single transaction.
func (c *Client) RunInTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	sqlTx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("RunInTx: %w", mapError(err))
	}

	if err := fn(&tx{ctx: ctx, tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("RunInTx: %w", mapError(err))
	}

	return nil
}

// GetRecord retrieves a record by ID.
func (c *Client) GetRecord(ctx context.Context, id int64) (*storage.Record, error) {
	row := c.db.QueryRowContext(ctx, selectRecordSQL+" WHERE id = ?", id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetRecord: %w", err)
	}

	return rec, nil
}

// ListRecords retrieves records matching the given options, newest first.
func (c *Client) ListRecords(ctx context.Context, opts *storage.ListOptions) ([]*storage.Record, error) {
	if opts == nil {
		opts = &storage.ListOptions{}
	}

	query, args := buildListQuery(opts)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListRecords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*storage.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ListRecords: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// ListUserIDs returns distinct user ids with at least one active record.
func (c *Client) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM memory_records
		WHERE is_active = 1
		ORDER BY user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("ListUserIDs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ListUserIDs: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// HardDeleteInactiveBefore physically removes inactive records older than cutoff.
func (c *Client) HardDeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM memory_records
		WHERE is_active = 0 AND updated_at < ?
	`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("HardDeleteInactiveBefore: %w", err)
	}

	return result.RowsAffected()
}

// ReplaceRecords destructively replaces the record set for the given scope.
func (c *Client) ReplaceRecords(ctx context.Context, scopeUserID string, recs []*storage.Record) error {
	return c.RunInTx(ctx, func(t storage.Tx) error {
		mt := t.(*tx)

		if scopeUserID == "" {
			if _, err := mt.tx.ExecContext(ctx, "DELETE FROM memory_records"); err != nil {
				return fmt.Errorf("ReplaceRecords: %w", mapError(err))
			}
		} else {
			if _, err := mt.tx.ExecContext(ctx, "DELETE FROM memory_records WHERE user_id = ?", scopeUserID); err != nil {
				return fmt.Errorf("ReplaceRecords: %w", mapError(err))
			}
		}

		for _, rec := range recs {
			if err := mt.insertFull(rec); err != nil {
				return fmt.Errorf("ReplaceRecords: %w", err)
			}
		}

		return nil
	})
}

// InsertSnapshot creates a snapshot row.
func (c *Client) InsertSnapshot(ctx context.Context, snap *storage.Snapshot) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO memory_snapshots
		(id, backup_type, scope_user_id, status, payload, checksum, record_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		snap.ID,
		snap.BackupType,
		snap.ScopeUserID,
		snap.Status,
		snap.Payload,
		snap.Checksum,
		snap.RecordCount,
		snap.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("InsertSnapshot: %w", mapError(err))
	}

	return nil
}

// CompleteSnapshot finalizes a snapshot with its payload and terminal status.
func (c *Client) CompleteSnapshot(ctx context.Context, id, status string, payload []byte, checksum string, count int64) error {
	result, err := c.db.ExecContext(ctx, `
		UPDATE memory_snapshots
		SET status = ?, payload = ?, checksum = ?, record_count = ?, completed_at = ?
		WHERE id = ?
	`, status, payload, checksum, count, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("CompleteSnapshot: %w", mapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("CompleteSnapshot: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// GetSnapshot retrieves a snapshot by ID.
func (c *Client) GetSnapshot(ctx context.Context, id string) (*storage.Snapshot, error) {
	row := c.db.QueryRowContext(ctx, selectSnapshotSQL+" WHERE id = ?", id)

	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetSnapshot: %w", err)
	}

	return snap, nil
}

// ListSnapshots returns snapshots newest first, optionally filtered by type.
func (c *Client) ListSnapshots(ctx context.Context, backupType string) ([]*storage.Snapshot, error) {
	query := selectSnapshotSQL
	var args []interface{}
	if backupType != "" {
		query += " WHERE backup_type = ?"
		args = append(args, backupType)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListSnapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snaps []*storage.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("ListSnapshots: %w", err)
		}
		snaps = append(snaps, snap)
	}

	return snaps, rows.Err()
}

// DeleteSnapshot removes a snapshot row.
func (c *Client) DeleteSnapshot(ctx context.Context, id string) error {
	result, err := c.db.ExecContext(ctx, "DELETE FROM memory_snapshots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("DeleteSnapshot: %w", mapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteSnapshot: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// Migrations returns the MySQL migration list.
func (c *Client) Migrations() []storage.Migration {
	return migrations
}

// DB exposes the underlying connection for the migration manager.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Dialect returns "mysql".
func (c *Client) Dialect() string {
	return "mysql"
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// mapError converts driver errors into the shared storage sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if mysqlErr, ok := err.(*mysql.MySQLError); ok {
		switch mysqlErr.Number {
		case 1062: // ER_DUP_ENTRY
			return storage.ErrConflict
		case 1213, 1205: // ER_LOCK_DEADLOCK, ER_LOCK_WAIT_TIMEOUT
			return storage.ErrConflict
		}
	}
	return err
}
