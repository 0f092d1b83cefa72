// Package postgres provides the PostgreSQL persistence backend.
//
// Embedding vectors are stored as JSON in TEXT fields; a partial unique
// index over active fact hashes backs the concurrent duplicate-insert
// guarantee the ingest path relies on.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/lumina-ai/recall-go/pkg/storage"
)

// Client implements storage.Store using PostgreSQL as the backend.
type Client struct {
	db *sql.DB
}

// Config contains configuration for creating a PostgreSQL store.
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

	// SSLMode is the libpq sslmode setting (default "disable").
	SSLMode string
}

// NewClient creates a new PostgreSQL store.
//
// The schema is not created here; it is applied by the migration manager.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	return &Client{db: db}, nil
}

// RunInTx executes fn inside a single serializable transaction. Two racing
// ingests of near-duplicates with different normalized hashes slip past the
// partial unique index under READ COMMITTED; at SERIALIZABLE one of them
// fails with a serialization error, which maps to ErrConflict and is retried.
func (c *Client) RunInTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	sqlTx, err := c.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
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
	row := c.db.QueryRowContext(ctx, selectRecordSQL+" WHERE id = $1", id)

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
		WHERE is_active = TRUE
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
		WHERE is_active = FALSE AND updated_at < $1
	`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("HardDeleteInactiveBefore: %w", err)
	}

	return result.RowsAffected()
}

// ReplaceRecords destructively replaces the record set for the given scope.
func (c *Client) ReplaceRecords(ctx context.Context, scopeUserID string, recs []*storage.Record) error {
	return c.RunInTx(ctx, func(t storage.Tx) error {
		pt := t.(*tx)

		if scopeUserID == "" {
			if _, err := pt.tx.ExecContext(ctx, "DELETE FROM memory_records"); err != nil {
				return fmt.Errorf("ReplaceRecords: %w", mapError(err))
			}
		} else {
			if _, err := pt.tx.ExecContext(ctx, "DELETE FROM memory_records WHERE user_id = $1", scopeUserID); err != nil {
				return fmt.Errorf("ReplaceRecords: %w", mapError(err))
			}
		}

		for _, rec := range recs {
			if err := pt.insertFull(rec); err != nil {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
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
		SET status = $1, payload = $2, checksum = $3, record_count = $4, completed_at = $5
		WHERE id = $6
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
	row := c.db.QueryRowContext(ctx, selectSnapshotSQL+" WHERE id = $1", id)

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
		query += " WHERE backup_type = $1"
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
	result, err := c.db.ExecContext(ctx, "DELETE FROM memory_snapshots WHERE id = $1", id)
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

// Migrations returns the PostgreSQL migration list.
func (c *Client) Migrations() []storage.Migration {
	return migrations
}

// DB exposes the underlying connection for the migration manager.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Dialect returns "postgres".
func (c *Client) Dialect() string {
	return "postgres"
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
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation
			return storage.ErrConflict
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return storage.ErrConflict
		}
	}
	return err
}
