// Package migrate applies and reverses versioned schema migrations.
//
// Each migration is identified by a timestamped ID and checksummed over its
// SQL. Applied checksums are recorded in a schema_migrations table; a later
// run that sees different SQL for an already-applied ID refuses to proceed
// rather than silently diverge.
package migrate

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lumina-ai/recall-go/pkg/storage"
)

// Predefined errors.
var (
	// ErrChecksumMismatch indicates that an applied migration's recorded
	// checksum differs from the checksum of the SQL currently registered
	// under the same ID.
	ErrChecksumMismatch = errors.New("migrate: checksum mismatch")

	// ErrOutOfOrderRollback indicates an attempt to roll back a migration
	// that is not the most recently applied one.
	ErrOutOfOrderRollback = errors.New("migrate: only the most recent migration can be rolled back")

	// ErrNotFound indicates that the named migration is not registered or
	// not applied.
	ErrNotFound = errors.New("migrate: migration not found")
)

// Status describes one migration's state.
type Status struct {
	// ID is the migration identifier.
	ID string `json:"id"`

	// Name is the migration description.
	Name string `json:"name"`

	// Applied reports whether the migration has been applied.
	Applied bool `json:"applied"`

	// AppliedAt is when the migration was applied (zero if not applied).
	AppliedAt time.Time `json:"applied_at,omitempty"`

	// Checksum is the hex SHA-256 of the migration SQL.
	Checksum string `json:"checksum"`

	// Drifted is true when the migration is applied but its registered SQL
	// no longer matches the recorded checksum.
	Drifted bool `json:"drifted,omitempty"`
}

// Manager runs migrations against a backend's database.
type Manager struct {
	db      *sql.DB
	dialect string
	list    []storage.Migration
	logger  *slog.Logger
}

// NewManager creates a migration manager for the given store.
func NewManager(store storage.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		db:      store.DB(),
		dialect: store.Dialect(),
		list:    store.Migrations(),
		logger:  logger,
	}
}

// Checksum returns the hex SHA-256 digest of a migration's SQL, covering
// both directions so a changed rollback is detected too.
func Checksum(m storage.Migration) string {
	h := sha256.New()
	for _, stmt := range m.UpSQL {
		h.Write([]byte(strings.TrimSpace(stmt)))
		h.Write([]byte{'\n'})
	}
	h.Write([]byte{'-', '-', '\n'})
	for _, stmt := range m.DownSQL {
		h.Write([]byte(strings.TrimSpace(stmt)))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Up applies all pending migrations in ID order. Before applying anything it
// verifies the checksums of already-applied migrations and fails with
// ErrChecksumMismatch on drift. Returns the number of migrations applied.
func (m *Manager) Up(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	applied, err := m.appliedChecksums(ctx)
	if err != nil {
		return 0, err
	}

	for _, mig := range m.list {
		recorded, ok := applied[mig.ID]
		if ok && recorded != Checksum(mig) {
			return 0, fmt.Errorf("%w: migration %s (%s)", ErrChecksumMismatch, mig.ID, mig.Name)
		}
	}

	count := 0
	for _, mig := range m.list {
		if _, ok := applied[mig.ID]; ok {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return count, err
		}
		m.logger.Info("migration applied",
			slog.String("id", mig.ID),
			slog.String("name", mig.Name))
		count++
	}
	return count, nil
}

// Down rolls back the most recently applied migration. Rolling back any
// other migration fails with ErrOutOfOrderRollback; an empty history fails
// with ErrNotFound.
func (m *Manager) Down(ctx context.Context, id string) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	latest, err := m.latestApplied(ctx)
	if err != nil {
		return err
	}
	if latest == "" {
		return fmt.Errorf("%w: no migrations applied", ErrNotFound)
	}
	if id != "" && id != latest {
		return fmt.Errorf("%w: %s is not the latest (%s)", ErrOutOfOrderRollback, id, latest)
	}

	var mig *storage.Migration
	for i := range m.list {
		if m.list[i].ID == latest {
			mig = &m.list[i]
			break
		}
	}
	if mig == nil {
		return fmt.Errorf("%w: %s is applied but not registered", ErrNotFound, latest)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, stmt := range mig.DownSQL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: rollback %s: %w", mig.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		m.rebind(`DELETE FROM schema_migrations WHERE id = ?`), mig.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	m.logger.Info("migration rolled back",
		slog.String("id", mig.ID),
		slog.String("name", mig.Name))
	return nil
}

// Statuses returns the state of every registered migration plus any applied
// migrations no longer registered, ordered by ID.
func (m *Manager) Statuses(ctx context.Context) ([]Status, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.appliedChecksums(ctx)
	if err != nil {
		return nil, err
	}
	appliedAt, err := m.appliedTimes(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(m.list))
	for _, mig := range m.list {
		sum := Checksum(mig)
		recorded, ok := applied[mig.ID]
		statuses = append(statuses, Status{
			ID:        mig.ID,
			Name:      mig.Name,
			Applied:   ok,
			AppliedAt: appliedAt[mig.ID],
			Checksum:  sum,
			Drifted:   ok && recorded != sum,
		})
	}
	return statuses, nil
}

// Pending returns the count of registered migrations not yet applied.
func (m *Manager) Pending(ctx context.Context) (int, error) {
	statuses, err := m.Statuses(ctx)
	if err != nil {
		return 0, err
	}
	pending := 0
	for _, s := range statuses {
		if !s.Applied {
			pending++
		}
	}
	return pending, nil
}

func (m *Manager) apply(ctx context.Context, mig storage.Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, stmt := range mig.UpSQL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: apply %s: %w", mig.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		m.rebind(`INSERT INTO schema_migrations (id, name, checksum, applied_at) VALUES (?, ?, ?, ?)`),
		mig.ID, mig.Name, Checksum(mig), time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Manager) ensureTable(ctx context.Context) error {
	var ddl string
	switch m.dialect {
	case "postgres":
		ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
			id VARCHAR(32) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			checksum VARCHAR(64) NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL
		)`
	case "mysql":
		ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
			id VARCHAR(32) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			checksum VARCHAR(64) NOT NULL,
			applied_at DATETIME(6) NOT NULL
		)`
	default:
		ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			checksum TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)`
	}
	_, err := m.db.ExecContext(ctx, ddl)
	return err
}

func (m *Manager) appliedChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id, checksum FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, sum string
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, err
		}
		out[id] = sum
	}
	return out, rows.Err()
}

func (m *Manager) appliedTimes(ctx context.Context) (map[string]time.Time, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]time.Time)
	for rows.Next() {
		var id string
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, err
		}
		out[id] = at
	}
	return out, rows.Err()
}

func (m *Manager) latestApplied(ctx context.Context) (string, error) {
	var id string
	err := m.db.QueryRowContext(ctx,
		`SELECT id FROM schema_migrations ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// rebind converts ?-style placeholders to the dialect's form.
func (m *Manager) rebind(query string) string {
	if m.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
