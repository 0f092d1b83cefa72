// Package backup creates, verifies, restores, and prunes memory snapshots.
//
// A snapshot is the JSON serialization of every record in its scope (active
// and inactive), stored alongside a SHA-256 checksum. Verification recomputes
// the checksum; restore refuses to touch current data unless verification
// passes.
package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lumina-ai/recall-go/pkg/storage"
)

// Predefined errors.
var (
	// ErrChecksumMismatch indicates that a snapshot's payload does not match
	// its recorded checksum. The snapshot is corrupt or tampered with.
	ErrChecksumMismatch = errors.New("backup: checksum mismatch")

	// ErrSnapshotNotCompleted indicates an attempt to verify or restore a
	// snapshot that is still in progress or failed.
	ErrSnapshotNotCompleted = errors.New("backup: snapshot not completed")
)

// RetentionPolicy controls how many snapshots Prune keeps per schedule tier.
// Manual and pre_migration snapshots are never pruned.
type RetentionPolicy struct {
	// Daily is the number of daily snapshots to keep.
	Daily int `json:"daily" yaml:"daily"`

	// Weekly is the number of weekly snapshots to keep.
	Weekly int `json:"weekly" yaml:"weekly"`

	// Monthly is the number of monthly snapshots to keep.
	Monthly int `json:"monthly" yaml:"monthly"`
}

// DefaultRetentionPolicy returns the standard 30/12/12 policy.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{Daily: 30, Weekly: 12, Monthly: 12}
}

// payload is the serialized form stored in a snapshot row.
type payload struct {
	FormatVersion int               `json:"format_version"`
	CreatedAt     time.Time         `json:"created_at"`
	ScopeUserID   string            `json:"scope_user_id,omitempty"`
	Records       []*storage.Record `json:"records"`
}

const formatVersion = 1

// Manager runs backup operations against a store.
type Manager struct {
	store  storage.Store
	logger *slog.Logger
}

// NewManager creates a backup manager.
func NewManager(store storage.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, logger: logger}
}

// Create takes a snapshot of the given scope. An empty scopeUserID snapshots
// every user. The record read is a single query, so ingestion is never
// blocked for the duration of serialization.
//
// The snapshot row is inserted as in_progress first; any failure flips it to
// failed rather than leaving a half-written completed snapshot.
func (m *Manager) Create(ctx context.Context, backupType, scopeUserID string) (*storage.Snapshot, error) {
	snap := &storage.Snapshot{
		ID:          uuid.NewString(),
		BackupType:  backupType,
		ScopeUserID: scopeUserID,
		Status:      storage.SnapshotInProgress,
		CreatedAt:   time.Now().UTC(),
	}
	if err := m.store.InsertSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	recs, err := m.store.ListRecords(ctx, &storage.ListOptions{UserID: scopeUserID})
	if err != nil {
		return nil, m.fail(ctx, snap, err)
	}

	body, err := json.Marshal(payload{
		FormatVersion: formatVersion,
		CreatedAt:     snap.CreatedAt,
		ScopeUserID:   scopeUserID,
		Records:       recs,
	})
	if err != nil {
		return nil, m.fail(ctx, snap, err)
	}

	sum := checksum(body)
	count := int64(len(recs))
	if err := m.store.CompleteSnapshot(ctx, snap.ID, storage.SnapshotCompleted, body, sum, count); err != nil {
		return nil, m.fail(ctx, snap, err)
	}

	snap.Status = storage.SnapshotCompleted
	snap.Payload = body
	snap.Checksum = sum
	snap.RecordCount = count
	m.logger.Info("snapshot created",
		slog.String("id", snap.ID),
		slog.String("type", backupType),
		slog.Int64("records", count))
	return snap, nil
}

// Verify recomputes the checksum of a completed snapshot's payload and
// compares it to the recorded value.
func (m *Manager) Verify(ctx context.Context, id string) error {
	snap, err := m.store.GetSnapshot(ctx, id)
	if err != nil {
		return err
	}
	return verifySnapshot(snap)
}

// Restore replaces the snapshot's scope with its contents. Verification runs
// first; a corrupt snapshot fails with ErrChecksumMismatch before any current
// data is touched. The replace itself is one transaction.
func (m *Manager) Restore(ctx context.Context, id string) (int64, error) {
	snap, err := m.store.GetSnapshot(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := verifySnapshot(snap); err != nil {
		return 0, err
	}

	var body payload
	if err := json.Unmarshal(snap.Payload, &body); err != nil {
		return 0, fmt.Errorf("backup: decode snapshot %s: %w", id, err)
	}
	if int64(len(body.Records)) != snap.RecordCount {
		return 0, fmt.Errorf("%w: snapshot %s holds %d records, expected %d",
			ErrChecksumMismatch, id, len(body.Records), snap.RecordCount)
	}

	if err := m.store.ReplaceRecords(ctx, snap.ScopeUserID, body.Records); err != nil {
		return 0, err
	}
	m.logger.Info("snapshot restored",
		slog.String("id", id),
		slog.Int64("records", snap.RecordCount))
	return snap.RecordCount, nil
}

// Prune deletes completed snapshots beyond the retention policy. Within each
// of the daily/weekly/monthly tiers the newest snapshots are kept; manual and
// pre_migration snapshots are never deleted. The most recent snapshot of a
// tier survives even a zero-count policy. Returns the number of snapshots
// deleted.
func (m *Manager) Prune(ctx context.Context, policy RetentionPolicy) (int, error) {
	deleted := 0
	for tier, keep := range map[string]int{
		"daily":   policy.Daily,
		"weekly":  policy.Weekly,
		"monthly": policy.Monthly,
	} {
		n, err := m.pruneTier(ctx, tier, keep)
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	if deleted > 0 {
		m.logger.Info("snapshots pruned", slog.Int("deleted", deleted))
	}
	return deleted, nil
}

func (m *Manager) pruneTier(ctx context.Context, tier string, keep int) (int, error) {
	snaps, err := m.store.ListSnapshots(ctx, tier)
	if err != nil {
		return 0, err
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	if keep < 1 {
		keep = 1
	}
	deleted := 0
	for i, snap := range snaps {
		if i < keep {
			continue
		}
		if err := m.store.DeleteSnapshot(ctx, snap.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (m *Manager) fail(ctx context.Context, snap *storage.Snapshot, cause error) error {
	if err := m.store.CompleteSnapshot(ctx, snap.ID, storage.SnapshotFailed, nil, "", 0); err != nil {
		m.logger.Error("failed to mark snapshot failed",
			slog.String("id", snap.ID),
			slog.String("error", err.Error()))
	}
	return fmt.Errorf("backup: snapshot %s: %w", snap.ID, cause)
}

func verifySnapshot(snap *storage.Snapshot) error {
	if snap.Status != storage.SnapshotCompleted {
		return fmt.Errorf("%w: snapshot %s is %s", ErrSnapshotNotCompleted, snap.ID, snap.Status)
	}
	if checksum(snap.Payload) != snap.Checksum {
		return fmt.Errorf("%w: snapshot %s", ErrChecksumMismatch, snap.ID)
	}
	return nil
}

func checksum(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
