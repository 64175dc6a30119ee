package region

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/substrate/internal/database"
	"github.com/aristath/substrate/internal/quantum"
)

// SnapshotRepository stores the latest engine snapshot per region as a
// msgpack blob in the cache database. Snapshots are rebuildable state, so
// the cache profile trades durability for speed.
type SnapshotRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a snapshot repository.
func NewSnapshotRepository(db *database.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repository", "snapshot").Logger(),
	}
}

// Save replaces the stored snapshot for a region.
func (r *SnapshotRepository) Save(regionID string, snap quantum.StateSnapshot) error {
	payload, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = r.db.Exec(
		`INSERT INTO snapshots (region_id, payload, written_at)
		 VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		 ON CONFLICT(region_id) DO UPDATE SET payload = excluded.payload, written_at = excluded.written_at`,
		regionID, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	r.log.Debug().Str("region", regionID).Int("bytes", len(payload)).Msg("snapshot written")
	return nil
}

// Load returns the stored snapshot for a region, or quantum.ErrNotFound when
// none exists.
func (r *SnapshotRepository) Load(regionID string) (quantum.StateSnapshot, error) {
	var payload []byte
	err := r.db.QueryRow(
		`SELECT payload FROM snapshots WHERE region_id = ?`, regionID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return quantum.StateSnapshot{}, fmt.Errorf("snapshot for region %s: %w", regionID, quantum.ErrNotFound)
	}
	if err != nil {
		return quantum.StateSnapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap quantum.StateSnapshot
	if err := msgpack.Unmarshal(payload, &snap); err != nil {
		return quantum.StateSnapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

// Delete removes a region's snapshot. Missing rows are not an error.
func (r *SnapshotRepository) Delete(regionID string) error {
	if _, err := r.db.Exec(`DELETE FROM snapshots WHERE region_id = ?`, regionID); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
