package region

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/substrate/internal/database"
	"github.com/aristath/substrate/internal/modules/terminal"
)

// LedgerRepository persists harvests into the append-only ledger database.
// It implements terminal.Recorder.
type LedgerRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewLedgerRepository creates a ledger repository.
func NewLedgerRepository(db *database.DB, log zerolog.Logger) *LedgerRepository {
	return &LedgerRepository{
		db:  db,
		log: log.With().Str("repository", "ledger").Logger(),
	}
}

// Record appends one harvest row. Rows are never updated or deleted.
func (r *LedgerRepository) Record(regionID string, result terminal.HarvestResult) error {
	_, err := r.db.Exec(
		`INSERT INTO harvests (region_id, terminal_id, register, ground, excited, outcome, probability, purity, value)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		regionID, result.TerminalID, result.Register,
		result.Label.Ground, result.Label.Excited,
		result.Outcome, result.Probability, result.Purity, result.Value,
	)
	if err != nil {
		return fmt.Errorf("failed to record harvest: %w", err)
	}
	return nil
}

// Recent returns the newest harvests for a region, newest first.
func (r *LedgerRepository) Recent(regionID string, limit int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(
		`SELECT id, region_id, terminal_id, register, ground, excited, outcome, probability, purity, value, harvested_at
		 FROM harvests WHERE region_id = ? ORDER BY id DESC LIMIT ?`,
		regionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query harvests: %w", err)
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var harvestedAt string
		if err := rows.Scan(
			&e.ID, &e.RegionID, &e.TerminalID, &e.Register,
			&e.Label.Ground, &e.Label.Excited,
			&e.Outcome, &e.Probability, &e.Purity, &e.Value, &harvestedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan harvest row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, harvestedAt); err == nil {
			e.HarvestedAt = ts
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating harvest rows: %w", err)
	}
	return entries, nil
}

// TotalValue sums all harvest values recorded for a region.
func (r *LedgerRepository) TotalValue(regionID string) (int, error) {
	var total int
	err := r.db.QueryRow(
		`SELECT COALESCE(SUM(value), 0) FROM harvests WHERE region_id = ?`,
		regionID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum harvest values: %w", err)
	}
	return total, nil
}

// ValueByOutcome aggregates harvest totals per observed basis label.
func (r *LedgerRepository) ValueByOutcome(regionID string) (map[string]int, error) {
	rows, err := r.db.Query(
		`SELECT outcome, SUM(value) FROM harvests WHERE region_id = ? GROUP BY outcome`,
		regionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate harvests: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var outcome string
		var value int
		if err := rows.Scan(&outcome, &value); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		totals[outcome] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aggregate rows: %w", err)
	}
	return totals, nil
}

var _ terminal.Recorder = (*LedgerRepository)(nil)
