package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"go.uber.org/zap"

	"albumshuffle/internal/core"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at    INTEGER NOT NULL,
	playlist_id   TEXT    NOT NULL,
	playlist_name TEXT    NOT NULL,
	group_count   INTEGER NOT NULL,
	track_count   INTEGER NOT NULL,
	duration_ms   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_groups (
	run_id      INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	name        TEXT    NOT NULL,
	track_count INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// HistoryStore persists one row per published shuffle plus the ordered groups
// that made it into the playlist.
type HistoryStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenHistory opens (and if needed migrates) the history database at path.
func OpenHistory(path string, logger *zap.Logger) (*HistoryStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	return &HistoryStore{db: db, logger: logger}, nil
}

func (h *HistoryStore) Close() error {
	return h.db.Close()
}

// RecordRun stores a run and its groups in a single transaction and returns
// the run ID.
func (h *HistoryStore) RecordRun(ctx context.Context, run core.Run, groups []core.RunGroup) (int64, error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	result, err := tx.ExecContext(ctx,
		`INSERT INTO runs (created_at, playlist_id, playlist_name, group_count, track_count, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.CreatedAt.Unix(),
		run.PlaylistID,
		run.PlaylistName,
		run.GroupCount,
		run.TrackCount,
		run.Duration.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	for _, group := range groups {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_groups (run_id, position, name, track_count, duration_ms)
			 VALUES (?, ?, ?, ?, ?)`,
			runID,
			group.Position,
			group.Name,
			group.TrackCount,
			group.Duration.Milliseconds(),
		); err != nil {
			return 0, fmt.Errorf("failed to insert run group: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	h.logger.Debug("Recorded shuffle run",
		zap.Int64("runID", runID),
		zap.Int("groups", len(groups)))

	return runID, nil
}

// RecentRuns returns up to limit runs, newest first.
func (h *HistoryStore) RecentRuns(ctx context.Context, limit int) ([]core.Run, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, created_at, playlist_id, playlist_name, group_count, track_count, duration_ms
		 FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []core.Run
	for rows.Next() {
		var run core.Run
		var createdAt int64
		var durationMs int64

		if err := rows.Scan(&run.ID, &createdAt, &run.PlaylistID, &run.PlaylistName,
			&run.GroupCount, &run.TrackCount, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.CreatedAt = time.Unix(createdAt, 0)
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// RunGroups returns the groups of a run in published order.
func (h *HistoryStore) RunGroups(ctx context.Context, runID int64) ([]core.RunGroup, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT position, name, track_count, duration_ms
		 FROM run_groups WHERE run_id = ? ORDER BY position ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run groups: %w", err)
	}
	defer rows.Close()

	var groups []core.RunGroup
	for rows.Next() {
		var group core.RunGroup
		var durationMs int64

		if err := rows.Scan(&group.Position, &group.Name, &group.TrackCount, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan run group: %w", err)
		}

		group.Duration = time.Duration(durationMs) * time.Millisecond
		groups = append(groups, group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run groups: %w", err)
	}

	return groups, nil
}
