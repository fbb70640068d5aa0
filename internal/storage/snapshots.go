package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bde/internal/buildsys"
	"bde/internal/errors"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	root TEXT NOT NULL,
	created_at TEXT NOT NULL,
	systems TEXT NOT NULL,
	graph TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_root ON snapshots(root, created_at DESC);
`

func (db *DB) initializeSchema() error {
	if _, err := db.conn.Exec(snapshotSchema); err != nil {
		return fmt.Errorf("failed to create snapshot schema: %w", err)
	}
	return nil
}

// timeFormat is RFC3339 with fixed-width fractional seconds so that the
// created_at column sorts lexicographically in time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Snapshot is one persisted analysis result.
type Snapshot struct {
	ID        string          `json:"id"`
	Root      string          `json:"root"`
	CreatedAt time.Time       `json:"createdAt"`
	Systems   []buildsys.Kind `json:"systems"`
	Graph     *buildsys.Graph `json:"graph,omitempty"`
}

// SaveSnapshot persists a graph for a project root and returns the new
// snapshot id.
func (db *DB) SaveSnapshot(root string, graph *buildsys.Graph) (string, error) {
	id := uuid.New().String()
	createdAt := time.Now().UTC().Format(timeFormat)

	graphJSON, err := json.Marshal(graph)
	if err != nil {
		return "", errors.New(errors.StorageError, "failed to encode graph", err)
	}
	systemsJSON, err := json.Marshal(graph.Systems)
	if err != nil {
		return "", errors.New(errors.StorageError, "failed to encode systems", err)
	}

	err = db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO snapshots (id, root, created_at, systems, graph) VALUES (?, ?, ?, ?, ?)`,
			id, root, createdAt, string(systemsJSON), string(graphJSON),
		)
		return err
	})
	if err != nil {
		return "", errors.New(errors.StorageError, "failed to save snapshot", err)
	}

	db.logger.Debug("Snapshot saved", map[string]interface{}{
		"id":   id,
		"root": root,
	})
	return id, nil
}

// GetSnapshot loads one snapshot with its full graph.
func (db *DB) GetSnapshot(id string) (*Snapshot, error) {
	row := db.conn.QueryRow(
		`SELECT id, root, created_at, systems, graph FROM snapshots WHERE id = ?`, id)

	var snap Snapshot
	var createdAt, systemsJSON, graphJSON string
	if err := row.Scan(&snap.ID, &snap.Root, &createdAt, &systemsJSON, &graphJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(errors.StorageError, fmt.Sprintf("snapshot not found: %s", id), nil)
		}
		return nil, errors.New(errors.StorageError, "failed to load snapshot", err)
	}

	if err := decodeSnapshot(&snap, createdAt, systemsJSON, graphJSON); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListSnapshots returns snapshot metadata for a root, newest first, without
// the full graphs. Empty root lists everything.
func (db *DB) ListSnapshots(root string, limit int) ([]Snapshot, error) {
	query := `SELECT id, root, created_at, systems FROM snapshots`
	var args []interface{}
	if root != "" {
		query += ` WHERE root = ?`
		args = append(args, root)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, errors.New(errors.StorageError, "failed to list snapshots", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		var createdAt, systemsJSON string
		if err := rows.Scan(&snap.ID, &snap.Root, &createdAt, &systemsJSON); err != nil {
			return nil, errors.New(errors.StorageError, "failed to scan snapshot row", err)
		}
		if err := decodeSnapshot(&snap, createdAt, systemsJSON, ""); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.StorageError, "failed to list snapshots", err)
	}
	return snaps, nil
}

// DeleteSnapshots removes every snapshot for a root and returns the count.
func (db *DB) DeleteSnapshots(root string) (int64, error) {
	var deleted int64
	err := db.WithTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM snapshots WHERE root = ?`, root)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, errors.New(errors.StorageError, "failed to delete snapshots", err)
	}
	return deleted, nil
}

func decodeSnapshot(snap *Snapshot, createdAt, systemsJSON, graphJSON string) error {
	ts, err := time.Parse(timeFormat, strings.TrimSpace(createdAt))
	if err != nil {
		return errors.New(errors.StorageError, "corrupt snapshot timestamp", err)
	}
	snap.CreatedAt = ts
	if err := json.Unmarshal([]byte(systemsJSON), &snap.Systems); err != nil {
		return errors.New(errors.StorageError, "corrupt snapshot systems", err)
	}
	if graphJSON != "" {
		snap.Graph = buildsys.NewGraph()
		if err := json.Unmarshal([]byte(graphJSON), snap.Graph); err != nil {
			return errors.New(errors.StorageError, "corrupt snapshot graph", err)
		}
	}
	return nil
}
