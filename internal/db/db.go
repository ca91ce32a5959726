// Package db persists reconstruction projects: the measurement table as the
// analyst entered it, per-project tuning settings, the last computed node
// list, and any ground-truth reference trace.
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/motion.profile/internal/config"
	"github.com/banshee-data/motion.profile/internal/profile"
	"github.com/banshee-data/motion.profile/internal/segment"
)

// ErrNotFound is returned when a project does not exist.
var ErrNotFound = errors.New("db: project not found")

type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the project database and applies pending
// migrations.
func NewDB(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db := &DB{sqldb}
	if err := db.MigrateUp(); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to migrate project database: %w", err)
	}
	return db, nil
}

// Project is one reconstruction case.
type Project struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Settings  *config.TuningConfig `json:"settings"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// CreateProject inserts a new project with the given name and settings.
// Nil settings store an empty config; defaults apply on read.
func (db *DB) CreateProject(name string, settings *config.TuningConfig) (*Project, error) {
	if settings == nil {
		settings = config.EmptyTuningConfig()
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project settings: %w", err)
	}

	blob, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}

	id := uuid.NewString()
	_, err = db.Exec(
		`INSERT INTO projects (project_id, name, settings) VALUES (?, ?, ?)`,
		id, name, string(blob),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert project: %w", err)
	}
	return db.GetProject(id)
}

// GetProject loads a project by id.
func (db *DB) GetProject(id string) (*Project, error) {
	row := db.QueryRow(
		`SELECT project_id, name, settings, created_at, updated_at FROM projects WHERE project_id = ?`,
		id,
	)

	var p Project
	var blob string
	if err := row.Scan(&p.ID, &p.Name, &blob, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	p.Settings = config.EmptyTuningConfig()
	if err := json.Unmarshal([]byte(blob), p.Settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings for project %s: %w", id, err)
	}
	return &p, nil
}

// ListProjects returns all projects, most recently updated first.
func (db *DB) ListProjects() ([]Project, error) {
	rows, err := db.Query(
		`SELECT project_id, name, settings, created_at, updated_at FROM projects ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		var blob string
		if err := rows.Scan(&p.ID, &p.Name, &blob, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Settings = config.EmptyTuningConfig()
		if err := json.Unmarshal([]byte(blob), p.Settings); err != nil {
			return nil, fmt.Errorf("failed to decode settings for project %s: %w", p.ID, err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateSettings replaces a project's settings.
func (db *DB) UpdateSettings(id string, settings *config.TuningConfig) error {
	if settings == nil {
		settings = config.EmptyTuningConfig()
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid project settings: %w", err)
	}

	blob, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	res, err := db.Exec(
		`UPDATE projects SET settings = ?, updated_at = CURRENT_TIMESTAMP WHERE project_id = ?`,
		string(blob), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return requireRow(res)
}

// ReplaceRows replaces the project's measurement table wholesale. Rows are
// stored exactly as entered, blanks included, so reloading a project shows
// the analyst the same table.
func (db *DB) ReplaceRows(id string, rowsIn []segment.Raw) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE projects SET updated_at = CURRENT_TIMESTAMP WHERE project_id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("failed to touch project: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM measurement_rows WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear measurement rows: %w", err)
	}

	for i, row := range rowsIn {
		_, err := tx.Exec(
			`INSERT INTO measurement_rows (project_id, position, frame_start, frame_end, distance) VALUES (?, ?, ?, ?, ?)`,
			id, i, string(row.FrameStart), string(row.FrameEnd), string(row.Distance),
		)
		if err != nil {
			return fmt.Errorf("failed to insert measurement row %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Rows returns the project's measurement table in entry order.
func (db *DB) Rows(id string) ([]segment.Raw, error) {
	rows, err := db.Query(
		`SELECT frame_start, frame_end, distance FROM measurement_rows WHERE project_id = ? ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load measurement rows: %w", err)
	}
	defer rows.Close()

	var out []segment.Raw
	for rows.Next() {
		var fs, fe, d string
		if err := rows.Scan(&fs, &fe, &d); err != nil {
			return nil, err
		}
		out = append(out, segment.Raw{
			FrameStart: segment.Field(fs),
			FrameEnd:   segment.Field(fe),
			Distance:   segment.Field(d),
		})
	}
	return out, rows.Err()
}

// SaveNodes snapshots the last computed node list. The snapshot is display
// data for reports; solver state is always rebuilt from the measurement rows
// on load.
func (db *DB) SaveNodes(id string, nodes []profile.Node) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM profile_nodes WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear profile nodes: %w", err)
	}
	for i, n := range nodes {
		_, err := tx.Exec(
			`INSERT INTO profile_nodes (project_id, node_index, node_time, velocity) VALUES (?, ?, ?, ?)`,
			id, i, n.Time, n.Velocity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert node %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Nodes returns the last saved node snapshot.
func (db *DB) Nodes(id string) ([]profile.Node, error) {
	return db.queryPoints(`SELECT node_time, velocity FROM profile_nodes WHERE project_id = ? ORDER BY node_index`, id)
}

// SaveGroundTruth replaces the project's ground-truth reference trace.
func (db *DB) SaveGroundTruth(id string, points []profile.Node) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM ground_truth_points WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear ground truth: %w", err)
	}
	for i, p := range points {
		_, err := tx.Exec(
			`INSERT INTO ground_truth_points (project_id, point_index, point_time, velocity) VALUES (?, ?, ?, ?)`,
			id, i, p.Time, p.Velocity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert ground truth point %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GroundTruth returns the project's reference trace, if any.
func (db *DB) GroundTruth(id string) ([]profile.Node, error) {
	return db.queryPoints(`SELECT point_time, velocity FROM ground_truth_points WHERE project_id = ? ORDER BY point_index`, id)
}

func (db *DB) queryPoints(query, id string) ([]profile.Node, error) {
	rows, err := db.Query(query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []profile.Node
	for rows.Next() {
		var n profile.Node
		if err := rows.Scan(&n.Time, &n.Velocity); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
