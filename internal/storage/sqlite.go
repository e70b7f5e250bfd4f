package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"citeclust/internal/consolidate"
	"citeclust/internal/graph"
	"citeclust/internal/partition"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS citations (
			seq INTEGER PRIMARY KEY,
			source TEXT NOT NULL,
			target TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS nodes (
			seq INTEGER PRIMARY KEY,
			id TEXT NOT NULL UNIQUE
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			mode TEXT,
			resolution REAL,
			nmin INTEGER,
			workers INTEGER,
			clusters INTEGER,
			unassigned INTEGER,
			created_at TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS partitions (
			run_id TEXT,
			stage TEXT,
			node TEXT,
			cluster INTEGER,
			PRIMARY KEY (run_id, stage, node)
		);`,
		`CREATE TABLE IF NOT EXISTS merges (
			run_id TEXT,
			small INTEGER,
			large INTEGER,
			PRIMARY KEY (run_id, small)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_citations_source ON citations(source);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- CitationStore Implementation ---

func (s *SQLiteStore) SaveGraph(ctx context.Context, g *graph.Graph) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Snapshot semantics: the stored graph mirrors g exactly.
	if _, err := tx.ExecContext(ctx, `DELETE FROM citations`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
		return err
	}

	// 1. Save Nodes (isolated nodes have no citation row)
	nodeStmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes (seq, id) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()

	for i, id := range g.Nodes() {
		if _, err := nodeStmt.ExecContext(ctx, i, id); err != nil {
			return err
		}
	}

	// 2. Save Edges, duplicates included
	edgeStmt, err := tx.PrepareContext(ctx, `INSERT INTO citations (seq, source, target) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	for i, edge := range g.Edges {
		if _, err := edgeStmt.ExecContext(ctx, i, edge.From, edge.To); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadGraph(ctx context.Context) (*graph.Graph, error) {
	g := graph.NewGraph()

	// 1. Load Nodes
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM nodes ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		g.AddNode(id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 2. Load Edges
	edgeRows, err := s.db.QueryContext(ctx, "SELECT source, target FROM citations ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query citations: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var from, to string
		if err := edgeRows.Scan(&from, &to); err != nil {
			return nil, fmt.Errorf("failed to scan citation: %w", err)
		}
		g.AddEdge(from, to)
	}

	return g, edgeRows.Err()
}

// --- PartitionStore Implementation ---

// CreateRun inserts run, assigning an ID and timestamp when unset.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, mode, resolution, nmin, workers, clusters, unassigned, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Mode, run.Resolution, run.NMin, run.Workers, run.Clusters, run.Unassigned, run.CreatedAt)
	return err
}

func (s *SQLiteStore) UpdateRunStats(ctx context.Context, id string, clusters, unassigned int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET clusters = ?, unassigned = ? WHERE id = ?`, clusters, unassigned, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

const runColumns = "id, mode, resolution, nmin, workers, clusters, unassigned, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	if err := row.Scan(&r.ID, &r.Mode, &r.Resolution, &r.NMin, &r.Workers, &r.Clusters, &r.Unassigned, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// ListRuns returns all runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY created_at DESC, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) SavePartition(ctx context.Context, runID string, stage Stage, p partition.Partition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM partitions WHERE run_id = ? AND stage = ?`, runID, string(stage)); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO partitions (run_id, stage, node, cluster) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, node := range p.Nodes() {
		if _, err := stmt.ExecContext(ctx, runID, string(stage), node, int64(p[node])); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadPartition(ctx context.Context, runID string, stage Stage) (partition.Partition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT node, cluster FROM partitions WHERE run_id = ? AND stage = ?`, runID, string(stage))
	if err != nil {
		return nil, fmt.Errorf("failed to query partition: %w", err)
	}
	defer rows.Close()

	p := partition.Partition{}
	for rows.Next() {
		var node string
		var cluster int64
		if err := rows.Scan(&node, &cluster); err != nil {
			return nil, fmt.Errorf("failed to scan partition row: %w", err)
		}
		p[node] = partition.ClusterID(cluster)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("no %s partition for run %s", stage, runID)
	}
	return p, nil
}

func (s *SQLiteStore) SaveMerges(ctx context.Context, runID string, m consolidate.Mapping) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM merges WHERE run_id = ?`, runID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO merges (run_id, small, large) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for small, large := range m {
		if _, err := stmt.ExecContext(ctx, runID, int64(small), int64(large)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadMerges(ctx context.Context, runID string) (consolidate.Mapping, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT small, large FROM merges WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := consolidate.Mapping{}
	for rows.Next() {
		var small, large int64
		if err := rows.Scan(&small, &large); err != nil {
			return nil, err
		}
		m[partition.ClusterID(small)] = partition.ClusterID(large)
	}
	return m, rows.Err()
}
