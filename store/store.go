// Package store persists gyration analyses of trajectories in a SQLite database.
// Each call to SaveGyration creates a run, identified by a UUID, with one row per frame.
// Undefined descriptors (NaN or Inf) are stored as NULL.
package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/rmera/mdtrj"
)

//go:embed schema.sql
var schemaSQL string

// DB is a database of analysis runs.
type DB struct {
	*sql.DB
}

// Open opens (creating it if needed) the database at path, and makes sure the schema exists.
// Use ":memory:" for a temporary, in-memory database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		//every connection to :memory: is a different database.
		db.SetMaxOpenConns(1)
	}
	if _, err = db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	log.Debug().Str("path", path).Msg("initialized analysis database schema")
	return &DB{db}, nil
}

// Run describes one stored analysis.
type Run struct {
	ID          uuid.UUID
	Source      string
	Frames      int
	Failed      int
	CreatedAtNs int64
}

// FrameRow contains the stored descriptors of one frame. Undefined values are NaN.
type FrameRow struct {
	Frame         int
	Atoms         int
	Rg            float64
	Asphericity   float64
	Acylindricity float64
	Anisotropy    float64
	Tan2XG        [3]float64
	Degenerate    mdtrj.DegenerateFlags
	Error         string
}

func nullFloat64(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// SaveGyration stores the series as a new run, with source (usually the trajectory
// file) as description, in a single transaction. It returns the id of the run.
func (D *DB) SaveGyration(source string, series *mdtrj.GyrationSeries) (uuid.UUID, error) {
	if series == nil {
		return uuid.Nil, errors.New("save gyration: nil series")
	}
	id := uuid.New()
	frameErrors := make(map[int]string)
	for _, e := range series.Errors() {
		frameErrors[e.Frame] = e.Err.Error()
	}
	for _, e := range series.Warnings() {
		if _, ok := frameErrors[e.Frame]; !ok {
			frameErrors[e.Frame] = e.Err.Error()
		}
	}
	tx, err := D.Begin()
	if err != nil {
		return uuid.Nil, fmt.Errorf("save gyration: %w", err)
	}
	defer tx.Rollback()
	_, err = tx.Exec(`INSERT INTO runs (run_id, source, frames, failed, created_at_ns) VALUES (?, ?, ?, ?, ?)`,
		id.String(), source, series.Len(), len(series.Errors()), time.Now().UnixNano())
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO gyration (
			run_id, frame, atoms, rg, asphericity, acylindricity, anisotropy,
			tan2xy, tan2xz, tan2yz, degenerate, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return uuid.Nil, fmt.Errorf("prepare frame insert: %w", err)
	}
	defer stmt.Close()
	for i := 0; i < series.Len(); i++ {
		var errText sql.NullString
		if e, ok := frameErrors[i]; ok {
			errText = sql.NullString{String: e, Valid: true}
		}
		S := series.Shape(i)
		if S == nil {
			S = &mdtrj.Shape{Rg: math.NaN(), Asphericity: math.NaN(), Acylindricity: math.NaN(),
				Anisotropy: math.NaN(), Tan2XG: [3]float64{math.NaN(), math.NaN(), math.NaN()}}
		}
		_, err = stmt.Exec(id.String(), i, S.Atoms,
			nullFloat64(S.Rg),
			nullFloat64(S.Asphericity),
			nullFloat64(S.Acylindricity),
			nullFloat64(S.Anisotropy),
			nullFloat64(S.Tan2XG[0]),
			nullFloat64(S.Tan2XG[1]),
			nullFloat64(S.Tan2XG[2]),
			int(S.Degenerate),
			errText,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert frame %d: %w", i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit run: %w", err)
	}
	log.Info().Str("run", id.String()).Int("frames", series.Len()).Msg("gyration run stored")
	return id, nil
}

// LoadGyration returns the frames of the run id, in frame order.
func (D *DB) LoadGyration(id uuid.UUID) ([]FrameRow, error) {
	var exists int
	err := D.QueryRow(`SELECT COUNT(*) FROM runs WHERE run_id = ?`, id.String()).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	rows, err := D.Query(`
		SELECT frame, atoms, rg, asphericity, acylindricity, anisotropy,
		       tan2xy, tan2xz, tan2yz, degenerate, error
		FROM gyration
		WHERE run_id = ?
		ORDER BY frame
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()
	var ret []FrameRow
	for rows.Next() {
		var r FrameRow
		var rg, b, c, k2, txy, txz, tyz sql.NullFloat64
		var deg int
		var errText sql.NullString
		if err := rows.Scan(&r.Frame, &r.Atoms, &rg, &b, &c, &k2, &txy, &txz, &tyz, &deg, &errText); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		r.Rg, r.Asphericity, r.Acylindricity, r.Anisotropy = fromNull(rg), fromNull(b), fromNull(c), fromNull(k2)
		r.Tan2XG = [3]float64{fromNull(txy), fromNull(txz), fromNull(tyz)}
		r.Degenerate = mdtrj.DegenerateFlags(deg)
		r.Error = errText.String
		ret = append(ret, r)
	}
	return ret, rows.Err()
}

// Runs returns all stored runs, oldest first.
func (D *DB) Runs() ([]Run, error) {
	rows, err := D.Query(`SELECT run_id, source, frames, failed, created_at_ns FROM runs ORDER BY created_at_ns, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	var ret []Run
	for rows.Next() {
		var r Run
		var id string
		if err := rows.Scan(&id, &r.Source, &r.Frames, &r.Failed, &r.CreatedAtNs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse run id %q: %w", id, err)
		}
		ret = append(ret, r)
	}
	return ret, rows.Err()
}
