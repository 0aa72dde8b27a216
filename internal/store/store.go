// Package store persists finalized patient records in a local SQLite
// database.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/jackzampolin/form32/internal/record"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	// ErrNotFound is returned when no record matches an ID.
	ErrNotFound = errors.New("record not found")

	// ErrAmbiguousID is returned when an ID prefix matches several records.
	ErrAmbiguousID = errors.New("record id prefix is ambiguous")
)

// StoredRecord is one processed document.
type StoredRecord struct {
	ID          string            `json:"id" yaml:"id"`
	SourcePath  string            `json:"source_path" yaml:"source_path"`
	PatientName string            `json:"patient_name" yaml:"patient_name"`
	ExamDate    string            `json:"exam_date" yaml:"exam_date"` // YYYY-MM-DD when parseable
	ExamCity    string            `json:"exam_city" yaml:"exam_city"`
	ClaimNumber string            `json:"claim_number" yaml:"claim_number"`
	OutputDir   string            `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	Record      *record.Record    `json:"record" yaml:"-"`
	Provenance  record.Provenance `json:"provenance" yaml:"-"`
	Warnings    []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	ProcessedAt time.Time         `json:"processed_at" yaml:"processed_at"`
}

// ListOptions filters List.
type ListOptions struct {
	// Patient matches patient names containing the text, case-insensitively.
	Patient string
	Limit   int
}

// Store is the record database.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers from concurrent batch workers.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("record store opened", "path", path)
	return &Store{db: db, path: path, logger: logger}, nil
}

func migrateUp(db *sql.DB) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	// The migrator is not closed: closing it would close db.
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a record by ID.
func (s *Store) Save(ctx context.Context, r *StoredRecord) error {
	if r.ID == "" {
		return fmt.Errorf("save record: empty id")
	}
	if r.Record == nil {
		return fmt.Errorf("save record %s: no record", r.ID)
	}
	recJSON, err := json.Marshal(r.Record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	prov := r.Provenance
	if prov == nil {
		prov = record.Provenance{}
	}
	provJSON, err := json.Marshal(prov)
	if err != nil {
		return fmt.Errorf("failed to marshal provenance: %w", err)
	}
	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warnJSON, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}
	if r.ProcessedAt.IsZero() {
		r.ProcessedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (id, source_path, patient_name, exam_date, exam_city, claim_number,
			output_dir, record_json, provenance, warnings, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_path = excluded.source_path,
			patient_name = excluded.patient_name,
			exam_date = excluded.exam_date,
			exam_city = excluded.exam_city,
			claim_number = excluded.claim_number,
			output_dir = excluded.output_dir,
			record_json = excluded.record_json,
			provenance = excluded.provenance,
			warnings = excluded.warnings,
			processed_at = excluded.processed_at`,
		r.ID, r.SourcePath, r.PatientName, r.ExamDate, r.ExamCity, r.ClaimNumber,
		r.OutputDir, string(recJSON), string(provJSON), string(warnJSON),
		r.ProcessedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", r.ID, err)
	}
	return nil
}

// timeLayout is fixed width so processed_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const selectColumns = `id, source_path, patient_name, exam_date, exam_city, claim_number,
	output_dir, record_json, provenance, warnings, processed_at`

// Get returns the record with the given ID or unique ID prefix.
func (s *Store) Get(ctx context.Context, id string) (*StoredRecord, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM records WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id = ? DESC LIMIT 2`,
		id, escapeLike(id)+"%", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query record: %w", err)
	}
	defer rows.Close()

	var found []*StoredRecord
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch {
	case len(found) == 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case found[0].ID == id || len(found) == 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
}

// List returns records, most recently processed first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*StoredRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM records`
	var args []any
	if opts.Patient != "" {
		query += ` WHERE lower(patient_name) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(opts.Patient))+"%")
	}
	query += ` ORDER BY processed_at DESC, id`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var out []*StoredRecord
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete removes a record by exact ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func scan(rows *sql.Rows) (*StoredRecord, error) {
	var (
		r                           StoredRecord
		recJSON, provJSON, warnJSON string
		processedAt                 string
	)
	if err := rows.Scan(&r.ID, &r.SourcePath, &r.PatientName, &r.ExamDate, &r.ExamCity, &r.ClaimNumber,
		&r.OutputDir, &recJSON, &provJSON, &warnJSON, &processedAt); err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}
	r.Record = record.New()
	if err := json.Unmarshal([]byte(recJSON), r.Record); err != nil {
		return nil, fmt.Errorf("record %s: corrupt record json: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(provJSON), &r.Provenance); err != nil {
		return nil, fmt.Errorf("record %s: corrupt provenance: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(warnJSON), &r.Warnings); err != nil {
		return nil, fmt.Errorf("record %s: corrupt warnings: %w", r.ID, err)
	}
	t, err := time.Parse(timeLayout, processedAt)
	if err != nil {
		return nil, fmt.Errorf("record %s: bad processed_at: %w", r.ID, err)
	}
	r.ProcessedAt = t
	return &r, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
