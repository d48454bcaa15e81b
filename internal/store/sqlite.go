package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/keepnetics/waterzone/internal/ingest"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
PRAGMA journal_mode=WAL;
CREATE TABLE IF NOT EXISTS zones (
  zone_code TEXT PRIMARY KEY,
  zone_title TEXT,
  population INTEGER,
  period_start TEXT,
  period_end TEXT,
  pdf_path TEXT
);
CREATE TABLE IF NOT EXISTS postcodes (
  postcode TEXT PRIMARY KEY,
  zone_code TEXT,
  FOREIGN KEY(zone_code) REFERENCES zones(zone_code)
);
CREATE TABLE IF NOT EXISTS measurements (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  zone_code TEXT,
  parameter TEXT,
  parameter_norm TEXT,
  category TEXT,
  units TEXT,
  regulatory_limit TEXT,
  min_val TEXT,
  mean_val TEXT,
  max_val TEXT,
  samples_total INTEGER,
  samples_contrav INTEGER,
  pct_contrav TEXT,
  FOREIGN KEY(zone_code) REFERENCES zones(zone_code)
);
CREATE INDEX IF NOT EXISTS idx_meas_zone ON measurements(zone_code);
`

// ErrNotFound is returned by reads when the key has no row.
var ErrNotFound = errors.New("not found")

// SQLiteProvider implements Provider on a local SQLite database via sqlx.
type SQLiteProvider struct {
	DB *sqlx.DB
}

// NewSQLiteProvider opens (creating if necessary) the database at path
// and applies the schema.
func NewSQLiteProvider(ctx context.Context, path string) (*SQLiteProvider, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}
	// The driver serializes access itself, but one writer at a time
	// avoids SQLITE_BUSY on the per-zone transactions.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteProvider{DB: db}, nil
}

// NormalizePostcode canonicalizes a postcode for use as a primary key.
func NormalizePostcode(postcode string) string {
	return strings.ToUpper(strings.TrimSpace(postcode))
}

// IngestZone runs the whole per-zone write in one transaction: zone
// upsert (all columns overwritten, last write wins), postcode mapping
// upsert, then delete-and-insert of the measurement set. A reader never
// observes the zone with a partial measurement set.
func (p *SQLiteProvider) IngestZone(
	ctx context.Context,
	code string,
	meta ingest.ZoneMeta,
	pdfPath string,
	postcode string,
	records []ingest.Measurement,
) error {
	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin for %s: %w", ingest.ErrStoreFailed, code, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertZone(ctx, tx, code, meta, pdfPath); err != nil {
		return fmt.Errorf("%w: %w", ingest.ErrStoreFailed, err)
	}
	if postcode != "" {
		if err := upsertPostcode(ctx, tx, postcode, code); err != nil {
			return fmt.Errorf("%w: %w", ingest.ErrStoreFailed, err)
		}
	}
	if err := replaceMeasurements(ctx, tx, code, records); err != nil {
		return fmt.Errorf("%w: %w", ingest.ErrStoreFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit for %s: %w", ingest.ErrStoreFailed, code, err)
	}
	return nil
}

// MapPostcode upserts only the postcode mapping, for rows whose zone was
// already ingested earlier in the batch.
func (p *SQLiteProvider) MapPostcode(ctx context.Context, postcode, code string) error {
	if err := upsertPostcode(ctx, p.DB, postcode, code); err != nil {
		return err
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertZone(ctx context.Context, e execer, code string, meta ingest.ZoneMeta, pdfPath string) error {
	query := `
		INSERT INTO zones(zone_code, zone_title, population, period_start, period_end, pdf_path)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(zone_code) DO UPDATE SET
		  zone_title=excluded.zone_title,
		  population=excluded.population,
		  period_start=excluded.period_start,
		  period_end=excluded.period_end,
		  pdf_path=excluded.pdf_path
	`
	if _, err := e.ExecContext(ctx, query,
		code, nullable(meta.Title), meta.Population,
		nullable(meta.PeriodStart), nullable(meta.PeriodEnd), pdfPath,
	); err != nil {
		return fmt.Errorf("upsert zone %s: %w", code, err)
	}
	return nil
}

func upsertPostcode(ctx context.Context, e execer, postcode, code string) error {
	query := `
		INSERT INTO postcodes(postcode, zone_code)
		VALUES (?, ?)
		ON CONFLICT(postcode) DO UPDATE SET zone_code=excluded.zone_code
	`
	if _, err := e.ExecContext(ctx, query, NormalizePostcode(postcode), code); err != nil {
		return fmt.Errorf("upsert postcode %s: %w", postcode, err)
	}
	return nil
}

func replaceMeasurements(ctx context.Context, e execer, code string, records []ingest.Measurement) error {
	if _, err := e.ExecContext(ctx, `DELETE FROM measurements WHERE zone_code = ?`, code); err != nil {
		return fmt.Errorf("delete measurements for %s: %w", code, err)
	}
	query := `
		INSERT INTO measurements(zone_code, parameter, parameter_norm, category, units,
		  regulatory_limit, min_val, mean_val, max_val, samples_total, samples_contrav, pct_contrav)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, r := range records {
		if _, err := e.ExecContext(ctx, query,
			code, r.Parameter, r.ParameterNorm, r.Category, r.Units,
			r.RegulatoryLimit, r.Min, r.Mean, r.Max,
			r.SamplesTotal, r.SamplesContrav, r.PctContrav,
		); err != nil {
			return fmt.Errorf("insert measurement %q for %s: %w", r.Parameter, code, err)
		}
	}
	return nil
}

// ZoneForPostcode resolves a postcode to its mapped zone code.
func (p *SQLiteProvider) ZoneForPostcode(ctx context.Context, postcode string) (string, error) {
	var code string
	err := p.DB.GetContext(ctx, &code,
		`SELECT zone_code FROM postcodes WHERE postcode = ?`, NormalizePostcode(postcode))
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("zone for postcode %s: %w", postcode, err)
	}
	return code, nil
}

// Zone returns the persisted metadata for a zone code.
func (p *SQLiteProvider) Zone(ctx context.Context, code string) (ZoneRecord, error) {
	var z ZoneRecord
	err := p.DB.GetContext(ctx, &z, `
		SELECT zone_code, zone_title, population, period_start, period_end, pdf_path
		FROM zones WHERE zone_code = ?`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return ZoneRecord{}, ErrNotFound
	}
	if err != nil {
		return ZoneRecord{}, fmt.Errorf("zone %s: %w", code, err)
	}
	return z, nil
}

// MeasurementsForZone returns the full current measurement set, ordered
// by parameter name, case folded.
func (p *SQLiteProvider) MeasurementsForZone(ctx context.Context, code string) ([]MeasurementRecord, error) {
	var out []MeasurementRecord
	err := p.DB.SelectContext(ctx, &out, `
		SELECT parameter, parameter_norm, category, units, regulatory_limit,
		       min_val, mean_val, max_val, samples_total, samples_contrav, pct_contrav
		FROM measurements WHERE zone_code = ? ORDER BY parameter COLLATE NOCASE`, code)
	if err != nil {
		return nil, fmt.Errorf("measurements for %s: %w", code, err)
	}
	return out, nil
}

// Close shuts down the database handle.
func (p *SQLiteProvider) Close() error {
	if err := p.DB.Close(); err != nil {
		return fmt.Errorf("failed to close sqlite: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
