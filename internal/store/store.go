// Package store persists zones, postcode mappings and measurements in
// SQLite, and serves the read side consumed by the report front end.
package store

import (
	"context"

	"github.com/keepnetics/waterzone/internal/ingest"
)

// ZoneRecord is the persisted zone row.
type ZoneRecord struct {
	ZoneCode    string  `db:"zone_code"`
	ZoneTitle   *string `db:"zone_title"`
	Population  *int    `db:"population"`
	PeriodStart *string `db:"period_start"`
	PeriodEnd   *string `db:"period_end"`
	PDFPath     *string `db:"pdf_path"`
}

// MeasurementRecord is the persisted measurement row as the read side
// sees it. Statistic fields stay text; readers apply ingest.Coerce.
type MeasurementRecord struct {
	Parameter       string  `db:"parameter"`
	ParameterNorm   string  `db:"parameter_norm"`
	Category        string  `db:"category"`
	Units           *string `db:"units"`
	RegulatoryLimit *string `db:"regulatory_limit"`
	Min             *string `db:"min_val"`
	Mean            *string `db:"mean_val"`
	Max             *string `db:"max_val"`
	SamplesTotal    *int    `db:"samples_total"`
	SamplesContrav  *int    `db:"samples_contrav"`
	PctContrav      *string `db:"pct_contrav"`
}

// Reader is the read-only view handed to the report front end.
type Reader interface {
	ZoneForPostcode(ctx context.Context, postcode string) (string, error)
	Zone(ctx context.Context, code string) (ZoneRecord, error)
	MeasurementsForZone(ctx context.Context, code string) ([]MeasurementRecord, error)
}

// Provider combines the ingestion write interface with the read side.
type Provider interface {
	ingest.Store
	Reader
	Close() error
}
