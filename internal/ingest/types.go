// Package ingest defines core types shared across the ingestion pipeline.
package ingest

import "context"

// Category buckets a measured parameter by what kind of substance it is.
type Category string

// Category values persisted in the measurements table.
const (
	CategoryHeavyMetal Category = "heavy_metal"
	CategoryPesticide  Category = "pesticide"
	CategoryChemical   Category = "chemical"
)

// Row is one input pair from the row source. ZoneID may be empty, in
// which case the row is mapping-skipped by the driver.
type Row struct {
	Postcode string
	ZoneID   string
}

// ZoneMeta holds the header metadata extracted from a zone document.
// Period fields stay free text as printed; they are never parsed to
// calendar types.
type ZoneMeta struct {
	Title       string
	Population  *int
	PeriodStart string
	PeriodEnd   string
}

// RawRecord is one parameter row as extracted from a document, prior to
// classification. All statistic fields keep the original text; callers
// apply Coerce when they need a number.
type RawRecord struct {
	Parameter       string
	Units           string
	RegulatoryLimit string
	Min             string
	Mean            string
	Max             string
	SamplesTotal    string
	Contravening    string
	PctContravening string
}

// Measurement is a classified record ready for persistence.
type Measurement struct {
	Parameter       string `db:"parameter"`
	ParameterNorm   string `db:"parameter_norm"`
	Category        string `db:"category"`
	Units           string `db:"units"`
	RegulatoryLimit string `db:"regulatory_limit"`
	Min             string `db:"min_val"`
	Mean            string `db:"mean_val"`
	Max             string `db:"max_val"`
	SamplesTotal    *int   `db:"samples_total"`
	SamplesContrav  *int   `db:"samples_contrav"`
	PctContrav      string `db:"pct_contrav"`
}

// Document is the result of a successful fetch: the canonical identifier
// that resolved, the cached file path, and the raw bytes.
type Document struct {
	Zone string
	Path string
	Body []byte
}

// Fetcher retrieves a zone document through whatever strategies it has.
type Fetcher interface {
	Fetch(ctx context.Context, zoneID string) (Document, error)
}

// RowSource yields the ordered (postcode, zone) pairs to ingest.
type RowSource interface {
	Rows() ([]Row, error)
}

// Extractor turns document bytes into raw records plus zone metadata.
type Extractor interface {
	Extract(data []byte) ([]RawRecord, ZoneMeta, error)
}

// Store persists zones, postcode mappings and measurements.
type Store interface {
	// IngestZone runs the whole per-zone write in one transaction:
	// upsert the zone row, upsert the postcode mapping, then replace the
	// measurement set for the zone.
	IngestZone(ctx context.Context, code string, meta ZoneMeta, pdfPath string, postcode string, records []Measurement) error
	// MapPostcode upserts only the postcode mapping, used when the zone
	// was already ingested earlier in the batch.
	MapPostcode(ctx context.Context, postcode, code string) error
}
