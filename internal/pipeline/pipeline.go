// Package pipeline drives one ingestion batch: for each input row it
// resolves the zone document, extracts measurements at most once per
// zone, and persists the results. Failures are row-scoped; a bad
// document never aborts the batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/keepnetics/waterzone/internal/ingest"
	"github.com/keepnetics/waterzone/internal/telemetry"
)

// Summary reports what one batch run did.
type Summary struct {
	RunID         string
	RowsTotal     int
	RowsSkipped   int
	ZonesIngested int
	ZonesReused   int
	Unavailable   int
	ExtractErrors int
	StoreErrors   int
	Measurements  int
}

// Driver runs batches sequentially against the shared origin.
type Driver struct {
	source    ingest.RowSource
	fetcher   ingest.Fetcher
	extractor ingest.Extractor
	annotate  func(ingest.RawRecord) ingest.Measurement
	store     ingest.Store
	pause     time.Duration
	clock     clockwork.Clock
	logger    *zap.Logger
}

// New wires a Driver. annotate classifies a raw record into a
// persistable measurement; pause is the rest between processed zones on
// top of the fetcher's own rate limiting.
func New(
	source ingest.RowSource,
	fetcher ingest.Fetcher,
	extractor ingest.Extractor,
	annotate func(ingest.RawRecord) ingest.Measurement,
	store ingest.Store,
	pause time.Duration,
	clock clockwork.Clock,
	logger *zap.Logger,
) *Driver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		source:    source,
		fetcher:   fetcher,
		extractor: extractor,
		annotate:  annotate,
		store:     store,
		pause:     pause,
		clock:     clock,
		logger:    logger,
	}
}

// Run processes every input row in order. The returned Summary is valid
// even on error; the only hard errors are input-source failure and
// context cancellation.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	log := d.logger.With(zap.String("run_id", sum.RunID))

	rows, err := d.source.Rows()
	if err != nil {
		return sum, fmt.Errorf("load input rows: %w", err)
	}
	sum.RowsTotal = len(rows)
	log.Info("batch started", zap.Int("rows", len(rows)))

	// Zones already extracted this run, keyed by the canonical
	// identifier the fetch resolved. Later rows for the same zone only
	// add a postcode mapping.
	seen := make(map[string]struct{})

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		rowLog := log.With(
			zap.Int("row", i+1),
			zap.String("postcode", row.Postcode),
			zap.String("zone_input", row.ZoneID),
		)

		if row.ZoneID == "" {
			sum.RowsSkipped++
			rowLog.Debug("no zone identifier, skipping row")
			continue
		}

		if err := d.processRow(ctx, row, seen, &sum, rowLog); err != nil {
			return sum, err
		}
	}

	log.Info("batch finished",
		zap.Int("zones_ingested", sum.ZonesIngested),
		zap.Int("zones_reused", sum.ZonesReused),
		zap.Int("unavailable", sum.Unavailable),
		zap.Int("extract_errors", sum.ExtractErrors),
		zap.Int("store_errors", sum.StoreErrors),
		zap.Int("measurements", sum.Measurements),
	)
	return sum, nil
}

func (d *Driver) processRow(ctx context.Context, row ingest.Row, seen map[string]struct{}, sum *Summary, log *zap.Logger) error {
	doc, err := d.fetcher.Fetch(ctx, row.ZoneID)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		if errors.Is(err, ingest.ErrDocumentUnavailable) {
			sum.Unavailable++
			telemetry.CountRowFailed("fetch")
			log.Warn("document unavailable", zap.Error(err))
			return nil
		}
		sum.Unavailable++
		telemetry.CountRowFailed("fetch")
		log.Warn("fetch failed", zap.Error(err))
		return nil
	}

	zoneLog := log.With(zap.String("zone", doc.Zone))

	if _, ok := seen[doc.Zone]; ok {
		if err := d.store.MapPostcode(ctx, row.Postcode, doc.Zone); err != nil {
			sum.StoreErrors++
			telemetry.CountRowFailed("store")
			zoneLog.Error("postcode mapping failed", zap.Error(err))
			return nil
		}
		sum.ZonesReused++
		zoneLog.Debug("zone already ingested, mapped postcode only")
		return nil
	}

	records, meta, err := d.extractor.Extract(doc.Body)
	if err != nil {
		sum.ExtractErrors++
		telemetry.CountRowFailed("extract")
		zoneLog.Warn("extraction failed", zap.Error(err))
		return nil
	}

	measurements := make([]ingest.Measurement, 0, len(records))
	for _, r := range records {
		measurements = append(measurements, d.annotate(r))
	}

	if err := d.store.IngestZone(ctx, doc.Zone, meta, doc.Path, row.Postcode, measurements); err != nil {
		sum.StoreErrors++
		telemetry.CountRowFailed("store")
		zoneLog.Error("zone ingest failed", zap.Error(err))
		return nil
	}

	seen[doc.Zone] = struct{}{}
	sum.ZonesIngested++
	sum.Measurements += len(measurements)
	telemetry.CountZoneIngested()
	telemetry.AddMeasurements(len(measurements))

	zoneLog.Info("zone ingested",
		zap.String("title", meta.Title),
		zap.String("period_start", meta.PeriodStart),
		zap.String("period_end", meta.PeriodEnd),
		zap.String("hardness", ingest.HardnessLabel(records)),
		zap.Int("measurements", len(measurements)),
	)

	if d.pause > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.clock.After(d.pause):
		}
	}
	return nil
}
