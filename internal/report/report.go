// Package report builds the per-postcode water quality summary from
// stored measurements: detection flags, category rollups and the
// hardness label.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/keepnetics/waterzone/internal/ingest"
	"github.com/keepnetics/waterzone/internal/store"
)

// Entry is one measurement in the report table.
type Entry struct {
	Parameter       string  `json:"parameter"`
	ParameterNorm   string  `json:"parameter_norm"`
	Category        string  `json:"category"`
	Units           *string `json:"units"`
	RegulatoryLimit *string `json:"regulatory_limit"`
	Min             *string `json:"min_val"`
	Mean            *string `json:"mean_val"`
	Max             *string `json:"max_val"`
	SamplesTotal    *int    `json:"samples_total"`
	SamplesContrav  *int    `json:"samples_contrav"`
	Detected        bool    `json:"detected"`
}

// Counts rolls up detected parameters per category.
type Counts struct {
	HeavyMetals int `json:"heavy_metals"`
	Chemicals   int `json:"chemicals"`
	Pesticides  int `json:"pesticides"`
	Total       int `json:"total"`
}

// Lists names the detected parameters per category, sorted.
type Lists struct {
	HeavyMetals []string `json:"heavy_metals"`
	Chemicals   []string `json:"chemicals"`
	Pesticides  []string `json:"pesticides"`
}

// Report is the full per-postcode summary.
type Report struct {
	Postcode    string  `json:"postcode"`
	ZoneCode    string  `json:"zone_code"`
	ZoneTitle   *string `json:"zone_title"`
	Population  *int    `json:"population"`
	PeriodStart *string `json:"period_start"`
	PeriodEnd   *string `json:"period_end"`
	Hardness    string  `json:"hardness"`
	Counts      Counts  `json:"counts"`
	Lists       Lists   `json:"lists"`
	Table       []Entry `json:"table"`
}

// Build assembles a report for a postcode, or store.ErrNotFound when
// the postcode has no zone mapping.
func Build(ctx context.Context, r store.Reader, postcode string) (Report, error) {
	zone, err := r.ZoneForPostcode(ctx, postcode)
	if err != nil {
		return Report{}, fmt.Errorf("resolve postcode %s: %w", postcode, err)
	}

	rep := Report{Postcode: postcode, ZoneCode: zone, Hardness: ingest.HardnessUnknown}

	meta, err := r.Zone(ctx, zone)
	if err == nil {
		rep.ZoneTitle = meta.ZoneTitle
		rep.Population = meta.Population
		rep.PeriodStart = meta.PeriodStart
		rep.PeriodEnd = meta.PeriodEnd
	} else if err != store.ErrNotFound {
		return Report{}, fmt.Errorf("load zone %s: %w", zone, err)
	}

	records, err := r.MeasurementsForZone(ctx, zone)
	if err != nil {
		return Report{}, fmt.Errorf("load measurements for %s: %w", zone, err)
	}

	heavy := map[string]struct{}{}
	chem := map[string]struct{}{}
	pest := map[string]struct{}{}

	for _, m := range records {
		e := Entry{
			Parameter:       m.Parameter,
			ParameterNorm:   m.ParameterNorm,
			Category:        m.Category,
			Units:           m.Units,
			RegulatoryLimit: m.RegulatoryLimit,
			Min:             m.Min,
			Mean:            m.Mean,
			Max:             m.Max,
			SamplesTotal:    m.SamplesTotal,
			SamplesContrav:  m.SamplesContrav,
			Detected:        detected(m),
		}
		if e.Detected {
			switch m.Category {
			case string(ingest.CategoryHeavyMetal):
				heavy[m.Parameter] = struct{}{}
			case string(ingest.CategoryPesticide):
				pest[m.Parameter] = struct{}{}
			default:
				chem[m.Parameter] = struct{}{}
			}
		}
		if strings.Contains(strings.ToLower(m.Parameter), "hardness") && rep.Hardness == ingest.HardnessUnknown {
			rep.Hardness = hardnessFromMean(m.Mean)
		}

		rep.Table = append(rep.Table, e)
	}

	rep.Counts = Counts{
		HeavyMetals: len(heavy),
		Chemicals:   len(chem),
		Pesticides:  len(pest),
		Total:       len(heavy) + len(chem) + len(pest),
	}
	rep.Lists = Lists{
		HeavyMetals: sortedKeys(heavy),
		Chemicals:   sortedKeys(chem),
		Pesticides:  sortedKeys(pest),
	}
	return rep, nil
}

// detected reports whether the parameter was measured above zero: a
// coercible max or mean strictly greater than zero.
func detected(m store.MeasurementRecord) bool {
	if v, ok := coercePtr(m.Max); ok && v > 0 {
		return true
	}
	if v, ok := coercePtr(m.Mean); ok && v > 0 {
		return true
	}
	return false
}

func hardnessFromMean(mean *string) string {
	v, ok := coercePtr(mean)
	if !ok {
		return ingest.HardnessUnknown
	}
	switch {
	case v <= 100:
		return ingest.HardnessSoft
	case v <= 200:
		return ingest.HardnessModerate
	default:
		return ingest.HardnessHard
	}
}

func coercePtr(s *string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	return ingest.Coerce(*s)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
