package extract

import (
	"errors"
	"testing"

	"github.com/keepnetics/waterzone/internal/ingest"
)

// line builds a Line from (x, text) pairs at a fixed baseline.
func line(cells ...Cell) Line {
	return Line{Cells: cells}
}

func headerLine() Line {
	return line(
		Cell{X: 10, Text: "Parameter"},
		Cell{X: 150, Text: "Units"},
		Cell{X: 220, Text: "Regulatory Limit"},
		Cell{X: 320, Text: "Min"},
		Cell{X: 370, Text: "Mean"},
		Cell{X: 420, Text: "Max"},
		Cell{X: 470, Text: "Total number of samples"},
		Cell{X: 560, Text: "Number contravening"},
	)
}

func TestExtractMeta(t *testing.T) {
	t.Parallel()

	lines := []Line{
		line(Cell{X: 10, Text: "Water Supply Zone: Fortis Green  Population: 112,334"}),
		line(Cell{X: 10, Text: "Time Period: 01 January 2024  to  31 December 2024"}),
	}

	meta := extractMeta(lines)
	if meta.Title != "Fortis Green" {
		t.Fatalf("expected title Fortis Green, got %q", meta.Title)
	}
	if meta.Population == nil || *meta.Population != 112334 {
		t.Fatalf("expected population 112334, got %v", meta.Population)
	}
	if meta.PeriodStart != "01 January 2024" || meta.PeriodEnd != "31 December 2024" {
		t.Fatalf("unexpected period: %q to %q", meta.PeriodStart, meta.PeriodEnd)
	}
}

func TestExtractMetaAbsent(t *testing.T) {
	t.Parallel()

	meta := extractMeta([]Line{line(Cell{X: 10, Text: "Annual water quality summary"})})
	if meta.Title != "" || meta.Population != nil || meta.PeriodStart != "" {
		t.Fatalf("expected empty metadata, got %+v", meta)
	}
}

func TestExtractTableRows(t *testing.T) {
	t.Parallel()

	lines := []Line{
		line(Cell{X: 10, Text: "Water Supply Zone: Somewhere  Population: 5,000"}),
		headerLine(),
		line(
			Cell{X: 10, Text: "Lead"},
			Cell{X: 150, Text: "µg/l"},
			Cell{X: 220, Text: "10"},
			Cell{X: 320, Text: "<0.1"},
			Cell{X: 370, Text: "0.3"},
			Cell{X: 420, Text: "1.2"},
			Cell{X: 470, Text: "24"},
			Cell{X: 560, Text: "0"},
		),
		// Sparse row: only some columns printed.
		line(
			Cell{X: 10, Text: "Taste"},
			Cell{X: 150, Text: "Dilution"},
			Cell{X: 370, Text: "0"},
			Cell{X: 470, Text: "4"},
		),
		line(), // page break mid-table
		line(
			Cell{X: 10, Text: "Nitrate as NO3"},
			Cell{X: 150, Text: "mg/l"},
			Cell{X: 220, Text: "50"},
			Cell{X: 320, Text: "18.2"},
			Cell{X: 370, Text: "24.1"},
			Cell{X: 420, Text: "31.5"},
			Cell{X: 470, Text: "12"},
			Cell{X: 560, Text: "0"},
		),
	}

	records := extractTableRows(lines)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %+v", len(records), records)
	}

	lead := records[0]
	if lead.Parameter != "Lead" || lead.Units != "µg/l" || lead.Min != "<0.1" || lead.Mean != "0.3" {
		t.Fatalf("unexpected lead record: %+v", lead)
	}
	if lead.SamplesTotal != "24" || lead.Contravening != "0" {
		t.Fatalf("unexpected lead sample counts: %+v", lead)
	}

	taste := records[1]
	if taste.Parameter != "Taste" || taste.Mean != "0" || taste.SamplesTotal != "4" {
		t.Fatalf("unexpected sparse record: %+v", taste)
	}
	if taste.Min != "" || taste.Max != "" {
		t.Fatalf("expected unprinted cells to stay empty: %+v", taste)
	}

	if records[2].Parameter != "Nitrate as NO3" {
		t.Fatalf("expected table to continue across page break: %+v", records[2])
	}
}

func TestExtractTableRowsIgnoresTrailingProse(t *testing.T) {
	t.Parallel()

	lines := []Line{
		headerLine(),
		line(
			Cell{X: 10, Text: "Lead"},
			Cell{X: 150, Text: "µg/l"},
			Cell{X: 220, Text: "10"},
			Cell{X: 320, Text: "<0.1"},
			Cell{X: 370, Text: "0.3"},
			Cell{X: 420, Text: "1.2"},
			Cell{X: 470, Text: "24"},
			Cell{X: 560, Text: "0"},
		),
		// Left-aligned prose below the table lands wholly in the
		// parameter column and must not become measurement rows.
		line(Cell{X: 10, Text: "Results marked * are provisional."}),
		line(Cell{X: 10, Text: "Issued under the Water Quality Regulations 2016."}),
		line(Cell{X: 10, Text: "Page 2 of 2"}),
	}

	records := extractTableRows(lines)
	if len(records) != 1 {
		t.Fatalf("expected footnotes to be dropped, got %d records: %+v", len(records), records)
	}
	if records[0].Parameter != "Lead" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestExtractTableRowsResumesAfterSingleStrayLine(t *testing.T) {
	t.Parallel()

	lines := []Line{
		headerLine(),
		line(
			Cell{X: 10, Text: "Lead"},
			Cell{X: 150, Text: "µg/l"},
			Cell{X: 320, Text: "<0.1"},
			Cell{X: 370, Text: "0.3"},
		),
		// A wrapped parameter name prints alone on its own line.
		line(Cell{X: 10, Text: "(dissolved)"}),
		line(
			Cell{X: 10, Text: "Iron"},
			Cell{X: 150, Text: "µg/l"},
			Cell{X: 370, Text: "12"},
		),
	}

	records := extractTableRows(lines)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(records), records)
	}
	if records[0].Parameter != "Lead" || records[1].Parameter != "Iron" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestExtractTableRowsNoHeader(t *testing.T) {
	t.Parallel()

	lines := []Line{
		line(Cell{X: 10, Text: "Lead"}, Cell{X: 150, Text: "µg/l"}),
	}
	if got := extractTableRows(lines); got != nil {
		t.Fatalf("expected no records without a header, got %+v", got)
	}
}

func TestExtractTextRows(t *testing.T) {
	t.Parallel()

	lines := []Line{
		line(Cell{X: 10, Text: "Parameter"}, Cell{X: 100, Text: "Units"}, Cell{X: 180, Text: "Regulatory Limit"}),
		line(
			Cell{X: 10, Text: "Lead"},
			Cell{X: 100, Text: "µg/l"},
			Cell{X: 180, Text: "10"},
			Cell{X: 260, Text: "<0.1"},
			Cell{X: 320, Text: "0.3"},
			Cell{X: 380, Text: "1.2"},
			Cell{X: 440, Text: "24"},
			Cell{X: 500, Text: "0"},
			Cell{X: 560, Text: "0.0"},
		),
		// Too few segments: noise line, skipped.
		line(Cell{X: 10, Text: "continued overleaf"}),
		line(
			Cell{X: 10, Text: "Iron"},
			Cell{X: 100, Text: "µg/l"},
			Cell{X: 180, Text: "200"},
			Cell{X: 260, Text: "5"},
			Cell{X: 320, Text: "12"},
			Cell{X: 380, Text: "44"},
		),
		line(Cell{X: 10, Text: "Water Supply Zone: Next Zone  Population: 99"}),
		line(
			Cell{X: 10, Text: "Ghost"},
			Cell{X: 100, Text: "µg/l"},
			Cell{X: 180, Text: "1"},
			Cell{X: 260, Text: "1"},
			Cell{X: 320, Text: "1"},
			Cell{X: 380, Text: "1"},
		),
	}

	records := extractTextRows(lines)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(records), records)
	}
	if records[0].Parameter != "Lead" || records[0].PctContravening != "0.0" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[1].Parameter != "Iron" || records[1].Max != "44" {
		t.Fatalf("unexpected second record: %+v", records[1])
	}
	if records[1].SamplesTotal != "" {
		t.Fatalf("expected missing trailing segments to read empty: %+v", records[1])
	}
}

func TestExtractTextRowsStopsAtBlankLine(t *testing.T) {
	t.Parallel()

	lines := []Line{
		line(Cell{X: 10, Text: "Parameter"}, Cell{X: 100, Text: "Units"}, Cell{X: 180, Text: "Regulatory Limit"}),
		line(
			Cell{X: 10, Text: "Lead"},
			Cell{X: 100, Text: "µg/l"},
			Cell{X: 180, Text: "10"},
			Cell{X: 260, Text: "0.1"},
			Cell{X: 320, Text: "0.3"},
			Cell{X: 380, Text: "1.2"},
		),
		line(),
		line(
			Cell{X: 10, Text: "After"},
			Cell{X: 100, Text: "µg/l"},
			Cell{X: 180, Text: "1"},
			Cell{X: 260, Text: "1"},
			Cell{X: 320, Text: "1"},
			Cell{X: 380, Text: "1"},
		),
	}

	records := extractTextRows(lines)
	if len(records) != 1 || records[0].Parameter != "Lead" {
		t.Fatalf("expected extraction to stop at blank line, got %+v", records)
	}
}

func TestExtractBadDocument(t *testing.T) {
	t.Parallel()

	_, _, err := New().Extract([]byte("this is not a pdf"))
	if !errors.Is(err, ingest.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}
