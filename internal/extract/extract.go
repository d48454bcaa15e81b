// Package extract recovers measurement records and zone metadata from
// water-quality disclosure PDFs. The documents follow one family's
// layout conventions but are not consistent about it, so extraction is
// layered: structured rows reconstructed from glyph positions first,
// then a free-text fallback, degrading to zero records rather than
// guessing.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/keepnetics/waterzone/internal/ingest"
)

var (
	zoneHeaderPattern = regexp.MustCompile(`(?i)Water Supply Zone:\s*(.+?)\s+Population:\s*([\d,]+)`)
	timePeriodPattern = regexp.MustCompile(`(?i)Time Period:\s*([0-9A-Za-z\s]+?)\s+to\s+([0-9A-Za-z\s]+)`)
	textHeaderPattern = regexp.MustCompile(`(?i)parameter\s+units\s+regulatory`)
)

const (
	newZonePrefix       = "water supply zone"
	minFallbackSegments = 6
	// maxStrayLines bounds how many consecutive lines with no cell in a
	// statistic column the table walker tolerates before treating the
	// table as ended. Footnotes and page furniture below the table are
	// left-aligned prose that buckets entirely into the parameter column.
	maxStrayLines = 2
)

// Extractor implements ingest.Extractor for the disclosure PDF family.
type Extractor struct{}

// New returns a PDF extractor.
func New() *Extractor { return &Extractor{} }

// Extract parses document bytes into raw records plus zone metadata.
// A document whose layout matches neither recognized pattern yields zero
// records and empty metadata, not an error; structural parse failures
// (including panics inside the PDF reader) surface as
// ingest.ErrExtractionFailed.
func (e *Extractor) Extract(data []byte) (records []ingest.RawRecord, meta ingest.ZoneMeta, err error) {
	defer func() {
		if r := recover(); r != nil {
			records, meta = nil, ingest.ZoneMeta{}
			err = fmt.Errorf("%w: parser panic: %v", ingest.ErrExtractionFailed, r)
		}
	}()

	lines, readErr := readLines(data)
	if readErr != nil {
		return nil, ingest.ZoneMeta{}, fmt.Errorf("%w: %v", ingest.ErrExtractionFailed, readErr)
	}

	meta = extractMeta(lines)
	records = extractTableRows(lines)
	if len(records) == 0 {
		records = extractTextRows(lines)
	}
	return records, meta, nil
}

// extractMeta scans the concatenated page text for the two fixed-shape
// headers. Both are optional.
func extractMeta(lines []Line) ingest.ZoneMeta {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.Text())
		sb.WriteByte('\n')
	}
	text := sb.String()

	var meta ingest.ZoneMeta
	if m := zoneHeaderPattern.FindStringSubmatch(text); m != nil {
		meta.Title = strings.TrimSpace(m[1])
		if pop, err := strconv.Atoi(strings.ReplaceAll(m[2], ",", "")); err == nil {
			meta.Population = &pop
		}
	}
	if m := timePeriodPattern.FindStringSubmatch(text); m != nil {
		meta.PeriodStart = strings.TrimSpace(m[1])
		meta.PeriodEnd = strings.TrimSpace(m[2])
	}
	return meta
}

// extractTableRows walks the line stream looking for measurement table
// headers and buckets the following lines' cells into the header's
// columns by horizontal position. The walk ends at the next header or
// after a short run of lines carrying no statistic cell, which is where
// the prose below the table starts. Percentage-contravening is not
// recoverable from table layout and stays empty.
func extractTableRows(lines []Line) []ingest.RawRecord {
	var records []ingest.RawRecord
	for i := 0; i < len(lines); i++ {
		header := lines[i]
		if !isHeaderRow(cellTexts(header)) {
			continue
		}
		cols := mapColumns(cellTexts(header))

		stray := 0
		for j := i + 1; j < len(lines); j++ {
			row := lines[j]
			if len(row.Cells) == 0 {
				continue // page break inside the table
			}
			if isHeaderRow(cellTexts(row)) {
				i = j - 1
				break
			}
			cells := bucketByColumn(row, header)
			param := cellAt(cells, cols.parameter)
			if param == "" || !hasStatistic(cells, cols) {
				stray++
				if stray >= maxStrayLines {
					i = j
					break
				}
				continue
			}
			stray = 0
			records = append(records, ingest.RawRecord{
				Parameter:       param,
				Units:           cellAt(cells, cols.units),
				RegulatoryLimit: cellAt(cells, cols.limit),
				Min:             cellAt(cells, cols.min),
				Mean:            cellAt(cells, cols.mean),
				Max:             cellAt(cells, cols.max),
				SamplesTotal:    cellAt(cells, cols.total),
				Contravening:    cellAt(cells, cols.contravening),
			})
			i = j
		}
	}
	return records
}

// hasStatistic reports whether any mapped column beyond the parameter
// name received a cell. A real measurement row always carries at least
// a units or numeric cell; footnote prose does not.
func hasStatistic(cells []string, cols columnMap) bool {
	for _, idx := range [...]int{cols.units, cols.limit, cols.min, cols.mean, cols.max, cols.total, cols.contravening} {
		if cellAt(cells, idx) != "" {
			return true
		}
	}
	return false
}

// bucketByColumn assigns a data line's cells to the header's physical
// columns by left-edge proximity. Cells landing in the same column are
// concatenated.
func bucketByColumn(row, header Line) []string {
	out := make([]string, len(header.Cells))
	for _, c := range row.Cells {
		idx := nearestColumn(header.Cells, c.X)
		if out[idx] == "" {
			out[idx] = c.Text
		} else {
			out[idx] += " " + c.Text
		}
	}
	return out
}

func nearestColumn(headers []Cell, x float64) int {
	best := 0
	bestDist := distance(headers[0].X, x)
	for i := 1; i < len(headers); i++ {
		if d := distance(headers[i].X, x); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func distance(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

// extractTextRows is the fallback for documents where no table header
// could be located positionally: find the textual header line, then
// treat every following line splitting into at least six segments as one
// record, mapped positionally. Stops at the first blank line or a new
// zone header. The positional mapping is heuristic; short rows are
// skipped and missing trailing segments read as empty.
func extractTextRows(lines []Line) []ingest.RawRecord {
	start := -1
	for i, l := range lines {
		if textHeaderPattern.MatchString(l.Text()) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	var records []ingest.RawRecord
	for _, l := range lines[start+1:] {
		text := strings.TrimSpace(l.Text())
		if text == "" || strings.HasPrefix(strings.ToLower(text), newZonePrefix) {
			break
		}
		segments := splitSegments(text)
		if len(segments) < minFallbackSegments {
			continue
		}
		records = append(records, ingest.RawRecord{
			Parameter:       cellAt(segments, 0),
			Units:           cellAt(segments, 1),
			RegulatoryLimit: cellAt(segments, 2),
			Min:             cellAt(segments, 3),
			Mean:            cellAt(segments, 4),
			Max:             cellAt(segments, 5),
			SamplesTotal:    cellAt(segments, 6),
			Contravening:    cellAt(segments, 7),
			PctContravening: cellAt(segments, 8),
		})
	}
	return records
}

var segmentSplit = regexp.MustCompile(`\s{2,}`)

func splitSegments(text string) []string {
	return segmentSplit.Split(text, -1)
}

func cellTexts(l Line) []string {
	out := make([]string, len(l.Cells))
	for i, c := range l.Cells {
		out[i] = c.Text
	}
	return out
}
