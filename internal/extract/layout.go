package extract

import (
	"bytes"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Cell is one horizontal cluster of text on a line, with the left edge
// it starts at. Cells are the physical columns the header mapper and the
// row bucketing work against.
type Cell struct {
	X    float64
	Text string
}

// Line is one reconstructed text line of a page. An empty Cells slice
// marks a page break so the text fallback keeps its blank-line stop
// condition.
type Line struct {
	Y     float64
	Cells []Cell
}

// Text joins the line's cells with a double space, so that splitting on
// runs of two or more spaces recovers the cell boundaries.
func (l Line) Text() string {
	parts := make([]string, 0, len(l.Cells))
	for _, c := range l.Cells {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "  ")
}

const (
	// Runs whose baselines differ by no more than this belong to the
	// same line.
	lineTolerance = 2.0
	// A horizontal gap at least this wide starts a new cell. Column
	// gutters in the source documents are far wider than inter-word
	// spacing at the fonts they use.
	cellGap = 6.0
)

// readLines reconstructs per-page lines from the document's positioned
// glyph runs. Pages are separated by a single empty Line.
func readLines(data []byte) ([]Line, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	var lines []Line
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageLines := assembleLines(page.Content().Text)
		if len(pageLines) == 0 {
			continue
		}
		if len(lines) > 0 {
			lines = append(lines, Line{})
		}
		lines = append(lines, pageLines...)
	}
	return lines, nil
}

// assembleLines groups glyph runs by baseline, then clusters each line's
// runs into cells wherever the horizontal gap exceeds the gutter
// threshold.
func assembleLines(runs []pdf.Text) []Line {
	if len(runs) == 0 {
		return nil
	}
	sorted := append([]pdf.Text(nil), runs...)
	// PDF Y grows upward; read top-down, left-right.
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].Y != sorted[b].Y {
			return sorted[a].Y > sorted[b].Y
		}
		return sorted[a].X < sorted[b].X
	})

	var lines []Line
	var current []pdf.Text
	flush := func() {
		if len(current) == 0 {
			return
		}
		lines = append(lines, clusterCells(current))
		current = nil
	}
	for _, run := range sorted {
		if len(current) > 0 && current[0].Y-run.Y > lineTolerance {
			flush()
		}
		current = append(current, run)
	}
	flush()
	return lines
}

func clusterCells(runs []pdf.Text) Line {
	sort.SliceStable(runs, func(a, b int) bool { return runs[a].X < runs[b].X })

	line := Line{Y: runs[0].Y}
	var sb strings.Builder
	cellStart := runs[0].X
	prevEnd := runs[0].X

	emit := func() {
		text := strings.TrimSpace(sb.String())
		if text != "" {
			line.Cells = append(line.Cells, Cell{X: cellStart, Text: text})
		}
		sb.Reset()
	}
	for i, run := range runs {
		gap := run.X - prevEnd
		switch {
		case i == 0:
		case gap > cellGap:
			emit()
			cellStart = run.X
		case gap > 0.5 && !strings.HasSuffix(sb.String(), " "):
			sb.WriteByte(' ')
		}
		sb.WriteString(run.S)
		prevEnd = run.X + run.W
	}
	emit()
	return line
}
