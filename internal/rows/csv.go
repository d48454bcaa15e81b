// Package rows reads the postcode-to-zone input listing. The canonical
// layout is two columns, POSTCODE and AREA CODE, but files from the
// field arrive with shuffled columns, BOMs, and ragged short rows, so
// the reader locates columns by meaning and tolerates the rest.
package rows

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/keepnetics/waterzone/internal/ingest"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVSource implements ingest.RowSource over a CSV file on disk.
type CSVSource struct {
	path string
}

// NewCSVSource returns a source for the given file path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Rows reads and returns every usable row. Rows with an empty postcode
// are skipped; a present postcode with a missing zone is kept so the
// caller can report it as unresolvable.
func (s *CSVSource) Rows() ([]ingest.Row, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open input csv: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses rows from an open CSV stream.
func Read(r io.Reader) ([]ingest.Row, error) {
	cr := csv.NewReader(stripBOM(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	pcIdx, zoneIdx := locateColumns(header)

	var out []ingest.Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		need := pcIdx + 1
		if zoneIdx >= 0 && zoneIdx+1 > need {
			need = zoneIdx + 1
		}
		for len(record) < need {
			record = append(record, "")
		}

		pc := strings.TrimSpace(record[pcIdx])
		if pc == "" {
			continue
		}
		zone := ""
		if zoneIdx >= 0 {
			zone = strings.TrimSpace(record[zoneIdx])
		}
		out = append(out, ingest.Row{Postcode: pc, ZoneID: zone})
	}
	return out, nil
}

// locateColumns finds the postcode and zone columns by header meaning,
// falling back to the first two positions.
func locateColumns(header []string) (pcIdx, zoneIdx int) {
	pcIdx, zoneIdx = -1, -1
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if pcIdx < 0 && ((strings.Contains(h, "post") && strings.Contains(h, "code")) || h == "postcode") {
			pcIdx = i
		}
		if zoneIdx < 0 && ((strings.Contains(h, "area") && strings.Contains(h, "code")) || strings.Contains(h, "zone")) {
			zoneIdx = i
		}
	}
	if pcIdx < 0 {
		pcIdx = 0
	}
	if zoneIdx < 0 && len(header) >= 2 {
		zoneIdx = 1
	}
	return pcIdx, zoneIdx
}

type bomReader struct {
	r       io.Reader
	checked bool
}

func stripBOM(r io.Reader) io.Reader {
	return &bomReader{r: r}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head := make([]byte, 3)
		n, err := io.ReadFull(b.r, head)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return 0, err
		}
		head = head[:n]
		if !bytes.Equal(head, utf8BOM) {
			b.r = io.MultiReader(bytes.NewReader(head), b.r)
		}
	}
	return b.r.Read(p)
}
