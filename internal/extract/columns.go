package extract

import "strings"

// columnMap resolves the eight semantic measurement columns to physical
// column indexes. A value of -1 means the header did not name that
// column and it reads as permanently empty.
type columnMap struct {
	parameter    int
	units        int
	limit        int
	min          int
	mean         int
	max          int
	total        int
	contravening int
}

// headerKeys are matched as substrings against lowercased header cells,
// first match wins, left to right.
var headerKeys = struct{ parameter, units, limit, min, mean, max, total, contravening string }{
	parameter:    "parameter",
	units:        "unit",
	limit:        "regulatory",
	min:          "min",
	mean:         "mean",
	max:          "max",
	total:        "total",
	contravening: "contraven",
}

// isHeaderRow reports whether the concatenated cell text looks like the
// measurement table header.
func isHeaderRow(cells []string) bool {
	joined := strings.ToLower(strings.Join(cells, " "))
	return strings.Contains(joined, "parameter") &&
		strings.Contains(joined, "units") &&
		strings.Contains(joined, "min") &&
		strings.Contains(joined, "mean")
}

// mapColumns is a pure function from a header row's cell texts to the
// semantic index mapping, shared by every extraction branch that has a
// header to work from.
func mapColumns(cells []string) columnMap {
	lowered := make([]string, len(cells))
	for i, c := range cells {
		lowered[i] = strings.ToLower(strings.TrimSpace(c))
	}
	pick := func(key string) int {
		for i, h := range lowered {
			if strings.Contains(h, key) {
				return i
			}
		}
		return -1
	}
	return columnMap{
		parameter:    pick(headerKeys.parameter),
		units:        pick(headerKeys.units),
		limit:        pick(headerKeys.limit),
		min:          pick(headerKeys.min),
		mean:         pick(headerKeys.mean),
		max:          pick(headerKeys.max),
		total:        pick(headerKeys.total),
		contravening: pick(headerKeys.contravening),
	}
}

// cellAt returns the physical column's text, or "" when the column is
// unmapped or the row is too short.
func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
