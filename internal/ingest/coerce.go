package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	decimalPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	integerPattern = regexp.MustCompile(`\d+`)
)

// Coerce applies the numeric coercion rule every consumer of measurement
// text must honor: trim and lowercase; empty, "n/a", "na" and "-" are
// absent; a leading "<" means below detection threshold and coerces to
// zero; thousands separators are stripped; otherwise the first decimal
// literal found wins. The second return reports whether a value is
// present.
func Coerce(val string) (float64, bool) {
	v := strings.ToLower(strings.TrimSpace(val))
	switch v {
	case "", "n/a", "na", "-":
		return 0, false
	}
	v = strings.ReplaceAll(v, "µ", "")
	v = strings.ReplaceAll(v, ",", "")
	if strings.HasPrefix(v, "<") {
		return 0, true
	}
	lit := decimalPattern.FindString(v)
	if lit == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// CoerceInt extracts the first unsigned integer from text, for the
// sample-count columns. Returns nil when no digits are present.
func CoerceInt(val string) *int {
	lit := integerPattern.FindString(val)
	if lit == "" {
		return nil
	}
	n, err := strconv.Atoi(lit)
	if err != nil {
		return nil
	}
	return &n
}

// Hardness labels for drinking water, keyed off the mean hardness value.
const (
	HardnessSoft     = "Soft"
	HardnessModerate = "Moderately hard"
	HardnessHard     = "Hard"
	HardnessUnknown  = ""
)

// HardnessLabel scans extracted records for a hardness parameter and
// classifies its coerced mean. Mean ≤ 100 is Soft, ≤ 200 Moderately
// hard, above that Hard. Returns HardnessUnknown when no usable value
// exists.
func HardnessLabel(records []RawRecord) string {
	for _, r := range records {
		if !strings.Contains(strings.ToLower(r.Parameter), "hardness") {
			continue
		}
		mean, ok := Coerce(r.Mean)
		if !ok {
			continue
		}
		switch {
		case mean <= 100:
			return HardnessSoft
		case mean <= 200:
			return HardnessModerate
		default:
			return HardnessHard
		}
	}
	return HardnessUnknown
}
