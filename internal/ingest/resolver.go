package ingest

import (
	"regexp"
	"strings"
)

var zonePattern = regexp.MustCompile(`^([A-Z]+)(\d+)$`)

// Variants expands a raw zone identifier into the ordered, deduplicated
// list of spellings worth trying against the source. The upstream is
// inconsistent about zero-padding digit suffixes, so for a
// letters-then-digits identifier we try the trimmed form first, then the
// two-digit and three-digit paddings. Anything that does not match the
// pattern is returned as-is.
func Variants(raw string) []string {
	zone := strings.ToUpper(strings.TrimSpace(raw))
	m := zonePattern.FindStringSubmatch(zone)
	if m == nil {
		return []string{zone}
	}
	letters := m[1]
	digits := strings.TrimLeft(m[2], "0")
	if digits == "" {
		digits = "0"
	}

	candidates := []string{letters + digits}
	if len(digits) == 1 {
		candidates = append(candidates, letters+"0"+digits)
	}
	if len(digits) <= 2 {
		candidates = append(candidates, letters+pad3(digits))
	}

	out := candidates[:0]
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func pad3(digits string) string {
	for len(digits) < 3 {
		digits = "0" + digits
	}
	return digits
}
