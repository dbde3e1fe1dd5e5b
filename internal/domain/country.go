package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// Country is one DXCC entity as described by a header line.
// Only Name feeds the lookup tables; the remaining fields are kept on the
// snapshot for consumers that need zone or location data.
type Country struct {
	Name          string  `json:"name"`
	CQZone        int     `json:"cq_zone"`
	ITUZone       int     `json:"itu_zone"`
	Continent     string  `json:"continent"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	UTCOffset     float64 `json:"utc_offset"`
	PrimaryPrefix string  `json:"primary_prefix"`
}

// headerPattern matches a full header line. Whitespace is allowed around
// every field and the trailing colon after the prefix is optional.
var headerPattern = regexp.MustCompile(`(?i)^` +
	`([^:]+?)\s*:` + // name
	`\s*(\d+)\s*:` + // CQ zone
	`\s*(\d+)\s*:` + // ITU zone
	`\s*([A-Z]{2})\s*:` + // continent
	`\s*(-?\d+(?:\.\d+)?)\s*:` + // latitude
	`\s*(-?\d+(?:\.\d+)?)\s*:` + // longitude
	`\s*(-?\d+(?:\.\d+)?)\s*:` + // UTC offset
	`\s*([A-Z0-9/]+)\s*:?` + // primary prefix
	`\s*$`)

// ParseHeader parses a header line and reports whether the line has header
// shape. A blank name still counts as a header; it yields a Country with an
// empty Name, which clears the current context.
func ParseHeader(line string) (Country, bool) {
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return Country{}, false
	}

	return Country{
		Name:          strings.TrimSpace(m[1]),
		CQZone:        parseZone(m[2]),
		ITUZone:       parseZone(m[3]),
		Continent:     strings.ToUpper(m[4]),
		Lat:           parseDecimal(m[5]),
		Lon:           parseDecimal(m[6]),
		UTCOffset:     parseDecimal(m[7]),
		PrimaryPrefix: m[8],
	}, true
}

// parseZone returns 0 for zones too large for an int.
func parseZone(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseDecimal(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
