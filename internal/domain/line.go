package domain

import "strings"

// LineKind classifies a raw source line.
type LineKind int

const (
	LineIgnored LineKind = iota
	LineHeader
	LineContinuation
)

func (k LineKind) String() string {
	switch k {
	case LineHeader:
		return "header"
	case LineContinuation:
		return "continuation"
	default:
		return "ignored"
	}
}

// ClassifyLine decides how a line is treated given whether a country context
// is active. Header shape takes precedence over indentation.
func ClassifyLine(line string, hasContext bool) LineKind {
	if _, ok := ParseHeader(line); ok {
		return LineHeader
	}
	if hasContext && isIndented(line) {
		return LineContinuation
	}
	return LineIgnored
}

func isIndented(line string) bool {
	return line != "" && (line[0] == ' ' || line[0] == '\t')
}

// SplitKeys extracts the key tokens from a continuation line. Everything from
// the first ';' onward is discarded, segments are trimmed of whitespace and
// stray commas, and empty segments are dropped.
func SplitKeys(line string) []string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}

	var keys []string
	for _, seg := range strings.Split(line, ",") {
		tok := strings.Trim(strings.TrimSpace(seg), " ,\t")
		if tok != "" {
			keys = append(keys, tok)
		}
	}
	return keys
}

// ExactKey reports whether tok is a full-callsign override and returns it
// with the leading '=' removed.
func ExactKey(tok string) (string, bool) {
	if rest, ok := strings.CutPrefix(tok, "="); ok {
		return rest, true
	}
	return tok, false
}
