package domain

import "time"

// Entry kinds.
const (
	KindPattern = "pattern"
	KindExact   = "exact"
)

// Entry is one table row in serializable form.
type Entry struct {
	Kind      string    `json:"kind"`
	Key       string    `json:"key"`
	Countries []string  `json:"countries"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Lookup returns the entry for key in the table of the given kind.
func (s *Snapshot) Lookup(kind, key string) (Entry, bool) {
	var t Table
	switch kind {
	case KindPattern:
		t = s.Patterns
	case KindExact:
		t = s.Exact
	default:
		return Entry{}, false
	}
	countries := t.Countries(key)
	if countries == nil {
		return Entry{}, false
	}
	return Entry{Kind: kind, Key: key, Countries: countries, LoadedAt: s.LoadedAt}, true
}

// Entries flattens both tables, pattern keys first, each in key order.
func (s *Snapshot) Entries() []Entry {
	out := make([]Entry, 0, len(s.Patterns)+len(s.Exact))
	for _, k := range s.Patterns.Keys() {
		out = append(out, Entry{Kind: KindPattern, Key: k, Countries: s.Patterns.Countries(k), LoadedAt: s.LoadedAt})
	}
	for _, k := range s.Exact.Keys() {
		out = append(out, Entry{Kind: KindExact, Key: k, Countries: s.Exact.Countries(k), LoadedAt: s.LoadedAt})
	}
	return out
}
