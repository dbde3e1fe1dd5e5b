package domain

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrSourceUnavailable is returned when the source cannot be opened or read.
// No partial tables accompany it.
var ErrSourceUnavailable = errors.New("cty source unavailable")

// Stats counts what the builder saw while reading a source.
type Stats struct {
	Lines         int `json:"lines"`
	Headers       int `json:"headers"`
	Continuations int `json:"continuations"`
	Ignored       int `json:"ignored"`
	PatternTokens int `json:"pattern_tokens"`
	ExactTokens   int `json:"exact_tokens"`
}

// Snapshot is the complete result of one load. It is never mutated after
// construction.
type Snapshot struct {
	Patterns  Table
	Exact     Table
	Countries map[string]Country
	Source    string
	LoadedAt  time.Time
	Stats     Stats
}

// Build reads the file at path and returns its pattern and exact tables.
func Build(path string) (patterns, exact Table, err error) {
	snap, err := Load(path)
	if err != nil {
		return nil, nil, err
	}
	return snap.Patterns, snap.Exact, nil
}

// streamLabel names sources read through BuildFrom in error messages.
const streamLabel = "stream"

// BuildFrom is Build for an already open stream.
func BuildFrom(r io.Reader) (patterns, exact Table, err error) {
	snap, err := LoadFrom(r, streamLabel)
	if err != nil {
		return nil, nil, err
	}
	return snap.Patterns, snap.Exact, nil
}

// Load reads the file at path into a Snapshot.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, ErrSourceUnavailable, err)
	}
	defer f.Close()

	return LoadFrom(f, path)
}

// LoadFrom reads r into a Snapshot labelled with source. Lines have no
// length limit.
func LoadFrom(r io.Reader, source string) (*Snapshot, error) {
	if source == "" {
		source = streamLabel
	}
	b := newBuilder()

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if !utf8.ValidString(line) {
				return nil, fmt.Errorf("read %s: %w: invalid UTF-8 on line %d", source, ErrSourceUnavailable, b.stats.Lines+1)
			}
			line = strings.TrimSuffix(line, "\n")
			b.feed(strings.TrimSuffix(line, "\r"))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w: %w", source, ErrSourceUnavailable, err)
		}
	}

	return &Snapshot{
		Patterns:  b.patterns,
		Exact:     b.exact,
		Countries: b.countries,
		Source:    source,
		LoadedAt:  clock.Now().UTC(),
		Stats:     b.stats,
	}, nil
}

// builder holds the per-call parse state. The current country is the only
// context carried between lines.
type builder struct {
	patterns  Table
	exact     Table
	countries map[string]Country
	current   string
	stats     Stats
}

func newBuilder() *builder {
	return &builder{
		patterns:  make(Table),
		exact:     make(Table),
		countries: make(map[string]Country),
	}
}

func (b *builder) feed(line string) {
	b.stats.Lines++

	if c, ok := ParseHeader(line); ok {
		b.current = c.Name
		if c.Name != "" {
			b.countries[c.Name] = c
		}
		b.stats.Headers++
		return
	}

	if b.current == "" || !isIndented(line) {
		b.stats.Ignored++
		return
	}

	b.stats.Continuations++
	for _, tok := range SplitKeys(line) {
		if key, ok := ExactKey(tok); ok {
			// A bare "=" leaves nothing to store.
			if key == "" {
				continue
			}
			b.exact.Add(key, b.current)
			b.stats.ExactTokens++
			continue
		}
		b.patterns.Add(tok, b.current)
		b.stats.PatternTokens++
	}
}
