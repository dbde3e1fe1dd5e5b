// Command ctydump parses a cty.dat file and prints its lookup tables as JSON.
//
// Usage:
//
//	go run ./cmd/ctydump -file cty.dat [-table all|pattern|exact] [-countries]
//
// Each selected table maps a key to the sorted list of countries that claim
// it and is printed even when empty. With -countries the parsed header
// records are included as well. The exit status
// is 1 when the file cannot be read and 2 on bad flags.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/cty-prefix-service/internal/domain"
)

// dump holds tables behind pointers so an unselected table is omitted while a
// selected empty one still encodes as {}.
type dump struct {
	Patterns  *map[string][]string      `json:"patterns,omitempty"`
	Exact     *map[string][]string      `json:"exact,omitempty"`
	Countries map[string]domain.Country `json:"countries,omitempty"`
	Stats     *domain.Stats             `json:"stats,omitempty"`
}

func main() {
	file := flag.String("file", "cty.dat", "path to the cty.dat source")
	table := flag.String("table", "all", "table to print: all, pattern or exact")
	countries := flag.Bool("countries", false, "include parsed country headers")
	stats := flag.Bool("stats", false, "include line statistics")
	flag.Parse()

	os.Exit(run(os.Stdout, os.Stderr, *file, *table, *countries, *stats))
}

func run(stdout, stderr io.Writer, file, table string, withCountries, withStats bool) int {
	if table != "all" && table != domain.KindPattern && table != domain.KindExact {
		fmt.Fprintf(stderr, "unknown -table %q\n", table)
		return 2
	}

	snap, err := domain.Load(file)
	if err != nil {
		if errors.Is(err, domain.ErrSourceUnavailable) {
			fmt.Fprintf(stderr, "FATAL: source unavailable: %v\n", err)
		} else {
			fmt.Fprintf(stderr, "FATAL: %v\n", err)
		}
		return 1
	}

	out := dump{}
	if table == "all" || table == domain.KindPattern {
		patterns := flatten(snap.Patterns)
		out.Patterns = &patterns
	}
	if table == "all" || table == domain.KindExact {
		exact := flatten(snap.Exact)
		out.Exact = &exact
	}
	if withCountries {
		out.Countries = snap.Countries
	}
	if withStats {
		out.Stats = &snap.Stats
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "FATAL: encode: %v\n", err)
		return 1
	}
	return 0
}

// flatten converts a table to key -> sorted countries.
func flatten(t domain.Table) map[string][]string {
	m := make(map[string][]string, len(t))
	for _, k := range t.Keys() {
		m[k] = t.Countries(k)
	}
	return m
}
