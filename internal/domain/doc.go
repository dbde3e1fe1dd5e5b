// Package domain models the country-prefix database used by amateur-radio
// logging and cluster software (the "cty.dat" format maintained by AD1C).
//
// # Data Source
//
// The file is a flat sequence of text lines with no explicit record
// delimiters. Two kinds of line are recognized by shape alone.
//
// Header lines describe one DXCC entity:
//
//	<name>:<cq>:<itu>:<continent>:<lat>:<lon>:<utc>:<prefix>:
//	Sov Mil Order of Malta:  28:  28:  EU:   41.90:   12.43:   -1.0:  1A:
//
// Whitespace around each colon-delimited field is ignored. CQ and ITU zones
// are non-negative integers, the continent is a two-letter code (matched
// case-insensitively), latitude, longitude and UTC offset are optionally
// signed decimals, and the primary prefix is letters, digits and '/'. The
// trailing colon is accepted but not required. A header establishes the
// current country context until the next header.
//
// Continuation lines start with a space or tab and list comma-separated keys
// for the current country, optionally terminated by a ';' comment:
//
//	    1S,9M0,BM9S,=9M4SLL,=9M6/LA6VM;
//
// Keys written with a leading '=' are full-callsign overrides and land in the
// exact table with the '=' stripped. Every other key is a prefix or wildcard
// pattern and is stored verbatim in the pattern table. Nothing after the first
// ';' on a line is tokenized.
//
// # Ambiguity
//
// The same key may appear under several country headers. Tables are
// multimaps of sets: inserting accumulates, it never overwrites, and the same
// (key, country) pair is stored once no matter how often it is listed.
// Resolving a callsign to a single entity (longest prefix wins, exceptions
// first) is left to consumers of the tables.
//
// # Tolerance
//
// Lines that are neither headers nor continuations with an active country
// (blank lines, stray text, indented lines before the first header) are
// dropped without error. Only failing to open or read the source is an error,
// reported as [ErrSourceUnavailable].
package domain
