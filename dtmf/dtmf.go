// Package dtmf holds the dual-tone multi-frequency key table.
//
// Each key is the sum of one low-group (row) and one high-group (column)
// frequency:
//
//	        1209  1336  1477  1633
//	 697     1     2     3     A
//	 770     4     5     6     B
//	 852     7     8     9     C
//	 941     *     0     #     D
package dtmf

import (
	"strings"
	"unicode/utf8"
)

var (
	rowFreqs = [4]float64{697, 770, 852, 941}
	colFreqs = [4]float64{1209, 1336, 1477, 1633}

	layout = [4][4]rune{
		{'1', '2', '3', 'A'},
		{'4', '5', '6', 'B'},
		{'7', '8', '9', 'C'},
		{'*', '0', '#', 'D'},
	}
)

// Pair is the low and high frequency of a key, in Hz.
// The zero Pair means "no tone".
type Pair struct {
	Low  float64
	High float64
}

func (p Pair) IsZero() bool { return p.Low == 0 && p.High == 0 }

// Slice returns the pair as an ordered list, or nil for the zero pair.
func (p Pair) Slice() []float64 {
	if p.IsZero() {
		return nil
	}
	return []float64{p.Low, p.High}
}

var table = func() map[rune]Pair {
	m := make(map[rune]Pair, 16)
	for r, row := range layout {
		for c, key := range row {
			m[key] = Pair{Low: rowFreqs[r], High: colFreqs[c]}
		}
	}
	return m
}()

// Lookup returns the frequency pair for the first symbol of key.
// Letters are case-insensitive. Unknown or empty keys return the zero pair
// and false.
func Lookup(key string) (Pair, bool) {
	r, _ := utf8.DecodeRuneInString(key)
	if r == utf8.RuneError {
		return Pair{}, false
	}
	p, ok := table[normalize(r)]
	return p, ok
}

// Frequencies is Lookup without the ok flag.
func Frequencies(key string) Pair {
	p, _ := Lookup(key)
	return p
}

// Valid reports whether key starts with a DTMF symbol.
func Valid(key string) bool {
	_, ok := Lookup(key)
	return ok
}

// Normalize returns the canonical single-symbol form of key ("a" -> "A"),
// or "" for unknown keys.
func Normalize(key string) string {
	r, _ := utf8.DecodeRuneInString(key)
	r = normalize(r)
	if _, ok := table[r]; !ok {
		return ""
	}
	return string(r)
}

func normalize(r rune) rune {
	if r >= 'a' && r <= 'd' {
		return r - 'a' + 'A'
	}
	return r
}

// Keys returns the 16 symbols in keypad order, row by row.
func Keys() []string {
	keys := make([]string, 0, 16)
	for _, row := range layout {
		for _, key := range row {
			keys = append(keys, string(key))
		}
	}
	return keys
}

// Rows returns the keypad layout as four rows of four symbols.
func Rows() [][]string {
	rows := make([][]string, len(layout))
	for i, row := range layout {
		for _, key := range row {
			rows[i] = append(rows[i], string(key))
		}
	}
	return rows
}

// Clean strips everything that is not a DTMF symbol or a pause (',') from a
// dial string and upper-cases letters.
func Clean(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == ',' {
			b.WriteRune(r)
			continue
		}
		r = normalize(r)
		if _, ok := table[r]; ok {
			b.WriteRune(r)
		}
	}
	return b.String()
}
