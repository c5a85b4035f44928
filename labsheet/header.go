package labsheet

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/carbocation/urinestudy/classify"
)

const (
	KeyTube = "tube"
	KeyArea = "area"
)

// NormalizeHeader lowercases, folds accents (so "Área" and "area" match, and
// "Nº" becomes "no"), and collapses runs of whitespace.
func NormalizeHeader(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

var ratioTokens = map[classify.Ratio][]string{
	classify.RatioAC: {"a/c", "acr", "albumin", "alb/cr", "ac "},
	classify.RatioPC: {"p/c", "pcr", "protein", "prot/cr", "pc "},
}

var tubeTokens = []string{"tubo", "tube", "amostra", "sample"}

var areaTokens = []string{"area", "setor", "sector", "ward", "unidade"}

// columnMap is the outcome of matching one header row.
type columnMap struct {
	fields map[Field]int
	tube   int
	area   int
}

func (c columnMap) score() int {
	s := len(c.fields)
	if c.tube >= 0 {
		s++
	}
	if c.area >= 0 {
		s++
	}

	return s
}

// matchHeader maps a header row onto known columns. Explicit layout columns
// win; the first heuristic match wins among the rest.
func matchHeader(header []string, layout Layout) columnMap {
	out := columnMap{fields: make(map[Field]int), tube: -1, area: -1}

	explicit := make(map[string]string, len(layout.Columns))
	for raw, key := range layout.Columns {
		explicit[NormalizeHeader(raw)] = key
	}

	assign := func(key string, col int) bool {
		switch key {
		case KeyTube:
			if out.tube < 0 {
				out.tube = col
			}
			return true
		case KeyArea:
			if out.area < 0 {
				out.area = col
			}
			return true
		}

		f, err := ParseFieldKey(key)
		if err != nil {
			return false
		}
		if _, seen := out.fields[f]; !seen {
			out.fields[f] = col
		}
		return true
	}

	for col, raw := range header {
		h := NormalizeHeader(raw)
		if h == "" {
			continue
		}

		if key, ok := explicit[h]; ok && assign(key, col) {
			continue
		}

		// Processed output from a previous run uses the keys as headers.
		if assign(h, col) {
			continue
		}

		if f, ok := guessField(h); ok {
			assign(f.Key(), col)
			continue
		}

		if containsAny(h, tubeTokens) {
			assign(KeyTube, col)
			continue
		}

		if containsAny(h, areaTokens) {
			assign(KeyArea, col)
		}
	}

	return out
}

func guessField(h string) (Field, bool) {
	padded := h + " "

	var analyzer classify.Analyzer
	found := false
	for _, a := range classify.Analyzers {
		if strings.Contains(h, a.String()) {
			analyzer = a
			found = true
			break
		}
	}
	if !found {
		return Field{}, false
	}

	for _, r := range classify.Ratios {
		if containsAny(padded, ratioTokens[r]) {
			return Field{Analyzer: analyzer, Ratio: r}, true
		}
	}

	return Field{}, false
}

func containsAny(h string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(h, t) {
			return true
		}
	}

	return false
}

// detectHeader returns the row index among the first headerScanRows that
// best matches known columns. At least two measurement columns are required.
func detectHeader(records [][]string, layout Layout) (int, columnMap, bool) {
	best, bestRow := columnMap{}, -1

	for i := 0; i < len(records) && i < headerScanRows; i++ {
		cm := matchHeader(records[i], layout)
		if len(cm.fields) < 2 {
			continue
		}
		if bestRow < 0 || cm.score() > best.score() {
			best, bestRow = cm, i
		}
	}

	return bestRow, best, bestRow >= 0
}
