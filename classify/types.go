package classify

import (
	"fmt"
	"strings"
)

// Ratio identifies which urine biomarker ratio a measurement belongs to.
type Ratio uint8

const (
	// RatioAC is the albumin-to-creatinine ratio.
	RatioAC Ratio = iota
	// RatioPC is the protein-to-creatinine ratio.
	RatioPC
)

// NumRatios is the number of ratio types tracked per analyzer.
const NumRatios = 2

var Ratios = [NumRatios]Ratio{RatioAC, RatioPC}

func (r Ratio) String() string {
	switch r {
	case RatioAC:
		return "ac"
	case RatioPC:
		return "pc"
	}

	return fmt.Sprintf("ratio(%d)", r)
}

// Display is the laboratory shorthand, e.g. "A/C".
func (r Ratio) Display() string {
	switch r {
	case RatioAC:
		return "A/C"
	case RatioPC:
		return "P/C"
	}

	return r.String()
}

func ParseRatio(s string) (Ratio, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ac", "a/c", "acr":
		return RatioAC, nil
	case "pc", "p/c", "pcr":
		return RatioPC, nil
	}

	return 0, fmt.Errorf("Unknown ratio %q. Valid ratios are ac and pc", s)
}

// Analyzer is one of the laboratory platforms whose results are compared.
type Analyzer uint8

const (
	Arkray Analyzer = iota
	Sysmex
	Cobas
)

// NumAnalyzers is the number of analyzer platforms in a sample row.
const NumAnalyzers = 3

var Analyzers = [NumAnalyzers]Analyzer{Arkray, Sysmex, Cobas}

func (a Analyzer) String() string {
	switch a {
	case Arkray:
		return "arkray"
	case Sysmex:
		return "sysmex"
	case Cobas:
		return "cobas"
	}

	return fmt.Sprintf("analyzer(%d)", a)
}

// Display is the capitalized platform name.
func (a Analyzer) Display() string {
	s := a.String()
	if len(s) == 0 {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}

func ParseAnalyzer(s string) (Analyzer, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, a := range Analyzers {
		if a.String() == needle {
			return a, nil
		}
	}

	return 0, fmt.Errorf("Unknown analyzer %q. Valid analyzers are arkray, sysmex and cobas", s)
}

// Band is an ordinal severity category. The zero value, BandNone, means that
// the measurement could not be categorized.
type Band uint8

const (
	BandNone Band = iota
	BandNormal
	BandMicro
	// BandHigh is "macro" for A/C and "significant" (or "manifest") for P/C.
	BandHigh
)

// NumBands counts BandNone as well, so that [NumBands]T can be indexed by any
// Band.
const NumBands = 4

// Bands lists the valid bands in ascending severity.
var Bands = []Band{BandNormal, BandMicro, BandHigh}

func (b Band) Valid() bool {
	return b != BandNone && b < NumBands
}

func (b Band) String() string {
	switch b {
	case BandNone:
		return "none"
	case BandNormal:
		return "normal"
	case BandMicro:
		return "micro"
	case BandHigh:
		return "high"
	}

	return fmt.Sprintf("band(%d)", b)
}

// Comparator records whether a textual measurement was reported relative to
// the analyzer's reportable range.
type Comparator uint8

const (
	Exact Comparator = iota
	// Below is a value under the detection floor, e.g. "<5".
	Below
	// Above is a value over the reportable range, e.g. ">300" or "over".
	Above
)

func (c Comparator) String() string {
	switch c {
	case Exact:
		return ""
	case Below:
		return "<"
	case Above:
		return ">"
	}

	return fmt.Sprintf("comparator(%d)", c)
}
