package labsheet

import (
	"fmt"
	"strings"

	"github.com/carbocation/urinestudy/classify"
)

// Field addresses one measurement column: a ratio as reported by one
// analyzer.
type Field struct {
	Analyzer classify.Analyzer
	Ratio    classify.Ratio
}

// Key is the short column key used in processed output, e.g. "ac_arkray".
func (f Field) Key() string {
	return f.Ratio.String() + "_" + f.Analyzer.String()
}

func (f Field) String() string {
	return f.Ratio.Display() + " " + f.Analyzer.Display()
}

// Fields enumerates every measurement field, analyzer-major.
func Fields() []Field {
	out := make([]Field, 0, classify.NumAnalyzers*classify.NumRatios)
	for _, a := range classify.Analyzers {
		for _, r := range classify.Ratios {
			out = append(out, Field{Analyzer: a, Ratio: r})
		}
	}

	return out
}

// FieldsFor lists the three analyzer fields of one ratio.
func FieldsFor(ratio classify.Ratio) [classify.NumAnalyzers]Field {
	var out [classify.NumAnalyzers]Field
	for i, a := range classify.Analyzers {
		out[i] = Field{Analyzer: a, Ratio: ratio}
	}

	return out
}

// ParseFieldKey is the inverse of Field.Key.
func ParseFieldKey(key string) (Field, error) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(key)), "_", 2)
	if len(parts) != 2 {
		return Field{}, fmt.Errorf("Field key %q should look like ac_arkray", key)
	}

	ratio, err := classify.ParseRatio(parts[0])
	if err != nil {
		return Field{}, err
	}

	analyzer, err := classify.ParseAnalyzer(parts[1])
	if err != nil {
		return Field{}, err
	}

	return Field{Analyzer: analyzer, Ratio: ratio}, nil
}
