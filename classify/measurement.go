package classify

import (
	"math"
	"strconv"
	"strings"

	"gopkg.in/guregu/null.v3"
)

// Measurement is a single parsed laboratory ratio. When Comparator is Below or
// Above, Value is not meaningful and Remainder holds whatever text followed
// the comparator token.
type Measurement struct {
	Value      float64
	Comparator Comparator
	Remainder  string
	Valid      bool
}

// Numeric reports whether the measurement is a plain number with no
// comparator.
func (m Measurement) Numeric() bool {
	return m.Valid && m.Comparator == Exact
}

func (m Measurement) String() string {
	if !m.Valid {
		return ""
	}

	if m.Comparator != Exact {
		return m.Comparator.String() + m.Remainder
	}

	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

// Parse converts a raw spreadsheet cell into a Measurement. It accepts the
// usual numeric kinds, strings, nullable values and nil. It never panics:
// anything it cannot understand comes back with Valid set to false.
func Parse(v interface{}) Measurement {
	return parse(v, false)
}

func parse(v interface{}, decimalComma bool) Measurement {
	switch x := v.(type) {
	case nil:
		return Measurement{}
	case float64:
		return ParseFloat(x)
	case float32:
		return ParseFloat(float64(x))
	case int:
		return ParseFloat(float64(x))
	case int32:
		return ParseFloat(float64(x))
	case int64:
		return ParseFloat(float64(x))
	case uint:
		return ParseFloat(float64(x))
	case uint32:
		return ParseFloat(float64(x))
	case uint64:
		return ParseFloat(float64(x))
	case string:
		return parseText(x, decimalComma)
	case null.String:
		if !x.Valid {
			return Measurement{}
		}
		return parseText(x.String, decimalComma)
	case null.Float:
		if !x.Valid {
			return Measurement{}
		}
		return ParseFloat(x.Float64)
	case Measurement:
		return x
	}

	return Measurement{}
}

// ParseFloat wraps an already-numeric value. NaN and infinities, which is how
// blank cells tend to arrive from numeric columns, are not valid.
func ParseFloat(f float64) Measurement {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Measurement{}
	}

	return Measurement{Value: f, Valid: true}
}

// ParseText interprets a textual cell such as "12.5", "<5", ">300" or
// "over 300".
func ParseText(s string) Measurement {
	return parseText(s, false)
}

func parseText(s string, decimalComma bool) Measurement {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return Measurement{}
	}

	if strings.HasPrefix(v, "<") {
		return Measurement{
			Comparator: Below,
			Remainder:  strings.TrimSpace(strings.TrimLeft(v, "<")),
			Valid:      true,
		}
	}

	if strings.HasPrefix(v, ">") || strings.Contains(v, "over") {
		rem := strings.TrimLeft(v, ">")
		rem = strings.TrimSpace(strings.ReplaceAll(rem, "over", ""))
		return Measurement{
			Comparator: Above,
			Remainder:  rem,
			Valid:      true,
		}
	}

	f, ok := parseDecimal(v, decimalComma)
	if !ok {
		return Measurement{}
	}

	return ParseFloat(f)
}

func parseDecimal(v string, decimalComma bool) (float64, bool) {
	if decimalComma && strings.Count(v, ",") == 1 && !strings.Contains(v, ".") {
		v = strings.Replace(v, ",", ".", 1)
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}
