package classify

import (
	"fmt"
	"strings"
)

// Thresholds in mg/gCr.
const (
	ACMicroFloor = 30.0
	ACMacroFloor = 300.0

	PCSignificantFloor = 150.0
	PCManifestFloor    = 300.0

	// ReferenceOverValue stands in for a bare ">" or "over" when the reference
	// categorizer needs a number.
	ReferenceOverValue = 301.0
)

// PCPolicy selects how protein/creatinine values are banded.
type PCPolicy uint8

const (
	// PCTwoBand: <150 normal, >=150 significant.
	PCTwoBand PCPolicy = iota
	// PCThreeBand: <150 normal, 150-300 micro, >300 manifest.
	PCThreeBand
)

func (p PCPolicy) String() string {
	switch p {
	case PCTwoBand:
		return "two-band"
	case PCThreeBand:
		return "three-band"
	}

	return fmt.Sprintf("policy(%d)", p)
}

func ParsePolicy(s string) (PCPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "two-band", "two", "2":
		return PCTwoBand, nil
	case "three-band", "three", "3":
		return PCThreeBand, nil
	}

	return 0, fmt.Errorf("Unknown P/C policy %q. Valid policies are two-band and three-band", s)
}

// CategorizeAC bands an albumin/creatinine value: <30 normal, 30-300 micro,
// >300 macro. A "<" comparator is always normal and ">"/"over" always macro,
// whatever number follows.
func CategorizeAC(v interface{}) Band {
	return categorizeAC(Parse(v))
}

func categorizeAC(m Measurement) Band {
	if !m.Valid {
		return BandNone
	}

	switch m.Comparator {
	case Below:
		return BandNormal
	case Above:
		return BandHigh
	}

	return acBand(m.Value)
}

func acBand(num float64) Band {
	if num < ACMicroFloor {
		return BandNormal
	}
	if num <= ACMacroFloor {
		return BandMicro
	}

	return BandHigh
}

// CategorizePC bands a protein/creatinine value under the given policy.
func CategorizePC(v interface{}, policy PCPolicy) Band {
	return categorizePC(Parse(v), policy)
}

func categorizePC(m Measurement, policy PCPolicy) Band {
	if !m.Valid {
		return BandNone
	}

	switch m.Comparator {
	case Below:
		return BandNormal
	case Above:
		return BandHigh
	}

	if m.Value < PCSignificantFloor {
		return BandNormal
	}

	if policy == PCThreeBand && m.Value <= PCManifestFloor {
		return BandMicro
	}

	return BandHigh
}

// CategorizeReference applies the A/C thresholds to any ratio. Unlike the
// primary categorizers it reads the number that follows a comparator, so
// "<45" is micro here while CategorizeAC calls it normal.
func CategorizeReference(v interface{}) Band {
	return categorizeReference(Parse(v), false)
}

func categorizeReference(m Measurement, decimalComma bool) Band {
	if !m.Valid {
		return BandNone
	}

	num := m.Value
	switch m.Comparator {
	case Below:
		f, ok := parseDecimal(m.Remainder, decimalComma)
		if !ok {
			return BandNone
		}
		num = f
	case Above:
		if m.Remainder == "" {
			num = ReferenceOverValue
			break
		}
		f, ok := parseDecimal(m.Remainder, decimalComma)
		if !ok {
			return BandNone
		}
		num = f
	}

	return acBand(num)
}

// Discordant reports whether three analyzers produced three different
// categories for the same sample. Rows with any uncategorized value are never
// discordant.
func Discordant(a, b, c Band) bool {
	if !a.Valid() || !b.Valid() || !c.Valid() {
		return false
	}

	return a != b && b != c && a != c
}
