package classify

// Classifier bundles the choices that drifted between revisions of the
// dashboard: which P/C banding to use, which label text to show, and whether
// a comma may be used as the decimal separator. The zero value is a valid
// two-band classifier with no labels; use New for the default label set.
type Classifier struct {
	Policy       PCPolicy
	Labels       LabelSet
	DecimalComma bool
}

func New(policy PCPolicy, labels LabelSet) Classifier {
	return Classifier{Policy: policy, Labels: labels}
}

// Default is a two-band classifier with english labels.
func Default() Classifier {
	return New(PCTwoBand, LabelSets[DefaultLabelSet])
}

// Parse is Parse with the classifier's decimal separator preference.
func (c Classifier) Parse(v interface{}) Measurement {
	return parse(v, c.DecimalComma)
}

// Categorize bands v with the primary categorizer for the given ratio.
func (c Classifier) Categorize(ratio Ratio, v interface{}) Band {
	return c.CategorizeMeasurement(ratio, c.Parse(v))
}

func (c Classifier) CategorizeMeasurement(ratio Ratio, m Measurement) Band {
	if ratio == RatioPC {
		return categorizePC(m, c.Policy)
	}

	return categorizeAC(m)
}

// Reference bands v with the fixed A/C thresholds, whatever the ratio.
func (c Classifier) Reference(v interface{}) Band {
	return c.ReferenceMeasurement(c.Parse(v))
}

func (c Classifier) ReferenceMeasurement(m Measurement) Band {
	return categorizeReference(m, c.DecimalComma)
}

// Label returns the display text for a primary category.
func (c Classifier) Label(ratio Ratio, b Band) string {
	if !b.Valid() {
		return c.Labels.Unassigned
	}

	if ratio == RatioAC {
		return c.Labels.AC.For(b)
	}

	if c.Policy == PCThreeBand {
		return c.Labels.PCThree.For(b)
	}

	return c.Labels.PC.For(b)
}

// ReferenceLabel returns the display text for a reference category.
func (c Classifier) ReferenceLabel(b Band) string {
	if !b.Valid() {
		return c.Labels.Unassigned
	}

	return c.Labels.Reference.For(b)
}

// BandsFor lists the bands the primary categorizer can emit for ratio, in
// ascending severity.
func (c Classifier) BandsFor(ratio Ratio) []Band {
	if ratio == RatioPC && c.Policy == PCTwoBand {
		return []Band{BandNormal, BandHigh}
	}

	return Bands
}
