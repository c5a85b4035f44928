package classify

import (
	"fmt"
	"sort"
	"strings"
)

// BandLabels holds the display text for each valid band of one categorizer.
type BandLabels struct {
	Normal string `yaml:"normal"`
	Micro  string `yaml:"micro"`
	High   string `yaml:"high"`
}

func (l BandLabels) For(b Band) string {
	switch b {
	case BandNormal:
		return l.Normal
	case BandMicro:
		return l.Micro
	case BandHigh:
		return l.High
	}

	return ""
}

// LabelSet is the presentation text used for each categorizer. Band values
// are the contract; labels are cosmetic and may be swapped freely.
type LabelSet struct {
	Name       string     `yaml:"name"`
	AC         BandLabels `yaml:"ac"`
	PC         BandLabels `yaml:"pc"`
	PCThree    BandLabels `yaml:"pc_three_band"`
	Reference  BandLabels `yaml:"reference"`
	Unassigned string     `yaml:"unassigned"`
}

// Validate ensures that no two bands of the same categorizer share a label,
// which would make a discordance table ambiguous.
func (l LabelSet) Validate() error {
	check := func(which string, bl BandLabels, bands ...Band) error {
		seen := make(map[string]Band)
		for _, b := range bands {
			txt := bl.For(b)
			if txt == "" {
				return fmt.Errorf("Label set %q: %s label for band %s is empty", l.Name, which, b)
			}
			if prior, exists := seen[txt]; exists {
				return fmt.Errorf("Label set %q: %s bands %s and %s share the label %q", l.Name, which, prior, b, txt)
			}
			seen[txt] = b
		}
		return nil
	}

	if err := check("A/C", l.AC, Bands...); err != nil {
		return err
	}
	if err := check("P/C", l.PC, BandNormal, BandHigh); err != nil {
		return err
	}
	if err := check("three-band P/C", l.PCThree, Bands...); err != nil {
		return err
	}

	return check("reference", l.Reference, Bands...)
}

var LabelSets = map[string]LabelSet{
	"english": {
		Name: "english",
		AC: BandLabels{
			Normal: "normal (<30)",
			Micro:  "microalbuminuria (30-300)",
			High:   "macroalbuminuria (>300)",
		},
		PC: BandLabels{
			Normal: "normal (<150)",
			High:   "significant (>=150)",
		},
		PCThree: BandLabels{
			Normal: "normal (<150)",
			Micro:  "micro (150-300)",
			High:   "manifest (>300)",
		},
		Reference: BandLabels{
			Normal: "normal (<30)",
			Micro:  "micro (30-300)",
			High:   "macro (>300)",
		},
	},
	"portuguese": {
		Name: "portuguese",
		AC: BandLabels{
			Normal: "normal (<30)",
			Micro:  "microalbuminúria (30–300)",
			High:   "albuminúria franca ou proteinúria (>300)",
		},
		PC: BandLabels{
			Normal: "normal (<150)",
			High:   "significativa (≥150)",
		},
		PCThree: BandLabels{
			Normal: "normal (<150)",
			Micro:  "micro (150–300)",
			High:   "manifesta (>300)",
		},
		Reference: BandLabels{
			Normal: "normal (<30)",
			Micro:  "micro (30–300)",
			High:   "macro (>300)",
		},
	},
}

// DefaultLabelSet is used when no label set is configured.
const DefaultLabelSet = "english"

func LabelSetNames() string {
	names := make([]string, 0, len(LabelSets))
	for k := range LabelSets {
		names = append(names, k)
	}
	sort.Strings(names)

	return strings.Join(names, ", ")
}

func LabelSetByName(name string) (LabelSet, error) {
	if name == "" {
		name = DefaultLabelSet
	}

	l, exists := LabelSets[strings.ToLower(name)]
	if !exists {
		return LabelSet{}, fmt.Errorf("Label set %s is not found. Valid label sets include: %s", name, LabelSetNames())
	}

	return l, nil
}
