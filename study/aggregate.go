package study

import (
	"sort"

	"github.com/carbocation/urinestudy/classify"
	"github.com/carbocation/urinestudy/labsheet"
)

// BandCounts is indexed by band. The BandNone slot counts rows whose cell was
// empty or unparseable; charts and tables ignore it.
type BandCounts [classify.NumBands]int

// Total is the number of categorized rows.
func (b BandCounts) Total() int {
	n := 0
	for _, band := range classify.Bands {
		n += b[band]
	}

	return n
}

// Counts tallies the primary categories of one field.
func (r *Result) Counts(f labsheet.Field) BandCounts {
	var out BandCounts
	for _, row := range r.Rows {
		out[row.StatusOf(f)]++
	}

	return out
}

// AreaTable is the number of tubes with a normal category per area and
// analyzer. Areas are sorted; combinations with no tubes are zero.
type AreaTable struct {
	Ratio  classify.Ratio
	Areas  []string
	Counts [][classify.NumAnalyzers]int
}

func (a AreaTable) Empty() bool {
	return len(a.Areas) == 0
}

// NormalByArea groups normal rows by area. Rows without an area are skipped.
func (r *Result) NormalByArea(ratio classify.Ratio) AreaTable {
	byArea := make(map[string]*[classify.NumAnalyzers]int)

	for _, row := range r.Rows {
		if !row.Area.Valid {
			continue
		}
		for _, a := range classify.Analyzers {
			if row.Status[a][ratio] != classify.BandNormal {
				continue
			}
			counts, ok := byArea[row.Area.String]
			if !ok {
				counts = new([classify.NumAnalyzers]int)
				byArea[row.Area.String] = counts
			}
			counts[a]++
		}
	}

	out := AreaTable{Ratio: ratio}
	for area := range byArea {
		out.Areas = append(out.Areas, area)
	}
	sort.Strings(out.Areas)

	out.Counts = make([][classify.NumAnalyzers]int, len(out.Areas))
	for i, area := range out.Areas {
		out.Counts[i] = *byArea[area]
	}

	return out
}

// Discordant returns the rows on which all three analyzers disagree.
func (r *Result) Discordant(ratio classify.Ratio) []ProcessedRow {
	var out []ProcessedRow
	for _, row := range r.Rows {
		if row.Discordant(ratio) {
			out = append(out, row)
		}
	}

	return out
}

// Contingency cross-tabulates the primary category of a field (rows) against
// its reference category (columns).
type Contingency struct {
	Field  labsheet.Field
	Counts [classify.NumBands][classify.NumBands]int
}

// Agree is the number of rows where both categorizers gave the same valid
// band.
func (c Contingency) Agree() int {
	n := 0
	for _, b := range classify.Bands {
		n += c.Counts[b][b]
	}

	return n
}

// Total is the number of rows where both categorizers gave a valid band.
func (c Contingency) Total() int {
	n := 0
	for _, primary := range classify.Bands {
		for _, ref := range classify.Bands {
			n += c.Counts[primary][ref]
		}
	}

	return n
}

func (r *Result) ReferenceComparison(f labsheet.Field) Contingency {
	out := Contingency{Field: f}
	for _, row := range r.Rows {
		out.Counts[row.StatusOf(f)][row.ReferenceOf(f)]++
	}

	return out
}

// FieldSummary is one line of the summary sheet.
type FieldSummary struct {
	Field       labsheet.Field
	Present     bool
	Counts      BandCounts
	Unparseable int
	Reference   Contingency
}

func (r *Result) Summary() []FieldSummary {
	out := make([]FieldSummary, 0, len(labsheet.Fields()))
	for _, f := range labsheet.Fields() {
		out = append(out, FieldSummary{
			Field:       f,
			Present:     r.Sheet == nil || r.Sheet.HasField(f),
			Counts:      r.Counts(f),
			Unparseable: r.Unparseable[f],
			Reference:   r.ReferenceComparison(f),
		})
	}

	return out
}
