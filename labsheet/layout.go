package labsheet

import (
	"fmt"
	"sort"
	"strings"
)

// DetectHeader as a header row means "scan for it".
const DetectHeader = -1

// How many leading rows are searched for a header.
const headerScanRows = 12

// Layout describes where the header sits in a workbook and how its columns
// map onto measurement fields.
type Layout struct {
	Name string

	// HeaderRow is the 0-based row holding the column names in xlsx/xls
	// workbooks, or DetectHeader.
	HeaderRow int

	// DelimitedHeaderRow is the same for csv/tsv files, which are usually
	// exported without the title block that precedes the table in workbooks.
	DelimitedHeaderRow int

	// Sheet selects a worksheet by name. Empty means the first sheet.
	Sheet string

	// Columns maps a raw header to a column key ("tube", "area", or a
	// Field.Key such as "ac_arkray"). Headers not listed here are matched
	// heuristically.
	Columns map[string]string
}

var Layouts = map[string]Layout{
	// The study workbook: three title rows, then Portuguese headers such as
	// "A/C Arkray (mg/gCr)", "Nº Tubo" and "Área".
	"estudo": {
		Name:               "estudo",
		HeaderRow:          3,
		DelimitedHeaderRow: 0,
		Columns: map[string]string{
			"Nº Tubo":             KeyTube,
			"Área":                KeyArea,
			"A/C Arkray (mg/gCr)": "ac_arkray",
			"P/C Arkray (mg/gCr)": "pc_arkray",
			"A/C Sysmex (mg/gCr)": "ac_sysmex",
			"P/C Sysmex (mg/gCr)": "pc_sysmex",
			"A/C Cobas (mg/gCr)":  "ac_cobas",
			"P/C Cobas (mg/gCr)":  "pc_cobas",
		},
	},
	"auto": {
		Name:               "auto",
		HeaderRow:          DetectHeader,
		DelimitedHeaderRow: DetectHeader,
	},
}

// DefaultLayout is used when none is configured.
const DefaultLayout = "auto"

func LayoutNames() string {
	names := make([]string, 0, len(Layouts))
	for k := range Layouts {
		names = append(names, k)
	}
	sort.Strings(names)

	return strings.Join(names, ", ")
}

func LayoutByName(name string) (Layout, error) {
	if name == "" {
		name = DefaultLayout
	}

	l, exists := Layouts[strings.ToLower(name)]
	if !exists {
		return Layout{}, fmt.Errorf("Layout %s is not found. Valid layout names include: %s", name, LayoutNames())
	}

	return l, nil
}

func (l Layout) headerRowFor(delimited bool) int {
	if delimited {
		return l.DelimitedHeaderRow
	}

	return l.HeaderRow
}
