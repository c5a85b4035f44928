package labsheet

import (
	"errors"
	"strconv"
	"strings"

	"gopkg.in/guregu/null.v3"

	"github.com/carbocation/urinestudy/classify"
)

var (
	ErrNoHeader          = errors.New("no header row with at least two measurement columns was found")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrHeaderRowMissing  = errors.New("configured header row is beyond the end of the sheet")
)

// Row is one tube: the raw values of every input column plus the cells that
// matter for classification, addressed by analyzer and ratio.
type Row struct {
	// Line is the 1-based row number in the source sheet.
	Line   int
	Values []string

	Tube  null.String
	Area  null.String
	Cells [classify.NumAnalyzers][classify.NumRatios]null.String
}

func (r Row) Cell(f Field) null.String {
	return r.Cells[f.Analyzer][f.Ratio]
}

// ID is the tube identifier, or the line number when there is none.
func (r Row) ID() string {
	if r.Tube.Valid {
		return r.Tube.String
	}

	return "line " + strconv.Itoa(r.Line)
}

// Sheet is a parsed laboratory table.
type Sheet struct {
	Source    string
	Format    string
	Encoding  string
	SheetName string
	HeaderRow int
	Header    []string

	// Columns holds the input column index of each field that was found.
	Columns map[Field]int
	TubeCol int
	AreaCol int

	Rows []Row
}

// HasField reports whether the sheet carries a column for f.
func (s *Sheet) HasField(f Field) bool {
	_, ok := s.Columns[f]
	return ok
}

// MissingFields lists fields that had no column, in Fields() order.
func (s *Sheet) MissingFields() []Field {
	var out []Field
	for _, f := range Fields() {
		if !s.HasField(f) {
			out = append(out, f)
		}
	}

	return out
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(h)
	}

	return out
}

func cellAt(values []string, col int) null.String {
	if col < 0 || col >= len(values) {
		return null.String{}
	}

	v := strings.TrimSpace(values[col])
	if v == "" {
		return null.String{}
	}

	return null.StringFrom(v)
}

func blank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}

	return true
}

// build turns raw records into a Sheet, locating the header as the layout
// dictates.
func build(records [][]string, layout Layout, delimited bool) (*Sheet, error) {
	headerRow := layout.headerRowFor(delimited)

	var cm columnMap
	if headerRow == DetectHeader {
		row, found, ok := detectHeader(records, layout)
		if !ok {
			return nil, ErrNoHeader
		}
		headerRow, cm = row, found
	} else {
		if headerRow >= len(records) {
			return nil, ErrHeaderRowMissing
		}
		cm = matchHeader(records[headerRow], layout)
		if len(cm.fields) == 0 {
			return nil, ErrNoHeader
		}
	}

	header := cleanHeader(records[headerRow])
	s := &Sheet{
		HeaderRow: headerRow,
		Header:    header,
		Columns:   cm.fields,
		TubeCol:   cm.tube,
		AreaCol:   cm.area,
	}

	for i := headerRow + 1; i < len(records); i++ {
		values := records[i]
		if blank(values) {
			continue
		}

		// Pad short rows so that every row lines up with the header.
		if len(values) < len(header) {
			padded := make([]string, len(header))
			copy(padded, values)
			values = padded
		}

		row := Row{
			Line:   i + 1,
			Values: values,
			Tube:   cellAt(values, cm.tube),
			Area:   cellAt(values, cm.area),
		}
		for f, col := range cm.fields {
			row.Cells[f.Analyzer][f.Ratio] = cellAt(values, col)
		}

		s.Rows = append(s.Rows, row)
	}

	return s, nil
}
