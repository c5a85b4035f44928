package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/carbocation/urinestudy/classify"
	"github.com/carbocation/urinestudy/labsheet"
	"github.com/carbocation/urinestudy/study"
)

const (
	SheetProcessed = "processed"
	SheetSummary   = "summary"
	SheetMethods   = "methods"
)

// DiscordantSheet names the sheet holding the discordant tubes for ratio.
func DiscordantSheet(ratio classify.Ratio) string {
	return "discordant_" + ratio.String()
}

func StatusKey(f labsheet.Field) string {
	return "status_" + f.Key()
}

func ReferenceKey(f labsheet.Field) string {
	return "ref_" + f.Key()
}

// cellValue stores numbers as numbers so that the workbook stays sortable.
func cellValue(s string) interface{} {
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}

	return s
}

// textValue keeps identifiers such as tube "007" exactly as entered.
func textValue(s string) interface{} {
	if s == "" {
		return nil
	}

	return s
}

type workbook struct {
	f      *excelize.File
	header int
}

func (wb *workbook) writeTable(sheet string, rows [][]interface{}) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := wb.f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return err
		}
	}

	if len(rows) == 0 {
		return nil
	}

	if err := wb.f.SetRowStyle(sheet, 1, 1, wb.header); err != nil {
		return err
	}

	if err := wb.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if len(rows) < 2 || len(rows[0]) == 0 {
		return nil
	}

	last, err := excelize.CoordinatesToCellName(len(rows[0]), len(rows))
	if err != nil {
		return err
	}

	return wb.f.AutoFilter(sheet, "A1:"+last, nil)
}

// WriteXLSX writes the processed workbook: every input column plus the
// status and reference labels, one sheet of discordant tubes per ratio, a
// per-field summary and the analyzer method comparisons.
func WriteXLSX(w io.Writer, res *study.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	wb := &workbook{f: f, header: header}

	if err := f.SetSheetName(f.GetSheetName(0), SheetProcessed); err != nil {
		return err
	}
	if err := wb.writeTable(SheetProcessed, processedTable(res)); err != nil {
		return fmt.Errorf("%s: %w", SheetProcessed, err)
	}

	for _, ratio := range classify.Ratios {
		name := DiscordantSheet(ratio)
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := wb.writeTable(name, discordantTable(res, ratio)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return err
	}
	if err := wb.writeTable(SheetSummary, summaryTable(res)); err != nil {
		return fmt.Errorf("%s: %w", SheetSummary, err)
	}

	if _, err := f.NewSheet(SheetMethods); err != nil {
		return err
	}
	if err := wb.writeTable(SheetMethods, methodsTable(res)); err != nil {
		return fmt.Errorf("%s: %w", SheetMethods, err)
	}

	if err := f.SetColWidth(SheetSummary, "A", "A", 14); err != nil {
		return err
	}

	f.SetActiveSheet(0)

	return f.Write(w)
}

func processedTable(res *study.Result) [][]interface{} {
	var header []string
	textCols := map[int]bool{}
	if res.Sheet != nil {
		header = res.Sheet.Header
		textCols[res.Sheet.TubeCol] = true
		textCols[res.Sheet.AreaCol] = true
	}

	top := make([]interface{}, 0, len(header)+2*len(labsheet.Fields()))
	for _, h := range header {
		top = append(top, h)
	}
	for _, f := range labsheet.Fields() {
		top = append(top, StatusKey(f))
	}
	for _, f := range labsheet.Fields() {
		top = append(top, ReferenceKey(f))
	}

	out := [][]interface{}{top}
	for _, row := range res.Rows {
		line := make([]interface{}, 0, len(top))
		for i := range header {
			var v string
			if i < len(row.Values) {
				v = row.Values[i]
			}
			if textCols[i] {
				line = append(line, textValue(v))
				continue
			}
			line = append(line, cellValue(v))
		}
		for _, f := range labsheet.Fields() {
			line = append(line, labelOrNil(row.Cell(f).Valid, res.Classifier.Label(f.Ratio, row.StatusOf(f))))
		}
		for _, f := range labsheet.Fields() {
			line = append(line, labelOrNil(row.Cell(f).Valid, res.Classifier.ReferenceLabel(row.ReferenceOf(f))))
		}
		out = append(out, line)
	}

	return out
}

func labelOrNil(present bool, label string) interface{} {
	if !present || label == "" {
		return nil
	}

	return label
}

func discordantTable(res *study.Result, ratio classify.Ratio) [][]interface{} {
	fields := labsheet.FieldsFor(ratio)

	top := []interface{}{labsheet.KeyTube, labsheet.KeyArea}
	for _, f := range fields {
		top = append(top, f.Key())
	}
	for _, f := range fields {
		top = append(top, StatusKey(f))
	}

	out := [][]interface{}{top}
	for _, row := range res.Discordant(ratio) {
		line := []interface{}{row.ID(), textValue(NullStringFormatter(row.Area))}
		for _, f := range fields {
			line = append(line, cellValue(NullStringFormatter(row.Cell(f))))
		}
		for _, f := range fields {
			line = append(line, res.Classifier.Label(ratio, row.StatusOf(f)))
		}
		out = append(out, line)
	}

	return out
}

func summaryTable(res *study.Result) [][]interface{} {
	top := []interface{}{"field", "present"}
	for _, b := range classify.Bands {
		top = append(top, b.String())
	}
	top = append(top, "uncategorized", "unparseable", "reference_agree", "reference_total", "discordant")

	out := [][]interface{}{top}
	for _, s := range res.Summary() {
		line := []interface{}{s.Field.Key(), s.Present}
		for _, b := range classify.Bands {
			line = append(line, s.Counts[b])
		}
		line = append(line,
			s.Counts[classify.BandNone],
			s.Unparseable,
			s.Reference.Agree(),
			s.Reference.Total(),
			len(res.Discordant(s.Field.Ratio)),
		)
		out = append(out, line)
	}

	return out
}

func methodsTable(res *study.Result) [][]interface{} {
	out := [][]interface{}{{
		"ratio", "x", "y", "n", "pearson", "slope", "intercept",
		"mean_bias", "median_bias", "bias_sd", "loa_lower", "loa_upper",
		"band_pairs", "band_agree", "kappa",
		"symmetry_chi2", "symmetry_df", "symmetry_p", "fisher_p",
	}}

	for _, ratio := range classify.Ratios {
		for _, a := range res.MethodComparisons(ratio) {
			line := []interface{}{ratio.String(), a.X.String(), a.Y.String(), a.N}
			if a.N >= study.MinPairs {
				for _, v := range []float64{a.Pearson, a.Slope, a.Intercept, a.MeanBias, a.MedianBias, a.BiasSD, a.LowerLimit, a.UpperLimit} {
					line = append(line, finiteOrNil(v))
				}
			} else {
				line = append(line, nil, nil, nil, nil, nil, nil, nil, nil)
			}
			line = append(line, a.BandPairs, a.BandAgree, finiteOrNil(a.Kappa))
			line = append(line, a.SymmetryChi2, a.SymmetryDF, finiteOrNil(a.SymmetryP), finiteOrNil(a.FisherP))
			out = append(out, line)
		}
	}

	return out
}

func finiteOrNil(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}

	return f
}
