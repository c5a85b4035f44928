// Package report writes the outputs of a study: the processed workbook, a
// flat CSV, PNG charts and an HTML dashboard.
package report

import (
	"errors"
	"io"

	"github.com/gocarina/gocsv"
	"gopkg.in/guregu/null.v3"

	"github.com/carbocation/urinestudy/classify"
	"github.com/carbocation/urinestudy/labsheet"
	"github.com/carbocation/urinestudy/study"
)

var ErrNoData = errors.New("nothing to plot")

// Record is one processed tube in the flat CSV export. Measurement columns
// hold the cell text as read; status and ref columns hold labels.
type Record struct {
	Tube string `csv:"tube"`
	Area string `csv:"area"`

	ACArkray string `csv:"ac_arkray"`
	PCArkray string `csv:"pc_arkray"`
	ACSysmex string `csv:"ac_sysmex"`
	PCSysmex string `csv:"pc_sysmex"`
	ACCobas  string `csv:"ac_cobas"`
	PCCobas  string `csv:"pc_cobas"`

	StatusACArkray string `csv:"status_ac_arkray"`
	StatusPCArkray string `csv:"status_pc_arkray"`
	StatusACSysmex string `csv:"status_ac_sysmex"`
	StatusPCSysmex string `csv:"status_pc_sysmex"`
	StatusACCobas  string `csv:"status_ac_cobas"`
	StatusPCCobas  string `csv:"status_pc_cobas"`

	RefACArkray string `csv:"ref_ac_arkray"`
	RefPCArkray string `csv:"ref_pc_arkray"`
	RefACSysmex string `csv:"ref_ac_sysmex"`
	RefPCSysmex string `csv:"ref_pc_sysmex"`
	RefACCobas  string `csv:"ref_ac_cobas"`
	RefPCCobas  string `csv:"ref_pc_cobas"`
}

func NullStringFormatter(n null.String) string {
	if !n.Valid {
		return ""
	}

	return n.String
}

// fieldColumns are the Record fields for one analyzer/ratio cell, in the
// order value, status, ref.
func (rec *Record) fieldColumns(f labsheet.Field) (*string, *string, *string) {
	switch f.Key() {
	case "ac_arkray":
		return &rec.ACArkray, &rec.StatusACArkray, &rec.RefACArkray
	case "pc_arkray":
		return &rec.PCArkray, &rec.StatusPCArkray, &rec.RefPCArkray
	case "ac_sysmex":
		return &rec.ACSysmex, &rec.StatusACSysmex, &rec.RefACSysmex
	case "pc_sysmex":
		return &rec.PCSysmex, &rec.StatusPCSysmex, &rec.RefPCSysmex
	case "ac_cobas":
		return &rec.ACCobas, &rec.StatusACCobas, &rec.RefACCobas
	case "pc_cobas":
		return &rec.PCCobas, &rec.StatusPCCobas, &rec.RefPCCobas
	}

	return new(string), new(string), new(string)
}

func NewRecord(row study.ProcessedRow, c classify.Classifier) Record {
	rec := Record{
		Tube: NullStringFormatter(row.Tube),
		Area: NullStringFormatter(row.Area),
	}

	for _, f := range labsheet.Fields() {
		value, status, ref := rec.fieldColumns(f)
		*value = NullStringFormatter(row.Cell(f))
		if !row.Cell(f).Valid {
			continue
		}
		*status = c.Label(f.Ratio, row.StatusOf(f))
		*ref = c.ReferenceLabel(row.ReferenceOf(f))
	}

	return rec
}

func Records(res *study.Result) []Record {
	out := make([]Record, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, NewRecord(row, res.Classifier))
	}

	return out
}

// WriteCSV writes one Record per tube, with a header.
func WriteCSV(w io.Writer, res *study.Result) error {
	records := Records(res)
	return gocsv.Marshal(&records, w)
}
