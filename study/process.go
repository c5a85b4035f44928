// Package study runs one classification pass over a laboratory sheet and
// derives the tables the dashboard shows from it.
package study

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/carbocation/urinestudy/classify"
	"github.com/carbocation/urinestudy/labsheet"
)

// rowsPerTask is how many rows one worker classifies between checks of the
// context.
const rowsPerTask = 256

type Options struct {
	// Workers is the number of goroutines used to classify rows. Zero means
	// GOMAXPROCS.
	Workers int
}

// ProcessedRow is an input row plus its categories. Arrays are indexed by
// analyzer, then ratio.
type ProcessedRow struct {
	labsheet.Row

	Measure   [classify.NumAnalyzers][classify.NumRatios]classify.Measurement
	Status    [classify.NumAnalyzers][classify.NumRatios]classify.Band
	Reference [classify.NumAnalyzers][classify.NumRatios]classify.Band
}

func (p ProcessedRow) StatusOf(f labsheet.Field) classify.Band {
	return p.Status[f.Analyzer][f.Ratio]
}

func (p ProcessedRow) ReferenceOf(f labsheet.Field) classify.Band {
	return p.Reference[f.Analyzer][f.Ratio]
}

func (p ProcessedRow) MeasureOf(f labsheet.Field) classify.Measurement {
	return p.Measure[f.Analyzer][f.Ratio]
}

// Discordant reports whether the three analyzers put this tube in three
// different categories for ratio.
func (p ProcessedRow) Discordant(ratio classify.Ratio) bool {
	return classify.Discordant(
		p.Status[classify.Arkray][ratio],
		p.Status[classify.Sysmex][ratio],
		p.Status[classify.Cobas][ratio],
	)
}

type Result struct {
	Sheet      *labsheet.Sheet
	Classifier classify.Classifier
	Rows       []ProcessedRow

	// Unparseable counts non-empty cells that yielded no measurement, per
	// field.
	Unparseable map[labsheet.Field]int
}

// Process classifies every row of sheet. Rows keep their input order whatever
// the number of workers.
func Process(ctx context.Context, sheet *labsheet.Sheet, c classify.Classifier, opts Options) (*Result, error) {
	out := &Result{
		Sheet:       sheet,
		Classifier:  c,
		Rows:        make([]ProcessedRow, len(sheet.Rows)),
		Unparseable: make(map[labsheet.Field]int),
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < len(sheet.Rows); start += rowsPerTask {
		start := start
		end := start + rowsPerTask
		if end > len(sheet.Rows) {
			end = len(sheet.Rows)
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				out.Rows[i] = processRow(sheet.Rows[i], c)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Tallied after the fact so that workers never share a map.
	for _, row := range out.Rows {
		for _, f := range labsheet.Fields() {
			if row.Cell(f).Valid && !row.MeasureOf(f).Valid {
				out.Unparseable[f]++
			}
		}
	}

	return out, nil
}

func processRow(row labsheet.Row, c classify.Classifier) ProcessedRow {
	out := ProcessedRow{Row: row}

	for _, a := range classify.Analyzers {
		for _, r := range classify.Ratios {
			cell := row.Cells[a][r]
			if !cell.Valid {
				continue
			}

			m := c.Parse(cell)
			out.Measure[a][r] = m
			out.Status[a][r] = c.CategorizeMeasurement(r, m)
			out.Reference[a][r] = c.ReferenceMeasurement(m)
		}
	}

	return out
}
