package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/carbocation/urinestudy/classify"
	"github.com/carbocation/urinestudy/labsheet"
	"github.com/carbocation/urinestudy/study"
)

var bandColors = map[classify.Band]drawing.Color{
	classify.BandNormal: drawing.ColorFromHex("3ba272"),
	classify.BandMicro:  drawing.ColorFromHex("fac858"),
	classify.BandHigh:   drawing.ColorFromHex("ee6666"),
}

var analyzerColors = [classify.NumAnalyzers]drawing.Color{
	drawing.ColorFromHex("5470c6"),
	drawing.ColorFromHex("91cc75"),
	drawing.ColorFromHex("9a60b4"),
}

// BarChartPNG draws the category counts of one field.
func BarChartPNG(w io.Writer, res *study.Result, f labsheet.Field) error {
	counts := res.Counts(f)
	if counts.Total() == 0 {
		return fmt.Errorf("%s: %w", f, ErrNoData)
	}

	max := 0
	bars := make([]chart.Value, 0, len(classify.Bands))
	for _, b := range res.Classifier.BandsFor(f.Ratio) {
		if counts[b] > max {
			max = counts[b]
		}
		bars = append(bars, chart.Value{
			Label: res.Classifier.Label(f.Ratio, b),
			Value: float64(counts[b]),
			Style: chart.Style{
				FillColor:   bandColors[b],
				StrokeColor: bandColors[b],
			},
		})
	}

	graph := chart.BarChart{
		Title:    fmt.Sprintf("%s %s", f.Ratio.Display(), f.Analyzer.Display()),
		Width:    512,
		Height:   384,
		BarWidth: 80,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(max)},
		},
		Bars: bars,
	}

	// Render to a byte buffer
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return err
	}

	_, err := buffer.WriteTo(w)
	return err
}

// AreaChartPNG draws the normal tubes per area as one filled series per
// analyzer.
func AreaChartPNG(w io.Writer, res *study.Result, ratio classify.Ratio) error {
	table := res.NormalByArea(ratio)
	if table.Empty() {
		return fmt.Errorf("%s by area: %w", ratio.Display(), ErrNoData)
	}

	n := len(table.Areas)
	xs := make([]float64, n)
	// Blank ticks half a step beyond each end keep a single area drawable.
	ticks := []chart.Tick{{Value: -0.5}}
	for i, area := range table.Areas {
		xs[i] = float64(i)
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: area})
	}
	ticks = append(ticks, chart.Tick{Value: float64(n) - 0.5})

	max := 0
	series := make([]chart.Series, 0, classify.NumAnalyzers)
	for _, a := range classify.Analyzers {
		ys := make([]float64, n)
		for i, counts := range table.Counts {
			ys[i] = float64(counts[a])
			if counts[a] > max {
				max = counts[a]
			}
		}
		series = append(series, chart.ContinuousSeries{
			Name:    a.Display(),
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: analyzerColors[a],
				StrokeWidth: 2,
				FillColor:   analyzerColors[a].WithAlpha(64),
			},
		})
	}
	if max == 0 {
		return fmt.Errorf("%s by area: %w", ratio.Display(), ErrNoData)
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s normal by area", ratio.Display()),
		Width:  768,
		Height: 384,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 120},
		},
		XAxis: chart.XAxis{
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(max)},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return err
	}

	_, err := buffer.WriteTo(w)
	return err
}

// ChartFilename is the PNG name used for a field's bar chart.
func ChartFilename(f labsheet.Field) string {
	return fmt.Sprintf("%s_%s.png", f.Analyzer, f.Ratio)
}

// AreaChartFilename is the PNG name used for a ratio's area chart.
func AreaChartFilename(ratio classify.Ratio) string {
	return fmt.Sprintf("normal_by_area_%s.png", ratio)
}

// WritePNGs writes every chart that has data into dir and returns the paths
// written. Charts without data are skipped.
func WritePNGs(dir string, res *study.Result) ([]string, error) {
	var written []string

	write := func(name string, draw func(io.Writer) error) error {
		var buf bytes.Buffer
		if err := draw(&buf); err != nil {
			return err
		}

		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	for _, f := range labsheet.Fields() {
		err := write(ChartFilename(f), func(w io.Writer) error { return BarChartPNG(w, res, f) })
		if err != nil && !isNoData(err) {
			return written, err
		}
	}

	for _, ratio := range classify.Ratios {
		err := write(AreaChartFilename(ratio), func(w io.Writer) error { return AreaChartPNG(w, res, ratio) })
		if err != nil && !isNoData(err) {
			return written, err
		}
	}

	return written, nil
}
