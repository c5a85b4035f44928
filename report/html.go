package report

import (
	"errors"
	"fmt"
	"html/template"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/render"

	"github.com/carbocation/urinestudy/classify"
	"github.com/carbocation/urinestudy/labsheet"
	"github.com/carbocation/urinestudy/study"
)

// EChartsJS is the script the dashboard snippets expect on the page.
const EChartsJS = "https://go-echarts.github.io/go-echarts-assets/assets/echarts.min.js"

var bandHex = map[classify.Band]string{
	classify.BandNormal: "#3ba272",
	classify.BandMicro:  "#fac858",
	classify.BandHigh:   "#ee6666",
}

func isNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}

// Chart is one rendered go-echarts chart, split so that it can be placed in
// another page's template.
type Chart struct {
	ID      string
	Title   string
	Element template.HTML
	Script  template.HTML
}

func initOpts(id string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		ChartID: id,
		Width:   "100%",
		Height:  "360px",
	})
}

// BarChart counts the categories of one field, one bar per category.
func BarChart(res *study.Result, f labsheet.Field) (*charts.Bar, error) {
	counts := res.Counts(f)
	if counts.Total() == 0 {
		return nil, fmt.Errorf("%s: %w", f, ErrNoData)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts("bar_"+f.Key()),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s %s", f.Ratio.Display(), f.Analyzer.Display()),
			Subtitle: fmt.Sprintf("n=%d", counts.Total()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show: opts.Bool(true),
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
	)

	var labels []string
	var data []opts.BarData
	for _, b := range res.Classifier.BandsFor(f.Ratio) {
		label := res.Classifier.Label(f.Ratio, b)
		labels = append(labels, label)
		data = append(data, opts.BarData{
			Name:      label,
			Value:     counts[b],
			ItemStyle: &opts.ItemStyle{Color: bandHex[b]},
		})
	}

	bar.SetXAxis(labels).AddSeries(f.Analyzer.Display(), data)

	return bar, nil
}

// AreaChart plots normal tubes per area with one filled line per analyzer.
func AreaChart(res *study.Result, ratio classify.Ratio) (*charts.Line, error) {
	table := res.NormalByArea(ratio)
	if table.Empty() {
		return nil, fmt.Errorf("%s by area: %w", ratio.Display(), ErrNoData)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts("area_"+ratio.String()),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s normal by area", ratio.Display()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Top:  "bottom",
		}),
	)

	line.SetXAxis(table.Areas)
	for _, a := range classify.Analyzers {
		data := make([]opts.LineData, 0, len(table.Areas))
		for _, counts := range table.Counts {
			data = append(data, opts.LineData{Value: counts[a]})
		}
		line.AddSeries(a.Display(), data)
	}
	line.SetSeriesOptions(
		charts.WithAreaStyleOpts(opts.AreaStyle{
			Opacity: opts.Float(0.3),
		}),
		charts.WithLineChartOpts(opts.LineChart{
			Smooth:     opts.Bool(false),
			ShowSymbol: opts.Bool(true),
		}),
	)

	return line, nil
}

// ReferenceChart stacks, for each analyzer, the reference categories of the
// tubes in each primary category.
func ReferenceChart(res *study.Result, ratio classify.Ratio) (*charts.Bar, error) {
	var xs []string
	var comparisons []study.Contingency
	for _, f := range labsheet.FieldsFor(ratio) {
		c := res.ReferenceComparison(f)
		if c.Total() == 0 {
			continue
		}
		for _, b := range res.Classifier.BandsFor(ratio) {
			xs = append(xs, fmt.Sprintf("%s %s", f.Analyzer.Display(), res.Classifier.Label(ratio, b)))
		}
		comparisons = append(comparisons, c)
	}
	if len(comparisons) == 0 {
		return nil, fmt.Errorf("%s reference: %w", ratio.Display(), ErrNoData)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts("reference_"+ratio.String()),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s against reference thresholds", ratio.Display()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Top:  "bottom",
		}),
	)
	bar.SetXAxis(xs)

	for _, ref := range classify.Bands {
		var data []opts.BarData
		for _, c := range comparisons {
			for _, b := range res.Classifier.BandsFor(ratio) {
				data = append(data, opts.BarData{Value: c.Counts[b][ref]})
			}
		}
		bar.AddSeries(res.Classifier.ReferenceLabel(ref), data,
			charts.WithBarChartOpts(opts.BarChart{Stack: "reference"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: bandHex[ref]}),
		)
	}

	return bar, nil
}

// DashboardCharts builds every chart that has data, in display order.
func DashboardCharts(res *study.Result) []components.Charter {
	var out []components.Charter

	for _, ratio := range classify.Ratios {
		for _, f := range labsheet.FieldsFor(ratio) {
			if bar, err := BarChart(res, f); err == nil {
				out = append(out, bar)
			}
		}
		if line, err := AreaChart(res, ratio); err == nil {
			out = append(out, line)
		}
		if ref, err := ReferenceChart(res, ratio); err == nil {
			out = append(out, ref)
		}
	}

	return out
}

// Dashboard renders the charts as HTML fragments for embedding. The page must
// load EChartsJS before the scripts run.
func Dashboard(res *study.Result) []Chart {
	var out []Chart
	for _, c := range DashboardCharts(res) {
		r, ok := c.(render.Renderer)
		if !ok {
			continue
		}
		snippet := r.RenderSnippet()
		id, title := chartMeta(c)
		out = append(out, Chart{
			ID:      id,
			Title:   title,
			Element: template.HTML(snippet.Element),
			Script:  template.HTML(snippet.Script),
		})
	}

	return out
}

func chartMeta(c components.Charter) (string, string) {
	switch v := c.(type) {
	case *charts.Bar:
		return v.ChartID, v.Title.Title
	case *charts.Line:
		return v.ChartID, v.Title.Title
	}

	return "", ""
}

// WriteDashboardHTML writes a standalone page with every chart.
func WriteDashboardHTML(w io.Writer, res *study.Result, title string) error {
	page := components.NewPage()
	page.SetPageTitle(title)
	page.AddCharts(DashboardCharts(res)...)

	return page.Render(w)
}
