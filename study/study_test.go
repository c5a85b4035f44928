package study

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/guregu/null.v3"

	"github.com/carbocation/urinestudy/classify"
	"github.com/carbocation/urinestudy/labsheet"
)

const studyCSV = `Tubo,Área,A/C Arkray,P/C Arkray,A/C Sysmex,P/C Sysmex,A/C Cobas,P/C Cobas
1,UTI,10,100,45,200,400,500
2,UTI,<30,<150,20,80,15,90
3,Ward,35,160,40,170,50,180
4,Ward,>300,400,12,100,100,250
5,,5,junk,6,,7,
`

var (
	acArkray = labsheet.Field{Analyzer: classify.Arkray, Ratio: classify.RatioAC}
	pcArkray = labsheet.Field{Analyzer: classify.Arkray, Ratio: classify.RatioPC}
)

func mustProcess(t *testing.T, csv string, c classify.Classifier) *Result {
	t.Helper()

	sheet, err := labsheet.ReadBytes([]byte(csv), "study.csv", labsheet.Layouts["auto"])
	if err != nil {
		t.Fatal(err)
	}

	res, err := Process(context.Background(), sheet, c, Options{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}

	return res
}

func tubes(rows []ProcessedRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID())
	}
	return out
}

func TestCounts(t *testing.T) {
	res := mustProcess(t, studyCSV, classify.Default())

	ac := res.Counts(acArkray)
	if ac[classify.BandNormal] != 3 || ac[classify.BandMicro] != 1 || ac[classify.BandHigh] != 1 {
		t.Errorf("Unexpected A/C Arkray counts %v", ac)
	}
	if ac.Total() != 5 {
		t.Errorf("Expected 5 categorized rows, got %d", ac.Total())
	}

	pc := res.Counts(pcArkray)
	if pc[classify.BandNormal] != 2 || pc[classify.BandHigh] != 2 || pc[classify.BandNone] != 1 {
		t.Errorf("Unexpected P/C Arkray counts %v", pc)
	}
	if pc.Total() != 4 {
		t.Errorf("Uncategorized rows should not count, got %d", pc.Total())
	}

	if res.Unparseable[pcArkray] != 1 {
		t.Errorf("Expected one unparseable P/C Arkray cell, got %d", res.Unparseable[pcArkray])
	}
}

func TestNormalByArea(t *testing.T) {
	res := mustProcess(t, studyCSV, classify.Default())

	got := res.NormalByArea(classify.RatioAC)
	want := AreaTable{
		Ratio:  classify.RatioAC,
		Areas:  []string{"UTI", "Ward"},
		Counts: [][classify.NumAnalyzers]int{{2, 1, 1}, {0, 1, 0}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NormalByArea mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscordant(t *testing.T) {
	res := mustProcess(t, studyCSV, classify.Default())

	if got := tubes(res.Discordant(classify.RatioAC)); !cmp.Equal(got, []string{"1", "4"}) {
		t.Errorf("A/C discordant tubes were %v", got)
	}

	// Two bands cannot be split three ways.
	if got := res.Discordant(classify.RatioPC); len(got) != 0 {
		t.Errorf("Two-band P/C should never be discordant, got %v", tubes(got))
	}

	three := classify.New(classify.PCThreeBand, classify.LabelSets["english"])
	res = mustProcess(t, studyCSV, three)
	if got := tubes(res.Discordant(classify.RatioPC)); !cmp.Equal(got, []string{"1", "4"}) {
		t.Errorf("Three-band P/C discordant tubes were %v", got)
	}
}

func TestReferenceComparison(t *testing.T) {
	res := mustProcess(t, studyCSV, classify.Default())

	c := res.ReferenceComparison(acArkray)
	if c.Counts[classify.BandNormal][classify.BandNormal] != 2 {
		t.Errorf("Expected 2 normal/normal, got %d", c.Counts[classify.BandNormal][classify.BandNormal])
	}
	// "<30" is normal to the primary categorizer but 30 is micro to the
	// reference.
	if c.Counts[classify.BandNormal][classify.BandMicro] != 1 {
		t.Errorf("Expected 1 normal/micro, got %d", c.Counts[classify.BandNormal][classify.BandMicro])
	}
	// ">300" reads as exactly 300, which is still micro.
	if c.Counts[classify.BandHigh][classify.BandMicro] != 1 {
		t.Errorf("Expected 1 high/micro, got %d", c.Counts[classify.BandHigh][classify.BandMicro])
	}
	if c.Agree() != 3 || c.Total() != 5 {
		t.Errorf("Expected 3/5 agreement, got %d/%d", c.Agree(), c.Total())
	}
}

func TestMethodComparison(t *testing.T) {
	res := mustProcess(t, studyCSV, classify.Default())

	a, err := res.MethodComparison(classify.RatioAC, classify.Arkray, classify.Sysmex)
	if err != nil {
		t.Fatal(err)
	}
	if a.N != 3 {
		t.Errorf("Expected 3 numeric pairs, got %d", a.N)
	}
	if math.Abs(a.MeanBias-41.0/3) > 1e-9 {
		t.Errorf("Expected mean bias 13.667, got %f", a.MeanBias)
	}
	if a.MedianBias != 5 {
		t.Errorf("Expected median bias 5, got %f", a.MedianBias)
	}
	if a.BandPairs != 5 || a.BandAgree != 3 {
		t.Errorf("Expected 3/5 band agreement, got %d/%d", a.BandAgree, a.BandPairs)
	}
	if a.PercentAgreement() != 60 {
		t.Errorf("Expected 60%%, got %f", a.PercentAgreement())
	}
}

func TestMethodComparisonLinear(t *testing.T) {
	var b strings.Builder
	b.WriteString("Tube,A/C Arkray,A/C Sysmex,A/C Cobas\n")
	for _, x := range []string{"10", "20", "40", "80", "160"} {
		b.WriteString(x + "," + x + ",0," + x + "\n")
	}
	res := mustProcess(t, b.String(), classify.Default())

	a, err := res.MethodComparison(classify.RatioAC, classify.Arkray, classify.Cobas)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(a.Slope-1) > 1e-9 || math.Abs(a.Intercept) > 1e-9 {
		t.Errorf("Expected identity fit, got slope %f intercept %f", a.Slope, a.Intercept)
	}
	if math.Abs(a.Pearson-1) > 1e-9 {
		t.Errorf("Expected r=1, got %f", a.Pearson)
	}
	if a.MeanBias != 0 || a.BiasSD != 0 {
		t.Errorf("Expected no bias, got %f (sd %f)", a.MeanBias, a.BiasSD)
	}
	if a.Kappa != 1 {
		t.Errorf("Expected kappa 1, got %f", a.Kappa)
	}
}

func TestMethodComparisonTooFew(t *testing.T) {
	res := mustProcess(t, "Tube,A/C Arkray,A/C Sysmex\n1,10,12\n2,<30,40\n", classify.Default())

	_, err := res.MethodComparison(classify.RatioAC, classify.Arkray, classify.Sysmex)
	if !errors.Is(err, ErrTooFewPairs) {
		t.Errorf("Expected ErrTooFewPairs, got %v", err)
	}

	if got := len(res.MethodComparisons(classify.RatioAC)); got != 3 {
		t.Errorf("Expected all 3 analyzer pairs, got %d", got)
	}
}

func TestCohenKappa(t *testing.T) {
	var m [classify.NumBands][classify.NumBands]int
	m[classify.BandNormal][classify.BandNormal] = 20
	m[classify.BandNormal][classify.BandMicro] = 5
	m[classify.BandMicro][classify.BandNormal] = 10
	m[classify.BandMicro][classify.BandMicro] = 15

	if got := cohenKappa(m, 50); math.Abs(got-0.4) > 1e-9 {
		t.Errorf("Expected kappa 0.4, got %f", got)
	}
	if got := cohenKappa(m, 0); !math.IsNaN(got) {
		t.Errorf("Expected NaN without pairs, got %f", got)
	}
}

func TestBowkerAndFisher(t *testing.T) {
	var m [classify.NumBands][classify.NumBands]int
	m[classify.BandNormal][classify.BandNormal] = 20
	m[classify.BandNormal][classify.BandMicro] = 5
	m[classify.BandMicro][classify.BandNormal] = 10
	m[classify.BandMicro][classify.BandMicro] = 15

	chi2, df, p := bowker(m)
	if df != 1 || math.Abs(chi2-25.0/15) > 1e-9 {
		t.Errorf("Expected chi2 1.667 on 1 df, got %f on %d", chi2, df)
	}
	if math.Abs(p-0.1967) > 1e-3 {
		t.Errorf("Expected p 0.1967, got %f", p)
	}

	if got := fisherNormal(m, 50); math.Abs(got-0.008579) > 1e-4 {
		t.Errorf("Expected Fisher p 0.008579, got %f", got)
	}
	if got := fisherNormal(m, 0); !math.IsNaN(got) {
		t.Errorf("Expected NaN without pairs, got %f", got)
	}

	var diagonal [classify.NumBands][classify.NumBands]int
	diagonal[classify.BandHigh][classify.BandHigh] = 7
	if _, df, p := bowker(diagonal); df != 0 || !math.IsNaN(p) {
		t.Errorf("Expected NaN on 0 df without discordant tubes, got %f on %d", p, df)
	}
}

func TestProcessWorkerIndependence(t *testing.T) {
	var rows []labsheet.Row
	values := []string{"<30", "29.9", "30", "300", "300.5", "over", "> 40", "junk", ""}
	for i := 0; i < 1000; i++ {
		row := labsheet.Row{Line: i + 2}
		for _, a := range classify.Analyzers {
			for _, r := range classify.Ratios {
				v := values[(i+int(a)*3+int(r))%len(values)]
				if v != "" {
					row.Cells[a][r] = null.StringFrom(v)
				}
			}
		}
		rows = append(rows, row)
	}
	sheet := &labsheet.Sheet{Rows: rows}

	serial, err := Process(context.Background(), sheet, classify.Default(), Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := Process(context.Background(), sheet, classify.Default(), Options{Workers: 8})
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(serial.Rows, parallel.Rows); diff != "" {
		t.Errorf("Worker count changed the result (-serial +parallel):\n%s", diff)
	}
	if diff := cmp.Diff(serial.Unparseable, parallel.Unparseable); diff != "" {
		t.Errorf("Unparseable tallies differ:\n%s", diff)
	}
}

func TestProcessCanceled(t *testing.T) {
	sheet := &labsheet.Sheet{Rows: make([]labsheet.Row, 10)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Process(ctx, sheet, classify.Default(), Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(`
policy: three-band
labels: portuguese
layout: estudo
header_row: 2
sheet: Dados
decimal_comma: true
workers: 4
columns:
  "Albumina Cobas": ac_cobas
`))
	if err != nil {
		t.Fatal(err)
	}

	c, err := cfg.Classifier()
	if err != nil {
		t.Fatal(err)
	}
	if c.Policy != classify.PCThreeBand || c.Labels.Name != "portuguese" || !c.DecimalComma {
		t.Errorf("Unexpected classifier %+v", c)
	}

	layout, err := cfg.SheetLayout()
	if err != nil {
		t.Fatal(err)
	}
	if layout.HeaderRow != 2 || layout.DelimitedHeaderRow != 2 || layout.Sheet != "Dados" {
		t.Errorf("Unexpected layout %+v", layout)
	}
	if layout.Columns["Albumina Cobas"] != "ac_cobas" {
		t.Errorf("Column override was not merged: %v", layout.Columns)
	}
	if layout.Columns["Nº Tubo"] != labsheet.KeyTube {
		t.Errorf("Layout columns were lost: %v", layout.Columns)
	}
	if labsheet.Layouts["estudo"].Columns["Albumina Cobas"] != "" {
		t.Error("Overrides leaked into the built-in layout")
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}

	c, err := cfg.Classifier()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(classify.Default(), c); diff != "" {
		t.Errorf("Empty config should give the default classifier:\n%s", diff)
	}
}

func TestParseConfigErrors(t *testing.T) {
	if _, err := ParseConfig(strings.NewReader("polcy: two-band\n")); err == nil {
		t.Error("Expected unknown keys to be rejected")
	}

	cfg, err := ParseConfig(strings.NewReader("columns:\n  Foo: ac_nothing\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.SheetLayout(); err == nil {
		t.Error("Expected an invalid column key to be rejected")
	}

	cfg, err = ParseConfig(strings.NewReader(`
custom_labels:
  ac: {normal: ok, micro: ok, high: bad}
`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.Classifier(); err == nil {
		t.Error("Expected a duplicated label to be rejected")
	}
}
