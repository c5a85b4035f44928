package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/carbocation/urinestudy/classify"
	"github.com/carbocation/urinestudy/labsheet"
	"github.com/carbocation/urinestudy/study"
)

const studyCSV = `Tubo,Área,A/C Arkray,P/C Arkray,A/C Sysmex,P/C Sysmex,A/C Cobas,P/C Cobas
1,UTI,10,100,45,200,400,500
2,UTI,<30,<150,20,80,15,90
3,Ward,35,160,40,170,50,180
4,Ward,>300,400,12,100,100,250
5,,5,junk,6,,7,
`

func process(t *testing.T, data string) *study.Result {
	t.Helper()

	sheet, err := labsheet.ReadBytes([]byte(data), "study.csv", labsheet.Layouts["auto"])
	if err != nil {
		t.Fatal(err)
	}
	res, err := study.Process(context.Background(), sheet, classify.Default(), study.Options{})
	if err != nil {
		t.Fatal(err)
	}

	return res
}

func TestWriteXLSX(t *testing.T) {
	res := process(t, studyCSV)

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, res); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	want := []string{SheetProcessed, "discordant_ac", "discordant_pc", SheetSummary, SheetMethods}
	if diff := cmp.Diff(want, f.GetSheetList()); diff != "" {
		t.Errorf("Sheet list mismatch (-want +got):\n%s", diff)
	}

	rows, err := f.GetRows(SheetProcessed)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 6 {
		t.Fatalf("Expected header plus 5 rows, got %d", len(rows))
	}
	if rows[0][0] != "Tubo" || rows[0][8] != "status_ac_arkray" || rows[0][14] != "ref_ac_arkray" {
		t.Errorf("Unexpected header %q", rows[0])
	}
	if got := rows[2][8]; got != "normal (<30)" {
		t.Errorf("Tube 2 A/C Arkray should be normal, got %q", got)
	}
	if got := rows[2][14]; got != "micro (30-300)" {
		t.Errorf("Tube 2 A/C Arkray reference should be micro, got %q", got)
	}

	disc, err := f.GetRows("discordant_ac")
	if err != nil {
		t.Fatal(err)
	}
	if len(disc) != 3 {
		t.Fatalf("Expected 2 discordant tubes, got %d rows", len(disc))
	}
	if disc[1][0] != "1" || disc[2][0] != "4" {
		t.Errorf("Unexpected discordant tubes %q, %q", disc[1][0], disc[2][0])
	}

	pc, err := f.GetRows("discordant_pc")
	if err != nil {
		t.Fatal(err)
	}
	if len(pc) != 1 {
		t.Errorf("Expected only a header for P/C, got %d rows", len(pc))
	}
}

func TestWriteXLSXKeepsTubeText(t *testing.T) {
	res := process(t, "Tubo,Área,A/C Arkray,A/C Sysmex,A/C Cobas\n007,12,10,45,400\n")

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, res); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	for _, sheet := range []string{SheetProcessed, DiscordantSheet(classify.RatioAC)} {
		rows, err := f.GetRows(sheet)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 2 {
			t.Fatalf("%s: expected header plus 1 row, got %d", sheet, len(rows))
		}
		if rows[1][0] != "007" || rows[1][1] != "12" {
			t.Errorf("%s: tube and area should stay text, got %q", sheet, rows[1][:2])
		}

		typ, err := f.GetCellType(sheet, "A2")
		if err != nil {
			t.Fatal(err)
		}
		if typ == excelize.CellTypeNumber {
			t.Errorf("%s: tube was stored as a number", sheet)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	res := process(t, studyCSV)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, res); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 6 {
		t.Fatalf("Expected header plus 5 records, got %d", len(records))
	}

	header := records[0]
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}

	last := records[5]
	if last[col["area"]] != "" {
		t.Errorf("Missing area should be empty, got %q", last[col["area"]])
	}
	if last[col["pc_arkray"]] != "junk" {
		t.Errorf("Raw value should be kept, got %q", last[col["pc_arkray"]])
	}
	if last[col["status_pc_arkray"]] != res.Classifier.Labels.Unassigned {
		t.Errorf("Unparseable value should be unassigned, got %q", last[col["status_pc_arkray"]])
	}
	if last[col["status_pc_sysmex"]] != "" {
		t.Errorf("Empty cell should have no status, got %q", last[col["status_pc_sysmex"]])
	}
	if got := records[4][col["status_ac_arkray"]]; got != "macroalbuminuria (>300)" {
		t.Errorf("Tube 4 A/C Arkray should be macro, got %q", got)
	}
}

func TestBarChartPNG(t *testing.T) {
	res := process(t, studyCSV)

	var buf bytes.Buffer
	if err := BarChartPNG(&buf, res, labsheet.Field{Analyzer: classify.Cobas, Ratio: classify.RatioAC}); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("Output is not a PNG")
	}
}

func TestAreaChartPNG(t *testing.T) {
	res := process(t, studyCSV)

	var buf bytes.Buffer
	if err := AreaChartPNG(&buf, res, classify.RatioAC); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("Output is not a PNG")
	}

	// One area is enough to draw.
	res = process(t, "Tubo,Área,A/C Arkray,A/C Sysmex\n1,UTI,10,12\n")
	buf.Reset()
	if err := AreaChartPNG(&buf, res, classify.RatioAC); err != nil {
		t.Fatal(err)
	}
}

func TestChartsWithoutData(t *testing.T) {
	res := process(t, "Tubo,A/C Arkray,A/C Sysmex\n1,junk,\n")

	var buf bytes.Buffer
	err := BarChartPNG(&buf, res, labsheet.Field{Analyzer: classify.Arkray, Ratio: classify.RatioAC})
	if !errors.Is(err, ErrNoData) {
		t.Errorf("Expected ErrNoData, got %v", err)
	}

	if err := AreaChartPNG(&buf, res, classify.RatioAC); !errors.Is(err, ErrNoData) {
		t.Errorf("Expected ErrNoData, got %v", err)
	}

	if charts := Dashboard(res); len(charts) != 0 {
		t.Errorf("Expected no charts, got %d", len(charts))
	}
}

func TestDashboard(t *testing.T) {
	res := process(t, studyCSV)

	charts := Dashboard(res)
	// Six bar charts, two area charts, two reference charts.
	if len(charts) != 10 {
		t.Fatalf("Expected 10 charts, got %d", len(charts))
	}

	first := charts[0]
	if first.ID != "bar_ac_arkray" {
		t.Errorf("Unexpected first chart id %q", first.ID)
	}
	if !strings.Contains(string(first.Element), first.ID) {
		t.Error("Element does not reference its chart id")
	}
	if !strings.Contains(string(first.Script), "echarts.init") {
		t.Error("Script does not initialize the chart")
	}

	var buf bytes.Buffer
	if err := WriteDashboardHTML(&buf, res, "Study"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "area_ac") {
		t.Error("Standalone page is missing the area chart")
	}
}

func TestWritePNGs(t *testing.T) {
	res := process(t, "Tubo,Área,A/C Arkray,A/C Sysmex,A/C Cobas\n1,UTI,10,40,400\n")

	written, err := WritePNGs(t.TempDir(), res)
	if err != nil {
		t.Fatal(err)
	}
	// Three A/C bar charts and one area chart; P/C has no data.
	if len(written) != 4 {
		t.Errorf("Expected 4 charts, got %v", written)
	}
}
