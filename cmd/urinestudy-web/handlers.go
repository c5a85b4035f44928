package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/gorilla/mux"

	"github.com/carbocation/urinestudy/classify"
	"github.com/carbocation/urinestudy/compileinfo"
	"github.com/carbocation/urinestudy/labsheet"
	"github.com/carbocation/urinestudy/report"
	"github.com/carbocation/urinestudy/study"
)

func (h *handler) Index(w http.ResponseWriter, r *http.Request) {
	output := struct {
		Policy    classify.PCPolicy
		Labels    string
		LabelSets string
		Layouts   string
		Studies   int
	}{
		Policy:    h.Global.Classifier.Policy,
		Labels:    h.Global.Classifier.Labels.Name,
		LabelSets: classify.LabelSetNames(),
		Layouts:   labsheet.LayoutNames(),
		Studies:   h.Global.StudyCount(),
	}

	Render(h, w, r, h.Global.Site, "index.html", output, nil)
}

// classifierFor applies the optional per-upload overrides from the form.
func (h *handler) classifierFor(r *http.Request) (classify.Classifier, error) {
	c := h.Global.Classifier

	if v := r.FormValue("policy"); v != "" {
		policy, err := classify.ParsePolicy(v)
		if err != nil {
			return c, err
		}
		c.Policy = policy
	}

	if v := r.FormValue("labels"); v != "" {
		labels, err := classify.LabelSetByName(v)
		if err != nil {
			return c, err
		}
		c.Labels = labels
	}

	return c, nil
}

func (h *handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.Global.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.Global.MaxUploadBytes); err != nil {
		HTTPError(h, w, r, fmt.Errorf("Could not read the upload: %w", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		HTTPError(h, w, r, fmt.Errorf("No file was uploaded"), http.StatusBadRequest)
		return
	}
	defer file.Close()

	classifier, err := h.classifierFor(r)
	if err != nil {
		HTTPError(h, w, r, err, http.StatusBadRequest)
		return
	}

	layout := h.Global.Layout
	if v := r.FormValue("layout"); v != "" {
		if layout, err = labsheet.LayoutByName(v); err != nil {
			HTTPError(h, w, r, err, http.StatusBadRequest)
			return
		}
	}

	sheet, err := labsheet.Read(file, header.Filename, layout)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, labsheet.ErrNoHeader) || errors.Is(err, labsheet.ErrUnsupportedFormat) || errors.Is(err, labsheet.ErrHeaderRowMissing) {
			code = http.StatusUnprocessableEntity
		}
		HTTPError(h, w, r, err, code)
		return
	}

	res, err := study.Process(r.Context(), sheet, classifier, study.Options{Workers: h.Global.Workers})
	if err != nil {
		HTTPError(h, w, r, err)
		return
	}

	s := h.Global.AddStudy(header.Filename, res)
	h.Global.log.Printf("Processed %s: %d rows as study %s\n", header.Filename, len(res.Rows), s.ID)

	u, err := h.router.Get("study").URL("id", s.ID)
	if err != nil {
		HTTPError(h, w, r, err)
		return
	}

	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

func (h *handler) lookupStudy(w http.ResponseWriter, r *http.Request) (*Study, bool) {
	id := mux.Vars(r)["id"]
	s, ok := h.Global.Study(id)
	if !ok {
		HTTPError(h, w, r, fmt.Errorf("Study %s was not found. Studies are kept in memory only and may have expired", id), http.StatusNotFound)
		return nil, false
	}

	return s, true
}

type discordantView struct {
	Ratio  classify.Ratio
	Fields [classify.NumAnalyzers]labsheet.Field
	Rows   []study.ProcessedRow
}

type summaryView struct {
	study.FieldSummary
	Labels []string
	Counts []int
}

func (h *handler) StudyHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupStudy(w, r)
	if !ok {
		return
	}
	res := s.Result

	var discordant []discordantView
	for _, ratio := range classify.Ratios {
		discordant = append(discordant, discordantView{
			Ratio:  ratio,
			Fields: labsheet.FieldsFor(ratio),
			Rows:   res.Discordant(ratio),
		})
	}

	var summary []summaryView
	for _, fs := range res.Summary() {
		v := summaryView{FieldSummary: fs}
		for _, b := range res.Classifier.BandsFor(fs.Field.Ratio) {
			v.Labels = append(v.Labels, res.Classifier.Label(fs.Field.Ratio, b))
			v.Counts = append(v.Counts, fs.Counts[b])
		}
		summary = append(summary, v)
	}

	var methods []study.Agreement
	for _, ratio := range classify.Ratios {
		methods = append(methods, res.MethodComparisons(ratio)...)
	}

	output := struct {
		Study      *Study
		Classifier classify.Classifier
		Missing    []labsheet.Field
		Charts     []report.Chart
		Summary    []summaryView
		Discordant []discordantView
		Methods    []study.Agreement
		MinPairs   int
	}{
		Study:      s,
		Classifier: res.Classifier,
		Missing:    res.Sheet.MissingFields(),
		Charts:     report.Dashboard(res),
		Summary:    summary,
		Discordant: discordant,
		Methods:    methods,
		MinPairs:   study.MinPairs,
	}

	Render(h, w, r, s.Filename, "study.html", output, nil)
}

func (h *handler) SummaryJSON(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s, ok := h.Global.Study(id)
	if !ok {
		JSONError(h, w, r, fmt.Errorf("Study %s was not found", id), http.StatusNotFound)
		return
	}
	res := s.Result

	type fieldJSON struct {
		Field       string         `json:"field"`
		Present     bool           `json:"present"`
		Counts      map[string]int `json:"counts"`
		Unparseable int            `json:"unparseable"`
		Discordant  int            `json:"discordant"`
	}

	out := struct {
		ID       string      `json:"id"`
		Filename string      `json:"filename"`
		Policy   string      `json:"policy"`
		Rows     int         `json:"rows"`
		Fields   []fieldJSON `json:"fields"`
	}{
		ID:       s.ID,
		Filename: s.Filename,
		Policy:   res.Classifier.Policy.String(),
		Rows:     len(res.Rows),
	}

	for _, fs := range res.Summary() {
		fj := fieldJSON{
			Field:       fs.Field.Key(),
			Present:     fs.Present,
			Counts:      make(map[string]int),
			Unparseable: fs.Unparseable,
			Discordant:  len(res.Discordant(fs.Field.Ratio)),
		}
		for _, b := range res.Classifier.BandsFor(fs.Field.Ratio) {
			fj.Counts[b.String()] = fs.Counts[b]
		}
		out.Fields = append(out.Fields, fj)
	}

	Render(h, w, r, "", "", out, &renderOpts{OutputFormat: JSON})
}

func (h *handler) DownloadXLSX(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupStudy(w, r)
	if !ok {
		return
	}

	// Buffer so that a failure can still be reported as an error page.
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, s.Result); err != nil {
		HTTPError(h, w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", attachment(s.Filename, "processed.xlsx"))
	buf.WriteTo(w)
}

func (h *handler) DownloadCSV(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupStudy(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, s.Result); err != nil {
		HTTPError(h, w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(s.Filename, "processed.csv"))
	buf.WriteTo(w)
}

func (h *handler) ChartPNG(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupStudy(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	ratio, err := classify.ParseRatio(vars["ratio"])
	if err != nil {
		HTTPError(h, w, r, err, http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if vars["analyzer"] == "area" {
		err = report.AreaChartPNG(&buf, s.Result, ratio)
	} else {
		var analyzer classify.Analyzer
		analyzer, err = classify.ParseAnalyzer(vars["analyzer"])
		if err != nil {
			HTTPError(h, w, r, err, http.StatusNotFound)
			return
		}
		err = report.BarChartPNG(&buf, s.Result, labsheet.Field{Analyzer: analyzer, Ratio: ratio})
	}
	if errors.Is(err, report.ErrNoData) {
		HTTPError(h, w, r, err, http.StatusNotFound)
		return
	} else if err != nil {
		HTTPError(h, w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	buf.WriteTo(w)
}

func (h *handler) Version(w http.ResponseWriter, r *http.Request) {
	Render(h, w, r, "", "", compileinfo.Get(), &renderOpts{OutputFormat: JSON})
}

func (h *handler) Goroutines(w http.ResponseWriter, r *http.Request) {
	goroutines := fmt.Sprintf("%d goroutines are currently active\n", runtime.NumGoroutine())

	w.Write([]byte(goroutines))
}
