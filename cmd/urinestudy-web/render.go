package main

import (
	"encoding/json"
	"net/http"

	"github.com/carbocation/urinestudy/report"
)

const (
	JSON = "json"
	HTML = "html"
)

type Page struct {
	Title     string
	Site      string
	Company   string
	Email     string
	Assets    string
	EChartsJS string
	Data      interface{}
}

type renderOpts struct {
	OutputFormat string
}

func NewRenderOpts() *renderOpts {
	return &renderOpts{
		OutputFormat: HTML,
	}
}

func Render(h *handler, w http.ResponseWriter, r *http.Request, title string, tpl string, data interface{}, opts *renderOpts) {
	if opts == nil {
		opts = NewRenderOpts()
	}

	if opts.OutputFormat == JSON {
		renderJSON(h, w, r, data, *opts)
		return
	}

	page := Page{
		Title:     title,
		Site:      h.Global.Site,
		Company:   h.Global.Company,
		Email:     h.Global.Email,
		Assets:    h.Assets(),
		EChartsJS: report.EChartsJS,
		Data:      data,
	}

	renderHTML(h, w, r, tpl, page, *opts)
}

func renderJSON(h *handler, w http.ResponseWriter, r *http.Request, data interface{}, opts renderOpts) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}

func renderHTML(h *handler, w http.ResponseWriter, r *http.Request, tpl string, page Page, opts renderOpts) {
	if tpl == "" {
		tpl = BaseFilename
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.Template(tpl).Execute(w, page); err != nil {
		h.log.Println(r.URL.Path, err)
	}
}
