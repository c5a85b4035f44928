package main

import (
	"io/fs"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/interpose/middleware"
	"github.com/justinas/alice"
)

const studyPath = "/study/{id:[0-9a-f-]{36}}"

func router(config *Global) (http.Handler, error) {
	router := mux.NewRouter()
	POST := router.Methods("POST").Subrouter()
	GET := router.Methods("GET", "HEAD").Subrouter()

	h, err := newHandler(config, router)
	if err != nil {
		return nil, err
	}

	GET.HandleFunc("/", h.Index).Name("index")
	GET.HandleFunc("/goroutines", h.Goroutines)
	GET.HandleFunc("/version", h.Version)
	GET.HandleFunc(studyPath, h.StudyHandler).Name("study")
	GET.HandleFunc(studyPath+"/summary.json", h.SummaryJSON).Name("summary")
	GET.HandleFunc(studyPath+"/processed.xlsx", h.DownloadXLSX).Name("xlsx")
	GET.HandleFunc(studyPath+"/processed.csv", h.DownloadCSV).Name("csv")
	GET.HandleFunc(studyPath+"/chart/{analyzer}/{ratio}.png", h.ChartPNG).Name("chart")

	//
	// POST
	//
	POST.Handle("/", http.NotFoundHandler())
	POST.HandleFunc("/upload", h.Upload).Name("upload")

	// Static assets
	assetFilesystem, err := fs.Sub(embeddedTemplates, "templates/static")
	if err != nil {
		return nil, err
	}

	// Static assets
	GET.PathPrefix(h.Assets()).Handler(
		middleware.MaxAgeHandler(60*60*24*364,
			http.StripPrefix(h.Assets(), http.FileServer(http.FS(assetFilesystem)))))

	standard := alice.New(
		// Log all requests to STDOUT
		middleware.GorillaLog(),
	)

	return standard.Then(router), nil
}
