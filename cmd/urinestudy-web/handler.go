package main

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/gorilla/mux"
	"github.com/kardianos/osext"

	"github.com/carbocation/urinestudy/classify"
)

const (
	BaseFilename = "_base.html"
)

//go:embed all:templates
var embeddedTemplates embed.FS

// handler provides global values that must be
// safe for concurrent use from multiple goroutines
// to each handler method.
type handler struct {
	*Global

	router *mux.Router

	// Set once by newHandler before any request is served and read-only
	// afterwards.
	assets string
	folder string

	// Mutex protected values
	mu       sync.RWMutex
	template map[string]*template.Template
}

func newHandler(config *Global, router *mux.Router) (*handler, error) {
	folder, err := osext.ExecutableFolder()
	if err != nil {
		return nil, fmt.Errorf("handler.go:newHandler: %w", err)
	}
	config.log.Printf("The binary is running in folder %s\n", folder)

	return &handler{
		Global: config,
		router: router,
		assets: fmt.Sprintf("/%s", RandHeteroglyphs(10)),
		folder: folder,
	}, nil
}

func (h *handler) Assets() string {
	return h.assets
}

func (h *handler) Folder() string {
	return h.folder
}

// Templates are read from a templates folder next to the binary when one
// exists, and from the copy embedded in the binary otherwise.
func (h *handler) templateFS() fs.FS {
	local := filepath.Join(h.Folder(), "templates")
	if st, err := os.Stat(local); err == nil && st.IsDir() {
		return os.DirFS(local)
	}

	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		panic(fmt.Errorf(`handler.go:templateFS: %s`, err))
	}

	return sub
}

var templateFuncs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
	"pct": func(num, denom int) string {
		if denom == 0 {
			return "-"
		}
		return fmt.Sprintf("%.1f%%", 100*float64(num)/float64(denom))
	},
	"f3": func(f float64) string {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "-"
		}
		return fmt.Sprintf("%.3f", f)
	},
	"bands":    func() []classify.Band { return classify.Bands },
	"ratios":   func() [classify.NumRatios]classify.Ratio { return classify.Ratios },
	"policies": func() []classify.PCPolicy { return []classify.PCPolicy{classify.PCTwoBand, classify.PCThreeBand} },
}

func (h *handler) Template(templateFilename string) *template.Template {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.template == nil {
		func() {
			h.mu.RUnlock()
			h.mu.Lock()
			defer func() {
				h.mu.Unlock()
				h.mu.RLock()
			}()

			if h.template != nil {
				return
			}

			h.Global.log.Println("Initializing HTML templates")
			h.template = make(map[string]*template.Template)

			tpl, err := template.New(BaseFilename).Funcs(templateFuncs).ParseFS(h.templateFS(), "_*.html")
			if err != nil {
				h.Global.log.Printf("handler.go:Template: %s\n", err)
				panic(fmt.Errorf(`handler.go:Template: %s`, err))
			}

			h.template[BaseFilename] = tpl
		}()
	}

	// Prevent execution of the BaseFilename template, which would prevent future copies
	templateName := templateFilename
	if templateFilename == BaseFilename {
		templateName = fmt.Sprintf("CLONE%s", BaseFilename)
	}

	// Specific sub-template has already been generated
	if tpl, ok := h.template[templateName]; ok {
		return tpl
	}

	// Generate a clone of the base template so you don't contaminate it with the
	// derivative template's `define` statements.
	h.Global.log.Println("Initializing HTML template for", templateFilename)
	tpl := template.Must(h.template[BaseFilename].Clone())
	if templateFilename != BaseFilename {
		var err error
		tpl, err = tpl.ParseFS(h.templateFS(), templateFilename)
		if err != nil {
			panic(fmt.Errorf(`handler.go:Template: %s`, err))
		}
	}
	h.mu.RUnlock()
	h.mu.Lock()
	h.template[templateName] = tpl
	h.mu.Unlock()
	h.mu.RLock()

	return tpl
}
