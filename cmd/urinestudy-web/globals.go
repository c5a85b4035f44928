package main

import (
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/carbocation/urinestudy/classify"
	"github.com/carbocation/urinestudy/labsheet"
	"github.com/carbocation/urinestudy/study"
)

type Global struct {
	log logger

	Site    string
	Company string
	Email   string

	Classifier     classify.Classifier
	Layout         labsheet.Layout
	Workers        int
	MaxUploadBytes int64

	studies *lru.Cache[string, *Study]
}

// Study is one processed upload. Studies live only in memory.
type Study struct {
	ID       string
	Filename string
	Created  time.Time
	Result   *study.Result
}

func NewGlobal(log logger, maxStudies int) (*Global, error) {
	studies, err := lru.New[string, *Study](maxStudies)
	if err != nil {
		return nil, err
	}

	return &Global{
		log:            log,
		Site:           "Urine Study",
		Classifier:     classify.Default(),
		Layout:         labsheet.Layouts[labsheet.DefaultLayout],
		MaxUploadBytes: 32 << 20,
		studies:        studies,
	}, nil
}

// AddStudy stores res under a fresh id, evicting the oldest study when full.
func (g *Global) AddStudy(filename string, res *study.Result) *Study {
	s := &Study{
		ID:       uuid.NewString(),
		Filename: filename,
		Created:  time.Now(),
		Result:   res,
	}
	if g.studies.Add(s.ID, s) {
		g.log.Println("Evicted the least recently viewed study")
	}

	return s
}

func (g *Global) Study(id string) (*Study, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}

	return g.studies.Get(id)
}

func (g *Global) StudyCount() int {
	return g.studies.Len()
}

type logger interface {
	Print(v ...interface{})
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}
