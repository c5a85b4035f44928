// urinestudy-web serves an upload form for urine study sheets and keeps the
// processed studies in memory for browsing and download.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/carbocation/urinestudy/classify"
	_ "github.com/carbocation/urinestudy/compileinfoprint"
	"github.com/carbocation/urinestudy/labsheet"
	"github.com/carbocation/urinestudy/logging"
	"github.com/carbocation/urinestudy/study"
)

var global *Global

func init() {
	// Prevent seed re-use
	rand.Seed(int64(time.Now().Nanosecond()))
}

func main() {
	errors := make(chan error, 1)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig,
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGUSR1,
	)

	var (
		configPath, policy, labels, layout string
		maxStudies, workers                int
		maxUploadMB                        int64
		verbose                            bool
	)
	port := flag.Int("port", 9019, "Port for HTTP server")
	flag.StringVar(&configPath, "config", "", "(Optional) YAML config file. Flags that are set override it.")
	flag.StringVar(&policy, "policy", "", "Default P/C banding: two-band or three-band.")
	flag.StringVar(&labels, "labels", "", fmt.Sprintf("Default label set. One of: %s.", classify.LabelSetNames()))
	flag.StringVar(&layout, "layout", "", fmt.Sprintf("Default sheet layout. One of: %s.", labsheet.LayoutNames()))
	flag.IntVar(&maxStudies, "max-studies", 64, "Number of processed studies kept in memory.")
	flag.IntVar(&workers, "workers", 0, "Goroutines used to classify rows of each upload. 0 means one per CPU.")
	flag.Int64Var(&maxUploadMB, "max-upload-mb", 32, "Largest accepted upload, in megabytes.")
	flag.BoolVar(&verbose, "verbose", false, "Log debug output.")
	flag.Parse()

	logging.SetVerbose(verbose)

	cfg := study.Config{}
	if configPath != "" {
		var err error
		cfg, err = study.ParseConfigFromPath(configPath)
		if err != nil {
			log.Fatalln(err)
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "policy":
			cfg.Policy = policy
		case "labels":
			cfg.Labels = labels
			cfg.CustomLabels = nil
		case "layout":
			cfg.Layout = layout
		case "workers":
			cfg.Workers = workers
		case "port":
			cfg.Port = *port
		}
	})
	if cfg.Port == 0 {
		cfg.Port = *port
	}

	var err error
	global, err = NewGlobal(logging.StdLogger(logging.SourceWeb), maxStudies)
	if err != nil {
		log.Fatalln(err)
	}

	if global.Classifier, err = cfg.Classifier(); err != nil {
		log.Fatalln(err)
	}
	if global.Layout, err = cfg.SheetLayout(); err != nil {
		log.Fatalln(err)
	}
	global.Workers = cfg.Workers
	global.MaxUploadBytes = maxUploadMB << 20

	global.log.Println("Launching", global.Site, "with", global.Classifier.Policy, "P/C banding and", global.Classifier.Labels.Name, "labels")

	handler, err := router(global)
	if err != nil {
		log.Fatalln(err)
	}

	go func() {
		global.log.Println("Starting HTTP server on port", cfg.Port)
		if err := http.ListenAndServe(fmt.Sprintf(`:%d`, cfg.Port), handler); err != nil {
			errors <- err
			global.log.Println(err)
			sig <- syscall.SIGTERM
			return
		}
	}()

Outer:
	for {
		select {
		case sigl := <-sig:
			if sigl == syscall.SIGUSR1 {
				SigStatus()
				continue
			}

			// By default, exit
			global.log.Printf("\nExit: %s\n", sigl.String())

			break Outer

		case err := <-errors:
			if err == nil {
				global.log.Println("Finished")
				break Outer
			}

			// Return a status code indicating failure
			global.log.Println("Exiting due to error", err)
			os.Exit(1)
		}
	}
}

func SigStatus() {
	global.log.Println("There are", runtime.NumGoroutine(), "goroutines running and", global.StudyCount(), "studies in memory")
}
