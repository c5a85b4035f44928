// urinestudy classifies the A/C and P/C measurements of a three-analyzer
// urine study and writes the processed workbook, CSV and charts.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/aybabtme/uniplot/histogram"

	"github.com/carbocation/urinestudy"
	_ "github.com/carbocation/urinestudy/compileinfoprint"
	"github.com/carbocation/urinestudy/classify"
	"github.com/carbocation/urinestudy/labsheet"
	"github.com/carbocation/urinestudy/logging"
	"github.com/carbocation/urinestudy/study"
)

// Safe for concurrent use by multiple goroutines
var client *storage.Client

const (
	histogramBins  = 10
	histogramWidth = 40
)

func main() {
	var (
		input, output, configPath string
		policy, labels, layout    string
		sheet                     string
		headerRow, workers        int
		writePNG, writeHTML       bool
		verbose                   bool
	)

	flag.StringVar(&input, "input", "", "Path to the laboratory table (.xlsx, .xls, .csv or .tsv, optionally compressed). May be a gs:// path.")
	flag.StringVar(&output, "output", "", "Folder where processed.xlsx, processed.csv and any charts will be written.")
	flag.StringVar(&configPath, "config", "", "(Optional) YAML config file. Flags that are set override it.")
	flag.StringVar(&policy, "policy", "", "P/C banding: two-band (default) or three-band.")
	flag.StringVar(&labels, "labels", "", fmt.Sprintf("Label set. One of: %s.", classify.LabelSetNames()))
	flag.StringVar(&layout, "layout", "", fmt.Sprintf("Sheet layout. One of: %s.", labsheet.LayoutNames()))
	flag.IntVar(&headerRow, "header-row", labsheet.DetectHeader, "(Optional) 0-based header row. -1 searches the first rows for it.")
	flag.StringVar(&sheet, "sheet", "", "(Optional) Worksheet to read. Defaults to the first.")
	flag.IntVar(&workers, "workers", 0, "Goroutines used to classify rows. 0 means one per CPU.")
	flag.BoolVar(&writePNG, "png", false, "Also write PNG charts.")
	flag.BoolVar(&writeHTML, "html", false, "Also write dashboard.html.")
	flag.BoolVar(&verbose, "verbose", false, "Log debug output.")
	flag.Parse()

	logging.SetVerbose(verbose)

	if input == "" || output == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := study.Config{}
	if configPath != "" {
		var err error
		cfg, err = study.ParseConfigFromPath(configPath)
		if err != nil {
			log.Fatalln(err)
		}
		log.Printf("Loaded config from %s\n", cfg.ConfigPath)
	}

	// Only flags that were explicitly set override the config.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "policy":
			cfg.Policy = policy
		case "labels":
			cfg.Labels = labels
			cfg.CustomLabels = nil
		case "layout":
			cfg.Layout = layout
		case "header-row":
			cfg.HeaderRow = &headerRow
		case "sheet":
			cfg.Sheet = sheet
		case "workers":
			cfg.Workers = workers
		}
	})

	if err := run(context.Background(), cfg, urinestudy.ExpandHome(input), urinestudy.ExpandHome(output), writePNG, writeHTML); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context, cfg study.Config, input, output string, writePNG, writeHTML bool) error {
	classifier, err := cfg.Classifier()
	if err != nil {
		return err
	}

	layout, err := cfg.SheetLayout()
	if err != nil {
		return err
	}

	// Initialize the Google Storage client only if we're pointing to Google
	// Storage paths.
	if urinestudy.IsGoogleStoragePath(input) {
		client, err = storage.NewClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()
	}

	if err := os.MkdirAll(output, 0755); err != nil {
		return err
	}

	sheet, err := labsheet.Open(ctx, input, client, layout)
	if err != nil {
		return err
	}
	log.Printf("Read %d rows from %s (%s, header at row %d)\n", len(sheet.Rows), sheet.Source, sheet.Format, sheet.HeaderRow)
	for _, f := range sheet.MissingFields() {
		log.Printf("No column was found for %s\n", f)
	}

	res, err := study.Process(ctx, sheet, classifier, study.Options{Workers: cfg.Workers})
	if err != nil {
		return err
	}

	if err := writeOutputs(output, res, writePNG, writeHTML); err != nil {
		return err
	}

	logSummary(res)

	return printDiscordant(os.Stdout, res)
}

func logSummary(res *study.Result) {
	logger := logging.Logger(logging.SourceStudy)

	for _, s := range res.Summary() {
		if !s.Present {
			continue
		}

		keyvals := []interface{}{"field", s.Field.Key()}
		for _, b := range res.Classifier.BandsFor(s.Field.Ratio) {
			keyvals = append(keyvals, b.String(), s.Counts[b])
		}
		keyvals = append(keyvals,
			"uncategorized", s.Counts[classify.BandNone],
			"unparseable", s.Unparseable,
			"reference_agree", fmt.Sprintf("%d/%d", s.Reference.Agree(), s.Reference.Total()),
		)
		logger.Info("counts", keyvals...)
	}

	for _, ratio := range classify.Ratios {
		logger.Info("discordant", "ratio", ratio.String(), "tubes", len(res.Discordant(ratio)))

		for _, a := range res.MethodComparisons(ratio) {
			if a.N < study.MinPairs {
				logger.Debug("method comparison skipped", "ratio", ratio.String(), "x", a.X.String(), "y", a.Y.String(), "n", a.N)
				continue
			}
			logger.Info("method comparison", "ratio", ratio.String(), "x", a.X.String(), "y", a.Y.String(),
				"n", a.N, "r", a.Pearson, "slope", a.Slope, "intercept", a.Intercept,
				"bias", a.MeanBias, "median_bias", a.MedianBias, "kappa", a.Kappa,
				"symmetry_p", a.SymmetryP, "fisher_p", a.FisherP)
		}
	}

	if err := printHistograms(os.Stderr, res, histogramBins); err != nil {
		logger.Warn("histograms", "err", err)
	}
}

// printHistograms draws the distribution of the plain numeric values of each
// field that has any. Values with a comparator are left out.
func printHistograms(w io.Writer, res *study.Result, bins int) error {
	for _, s := range res.Summary() {
		if !s.Present {
			continue
		}

		var values []float64
		for _, row := range res.Rows {
			if m := row.Measure[s.Field.Analyzer][s.Field.Ratio]; m.Numeric() {
				values = append(values, m.Value)
			}
		}
		if len(values) == 0 {
			continue
		}

		fmt.Fprintf(w, "%s (%d numeric values)\n", s.Field.Key(), len(values))
		if err := histogram.Fprint(w, histogram.Hist(bins, values), histogram.Linear(histogramWidth)); err != nil {
			return err
		}
	}

	return nil
}

func outputPath(dir, name string) string {
	return filepath.Join(dir, name)
}
