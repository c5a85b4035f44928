package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/carbocation/urinestudy/classify"
	"github.com/carbocation/urinestudy/labsheet"
	"github.com/carbocation/urinestudy/report"
	"github.com/carbocation/urinestudy/study"
)

const (
	ProcessedXLSX = "processed.xlsx"
	ProcessedCSV  = "processed.csv"
	DashboardHTML = "dashboard.html"
)

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

func writeOutputs(dir string, res *study.Result, writePNG, writeHTML bool) error {
	if err := writeFile(outputPath(dir, ProcessedXLSX), func(w io.Writer) error { return report.WriteXLSX(w, res) }); err != nil {
		return err
	}
	log.Printf("Wrote %s\n", outputPath(dir, ProcessedXLSX))

	if err := writeFile(outputPath(dir, ProcessedCSV), func(w io.Writer) error { return report.WriteCSV(w, res) }); err != nil {
		return err
	}
	log.Printf("Wrote %s\n", outputPath(dir, ProcessedCSV))

	if writePNG {
		written, err := report.WritePNGs(dir, res)
		if err != nil {
			return err
		}
		log.Printf("Wrote %d charts\n", len(written))
	}

	if writeHTML {
		title := "Urine study"
		if res.Sheet != nil {
			title = fmt.Sprintf("Urine study: %s", res.Sheet.Source)
		}
		if err := writeFile(outputPath(dir, DashboardHTML), func(w io.Writer) error { return report.WriteDashboardHTML(w, res, title) }); err != nil {
			return err
		}
		log.Printf("Wrote %s\n", outputPath(dir, DashboardHTML))
	}

	return nil
}

// printDiscordant writes one tab-delimited table per ratio.
func printDiscordant(w io.Writer, res *study.Result) error {
	for _, ratio := range classify.Ratios {
		fields := labsheet.FieldsFor(ratio)

		header := []string{"ratio", labsheet.KeyTube, labsheet.KeyArea}
		for _, f := range fields {
			header = append(header, report.StatusKey(f))
		}
		if _, err := fmt.Fprintln(w, strings.Join(header, "\t")); err != nil {
			return err
		}

		for _, row := range res.Discordant(ratio) {
			line := []string{ratio.String(), row.ID(), report.NullStringFormatter(row.Area)}
			for _, f := range fields {
				line = append(line, res.Classifier.Label(ratio, row.StatusOf(f)))
			}
			if _, err := fmt.Fprintln(w, strings.Join(line, "\t")); err != nil {
				return err
			}
		}
	}

	return nil
}
