package labsheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/net/html/charset"

	"github.com/carbocation/urinestudy"
)

const (
	FormatXLSX = "xlsx"
	FormatXLS  = "xls"
	FormatCSV  = "csv"
	FormatTSV  = "tsv"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// FormatFromName picks a reader from the file extension.
func FormatFromName(name string) (string, error) {
	if urinestudy.IsWorkbook(name) {
		return FormatXLSX, nil
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".xls":
		return FormatXLS, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	}

	return "", fmt.Errorf("%s: %w (expected .xlsx, .xls, .csv or .tsv, optionally compressed)", name, ErrUnsupportedFormat)
}

// Open reads a laboratory table from a local path or, given a storage
// client, from gs://.
func Open(ctx context.Context, path string, client *storage.Client, layout Layout) (*Sheet, error) {
	f, _, err := urinestudy.OpenInput(ctx, path, client)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(f, filepath.Base(path), layout)
}

// Read parses the table in r. The name is used only to pick a format, so an
// upload's original filename is enough.
func Read(r io.ReadSeeker, name string, layout Layout) (*Sheet, error) {
	data, inner, err := urinestudy.MaybeDecompress(r, name)
	if err != nil {
		return nil, err
	}

	return ReadBytes(data, inner, layout)
}

// ReadBytes parses an uncompressed table held in memory.
func ReadBytes(data []byte, name string, layout Layout) (*Sheet, error) {
	format, err := FormatFromName(name)
	if err != nil {
		return nil, err
	}

	var (
		records   [][]string
		sheetName string
		encoding  = "utf-8"
	)

	switch format {
	case FormatXLSX:
		records, sheetName, err = readXLSX(data, layout.Sheet)
	case FormatXLS:
		records, sheetName, err = readXLS(data, layout.Sheet)
	case FormatCSV:
		records, encoding, err = readDelimited(data, 0)
	case FormatTSV:
		records, encoding, err = readDelimited(data, '\t')
	}
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", name, err))
	}

	delimited := format == FormatCSV || format == FormatTSV
	s, err := build(records, layout, delimited)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	s.Source = name
	s.Format = format
	s.Encoding = encoding
	s.SheetName = sheetName

	return s, nil
}

func readXLSX(data []byte, sheet string) ([][]string, string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, "", fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	// Raw values keep numbers as stored rather than as displayed, so a cell
	// formatted to zero decimals still yields its full value.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, sheet, err
	}

	return rows, sheet, nil
}

func readXLS(data []byte, sheet string) ([][]string, string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, "", err
	}

	var ws *xls.WorkSheet
	for sheetID := 0; sheetID < wb.NumSheets(); sheetID++ {
		candidate := wb.GetSheet(sheetID)
		if candidate == nil {
			continue
		}
		if sheet == "" || candidate.Name == sheet {
			ws = candidate
			break
		}
	}
	if ws == nil {
		if sheet == "" {
			return nil, "", fmt.Errorf("workbook has no sheets")
		}
		return nil, "", fmt.Errorf("sheet %q not found", sheet)
	}

	out := make([][]string, 0, int(ws.MaxRow)+1)
	for rowID := 0; rowID <= int(ws.MaxRow); rowID++ {
		out = append(out, safelyReadRow(ws, rowID))
	}

	return out, ws.Name, nil
}

// safelyReadRow returns the cell text of one row, or nil for rows that the
// workbook never defined. The xls package dereferences a nil map entry in that
// case, so the panic is recovered here.
func safelyReadRow(ws *xls.WorkSheet, rowID int) (values []string) {
	defer func() {
		if r := recover(); r != nil {
			values = nil
		}
	}()

	row := ws.Row(rowID)
	if row == nil || row.LastCol() < 0 {
		return nil
	}

	values = make([]string, row.LastCol()+1)
	for colID := row.FirstCol(); colID <= row.LastCol(); colID++ {
		values[colID] = row.Col(colID)
	}

	return values
}

// readDelimited decodes data to UTF-8 and splits it into records. A zero
// delimiter means detect it.
func readDelimited(data []byte, delim rune) ([][]string, string, error) {
	enc, encName, _ := charset.DetermineEncoding(data, "text/csv")
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, encName, err
	}
	decoded = bytes.TrimPrefix(decoded, utf8BOM)

	if delim == 0 {
		delim = urinestudy.DetermineDelimiter(bytes.NewReader(decoded))
		log.Printf("Determined delimiter to be %q\n", string(delim))
	}

	rdr := csv.NewReader(bytes.NewReader(decoded))
	rdr.Comma = delim
	rdr.FieldsPerRecord = -1
	rdr.LazyQuotes = true

	records, err := rdr.ReadAll()
	if err != nil {
		return nil, encName, err
	}

	return records, encName, nil
}
