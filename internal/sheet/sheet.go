// Package sheet reads and writes the company spreadsheet as CSV or XLSX.
package sheet

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/outreach-cli/internal/model"
)

// DefaultSheetName is used for XLSX export when none is configured.
const DefaultSheetName = "Generated Emails"

// Format identifies a spreadsheet file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatOf derives the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("sheet: unsupported file type %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

// ReadFile loads a dataset and checks that the required columns exist.
func ReadFile(path string) (*model.Dataset, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	var header []string
	var records [][]string
	switch format {
	case FormatCSV:
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, eris.Wrap(openErr, "sheet: open csv")
		}
		defer f.Close() //nolint:errcheck
		header, records, err = readCSV(f)
	case FormatXLSX:
		header, records, err = readXLSX(path)
	}
	if err != nil {
		return nil, err
	}

	ds := model.NewDataset(header, records)
	if missing := ds.MissingColumns(); len(missing) > 0 {
		return nil, eris.Errorf("sheet: %s is missing required columns: %s", filepath.Base(path), strings.Join(missing, ", "))
	}
	return ds, nil
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrap(err, "sheet: read csv")
	}
	return splitHeader(rows)
}

func readXLSX(path string) ([]string, [][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "sheet: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, nil, eris.New("sheet: xlsx has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		rows = append(rows, rowToStrings(row))
	}
	return splitHeader(rows)
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		if cell != nil {
			cells[j] = cell.String()
		}
	}
	return cells
}

// splitHeader separates the header row. Blank lines before the header and
// rows with no cells are dropped; rows of empty cells stay so source row N
// remains output row N.
func splitHeader(rows [][]string) ([]string, [][]string, error) {
	var header []string
	var records [][]string
	for _, row := range rows {
		if len(row) == 0 || (header == nil && isBlank(row)) {
			continue
		}
		if header == nil {
			header = make([]string, len(row))
			for i, h := range row {
				header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
			}
			continue
		}
		records = append(records, row)
	}
	if header == nil {
		return nil, nil, eris.New("sheet: file has no header row")
	}
	return header, records, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteOptions configures export.
type WriteOptions struct {
	SheetName string
}

// WriteFile exports the dataset atomically: it writes a temp file next to
// path and renames it into place.
func WriteFile(path string, ds *model.Dataset, opts WriteOptions) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".outreach-*"+filepath.Ext(path))
	if err != nil {
		return eris.Wrap(err, "sheet: create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	switch format {
	case FormatCSV:
		err = writeCSV(tmp, ds)
	case FormatXLSX:
		err = writeXLSX(tmp, ds, opts)
	}
	if err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "sheet: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrapf(err, "sheet: rename into %s", path)
	}
	return nil
}

func writeCSV(w io.Writer, ds *model.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Header); err != nil {
		return eris.Wrap(err, "sheet: write csv header")
	}
	if err := cw.WriteAll(ds.Records()); err != nil {
		return eris.Wrap(err, "sheet: write csv rows")
	}
	return nil
}

func writeXLSX(w io.Writer, ds *model.Dataset, opts WriteOptions) error {
	name := opts.SheetName
	if name == "" {
		name = DefaultSheetName
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "sheet: add sheet %q", name)
	}

	addRow(sheet, ds.Header)
	for _, rec := range ds.Records() {
		addRow(sheet, rec)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "sheet: write xlsx")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// FileCheckpointer rewrites the output spreadsheet after every row.
type FileCheckpointer struct {
	Path string
	Opts WriteOptions
}

// Name identifies the checkpointer in logs.
func (c *FileCheckpointer) Name() string { return "file:" + c.Path }

// Checkpoint writes the current snapshot to disk.
func (c *FileCheckpointer) Checkpoint(_ context.Context, ds *model.Dataset, _ model.Stats) error {
	return WriteFile(c.Path, ds, c.Opts)
}
