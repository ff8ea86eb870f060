package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/fsutil"
)

// ErrUnsupportedFormat is returned for file extensions the loader cannot read.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// LoadOptions tunes Load.
type LoadOptions struct {
	// Sheet selects a spreadsheet tab; the first tab when empty.
	Sheet string
}

// Load reads a .csv or .xlsx/.xlsm file. The first row is the header.
func Load(path string, opts LoadOptions) (*Dataset, error) {
	switch format(path) {
	case "xlsx":
		return loadXLSX(path, opts.Sheet)
	case "csv":
		return loadCSV(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Save writes the dataset atomically, as XLSX or CSV depending on the
// extension of path.
func (d *Dataset) Save(path string) (fsutil.Artifact, error) {
	var (
		data []byte
		err  error
	)
	switch format(path) {
	case "xlsx":
		data, err = d.encodeXLSX()
	case "csv":
		data, err = d.encodeCSV()
	default:
		return fsutil.Artifact{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return fsutil.Artifact{}, err
	}
	return fsutil.AtomicWrite(path, data)
}

// CheckFormat reports whether Load and Save can handle path's extension.
func CheckFormat(path string) error {
	if format(path) == "" {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	return nil
}

func format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return "xlsx"
	case ".csv", ".txt", "":
		return "csv"
	default:
		return ""
	}
}

func loadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("dataset %s is empty", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}

	return New(header, rows), nil
}

func loadXLSX(path, sheet string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	d := New(all[0], all[1:])
	d.sheet = sheet
	return d, nil
}

func (d *Dataset) encodeCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(d.columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.WriteAll(d.rows); err != nil {
		return nil, fmt.Errorf("failed to write rows: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *Dataset) encodeXLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	if d.sheet != "" && d.sheet != sheet {
		if err := f.SetSheetName(sheet, d.sheet); err != nil {
			return nil, fmt.Errorf("failed to name sheet: %w", err)
		}
		sheet = d.sheet
	}

	write := func(rowNum int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := write(1, d.columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range d.rows {
		if err := write(i+2, r); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
