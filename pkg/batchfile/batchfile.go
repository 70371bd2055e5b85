// Package batchfile reads and writes batch tables.
//
// Two formats are supported. CSV files hold one row per line as key,value
// pairs, for example
//
//	sample_sans,74044,sample_trans,74024,output_as,first
//
// and .xlsx workbooks hold a header row of keys followed by one row per line.
package batchfile

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-reduction/pkg/table"
)

var (
	ErrUnknownKey           = errors.New("unknown batch file key")
	ErrInvalidValue         = errors.New("invalid batch file value")
	ErrMalformedLine        = errors.New("malformed batch file line")
	ErrMissingSampleScatter = errors.New("batch row has no sample_sans run")
	ErrUnsupportedFormat    = errors.New("unsupported batch file format")
)

// Format is a batch file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", errors.Wrap(ErrUnsupportedFormat, path)
	}
}

// Read decodes rows in the given format.
func Read(r io.Reader, format Format) ([]*table.RowEntry, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(r)
	case FormatXLSX:
		return ReadXLSX(r)
	default:
		return nil, errors.Wrap(ErrUnsupportedFormat, string(format))
	}
}

// Write encodes rows in the given format. Empty rows are skipped.
func Write(w io.Writer, format Format, rows []*table.RowEntry) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, rows)
	case FormatXLSX:
		return WriteXLSX(w, rows)
	default:
		return errors.Wrap(ErrUnsupportedFormat, string(format))
	}
}

// Load reads the batch file at path.
func Load(path string) ([]*table.RowEntry, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open batch file %s", path)
	}
	defer file.Close()

	rows, err := Read(file, format)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}

	return rows, nil
}

// Export writes rows to path, replacing any existing file.
func Export(path string, rows []*table.RowEntry) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create batch file %s", path)
	}
	if err := Write(file, format, rows); err != nil {
		_ = file.Close()

		return errors.Wrap(err, path)
	}

	return errors.Wrap(file.Close(), path)
}

// LoadIntoTable replaces the rows of tbl with the rows of the batch file at
// path and remembers the path on the table.
func LoadIntoTable(tbl *table.Table, path string) error {
	rows, err := Load(path)
	if err != nil {
		return err
	}
	if err := tbl.SetBatchFile(path); err != nil {
		return err
	}
	tbl.ClearTableEntries()
	for i, row := range rows {
		tbl.AddTableEntry(i, row)
	}

	return nil
}
