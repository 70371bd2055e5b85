package batchfile

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/askiada/go-reduction/pkg/table"
)

const sheetName = "Batch"

// ReadXLSX decodes the active sheet of a workbook. The first row names the
// column keys.
func ReadXLSX(r io.Reader) ([]*table.RowEntry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open workbook")
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read sheet %s", sheet)
	}

	rows := []*table.RowEntry{}
	if len(records) == 0 {
		return rows, nil
	}
	header := records[0]
	for _, key := range header {
		if strings.TrimSpace(key) == "" {
			continue
		}
		if _, err := lookup(key); err != nil {
			return nil, err
		}
	}

	for i, record := range records[1:] {
		if len(trimTrailing(record)) == 0 {
			continue
		}
		row, err := newRow(header, record)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i+2)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// WriteXLSX writes a workbook with a header row holding every key and one row
// per non-empty table row.
func WriteXLSX(w io.Writer, rows []*table.RowEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return errors.Wrap(err, "unable to create sheet")
	}
	f.SetActiveSheet(index)

	header := make([]any, len(fields))
	for i, fl := range fields {
		header[i] = fl.key
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return errors.Wrap(err, "unable to write header")
	}

	line := 2
	for _, row := range rows {
		if row == nil || row.IsEmpty() {
			continue
		}
		values := make([]any, len(fields))
		for i, fl := range fields {
			values[i] = fl.get(row)
		}
		cell, err := excelize.CoordinatesToCellName(1, line)
		if err != nil {
			return errors.Wrap(err, "unable to address row")
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return errors.Wrapf(err, "unable to write row %d", line)
		}
		line++
	}

	return errors.Wrap(f.Write(w), "unable to write workbook")
}
