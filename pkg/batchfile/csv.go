package batchfile

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-reduction/pkg/table"
)

// headerMarker is the first cell of an optional header line.
const headerMarker = "MANTID_BATCH_FILE"

// ReadCSV decodes key,value rows. Blank lines, lines starting with # and a
// leading MANTID_BATCH_FILE line are skipped.
func ReadCSV(r io.Reader) ([]*table.RowEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	rows := []*table.RowEntry{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, errors.Wrap(ErrMalformedLine, err.Error())
		}
		line, _ := reader.FieldPos(0)

		record = trimTrailing(record)
		if len(record) == 0 || strings.EqualFold(strings.TrimSpace(record[0]), headerMarker) {
			continue
		}
		if len(record)%2 != 0 {
			return nil, errors.Wrapf(ErrMalformedLine, "line %d: odd number of cells", line)
		}

		keys := make([]string, 0, len(record)/2)
		values := make([]string, 0, len(record)/2)
		for i := 0; i < len(record); i += 2 {
			keys = append(keys, record[i])
			values = append(values, record[i+1])
		}
		row, err := newRow(keys, values)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		rows = append(rows, row)
	}
}

func trimTrailing(record []string) []string {
	end := len(record)
	for end > 0 && strings.TrimSpace(record[end-1]) == "" {
		end--
	}

	return record[:end]
}

// WriteCSV encodes each non-empty row as key,value pairs, leaving out empty
// values.
func WriteCSV(w io.Writer, rows []*table.RowEntry) error {
	writer := csv.NewWriter(w)
	for _, row := range rows {
		if row == nil || row.IsEmpty() {
			continue
		}
		record := []string{}
		for _, f := range fields {
			if value := f.get(row); value != "" {
				record = append(record, f.key, value)
			}
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, "unable to write batch row")
		}
	}
	writer.Flush()

	return errors.Wrap(writer.Error(), "unable to flush batch file")
}
