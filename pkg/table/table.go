// Package table is the batch table model: an ordered list of rows, each
// describing one set of runs to reduce, plus the status of its last
// processing attempt.
//
// A Table is owned by a single goroutine. Work that runs elsewhere reports
// back through a workhandler.Dispatcher so that row status is only ever
// changed by the owner.
package table

import (
	"context"
	"log/slog"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/go-reduction/pkg/workhandler"
)

var (
	ErrRowIndex = errors.New("row index out of range")
	ErrNotAFile = errors.New("path is not a regular file")
)

// MetadataProvider reads file metadata for a run.
type MetadataProvider interface {
	Thickness(ctx context.Context, runID string) (float64, error)
}

// Table holds the batch rows. It always contains at least one row.
type Table struct {
	rows []*RowEntry
	// placeholder is set while rows holds only the row created to keep the
	// table non-empty.
	placeholder bool
	userFile    string
	batchFile string
	observers []func(index int, row *RowEntry)
	logger    *slog.Logger
}

type Option func(t *Table)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Table) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTable creates a table holding a single empty row.
func NewTable(opts ...Option) *Table {
	t := &Table{logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	t.ensureNotEmpty()

	return t
}

// CreateEmptyRow returns a fresh row with no content.
func (t *Table) CreateEmptyRow() *RowEntry {
	return NewRowEntry()
}

func (t *Table) ensureNotEmpty() {
	if len(t.rows) == 0 {
		t.rows = append(t.rows, t.CreateEmptyRow())
		t.placeholder = true
	}
}

// AddTableEntry stores row at index. An index inside the table replaces the
// row there and any other index appends. While the table only holds the empty
// row it was created with, that row is replaced. Empty rows added by callers
// are kept.
func (t *Table) AddTableEntry(index int, row *RowEntry) {
	placeholder := t.placeholder && len(t.rows) == 1 && t.rows[0].IsEmpty()
	t.placeholder = false
	switch {
	case placeholder:
		t.rows[0] = row
	case index >= 0 && index < len(t.rows):
		t.rows[index] = row
	default:
		t.rows = append(t.rows, row)
	}
}

// InsertTableEntry inserts row before index, shifting later rows down.
func (t *Table) InsertTableEntry(index int, row *RowEntry) {
	t.placeholder = false
	if index < 0 {
		index = 0
	}
	if index >= len(t.rows) {
		t.rows = append(t.rows, row)
		return
	}
	t.rows = append(t.rows[:index+1], t.rows[index:]...)
	t.rows[index] = row
}

// TableEntry returns the row at index.
func (t *Table) TableEntry(index int) (*RowEntry, error) {
	if index < 0 || index >= len(t.rows) {
		return nil, errors.Wrapf(ErrRowIndex, "index %d, rows %d", index, len(t.rows))
	}

	return t.rows[index], nil
}

// NumberOfRows returns the number of rows, including an empty placeholder.
func (t *Table) NumberOfRows() int {
	return len(t.rows)
}

// Rows returns the rows in table order. The slice is a copy, the rows are not.
func (t *Table) Rows() []*RowEntry {
	res := make([]*RowEntry, len(t.rows))
	copy(res, t.rows)

	return res
}

// IndexOf finds the current position of the row with the given ID.
func (t *Table) IndexOf(id uuid.UUID) (int, bool) {
	for i, row := range t.rows {
		if row.ID == id {
			return i, true
		}
	}

	return -1, false
}

// ValidRowIndices returns the indices of rows that can be processed, i.e.
// rows with a sample scatter run.
func (t *Table) ValidRowIndices() []int {
	res := []int{}
	for i, row := range t.rows {
		if row.SampleScatter != "" {
			res = append(res, i)
		}
	}

	return res
}

// RowUserFile returns the per-row user file at index.
func (t *Table) RowUserFile(index int) (string, error) {
	row, err := t.TableEntry(index)
	if err != nil {
		return "", err
	}

	return row.UserFile, nil
}

// ClearTableEntries removes every row and leaves one empty row behind.
func (t *Table) ClearTableEntries() {
	t.rows = nil
	t.ensureNotEmpty()
}

// RemoveTableEntries removes the rows at indices. Nothing is removed if any
// index is out of range. An emptied table gets a fresh empty row.
func (t *Table) RemoveTableEntries(indices []int) error {
	unique := map[int]struct{}{}
	for _, index := range indices {
		if index < 0 || index >= len(t.rows) {
			return errors.Wrapf(ErrRowIndex, "index %d, rows %d", index, len(t.rows))
		}
		unique[index] = struct{}{}
	}

	sorted := make([]int, 0, len(unique))
	for index := range unique {
		sorted = append(sorted, index)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	for _, index := range sorted {
		t.rows = append(t.rows[:index], t.rows[index+1:]...)
	}
	t.ensureNotEmpty()

	return nil
}

// OnRowUpdated registers fn to be called after the status of a row changes.
func (t *Table) OnRowUpdated(fn func(index int, row *RowEntry)) {
	t.observers = append(t.observers, fn)
}

func (t *Table) setRowState(index int, state RowState, toolTip string) error {
	row, err := t.TableEntry(index)
	if err != nil {
		return err
	}
	row.setState(state, toolTip)
	t.logger.Debug("row state changed", "row", index, "state", state.String())
	for _, fn := range t.observers {
		fn(index, row)
	}

	return nil
}

// SetRowToProcessing marks the start of a processing attempt.
func (t *Table) SetRowToProcessing(index int) error {
	return t.setRowState(index, Processing, "")
}

// SetRowToProcessed settles an attempt successfully.
func (t *Table) SetRowToProcessed(index int, message string) error {
	return t.setRowState(index, Processed, message)
}

// SetRowToError settles an attempt with a failure. The message becomes the
// row tool-tip.
func (t *Table) SetRowToError(index int, message string) error {
	if message == "" {
		message = "unknown error"
	}

	return t.setRowState(index, Error, message)
}

// ResetRowState puts a row back to unprocessed and clears its tool-tip.
func (t *Table) ResetRowState(index int) error {
	return t.setRowState(index, Unprocessed, "")
}

// UserFile is the table-wide user file.
func (t *Table) UserFile() string {
	return t.userFile
}

// SetUserFile accepts an empty path or the path of an existing file.
func (t *Table) SetUserFile(path string) error {
	if err := checkFile(path); err != nil {
		return errors.Wrap(err, "unable to set user file")
	}
	t.userFile = path

	return nil
}

func (t *Table) BatchFile() string {
	return t.batchFile
}

// SetBatchFile accepts an empty path or the path of an existing file.
func (t *Table) SetBatchFile(path string) error {
	if err := checkFile(path); err != nil {
		return errors.Wrap(err, "unable to set batch file")
	}
	t.batchFile = path

	return nil
}

func checkFile(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, path)
	}
	if !info.Mode().IsRegular() {
		return errors.Wrap(ErrNotAFile, path)
	}

	return nil
}

// GetThicknessForRows looks up the sample thickness of every row with a
// sample scatter run. Lookups run on h; each result is applied back through
// h's dispatcher. A failed lookup puts only that row into Error.
func (t *Table) GetThicknessForRows(h *workhandler.Handler, provider MetadataProvider) {
	for _, row := range t.rows {
		if row.SampleScatter == "" {
			continue
		}
		runID := row.SampleScatter
		id := row.ID
		workhandler.Process(h, "thickness "+runID, func(ctx context.Context) (float64, error) {
			return provider.Thickness(ctx, runID)
		}, func(thickness float64) {
			t.updateThickness(id, thickness)
		}, func(err error) {
			t.failRow(id, err)
		})
	}
}

func (t *Table) updateThickness(id uuid.UUID, thickness float64) {
	index, ok := t.IndexOf(id)
	if !ok {
		t.logger.Debug("thickness for removed row dropped", "row_id", id)
		return
	}
	t.rows[index].SampleThickness = thickness
}

func (t *Table) failRow(id uuid.UUID, err error) {
	index, ok := t.IndexOf(id)
	if !ok {
		return
	}
	_ = t.SetRowToError(index, err.Error())
}
