package models

import (
	"math"
	"sort"
	"time"
)

// Frame is a wide, date-indexed table of float64 columns. Missing cells are
// NaN. Rows are kept sorted ascending by date; columns keep insertion order.
type Frame struct {
	Dates   []time.Time
	Columns []string
	Data    [][]float64 // Data[i][j] = value at Dates[i], Columns[j]
}

// NewFrame allocates an all-NaN frame over the given dates and columns.
func NewFrame(dates []time.Time, columns []string) *Frame {
	data := make([][]float64, len(dates))
	for i := range data {
		row := make([]float64, len(columns))
		for j := range row {
			row[j] = math.NaN()
		}
		data[i] = row
	}
	return &Frame{Dates: dates, Columns: columns, Data: data}
}

// ColIdx returns the index of the named column, or -1.
func (f *Frame) ColIdx(name string) int {
	for j, c := range f.Columns {
		if c == name {
			return j
		}
	}
	return -1
}

// DateIdx returns the row index for the given date, or -1.
func (f *Frame) DateIdx(d time.Time) int {
	i := sort.Search(len(f.Dates), func(i int) bool { return !f.Dates[i].Before(d) })
	if i < len(f.Dates) && f.Dates[i].Equal(d) {
		return i
	}
	return -1
}

// Set writes a cell; rows and columns must already exist.
func (f *Frame) Set(i, j int, v float64) { f.Data[i][j] = v }

// At reads a cell.
func (f *Frame) At(i, j int) float64 { return f.Data[i][j] }

// NumRows returns the number of date rows.
func (f *Frame) NumRows() int { return len(f.Dates) }

// Column returns a copy of one column's values.
func (f *Frame) Column(name string) []float64 {
	j := f.ColIdx(name)
	if j < 0 {
		return nil
	}
	out := make([]float64, len(f.Dates))
	for i := range f.Dates {
		out[i] = f.Data[i][j]
	}
	return out
}

// DropColumns removes the named columns and their cells.
func (f *Frame) DropColumns(names []string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	keep := make([]int, 0, len(f.Columns))
	cols := make([]string, 0, len(f.Columns))
	for j, c := range f.Columns {
		if !drop[c] {
			keep = append(keep, j)
			cols = append(cols, c)
		}
	}
	for i, row := range f.Data {
		nr := make([]float64, len(keep))
		for k, j := range keep {
			nr[k] = row[j]
		}
		f.Data[i] = nr
	}
	f.Columns = cols
}

// DropIncompleteRows removes every row containing a NaN cell.
func (f *Frame) DropIncompleteRows() {
	dates := f.Dates[:0]
	data := f.Data[:0]
	for i, row := range f.Data {
		complete := true
		for _, v := range row {
			if math.IsNaN(v) {
				complete = false
				break
			}
		}
		if complete {
			dates = append(dates, f.Dates[i])
			data = append(data, row)
		}
	}
	f.Dates = dates
	f.Data = data
}
