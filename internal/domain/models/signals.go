package models

import "time"

// Prediction is one model score for one currency on one date.
type Prediction struct {
	Date       time.Time `json:"date"`
	Currency   string    `json:"currency"`
	PredReturn float64   `json:"pred_return"`
}

// SignalMatrix is a boolean entry table: rows = dates ascending, columns =
// uppercase currency tickers in the canonical universe order. A currency
// absent on a date is false, never missing.
type SignalMatrix struct {
	Dates      []time.Time `json:"dates"`
	Currencies []string    `json:"currencies"`
	Cells      [][]bool    `json:"cells"`
}

// NewSignalMatrix allocates an all-false matrix.
func NewSignalMatrix(dates []time.Time, currencies []string) *SignalMatrix {
	cells := make([][]bool, len(dates))
	for i := range cells {
		cells[i] = make([]bool, len(currencies))
	}
	return &SignalMatrix{Dates: dates, Currencies: currencies, Cells: cells}
}

// At reads one entry flag; out-of-universe lookups are false.
func (m *SignalMatrix) At(date time.Time, ccy string) bool {
	di := -1
	for i, d := range m.Dates {
		if d.Equal(date) {
			di = i
			break
		}
	}
	if di < 0 {
		return false
	}
	for j, c := range m.Currencies {
		if c == ccy {
			return m.Cells[di][j]
		}
	}
	return false
}

// CountRow returns the number of true entries on one date row.
func (m *SignalMatrix) CountRow(i int) int {
	n := 0
	for _, v := range m.Cells[i] {
		if v {
			n++
		}
	}
	return n
}
