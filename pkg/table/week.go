package table

import (
	"strings"

	"github.com/harrisonrobin/sheetsync/pkg/model"
)

// Days are the recognized day-of-week headers, in sheet order.
var Days = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

const (
	reasonsHeader = "Reasons"
	leavesHeader  = "Leaves"
)

// DateNotes is everything attached to one date cell of a row.
type DateNotes struct {
	Date     string `json:"date"`
	Day      string `json:"day"`
	CellNote string `json:"cellNote"`
	Reasons  string `json:"reasons"`
	Leaves   string `json:"leaves"`
	RowIndex int    `json:"rowIndex"`
	HasNotes bool   `json:"hasNotes"`
}

// RowAt returns the i-th data row.
func RowAt(res model.FetchResult, i int) (model.Row, bool) {
	if !res.Success || i < 0 || i >= len(res.Rows) {
		return model.Row{}, false
	}
	return res.Rows[i], true
}

// Field returns the cell under header in row i.
func Field(res model.FetchResult, i int, header string) (model.Cell, bool) {
	row, ok := RowAt(res, i)
	if !ok {
		return model.Cell{}, false
	}
	return row.Get(header)
}

// AllDays returns the day cells of row i, keyed by day name. Days whose
// header is missing from the sheet are left out.
func AllDays(res model.FetchResult, i int) (map[string]model.Cell, bool) {
	row, ok := RowAt(res, i)
	if !ok {
		return nil, false
	}
	out := make(map[string]model.Cell, len(Days))
	for _, day := range Days {
		if c, ok := row.Get(day); ok {
			out[day] = c
		}
	}
	return out, true
}

// WeekData is AllDays with every day present.
func WeekData(res model.FetchResult, i int) (map[string]model.Cell, bool) {
	row, ok := RowAt(res, i)
	if !ok {
		return nil, false
	}
	out := make(map[string]model.Cell, len(Days))
	for _, day := range Days {
		out[day] = row.Cells[day]
	}
	return out, true
}

// NotesForDate finds the day in row i whose value equals date.
func NotesForDate(res model.FetchResult, i int, date string) (DateNotes, bool) {
	row, ok := RowAt(res, i)
	if !ok {
		return DateNotes{}, false
	}
	for _, day := range Days {
		c, ok := row.Get(day)
		if ok && c.Value == date {
			return dateNotes(row, i, day, c), true
		}
	}
	return DateNotes{}, false
}

// AllDatesWithNotes lists every filled day of row i. Empty cells and "-"
// placeholders are skipped.
func AllDatesWithNotes(res model.FetchResult, i int) []DateNotes {
	row, ok := RowAt(res, i)
	if !ok {
		return nil
	}
	var out []DateNotes
	for _, day := range Days {
		c := row.Cells[day]
		v := strings.TrimSpace(c.Value)
		if v == "" || v == "-" {
			continue
		}
		out = append(out, dateNotes(row, i, day, c))
	}
	return out
}

func dateNotes(row model.Row, i int, day string, c model.Cell) DateNotes {
	dn := DateNotes{
		Date:     c.Value,
		Day:      day,
		CellNote: c.Note,
		Reasons:  lookupFold(row, reasonsHeader),
		Leaves:   lookupFold(row, leavesHeader),
		RowIndex: i,
	}
	dn.HasNotes = strings.TrimSpace(dn.Reasons) != "" ||
		strings.TrimSpace(dn.Leaves) != "" ||
		strings.TrimSpace(dn.CellNote) != ""
	return dn
}

// lookupFold tries the header as written, then lower-cased.
func lookupFold(row model.Row, header string) string {
	if v := row.Value(header); v != "" {
		return v
	}
	return row.Value(strings.ToLower(header))
}
