package model

// Cell is a single sheet cell: its displayed value and the free-text note
// attached to it.
type Cell struct {
	Value string `json:"value"`
	Note  string `json:"note"`
}

// AnnotationMap maps a cell reference such as "B4" to its note.
// Absent entries mean the cell has no note.
type AnnotationMap map[string]string

// Row is one data row keyed by trimmed header text. Headers keeps the
// source column order; every header has an entry in Cells.
type Row struct {
	Headers []string        `json:"headers"`
	Cells   map[string]Cell `json:"cells"`
}

// NewRow returns an empty row over headers.
func NewRow(headers []string) Row {
	r := Row{
		Headers: append([]string(nil), headers...),
		Cells:   make(map[string]Cell, len(headers)),
	}
	for _, h := range headers {
		r.Cells[h] = Cell{}
	}
	return r
}

// Get returns the cell under header. Lookups are case-sensitive.
func (r Row) Get(header string) (Cell, bool) {
	c, ok := r.Cells[header]
	return c, ok
}

// Value is shorthand for the value under header, "" when absent.
func (r Row) Value(header string) string {
	return r.Cells[header].Value
}

// Note is shorthand for the note under header, "" when absent.
func (r Row) Note(header string) string {
	return r.Cells[header].Note
}
