// Package cellref converts between zero-based (row, column) indices and
// A1-style cell references.
package cellref

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// maxLetters is the length of the last column name, XFD.
const maxLetters = 3

// Ref is a zero-based cell position.
type Ref struct {
	Row int
	Col int
}

func (r Ref) String() string {
	return Encode(r.Row, r.Col)
}

// Encode returns the A1 reference for row and col, e.g. (2, 0) -> "A3",
// (0, 26) -> "AA1". Positions outside the grid (negative, or past XFD /
// row 1048576) encode to "".
func Encode(row, col int) string {
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return ""
	}
	return name
}

// ColumnLetters returns the letters for col: 0 -> A, 25 -> Z, 26 -> AA,
// 701 -> ZZ, 702 -> AAA. Out-of-range columns give "".
func ColumnLetters(col int) string {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return ""
	}
	return name
}

// ColumnIndex is the inverse of ColumnLetters. Letters are case-insensitive.
func ColumnIndex(letters string) (int, error) {
	if len(letters) > maxLetters {
		return 0, fmt.Errorf("invalid column %q: %w", letters, excelize.ErrColumnNumber)
	}
	n, err := excelize.ColumnNameToNumber(strings.ToUpper(letters))
	if err != nil {
		return 0, fmt.Errorf("invalid column %q: %w", letters, err)
	}
	return n - 1, nil
}

// Decode parses an A1 reference such as "AB12" into zero-based indices.
func Decode(ref string) (row, col int, err error) {
	letters := strings.IndexFunc(ref, func(r rune) bool {
		return !('A' <= r && r <= 'Z' || 'a' <= r && r <= 'z')
	})
	if letters < 0 {
		letters = len(ref)
	}
	if letters > maxLetters || strings.ContainsRune(ref, '$') {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}
	c, r, err := excelize.CellNameToCoordinates(strings.ToUpper(ref))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid cell reference %q: %w", ref, err)
	}
	if r < 1 || c < 1 {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}
	return r - 1, c - 1, nil
}

// Range builds a whole-column A1 range over sheet, e.g. "Sheet2!A:Z".
func Range(sheet string, fromCol, toCol int) string {
	cols := ColumnLetters(fromCol) + ":" + ColumnLetters(toCol)
	if sheet == "" {
		return cols
	}
	return sheet + "!" + cols
}
