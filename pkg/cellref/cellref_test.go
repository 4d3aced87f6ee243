package cellref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	cases := []struct {
		row, col int
		want     string
	}{
		{0, 0, "A1"},
		{2, 0, "A3"},
		{1, 1, "B2"},
		{9, 25, "Z10"},
		{0, 26, "AA1"},
		{0, 27, "AB1"},
		{4, 51, "AZ5"},
		{0, 52, "BA1"},
		{0, 701, "ZZ1"},
		{0, 702, "AAA1"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Encode(tc.row, tc.col), "Encode(%d, %d)", tc.row, tc.col)
	}
}

func TestRoundTrip(t *testing.T) {
	for r := 0; r < 50; r++ {
		for c := 0; c < 800; c++ {
			row, col, err := Decode(Encode(r, c))
			require.NoError(t, err)
			if row != r || col != c {
				t.Fatalf("Decode(Encode(%d, %d)) = (%d, %d)", r, c, row, col)
			}
		}
	}
}

func TestDecodeInvalid(t *testing.T) {
	for _, ref := range []string{"", "12", "A", "A0", "1A", "A-1", "Ä1"} {
		_, _, err := Decode(ref)
		assert.Error(t, err, "Decode(%q)", ref)
	}
}

func TestOversizedReferences(t *testing.T) {
	for _, ref := range []string{"ZZZZZZZZZZZZZZZ1", "XFE1", "A1048577", "A99999999999999999999"} {
		_, _, err := Decode(ref)
		assert.Error(t, err, "Decode(%q)", ref)
	}

	_, err := ColumnIndex("ZZZZZZZZZZZZZZZ")
	assert.Error(t, err)

	assert.Equal(t, "", Encode(0, -1))
	assert.Equal(t, "", Encode(-1, 0))
	assert.Equal(t, "", Encode(0, 16384))
	assert.Equal(t, "", ColumnLetters(-1))
	assert.Equal(t, "XFD1", Encode(0, 16383))
}

func TestColumnIndex(t *testing.T) {
	for letters, want := range map[string]int{"A": 0, "z": 25, "AA": 26, "ZZ": 701, "AAA": 702} {
		got, err := ColumnIndex(letters)
		require.NoError(t, err, letters)
		assert.Equal(t, want, got, letters)
	}
	_, err := ColumnIndex("")
	assert.Error(t, err)
}

func TestDecodeLowercase(t *testing.T) {
	row, col, err := Decode("ab3")
	require.NoError(t, err)
	assert.Equal(t, 2, row)
	assert.Equal(t, 27, col)
}

func TestRange(t *testing.T) {
	assert.Equal(t, "Sheet2!A:Z", Range("Sheet2", 0, 25))
	assert.Equal(t, "Sheet1!A:E", Range("Sheet1", 0, 4))
	assert.Equal(t, "A:E", Range("", 0, 4))
	assert.Equal(t, "B2", Ref{Row: 1, Col: 1}.String())
}
