package google

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/harrisonrobin/sheetsync/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type fakeSheets struct {
	valuesBody string
	notesBody  string
	status     int
	lastRange  string
	lastFields string
}

func (f *fakeSheets) server(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/v4/spreadsheets/{id}/values/*", func(w http.ResponseWriter, r *http.Request) {
		rng, _ := url.PathUnescape(chi.URLParam(r, "*"))
		f.lastRange = rng
		if f.status != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			fmt.Fprintf(w, `{"error":{"code":%d,"message":"denied"}}`, f.status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, f.valuesBody)
	})
	r.Get("/v4/spreadsheets/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.lastFields = r.URL.Query().Get("fields")
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, f.notesBody)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, f *fakeSheets) *SheetsClient {
	t.Helper()
	srv := f.server(t)
	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewSheetsClient(svc, "sheet-123")
}

func TestValues(t *testing.T) {
	f := &fakeSheets{valuesBody: `{"range":"Sheet1!A1:E3","values":[["Timestamp","User","Total Seconds"],["2024-01-01T00:00:00Z","ann",42],["x"]]}`}
	c := newTestClient(t, f)

	rows, err := c.Values(context.Background(), "Sheet1!A:E")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Timestamp", "User", "Total Seconds"},
		{"2024-01-01T00:00:00Z", "ann", "42"},
		{"x"},
	}, rows)
	assert.Equal(t, "Sheet1!A:E", f.lastRange)
}

func TestValuesEmptySheet(t *testing.T) {
	c := newTestClient(t, &fakeSheets{valuesBody: `{"range":"Sheet1!A1:E1000"}`})

	rows, err := c.Values(context.Background(), "Sheet1!A:E")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestValuesAPIError(t *testing.T) {
	c := newTestClient(t, &fakeSheets{status: http.StatusForbidden})

	_, err := c.Values(context.Background(), "Sheet1!A:E")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrRemoteUnavailable)
	assert.Equal(t, model.KindRemoteUnavailable, model.KindOf(err))
}

func TestNotes(t *testing.T) {
	f := &fakeSheets{notesBody: `{"sheets":[{"data":[{"rowData":[
		{"values":[{"note":"header"}]},
		{"values":[{"note":"note text"},{}]},
		{},
		{"values":[{},{},{"note":"late"}]}
	]}]}]}`}
	c := newTestClient(t, f)

	notes, err := c.Notes(context.Background(), "Sheet2!A:Z")
	require.NoError(t, err)
	assert.Equal(t, model.AnnotationMap{"A1": "header", "A2": "note text", "C4": "late"}, notes)
	assert.Contains(t, f.lastFields, "sheets.data.rowData.values.note")
}

func TestNotesOffsetGrid(t *testing.T) {
	f := &fakeSheets{notesBody: `{"sheets":[{"data":[{"startRow":2,"startColumn":1,"rowData":[{"values":[{"note":"n"}]}]}]}]}`}
	c := newTestClient(t, f)

	notes, err := c.Notes(context.Background(), "Sheet2!B3:C4")
	require.NoError(t, err)
	assert.Equal(t, model.AnnotationMap{"B3": "n"}, notes)
}

func TestNotesNoSheets(t *testing.T) {
	c := newTestClient(t, &fakeSheets{notesBody: `{}`})

	notes, err := c.Notes(context.Background(), "Sheet2!A:Z")
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestNotesError(t *testing.T) {
	c := newTestClient(t, &fakeSheets{status: http.StatusInternalServerError})

	_, err := c.Notes(context.Background(), "Sheet2!A:Z")
	assert.ErrorIs(t, err, model.ErrRemoteUnavailable)
}

func TestPing(t *testing.T) {
	f := &fakeSheets{valuesBody: `{"values":[["a"],["b"]]}`}
	c := newTestClient(t, f)

	n, err := c.Ping(context.Background(), "Sheet1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "Sheet1!A1:E10", f.lastRange)
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "", cellString(nil))
	assert.Equal(t, "1.5", cellString(1.5))
	assert.Equal(t, "true", cellString(true))
	assert.Equal(t, "x", cellString("x"))
}
