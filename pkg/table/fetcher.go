// Package table reads a sheet range together with its cell notes and
// merges them into header-keyed rows.
package table

import (
	"context"
	"log/slog"
	"strings"

	"github.com/harrisonrobin/sheetsync/pkg/cellref"
	"github.com/harrisonrobin/sheetsync/pkg/model"
	"golang.org/x/sync/errgroup"
)

// Source is the remote side of a table: raw cell values and the sparse
// note map over the same range.
type Source interface {
	Values(ctx context.Context, rangeSpec string) ([][]string, error)
	Notes(ctx context.Context, rangeSpec string) (model.AnnotationMap, error)
}

// Fetcher merges values and notes from a Source.
type Fetcher struct {
	src    Source
	logger *slog.Logger
}

// NewFetcher creates a Fetcher. A nil logger uses slog.Default().
func NewFetcher(src Source, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{src: src, logger: logger}
}

// FetchTable reads rangeSpec. A failed values read fails the whole fetch;
// a failed notes read only leaves every note empty.
func (f *Fetcher) FetchTable(ctx context.Context, rangeSpec string) model.FetchResult {
	var (
		values [][]string
		notes  model.AnnotationMap
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := f.src.Values(gctx, rangeSpec)
		if err != nil {
			return err
		}
		values = v
		return nil
	})
	g.Go(func() error {
		n, err := f.src.Notes(gctx, rangeSpec)
		if err != nil {
			f.logger.Warn("note fetch failed, continuing without notes", "range", rangeSpec, "error", err)
			return nil
		}
		notes = n
		return nil
	})
	if err := g.Wait(); err != nil {
		f.logger.Error("values fetch failed", "range", rangeSpec, "error", err)
		return model.FetchFailed(model.KindOf(err), err.Error())
	}
	if notes == nil {
		notes = model.AnnotationMap{}
	}

	if len(values) == 0 {
		f.logger.Info("no data found", "range", rangeSpec)
		return model.FetchResult{
			Success:     true,
			Rows:        []model.Row{},
			Headers:     []string{},
			Annotations: notes,
		}
	}

	headers := make([]string, len(values[0]))
	for i, h := range values[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]model.Row, 0, len(values)-1)
	for i, raw := range values[1:] {
		// header row is reference row 0
		refRow := i + 1
		row := model.NewRow(headers)
		for col, header := range headers {
			var cell model.Cell
			if col < len(raw) {
				cell.Value = raw[col]
			}
			cell.Note = notes[cellref.Encode(refRow, col)]
			row.Cells[header] = cell
		}
		rows = append(rows, row)
	}

	f.logger.Debug("fetched table", "range", rangeSpec, "rows", len(rows), "notes", len(notes))
	return model.FetchResult{
		Success:     true,
		Rows:        rows,
		Headers:     headers,
		Annotations: notes,
	}
}

// Unavailable is a Source whose every read fails with err. It stands in
// for the remote sheet when no client could be built, so callers still
// get the cache fallback.
func Unavailable(err error) Source {
	return unavailable{err: err}
}

type unavailable struct{ err error }

func (u unavailable) Values(context.Context, string) ([][]string, error) {
	return nil, u.err
}

func (u unavailable) Notes(context.Context, string) (model.AnnotationMap, error) {
	return nil, u.err
}
