// Package syncer is the read/write entry point used by the rest of the
// application. Remote failures are absorbed here: reads fall back to the
// local cache and writes that cannot reach the backend land in it.
package syncer

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/harrisonrobin/sheetsync/pkg/cache"
	"github.com/harrisonrobin/sheetsync/pkg/model"
	"github.com/harrisonrobin/sheetsync/pkg/transport"
)

// Timer sheet headers, in column order.
const (
	HeaderTimestamp     = "Timestamp"
	HeaderUser          = "User"
	HeaderTotalSeconds  = "Total Seconds"
	HeaderFormattedTime = "Formatted Time"
	HeaderLastUpdated   = "Last Updated"
)

// TimerHeaders is the header row of the timer sheet and of cache-backed rows.
var TimerHeaders = []string{HeaderTimestamp, HeaderUser, HeaderTotalSeconds, HeaderFormattedTime, HeaderLastUpdated}

// Fetcher reads a sheet range; *table.Fetcher implements it.
type Fetcher interface {
	FetchTable(ctx context.Context, rangeSpec string) model.FetchResult
}

// Deliverer hands a record to the backend; *transport.Cascade implements it.
type Deliverer interface {
	Deliver(ctx context.Context, rec model.TimerRecord) transport.Delivery
}

// Pinger checks the remote connection; *google.SheetsClient implements it.
type Pinger interface {
	Ping(ctx context.Context, sheet string) (int, error)
}

// Options configures a Client.
type Options struct {
	TimerRange    string
	CalendarRange string
	TimerSheet    string
	Pinger        Pinger
	Logger        *slog.Logger
}

// Client orchestrates reads and writes. Create one per application and
// pass it to whatever needs sheet data.
type Client struct {
	fetcher   Fetcher
	cache     *cache.Cache
	deliverer Deliverer
	opts      Options
	logger    *slog.Logger
}

// New builds a Client.
func New(fetcher Fetcher, c *cache.Cache, deliverer Deliverer, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TimerRange == "" {
		opts.TimerRange = "Sheet1!A:E"
	}
	if opts.CalendarRange == "" {
		opts.CalendarRange = "Sheet2!A:Z"
	}
	if opts.TimerSheet == "" {
		opts.TimerSheet = "Sheet1"
	}
	return &Client{fetcher: fetcher, cache: c, deliverer: deliverer, opts: opts, logger: logger}
}

// Read returns the timer rows, newest first, optionally only those of
// user. When the sheet cannot be read or has no data rows the local cache
// is used instead. Read never fails; the worst case is an empty slice.
func (c *Client) Read(ctx context.Context, user string) []model.Row {
	res := c.fetcher.FetchTable(ctx, c.opts.TimerRange)
	if res.Success && len(res.Rows) > 0 {
		rows := newestRows(res.Rows, user)
		c.logger.Info("loaded records from sheet", "count", len(rows), "user", user)
		return rows
	}

	if !res.Success {
		c.logger.Warn("sheet read failed, falling back to local cache", "kind", res.ErrorKind, "detail", res.Detail)
	} else {
		c.logger.Info("no data in sheet, falling back to local cache")
	}
	return c.cachedRows(user)
}

// newestRows orders sheet rows newest first and keeps those of user. The
// rows themselves are returned untouched, with their notes and any
// columns past the timer columns.
func newestRows(rows []model.Row, user string) []model.Row {
	records := RowsToRecords(rows)
	idx := make([]int, 0, len(rows))
	for i, rec := range records {
		if user == "" || rec.User == user {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return cache.NewerThan(records[idx[a]], records[idx[b]])
	})

	out := make([]model.Row, len(idx))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}

// Records is Read mapped onto TimerRecords.
func (c *Client) Records(ctx context.Context, user string) []model.TimerRecord {
	return RowsToRecords(c.Read(ctx, user))
}

func (c *Client) cachedRows(user string) []model.Row {
	var (
		records []model.TimerRecord
		err     error
	)
	if user == "" {
		records, err = c.cache.AllRecords()
	} else {
		records, err = c.cache.RecordsFor(user)
	}
	if err != nil {
		c.logger.Error("reading local cache failed", "error", err)
		return []model.Row{}
	}

	rows := make([]model.Row, len(records))
	for i, rec := range records {
		rows[i] = RecordToRow(rec)
	}
	c.logger.Info("loaded records from local cache", "count", len(rows), "user", user)
	return rows
}

// Write delivers rec. When every transport strategy fails the record is
// appended to the local cache and the result reports the cache channel;
// Write itself never reports failure.
func (c *Client) Write(ctx context.Context, rec model.TimerRecord) model.DeliveryResult {
	if rec.FormattedTime == "" {
		rec.FormattedTime = model.FormatDuration(rec.TotalSeconds)
	}

	d := c.deliverer.Deliver(ctx, rec)
	if !d.Exhausted() {
		return model.DeliveryResult{
			Success:  true,
			Channel:  model.ChannelRemote,
			Verified: d.Verified,
			Strategy: d.Strategy,
		}
	}

	c.logger.Warn("all transports failed, saving to local cache", "user", rec.User, "error", d.Err)
	if err := c.cache.AppendRecord(rec); err != nil {
		c.logger.Error("failed to save record to local cache", "user", rec.User, "error", err)
	}
	return model.DeliveryResult{
		Success:  true,
		Channel:  model.ChannelCacheFallback,
		Verified: false,
	}
}

// LatestState is the last record this device saved for user, if any.
func (c *Client) LatestState(user string) (*model.TimerRecord, error) {
	return c.cache.LatestStateFor(user)
}

// Calendar reads the week calendar sheet with its notes.
func (c *Client) Calendar(ctx context.Context) model.FetchResult {
	return c.fetcher.FetchTable(ctx, c.opts.CalendarRange)
}

// Ping checks that the timer sheet is reachable and returns the number of
// rows in its first block.
func (c *Client) Ping(ctx context.Context) (int, error) {
	if c.opts.Pinger == nil {
		res := c.fetcher.FetchTable(ctx, c.opts.TimerRange)
		if !res.Success {
			return 0, errorFor(res)
		}
		return len(res.Rows), nil
	}
	return c.opts.Pinger.Ping(ctx, c.opts.TimerSheet)
}

// RecordToRow lays rec out under TimerHeaders.
func RecordToRow(rec model.TimerRecord) model.Row {
	row := model.NewRow(TimerHeaders)
	row.Cells[HeaderTimestamp] = model.Cell{Value: rec.Timestamp}
	row.Cells[HeaderUser] = model.Cell{Value: rec.User}
	row.Cells[HeaderTotalSeconds] = model.Cell{Value: strconv.Itoa(rec.TotalSeconds)}
	row.Cells[HeaderFormattedTime] = model.Cell{Value: rec.FormattedTime}
	row.Cells[HeaderLastUpdated] = model.Cell{Value: rec.LastUpdated}
	return row
}

// RowsToRecords reads timer rows back into records. Rows are read by
// position in the header list, so a sheet with renamed headers still
// maps its first five columns.
func RowsToRecords(rows []model.Row) []model.TimerRecord {
	records := make([]model.TimerRecord, 0, len(rows))
	for _, row := range rows {
		col := func(i int) string {
			if i < len(row.Headers) {
				return row.Value(row.Headers[i])
			}
			return ""
		}
		secs, err := strconv.Atoi(strings.TrimSpace(col(2)))
		if err != nil || secs < 0 {
			secs = 0
		}
		formatted := col(3)
		if formatted == "" {
			formatted = "00:00:00"
		}
		records = append(records, model.TimerRecord{
			Timestamp:     col(0),
			User:          col(1),
			TotalSeconds:  secs,
			FormattedTime: formatted,
			LastUpdated:   col(4),
		})
	}
	return records
}
