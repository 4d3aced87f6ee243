package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/harrisonrobin/sheetsync/pkg/model"
)

const (
	logsKey    = "timer_logs"
	userPrefix = "timer_"
)

// UserKey is the store key holding the latest record for user.
func UserKey(user string) string {
	return userPrefix + user
}

// Cache is the local record log on top of a Store: "timer_<user>" holds
// the latest record per user and "timer_logs" every record written.
type Cache struct {
	store Store
	now   func() time.Time
	mu    sync.Mutex
}

// New wraps store.
func New(store Store) *Cache {
	return &Cache{store: store, now: time.Now}
}

// AppendRecord appends rec to the log and then saves it as the user's
// latest state. Earlier log entries are never touched. An empty timestamp is
// stamped with the current time.
func (c *Cache) AppendRecord(rec model.TimerRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec.Timestamp == "" {
		rec.Timestamp = c.now().UTC().Format(time.RFC3339Nano)
	}

	logs, err := c.readLogs()
	if err != nil {
		return err
	}
	logs = append(logs, rec)
	encoded, err := json.Marshal(logs)
	if err != nil {
		return fmt.Errorf("failed to encode record log: %w", err)
	}
	if err := c.store.Set(logsKey, encoded); err != nil {
		return fmt.Errorf("failed to save record log: %w", err)
	}

	// the latest state only moves once the log holds the record
	latest, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := c.store.Set(UserKey(rec.User), latest); err != nil {
		return fmt.Errorf("failed to save latest state for %s: %w", rec.User, err)
	}
	return nil
}

// LatestStateFor returns the last record written for user, or nil.
func (c *Cache) LatestStateFor(user string) (*model.TimerRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok, err := c.store.Get(UserKey(user))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var rec model.TimerRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode latest state for %s: %w", user, err)
	}
	return &rec, nil
}

// AllRecords returns the log newest first. Records with equal timestamps
// keep their insertion order; unparseable timestamps sort last.
func (c *Cache) AllRecords() ([]model.TimerRecord, error) {
	c.mu.Lock()
	logs, err := c.readLogs()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	SortNewestFirst(logs)
	return logs, nil
}

// RecordsFor is AllRecords restricted to user.
func (c *Cache) RecordsFor(user string) ([]model.TimerRecord, error) {
	all, err := c.AllRecords()
	if err != nil {
		return nil, err
	}
	out := make([]model.TimerRecord, 0, len(all))
	for _, rec := range all {
		if rec.User == user {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) readLogs() ([]model.TimerRecord, error) {
	raw, ok, err := c.store.Get(logsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read record log: %w", err)
	}
	logs := []model.TimerRecord{}
	if !ok {
		return logs, nil
	}
	if err := json.Unmarshal(raw, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode record log: %w", err)
	}
	return logs, nil
}

// SortNewestFirst orders records by timestamp descending, stable on ties.
// Records without a parseable timestamp go last.
func SortNewestFirst(records []model.TimerRecord) {
	sort.SliceStable(records, func(a, b int) bool {
		return NewerThan(records[a], records[b])
	})
}

// NewerThan reports whether a sorts before b in newest-first order.
func NewerThan(a, b model.TimerRecord) bool {
	ta, errA := a.ParsedTimestamp()
	tb, errB := b.ParsedTimestamp()
	validA, validB := errA == nil && !ta.IsZero(), errB == nil && !tb.IsZero()
	if validA != validB {
		return validA
	}
	return ta.After(tb)
}
