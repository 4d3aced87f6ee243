package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrisonrobin/sheetsync/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(ts, user string, secs int) model.TimerRecord {
	return model.TimerRecord{
		Timestamp:     ts,
		User:          user,
		TotalSeconds:  secs,
		FormattedTime: model.FormatDuration(secs),
		LastUpdated:   ts,
	}
}

func TestAppendAndLatest(t *testing.T) {
	c := New(NewMemoryStore())

	latest, err := c.LatestStateFor("ann")
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, c.AppendRecord(rec("2024-01-01T10:00:00Z", "ann", 10)))
	require.NoError(t, c.AppendRecord(rec("2024-01-01T11:00:00Z", "bob", 20)))
	require.NoError(t, c.AppendRecord(rec("2024-01-01T09:00:00Z", "ann", 30)))

	latest, err = c.LatestStateFor("ann")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 30, latest.TotalSeconds, "latest is last written, not newest timestamp")

	all, err := c.AllRecords()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAllRecordsNewestFirstStable(t *testing.T) {
	c := New(NewMemoryStore())
	require.NoError(t, c.AppendRecord(rec("2024-01-01T10:00:00Z", "a", 1)))
	require.NoError(t, c.AppendRecord(rec("2024-01-03T10:00:00Z", "b", 2)))
	require.NoError(t, c.AppendRecord(rec("2024-01-02T10:00:00Z", "c", 3)))
	require.NoError(t, c.AppendRecord(rec("2024-01-03T10:00:00Z", "d", 4)))
	require.NoError(t, c.AppendRecord(rec("garbage", "e", 5)))
	require.NoError(t, c.AppendRecord(rec("2024-01-03T10:00:00.000Z", "f", 6)))

	all, err := c.AllRecords()
	require.NoError(t, err)

	var users []string
	for _, r := range all {
		users = append(users, r.User)
	}
	assert.Equal(t, []string{"b", "d", "f", "c", "a", "e"}, users)
}

func TestAppendNeverOverwritesLog(t *testing.T) {
	c := New(NewMemoryStore())
	r := rec("2024-01-01T10:00:00Z", "a", 1)
	require.NoError(t, c.AppendRecord(r))
	require.NoError(t, c.AppendRecord(r))

	all, err := c.AllRecords()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAppendStampsEmptyTimestamp(t *testing.T) {
	c := New(NewMemoryStore())
	c.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

	require.NoError(t, c.AppendRecord(model.TimerRecord{User: "a", TotalSeconds: 5}))
	latest, err := c.LatestStateFor("a")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-06T07:08:09Z", latest.Timestamp)
}

func TestRecordsFor(t *testing.T) {
	c := New(NewMemoryStore())
	require.NoError(t, c.AppendRecord(rec("2024-01-01T10:00:00Z", "a", 1)))
	require.NoError(t, c.AppendRecord(rec("2024-01-02T10:00:00Z", "b", 2)))
	require.NoError(t, c.AppendRecord(rec("2024-01-03T10:00:00Z", "a", 3)))

	got, err := c.RecordsFor("a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].TotalSeconds)

	got, err = c.RecordsFor("nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStoreKeys(t *testing.T) {
	store := NewMemoryStore()
	c := New(store)
	require.NoError(t, c.AppendRecord(rec("2024-01-01T10:00:00Z", "ann@example.com", 1)))

	_, ok, err := store.Get("timer_ann@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = store.Get("timer_logs")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBackendsPersistAcrossReopen(t *testing.T) {
	backends := map[string]func(t *testing.T, path string) Store{
		"file": func(t *testing.T, path string) Store {
			s, err := NewFileStore(path)
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T, path string) Store {
			s, err := OpenSQLite(path)
			require.NoError(t, err)
			return s
		},
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "cache")
			if name == "sqlite" {
				path = filepath.Join(t.TempDir(), "cache.db")
			}

			c := New(open(t, path))
			require.NoError(t, c.AppendRecord(rec("2024-01-01T10:00:00Z", "a", 1)))
			require.NoError(t, c.AppendRecord(rec("2024-01-02T10:00:00Z", "a", 2)))
			require.NoError(t, c.Close())

			c = New(open(t, path))
			defer c.Close()

			all, err := c.AllRecords()
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, 2, all[0].TotalSeconds)

			latest, err := c.LatestStateFor("a")
			require.NoError(t, err)
			require.NotNil(t, latest)
			assert.Equal(t, 2, latest.TotalSeconds)
		})
	}
}

func TestFileStoreRejectsInvalidJSON(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "c.json"))
	require.NoError(t, err)

	assert.Error(t, s.Set("k", []byte("{nope")))
	_, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSortNewestFirstEmpty(t *testing.T) {
	SortNewestFirst(nil)
	var recs []model.TimerRecord
	SortNewestFirst(recs)
	assert.Empty(t, recs)
}

// logFailStore refuses writes to the record log.
type logFailStore struct {
	*MemoryStore
}

func (s logFailStore) Set(key string, value []byte) error {
	if key == logsKey {
		return errors.New("disk full")
	}
	return s.MemoryStore.Set(key, value)
}

func TestAppendLogFailureKeepsLatestState(t *testing.T) {
	c := New(logFailStore{NewMemoryStore()})

	err := c.AppendRecord(rec("2024-01-01T10:00:00Z", "ann", 1))
	require.Error(t, err)

	latest, err := c.LatestStateFor("ann")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestNewerThan(t *testing.T) {
	older := rec("2024-01-01T10:00:00Z", "ann", 1)
	newer := rec("2024-01-02T10:00:00Z", "ann", 2)
	broken := rec("yesterday", "ann", 3)

	assert.True(t, NewerThan(newer, older))
	assert.False(t, NewerThan(older, newer))
	assert.True(t, NewerThan(older, broken))
	assert.False(t, NewerThan(broken, older))
	assert.False(t, NewerThan(broken, broken))
}

func TestFileStoreWritesThroughOnSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", []byte(`{"v":1}`)))

	// a second handle sees the value without the first being closed
	other, err := NewFileStore(path)
	require.NoError(t, err)
	got, ok, err := other.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"v":1}`, string(got))
}

func TestFileStoreRollsBackFailedFlush(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	// the parent of Path is a regular file, so every flush fails
	s := &FileStore{Entries: map[string]json.RawMessage{}, Path: filepath.Join(blocker, "cache.json")}
	assert.Error(t, s.Set("k", []byte(`1`)))

	_, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}
