package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)

	assert.Equal(t, "Sheet1!A:E", cfg.TimerRange())
	assert.Equal(t, "Sheet2!A:Z", cfg.CalendarRange())
	assert.Equal(t, 10*time.Second, cfg.CallbackTimeout.Duration)
	assert.Equal(t, "file", cfg.Cache.Backend)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "cfg", "config.json")
	in := Default()
	in.SpreadsheetID = "sheet-123"
	in.WebAppURL = "https://script.example.com/exec"
	in.CallbackTimeout = Duration{3 * time.Second}
	in.Cache.Backend = "sqlite"

	require.NoError(t, Save(in, path))
	out, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sheet-123", out.SpreadsheetID)
	assert.Equal(t, 3*time.Second, out.CallbackTimeout.Duration)
	assert.Equal(t, "sqlite", out.Cache.Backend)
}

func TestEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SHEETSYNC_SPREADSHEET_ID", "from-env")
	t.Setenv("SHEETSYNC_CALLBACK_TIMEOUT", "250ms")
	t.Setenv("SHEETSYNC_CACHE_BACKEND", "memory")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.SpreadsheetID)
	assert.Equal(t, 250*time.Millisecond, cfg.CallbackTimeout.Duration)
	assert.Equal(t, "memory", cfg.Cache.Backend)
}

func TestEnvOverridesRanges(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SHEETSYNC_TIMER_SHEET", "Timers")
	t.Setenv("SHEETSYNC_TIMER_COLUMNS", "B:F")
	t.Setenv("SHEETSYNC_CALENDAR_COLUMNS", "A:H")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Equal(t, "Timers!B:F", cfg.TimerRange())
	assert.Equal(t, "Sheet2!A:H", cfg.CalendarRange())
}

func TestDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SHEETSYNC_WEB_APP_URL=https://dotenv.example/exec\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("SHEETSYNC_WEB_APP_URL") })

	cfg, err := Load(filepath.Join(dir, "none.json"))
	require.NoError(t, err)
	assert.Equal(t, "https://dotenv.example/exec", cfg.WebAppURL)
}

func TestInvalidValues(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SHEETSYNC_CACHE_BACKEND", "redis")
	_, err := Load(filepath.Join(t.TempDir(), "none.json"))
	assert.Error(t, err)

	t.Setenv("SHEETSYNC_CACHE_BACKEND", "file")
	t.Setenv("SHEETSYNC_HTTP_TIMEOUT", "soon")
	_, err = Load(filepath.Join(t.TempDir(), "none.json"))
	assert.Error(t, err)
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"1m30s"`)))
	assert.Equal(t, 90*time.Second, d.Duration)

	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(b))

	assert.Error(t, d.UnmarshalJSON([]byte(`"later"`)))
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(prev)) })
}
