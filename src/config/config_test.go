package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFiles(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("", "")
	require.NoError(t, err)
	require.Equal(t, "sheets", cfg.Tracker.Backend)
	require.Equal(t, 20, cfg.Session.BatchMin)
	require.Equal(t, 40, cfg.Session.BatchMax)
	require.Equal(t, 3, cfg.Session.MaxSuspicions)
	require.Equal(t, 10*time.Second, cfg.Session.WaitTimeout.Duration)
	require.Len(t, cfg.Opta.Competitions, 7)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()

	file := filepath.Join(dir, "crawler.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
[tracker]
backend = "sqlite"
sqlite_path = "x.db"

[session]
batch_min = 5
batch_max = 6
wait_timeout = "3s"

[opta]
competitions = ["Serie A"]
`), 0o644))

	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("SPREADSHEET_ID=sheet-123\nGOOGLE_APPLICATION_CREDENTIALS=keys/sa.json\n"), 0o644))

	t.Setenv("SPREADSHEET_ID", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	os.Unsetenv("SPREADSHEET_ID")
	os.Unsetenv("GOOGLE_APPLICATION_CREDENTIALS")

	cfg, err := Load(file, env)
	require.NoError(t, err)

	require.Equal(t, "sqlite", cfg.Tracker.Backend)
	require.Equal(t, "x.db", cfg.Tracker.SQLitePath)
	require.Equal(t, 5, cfg.Session.BatchMin)
	require.Equal(t, 3*time.Second, cfg.Session.WaitTimeout.Duration)
	require.Equal(t, 8*time.Second, cfg.Session.BackoffMin.Duration)
	require.Equal(t, []string{"Serie A"}, cfg.Opta.Competitions)
	require.Equal(t, "sheet-123", cfg.Google.SpreadsheetID)
	require.Equal(t, filepath.Join(dir, "keys", "sa.json"), cfg.Google.CredentialsFile)
	require.NoError(t, cfg.RequireSheets())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"), "")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Session.BatchMax = 1
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Tracker.Backend = "excel"
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Session.BackoffMax = Duration{time.Second}
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Session.WaitTimeout = Duration{}
	require.Error(t, Validate(cfg))

	require.NoError(t, Validate(Default()))
}

func TestRequireSheets(t *testing.T) {
	cfg := Default()
	require.Error(t, cfg.RequireSheets())
	cfg.Google.CredentialsFile = "sa.json"
	require.Error(t, cfg.RequireSheets())
	cfg.Google.SpreadsheetID = "id"
	require.NoError(t, cfg.RequireSheets())
}
