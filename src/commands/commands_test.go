package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"oddscrawler/src/config"
)

func TestPickCompetition(t *testing.T) {
	comps := []string{"Serie A", "Ligue 1"}

	got, err := pickCompetition(comps, "Ligue 1")
	require.NoError(t, err)
	require.Equal(t, "Ligue 1", got)

	_, err = pickCompetition(comps, "Eredivisie")
	require.Error(t, err)

	got, err = pickCompetition(comps, "")
	require.NoError(t, err)
	require.Contains(t, comps, got)
}

func TestSessionConfig(t *testing.T) {
	cfg = config.Default()
	t.Cleanup(func() { cfg = nil })

	sc := sessionConfig(7)
	require.Equal(t, 7, sc.Batch)
	require.Equal(t, 20, sc.BatchMin)
	require.Equal(t, 40, sc.BatchMax)
	require.Equal(t, 3, sc.MaxSuspicions)
	require.Equal(t, 10*time.Second, sc.WaitTimeout)
	require.Equal(t, 8*time.Second, sc.BackoffMin)
	require.Equal(t, 15*time.Second, sc.BackoffMax)

	tm := timing()
	require.Equal(t, 5*time.Second, tm.PageLoad)
	require.Equal(t, 500*time.Millisecond, tm.Human.Min)
	require.Equal(t, 1250*time.Millisecond, tm.Human.Max)
}

func TestSnapshotDir(t *testing.T) {
	cfg = config.Default()
	t.Cleanup(func() { cfg = nil })

	require.Equal(t, cfg.Data.ScrapingLogs(), snapshotDir(""))
	require.Equal(t, "/tmp/out", snapshotDir("/tmp/out"))
}

func TestRejectsUnknownSite(t *testing.T) {
	for _, args := range [][]string{
		{"collect", "bet365"},
		{"scrape", "qualifiers"},
		{"extract"},
	} {
		rootCmd.SetArgs(args)
		require.Error(t, rootCmd.ExecuteContext(context.Background()), "args %v", args)
	}
}
