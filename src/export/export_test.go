package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"oddscrawler/src/domain"
	"oddscrawler/src/tracker"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []string{"a", "b"}, [][]string{{"1", "x,y"}, {"2", `"q"`}})
	require.NoError(t, err)
	require.Equal(t, "a,b\n1,\"x,y\"\n2,\"\"\"q\"\"\"\n", buf.String())
}

func TestWriteRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oddsportal", "odds.csv")
	rows := []domain.OddsRow{{
		Filename:    "ou_1.html",
		HomeTeam:    "Inter",
		AwayTeam:    "Milan",
		Competition: "Serie A",
		KickoffRaw:  "22 Sep 2024 20:45",
		Market:      "Over/Under +2.5",
		HomeOdd:     "1.85",
		AwayOdd:     "1.95",
	}}

	require.NoError(t, WriteRows(path, rows))
	require.Equal(t, [][]string{
		domain.OddsRow{}.Header(),
		rows[0].Record(),
	}, readCSV(t, path))
}

func TestWriteRowsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.csv")
	require.NoError(t, WriteRows[domain.FixtureRow](path, nil))
	require.Equal(t, [][]string{domain.FixtureRow{}.Header()}, readCSV(t, path))
}

func TestTrackingSnapshot(t *testing.T) {
	table := tracker.NewMemoryTable(
		domain.OddsportalLayout.Header,
		[]string{"/m/1/", "/football/italy/serie-a", "done", "1700000000"},
		[]string{"/m/2/", "/football/italy/serie-a"},
	)
	path := filepath.Join(t.TempDir(), OddsportalSnapshot)

	n, err := TrackingSnapshot(context.Background(), table, domain.OddsportalLayout, path, true)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	records := readCSV(t, path)
	require.Len(t, records, 3)
	require.Equal(t, "scrape_id", records[0][0])
	require.Equal(t, "competition", records[0][1])
	require.Equal(t, []string{domain.ScrapeID("/m/1/"), "/football/italy/serie-a", "done", "1700000000", "", "", ""}, records[1])
	require.Equal(t, domain.ScrapeID("/m/2/"), records[2][0])
}

func TestTrackingSnapshotShortHeader(t *testing.T) {
	table := tracker.NewMemoryTable(
		[]string{"odds_id", "competition"},
		[]string{"/m/1/", "/football/italy/serie-a", "done", "1700000000", "done", "1700000100", "2"},
	)
	path := filepath.Join(t.TempDir(), OddsportalSnapshot)

	n, err := TrackingSnapshot(context.Background(), table, domain.OddsportalLayout, path, true)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	want := append([]string{"scrape_id"}, domain.OddsportalLayout.Header[1:]...)
	require.Equal(t, [][]string{
		want,
		{domain.ScrapeID("/m/1/"), "/football/italy/serie-a", "done", "1700000000", "done", "1700000100", "2"},
	}, readCSV(t, path))
}

func TestTrackingSnapshotKeepsIDs(t *testing.T) {
	table := tracker.NewMemoryTable(
		domain.OptaLayout.Header,
		[]string{"m1", "Serie A", "done", "1700000000", "1"},
	)
	path := filepath.Join(t.TempDir(), OptaSnapshot)

	_, err := TrackingSnapshot(context.Background(), table, domain.OptaLayout, path, false)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		domain.OptaLayout.Header,
		{"m1", "Serie A", "done", "1700000000", "1"},
	}, readCSV(t, path))
}
