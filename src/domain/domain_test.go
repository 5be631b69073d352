package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLayoutItemShortRow(t *testing.T) {
	item := OddsportalLayout.Item(4, []string{"/football/a-b/", " Premier League ", "done"})

	require.Equal(t, 4, item.Row)
	require.Equal(t, "/football/a-b/", item.ID)
	require.Equal(t, "Premier League", item.Competition)
	require.True(t, item.Done["ou"])
	require.False(t, item.Done["ah"])
	require.Equal(t, 0, item.Errors)
	require.True(t, item.Pending())
}

func TestLayoutItemComplete(t *testing.T) {
	item := OptaLayout.Item(2, []string{"abc", "Serie A", "done", "1700000000.5", "3"})

	require.False(t, item.Pending())
	require.Equal(t, 3, item.Errors)
}

func TestParseCount(t *testing.T) {
	require.Equal(t, 0, ParseCount(""))
	require.Equal(t, 0, ParseCount("x"))
	require.Equal(t, 7, ParseCount(" 7 "))
}

func TestScrapeID(t *testing.T) {
	id := ScrapeID("/football/england/premier-league/arsenal-chelsea-abc123/")

	require.Len(t, id, 24)
	require.Equal(t, id, ScrapeID("/football/england/premier-league/arsenal-chelsea-abc123/"))
	require.NotEqual(t, id, ScrapeID("/football/other/"))
	// sha256("") prefix
	require.Equal(t, "e3b0c44298fc1c149afbf4c8", ScrapeID(""))
}
