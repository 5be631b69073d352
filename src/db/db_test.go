package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"oddscrawler/src/config"
	"oddscrawler/src/domain"
	"oddscrawler/src/tracker"
)

var _ tracker.Table = (*SQLTable)(nil)

func openTest(t *testing.T) *DB {
	t.Helper()

	db, err := Open(SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "crawler",
		Password: "secret",
		Name:     "football",
	})
	require.Equal(t, "host=db port=5432 user=crawler password=secret dbname=football sslmode=disable", dsn)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "")
	require.Error(t, err)
}

func TestMigrateTwice(t *testing.T) {
	db := openTest(t)
	require.NoError(t, db.Migrate(context.Background()))
}

func TestSQLTable(t *testing.T) {
	ctx := context.Background()
	table := openTest(t).Table("opta")

	values, err := table.Values(ctx)
	require.NoError(t, err)
	require.Empty(t, values)

	require.NoError(t, table.SetHeader(ctx, domain.OptaLayout.Header))
	require.NoError(t, table.AppendRows(ctx, [][]string{
		{"a", "Serie A"},
		{"b", "Serie A"},
		{"c", "Ligue 1"},
	}))

	require.NoError(t, table.UpdateCell(ctx, 3, 5, "2"))

	v, err := table.Cell(ctx, 3, 5)
	require.NoError(t, err)
	require.Equal(t, "2", v)

	v, err = table.Cell(ctx, 2, 4)
	require.NoError(t, err)
	require.Empty(t, v)

	v, err = table.Cell(ctx, 9, 1)
	require.NoError(t, err)
	require.Empty(t, v)

	_, err = table.Cell(ctx, 0, 1)
	require.Error(t, err)

	values, err = table.Values(ctx)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		domain.OptaLayout.Header,
		{"a", "Serie A"},
		{"b", "Serie A", "", "", "2"},
		{"c", "Ligue 1"},
	}, values)

	require.NoError(t, table.DeleteRows(ctx, []int{2, 3}))
	values, err = table.Values(ctx)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		domain.OptaLayout.Header,
		{"c", "Ligue 1"},
	}, values)

	require.Error(t, table.DeleteRows(ctx, []int{7}))
}

func TestSQLTableWorksheetsAreSeparate(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)

	require.NoError(t, db.Table("opta").AppendRows(ctx, [][]string{{"x"}}))

	values, err := db.Table("qualifiers").Values(ctx)
	require.NoError(t, err)
	require.Empty(t, values)
}

func TestSQLTableBacksTracker(t *testing.T) {
	ctx := context.Background()
	tr := tracker.New(openTest(t).Table("oddsportal"), domain.OddsportalLayout)

	require.NoError(t, tr.EnsureHeader(ctx))
	added, _, err := tr.Track(ctx, "/football/italy/serie-a", []string{"/m/1/", "/m/2/"})
	require.NoError(t, err)
	require.Equal(t, 2, added)

	pending, err := tr.Pending(ctx, nil)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	ou, _ := domain.OddsportalLayout.Task("ou")
	ah, _ := domain.OddsportalLayout.Task("ah")
	at := time.Unix(1700000000, 0)
	require.NoError(t, tr.MarkDone(ctx, pending[0], ou, at))
	require.NoError(t, tr.MarkDone(ctx, pending[0], ah, at))

	n, err := tr.RecordError(ctx, pending[1])
	require.NoError(t, err)
	require.Equal(t, 1, n)

	p, err := tr.Progress(ctx)
	require.NoError(t, err)
	require.Equal(t, tracker.Progress{Done: 2, Total: 4}, p)
}

func TestInsertRows(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)

	id, err := db.InsertMatch(ctx, domain.FixtureRow{
		MatchID:     "IM_AM_220924_SA",
		HomeTeam:    "Inter Milan",
		AwayTeam:    "AC Milan",
		HomeGoals:   "1",
		AwayGoals:   "2",
		MatchDate:   "220924",
		Competition: "Serie A",
	})
	require.NoError(t, err)
	require.Equal(t, 1, id)

	id, err = db.InsertOdds(ctx, domain.OddsRow{
		Filename: "ou_abc.html",
		Market:   "Over/Under +2.5",
		HomeOdd:  "1.85",
		AwayOdd:  "1.95",
	})
	require.NoError(t, err)

	prices, err := db.prices(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []string{"1.85", "1.95"}, prices)
}
