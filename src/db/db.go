// Package db keeps tracking tables and parsed rows in postgres or sqlite.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	pq "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"oddscrawler/src/config"
	"oddscrawler/src/domain"
)

const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

type DB struct {
	db     *sql.DB
	driver string
}

func DSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
	)
}

func Open(driver, dsn string) (*DB, error) {
	if driver != Postgres && driver != SQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// sqlite allows one writer, and every :memory: connection is its own database
	if driver == SQLite {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect to %s: %w", driver, err)
	}

	return &DB{db: conn, driver: driver}, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tracking_rows (
		worksheet TEXT NOT NULL,
		row_index INTEGER NOT NULL,
		cells TEXT NOT NULL,
		PRIMARY KEY (worksheet, row_index)
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		match_id {{serial}},
		uid TEXT NOT NULL,
		home_team TEXT,
		away_team TEXT,
		home_goals TEXT,
		away_goals TEXT,
		match_date TEXT,
		competition TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS odds (
		odds_id {{serial}},
		filename TEXT NOT NULL,
		home_team TEXT,
		away_team TEXT,
		competition TEXT,
		kickoff TEXT,
		market TEXT,
		prices {{array}}
	)`,
}

// Migrate creates the tables when they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	serial, array := "SERIAL PRIMARY KEY", "TEXT[]"
	if db.driver == SQLite {
		serial, array = "INTEGER PRIMARY KEY", "TEXT"
	}
	r := strings.NewReplacer("{{serial}}", serial, "{{array}}", array)

	for _, stmt := range schema {
		if _, err := db.db.ExecContext(ctx, r.Replace(stmt)); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (db *DB) InsertMatch(ctx context.Context, m domain.FixtureRow) (int, error) {
	var id int

	err := db.db.QueryRowContext(ctx,
		`INSERT INTO matches (uid, home_team, away_team, home_goals, away_goals, match_date, competition)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING match_id;`,
		m.MatchID,
		m.HomeTeam,
		m.AwayTeam,
		m.HomeGoals,
		m.AwayGoals,
		m.MatchDate,
		m.Competition,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert match %s: %w", m.MatchID, err)
	}

	return id, nil
}

// InsertOdds stores one market line. The home and away prices go into a
// text array.
func (db *DB) InsertOdds(ctx context.Context, o domain.OddsRow) (int, error) {
	var id int

	err := db.db.QueryRowContext(ctx,
		`INSERT INTO odds (filename, home_team, away_team, competition, kickoff, market, prices)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING odds_id;`,
		o.Filename,
		o.HomeTeam,
		o.AwayTeam,
		o.Competition,
		o.KickoffRaw,
		o.Market,
		pq.Array([]string{o.HomeOdd, o.AwayOdd}),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert odds from %s: %w", o.Filename, err)
	}

	return id, nil
}

// prices reads back the price array of an odds row.
func (db *DB) prices(ctx context.Context, id int) ([]string, error) {
	var prices []string
	err := db.db.QueryRowContext(ctx,
		`SELECT prices FROM odds WHERE odds_id = $1`, id,
	).Scan(pq.Array(&prices))
	if err != nil {
		return nil, err
	}
	return prices, nil
}
