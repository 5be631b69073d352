package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"oddscrawler/src/browser"
	"oddscrawler/src/core"
	"oddscrawler/src/db"
	"oddscrawler/src/domain"
	"oddscrawler/src/session"
	"oddscrawler/src/sheets"
	"oddscrawler/src/tracker"
)

// backend opens the tracking tables of the configured store.
type backend struct {
	sheets *sheets.Client
	db     *db.DB
}

func openBackend(ctx context.Context) (*backend, error) {
	switch cfg.Tracker.Backend {
	case "sheets":
		if err := cfg.RequireSheets(); err != nil {
			return nil, err
		}
		g := cfg.Google
		client, err := sheets.New(ctx, g.CredentialsFile, g.SpreadsheetID, g.RequestsPerSec, g.Burst)
		if err != nil {
			return nil, err
		}
		return &backend{sheets: client}, nil

	case db.Postgres, db.SQLite:
		conn, err := openDB(ctx)
		if err != nil {
			return nil, err
		}
		return &backend{db: conn}, nil
	}

	return nil, fmt.Errorf("unknown tracker backend %q", cfg.Tracker.Backend)
}

func openDB(ctx context.Context) (*db.DB, error) {
	driver, dsn := db.Postgres, db.DSN(cfg.Database)
	if cfg.Tracker.Backend == db.SQLite {
		driver, dsn = db.SQLite, cfg.Tracker.SQLitePath
	}

	conn, err := db.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func (b *backend) Close() {
	if b.db != nil {
		b.db.Close()
	}
}

func (b *backend) table(ctx context.Context, layout domain.Layout) (tracker.Table, error) {
	if b.db != nil {
		return b.db.Table(layout.Name), nil
	}

	index := map[string]int{
		domain.OptaLayout.Name:       cfg.Tracker.OptaSheet,
		domain.QualifierLayout.Name:  cfg.Tracker.QualifierSheet,
		domain.OddsportalLayout.Name: cfg.Tracker.OddsportalSheet,
	}[layout.Name]

	ws, err := b.sheets.Worksheet(ctx, index)
	if err != nil {
		return nil, err
	}
	log.Debug("opened worksheet", zap.String("layout", layout.Name), zap.String("title", ws.Title()))
	return ws, nil
}

func (b *backend) tracker(ctx context.Context, layout domain.Layout) (*tracker.Tracker, error) {
	table, err := b.table(ctx, layout)
	if err != nil {
		return nil, err
	}
	return tracker.New(table, layout), nil
}

func openBrowser(ctx context.Context) (*browser.Browser, error) {
	bc := cfg.Browser
	return browser.Open(ctx, browser.Options{
		Headless:  bc.Headless,
		ExecPath:  bc.ExecPath,
		UserAgent: bc.UserAgent,
		Width:     bc.Width,
		Height:    bc.Height,
	})
}

const scrollPause = 2 * time.Second

func timing() core.Timing {
	s := cfg.Session
	return core.Timing{
		Human:    session.NewPacer(session.NewRand(), session.Sleep, s.DelayMin.Duration, s.DelayMax.Duration),
		PageLoad: s.PageLoad.Duration,
		Scroll:   scrollPause,
		Sleep:    session.Sleep,
	}
}

func sessionConfig(batch int) session.Config {
	s := cfg.Session
	return session.Config{
		Batch:         batch,
		BatchMin:      s.BatchMin,
		BatchMax:      s.BatchMax,
		MaxSuspicions: s.MaxSuspicions,
		WaitTimeout:   s.WaitTimeout.Duration,
		BackoffMin:    s.BackoffMin.Duration,
		BackoffMax:    s.BackoffMax.Duration,
	}
}
