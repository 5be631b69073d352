// Package core holds the site drivers: how to reach each site's pages
// and which elements say a page is ready.
package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"oddscrawler/src/session"
)

// Page is the part of the browser the site drivers use. *browser.Browser
// implements it.
type Page interface {
	Navigate(url string) error
	SetLocation(url string) error
	Reload() error
	Back() error
	WaitPresent(selector string, timeout time.Duration) error
	Click(selector string) error
	ClickLinkText(text string) error
	SelectByText(selector, text string) error
	ScrollTo(y int) error
	HTML() (string, error)
	Count(selector string) (int, error)
	VisibleAttrs(selector, attr string) ([]string, error)
	AcceptOneTrust(timeout time.Duration) error
	AcceptUsercentrics() (bool, error)
}

type Selector struct {
	// oddsportal
	OddsRows       string
	ClassicBookies string
	Pagination     string

	// opta
	FixtureBody   string
	MatchDivider  string
	PlayerStats   string
	SeasonSelect  string
	StageDropdown string
	StageFixture  string
}

var DefaultSelector = Selector{
	OddsRows:       `div[data-testid="over-under-collapsed-row"]`,
	ClassicBookies: `div[data-testid="classic"]`,
	Pagination:     "a.pagination-link",

	FixtureBody:   "tbody[data-match]",
	MatchDivider:  `[data-match=%q] .Opta-Divider`,
	PlayerStats:   "thead.Opta-Player-Stats",
	SeasonSelect:  "#season-select",
	StageDropdown: "h3.Opta-Exp",
	StageFixture:  "tbody.Opta-fixture",
}

const (
	playerStatsLink = "Opta Player Stats"
	consentTimeout  = 10 * time.Second
)

// Timing holds the pauses the drivers take. Human is the short random
// delay between clicks, PageLoad the fixed wait after full page loads.
type Timing struct {
	Human    *session.Pacer
	PageLoad time.Duration
	Scroll   time.Duration
	Sleep    session.SleepFunc
}

func (t Timing) human(ctx context.Context) error {
	_, err := t.Human.Pause(ctx)
	return err
}

func (t Timing) load(ctx context.Context) error {
	return t.Sleep(ctx, t.PageLoad)
}

func (t Timing) scroll(ctx context.Context) error {
	return t.Sleep(ctx, t.Scroll)
}

// driver is shared by the site drivers and collectors.
type driver struct {
	page   Page
	sel    Selector
	timing Timing
	log    *zap.Logger
}
