package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"oddscrawler/src/domain"
)

// ParseOdds reads a saved oddsportal match page and returns one row per
// market line (over/under total or handicap). Missing page fragments turn
// into sentinels rather than errors.
func ParseOdds(r io.Reader, filename string) ([]domain.OddsRow, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	competition := oddsCompetition(doc.Selection)
	home, away := oddsTeams(doc.Selection)
	kickoff := oddsKickoff(doc.Selection)

	var rows []domain.OddsRow
	doc.Find(`div[data-testid="over-under-collapsed-row"]`).Each(
		func(i int, s *goquery.Selection) {
			row := domain.OddsRow{
				Filename:    filename,
				HomeTeam:    home,
				AwayTeam:    away,
				Competition: competition,
				KickoffRaw:  kickoff,
				Market:      domain.Sentinel,
				HomeOdd:     domain.Sentinel,
				AwayOdd:     domain.Sentinel,
			}

			label := s.Find("p").FilterFunction(func(_ int, p *goquery.Selection) bool {
				return p.HasClass("max-sm:!hidden")
			}).First()
			if label.Length() > 0 {
				row.Market = strings.TrimSpace(label.Text())
			}

			odds := s.Find(`p[data-testid="odd-container-default"]`)
			if odds.Length() >= 2 {
				row.HomeOdd = strings.TrimSpace(odds.Eq(0).Text())
				row.AwayOdd = strings.TrimSpace(odds.Eq(1).Text())
			}

			rows = append(rows, row)
		},
	)

	return rows, nil
}

func oddsCompetition(s *goquery.Selection) string {
	links := s.Find(`div[data-testid="breadcrumbs-line"]`).First().Find("a")
	if links.Length() == 0 {
		return domain.UnknownCompetition
	}
	return strings.TrimSpace(links.Last().Text())
}

func oddsTeams(s *goquery.Selection) (string, string) {
	home, away := domain.Sentinel, domain.Sentinel

	participants := s.Find(`div[data-testid="game-participants"]`).First()
	if p := participants.Find(`div[data-testid="game-host"]`).First().Find("p").First(); p.Length() > 0 {
		home = strings.TrimSpace(p.Text())
	}
	if p := participants.Find(`div[data-testid="game-guest"]`).First().Find("p").First(); p.Length() > 0 {
		away = strings.TrimSpace(p.Text())
	}

	return home, away
}

// oddsKickoff expects three paragraphs: weekday, date and time.
func oddsKickoff(s *goquery.Selection) string {
	ps := s.Find(`div[data-testid="game-time-item"]`).First().Find("p")
	if ps.Length() != 3 {
		return domain.Sentinel
	}

	date := strings.ReplaceAll(strings.TrimSpace(ps.Eq(1).Text()), ",", " ")
	return date + strings.TrimSpace(ps.Eq(2).Text())
}
