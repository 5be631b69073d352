package parser

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"oddscrawler/src/domain"
)

var (
	competitionSlug = regexp.MustCompile(`/soccer/([^/]+)-`)
	fixtureClass    = regexp.MustCompile(`Opta-fixture.*Opta-Match-`)
)

// ParseFixtures reads a saved opta page and returns every fixture on it.
func ParseFixtures(r io.Reader, filename string) ([]domain.FixtureRow, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	competition := optaCompetition(doc.Selection)
	compCode := domain.Sentinel
	if competition != "" {
		compCode = initials(competition)
	}

	var rows []domain.FixtureRow
	doc.Find("tbody").Each(func(i int, tb *goquery.Selection) {
		if !fixtureClass.MatchString(tb.AttrOr("class", "")) {
			return
		}

		row := domain.FixtureRow{
			MatchID:     tb.AttrOr("data-match", ""),
			MatchDate:   fixtureDate(tb.AttrOr("data-date", "")),
			Competition: competition,
		}
		row.HomeTeam, row.AwayTeam = fixtureTeams(tb)
		row.HomeGoals = fixtureGoals(tb, "Opta-Team-Left")
		row.AwayGoals = fixtureGoals(tb, "Opta-Team-Right")

		row.MatchID = fmt.Sprintf("%s_%s_%s_%s",
			initials(row.HomeTeam), initials(row.AwayTeam), row.MatchDate, compCode)

		rows = append(rows, row)
	})

	return rows, nil
}

func optaCompetition(s *goquery.Selection) string {
	link := s.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
		return strings.Contains(a.AttrOr("class", ""), "Opta-MatchLink")
	}).First()
	if link.Length() == 0 {
		return ""
	}

	if m := competitionSlug.FindStringSubmatch(link.AttrOr("href", "")); m != nil {
		return titleCase(strings.ReplaceAll(m[1], "-", " "))
	}
	return strings.TrimSpace(link.Text())
}

// fixtureDate turns the epoch milliseconds in data-date into ddmmyy (UTC).
func fixtureDate(v string) string {
	if v == "" {
		return domain.Sentinel
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return domain.Sentinel
	}
	return time.UnixMilli(ms).UTC().Format("020106")
}

func fixtureTeams(tb *goquery.Selection) (string, string) {
	var home, away *goquery.Selection

	// first cell holding plain text, used when no team name cell is marked
	tb.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
		if td.Children().Length() == 0 && td.Text() != "" {
			home = td
			return false
		}
		return true
	})

	tb.Find("td").Each(func(_ int, td *goquery.Selection) {
		if !td.HasClass("Opta-TeamName") {
			return
		}
		class := td.AttrOr("class", "")
		switch {
		case strings.Contains(class, "Home"):
			home = td
		case strings.Contains(class, "Away"):
			away = td
		}
	})

	return textOr(home), textOr(away)
}

func fixtureGoals(tb *goquery.Selection, side string) string {
	td := tb.Find("td").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.AttrOr("class", ""), side)
	}).First()

	span := td.Find("span").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.AttrOr("class", ""), "Opta-Team-Score")
	}).First()

	if span.Length() == 0 {
		return domain.Sentinel
	}
	return strings.TrimSpace(span.Text())
}

func textOr(s *goquery.Selection) string {
	if s == nil || s.Length() == 0 {
		return domain.Sentinel
	}
	return strings.TrimSpace(s.Text())
}

// initials upper-cases the first letter of each word: "Manchester City" -> "MC".
func initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r := []rune(word)[0]
		b.WriteString(strings.ToUpper(string(r)))
	}
	return b.String()
}

// titleCase capitalises the first letter of every run of letters.
func titleCase(s string) string {
	out := []rune(s)
	prevLetter := false
	for i, r := range out {
		if unicode.IsLetter(r) {
			if prevLetter {
				out[i] = unicode.ToLower(r)
			} else {
				out[i] = unicode.ToUpper(r)
			}
			prevLetter = true
		} else {
			prevLetter = false
		}
	}
	return string(out)
}
