package parser

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseGameLinks returns the match links of an oddsportal results page.
func ParseGameLinks(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var links []string
	doc.Find(`div[data-testid="game-row"]`).Each(
		func(i int, s *goquery.Selection) {
			if href, ok := s.Find("a[href]").First().Attr("href"); ok && href != "" {
				links = append(links, href)
			}
		},
	)
	return links, nil
}

// ParseFixtureIDs returns the data-match ids of an opta fixtures list.
func ParseFixtureIDs(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var ids []string
	doc.Find("div.Opta-fixtures-list tbody.Opta-fixture").Each(
		func(i int, s *goquery.Selection) {
			if id := strings.TrimSpace(s.AttrOr("data-match", "")); id != "" {
				ids = append(ids, id)
			}
		},
	)
	return ids, nil
}
