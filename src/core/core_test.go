package core

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"oddscrawler/src/config"
	"oddscrawler/src/domain"
	"oddscrawler/src/session"
	"oddscrawler/src/tracker"
)

type fakePage struct {
	calls   []string
	html    []string
	counts  map[string]int
	visible map[string][]string
}

func (p *fakePage) record(format string, args ...any) {
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
}

func (p *fakePage) Navigate(url string) error {
	p.record("navigate %s", url)
	return nil
}

func (p *fakePage) SetLocation(url string) error {
	p.record("location %s", url)
	return nil
}

func (p *fakePage) Reload() error {
	p.record("reload")
	return nil
}

func (p *fakePage) Back() error {
	p.record("back")
	return nil
}

func (p *fakePage) WaitPresent(selector string, timeout time.Duration) error {
	p.record("wait %s", selector)
	return nil
}

func (p *fakePage) Click(selector string) error {
	p.record("click %s", selector)
	return nil
}

func (p *fakePage) ClickLinkText(text string) error {
	p.record("link %s", text)
	return nil
}

func (p *fakePage) SelectByText(selector, text string) error {
	p.record("select %s %s", selector, text)
	return nil
}

func (p *fakePage) ScrollTo(y int) error {
	p.record("scroll %d", y)
	return nil
}

func (p *fakePage) HTML() (string, error) {
	p.record("html")
	if len(p.html) == 0 {
		return "<html></html>", nil
	}
	html := p.html[0]
	if len(p.html) > 1 {
		p.html = p.html[1:]
	}
	return html, nil
}

func (p *fakePage) Count(selector string) (int, error) {
	return p.counts[selector], nil
}

func (p *fakePage) VisibleAttrs(selector, attr string) ([]string, error) {
	p.record("visible %s", selector)
	ids := p.visible[selector]
	if len(ids) > 0 {
		p.visible[selector] = nil
	}
	return ids, nil
}

func (p *fakePage) AcceptOneTrust(timeout time.Duration) error {
	p.record("onetrust")
	return nil
}

func (p *fakePage) AcceptUsercentrics() (bool, error) {
	p.record("usercentrics")
	return true, nil
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func testTiming() Timing {
	rng := rand.New(rand.NewPCG(1, 2))
	return Timing{
		Human:    session.NewPacer(rng, noSleep, 500*time.Millisecond, 1250*time.Millisecond),
		PageLoad: 5 * time.Second,
		Scroll:   2 * time.Second,
		Sleep:    noSleep,
	}
}

func testWaiter(page Page) *session.Waiter {
	backoff := session.NewPacer(rand.New(rand.NewPCG(3, 4)), noSleep, 8*time.Second, 15*time.Second)
	return session.NewWaiter(page, session.NewGuard(3), 10*time.Second, backoff, zap.NewNop())
}

func oddsportalConfig() config.OddsportalConfig {
	return config.OddsportalConfig{
		BaseURL: "https://www.oddsportal.com",
		Season:  "2024-2025",
		Competitions: []config.Competition{
			{Name: "Serie A", Path: "/football/italy/serie-a"},
		},
	}
}

const matchLink = "/football/italy/serie-a/inter-milan-abc123/"

func TestOddsportalFetch(t *testing.T) {
	tests := []struct {
		task string
		want []string
	}{
		{
			task: OverUnder,
			want: []string{
				"navigate https://www.oddsportal.com" + matchLink,
				"location https://www.oddsportal.com" + matchLink + "#over-under;2",
				"reload",
				`wait div[data-testid="over-under-collapsed-row"]`,
				`click div[data-testid="classic"]`,
				`wait div[data-testid="over-under-collapsed-row"]`,
				"html",
			},
		},
		{
			task: Handicap,
			want: []string{
				"navigate https://www.oddsportal.com" + matchLink,
				"location https://www.oddsportal.com" + matchLink + "#ah;2",
				"reload",
				`wait div[data-testid="over-under-collapsed-row"]`,
				`click div[data-testid="classic"]`,
				`wait div[data-testid="over-under-collapsed-row"]`,
				"html",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.task, func(t *testing.T) {
			page := &fakePage{html: []string{"<html>odds</html>"}}
			site := NewOddsportal(page, oddsportalConfig(), testTiming(), zap.NewNop())

			task, ok := site.Layout().Task(tt.task)
			require.True(t, ok)

			html, err := site.Fetch(context.Background(), domain.WorkItem{ID: matchLink}, task, testWaiter(page))
			require.NoError(t, err)
			require.Equal(t, "<html>odds</html>", html)

			if diff := cmp.Diff(tt.want, page.calls); diff != "" {
				t.Errorf("calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOddsportalHandicapLeavesPreviousMatch(t *testing.T) {
	page := &fakePage{html: []string{"<html>odds</html>"}}
	site := NewOddsportal(page, oddsportalConfig(), testTiming(), zap.NewNop())

	ou, _ := site.Layout().Task(OverUnder)
	ah, _ := site.Layout().Task(Handicap)

	_, err := site.Fetch(context.Background(), domain.WorkItem{ID: "/football/italy/serie-a/other-match/"}, ou, testWaiter(page))
	require.NoError(t, err)
	page.calls = nil

	_, err = site.Fetch(context.Background(), domain.WorkItem{ID: matchLink}, ah, testWaiter(page))
	require.NoError(t, err)
	require.Equal(t, "navigate https://www.oddsportal.com"+matchLink, page.calls[0])
	require.Less(t, slices.Index(page.calls, "navigate https://www.oddsportal.com"+matchLink),
		slices.Index(page.calls, "reload"))
}

func TestOddsportalPageFile(t *testing.T) {
	site := NewOddsportal(&fakePage{}, oddsportalConfig(), testTiming(), zap.NewNop())
	item := domain.WorkItem{ID: matchLink}

	ou, _ := site.Layout().Task(OverUnder)
	ah, _ := site.Layout().Task(Handicap)

	require.Equal(t, "ou_"+domain.ScrapeID(matchLink)+".html", site.PageFile(item, ou))
	require.Equal(t, "ah_"+domain.ScrapeID(matchLink)+".html", site.PageFile(item, ah))
	require.True(t, site.Eligible(item))
}

func optaConfig() config.OptaConfig {
	return config.OptaConfig{
		BaseURL:      "https://optaplayerstats.statsperform.com/en_GB/soccer/competitions",
		Season:       "2024/2025",
		Competitions: []string{"Serie A", "Ligue 1"},
		Qualifiers:   []string{"UEFA Champions League"},
		Stages:       []string{"Play-offs", "1st Qualifying Round"},
	}
}

func TestOptaPrepare(t *testing.T) {
	page := &fakePage{}
	site := NewOpta(page, optaConfig(), "Serie A", testTiming(), zap.NewNop())

	require.NoError(t, site.Prepare(context.Background()))
	want := []string{
		"navigate https://optaplayerstats.statsperform.com/en_GB/soccer/competitions",
		"usercentrics",
		"link Serie A",
		"link Opta Player Stats",
		"select #season-select 2024/2025",
	}
	if diff := cmp.Diff(want, page.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestOptaFetchAndFinish(t *testing.T) {
	page := &fakePage{
		html:   []string{"<html>stats</html>"},
		counts: map[string]int{`[data-match="m1"] .Opta-Divider`: 1},
	}
	site := NewOpta(page, optaConfig(), "Serie A", testTiming(), zap.NewNop())
	item := domain.WorkItem{ID: "m1", Competition: "Serie A"}
	task := domain.OptaLayout.SubTasks[0]

	html, err := site.Fetch(context.Background(), item, task, testWaiter(page))
	require.NoError(t, err)
	require.Equal(t, "<html>stats</html>", html)
	require.NoError(t, site.Finish(context.Background(), item))

	want := []string{
		"wait tbody[data-match]",
		`click [data-match="m1"] .Opta-Divider`,
		"wait thead.Opta-Player-Stats",
		"html",
		"back",
	}
	if diff := cmp.Diff(want, page.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "m1.html", site.PageFile(item, task))
}

func TestOptaFetchMissingMatch(t *testing.T) {
	page := &fakePage{}
	site := NewOpta(page, optaConfig(), "Serie A", testTiming(), zap.NewNop())
	item := domain.WorkItem{ID: "m1", Competition: "Serie A"}

	_, err := site.Fetch(context.Background(), item, domain.OptaLayout.SubTasks[0], testWaiter(page))
	require.ErrorIs(t, err, session.ErrItemUnavailable)

	require.NoError(t, site.Finish(context.Background(), item))
	require.NotContains(t, page.calls, "back")
}

func TestOptaEligible(t *testing.T) {
	site := NewOpta(&fakePage{}, optaConfig(), "Serie A", testTiming(), zap.NewNop())

	require.True(t, site.Eligible(domain.WorkItem{ID: "a", Competition: "Serie A"}))
	require.False(t, site.Eligible(domain.WorkItem{ID: "b", Competition: "Ligue 1"}))
}

func resultsPage(links ...string) string {
	html := "<html><body>"
	for _, l := range links {
		html += fmt.Sprintf(`<div data-testid="game-row"><div><a href="%s">match</a></div></div>`, l)
	}
	return html + "</body></html>"
}

func TestCollectOddsportal(t *testing.T) {
	page := &fakePage{
		counts: map[string]int{"a.pagination-link": 3},
		html: []string{
			resultsPage("/m/1/", "/m/2/"),
			resultsPage("/m/2/", "/m/3/", "/m/3/"),
		},
	}
	table := tracker.NewMemoryTable()
	tr := tracker.New(table, domain.OddsportalLayout)

	c := NewCollector(page, testTiming(), zap.NewNop())
	counts, err := c.CollectOddsportal(context.Background(), oddsportalConfig(), tr)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"/football/italy/serie-a": 3}, counts)

	ids, err := tr.IDs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"/m/1/", "/m/2/", "/m/3/"}, ids)

	results := "https://www.oddsportal.com/football/italy/serie-a-2024-2025/results/"
	require.Contains(t, page.calls, "navigate "+results)
	require.Contains(t, page.calls, "location "+results+"#/page/2/")
	require.NotContains(t, page.calls, "location "+results+"#/page/3/")
}

func TestCollectOddsportalSinglePage(t *testing.T) {
	page := &fakePage{html: []string{resultsPage("/m/1/")}}
	tr := tracker.New(tracker.NewMemoryTable(), domain.OddsportalLayout)

	c := NewCollector(page, testTiming(), zap.NewNop())
	counts, err := c.CollectOddsportal(context.Background(), oddsportalConfig(), tr)
	require.NoError(t, err)
	require.Equal(t, 1, counts["/football/italy/serie-a"])
}

func TestCollectOpta(t *testing.T) {
	page := &fakePage{
		html: []string{
			`<div class="Opta-fixtures-list"><table>
				<tbody class="Opta-fixture" data-match="a1"></tbody>
				<tbody class="Opta-fixture" data-match="a2"></tbody>
			</table></div>`,
			`<div class="Opta-fixtures-list"><table>
				<tbody class="Opta-fixture" data-match="b1"></tbody>
			</table></div>`,
		},
	}
	tr := tracker.New(tracker.NewMemoryTable(), domain.OptaLayout)

	c := NewCollector(page, testTiming(), zap.NewNop())
	counts, err := c.CollectOpta(context.Background(), optaConfig(), tr)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"Serie A": 2, "Ligue 1": 1}, counts)
}

func TestCollectQualifiersAndPrune(t *testing.T) {
	ctx := context.Background()
	page := &fakePage{
		visible: map[string][]string{"tbody.Opta-fixture": {"q1", "q2"}},
	}
	quals := tracker.New(tracker.NewMemoryTable(), domain.QualifierLayout)

	c := NewCollector(page, testTiming(), zap.NewNop())
	counts, err := c.CollectOptaQualifiers(ctx, optaConfig(), quals)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"UEFA Champions League": 2}, counts)
	require.Contains(t, page.calls, "link Play-offs")
	require.Contains(t, page.calls, "link 1st Qualifying Round")
	require.NotContains(t, page.calls, "link Opta Player Stats")

	opta := tracker.New(tracker.NewMemoryTable(
		domain.OptaLayout.Header,
		[]string{"m1", "UEFA Champions League"},
		[]string{"q1", "UEFA Champions League"},
		[]string{"m2", "UEFA Champions League"},
		[]string{"q2", "UEFA Champions League"},
	), domain.OptaLayout)

	rows, err := PruneQualifiers(ctx, quals, opta)
	require.NoError(t, err)
	require.Equal(t, []int{5, 3}, rows)

	ids, err := opta.IDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"m1", "m2"}, ids)
}
