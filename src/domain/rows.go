package domain

// OddsRow is one market line from a saved oddsportal page.
type OddsRow struct {
	Filename    string
	HomeTeam    string
	AwayTeam    string
	Competition string
	KickoffRaw  string
	Market      string
	HomeOdd     string
	AwayOdd     string
}

func (OddsRow) Header() []string {
	return []string{"Filename", "HomeTeam", "AwayTeam", "Competition", "KickoffRaw", "Market", "HomeOdd", "AwayOdd"}
}

func (r OddsRow) Record() []string {
	return []string{r.Filename, r.HomeTeam, r.AwayTeam, r.Competition, r.KickoffRaw, r.Market, r.HomeOdd, r.AwayOdd}
}

// FixtureRow is one match from a saved opta page.
type FixtureRow struct {
	MatchID     string
	HomeTeam    string
	AwayTeam    string
	HomeGoals   string
	AwayGoals   string
	MatchDate   string
	Competition string
}

func (FixtureRow) Header() []string {
	return []string{"MatchID", "HomeTeam", "AwayTeam", "HomeGoals", "AwayGoals", "MatchDate", "Competition"}
}

func (r FixtureRow) Record() []string {
	return []string{r.MatchID, r.HomeTeam, r.AwayTeam, r.HomeGoals, r.AwayGoals, r.MatchDate, r.Competition}
}
