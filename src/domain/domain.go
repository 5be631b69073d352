package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

const (
	StatusDone = "done"

	// Sentinel is written wherever an expected page fragment is missing.
	Sentinel           = "NA"
	UnknownCompetition = "Unknown"
)

// WorkItem is one row of a tracking table.
type WorkItem struct {
	Row         int
	ID          string
	Competition string
	Done        map[string]bool
	Errors      int
}

// Pending reports whether at least one sub-task is still incomplete.
func (w WorkItem) Pending() bool {
	for _, done := range w.Done {
		if !done {
			return true
		}
	}
	return false
}

type SubTask struct {
	Name      string
	StatusCol int
	TimeCol   int
}

// Layout describes where things live in a tracking worksheet. Columns
// are 1-based, zero means the worksheet has no such column.
type Layout struct {
	Name           string
	Header         []string
	IDCol          int
	CompetitionCol int
	SubTasks       []SubTask
	ErrorCol       int
}

var OddsportalLayout = Layout{
	Name:           "oddsportal",
	Header:         []string{"odds_id", "competition", "ou_status", "ou_timestamp", "ah_status", "ah_timestamp", "errors"},
	IDCol:          1,
	CompetitionCol: 2,
	SubTasks: []SubTask{
		{Name: "ou", StatusCol: 3, TimeCol: 4},
		{Name: "ah", StatusCol: 5, TimeCol: 6},
	},
	ErrorCol: 7,
}

var OptaLayout = Layout{
	Name:           "opta",
	Header:         []string{"match_id", "competition", "status", "timestamp", "errors"},
	IDCol:          1,
	CompetitionCol: 2,
	SubTasks: []SubTask{
		{Name: "stats", StatusCol: 3, TimeCol: 4},
	},
	ErrorCol: 5,
}

var QualifierLayout = Layout{
	Name:           "qualifiers",
	Header:         []string{"match_id", "competition"},
	IDCol:          1,
	CompetitionCol: 2,
}

// Item builds a WorkItem from a raw row. Spreadsheet APIs trim trailing
// empty cells, so short rows are expected.
func (l Layout) Item(row int, cells []string) WorkItem {
	item := WorkItem{
		Row:         row,
		ID:          cell(cells, l.IDCol),
		Competition: strings.TrimSpace(cell(cells, l.CompetitionCol)),
		Done:        make(map[string]bool, len(l.SubTasks)),
	}

	for _, t := range l.SubTasks {
		item.Done[t.Name] = strings.TrimSpace(cell(cells, t.StatusCol)) != ""
	}

	if l.ErrorCol > 0 {
		item.Errors = ParseCount(cell(cells, l.ErrorCol))
	}

	return item
}

// Task looks up a sub-task by name.
func (l Layout) Task(name string) (SubTask, bool) {
	for _, t := range l.SubTasks {
		if t.Name == name {
			return t, true
		}
	}
	return SubTask{}, false
}

// ParseCount reads an error counter cell, blank or garbage is zero.
func ParseCount(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

func cell(cells []string, col int) string {
	if col <= 0 || col > len(cells) {
		return ""
	}
	return cells[col-1]
}

// ScrapeID is the short hash used to name saved oddsportal pages.
func ScrapeID(link string) string {
	sum := sha256.Sum256([]byte(link))
	return hex.EncodeToString(sum[:])[:24]
}
