// Package tracker keeps scrape progress in a tracking table: one row per
// match, one status/timestamp column pair per sub-task and an error
// counter.
package tracker

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"oddscrawler/src/domain"
)

type Tracker struct {
	table  Table
	layout domain.Layout
}

func New(table Table, layout domain.Layout) *Tracker {
	return &Tracker{table: table, layout: layout}
}

func (t *Tracker) Layout() domain.Layout {
	return t.layout
}

// Items reads every data row. The read always goes to the table so
// changes from other writers are picked up.
func (t *Tracker) Items(ctx context.Context) ([]domain.WorkItem, error) {
	values, err := t.table.Values(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s table: %w", t.layout.Name, err)
	}

	var items []domain.WorkItem
	for i, cells := range values {
		if i == 0 {
			continue
		}
		items = append(items, t.layout.Item(i+1, cells))
	}
	return items, nil
}

// Pending returns the items with at least one incomplete sub-task.
// A nil filter accepts everything.
func (t *Tracker) Pending(ctx context.Context, filter func(domain.WorkItem) bool) ([]domain.WorkItem, error) {
	items, err := t.Items(ctx)
	if err != nil {
		return nil, err
	}

	var pending []domain.WorkItem
	for _, item := range items {
		if !item.Pending() {
			continue
		}
		if filter != nil && !filter(item) {
			continue
		}
		pending = append(pending, item)
	}
	return pending, nil
}

// MarkDone flags a sub-task as done and stores the time the page was
// accessed, as fractional unix seconds.
func (t *Tracker) MarkDone(ctx context.Context, item domain.WorkItem, task domain.SubTask, at time.Time) error {
	if err := t.table.UpdateCell(ctx, item.Row, task.StatusCol, domain.StatusDone); err != nil {
		return fmt.Errorf("mark %s done on row %d: %w", task.Name, item.Row, err)
	}
	if task.TimeCol > 0 {
		if err := t.table.UpdateCell(ctx, item.Row, task.TimeCol, Timestamp(at)); err != nil {
			return fmt.Errorf("write %s timestamp on row %d: %w", task.Name, item.Row, err)
		}
	}
	return nil
}

// RecordError bumps the error counter of an item.
func (t *Tracker) RecordError(ctx context.Context, item domain.WorkItem) (int, error) {
	if t.layout.ErrorCol == 0 {
		return 0, nil
	}

	v, err := t.table.Cell(ctx, item.Row, t.layout.ErrorCol)
	if err != nil {
		return 0, fmt.Errorf("read error count on row %d: %w", item.Row, err)
	}

	n := domain.ParseCount(v) + 1
	if err := t.table.UpdateCell(ctx, item.Row, t.layout.ErrorCol, strconv.Itoa(n)); err != nil {
		return 0, fmt.Errorf("write error count on row %d: %w", item.Row, err)
	}
	return n, nil
}

func (t *Tracker) EnsureHeader(ctx context.Context) error {
	return t.table.SetHeader(ctx, t.layout.Header)
}

// Track appends the ids not yet tracked for the competition. It returns
// the number of rows added and whether the input had duplicates.
func (t *Tracker) Track(ctx context.Context, competition string, ids []string) (int, bool, error) {
	values, err := t.table.Values(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("read %s table: %w", t.layout.Name, err)
	}

	existing := make(map[string]struct{})
	for i, cells := range values {
		if i == 0 {
			continue
		}
		item := t.layout.Item(i+1, cells)
		if item.Competition == strings.TrimSpace(competition) {
			existing[item.ID] = struct{}{}
		}
	}

	seen := make(map[string]struct{}, len(ids))
	duplicates := false

	var rows [][]string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			duplicates = true
			continue
		}
		seen[id] = struct{}{}

		if _, ok := existing[id]; ok {
			continue
		}
		rows = append(rows, t.newRow(id, competition))
	}

	if len(rows) == 0 {
		return 0, duplicates, nil
	}
	if err := t.table.AppendRows(ctx, rows); err != nil {
		return 0, duplicates, fmt.Errorf("append to %s table: %w", t.layout.Name, err)
	}
	return len(rows), duplicates, nil
}

func (t *Tracker) newRow(id, competition string) []string {
	width := t.layout.IDCol
	if t.layout.CompetitionCol > width {
		width = t.layout.CompetitionCol
	}

	row := make([]string, width)
	row[t.layout.IDCol-1] = id
	if t.layout.CompetitionCol > 0 {
		row[t.layout.CompetitionCol-1] = competition
	}
	return row
}

// IDs returns every tracked id in row order.
func (t *Tracker) IDs(ctx context.Context) ([]string, error) {
	items, err := t.Items(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.ID != "" {
			ids = append(ids, item.ID)
		}
	}
	return ids, nil
}

// Remove deletes the rows whose id is in ids and returns their indexes.
func (t *Tracker) Remove(ctx context.Context, ids map[string]struct{}) ([]int, error) {
	items, err := t.Items(ctx)
	if err != nil {
		return nil, err
	}

	var rows []int
	for _, item := range items {
		if _, ok := ids[item.ID]; ok {
			rows = append(rows, item.Row)
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	sort.Sort(sort.Reverse(sort.IntSlice(rows)))
	if err := t.table.DeleteRows(ctx, rows); err != nil {
		return nil, fmt.Errorf("delete rows from %s table: %w", t.layout.Name, err)
	}
	return rows, nil
}

type Progress struct {
	Done  int
	Total int
}

func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total) * 100
}

func (t *Tracker) Progress(ctx context.Context) (Progress, error) {
	items, err := t.Items(ctx)
	if err != nil {
		return Progress{}, err
	}

	p := Progress{Total: len(items) * len(t.layout.SubTasks)}
	for _, item := range items {
		for _, task := range t.layout.SubTasks {
			if item.Done[task.Name] {
				p.Done++
			}
		}
	}
	return p, nil
}

// Counts returns tracked rows per competition, keyed by the names given.
func (t *Tracker) Counts(ctx context.Context, competitions []string) (map[string]int, error) {
	items, err := t.Items(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(competitions))
	for _, c := range competitions {
		counts[c] = 0
	}
	for _, item := range items {
		if _, ok := counts[item.Competition]; ok {
			counts[item.Competition]++
		}
	}
	return counts, nil
}

func Timestamp(at time.Time) string {
	return strconv.FormatFloat(float64(at.UnixMicro())/1e6, 'f', -1, 64)
}

type CompetitionProgress struct {
	Competition string
	Items       int
	Errors      int
	Progress
}

// ByCompetition breaks progress down per competition, sorted by name.
func (t *Tracker) ByCompetition(ctx context.Context) ([]CompetitionProgress, error) {
	items, err := t.Items(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var out []CompetitionProgress
	for _, item := range items {
		i, ok := index[item.Competition]
		if !ok {
			i = len(out)
			index[item.Competition] = i
			out = append(out, CompetitionProgress{Competition: item.Competition})
		}

		cp := &out[i]
		cp.Items++
		cp.Errors += item.Errors
		cp.Total += len(t.layout.SubTasks)
		for _, task := range t.layout.SubTasks {
			if item.Done[task.Name] {
				cp.Done++
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Competition < out[j].Competition })
	return out, nil
}
