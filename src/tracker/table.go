package tracker

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Table is a remote grid of strings addressed spreadsheet-style: rows
// and columns are 1-based and row 1 is the header.
type Table interface {
	Values(ctx context.Context) ([][]string, error)
	Cell(ctx context.Context, row, col int) (string, error)
	UpdateCell(ctx context.Context, row, col int, value string) error
	SetHeader(ctx context.Context, cells []string) error
	AppendRows(ctx context.Context, rows [][]string) error
	DeleteRows(ctx context.Context, rows []int) error
}

type MemoryTable struct {
	mu   sync.Mutex
	rows [][]string
}

func NewMemoryTable(rows ...[]string) *MemoryTable {
	t := &MemoryTable{}
	for _, r := range rows {
		t.rows = append(t.rows, append([]string(nil), r...))
	}
	return t
}

func (t *MemoryTable) Values(ctx context.Context) ([][]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (t *MemoryTable) Cell(ctx context.Context, row, col int) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if row < 1 || col < 1 {
		return "", fmt.Errorf("invalid cell %d:%d", row, col)
	}
	if row > len(t.rows) || col > len(t.rows[row-1]) {
		return "", nil
	}
	return t.rows[row-1][col-1], nil
}

func (t *MemoryTable) UpdateCell(ctx context.Context, row, col int, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if row < 1 || col < 1 {
		return fmt.Errorf("invalid cell %d:%d", row, col)
	}
	for len(t.rows) < row {
		t.rows = append(t.rows, nil)
	}
	for len(t.rows[row-1]) < col {
		t.rows[row-1] = append(t.rows[row-1], "")
	}
	t.rows[row-1][col-1] = value
	return nil
}

func (t *MemoryTable) SetHeader(ctx context.Context, cells []string) error {
	for i, c := range cells {
		if err := t.UpdateCell(ctx, 1, i+1, c); err != nil {
			return err
		}
	}
	return nil
}

func (t *MemoryTable) AppendRows(ctx context.Context, rows [][]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, r := range rows {
		t.rows = append(t.rows, append([]string(nil), r...))
	}
	return nil
}

func (t *MemoryTable) DeleteRows(ctx context.Context, rows []int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	sorted := append([]int(nil), rows...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	for _, r := range sorted {
		if r < 1 || r > len(t.rows) {
			return fmt.Errorf("row %d out of range", r)
		}
		t.rows = append(t.rows[:r-1], t.rows[r:]...)
	}
	return nil
}
