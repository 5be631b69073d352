package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// SQLTable is a tracking worksheet stored one row per record, with the
// cells of a row JSON encoded.
type SQLTable struct {
	db        *DB
	worksheet string
}

func (db *DB) Table(worksheet string) *SQLTable {
	return &SQLTable{db: db, worksheet: worksheet}
}

func (t *SQLTable) Values(ctx context.Context) ([][]string, error) {
	rows, err := t.db.db.QueryContext(ctx,
		`SELECT row_index, cells FROM tracking_rows WHERE worksheet = $1 ORDER BY row_index`,
		t.worksheet,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values [][]string
	for rows.Next() {
		var (
			index int
			raw   string
		)
		if err := rows.Scan(&index, &raw); err != nil {
			return nil, err
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", index, err)
		}

		for len(values) < index-1 {
			values = append(values, nil)
		}
		values = append(values, cells)
	}

	return values, rows.Err()
}

func (t *SQLTable) Cell(ctx context.Context, row, col int) (string, error) {
	if row < 1 || col < 1 {
		return "", fmt.Errorf("invalid cell %d:%d", row, col)
	}

	cells, err := t.row(ctx, t.db.db, row)
	if err != nil {
		return "", err
	}
	if col > len(cells) {
		return "", nil
	}
	return cells[col-1], nil
}

func (t *SQLTable) UpdateCell(ctx context.Context, row, col int, value string) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("invalid cell %d:%d", row, col)
	}

	return t.inTx(ctx, func(tx *sql.Tx) error {
		cells, err := t.row(ctx, tx, row)
		if err != nil {
			return err
		}
		for len(cells) < col {
			cells = append(cells, "")
		}
		cells[col-1] = value
		return t.put(ctx, tx, row, cells)
	})
}

func (t *SQLTable) SetHeader(ctx context.Context, header []string) error {
	return t.inTx(ctx, func(tx *sql.Tx) error {
		cells, err := t.row(ctx, tx, 1)
		if err != nil {
			return err
		}
		for len(cells) < len(header) {
			cells = append(cells, "")
		}
		copy(cells, header)
		return t.put(ctx, tx, 1, cells)
	})
}

func (t *SQLTable) AppendRows(ctx context.Context, rows [][]string) error {
	return t.inTx(ctx, func(tx *sql.Tx) error {
		var last int
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(row_index), 0) FROM tracking_rows WHERE worksheet = $1`,
			t.worksheet,
		).Scan(&last)
		if err != nil {
			return err
		}

		for i, cells := range rows {
			if err := t.put(ctx, tx, last+i+1, cells); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteRows removes rows and shifts the ones below up, like deleting
// rows in a spreadsheet.
func (t *SQLTable) DeleteRows(ctx context.Context, rows []int) error {
	sorted := append([]int(nil), rows...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	return t.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range sorted {
			res, err := tx.ExecContext(ctx,
				`DELETE FROM tracking_rows WHERE worksheet = $1 AND row_index = $2`,
				t.worksheet, r,
			)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return fmt.Errorf("row %d out of range", r)
			}

			// two steps, so the primary key never sees two rows at one index
			if _, err := tx.ExecContext(ctx,
				`UPDATE tracking_rows SET row_index = -(row_index - 1) WHERE worksheet = $1 AND row_index > $2`,
				t.worksheet, r,
			); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE tracking_rows SET row_index = -row_index WHERE worksheet = $1 AND row_index < 0`,
				t.worksheet,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (t *SQLTable) row(ctx context.Context, q querier, index int) ([]string, error) {
	var raw string
	err := q.QueryRowContext(ctx,
		`SELECT cells FROM tracking_rows WHERE worksheet = $1 AND row_index = $2`,
		t.worksheet, index,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeCells(raw)
}

func (t *SQLTable) put(ctx context.Context, tx *sql.Tx, index int, cells []string) error {
	raw, err := json.Marshal(cells)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tracking_rows (worksheet, row_index, cells) VALUES ($1, $2, $3)
		ON CONFLICT (worksheet, row_index) DO UPDATE SET cells = excluded.cells`,
		t.worksheet, index, string(raw),
	)
	return err
}

func (t *SQLTable) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := t.db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("%s table: %w", t.worksheet, err)
	}
	return tx.Commit()
}

func decodeCells(raw string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, fmt.Errorf("decode cells: %w", err)
	}
	return cells, nil
}
