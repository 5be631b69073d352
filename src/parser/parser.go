// Package parser turns saved html pages into flat rows.
package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ParseFunc parses one saved page. name is the page's file name.
type ParseFunc[T any] func(r io.Reader, name string) ([]T, error)

const workers = 3

// ExtractDir parses every .html file in dir with a few workers and returns
// the rows in file name order.
func ExtractDir[T any](ctx context.Context, dir string, parse ParseFunc[T], log *zap.Logger) ([]T, error) {
	files, err := htmlFiles(dir)
	if err != nil {
		return nil, err
	}

	results := make([][]T, len(files))
	var parsed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, name := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			rows, err := parseFile(filepath.Join(dir, name), name, parse)
			if err != nil {
				return err
			}
			results[i] = rows

			n := parsed.Add(1)
			log.Debug("parsed page",
				zap.String("file", name),
				zap.Int("rows", len(rows)),
				zap.Int64("done", n),
				zap.Int("total", len(files)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var rows []T
	for _, r := range results {
		rows = append(rows, r...)
	}

	log.Info("extracted pages",
		zap.String("dir", dir),
		zap.Int("files", len(files)),
		zap.Int("rows", len(rows)))
	return rows, nil
}

func parseFile[T any](path, name string, parse ParseFunc[T]) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parse(f, name)
}

func htmlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".html") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
