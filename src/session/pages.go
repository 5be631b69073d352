package session

import (
	"fmt"
	"os"
	"path/filepath"
)

type PageStore interface {
	Save(name, content string) error
}

// FilePages writes pages into Dir. A page is synced and renamed into
// place, so a page file that exists is complete.
type FilePages struct {
	Dir string
}

func (p FilePages) Save(name, content string) error {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", p.Dir, err)
	}

	tmp, err := os.CreateTemp(p.Dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(p.Dir, name)); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}
