package importer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Inbox is the import/ directory next to daftar.yaml. Statements dropped
// there are booked by `daftar bank import` and then archived under
// import/processed/.
type Inbox struct {
	Root string
	// Now stamps archived duplicates. Defaults to time.Now.
	Now func() time.Time
}

// Statement is a pending file in the inbox.
type Statement struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

const (
	inboxDir     = "import"
	processedDir = "processed"
)

// NewInbox returns the inbox of the books rooted at root.
func NewInbox(root string) *Inbox {
	return &Inbox{Root: root, Now: time.Now}
}

// Dir is the inbox directory.
func (b *Inbox) Dir() string {
	return filepath.Join(b.Root, inboxDir)
}

// Pending lists the CSV statements waiting in the inbox, oldest first so
// consecutive months are booked in order. A missing inbox is empty.
func (b *Inbox) Pending() ([]Statement, error) {
	entries, err := os.ReadDir(b.Dir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var out []Statement
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		out = append(out, Statement{
			Name:    e.Name(),
			Path:    filepath.Join(b.Dir(), e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].ModTime.Before(out[j].ModTime)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Archive moves a booked statement to import/processed/ and returns its new
// path. A statement already archived under the same name is kept, the new
// one gets a timestamp suffix.
func (b *Inbox) Archive(name string) (string, error) {
	dstDir := filepath.Join(b.Dir(), processedDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, name)
	if _, err := os.Stat(dst); err == nil {
		ext := filepath.Ext(name)
		stamp := b.Now().Format("20060102-150405")
		dst = filepath.Join(dstDir, fmt.Sprintf("%s-%s%s", strings.TrimSuffix(name, ext), stamp, ext))
	}
	if err := os.Rename(filepath.Join(b.Dir(), name), dst); err != nil {
		return "", fmt.Errorf("archiving %s: %w", name, err)
	}
	return dst, nil
}
