// Package backup snapshots the pages directory into timestamped zip archives
// and keeps only the most recent ones.
package backup

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"
)

// DefaultRetention is the number of archives kept after each snapshot.
const DefaultRetention = 10

const (
	archivePrefix = "backup-"
	archiveExt    = ".zip"
	timeLayout    = "20060102-150405.000"
	tmpPattern    = ".backup-tmp-*"
)

// Archive describes one backup file.
type Archive struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// Manager writes and prunes archives. Snapshots are serialized.
type Manager struct {
	source    string
	dir       string
	retention int
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	trigger chan struct{}
}

// New creates a backup manager copying source into archives under dir.
func New(source, dir string, retention int, logger *slog.Logger) *Manager {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		source:    source,
		dir:       dir,
		retention: retention,
		logger:    logger,
		now:       time.Now,
		trigger:   make(chan struct{}, 1),
	}
}

// Dir returns the archive directory.
func (m *Manager) Dir() string { return m.dir }

// Snapshot zips the whole source tree into a new archive and applies retention.
func (m *Manager) Snapshot(ctx context.Context) (*Archive, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(m.dir, tmpPattern)
	if err != nil {
		return nil, fmt.Errorf("backup: create temp: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := m.writeZip(ctx, tmp); err != nil {
		return nil, err
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("backup: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("backup: close: %w", err)
	}

	final := m.archivePath()
	if err := os.Rename(tmpName, final); err != nil {
		return nil, fmt.Errorf("backup: rename: %w", err)
	}
	success = true

	info, err := os.Stat(final)
	if err != nil {
		return nil, fmt.Errorf("backup: stat: %w", err)
	}
	m.logger.Info("backup created", slog.String("archive", info.Name()), slog.Int64("size", info.Size()))

	if err := m.prune(); err != nil {
		m.logger.Warn("backup: retention", slog.String("error", err.Error()))
	}
	return &Archive{Name: info.Name(), Size: info.Size(), CreatedAt: info.ModTime()}, nil
}

// archivePath picks a timestamped name, adding a counter if a snapshot in the
// same millisecond already exists.
func (m *Manager) archivePath() string {
	stamp := m.now().Format(timeLayout)
	p := filepath.Join(m.dir, archivePrefix+stamp+archiveExt)
	for i := 2; fileExists(p); i++ {
		p = filepath.Join(m.dir, fmt.Sprintf("%s%s-%d%s", archivePrefix, stamp, i, archiveExt))
	}
	return p
}

func (m *Manager) writeZip(ctx context.Context, w io.Writer) error {
	zw := zip.NewWriter(w)
	backupDir, _ := filepath.Abs(m.dir)

	err := filepath.WalkDir(m.source, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if abs, _ := filepath.Abs(p); abs == backupDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".nodepad-tmp-") {
			return nil
		}
		rel, err := filepath.Rel(m.source, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return addFile(zw, p, filepath.ToSlash(rel), info)
	})
	if err != nil {
		_ = zw.Close()
		return fmt.Errorf("backup: walk %s: %w", m.source, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("backup: finish zip: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, abs, name string, info fs.FileInfo) error {
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	src, err := os.Open(abs)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(dst, src)
	return err
}

// List returns the archives newest first.
func (m *Manager) List() ([]Archive, error) {
	files, err := filepath.Glob(filepath.Join(m.dir, archivePrefix+"*"+archiveExt))
	if err != nil {
		return nil, err
	}
	out := make([]Archive, 0, len(files))
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, Archive{Name: info.Name(), Size: info.Size(), CreatedAt: info.ModTime()})
	}
	slices.SortFunc(out, func(a, b Archive) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.Name, a.Name)
	})
	return out, nil
}

// Prune removes every archive beyond the retention count, oldest first.
func (m *Manager) Prune() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prune()
}

func (m *Manager) prune() error {
	archives, err := m.List()
	if err != nil {
		return err
	}
	if len(archives) <= m.retention {
		return nil
	}
	for _, a := range archives[m.retention:] {
		if err := os.Remove(filepath.Join(m.dir, a.Name)); err != nil {
			return fmt.Errorf("remove %s: %w", a.Name, err)
		}
	}
	return nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
