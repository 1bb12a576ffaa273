// Package cache persists the remote catalog for a bounded time and keeps
// downloaded skill archives between runs.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/vibery-studio/vibery/internal/core/catalog"
)

const (
	catalogFileName = "registry.json"
	archivesDirName = "archives"
	archiveSuffix   = ".tar.gz"

	// DefaultTTL is how long a cached catalog is served without a remote check.
	DefaultTTL = time.Hour
)

// Store is the on-disk cache rooted at a single directory. It performs no
// locking; concurrent writers race and the last one wins.
type Store struct {
	fs  afero.Fs
	dir string
	ttl time.Duration
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithFs sets the filesystem the store operates on.
func WithFs(fs afero.Fs) Option {
	return func(s *Store) { s.fs = fs }
}

// WithTTL overrides the catalog TTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithClock sets the time source used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store rooted at dir.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		fs:  afero.NewOsFs(),
		dir: dir,
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultDir returns ~/.vibery/cache.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".vibery", "cache"), nil
}

// Dir returns the cache root.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) catalogPath() string {
	return filepath.Join(s.dir, catalogFileName)
}

func (s *Store) archivesDir() string {
	return filepath.Join(s.dir, archivesDirName)
}

// ArchivePath is the location of the archive for (type, name).
func (s *Store) ArchivePath(t catalog.Type, name string) string {
	return filepath.Join(s.archivesDir(), string(t)+"--"+name+archiveSuffix)
}

// Catalog returns the cached catalog when its file is younger than the TTL.
// Any error reading, dating or parsing the file counts as a miss.
func (s *Store) Catalog() (*catalog.Catalog, bool) {
	info, err := s.fs.Stat(s.catalogPath())
	if err != nil {
		return nil, false
	}
	if s.now().Sub(info.ModTime()) >= s.ttl {
		return nil, false
	}

	data, err := afero.ReadFile(s.fs, s.catalogPath())
	if err != nil {
		return nil, false
	}
	c, err := catalog.Parse(data)
	if err != nil {
		return nil, false
	}
	return c, true
}

// SaveCatalog writes the catalog in grouped form. The file's modification
// time becomes the start of its TTL.
func (s *Store) SaveCatalog(c *catalog.Catalog) error {
	data, err := catalog.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}
	if err := s.writeAtomic(s.catalogPath(), data); err != nil {
		return fmt.Errorf("saving catalog cache: %w", err)
	}
	// Stamp with the store clock so staleness stays consistent with it.
	now := s.now()
	if err := s.fs.Chtimes(s.catalogPath(), now, now); err != nil {
		return fmt.Errorf("stamping catalog cache: %w", err)
	}
	return nil
}

// HasArchive reports whether an archive exists for (type, name).
func (s *Store) HasArchive(t catalog.Type, name string) bool {
	info, err := s.fs.Stat(s.ArchivePath(t, name))
	return err == nil && !info.IsDir()
}

// OpenArchive returns the archive bytes for (type, name).
func (s *Store) OpenArchive(t catalog.Type, name string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.ArchivePath(t, name))
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	return data, nil
}

// SaveArchive stores archive bytes for (type, name), replacing any previous
// archive, and returns its location.
func (s *Store) SaveArchive(t catalog.Type, name string, data []byte) (string, error) {
	path := s.ArchivePath(t, name)
	if err := s.writeAtomic(path, data); err != nil {
		return "", fmt.Errorf("saving archive: %w", err)
	}
	return path, nil
}

// ClearCatalog removes the cached catalog. Missing files are not an error.
func (s *Store) ClearCatalog() error {
	if err := s.fs.Remove(s.catalogPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clearing catalog cache: %w", err)
	}
	return nil
}

// ClearArchives removes every cached archive.
func (s *Store) ClearArchives() error {
	if err := s.fs.RemoveAll(s.archivesDir()); err != nil {
		return fmt.Errorf("clearing archives: %w", err)
	}
	return nil
}

// ClearAll removes the whole cache directory.
func (s *Store) ClearAll() error {
	if err := s.fs.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// ArchiveInfo describes one cached archive.
type ArchiveInfo struct {
	Name string
	Size int64
}

// Stats summarizes the cache contents.
type Stats struct {
	Dir               string
	CatalogExists     bool
	CatalogAge        time.Duration
	CatalogValid      bool
	CatalogSize       int64
	ArchiveCount      int
	ArchiveTotalBytes int64
	Archives          []ArchiveInfo
}

// Stats inspects the cache. Unreadable entries are left out rather than
// reported as errors.
func (s *Store) Stats() Stats {
	st := Stats{Dir: s.dir}

	if info, err := s.fs.Stat(s.catalogPath()); err == nil {
		st.CatalogExists = true
		st.CatalogAge = s.now().Sub(info.ModTime())
		st.CatalogValid = st.CatalogAge < s.ttl
		st.CatalogSize = info.Size()
	}

	entries, err := afero.ReadDir(s.fs, s.archivesDir())
	if err != nil {
		return st
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), archiveSuffix) {
			continue
		}
		st.Archives = append(st.Archives, ArchiveInfo{Name: e.Name(), Size: e.Size()})
		st.ArchiveTotalBytes += e.Size()
	}
	sort.Slice(st.Archives, func(i, j int) bool { return st.Archives[i].Name < st.Archives[j].Name })
	st.ArchiveCount = len(st.Archives)
	return st
}

// writeAtomic writes to a temp file then renames it into place.
func (s *Store) writeAtomic(path string, data []byte) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmpPath, data, 0o644); err != nil {
		return err
	}
	if err := s.fs.Rename(tmpPath, path); err != nil {
		_ = s.fs.Remove(tmpPath)
		return err
	}
	return nil
}
