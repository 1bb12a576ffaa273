// Package bundle exposes the templates shipped with the binary, or an
// on-disk replacement for them, as the last-resort source of every lookup.
package bundle

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/vibery-studio/vibery/internal/core/catalog"
)

const (
	catalogFile  = "registry.json"
	stacksFile   = "stacks.json"
	templatesDir = "templates"
)

// ErrNotInBundle is returned when the bundle has no copy of a template.
var ErrNotInBundle = errors.New("not found in bundled templates")

//go:embed all:data
var embedded embed.FS

// Source reads bundled catalog, stacks and template files.
type Source struct {
	fs    afero.Fs
	label string
}

// New wraps an afero filesystem whose root holds registry.json,
// stacks.json and templates/.
func New(fsys afero.Fs, label string) *Source {
	return &Source{fs: fsys, label: label}
}

// Embedded returns the bundle compiled into the binary.
func Embedded() *Source {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		// The embed directive guarantees the directory exists.
		panic(fmt.Sprintf("bundle: %v", err))
	}
	return New(afero.FromIOFS{FS: sub}, "embedded")
}

// FromDir uses an on-disk directory as the bundle.
func FromDir(dir string) *Source {
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir), dir)
}

// Fs returns the bundle filesystem. Paths are relative to the bundle root.
func (s *Source) Fs() afero.Fs {
	return s.fs
}

// Label describes where the bundle lives.
func (s *Source) Label() string {
	return s.label
}

// ReadCatalog returns the raw bundled catalog.
func (s *Source) ReadCatalog() ([]byte, error) {
	return afero.ReadFile(s.fs, catalogFile)
}

// ReadStacks returns the raw bundled stacks document.
func (s *Source) ReadStacks() ([]byte, error) {
	return afero.ReadFile(s.fs, stacksFile)
}

// TemplatePath is the bundle-relative path of a template:
// templates/<plural>/<path>, where path defaults to the file name for
// single-file types and the clean name for skills.
func (s *Source) TemplatePath(d catalog.Descriptor) (string, error) {
	typeDir := path.Join(templatesDir, d.Type.Plural())

	rel := d.Path
	if rel == "" {
		if d.Type == catalog.TypeSkill {
			rel = d.CleanName()
		} else {
			rel = d.FileName()
		}
	}

	p := path.Join(typeDir, rel)
	if p != typeDir && !strings.HasPrefix(p, typeDir+"/") {
		return "", fmt.Errorf("template path %q escapes %s", d.Path, typeDir)
	}
	return p, nil
}

// ReadTemplate returns the bundled copy of a single-file template.
func (s *Source) ReadTemplate(d catalog.Descriptor) ([]byte, error) {
	p, err := s.TemplatePath(d)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotInBundle, d.Name)
		}
		return nil, fmt.Errorf("reading bundled %s: %w", d.Name, err)
	}
	return data, nil
}

// SkillDir returns the bundle-relative directory of a skill after checking
// that it exists and is a directory.
func (s *Source) SkillDir(d catalog.Descriptor) (string, error) {
	p, err := s.TemplatePath(d)
	if err != nil {
		return "", err
	}
	info, err := s.fs.Stat(p)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: skill %s", ErrNotInBundle, d.CleanName())
	}
	return p, nil
}
