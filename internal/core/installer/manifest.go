package installer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/vibery-studio/vibery/internal/core/catalog"
)

// ErrInvalidManifest is returned for manifests that are not a map of skill
// names to file lists.
var ErrInvalidManifest = errors.New("invalid templates manifest")

// Manifest maps a skill name to the sorted relative paths of its files.
type Manifest map[string][]string

// ParseManifest accepts the full templates manifest, whose skills live under
// a "skills" key next to per-type file lists, or a bare skill map.
func ParseManifest(data []byte) (Manifest, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidManifest)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidManifest)
	}
	if skills := doc.Get("skills"); skills.IsObject() {
		doc = skills
	}

	m := make(Manifest)
	var err error
	doc.ForEach(func(key, value gjson.Result) bool {
		if !value.IsArray() {
			err = fmt.Errorf("%w: %q is not a file list", ErrInvalidManifest, key.String())
			return false
		}
		var files []string
		for _, f := range value.Array() {
			if f.Type != gjson.String {
				err = fmt.Errorf("%w: %q lists a non-string path", ErrInvalidManifest, key.String())
				return false
			}
			files = append(files, f.String())
		}
		m[key.String()] = files
		return true
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// manifestTypes is the key order of a generated templates manifest.
var manifestTypes = []catalog.Type{
	catalog.TypeAgent,
	catalog.TypeCommand,
	catalog.TypeMCP,
	catalog.TypeHook,
	catalog.TypeSetting,
	catalog.TypeSkill,
}

// GenerateManifest walks a templates directory (<dir>/<plural>/...) and
// builds the templates manifest: sorted file names per single-file type and
// sorted relative paths per skill. Hidden entries and __pycache__ are left
// out. Missing type directories are skipped.
func GenerateManifest(fsys afero.Fs, dir string) ([]byte, error) {
	doc := []byte(`{}`)

	for _, t := range manifestTypes {
		typeDir := filepath.Join(dir, t.Plural())
		entries, err := afero.ReadDir(fsys, typeDir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", typeDir, err)
		}

		if t == catalog.TypeSkill {
			skills := make(map[string][]string)
			for _, e := range entries {
				if !e.IsDir() || ignored(e.Name()) {
					continue
				}
				files, err := listFiles(fsys, filepath.Join(typeDir, e.Name()))
				if err != nil {
					return nil, err
				}
				skills[e.Name()] = files
			}
			if doc, err = sjson.SetBytes(doc, t.Plural(), skills); err != nil {
				return nil, fmt.Errorf("building manifest: %w", err)
			}
			continue
		}

		names := []string{}
		for _, e := range entries {
			if e.IsDir() || ignored(e.Name()) {
				continue
			}
			names = append(names, e.Name())
		}
		sort.Strings(names)
		if doc, err = sjson.SetBytes(doc, t.Plural(), names); err != nil {
			return nil, fmt.Errorf("building manifest: %w", err)
		}
	}

	var out bytes.Buffer
	if err := json.Indent(&out, doc, "", "  "); err != nil {
		return nil, fmt.Errorf("formatting manifest: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// GenerateCatalog builds a grouped catalog from a templates directory,
// reading descriptions from markdown frontmatter or a JSON "description"
// field.
func GenerateCatalog(fsys afero.Fs, dir, version string) (*catalog.Catalog, error) {
	c := catalog.New()
	c.Version = version

	for _, t := range catalog.Types {
		typeDir := filepath.Join(dir, t.Plural())
		entries, err := afero.ReadDir(fsys, typeDir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", typeDir, err)
		}

		for _, e := range entries {
			if ignored(e.Name()) {
				continue
			}

			var d catalog.Descriptor
			switch {
			case t == catalog.TypeSkill && e.IsDir():
				d = catalog.Descriptor{Name: e.Name(), Type: t}
				content, err := afero.ReadFile(fsys, filepath.Join(typeDir, e.Name(), skillEntryFile))
				if err == nil {
					describe(&d, content)
				}
			case t != catalog.TypeSkill && !e.IsDir():
				d = catalog.Descriptor{Name: catalog.CleanName(e.Name()), Type: t}
				content, err := afero.ReadFile(fsys, filepath.Join(typeDir, e.Name()))
				if err != nil {
					return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
				}
				describe(&d, content)
			default:
				continue
			}
			c.Add(d)
		}
	}
	return c, nil
}

// describe fills descriptive fields from template content.
func describe(d *catalog.Descriptor, content []byte) {
	if d.Type.Ext() == ".json" {
		d.Description = gjson.GetBytes(content, "description").String()
		return
	}
	fm, _, err := catalog.SplitFrontmatter(content)
	if err != nil {
		return
	}
	d.Description = fm.Description
	d.Category = fm.Category
	d.Tags = fm.Tags
}

// listFiles returns the sorted slash-separated paths of every visible file
// below root.
func listFiles(fsys afero.Fs, root string) ([]string, error) {
	files := []string{}
	err := afero.Walk(fsys, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		if ignored(info.Name()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// ignored reports names never copied or listed: hidden entries and Python
// bytecode caches.
func ignored(name string) bool {
	return strings.HasPrefix(name, ".") || name == "__pycache__"
}

// cleanRel validates a manifest or archive path and returns it cleaned.
func cleanRel(rel string) (string, error) {
	if rel == "" || strings.ContainsRune(rel, '\\') || path.IsAbs(rel) {
		return "", fmt.Errorf("invalid file path %q", rel)
	}
	cleaned := path.Clean(rel)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("file path %q escapes the skill directory", rel)
	}
	return cleaned, nil
}
