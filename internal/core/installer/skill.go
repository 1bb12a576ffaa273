package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/vibery-studio/vibery/internal/core/catalog"
	"github.com/vibery-studio/vibery/internal/core/remote"
	"github.com/vibery-studio/vibery/internal/core/tier"
)

// skillEntryFile is the file every skill directory is described by.
const skillEntryFile = "SKILL.md"

// file is one file of a skill tree, relative to the skill root.
type file struct {
	rel  string
	data []byte
	mode fs.FileMode
}

// perm normalizes the file mode: executables stay executable, everything
// else is written 0644.
func (f file) perm() fs.FileMode {
	if f.mode&0o111 != 0 {
		return 0o755
	}
	return 0o644
}

// InstallDirectory installs a skill directory to .claude/skills/<name>/.
// Tiers: archive cache, remote (manifest, then recursive listing), bundled
// copy. The destination is replaced only after a tier produced every file.
func (in *Installer) InstallDirectory(ctx context.Context, d catalog.Descriptor, root string, onProgress remote.ProgressFunc) Result {
	name := d.CleanName()
	if err := validateEntryName(name); err != nil {
		return Result{Err: fmt.Errorf("skill name: %w", err)}
	}

	files, source, err := tier.FirstWith(ctx, in.tierOptions(d),
		tier.Attempt[[]file]{
			Name: SourceCache,
			Skip: in.archives == nil || in.refresh || !in.archives.HasArchive(d.Type, name),
			Run: func(context.Context) ([]file, error) {
				return in.fromArchive(d.Type, name, onProgress)
			},
		},
		tier.Attempt[[]file]{
			Name: SourceRemote,
			Skip: in.remoteDisabled(),
			Run: func(ctx context.Context) ([]file, error) {
				return in.fromRemote(ctx, d, name, onProgress)
			},
		},
		tier.Attempt[[]file]{
			Name: SourceBundled,
			Skip: in.bundled == nil,
			Run: func(context.Context) ([]file, error) {
				return in.fromBundle(d, onProgress)
			},
		},
	)
	if err != nil {
		return Result{Err: err}
	}

	dest := TargetPath(root, d)
	if err := in.commitTree(dest, files); err != nil {
		return Result{Source: source, Err: err}
	}

	if source == SourceRemote && in.archives != nil {
		in.saveArchive(d.Type, name, files)
	}
	return Result{Success: true, Path: dest, Source: source}
}

func (in *Installer) fromArchive(t catalog.Type, name string, onProgress remote.ProgressFunc) ([]file, error) {
	data, err := in.archives.OpenArchive(t, name)
	if err != nil {
		return nil, err
	}
	files, err := unpackFiles(data)
	if err != nil {
		return nil, fmt.Errorf("cached archive for %s: %w", name, err)
	}
	report(onProgress, len(files), len(files))
	return files, nil
}

func (in *Installer) saveArchive(t catalog.Type, name string, files []file) {
	data, err := packFiles(files)
	if err == nil {
		_, err = in.archives.SaveArchive(t, name, data)
	}
	if err != nil {
		in.logger.Warn("could not cache skill archive", "skill", name, "err", err)
	}
}

// errManifestEntry marks a failure of a skill the manifest does list. The
// listing is not consulted for such a skill.
var errManifestEntry = errors.New("manifest entry failed")

// fromRemote tries the manifest strategy and falls back to walking the
// contents API. The manifest needs no API quota; the listing covers skills
// added after the manifest was generated.
func (in *Installer) fromRemote(ctx context.Context, d catalog.Descriptor, name string, onProgress remote.ProgressFunc) ([]file, error) {
	opts := in.tierOptions(d)
	opts.Terminal = func(err error) bool {
		return errors.Is(err, context.Canceled) || errors.Is(err, errManifestEntry)
	}
	files, _, err := tier.FirstWith(ctx, opts,
		tier.Attempt[[]file]{
			Name: "manifest",
			Run: func(ctx context.Context) ([]file, error) {
				return in.fetchByManifest(ctx, name, onProgress)
			},
		},
		tier.Attempt[[]file]{
			Name: "listing",
			Run: func(ctx context.Context) ([]file, error) {
				return in.fetchByListing(ctx, name, onProgress)
			},
		},
	)
	return files, err
}

// loadManifest fetches the templates manifest once per installer. A failed
// fetch is remembered too, so a batch does not retry it for every skill.
func (in *Installer) loadManifest(ctx context.Context) (Manifest, error) {
	if in.manifestLoaded {
		return in.manifest, in.manifestErr
	}
	in.manifestLoaded = true

	data, err := in.remote.FetchText(ctx, in.remote.ManifestURL())
	if err != nil {
		in.manifestErr = fmt.Errorf("fetching manifest: %w", err)
		return nil, in.manifestErr
	}
	in.manifest, in.manifestErr = ParseManifest(data)
	return in.manifest, in.manifestErr
}

func (in *Installer) fetchByManifest(ctx context.Context, name string, onProgress remote.ProgressFunc) ([]file, error) {
	m, err := in.loadManifest(ctx)
	if err != nil {
		return nil, err
	}
	paths, ok := m[name]
	if !ok || len(paths) == 0 {
		return nil, fmt.Errorf("skill %s is not in the manifest: %w", name, remote.ErrNotFound)
	}

	files := make([]file, 0, len(paths))
	for i, p := range paths {
		rel, err := cleanRel(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errManifestEntry, err)
		}
		data, err := in.fetchFile(ctx, in.remote.SkillFileURL(name, rel))
		if err != nil {
			return nil, fmt.Errorf("%w: fetching %s/%s: %w", errManifestEntry, name, rel, err)
		}
		files = append(files, file{rel: rel, data: data})
		report(onProgress, i+1, len(paths))
	}
	return files, nil
}

// fetchFile tries a text fetch first and retries as binary for content that
// is not text or when the short text timeout was too tight.
func (in *Installer) fetchFile(ctx context.Context, url string) ([]byte, error) {
	data, err := in.remote.FetchText(ctx, url)
	if err == nil {
		return data, nil
	}
	if remote.IsNotFound(err) || errors.Is(err, context.Canceled) {
		return nil, err
	}
	return in.remote.FetchBinary(ctx, url, nil)
}

type pendingDir struct {
	url   string
	rel   string
	depth int
}

type pendingFile struct {
	url string
	rel string
}

// fetchByListing walks the skill directory through the contents API with an
// explicit stack of pending directories (depth-first), then downloads every
// file it found.
func (in *Installer) fetchByListing(ctx context.Context, name string, onProgress remote.ProgressFunc) ([]file, error) {
	pending := []pendingDir{{url: in.remote.ContentsURL(name)}}
	visited := make(map[string]bool)
	var found []pendingFile

	for len(pending) > 0 {
		dir := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if visited[dir.url] {
			continue
		}
		visited[dir.url] = true

		entries, err := in.remote.ListDirectory(ctx, dir.url)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", path.Join(name, dir.rel), err)
		}

		var subdirs []pendingDir
		for _, e := range entries {
			if err := validateEntryName(e.Name); err != nil {
				return nil, fmt.Errorf("listing %s: %w", path.Join(name, dir.rel), err)
			}
			rel := path.Join(dir.rel, e.Name)

			switch e.Type {
			case "dir":
				if dir.depth+1 > in.maxDepth {
					return nil, fmt.Errorf("skill %s: %s is nested deeper than %d levels", name, rel, in.maxDepth)
				}
				u := e.URL
				if u == "" {
					u = in.remote.ContentsURL(name + "/" + rel)
				}
				subdirs = append(subdirs, pendingDir{url: u, rel: rel, depth: dir.depth + 1})
			case "file":
				u := e.DownloadURL
				if u == "" {
					u = in.remote.SkillFileURL(name, rel)
				}
				found = append(found, pendingFile{url: u, rel: rel})
			default:
				in.logger.Debug("skipping listing entry", "skill", name, "path", rel, "type", e.Type)
			}
		}
		// Pushed in reverse so siblings are walked in listing order.
		for i := len(subdirs) - 1; i >= 0; i-- {
			pending = append(pending, subdirs[i])
		}
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("skill %s has no files", name)
	}

	files := make([]file, 0, len(found))
	for i, f := range found {
		data, err := in.fetchFile(ctx, f.url)
		if err != nil {
			return nil, fmt.Errorf("fetching %s/%s: %w", name, f.rel, err)
		}
		files = append(files, file{rel: f.rel, data: data})
		report(onProgress, i+1, len(found))
	}
	return files, nil
}

func (in *Installer) fromBundle(d catalog.Descriptor, onProgress remote.ProgressFunc) ([]file, error) {
	dir, err := in.bundled.SkillDir(d)
	if err != nil {
		return nil, err
	}

	bfs := in.bundled.Fs()
	var files []file
	err = afero.Walk(bfs, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == dir {
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

		data, err := afero.ReadFile(bfs, p)
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(filepath.ToSlash(p), filepath.ToSlash(dir)+"/")
		files = append(files, file{rel: rel, data: data, mode: info.Mode()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("copying bundled skill %s: %w", d.CleanName(), err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: skill %s is empty", ErrNotInBundle, d.CleanName())
	}

	for i := range files {
		report(onProgress, i+1, len(files))
	}
	return files, nil
}

func (in *Installer) readBundledSkillEntry(d catalog.Descriptor) ([]byte, error) {
	dir, err := in.bundled.SkillDir(d)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(in.bundled.Fs(), path.Join(dir, skillEntryFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotInBundle, d.CleanName(), skillEntryFile)
	}
	return data, nil
}

// commitTree writes files into a staging directory next to dest, then moves
// them over dest one by one. A download failure never touches dest, and
// files in dest that the skill does not ship are kept.
func (in *Installer) commitTree(dest string, files []file) error {
	staging := dest + ".staging"
	if err := in.fs.RemoveAll(staging); err != nil {
		return fmt.Errorf("clearing staging directory: %w", err)
	}
	defer func() { _ = in.fs.RemoveAll(staging) }()

	for _, f := range files {
		target := filepath.Join(staging, filepath.FromSlash(f.rel))
		if err := in.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", f.rel, err)
		}
		if err := afero.WriteFile(in.fs, target, f.data, f.perm()); err != nil {
			return fmt.Errorf("writing %s: %w", f.rel, err)
		}
	}

	if err := in.fs.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	for _, f := range files {
		rel := filepath.FromSlash(f.rel)
		target := filepath.Join(dest, rel)
		if err := in.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", f.rel, err)
		}
		if err := in.fs.Rename(filepath.Join(staging, rel), target); err != nil {
			return fmt.Errorf("moving %s into place: %w", f.rel, err)
		}
	}
	return nil
}

// validateEntryName rejects names that would leave the skill directory.
func validateEntryName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid entry name %q", name)
	}
	return nil
}

func report(onProgress remote.ProgressFunc, done, total int) {
	if onProgress != nil {
		onProgress(int64(done), int64(total))
	}
}
