// Package installer materializes catalog templates into a project tree:
// single files under .claude/<plural>/, MCP servers merged into .mcp.json
// and skill directories under .claude/skills/<name>/.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/vibery-studio/vibery/internal/core/bundle"
	"github.com/vibery-studio/vibery/internal/core/catalog"
	"github.com/vibery-studio/vibery/internal/core/remote"
	"github.com/vibery-studio/vibery/internal/core/tier"
)

// Sources reported in Result.Source.
const (
	SourceCache   = "cache"
	SourceRemote  = "remote"
	SourceBundled = "bundled"
)

const (
	claudeDir     = ".claude"
	mcpConfigFile = ".mcp.json"

	// DefaultMaxDepth bounds directory recursion when listing a skill.
	DefaultMaxDepth = 8
)

// ErrNotInBundle is returned when the last tier has no copy of a template.
var ErrNotInBundle = bundle.ErrNotInBundle

// Remote is the subset of the remote client the installer needs.
type Remote interface {
	TemplateURL(t catalog.Type, name string) string
	ManifestURL() string
	SkillFileURL(skill, rel string) string
	ContentsURL(skill string) string
	FetchText(ctx context.Context, url string) ([]byte, error)
	FetchBinary(ctx context.Context, url string, onProgress remote.ProgressFunc) ([]byte, error)
	ListDirectory(ctx context.Context, url string) ([]remote.Entry, error)
}

// ArchiveCache stores packed skill trees between runs.
type ArchiveCache interface {
	HasArchive(t catalog.Type, name string) bool
	OpenArchive(t catalog.Type, name string) ([]byte, error)
	SaveArchive(t catalog.Type, name string, data []byte) (string, error)
}

// Result is the outcome of installing one template.
type Result struct {
	Success bool
	Path    string
	Source  string
	Err     error
}

// Installer resolves template content through remote, bundled and cached
// tiers and writes it below a project root.
type Installer struct {
	remote   Remote
	bundled  *bundle.Source
	archives ArchiveCache
	fs       afero.Fs
	offline  bool
	refresh  bool
	maxDepth int
	logger   *slog.Logger

	manifest       Manifest
	manifestErr    error
	manifestLoaded bool
}

// Option configures an Installer.
type Option func(*Installer)

// WithFs sets the filesystem templates are written to.
func WithFs(fs afero.Fs) Option {
	return func(in *Installer) { in.fs = fs }
}

// WithOffline disables every remote tier.
func WithOffline(offline bool) Option {
	return func(in *Installer) { in.offline = offline }
}

// WithRefresh bypasses the skill archive cache.
func WithRefresh(refresh bool) Option {
	return func(in *Installer) { in.refresh = refresh }
}

// WithArchives enables the skill archive cache.
func WithArchives(c ArchiveCache) Option {
	return func(in *Installer) { in.archives = c }
}

// WithMaxDepth overrides the listing recursion bound.
func WithMaxDepth(depth int) Option {
	return func(in *Installer) { in.maxDepth = depth }
}

// WithLogger sets the logger used for tier diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(in *Installer) { in.logger = l }
}

// New creates an installer. rem may be nil when running offline.
func New(rem Remote, bundled *bundle.Source, opts ...Option) *Installer {
	in := &Installer{
		remote:   rem,
		bundled:  bundled,
		fs:       afero.NewOsFs(),
		maxDepth: DefaultMaxDepth,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// TargetPath is where a template lands below root.
func TargetPath(root string, d catalog.Descriptor) string {
	typeDir := filepath.Join(root, claudeDir, d.Type.Plural())
	if d.Type == catalog.TypeSkill {
		return filepath.Join(typeDir, d.CleanName())
	}
	return filepath.Join(typeDir, d.FileName())
}

// MCPConfigPath is the project MCP configuration file below root.
func MCPConfigPath(root string) string {
	return filepath.Join(root, mcpConfigFile)
}

// InstallTemplate dispatches on the descriptor type: MCP servers are
// merged, skills are fetched as directories, everything else is a file.
func (in *Installer) InstallTemplate(ctx context.Context, d catalog.Descriptor, root string, onProgress remote.ProgressFunc) Result {
	switch d.Type {
	case catalog.TypeMCP:
		return in.InstallMCP(ctx, d, root)
	case catalog.TypeSkill:
		return in.InstallDirectory(ctx, d, root, onProgress)
	default:
		return in.Install(ctx, d, root, onProgress)
	}
}

// Install writes a single-file template to .claude/<plural>/, replacing
// any existing file.
func (in *Installer) Install(ctx context.Context, d catalog.Descriptor, root string, onProgress remote.ProgressFunc) Result {
	if d.Type == catalog.TypeSkill {
		return Result{Err: fmt.Errorf("%s is a skill directory, not a single file", d.Name)}
	}

	content, source, err := in.Read(ctx, d)
	if err != nil {
		return Result{Err: err}
	}

	target := TargetPath(root, d)
	if err := writeFileAtomic(in.fs, target, content, 0o644); err != nil {
		return Result{Source: source, Err: fmt.Errorf("writing %s: %w", target, err)}
	}
	if onProgress != nil {
		onProgress(1, 1)
	}
	return Result{Success: true, Path: target, Source: source}
}

// Read resolves template content without writing it. For skills it returns
// the skill's SKILL.md.
func (in *Installer) Read(ctx context.Context, d catalog.Descriptor) ([]byte, string, error) {
	remoteURL := func() string {
		if d.Type == catalog.TypeSkill {
			return in.remote.SkillFileURL(d.CleanName(), skillEntryFile)
		}
		return in.remote.TemplateURL(d.Type, d.Name)
	}

	return tier.FirstWith(ctx, in.tierOptions(d),
		tier.Attempt[[]byte]{
			Name: SourceRemote,
			Skip: in.remoteDisabled(),
			Run: func(ctx context.Context) ([]byte, error) {
				return in.remote.FetchText(ctx, remoteURL())
			},
		},
		tier.Attempt[[]byte]{
			Name: SourceBundled,
			Skip: in.bundled == nil,
			Run: func(context.Context) ([]byte, error) {
				if d.Type == catalog.TypeSkill {
					return in.readBundledSkillEntry(d)
				}
				return in.bundled.ReadTemplate(d)
			},
		},
	)
}

func (in *Installer) remoteDisabled() bool {
	return in.offline || in.remote == nil
}

func (in *Installer) tierOptions(d catalog.Descriptor) tier.Options {
	return tier.Options{
		Terminal: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
		OnFailure: func(name string, err error) {
			in.logger.Debug("tier failed", "template", d.Name, "type", string(d.Type), "tier", name, "err", err)
		},
	}
}

// writeFileAtomic writes to a temp file then renames it into place.
// Parent directories are created as needed.
func writeFileAtomic(fsys afero.Fs, path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpPath := path + ".tmp"
	if err := afero.WriteFile(fsys, tmpPath, data, perm); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := fsys.Rename(tmpPath, path); err != nil {
		_ = fsys.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
