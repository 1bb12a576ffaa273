package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vibery-studio/vibery/internal/core"
	"github.com/vibery-studio/vibery/internal/core/bundle"
	"github.com/vibery-studio/vibery/internal/core/cache"
	"github.com/vibery-studio/vibery/internal/core/catalog"
	"github.com/vibery-studio/vibery/internal/core/installer"
	"github.com/vibery-studio/vibery/internal/core/kit"
	"github.com/vibery-studio/vibery/internal/core/remote"
	"github.com/vibery-studio/vibery/internal/ui"
)

// deps holds the services of one command invocation.
type deps struct {
	config    *core.Config
	cache     *cache.Store
	remote    *remote.Client
	bundle    *bundle.Source
	resolver  *catalog.Resolver
	installer *installer.Installer
	printer   *ui.Printer
	logger    *slog.Logger
	offline   bool
	refresh   bool
}

// newDeps loads the configuration and wires the services. Called lazily by
// commands that need them.
func newDeps(cmd *cobra.Command) (*deps, error) {
	cm, err := core.NewConfigManager()
	if err != nil {
		return nil, fmt.Errorf("initializing config: %w", err)
	}
	cfg, err := cm.Load()
	if err != nil {
		return nil, err
	}

	offline, _ := cmd.Flags().GetBool("offline")
	offline = offline || cfg.Offline
	// Only install and show define --refresh.
	refresh, _ := cmd.Flags().GetBool("refresh")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store := cache.New(cfg.CacheDir, cache.WithTTL(cfg.CacheTTL))
	client := remote.New(
		remote.Repo{Owner: cfg.RepoOwner, Name: cfg.RepoName, Branch: cfg.Branch},
		remote.WithBaseURL(cfg.BaseURL),
		remote.WithAPIURL(cfg.APIURL),
		remote.WithToken(cfg.GitHubToken),
		remote.WithUserAgent("vibery/"+Version),
	)

	src := bundle.Embedded()
	if cfg.TemplatesDir != "" {
		src = bundle.FromDir(cfg.TemplatesDir)
	}

	resolver := catalog.NewResolver(store, client, src,
		catalog.WithOffline(offline),
		catalog.WithLogger(logger),
	)
	inst := installer.New(client, src,
		installer.WithArchives(store),
		installer.WithOffline(offline),
		installer.WithRefresh(refresh),
		installer.WithLogger(logger),
	)

	logger.Debug("configuration loaded",
		"repo", cfg.RepoOwner+"/"+cfg.RepoName,
		"branch", cfg.Branch,
		"cache", cfg.CacheDir,
		"bundle", src.Label(),
		"offline", offline,
	)

	return &deps{
		config:    cfg,
		cache:     store,
		remote:    client,
		bundle:    src,
		resolver:  resolver,
		installer: inst,
		printer:   ui.NewPrinter(os.Stdout),
		logger:    logger,
		offline:   offline,
		refresh:   refresh,
	}, nil
}

// catalog loads the catalog, dropping the cached copy first on --refresh.
func (d *deps) catalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	if d.refresh {
		return d.resolver.Refresh(cmd.Context())
	}
	return d.resolver.Catalog(cmd.Context())
}

// stacks returns the stacks shipped with the bundle.
func (d *deps) stacks() ([]catalog.Stack, error) {
	data, err := d.bundle.ReadStacks()
	if err != nil {
		return nil, fmt.Errorf("reading stacks: %w", err)
	}
	return catalog.LoadStacks(data)
}

// kitRunner creates the runner for the external kit installer. A bundle on
// disk contributes <dir>/scripts/install.py as a candidate.
func (d *deps) kitRunner(workDir string) *kit.Runner {
	opts := []kit.Option{kit.WithWorkDir(workDir)}
	if d.config.KitInstaller != "" {
		opts = append(opts, kit.WithInstaller(d.config.KitInstaller))
	}
	if d.config.TemplatesDir != "" {
		opts = append(opts, kit.WithTemplatesDir(filepath.Join(d.config.TemplatesDir, "templates")))
	}
	return kit.NewRunner(opts...)
}
