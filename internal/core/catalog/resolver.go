package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vibery-studio/vibery/internal/core/tier"
)

// Tier names reported by Resolver.Source.
const (
	SourceCache   = "cache"
	SourceRemote  = "remote"
	SourceBundled = "bundled"
)

// Cache persists the last remote catalog between runs.
type Cache interface {
	// Catalog returns the cached catalog if it is still fresh.
	Catalog() (*Catalog, bool)
	SaveCatalog(c *Catalog) error
	ClearCatalog() error
}

// Remote fetches the raw catalog document.
type Remote interface {
	FetchCatalog(ctx context.Context) ([]byte, error)
}

// Bundled reads the catalog shipped with the binary.
type Bundled interface {
	ReadCatalog() ([]byte, error)
}

// Resolver loads the catalog from the first available tier and memoizes it
// for the lifetime of the resolver.
type Resolver struct {
	cache   Cache
	remote  Remote
	bundled Bundled
	offline bool
	logger  *slog.Logger

	memo   *Catalog
	source string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithOffline disables the remote tier.
func WithOffline(offline bool) ResolverOption {
	return func(r *Resolver) { r.offline = offline }
}

// WithLogger sets the logger used for tier diagnostics.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver. Any source may be nil, which disables
// that tier.
func NewResolver(cache Cache, remote Remote, bundled Bundled, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		cache:   cache,
		remote:  remote,
		bundled: bundled,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Offline reports whether the remote tier is disabled.
func (r *Resolver) Offline() bool {
	return r.offline
}

// Source returns the tier the memoized catalog came from, or "" before
// the first load.
func (r *Resolver) Source() string {
	return r.source
}

// Catalog returns the catalog, loading it on first use.
//
// Online order is cache, remote, bundled; offline order is cache, bundled.
// A remote catalog is written through to the cache; the bundled catalog
// never is.
func (r *Resolver) Catalog(ctx context.Context) (*Catalog, error) {
	if r.memo != nil {
		return r.memo, nil
	}

	c, source, err := tier.FirstWith(ctx,
		tier.Options{OnFailure: func(name string, err error) {
			r.logger.Debug("catalog tier failed", "tier", name, "error", err)
		}},
		tier.Attempt[*Catalog]{Name: SourceCache, Skip: r.cache == nil, Run: r.fromCache},
		tier.Attempt[*Catalog]{Name: SourceRemote, Skip: r.offline || r.remote == nil, Run: r.fromRemote},
		tier.Attempt[*Catalog]{Name: SourceBundled, Skip: r.bundled == nil, Run: r.fromBundled},
	)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	r.logger.Debug("catalog loaded", "source", source, "templates", c.Len())
	r.memo = c
	r.source = source
	return c, nil
}

// Refresh drops the cached and memoized catalog and loads it again.
func (r *Resolver) Refresh(ctx context.Context) (*Catalog, error) {
	if r.cache != nil {
		if err := r.cache.ClearCatalog(); err != nil {
			return nil, fmt.Errorf("clearing catalog cache: %w", err)
		}
	}
	r.memo = nil
	r.source = ""
	return r.Catalog(ctx)
}

// Find resolves a template name, optionally restricted to one type.
func (r *Resolver) Find(ctx context.Context, name string, t Type) (Descriptor, error) {
	c, err := r.Catalog(ctx)
	if err != nil {
		return Descriptor{}, err
	}
	d, ok := c.Find(name, t)
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return d, nil
}

// Search matches query against names and descriptions.
func (r *Resolver) Search(ctx context.Context, query string, t Type) ([]Descriptor, error) {
	c, err := r.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return c.Search(query, t), nil
}

// Counts returns the template count per bucket.
func (r *Resolver) Counts(ctx context.Context) ([]BucketCount, error) {
	c, err := r.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return c.Counts(), nil
}

func (r *Resolver) fromCache(context.Context) (*Catalog, error) {
	c, ok := r.cache.Catalog()
	if !ok {
		return nil, fmt.Errorf("catalog cache missing or expired")
	}
	return c, nil
}

func (r *Resolver) fromRemote(ctx context.Context) (*Catalog, error) {
	data, err := r.remote.FetchCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidatePayload(data); err != nil {
		return nil, fmt.Errorf("remote catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("remote catalog: %w", err)
	}
	if r.cache != nil {
		if err := r.cache.SaveCatalog(c); err != nil {
			r.logger.Warn("could not cache catalog", "error", err)
		}
	}
	return c, nil
}

func (r *Resolver) fromBundled(context.Context) (*Catalog, error) {
	data, err := r.bundled.ReadCatalog()
	if err != nil {
		return nil, fmt.Errorf("reading bundled catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("bundled catalog: %w", err)
	}
	return c, nil
}
