package installer

import (
	"context"
	"errors"

	"github.com/vibery-studio/vibery/internal/core/catalog"
)

// ErrNotInRegistry is the failure recorded for stack references the
// catalog cannot resolve.
var ErrNotInRegistry = errors.New("not found in registry")

// Finder resolves a stack reference against the catalog.
type Finder interface {
	Find(ctx context.Context, name string, t catalog.Type) (catalog.Descriptor, error)
}

// Item is a successfully installed stack entry.
type Item struct {
	Ref    catalog.Ref
	Path   string
	Source string
}

// Failure is a stack entry that did not install.
type Failure struct {
	Ref    catalog.Ref
	Reason string
	Err    error
}

// BatchResult collects the outcome of a stack install in input order.
type BatchResult struct {
	Installed []Item
	Failed    []Failure
}

// Success reports whether every entry installed.
func (b BatchResult) Success() bool {
	return len(b.Failed) == 0
}

// Total is the number of processed entries.
func (b BatchResult) Total() int {
	return len(b.Installed) + len(b.Failed)
}

// InstallStack installs every template of a stack, one after another.
// A failing entry is recorded and the batch continues. onItem, when set,
// is called after each entry.
func (in *Installer) InstallStack(ctx context.Context, stack catalog.Stack, finder Finder, root string, onItem func(catalog.Ref, Result)) BatchResult {
	var batch BatchResult

	for _, ref := range stack.Templates {
		var res Result
		d, err := finder.Find(ctx, ref.Name, ref.Type)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				err = ErrNotInRegistry
			}
			res = Result{Err: err}
		} else {
			res = in.InstallTemplate(ctx, d, root, nil)
		}

		if res.Success {
			batch.Installed = append(batch.Installed, Item{Ref: ref, Path: res.Path, Source: res.Source})
		} else {
			batch.Failed = append(batch.Failed, Failure{Ref: ref, Reason: reason(res.Err), Err: res.Err})
		}
		if onItem != nil {
			onItem(ref, res)
		}
	}
	return batch
}

func reason(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
