package feed

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Loader bulk-fetches records of one type. Ids with no record are simply
// absent from the returned map.
type Loader func(ctx context.Context, ids []int64) (map[int64]any, error)

// Hydrator turns index rows into full objects, one bulk fetch per type tag
type Hydrator struct {
	loaders map[string]Loader
}

// NewHydrator creates an empty Hydrator
func NewHydrator() *Hydrator {
	return &Hydrator{loaders: make(map[string]Loader)}
}

// Register installs the loader for a type tag, replacing any previous one
func (h *Hydrator) Register(typeTag string, loader Loader) *Hydrator {
	h.loaders[typeTag] = loader
	return h
}

// Hydrate groups refs by type and runs each type's loader once. All type tags
// are checked before any loader runs.
func (h *Hydrator) Hydrate(ctx context.Context, refs []Ref) (map[Ref]any, error) {
	groups := make(map[string][]int64)
	var order []string
	for _, ref := range refs {
		if _, ok := h.loaders[ref.Type]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTypeTag, ref.Type)
		}
		if _, seen := groups[ref.Type]; !seen {
			order = append(order, ref.Type)
		}
		groups[ref.Type] = append(groups[ref.Type], ref.ID)
	}

	result := make(map[Ref]any, len(refs))
	if len(groups) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, typeTag := range order {
		typeTag, ids := typeTag, groups[typeTag]
		loader := h.loaders[typeTag]
		g.Go(func() error {
			objects, err := loader(gctx, ids)
			if err != nil {
				return fmt.Errorf("error hydrating %s records: %w", typeTag, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for id, obj := range objects {
				if obj == nil {
					continue
				}
				result[Ref{Type: typeTag, ID: id}] = obj
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
