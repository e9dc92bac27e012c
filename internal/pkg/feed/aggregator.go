package feed

import (
	"context"
	"fmt"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Aggregator pages through the union of several record sources
type Aggregator struct {
	index    Index
	hydrator *Hydrator
}

// NewAggregator creates an Aggregator over the given storage index and hydrator
func NewAggregator(index Index, hydrator *Hydrator) *Aggregator {
	return &Aggregator{index: index, hydrator: hydrator}
}

// Page returns one hydrated page of the merged stream.
//
// The total is taken from req.ExactCount when supplied, otherwise from a
// separate identity-only count over the same union. The count and the page
// come from two round trips and may disagree under concurrent writes.
func (a *Aggregator) Page(ctx context.Context, sources []RecordSource, order OrderSpec, req PageRequest) (*Page, error) {
	if err := checkSources(sources, order); err != nil {
		return nil, err
	}

	number, size := normalize(req.Number, req.Size)

	var total int
	if req.ExactCount != nil {
		total = *req.ExactCount
	} else {
		count, err := a.index.Count(ctx, sources)
		if err != nil {
			return nil, fmt.Errorf("error counting feed: %w", err)
		}
		total = count
	}

	offset := (number - 1) * size
	page := &Page{
		Items:      []Item{},
		Number:     number,
		Size:       size,
		TotalCount: total,
		HasPrev:    number > 1,
		HasNext:    offset+size < total,
	}
	if offset >= total {
		return page, nil
	}

	rows, err := a.index.Fetch(ctx, sources, order, offset, size)
	if err != nil {
		return nil, fmt.Errorf("error fetching feed page: %w", err)
	}
	if len(rows) == 0 {
		return page, nil
	}

	refs := make([]Ref, len(rows))
	for i, row := range rows {
		refs[i] = row.Ref()
	}
	objects, err := a.hydrator.Hydrate(ctx, refs)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		obj, ok := objects[row.Ref()]
		if !ok {
			// deleted after the index fetch
			continue
		}
		page.Items = append(page.Items, Item{
			Type:   row.Type,
			ID:     row.ID,
			Keys:   row.Keys,
			Object: obj,
		})
	}
	return page, nil
}

func normalize(number, size int) (int, int) {
	if number < 1 {
		number = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return number, size
}
