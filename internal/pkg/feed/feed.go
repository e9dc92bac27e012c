// Package feed merges several independently filtered record collections into
// one ordered, exactly counted, paginated stream and hydrates each page in
// bulk, one fetch per record type.
package feed

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrNoSources is returned when Page is called without any source
	ErrNoSources = errors.New("feed: at least one record source is required")
	// ErrOrderMismatch is returned when a source does not expose the requested ordering fields
	ErrOrderMismatch = errors.New("feed: record sources must share the ordering fields")
	// ErrUnknownTypeTag is returned when hydration meets a type tag with no registered loader
	ErrUnknownTypeTag = errors.New("feed: unknown type tag")
)

// RecordSource is one content kind's queryable collection of index rows.
// Filtering, annotation and projection are offered by the concrete backend type.
type RecordSource interface {
	// TypeTag is the literal annotated onto every projected row
	TypeTag() string
	// OrderFields names the annotated fields rows are ordered by
	OrderFields() []string
}

// OrderSpec orders the merged stream. Rows compare on Fields in turn, then on
// id, then on type tag. Descending unless Ascending is set.
type OrderSpec struct {
	Fields    []string
	Ascending bool
}

// IndexRow is the lightweight projection of one record
type IndexRow struct {
	Type string
	ID   int64
	// Keys holds the values of the ordering fields, in OrderSpec order
	Keys []any
}

// Ref returns the hydration key of the row
func (r IndexRow) Ref() Ref {
	return Ref{Type: r.Type, ID: r.ID}
}

// Ref identifies one record across types
type Ref struct {
	Type string
	ID   int64
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%d", r.Type, r.ID)
}

// Index is the storage primitive behind the aggregator. Both methods operate on
// the set-union of the sources: duplicate (type, id) pairs count once.
type Index interface {
	// Count returns the exact number of distinct rows across sources,
	// projecting nothing but identities.
	Count(ctx context.Context, sources []RecordSource) (int, error)
	// Fetch returns the ordered slice [offset, offset+limit) of the merged stream
	Fetch(ctx context.Context, sources []RecordSource, order OrderSpec, offset, limit int) ([]IndexRow, error)
}

// Item is one hydrated row of a page
type Item struct {
	Type   string
	ID     int64
	Keys   []any
	Object any
}

// PageRequest selects a page. ExactCount, when set, replaces the count query.
type PageRequest struct {
	Number     int
	Size       int
	ExactCount *int
}

// Page is a hydrated slice of the merged stream. Items may be shorter than
// Size when records disappeared between the index fetch and hydration.
type Page struct {
	Items      []Item
	Number     int
	Size       int
	TotalCount int
	HasNext    bool
	HasPrev    bool
}

// TotalPages returns the number of pages implied by TotalCount
func (p *Page) TotalPages() int {
	if p.Size <= 0 || p.TotalCount == 0 {
		return 1
	}
	return (p.TotalCount + p.Size - 1) / p.Size
}

func checkSources(sources []RecordSource, order OrderSpec) error {
	if len(sources) == 0 {
		return ErrNoSources
	}
	if len(order.Fields) == 0 {
		return fmt.Errorf("%w: no ordering fields given", ErrOrderMismatch)
	}
	for _, src := range sources {
		if !slices.Equal(src.OrderFields(), order.Fields) {
			return fmt.Errorf("%w: source %q orders by %v, want %v",
				ErrOrderMismatch, src.TypeTag(), src.OrderFields(), order.Fields)
		}
	}
	return nil
}
