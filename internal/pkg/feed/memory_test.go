package feed

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"
)

// MemoryRecord is a record held by a MemorySource
type MemoryRecord struct {
	ID     int64
	Fields map[string]any
}

// MemorySource is an in-process RecordSource over a fixed record set
type MemorySource struct {
	tag         string
	records     []MemoryRecord
	filters     []func(MemoryRecord) bool
	annotations map[string]func(MemoryRecord) any
	orderFields []string
}

// NewMemorySource creates a source of the given type over records
func NewMemorySource(typeTag string, records ...MemoryRecord) *MemorySource {
	return &MemorySource{
		tag:         typeTag,
		records:     records,
		annotations: make(map[string]func(MemoryRecord) any),
	}
}

func (s *MemorySource) TypeTag() string       { return s.tag }
func (s *MemorySource) OrderFields() []string { return s.orderFields }

// Filter returns a copy of the source restricted to records matching pred
func (s *MemorySource) Filter(pred func(MemoryRecord) bool) *MemorySource {
	c := s.clone()
	c.filters = append(c.filters, pred)
	return c
}

// Annotate returns a copy of the source ordered additionally by a computed field
func (s *MemorySource) Annotate(name string, fn func(MemoryRecord) any) *MemorySource {
	c := s.clone()
	c.annotations[name] = fn
	c.orderFields = append(c.orderFields, name)
	return c
}

// OrderBy returns a copy ordered by stored fields, read from Fields
func (s *MemorySource) OrderBy(fields ...string) *MemorySource {
	c := s.clone()
	for _, field := range fields {
		field := field
		c.annotations[field] = func(r MemoryRecord) any { return r.Fields[field] }
		c.orderFields = append(c.orderFields, field)
	}
	return c
}

func (s *MemorySource) clone() *MemorySource {
	c := &MemorySource{
		tag:         s.tag,
		records:     s.records,
		filters:     slices.Clone(s.filters),
		annotations: make(map[string]func(MemoryRecord) any, len(s.annotations)),
		orderFields: slices.Clone(s.orderFields),
	}
	for k, v := range s.annotations {
		c.annotations[k] = v
	}
	return c
}

func (s *MemorySource) project() []IndexRow {
	var rows []IndexRow
outer:
	for _, rec := range s.records {
		for _, keep := range s.filters {
			if !keep(rec) {
				continue outer
			}
		}
		keys := make([]any, len(s.orderFields))
		for i, field := range s.orderFields {
			keys[i] = s.annotations[field](rec)
		}
		rows = append(rows, IndexRow{Type: s.tag, ID: rec.ID, Keys: keys})
	}
	return rows
}

// MemoryIndex implements Index over MemorySource values
type MemoryIndex struct{}

func (MemoryIndex) Count(_ context.Context, sources []RecordSource) (int, error) {
	rows, err := union(sources)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (MemoryIndex) Fetch(_ context.Context, sources []RecordSource, order OrderSpec, offset, limit int) ([]IndexRow, error) {
	rows, err := union(sources)
	if err != nil {
		return nil, err
	}
	var sortErr error
	slices.SortStableFunc(rows, func(a, b IndexRow) int {
		c, err := CompareRows(a, b, order)
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c
	})
	if sortErr != nil {
		return nil, sortErr
	}
	if offset >= len(rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func union(sources []RecordSource) ([]IndexRow, error) {
	seen := make(map[Ref]struct{})
	var rows []IndexRow
	for _, src := range sources {
		ms, ok := src.(*MemorySource)
		if !ok {
			return nil, fmt.Errorf("memory index cannot read source %T", src)
		}
		for _, row := range ms.project() {
			if _, dup := seen[row.Ref()]; dup {
				continue
			}
			seen[row.Ref()] = struct{}{}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// CompareRows orders two rows by their keys, then id, then type tag, all in
// the direction of order.
func CompareRows(a, b IndexRow, order OrderSpec) (int, error) {
	c, err := compareRowsAsc(a, b)
	if err != nil {
		return 0, err
	}
	if order.Ascending {
		return c, nil
	}
	return -c, nil
}

func compareRowsAsc(a, b IndexRow) (int, error) {
	if len(a.Keys) != len(b.Keys) {
		return 0, fmt.Errorf("%w: %d keys vs %d", ErrOrderMismatch, len(a.Keys), len(b.Keys))
	}
	for i := range a.Keys {
		c, err := compareValues(a.Keys[i], b.Keys[i])
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c, nil
		}
	}
	switch {
	case a.ID < b.ID:
		return -1, nil
	case a.ID > b.ID:
		return 1, nil
	}
	switch {
	case a.Type < b.Type:
		return -1, nil
	case a.Type > b.Type:
		return 1, nil
	}
	return 0, nil
}

// compareValues compares two ordering values of the same kind. Nil sorts first.
func compareValues(a, b any) (int, error) {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, nil
		case a == nil:
			return -1, nil
		default:
			return 1, nil
		}
	}
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			break
		}
		return av.Compare(bv), nil
	case int64:
		bv, ok := b.(int64)
		if !ok {
			break
		}
		return cmp.Compare(av, bv), nil
	case int:
		bv, ok := b.(int)
		if !ok {
			break
		}
		return cmp.Compare(av, bv), nil
	case float64:
		bv, ok := b.(float64)
		if !ok {
			break
		}
		return cmp.Compare(av, bv), nil
	case float32:
		bv, ok := b.(float32)
		if !ok {
			break
		}
		return cmp.Compare(av, bv), nil
	case string:
		bv, ok := b.(string)
		if !ok {
			break
		}
		return cmp.Compare(av, bv), nil
	default:
		return 0, fmt.Errorf("%w: unsupported key type %T", ErrOrderMismatch, a)
	}
	return 0, fmt.Errorf("%w: cannot compare %T with %T", ErrOrderMismatch, a, b)
}
