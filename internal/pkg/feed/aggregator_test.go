package feed

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time { return base.Add(time.Duration(minutes) * time.Minute) }

func records(tb testing.TB, created map[int64]int, community int64) []MemoryRecord {
	tb.Helper()
	out := make([]MemoryRecord, 0, len(created))
	for id, minute := range created {
		out = append(out, MemoryRecord{ID: id, Fields: map[string]any{
			"created":   at(minute),
			"community": community,
		}})
	}
	return out
}

// countingIndex records how often each primitive is used
type countingIndex struct {
	MemoryIndex
	counts  int
	fetches int
}

func (c *countingIndex) Count(ctx context.Context, sources []RecordSource) (int, error) {
	c.counts++
	return c.MemoryIndex.Count(ctx, sources)
}

func (c *countingIndex) Fetch(ctx context.Context, sources []RecordSource, order OrderSpec, offset, limit int) ([]IndexRow, error) {
	c.fetches++
	return c.MemoryIndex.Fetch(ctx, sources, order, offset, limit)
}

type loaderSpy struct {
	mu      sync.Mutex
	calls   map[string]int
	missing map[Ref]bool
}

func (s *loaderSpy) loader(typeTag string) Loader {
	return func(_ context.Context, ids []int64) (map[int64]any, error) {
		s.mu.Lock()
		s.calls[typeTag]++
		s.mu.Unlock()
		out := make(map[int64]any, len(ids))
		for _, id := range ids {
			if s.missing[Ref{Type: typeTag, ID: id}] {
				continue
			}
			out[id] = typeTag + "-object"
		}
		return out, nil
	}
}

func newFixture(t *testing.T) (*Aggregator, *countingIndex, *loaderSpy, []RecordSource) {
	t.Helper()
	posts := NewMemorySource("post", records(t, map[int64]int{1: 10, 2: 20, 3: 30, 9: 1}, 1)...)
	events := NewMemorySource("event", records(t, map[int64]int{1: 15, 2: 25}, 1)...)
	photos := NewMemorySource("photo", records(t, map[int64]int{4: 5, 5: 35, 6: 30}, 1)...)
	other := NewMemorySource("post", records(t, map[int64]int{100: 50}, 2)...)

	inCommunity := func(r MemoryRecord) bool { return r.Fields["community"] == int64(1) }
	var sources []RecordSource
	for _, src := range []*MemorySource{posts, events, photos, other} {
		sources = append(sources, src.Filter(inCommunity).OrderBy("created"))
	}

	spy := &loaderSpy{calls: map[string]int{}, missing: map[Ref]bool{}}
	hydrator := NewHydrator().
		Register("post", spy.loader("post")).
		Register("event", spy.loader("event")).
		Register("photo", spy.loader("photo"))
	index := &countingIndex{}
	return NewAggregator(index, hydrator), index, spy, sources
}

func refsOf(page *Page) []Ref {
	out := make([]Ref, len(page.Items))
	for i, item := range page.Items {
		out[i] = Ref{Type: item.Type, ID: item.ID}
	}
	return out
}

func TestPageOrdersMergedSourcesDescending(t *testing.T) {
	agg, _, _, sources := newFixture(t)
	page, err := agg.Page(context.Background(), sources, OrderSpec{Fields: []string{"created"}}, PageRequest{Number: 1, Size: 5})
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}

	// photo:6 and post:3 share a timestamp; higher id first
	want := []Ref{{"photo", 5}, {"photo", 6}, {"post", 3}, {"event", 2}, {"post", 2}}
	if got := refsOf(page); !reflect.DeepEqual(got, want) {
		t.Fatalf("page order = %v, want %v", got, want)
	}
	if !page.HasNext || page.HasPrev {
		t.Fatalf("HasNext=%v HasPrev=%v, want true/false", page.HasNext, page.HasPrev)
	}
}

func TestPageExactCountAcrossSources(t *testing.T) {
	agg, index, _, sources := newFixture(t)
	page, err := agg.Page(context.Background(), sources, OrderSpec{Fields: []string{"created"}}, PageRequest{Number: 2, Size: 4})
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	// 4 posts + 2 events + 3 photos in community 1
	if page.TotalCount != 9 {
		t.Fatalf("TotalCount = %d, want 9", page.TotalCount)
	}
	if page.TotalPages() != 3 {
		t.Fatalf("TotalPages = %d, want 3", page.TotalPages())
	}
	if index.counts != 1 || index.fetches != 1 {
		t.Fatalf("count/fetch calls = %d/%d, want 1/1", index.counts, index.fetches)
	}
	if !page.HasPrev || !page.HasNext {
		t.Fatalf("HasPrev=%v HasNext=%v on middle page", page.HasPrev, page.HasNext)
	}
}

func TestPageUsesSuppliedCount(t *testing.T) {
	agg, index, _, sources := newFixture(t)
	exact := 9
	page, err := agg.Page(context.Background(), sources, OrderSpec{Fields: []string{"created"}}, PageRequest{Number: 1, Size: 20, ExactCount: &exact})
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	if index.counts != 0 {
		t.Fatalf("count query ran %d times with a supplied count", index.counts)
	}
	if len(page.Items) != 9 || page.HasNext {
		t.Fatalf("items=%d HasNext=%v", len(page.Items), page.HasNext)
	}
}

func TestPageIsDeterministic(t *testing.T) {
	agg, _, _, sources := newFixture(t)
	order := OrderSpec{Fields: []string{"created"}}
	first, err := agg.Page(context.Background(), sources, order, PageRequest{Number: 1, Size: 9})
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := agg.Page(context.Background(), sources, order, PageRequest{Number: 1, Size: 9})
		if err != nil {
			t.Fatalf("Page returned error: %v", err)
		}
		if !reflect.DeepEqual(refsOf(first), refsOf(again)) {
			t.Fatalf("run %d differs: %v vs %v", i, refsOf(first), refsOf(again))
		}
	}
}

func TestPageAscending(t *testing.T) {
	agg, _, _, sources := newFixture(t)
	page, err := agg.Page(context.Background(), sources, OrderSpec{Fields: []string{"created"}, Ascending: true}, PageRequest{Number: 1, Size: 3})
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	want := []Ref{{"post", 9}, {"photo", 4}, {"post", 1}}
	if got := refsOf(page); !reflect.DeepEqual(got, want) {
		t.Fatalf("ascending order = %v, want %v", got, want)
	}
}

func TestPageHydratesOncePerType(t *testing.T) {
	agg, _, spy, sources := newFixture(t)
	page, err := agg.Page(context.Background(), sources, OrderSpec{Fields: []string{"created"}}, PageRequest{Number: 1, Size: 9})
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	for _, tag := range []string{"post", "event", "photo"} {
		if spy.calls[tag] != 1 {
			t.Errorf("loader %q called %d times, want 1", tag, spy.calls[tag])
		}
	}
	for _, item := range page.Items {
		if item.Object == nil {
			t.Fatalf("item %s:%d not hydrated", item.Type, item.ID)
		}
		if item.Object != item.Type+"-object" {
			t.Fatalf("item %s:%d hydrated with %v", item.Type, item.ID, item.Object)
		}
	}
}

func TestPageSkipsRowsDeletedBeforeHydration(t *testing.T) {
	agg, _, spy, sources := newFixture(t)
	spy.missing[Ref{Type: "photo", ID: 6}] = true

	page, err := agg.Page(context.Background(), sources, OrderSpec{Fields: []string{"created"}}, PageRequest{Number: 1, Size: 5})
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	want := []Ref{{"photo", 5}, {"post", 3}, {"event", 2}, {"post", 2}}
	if got := refsOf(page); !reflect.DeepEqual(got, want) {
		t.Fatalf("page = %v, want %v", got, want)
	}
	if page.TotalCount != 9 {
		t.Fatalf("TotalCount = %d, want 9", page.TotalCount)
	}
}

func TestPageUnionCollapsesDuplicates(t *testing.T) {
	posts := NewMemorySource("post", records(t, map[int64]int{1: 1, 2: 2}, 1)...).OrderBy("created")
	agg := NewAggregator(MemoryIndex{}, NewHydrator().Register("post", (&loaderSpy{calls: map[string]int{}}).loader("post")))

	page, err := agg.Page(context.Background(), []RecordSource{posts, posts}, OrderSpec{Fields: []string{"created"}}, PageRequest{Number: 1, Size: 10})
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	if page.TotalCount != 2 || len(page.Items) != 2 {
		t.Fatalf("TotalCount=%d items=%d, want 2/2", page.TotalCount, len(page.Items))
	}
}

func TestPagePastTheEnd(t *testing.T) {
	agg, index, _, sources := newFixture(t)
	page, err := agg.Page(context.Background(), sources, OrderSpec{Fields: []string{"created"}}, PageRequest{Number: 7, Size: 5})
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	if len(page.Items) != 0 || page.HasNext || !page.HasPrev {
		t.Fatalf("items=%d HasNext=%v HasPrev=%v", len(page.Items), page.HasNext, page.HasPrev)
	}
	if index.fetches != 0 {
		t.Fatalf("fetch ran for a page past the end")
	}
}

func TestPagePreconditions(t *testing.T) {
	agg, _, _, sources := newFixture(t)
	ctx := context.Background()

	if _, err := agg.Page(ctx, nil, OrderSpec{Fields: []string{"created"}}, PageRequest{}); !errors.Is(err, ErrNoSources) {
		t.Fatalf("empty sources: err = %v, want ErrNoSources", err)
	}

	mismatched := append([]RecordSource{}, sources...)
	mismatched = append(mismatched, NewMemorySource("poll").OrderBy("published"))
	if _, err := agg.Page(ctx, mismatched, OrderSpec{Fields: []string{"created"}}, PageRequest{}); !errors.Is(err, ErrOrderMismatch) {
		t.Fatalf("mismatched order: err = %v, want ErrOrderMismatch", err)
	}
}

func TestHydrateUnknownTypeTag(t *testing.T) {
	h := NewHydrator().Register("post", func(context.Context, []int64) (map[int64]any, error) {
		t.Fatal("loader must not run when a tag is unknown")
		return nil, nil
	})
	_, err := h.Hydrate(context.Background(), []Ref{{"post", 1}, {"comment", 2}})
	if !errors.Is(err, ErrUnknownTypeTag) {
		t.Fatalf("err = %v, want ErrUnknownTypeTag", err)
	}
}

func TestHydrateLoaderFailure(t *testing.T) {
	boom := errors.New("boom")
	h := NewHydrator().Register("post", func(context.Context, []int64) (map[int64]any, error) {
		return nil, boom
	})
	if _, err := h.Hydrate(context.Background(), []Ref{{"post", 1}}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped loader error", err)
	}
}
