package repositories

import (
	"reflect"
	"strings"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/pkg/feed"
)

func communitySources(communityID int64) []feed.RecordSource {
	inCommunity := squirrel.Eq{"a.community_id": communityID}
	return []feed.RecordSource{
		NewSQLSource(models.ActivityTypePost).Where(inCommunity).OrderBy("published_at"),
		NewSQLSource(models.ActivityTypeEvent).Where(inCommunity).OrderBy("published_at"),
	}
}

func TestPageQueryUnionsSources(t *testing.T) {
	sql, args, err := pageQuery(communitySources(7), feed.OrderSpec{Fields: []string{"published_at"}}, 20, 10)
	if err != nil {
		t.Fatalf("pageQuery: %v", err)
	}

	want := "WITH feed AS (" +
		"SELECT a.id, ($1::text) AS object_type, (a.published_at) AS published_at FROM posts a WHERE (a.community_id = $2)" +
		" UNION " +
		"SELECT a.id, ($3::text) AS object_type, (a.published_at) AS published_at FROM events a WHERE (a.community_id = $4)" +
		") SELECT id, object_type, published_at FROM feed" +
		" ORDER BY published_at DESC NULLS LAST, id DESC, object_type DESC LIMIT 10 OFFSET 20"
	if sql != want {
		t.Errorf("unexpected SQL:\n got %s\nwant %s", sql, want)
	}

	wantArgs := []any{"post", int64(7), "event", int64(7)}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}
}

func TestPageQueryAscending(t *testing.T) {
	sql, _, err := pageQuery(communitySources(1), feed.OrderSpec{Fields: []string{"published_at"}, Ascending: true}, 0, 5)
	if err != nil {
		t.Fatalf("pageQuery: %v", err)
	}
	if !strings.Contains(sql, "ORDER BY published_at ASC NULLS LAST, id ASC, object_type ASC LIMIT 5 OFFSET 0") {
		t.Errorf("ascending order not applied: %s", sql)
	}
}

func TestCountQueryProjectsIdentitiesOnly(t *testing.T) {
	sql, args, err := countQuery(communitySources(7))
	if err != nil {
		t.Fatalf("countQuery: %v", err)
	}

	want := "WITH feed AS (" +
		"SELECT a.id, ($1::text) AS object_type FROM posts a WHERE (a.community_id = $2)" +
		" UNION " +
		"SELECT a.id, ($3::text) AS object_type FROM events a WHERE (a.community_id = $4)" +
		") SELECT COUNT(*) FROM feed"
	if sql != want {
		t.Errorf("unexpected SQL:\n got %s\nwant %s", sql, want)
	}
	if len(args) != 4 {
		t.Errorf("got %d args, want 4", len(args))
	}
}

func TestAnnotationArgsFollowProjection(t *testing.T) {
	src := NewSQLSource(models.ActivityTypePhoto).
		Where(squirrel.Expr("a.search_document @@ plainto_tsquery('simple', ?)", "cats")).
		Annotate("rank", "ts_rank(a.search_document, plainto_tsquery('simple', ?))", "cats").
		OrderBy("published_at")

	if got := src.OrderFields(); !reflect.DeepEqual(got, []string{"rank", "published_at"}) {
		t.Fatalf("OrderFields = %v", got)
	}

	_, args, err := pageQuery([]feed.RecordSource{src}, feed.OrderSpec{Fields: src.OrderFields()}, 0, 10)
	if err != nil {
		t.Fatalf("pageQuery: %v", err)
	}
	wantArgs := []any{"photo", "cats", "cats"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}
}

func TestSourceBuildersCopy(t *testing.T) {
	base := NewSQLSource(models.ActivityTypePost).OrderBy("published_at")
	filtered := base.Where(squirrel.Eq{"a.owner_id": int64(3)})

	baseSQL, _, err := base.projection(true)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(baseSQL, "owner_id") {
		t.Errorf("filtering a copy changed the base source: %s", baseSQL)
	}
	filteredSQL, _, err := filtered.projection(true)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(filteredSQL, "WHERE (a.owner_id = ?)") {
		t.Errorf("filter missing: %s", filteredSQL)
	}
}

type foreignSource struct{}

func (foreignSource) TypeTag() string       { return "post" }
func (foreignSource) OrderFields() []string { return []string{"published_at"} }

func TestUnionRejectsForeignSources(t *testing.T) {
	var foreign feed.RecordSource = foreignSource{}
	if _, _, err := countQuery([]feed.RecordSource{foreign}); err == nil {
		t.Fatal("expected an error for a non-SQL source")
	}
}

func TestCommentAndMessageSourcesShareOrderWithActivities(t *testing.T) {
	sources := []feed.RecordSource{
		NewSQLSource(models.ActivityTypePost).Where(squirrel.Eq{"a.owner_id": int64(4)}).OrderBy("published_at"),
		NewCommentSource().Where(squirrel.Eq{"a.owner_id": int64(4)}).Annotate("published_at", "a.created_at"),
	}
	sql, args, err := pageQuery(sources, feed.OrderSpec{Fields: []string{"published_at"}}, 0, 10)
	if err != nil {
		t.Fatalf("pageQuery: %v", err)
	}

	want := "WITH feed AS (" +
		"SELECT a.id, ($1::text) AS object_type, (a.published_at) AS published_at FROM posts a WHERE (a.owner_id = $2)" +
		" UNION " +
		"SELECT a.id, ($3::text) AS object_type, (a.created_at) AS published_at FROM comments a WHERE (a.owner_id = $4)" +
		") SELECT id, object_type, published_at FROM feed" +
		" ORDER BY published_at DESC NULLS LAST, id DESC, object_type DESC LIMIT 10 OFFSET 0"
	if sql != want {
		t.Errorf("unexpected SQL:\n got %s\nwant %s", sql, want)
	}
	if wantArgs := []any{"post", int64(4), "comment", int64(4)}; !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}

	messages, _, err := NewMessageSource().OrderBy("created_at").projection(true)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(messages, "FROM messages a") || NewMessageSource().TypeTag() != MessageTag {
		t.Errorf("message source projects %s", messages)
	}
}
