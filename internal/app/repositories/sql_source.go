package repositories

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/pkg/feed"
)

type annotation struct {
	name string
	expr string
	args []any
}

// SQLSource is a feed.RecordSource over one table, aliased "a". Builders
// return copies so a base source can be shared between requests.
type SQLSource struct {
	tag         string
	table       string
	where       []squirrel.Sqlizer
	annotations []annotation
}

var _ feed.RecordSource = (*SQLSource)(nil)

// Type tags of the non-activity sources
const (
	CommentTag = models.ObjectTypeComment
	MessageTag = models.ObjectTypeMessage
)

// NewSQLSource creates an unfiltered source over the table of an activity kind
func NewSQLSource(kind models.ActivityType) *SQLSource {
	return &SQLSource{tag: string(kind), table: kind.Table()}
}

// NewCommentSource creates an unfiltered source over comments
func NewCommentSource() *SQLSource {
	return &SQLSource{tag: CommentTag, table: "comments"}
}

// NewMessageSource creates an unfiltered source over private messages
func NewMessageSource() *SQLSource {
	return &SQLSource{tag: MessageTag, table: "messages"}
}

// TypeTag returns the tag annotated onto every row
func (s *SQLSource) TypeTag() string { return s.tag }

// OrderFields returns the annotation names in the order they were added
func (s *SQLSource) OrderFields() []string {
	fields := make([]string, len(s.annotations))
	for i, a := range s.annotations {
		fields[i] = a.name
	}
	return fields
}

// Where returns a copy restricted by pred. Predicates refer to the table as "a".
func (s *SQLSource) Where(pred squirrel.Sqlizer) *SQLSource {
	c := s.clone()
	c.where = append(c.where, pred)
	return c
}

// Annotate returns a copy projecting expr under name and ordering by it
func (s *SQLSource) Annotate(name, expr string, args ...any) *SQLSource {
	c := s.clone()
	c.annotations = append(c.annotations, annotation{name: name, expr: expr, args: args})
	return c
}

// OrderBy annotates stored columns under their own names
func (s *SQLSource) OrderBy(columns ...string) *SQLSource {
	c := s.clone()
	for _, col := range columns {
		c.annotations = append(c.annotations, annotation{name: col, expr: "a." + col})
	}
	return c
}

func (s *SQLSource) clone() *SQLSource {
	return &SQLSource{
		tag:         s.tag,
		table:       s.table,
		where:       slices.Clone(s.where),
		annotations: slices.Clone(s.annotations),
	}
}

// projection selects id and type tag, plus the annotations when withKeys is set.
// The result uses question placeholders so several projections can be joined.
func (s *SQLSource) projection(withKeys bool) (string, []any, error) {
	query := squirrel.Select("a.id").
		Column(squirrel.Alias(squirrel.Expr("?::text", s.tag), "object_type")).
		From(s.table + " a")
	if withKeys {
		for _, an := range s.annotations {
			query = query.Column(squirrel.Alias(squirrel.Expr(an.expr, an.args...), an.name))
		}
	}
	if len(s.where) > 0 {
		query = query.Where(squirrel.And(s.where))
	}
	return query.ToSql()
}

// unionOf joins the projections of every source. UNION removes duplicate rows.
func unionOf(sources []feed.RecordSource, withKeys bool) (string, []any, error) {
	parts := make([]string, 0, len(sources))
	var args []any
	for _, src := range sources {
		s, ok := src.(*SQLSource)
		if !ok {
			return "", nil, fmt.Errorf("feed source %q is %T, not a SQL source", src.TypeTag(), src)
		}
		sql, sargs, err := s.projection(withKeys)
		if err != nil {
			return "", nil, fmt.Errorf("error building SQL: %w", err)
		}
		parts = append(parts, sql)
		args = append(args, sargs...)
	}
	return strings.Join(parts, " UNION "), args, nil
}

// pageQuery orders the merged rows and cuts one page out of them
func pageQuery(sources []feed.RecordSource, order feed.OrderSpec, offset, limit int) (string, []any, error) {
	union, args, err := unionOf(sources, true)
	if err != nil {
		return "", nil, err
	}

	dir := "DESC"
	if order.Ascending {
		dir = "ASC"
	}
	columns := append([]string{"id", "object_type"}, order.Fields...)
	orderBy := make([]string, 0, len(order.Fields)+2)
	for _, f := range order.Fields {
		orderBy = append(orderBy, fmt.Sprintf("%s %s NULLS LAST", f, dir))
	}
	orderBy = append(orderBy, "id "+dir, "object_type "+dir)

	return squirrel.Select(columns...).
		Prefix("WITH feed AS ("+union+")", args...).
		From("feed").
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

// countQuery counts the distinct identities of the merged rows
func countQuery(sources []feed.RecordSource) (string, []any, error) {
	union, args, err := unionOf(sources, false)
	if err != nil {
		return "", nil, err
	}
	return squirrel.Select("COUNT(*)").
		Prefix("WITH feed AS ("+union+")", args...).
		From("feed").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}
