package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
	"github.com/yigit/communityhub/internal/pkg/dberrors"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// searchDocumentExpr rebuilds the full text document of a published row
const searchDocumentExpr = `CASE WHEN published_at IS NULL THEN NULL ELSE
	setweight(to_tsvector('simple', title), 'A') ||
	setweight(to_tsvector('simple', description), 'B') ||
	setweight(to_tsvector('simple', hashtags), 'C') END`

var activityColumns = []string{
	"a.id", "a.owner_id", "a.editor_id", "a.community_id",
	"a.title", "a.description", "a.hashtags", "a.mentions", "a.details",
	"a.created_at", "a.edited_at", "a.published_at", "a.deleted_at",
	"a.parent_id", "a.is_reshare", "a.is_pinned", "p.owner_id",
}

// ActivityRepository handles database operations shared by every activity kind
type ActivityRepository struct {
	db DBTX
}

// NewActivityRepository creates a new ActivityRepository over a pool or a transaction
func NewActivityRepository(db DBTX) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func selectActivities(t models.ActivityType) squirrel.SelectBuilder {
	table := t.Table()
	return squirrel.Select(activityColumns...).
		From(table + " a").
		LeftJoin(table + " p ON p.id = a.parent_id").
		PlaceholderFormat(squirrel.Dollar)
}

func scanActivity(row pgx.Row, t models.ActivityType) (*models.Activity, error) {
	var a models.Activity
	var details []byte
	err := row.Scan(
		&a.ID, &a.OwnerID, &a.EditorID, &a.CommunityID,
		&a.Title, &a.Description, &a.Hashtags, &a.Mentions, &details,
		&a.CreatedAt, &a.EditedAt, &a.PublishedAt, &a.DeletedAt,
		&a.ParentID, &a.IsReshare, &a.IsPinned, &a.ParentOwnerID,
	)
	if err != nil {
		return nil, err
	}
	a.Type = t
	a.Details, err = models.DecodeDetails(t, details)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByRef retrieves one activity with its poll answers
func (r *ActivityRepository) GetByRef(ctx context.Context, ref models.ActivityRef) (*models.Activity, error) {
	sql, args, err := selectActivities(ref.Type).Where("a.id = ?", ref.ID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	a, err := scanActivity(r.db.QueryRow(ctx, sql, args...), ref.Type)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrActivityNotFound
		}
		return nil, fmt.Errorf("error scanning row: %w", err)
	}

	if ref.Type == models.ActivityTypePoll {
		answers, err := r.answersFor(ctx, []int64{a.ID})
		if err != nil {
			return nil, err
		}
		a.Answers = answers[a.ID]
	}
	return a, nil
}

// GetByIDs bulk loads activities of one kind with their aggregates. Missing
// ids are absent from the result.
func (r *ActivityRepository) GetByIDs(ctx context.Context, t models.ActivityType, ids []int64) (map[int64]*models.Activity, error) {
	result := make(map[int64]*models.Activity, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	sql, args, err := selectActivities(t).Where(squirrel.Eq{"a.id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanActivity(rows, t)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		result[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	found := make([]int64, 0, len(result))
	for id := range result {
		found = append(found, id)
	}
	if len(found) == 0 {
		return result, nil
	}

	stats, err := r.statsFor(ctx, t, found)
	if err != nil {
		return nil, err
	}
	for id, a := range result {
		s := stats[id]
		a.Stats = &s
	}

	if t == models.ActivityTypePoll {
		answers, err := r.answersFor(ctx, found)
		if err != nil {
			return nil, err
		}
		for id, a := range result {
			a.Answers = answers[id]
		}
	}
	return result, nil
}

func (r *ActivityRepository) answersFor(ctx context.Context, pollIDs []int64) (map[int64][]models.PollAnswer, error) {
	query := squirrel.Select("pa.id", "pa.poll_id", "pa.description", "COUNT(pv.voter_id)").
		From("poll_answers pa").
		LeftJoin("poll_votes pv ON pv.answer_id = pa.id").
		Where(squirrel.Eq{"pa.poll_id": pollIDs}).
		GroupBy("pa.id", "pa.poll_id", "pa.description", "pa.position").
		OrderBy("pa.position", "pa.id").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	answers := make(map[int64][]models.PollAnswer)
	for rows.Next() {
		var a models.PollAnswer
		if err := rows.Scan(&a.ID, &a.PollID, &a.Description, &a.Votes); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		answers[a.PollID] = append(answers[a.PollID], a)
	}
	return answers, rows.Err()
}

func (r *ActivityRepository) statsFor(ctx context.Context, t models.ActivityType, ids []int64) (map[int64]models.ActivityStats, error) {
	stats := make(map[int64]models.ActivityStats, len(ids))

	count := func(query squirrel.SelectBuilder, apply func(*models.ActivityStats, int)) error {
		sql, args, err := query.PlaceholderFormat(squirrel.Dollar).ToSql()
		if err != nil {
			return fmt.Errorf("error building SQL: %w", err)
		}
		rows, err := r.db.Query(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("error executing query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			var n int
			if err := rows.Scan(&id, &n); err != nil {
				return fmt.Errorf("error scanning row: %w", err)
			}
			s := stats[id]
			apply(&s, n)
			stats[id] = s
		}
		return rows.Err()
	}

	byActivity := func(table string) squirrel.SelectBuilder {
		return squirrel.Select("activity_id", "COUNT(*)").
			From(table).
			Where(squirrel.Eq{"activity_type": string(t), "activity_id": ids}).
			GroupBy("activity_id")
	}

	if err := count(byActivity("likes"), func(s *models.ActivityStats, n int) { s.Likes = n }); err != nil {
		return nil, err
	}
	if err := count(byActivity("comments"), func(s *models.ActivityStats, n int) { s.Comments = n }); err != nil {
		return nil, err
	}
	reshares := squirrel.Select("parent_id", "COUNT(*)").
		From(t.Table()).
		Where(squirrel.Eq{"parent_id": ids}).
		Where("is_reshare AND deleted_at IS NULL").
		GroupBy("parent_id")
	if err := count(reshares, func(s *models.ActivityStats, n int) { s.Reshares = n }); err != nil {
		return nil, err
	}
	return stats, nil
}

// Insert stores a new activity and sets its ID
func (r *ActivityRepository) Insert(ctx context.Context, a *models.Activity) error {
	details, err := models.EncodeDetails(a.Details)
	if err != nil {
		return err
	}

	query := squirrel.Insert(a.Type.Table()).
		Columns(
			"owner_id", "editor_id", "community_id", "title", "description", "hashtags", "mentions",
			"details", "created_at", "published_at", "parent_id", "is_reshare", "is_pinned",
		).
		Values(
			a.OwnerID, a.EditorID, a.CommunityID, a.Title, a.Description, a.Hashtags, a.Mentions,
			string(details), a.CreatedAt, a.PublishedAt, a.ParentID, a.IsReshare, a.IsPinned,
		).
		Suffix("RETURNING id").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&a.ID); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.NewBadRequestError("referenced community, user or parent does not exist")
		}
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

// InsertAnswers stores the answers of a new poll in order
func (r *ActivityRepository) InsertAnswers(ctx context.Context, pollID int64, descriptions []string) ([]models.PollAnswer, error) {
	if len(descriptions) == 0 {
		return nil, nil
	}

	query := squirrel.Insert("poll_answers").
		Columns("poll_id", "description", "position").
		Suffix("RETURNING id").
		PlaceholderFormat(squirrel.Dollar)
	for i, d := range descriptions {
		query = query.Values(pollID, d, i)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	answers := make([]models.PollAnswer, 0, len(descriptions))
	for i := 0; rows.Next(); i++ {
		a := models.PollAnswer{PollID: pollID, Description: descriptions[i]}
		if err := rows.Scan(&a.ID); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// Update writes the mutable lifecycle and content columns
func (r *ActivityRepository) Update(ctx context.Context, a *models.Activity) error {
	details, err := models.EncodeDetails(a.Details)
	if err != nil {
		return err
	}

	query := squirrel.Update(a.Type.Table()).
		SetMap(map[string]interface{}{
			"editor_id":    a.EditorID,
			"title":        a.Title,
			"description":  a.Description,
			"hashtags":     a.Hashtags,
			"mentions":     a.Mentions,
			"details":      string(details),
			"edited_at":    a.EditedAt,
			"published_at": a.PublishedAt,
			"deleted_at":   a.DeletedAt,
			"is_pinned":    a.IsPinned,
		}).
		Where("id = ?", a.ID).
		PlaceholderFormat(squirrel.Dollar)

	return r.execAffecting(ctx, query, apperrors.ErrActivityNotFound)
}

// Delete removes the activity row. Reshares keep existing with a null parent.
func (r *ActivityRepository) Delete(ctx context.Context, ref models.ActivityRef) error {
	query := squirrel.Delete(ref.Type.Table()).
		Where("id = ?", ref.ID).
		PlaceholderFormat(squirrel.Dollar)

	return r.execAffecting(ctx, query, apperrors.ErrActivityNotFound)
}

// CopyToReshares copies the reshared fields of an original onto its live reshares
func (r *ActivityRepository) CopyToReshares(ctx context.Context, original *models.Activity) (int64, error) {
	details, err := models.EncodeDetails(original.Details)
	if err != nil {
		return 0, err
	}

	query := squirrel.Update(original.Type.Table()).
		Set("title", original.Title).
		Set("description", original.Description).
		Set("hashtags", original.Hashtags).
		Set("mentions", original.Mentions).
		Set("details", string(details)).
		Where("parent_id = ? AND is_reshare AND deleted_at IS NULL", original.ID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return tag.RowsAffected(), nil
}

// HasReshared reports whether userID holds a live reshare of the root activity
func (r *ActivityRepository) HasReshared(ctx context.Context, t models.ActivityType, rootID, userID int64) (bool, error) {
	query := squirrel.Select("1").
		Prefix("SELECT EXISTS (").
		From(t.Table()).
		Where("parent_id = ? AND owner_id = ? AND is_reshare AND deleted_at IS NULL", rootID, userID).
		Suffix(")").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, fmt.Errorf("error building SQL: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("error executing query: %w", err)
	}
	return exists, nil
}

// Reindex rebuilds the search document of the activity and its reshares
func (r *ActivityRepository) Reindex(ctx context.Context, ref models.ActivityRef) error {
	query := squirrel.Update(ref.Type.Table()).
		Set("search_document", squirrel.Expr(searchDocumentExpr)).
		Where(squirrel.Or{
			squirrel.Eq{"id": ref.ID},
			squirrel.And{squirrel.Expr("is_reshare"), squirrel.Eq{"parent_id": ref.ID}},
		}).
		PlaceholderFormat(squirrel.Dollar)

	return r.exec(ctx, query)
}

// UnpinAll clears the pinned flag on every activity of the community
func (r *ActivityRepository) UnpinAll(ctx context.Context, communityID int64) error {
	for _, t := range models.ActivityTypes {
		query := squirrel.Update(t.Table()).
			Set("is_pinned", false).
			Where("community_id = ? AND is_pinned", communityID).
			PlaceholderFormat(squirrel.Dollar)
		if err := r.exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// DetachComments clears the activity reference on its comments
func (r *ActivityRepository) DetachComments(ctx context.Context, ref models.ActivityRef) error {
	query := squirrel.Update("comments").
		Set("activity_id", nil).
		Where("activity_type = ? AND activity_id = ?", string(ref.Type), ref.ID).
		PlaceholderFormat(squirrel.Dollar)
	return r.exec(ctx, query)
}

// DeleteLikes removes the likes of an activity
func (r *ActivityRepository) DeleteLikes(ctx context.Context, ref models.ActivityRef) error {
	return r.deleteDependents(ctx, "likes", ref)
}

// DeleteBookmarks removes the bookmarks of an activity
func (r *ActivityRepository) DeleteBookmarks(ctx context.Context, ref models.ActivityRef) error {
	return r.deleteDependents(ctx, "bookmarks", ref)
}

// DeleteFlags removes the flags raised against an activity
func (r *ActivityRepository) DeleteFlags(ctx context.Context, ref models.ActivityRef) error {
	return r.deleteDependents(ctx, "flags", ref)
}

func (r *ActivityRepository) deleteDependents(ctx context.Context, table string, ref models.ActivityRef) error {
	query := squirrel.Delete(table).
		Where("activity_type = ? AND activity_id = ?", string(ref.Type), ref.ID).
		PlaceholderFormat(squirrel.Dollar)
	return r.exec(ctx, query)
}

// GetAnswer retrieves one poll answer
func (r *ActivityRepository) GetAnswer(ctx context.Context, answerID int64) (*models.PollAnswer, error) {
	query := squirrel.Select("id", "poll_id", "description").
		From("poll_answers").
		Where("id = ?", answerID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	var a models.PollAnswer
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&a.ID, &a.PollID, &a.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAnswerNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return &a, nil
}

// RecordVote replaces any previous vote of voterID on the poll with answerID.
// hadVoted reports whether a previous vote existed.
func (r *ActivityRepository) RecordVote(ctx context.Context, pollID, answerID, voterID int64) (hadVoted bool, err error) {
	del := squirrel.Delete("poll_votes").
		Where("poll_id = ? AND voter_id = ?", pollID, voterID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := del.ToSql()
	if err != nil {
		return false, fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("error executing query: %w", err)
	}

	ins := squirrel.Insert("poll_votes").
		Columns("poll_id", "answer_id", "voter_id").
		Values(pollID, answerID, voterID).
		PlaceholderFormat(squirrel.Dollar)
	if err := r.exec(ctx, ins); err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// AddLike records a like; created is false when it already existed
func (r *ActivityRepository) AddLike(ctx context.Context, ref models.ActivityRef, userID int64) (created bool, err error) {
	return r.insertReaction(ctx, "likes", ref, userID)
}

// RemoveLike deletes a like
func (r *ActivityRepository) RemoveLike(ctx context.Context, ref models.ActivityRef, userID int64) error {
	return r.deleteReaction(ctx, "likes", ref, userID)
}

// AddBookmark records a bookmark; created is false when it already existed
func (r *ActivityRepository) AddBookmark(ctx context.Context, ref models.ActivityRef, userID int64) (created bool, err error) {
	return r.insertReaction(ctx, "bookmarks", ref, userID)
}

// RemoveBookmark deletes a bookmark
func (r *ActivityRepository) RemoveBookmark(ctx context.Context, ref models.ActivityRef, userID int64) error {
	return r.deleteReaction(ctx, "bookmarks", ref, userID)
}

// AddFlag records a report; created is false when the user already flagged the activity
func (r *ActivityRepository) AddFlag(ctx context.Context, f *models.Flag) (created bool, err error) {
	query := squirrel.Insert("flags").
		Columns("user_id", "activity_type", "activity_id", "reason", "created_at").
		Values(f.UserID, string(f.Activity.Type), f.Activity.ID, f.Reason, f.CreatedAt).
		Suffix("ON CONFLICT ON CONSTRAINT flags_unique DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)
	return r.insertIfAbsent(ctx, query)
}

func (r *ActivityRepository) insertReaction(ctx context.Context, table string, ref models.ActivityRef, userID int64) (bool, error) {
	query := squirrel.Insert(table).
		Columns("user_id", "activity_type", "activity_id").
		Values(userID, string(ref.Type), ref.ID).
		Suffix("ON CONFLICT ON CONSTRAINT " + table + "_unique DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)
	return r.insertIfAbsent(ctx, query)
}

func (r *ActivityRepository) insertIfAbsent(ctx context.Context, query squirrel.InsertBuilder) (bool, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return false, fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("error executing query: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ActivityRepository) deleteReaction(ctx context.Context, table string, ref models.ActivityRef, userID int64) error {
	query := squirrel.Delete(table).
		Where("activity_type = ? AND activity_id = ? AND user_id = ?", string(ref.Type), ref.ID, userID).
		PlaceholderFormat(squirrel.Dollar)
	return r.exec(ctx, query)
}

// AddComment stores a comment on an activity
func (r *ActivityRepository) AddComment(ctx context.Context, c *models.Comment) error {
	query := squirrel.Insert("comments").
		Columns("owner_id", "community_id", "activity_type", "activity_id", "parent_id", "content", "created_at").
		Values(c.OwnerID, c.CommunityID, string(c.ActivityType), c.ActivityID, c.ParentID, c.Content, c.CreatedAt).
		Suffix("RETURNING id").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&c.ID); err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

var commentColumns = []string{"id", "owner_id", "community_id", "activity_type", "activity_id", "parent_id", "content", "created_at"}

func scanComment(row pgx.Row) (*models.Comment, error) {
	var c models.Comment
	var activityType string
	if err := row.Scan(&c.ID, &c.OwnerID, &c.CommunityID, &activityType, &c.ActivityID, &c.ParentID, &c.Content, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ActivityType = models.ActivityType(activityType)
	return &c, nil
}

func (r *ActivityRepository) queryComments(ctx context.Context, query squirrel.SelectBuilder) ([]models.Comment, error) {
	sql, args, err := query.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// GetComment retrieves one comment
func (r *ActivityRepository) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	sql, args, err := squirrel.Select(commentColumns...).
		From("comments").
		Where("id = ?", id).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	c, err := scanComment(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCommentNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return c, nil
}

// GetCommentsByIDs loads several comments at once, keyed by ID
func (r *ActivityRepository) GetCommentsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Comment, error) {
	found := make(map[int64]*models.Comment, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	comments, err := r.queryComments(ctx, squirrel.Select(commentColumns...).
		From("comments").
		Where(squirrel.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}
	for i := range comments {
		found[comments[i].ID] = &comments[i]
	}
	return found, nil
}

// ListComments returns the comments attached to an activity, oldest first
func (r *ActivityRepository) ListComments(ctx context.Context, ref models.ActivityRef) ([]models.Comment, error) {
	return r.queryComments(ctx, squirrel.Select(commentColumns...).
		From("comments").
		Where("activity_type = ? AND activity_id = ?", string(ref.Type), ref.ID).
		OrderBy("created_at", "id"))
}

// CommentOwners returns the distinct owners of the comments on an activity
func (r *ActivityRepository) CommentOwners(ctx context.Context, ref models.ActivityRef) ([]int64, error) {
	sql, args, err := squirrel.Select("owner_id").
		Distinct().
		From("comments").
		Where("activity_type = ? AND activity_id = ?", string(ref.Type), ref.ID).
		OrderBy("owner_id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var owners []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}

type sqlizer interface {
	ToSql() (string, []interface{}, error)
}

func (r *ActivityRepository) exec(ctx context.Context, query sqlizer) error {
	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

func (r *ActivityRepository) execAffecting(ctx context.Context, query sqlizer, notFound error) error {
	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}
