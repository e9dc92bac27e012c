package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
	"github.com/yigit/communityhub/internal/pkg/dberrors"
)

// GraphRepository stores the social graph: user follows, tag follows and blocks
type GraphRepository struct {
	db DBTX
}

// NewGraphRepository creates a new GraphRepository
func NewGraphRepository(db DBTX) *GraphRepository {
	return &GraphRepository{db: db}
}

// Follow records that followerID follows followedID. It reports false when the
// edge already existed.
func (r *GraphRepository) Follow(ctx context.Context, followerID, followedID int64) (bool, error) {
	query := squirrel.Insert("follows").
		Columns("follower_id", "followed_id").
		Values(followerID, followedID).
		Suffix("ON CONFLICT DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)
	return r.insertEdge(ctx, query)
}

// Unfollow removes a follow edge
func (r *GraphRepository) Unfollow(ctx context.Context, followerID, followedID int64) (bool, error) {
	query := squirrel.Delete("follows").
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		PlaceholderFormat(squirrel.Dollar)
	return r.changed(ctx, query)
}

// FollowersOf returns the users following userID
func (r *GraphRepository) FollowersOf(ctx context.Context, userID int64) ([]int64, error) {
	query := squirrel.Select("follower_id").
		From("follows").
		Where(squirrel.Eq{"followed_id": userID}).
		OrderBy("follower_id").
		PlaceholderFormat(squirrel.Dollar)
	return r.ids(ctx, query)
}

// Following returns the users userID follows
func (r *GraphRepository) Following(ctx context.Context, userID int64) ([]int64, error) {
	query := squirrel.Select("followed_id").
		From("follows").
		Where(squirrel.Eq{"follower_id": userID}).
		OrderBy("followed_id").
		PlaceholderFormat(squirrel.Dollar)
	return r.ids(ctx, query)
}

// FollowTag subscribes userID to a hashtag
func (r *GraphRepository) FollowTag(ctx context.Context, userID int64, tag string) (bool, error) {
	query := squirrel.Insert("tag_follows").
		Columns("user_id", "tag").
		Values(userID, tag).
		Suffix("ON CONFLICT DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)
	return r.insertEdge(ctx, query)
}

// UnfollowTag removes a hashtag subscription
func (r *GraphRepository) UnfollowTag(ctx context.Context, userID int64, tag string) (bool, error) {
	query := squirrel.Delete("tag_follows").
		Where("user_id = ? AND tag = ?", userID, tag).
		PlaceholderFormat(squirrel.Dollar)
	return r.changed(ctx, query)
}

// FollowedTags returns the hashtags userID follows
func (r *GraphRepository) FollowedTags(ctx context.Context, userID int64) ([]string, error) {
	sql, args, err := squirrel.Select("tag").
		From("tag_follows").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("tag").
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

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// TagFollowersOf returns every user following at least one of the tags
func (r *GraphRepository) TagFollowersOf(ctx context.Context, tags []string) ([]int64, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	query := squirrel.Select("DISTINCT user_id").
		From("tag_follows").
		Where(squirrel.Eq{"tag": tags}).
		OrderBy("user_id").
		PlaceholderFormat(squirrel.Dollar)
	return r.ids(ctx, query)
}

// Block records that blockerID blocks blockedID
func (r *GraphRepository) Block(ctx context.Context, blockerID, blockedID int64) (bool, error) {
	query := squirrel.Insert("blocks").
		Columns("blocker_id", "blocked_id").
		Values(blockerID, blockedID).
		Suffix("ON CONFLICT DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)
	return r.insertEdge(ctx, query)
}

// Unblock removes a block
func (r *GraphRepository) Unblock(ctx context.Context, blockerID, blockedID int64) (bool, error) {
	query := squirrel.Delete("blocks").
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		PlaceholderFormat(squirrel.Dollar)
	return r.changed(ctx, query)
}

// BlockRelations returns users who block userID or are blocked by userID
func (r *GraphRepository) BlockRelations(ctx context.Context, userID int64) ([]int64, error) {
	query := squirrel.Select("blocked_id").
		From("blocks").
		Where(squirrel.Eq{"blocker_id": userID}).
		Suffix("UNION SELECT blocker_id FROM blocks WHERE blocked_id = ?", userID).
		PlaceholderFormat(squirrel.Dollar)
	return r.ids(ctx, query)
}

func (r *GraphRepository) insertEdge(ctx context.Context, query sqlizer) (bool, error) {
	created, err := r.changed(ctx, query)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return false, apperrors.ErrUserNotFound
		}
		if dberrors.IsCheckViolation(err) {
			return false, apperrors.NewBadRequestError("users cannot target themselves")
		}
		return false, err
	}
	return created, nil
}

func (r *GraphRepository) changed(ctx context.Context, query sqlizer) (bool, error) {
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

func (r *GraphRepository) ids(ctx context.Context, query sqlizer) ([]int64, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return ids, nil
}
