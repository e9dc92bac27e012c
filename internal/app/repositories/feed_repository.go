package repositories

import (
	"context"
	"fmt"

	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/pkg/feed"
)

// FeedRepository runs merged feed queries against PostgreSQL
type FeedRepository struct {
	db DBTX
}

var _ feed.Index = (*FeedRepository)(nil)

// NewFeedRepository creates a new FeedRepository
func NewFeedRepository(db DBTX) *FeedRepository {
	return &FeedRepository{db: db}
}

// Count returns the number of distinct rows across sources
func (r *FeedRepository) Count(ctx context.Context, sources []feed.RecordSource) (int, error) {
	sql, args, err := countQuery(sources)
	if err != nil {
		return 0, err
	}
	var count int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return count, nil
}

// Fetch returns one ordered slice of the merged rows
func (r *FeedRepository) Fetch(ctx context.Context, sources []feed.RecordSource, order feed.OrderSpec, offset, limit int) ([]feed.IndexRow, error) {
	sql, args, err := pageQuery(sources, order, offset, limit)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var result []feed.IndexRow
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		if len(values) < 2 {
			return nil, fmt.Errorf("error scanning row: got %d columns", len(values))
		}
		id, ok := values[0].(int64)
		if !ok {
			return nil, fmt.Errorf("error scanning row: id is %T", values[0])
		}
		tag, ok := values[1].(string)
		if !ok {
			return nil, fmt.Errorf("error scanning row: object_type is %T", values[1])
		}
		result = append(result, feed.IndexRow{Type: tag, ID: id, Keys: values[2:]})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

// ActivityLoader hydrates feed rows of one kind through the activity repository
func ActivityLoader(activities *ActivityRepository, kind models.ActivityType) feed.Loader {
	return func(ctx context.Context, ids []int64) (map[int64]any, error) {
		loaded, err := activities.GetByIDs(ctx, kind, ids)
		if err != nil {
			return nil, err
		}
		objects := make(map[int64]any, len(loaded))
		for id, a := range loaded {
			objects[id] = a
		}
		return objects, nil
	}
}

// CommentLoader hydrates comment rows
func CommentLoader(activities *ActivityRepository) feed.Loader {
	return func(ctx context.Context, ids []int64) (map[int64]any, error) {
		loaded, err := activities.GetCommentsByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		objects := make(map[int64]any, len(loaded))
		for id, c := range loaded {
			objects[id] = c
		}
		return objects, nil
	}
}

// MessageLoader hydrates private message rows
func MessageLoader(messages *MessageRepository) feed.Loader {
	return func(ctx context.Context, ids []int64) (map[int64]any, error) {
		loaded, err := messages.GetMessagesByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		objects := make(map[int64]any, len(loaded))
		for id, m := range loaded {
			objects[id] = m
		}
		return objects, nil
	}
}

// NewActivityHydrator registers a loader for every activity kind and for comments
func NewActivityHydrator(activities *ActivityRepository) *feed.Hydrator {
	h := feed.NewHydrator()
	for _, kind := range models.ActivityTypes {
		h.Register(string(kind), ActivityLoader(activities, kind))
	}
	h.Register(CommentTag, CommentLoader(activities))
	return h
}

// NewMessageHydrator registers the private message loader
func NewMessageHydrator(messages *MessageRepository) *feed.Hydrator {
	h := feed.NewHydrator()
	h.Register(MessageTag, MessageLoader(messages))
	return h
}
