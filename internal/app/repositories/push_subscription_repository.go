package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/communityhub/internal/app/models"
)

// PushSubscriptionRepository stores device tokens for push delivery
type PushSubscriptionRepository struct {
	db DBTX
}

// NewPushSubscriptionRepository creates a new PushSubscriptionRepository
func NewPushSubscriptionRepository(db DBTX) *PushSubscriptionRepository {
	return &PushSubscriptionRepository{db: db}
}

// Save registers a token for a user, moving it over if another user held it
func (r *PushSubscriptionRepository) Save(ctx context.Context, sub *models.PushSubscription) error {
	query := squirrel.Insert("push_subscriptions").
		Columns("user_id", "token", "platform").
		Values(sub.UserID, sub.Token, sub.Platform).
		Suffix("ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&sub.ID, &sub.CreatedAt); err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

// TokensForUser returns every token registered by the user
func (r *PushSubscriptionRepository) TokensForUser(ctx context.Context, userID int64) ([]string, error) {
	sql, args, err := squirrel.Select("token").
		From("push_subscriptions").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("id").
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

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// DeleteTokens removes tokens the push provider reported as stale
func (r *PushSubscriptionRepository) DeleteTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	sql, args, err := squirrel.Delete("push_subscriptions").
		Where(squirrel.Eq{"token": tokens}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}
