package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
)

// NotificationRepository handles database operations for notifications
type NotificationRepository struct {
	db DBTX
}

// NewNotificationRepository creates a new NotificationRepository over a pool or a transaction
func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// InsertBatch writes every notification in a single statement and sets their IDs
func (r *NotificationRepository) InsertBatch(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	query := squirrel.Insert("notifications").
		Columns("recipient_id", "actor_id", "community_id", "verb", "object_type", "object_id", "is_read", "created_at").
		Suffix("RETURNING id").
		PlaceholderFormat(squirrel.Dollar)
	for _, n := range ns {
		query = query.Values(n.RecipientID, n.ActorID, n.CommunityID, string(n.Verb), n.ObjectType, n.ObjectID, n.IsRead, n.CreatedAt)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	for i := 0; rows.Next() && i < len(ns); i++ {
		if err := rows.Scan(&ns[i].ID); err != nil {
			return fmt.Errorf("error scanning row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

// DeleteForObject removes every notification whose content object is the given
// record and returns the inboxes that lost unread entries
func (r *NotificationRepository) DeleteForObject(ctx context.Context, objectType string, objectID int64) ([]models.InboxRef, error) {
	query := squirrel.Delete("notifications").
		Where("object_type = ? AND object_id = ?", objectType, objectID).
		Suffix("RETURNING recipient_id, community_id, is_read").
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

	var purged []models.InboxRef
	seen := make(map[models.InboxRef]struct{})
	for rows.Next() {
		var in models.InboxRef
		var isRead bool
		if err := rows.Scan(&in.RecipientID, &in.CommunityID, &isRead); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		if _, dup := seen[in]; isRead || dup {
			continue
		}
		seen[in] = struct{}{}
		purged = append(purged, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return purged, nil
}

// InboxesBetween returns the inboxes of a and b holding unread notifications
// whose actor is the other user
func (r *NotificationRepository) InboxesBetween(ctx context.Context, a, b int64) ([]models.InboxRef, error) {
	sql, args, err := squirrel.Select("recipient_id", "community_id").
		Distinct().
		From("notifications").
		Where("NOT is_read AND ((recipient_id = ? AND actor_id = ?) OR (recipient_id = ? AND actor_id = ?))", a, b, b, a).
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

	var inboxes []models.InboxRef
	for rows.Next() {
		var in models.InboxRef
		if err := rows.Scan(&in.RecipientID, &in.CommunityID); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		inboxes = append(inboxes, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return inboxes, nil
}

// inbox selects the notifications of a recipient in a community whose actor
// is not in a block relation with the recipient.
func inbox(recipientID, communityID int64) squirrel.And {
	return squirrel.And{
		squirrel.Eq{"n.recipient_id": recipientID, "n.community_id": communityID},
		squirrel.Expr(`NOT EXISTS (
			SELECT 1 FROM blocks b
			WHERE (b.blocker_id = n.recipient_id AND b.blocked_id = n.actor_id)
			   OR (b.blocker_id = n.actor_id AND b.blocked_id = n.recipient_id))`),
	}
}

// List returns one page of the inbox, newest first, and the inbox size
func (r *NotificationRepository) List(ctx context.Context, recipientID, communityID int64, unreadOnly bool, offset, limit int) ([]models.Notification, int, error) {
	where := inbox(recipientID, communityID)
	if unreadOnly {
		where = append(where, squirrel.Eq{"n.is_read": false})
	}

	countSQL, countArgs, err := squirrel.Select("COUNT(*)").
		From("notifications n").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}
	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error executing query: %w", err)
	}

	query := squirrel.Select(
		"n.id", "n.recipient_id", "n.actor_id", "n.community_id", "n.verb",
		"n.object_type", "n.object_id", "n.is_read", "n.created_at",
	).
		From("notifications n").
		Where(where).
		OrderBy("n.created_at DESC", "n.id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var verb string
		err := rows.Scan(&n.ID, &n.RecipientID, &n.ActorID, &n.CommunityID, &verb,
			&n.ObjectType, &n.ObjectID, &n.IsRead, &n.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning row: %w", err)
		}
		n.Verb = models.Verb(verb)
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating rows: %w", err)
	}
	return notifications, total, nil
}

// UnreadCount counts the unread inbox entries
func (r *NotificationRepository) UnreadCount(ctx context.Context, recipientID, communityID int64) (int, error) {
	where := append(inbox(recipientID, communityID), squirrel.Eq{"n.is_read": false})
	sql, args, err := squirrel.Select("COUNT(*)").
		From("notifications n").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	var count int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return count, nil
}

// MarkRead flags one notification of the recipient as read and returns its community
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID int64) (communityID int64, err error) {
	query := squirrel.Update("notifications").
		Set("is_read", true).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Suffix("RETURNING community_id").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("error executing query: %w", err)
		}
		return 0, apperrors.ErrNotificationNotFound
	}
	if err := rows.Scan(&communityID); err != nil {
		return 0, fmt.Errorf("error scanning row: %w", err)
	}
	return communityID, nil
}

// MarkAllRead flags every unread notification of the inbox as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID, communityID int64) (int64, error) {
	query := squirrel.Update("notifications").
		Set("is_read", true).
		Where("recipient_id = ? AND community_id = ? AND NOT is_read", recipientID, communityID).
		PlaceholderFormat(squirrel.Dollar)
	return r.execCount(ctx, query)
}

// DeleteAll clears the inbox
func (r *NotificationRepository) DeleteAll(ctx context.Context, recipientID, communityID int64) (int64, error) {
	query := squirrel.Delete("notifications").
		Where("recipient_id = ? AND community_id = ?", recipientID, communityID).
		PlaceholderFormat(squirrel.Dollar)
	return r.execCount(ctx, query)
}

func (r *NotificationRepository) execCount(ctx context.Context, query sqlizer) (int64, error) {
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
