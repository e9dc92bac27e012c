package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
)

// MessageRepository handles database operations for private messages
type MessageRepository struct {
	db DBTX
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

var messageColumns = []string{
	"id", "community_id", "sender_id", "recipient_id", "parent_id", "message",
	"created_at", "read_at", "sender_deleted_at", "recipient_deleted_at",
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	m := &models.Message{}
	err := row.Scan(&m.ID, &m.CommunityID, &m.SenderID, &m.RecipientID, &m.ParentID, &m.Message,
		&m.CreatedAt, &m.ReadAt, &m.SenderDeletedAt, &m.RecipientDeletedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// InsertMessage stores a message and sets its ID
func (r *MessageRepository) InsertMessage(ctx context.Context, m *models.Message) error {
	query := squirrel.Insert("messages").
		Columns("community_id", "sender_id", "recipient_id", "parent_id", "message", "created_at").
		Values(m.CommunityID, m.SenderID, m.RecipientID, m.ParentID, m.Message, m.CreatedAt).
		Suffix("RETURNING id").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&m.ID); err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

// GetMessage retrieves a message by ID
func (r *MessageRepository) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	sql, args, err := squirrel.Select(messageColumns...).
		From("messages").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	m, err := scanMessage(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMessageNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return m, nil
}

// GetMessagesByIDs loads several messages at once, keyed by ID
func (r *MessageRepository) GetMessagesByIDs(ctx context.Context, ids []int64) (map[int64]*models.Message, error) {
	found := make(map[int64]*models.Message, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	sql, args, err := squirrel.Select(messageColumns...).
		From("messages").
		Where(squirrel.Eq{"id": ids}).
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

	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		found[m.ID] = m
	}
	return found, rows.Err()
}

// MarkMessageRead sets read_at unless the message was already read
func (r *MessageRepository) MarkMessageRead(ctx context.Context, id int64, at time.Time) error {
	query := squirrel.Update("messages").
		Set("read_at", at).
		Where("id = ? AND read_at IS NULL", id).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

// HideMessage stores the side's deletion timestamps of m
func (r *MessageRepository) HideMessage(ctx context.Context, m *models.Message) error {
	query := squirrel.Update("messages").
		Set("sender_deleted_at", m.SenderDeletedAt).
		Set("recipient_deleted_at", m.RecipientDeletedAt).
		Where("id = ?", m.ID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMessageNotFound
	}
	return nil
}

// DeleteMessage removes a message. Replies keep their text and lose the parent link.
func (r *MessageRepository) DeleteMessage(ctx context.Context, id int64) error {
	query := squirrel.Delete("messages").
		Where("id = ?", id).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMessageNotFound
	}
	return nil
}
