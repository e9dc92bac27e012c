package services

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/yigit/communityhub/internal/app/auth"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
)

// NotificationStore reads and updates persisted inboxes
type NotificationStore interface {
	List(ctx context.Context, recipientID, communityID int64, unreadOnly bool, offset, limit int) ([]models.Notification, int, error)
	UnreadCount(ctx context.Context, recipientID, communityID int64) (int, error)
	MarkRead(ctx context.Context, id, recipientID int64) (int64, error)
	MarkAllRead(ctx context.Context, recipientID, communityID int64) (int64, error)
	DeleteAll(ctx context.Context, recipientID, communityID int64) (int64, error)
}

// UnreadCache caches unread counts. Implementations treat a nil receiver as disabled.
type UnreadCache interface {
	Get(ctx context.Context, communityID, userID int64) (int, bool)
	Set(ctx context.Context, communityID, userID int64, count int)
	Invalidate(ctx context.Context, communityID int64, userIDs ...int64) error
}

// NotificationPage is one page of an inbox
type NotificationPage struct {
	Items      []models.Notification
	Page       int
	Size       int
	TotalCount int
}

// NotificationService defines the inbox operations of a user
type NotificationService interface {
	List(ctx context.Context, communityID, userID int64, unreadOnly bool, page, size int) (*NotificationPage, error)
	UnreadCount(ctx context.Context, communityID, userID int64) (int, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkAllRead(ctx context.Context, communityID, userID int64) (int64, error)
	Clear(ctx context.Context, communityID, userID int64) (int64, error)
}

// notificationServiceImpl implements NotificationService
type notificationServiceImpl struct {
	store  NotificationStore
	cache  UnreadCache
	authz  *auth.AuthorizationService
	limits FeedLimits
	logger zerolog.Logger
}

// NewNotificationService creates a new NotificationService. cache may be nil.
func NewNotificationService(store NotificationStore, cache UnreadCache, authz *auth.AuthorizationService, limits FeedLimits, logger zerolog.Logger) NotificationService {
	return &notificationServiceImpl{
		store:  store,
		cache:  cache,
		authz:  authz,
		limits: limits,
		logger: logger,
	}
}

func (s *notificationServiceImpl) invalidate(ctx context.Context, communityID, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, communityID, userID); err != nil {
		s.logger.Warn().Err(err).Int64("userID", userID).Msg("Failed to invalidate unread counter")
	}
}

// List returns a page of the inbox, newest first
func (s *notificationServiceImpl) List(ctx context.Context, communityID, userID int64, unreadOnly bool, page, size int) (*NotificationPage, error) {
	if err := s.authz.ValidateMember(ctx, communityID, userID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	switch {
	case size <= 0:
		size = s.limits.DefaultPageSize
	case s.limits.MaxPageSize > 0 && size > s.limits.MaxPageSize:
		size = s.limits.MaxPageSize
	}

	items, total, err := s.store.List(ctx, userID, communityID, unreadOnly, (page-1)*size, size)
	if err != nil {
		s.logger.Error().Err(err).Int64("userID", userID).Msg("Failed to list notifications")
		return nil, apperrors.NewStorageError(err)
	}
	return &NotificationPage{Items: items, Page: page, Size: size, TotalCount: total}, nil
}

// UnreadCount serves the count from the cache and fills it on a miss
func (s *notificationServiceImpl) UnreadCount(ctx context.Context, communityID, userID int64) (int, error) {
	if err := s.authz.ValidateMember(ctx, communityID, userID); err != nil {
		return 0, err
	}
	if s.cache != nil {
		if n, ok := s.cache.Get(ctx, communityID, userID); ok {
			return n, nil
		}
	}

	n, err := s.store.UnreadCount(ctx, userID, communityID)
	if err != nil {
		s.logger.Error().Err(err).Int64("userID", userID).Msg("Failed to count unread notifications")
		return 0, apperrors.NewStorageError(err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, communityID, userID, n)
	}
	return n, nil
}

// MarkRead flags one of the user's notifications as read
func (s *notificationServiceImpl) MarkRead(ctx context.Context, id, userID int64) error {
	communityID, err := s.store.MarkRead(ctx, id, userID)
	if err != nil {
		return apperrors.NewStorageError(err)
	}
	s.invalidate(ctx, communityID, userID)
	return nil
}

// MarkAllRead flags the whole inbox as read and returns how many changed
func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, communityID, userID int64) (int64, error) {
	n, err := s.store.MarkAllRead(ctx, userID, communityID)
	if err != nil {
		return 0, apperrors.NewStorageError(err)
	}
	s.invalidate(ctx, communityID, userID)
	return n, nil
}

// Clear deletes the inbox and returns how many notifications were removed
func (s *notificationServiceImpl) Clear(ctx context.Context, communityID, userID int64) (int64, error) {
	n, err := s.store.DeleteAll(ctx, userID, communityID)
	if err != nil {
		return 0, apperrors.NewStorageError(err)
	}
	s.invalidate(ctx, communityID, userID)
	return n, nil
}
