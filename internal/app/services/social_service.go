package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/communityhub/internal/app/auth"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/app/notifications"
	"github.com/yigit/communityhub/internal/app/repositories"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
	"github.com/yigit/communityhub/internal/pkg/metrics"
)

// SocialStore opens units of work for graph and membership changes
type SocialStore interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.SocialTx) error) error
	Reader() repositories.SocialTx
}

// PushTokenStore persists device tokens
type PushTokenStore interface {
	Save(ctx context.Context, sub *models.PushSubscription) error
}

// BlockChecker reports whether two users are in a block relation
type BlockChecker interface {
	BlockRelations(ctx context.Context, userID int64) ([]int64, error)
}

// SocialService defines follows, blocks, memberships and device registration
type SocialService interface {
	FollowUser(ctx context.Context, communityID, followerID, followedID int64) error
	UnfollowUser(ctx context.Context, followerID, followedID int64) error
	FollowTag(ctx context.Context, userID int64, tag string) error
	UnfollowTag(ctx context.Context, userID int64, tag string) error
	Block(ctx context.Context, blockerID, blockedID int64) error
	Unblock(ctx context.Context, blockerID, blockedID int64) error
	Join(ctx context.Context, communityID, userID int64) (*models.Membership, error)
	Leave(ctx context.Context, communityID, userID int64) error
	RegisterPushToken(ctx context.Context, userID int64, token, platform string) (*models.PushSubscription, error)
}

// socialServiceImpl implements SocialService
type socialServiceImpl struct {
	store      SocialStore
	blocks     BlockChecker
	tokens     PushTokenStore
	engine     *notifications.Engine
	dispatcher NotificationDispatcher
	authz      *auth.AuthorizationService
	logger     zerolog.Logger
}

// NewSocialService creates a new SocialService
func NewSocialService(
	store SocialStore,
	blocks BlockChecker,
	tokens PushTokenStore,
	engine *notifications.Engine,
	dispatcher NotificationDispatcher,
	authz *auth.AuthorizationService,
	logger zerolog.Logger,
) SocialService {
	return &socialServiceImpl{
		store:      store,
		blocks:     blocks,
		tokens:     tokens,
		engine:     engine,
		dispatcher: dispatcher,
		authz:      authz,
		logger:     logger,
	}
}

func (s *socialServiceImpl) change(ctx context.Context, op string, fn func(ctx context.Context, tx repositories.SocialTx) ([]models.Notification, error)) error {
	var created []models.Notification
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.SocialTx) error {
		ns, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		if err := tx.InsertNotifications(ctx, ns); err != nil {
			return err
		}
		created = ns
		return nil
	})
	metrics.Transition(op, err)
	if err != nil {
		s.logger.Debug().Err(err).Str("operation", op).Msg("Social change rejected or rolled back")
		return apperrors.NewStorageError(err)
	}
	s.dispatcher.Dispatch(ctx, created)
	return nil
}

func (s *socialServiceImpl) blocked(ctx context.Context, a, b int64) (bool, error) {
	ids, err := s.blocks.BlockRelations(ctx, a)
	if err != nil {
		return false, apperrors.NewStorageError(err)
	}
	for _, id := range ids {
		if id == b {
			return true, nil
		}
	}
	return false, nil
}

// FollowUser makes followerID follow followedID. Both must belong to the
// community the new follower notification is filed under.
func (s *socialServiceImpl) FollowUser(ctx context.Context, communityID, followerID, followedID int64) error {
	if followerID == followedID {
		return apperrors.NewBadRequestError("users cannot follow themselves")
	}
	if err := s.authz.ValidateMember(ctx, communityID, followerID); err != nil {
		return err
	}
	if err := s.authz.ValidateMember(ctx, communityID, followedID); err != nil {
		return err
	}
	isBlocked, err := s.blocked(ctx, followerID, followedID)
	if err != nil {
		return err
	}
	if isBlocked {
		return apperrors.NewForbiddenError("cannot follow a blocked user")
	}

	return s.change(ctx, "follow", func(ctx context.Context, tx repositories.SocialTx) ([]models.Notification, error) {
		created, err := tx.Follow(ctx, followerID, followedID)
		if err != nil || !created {
			return nil, err
		}
		n, err := s.engine.OnFollow(ctx, followerID, followedID, communityID)
		if err != nil || n == nil {
			return nil, err
		}
		return []models.Notification{*n}, nil
	})
}

// UnfollowUser removes the follow edge if present
func (s *socialServiceImpl) UnfollowUser(ctx context.Context, followerID, followedID int64) error {
	if _, err := s.store.Reader().Unfollow(ctx, followerID, followedID); err != nil {
		return apperrors.NewStorageError(err)
	}
	return nil
}

func normalizeTag(tag string) (string, error) {
	tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
	if tag == "" {
		return "", apperrors.NewBadRequestError("tag is required")
	}
	return tag, nil
}

// FollowTag subscribes userID to activities carrying the hashtag
func (s *socialServiceImpl) FollowTag(ctx context.Context, userID int64, tag string) error {
	tag, err := normalizeTag(tag)
	if err != nil {
		return err
	}
	if _, err := s.store.Reader().FollowTag(ctx, userID, tag); err != nil {
		return apperrors.NewStorageError(err)
	}
	return nil
}

// UnfollowTag drops the hashtag subscription if present
func (s *socialServiceImpl) UnfollowTag(ctx context.Context, userID int64, tag string) error {
	tag, err := normalizeTag(tag)
	if err != nil {
		return err
	}
	if _, err := s.store.Reader().UnfollowTag(ctx, userID, tag); err != nil {
		return apperrors.NewStorageError(err)
	}
	return nil
}

// Block records the block and removes follows in both directions. The unread
// counts of both users drop the entries the block hides.
func (s *socialServiceImpl) Block(ctx context.Context, blockerID, blockedID int64) error {
	if blockerID == blockedID {
		return apperrors.NewBadRequestError("users cannot block themselves")
	}
	var hidden []models.InboxRef
	err := s.change(ctx, "block", func(ctx context.Context, tx repositories.SocialTx) ([]models.Notification, error) {
		if _, err := tx.Block(ctx, blockerID, blockedID); err != nil {
			return nil, err
		}
		if _, err := tx.Unfollow(ctx, blockerID, blockedID); err != nil {
			return nil, err
		}
		if _, err := tx.Unfollow(ctx, blockedID, blockerID); err != nil {
			return nil, err
		}
		inboxes, err := tx.InboxesBetween(ctx, blockerID, blockedID)
		if err != nil {
			return nil, err
		}
		hidden = inboxes
		return nil, nil
	})
	if err != nil {
		return err
	}
	s.dispatcher.Invalidate(ctx, hidden)
	return nil
}

// Unblock lifts the block if present. Removed follows are not restored; the
// entries the block hid count as unread again.
func (s *socialServiceImpl) Unblock(ctx context.Context, blockerID, blockedID int64) error {
	var shown []models.InboxRef
	err := s.change(ctx, "unblock", func(ctx context.Context, tx repositories.SocialTx) ([]models.Notification, error) {
		removed, err := tx.Unblock(ctx, blockerID, blockedID)
		if err != nil || !removed {
			return nil, err
		}
		shown, err = tx.InboxesBetween(ctx, blockerID, blockedID)
		return nil, err
	})
	if err != nil {
		return err
	}
	s.dispatcher.Invalidate(ctx, shown)
	return nil
}

// Join adds userID as a plain member and tells the existing members
func (s *socialServiceImpl) Join(ctx context.Context, communityID, userID int64) (*models.Membership, error) {
	var membership *models.Membership
	err := s.change(ctx, "join", func(ctx context.Context, tx repositories.SocialTx) ([]models.Notification, error) {
		m, err := tx.AddMember(ctx, communityID, userID, models.RoleMember)
		if err != nil {
			return nil, err
		}
		membership = m
		return s.engine.OnJoin(ctx, userID, communityID)
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// Leave removes the membership
func (s *socialServiceImpl) Leave(ctx context.Context, communityID, userID int64) error {
	if err := s.store.Reader().RemoveMember(ctx, communityID, userID); err != nil {
		return apperrors.NewStorageError(err)
	}
	return nil
}

// RegisterPushToken stores a device token for push delivery
func (s *socialServiceImpl) RegisterPushToken(ctx context.Context, userID int64, token, platform string) (*models.PushSubscription, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewBadRequestError("device token is required")
	}
	sub := &models.PushSubscription{
		UserID:    userID,
		Token:     token,
		Platform:  platform,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.tokens.Save(ctx, sub); err != nil {
		s.logger.Error().Err(err).Int64("userID", userID).Msg("Failed to save push token")
		return nil, apperrors.NewStorageError(err)
	}
	return sub, nil
}
