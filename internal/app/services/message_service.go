package services

import (
	"context"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"
	"github.com/yigit/communityhub/internal/app/auth"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/app/notifications"
	"github.com/yigit/communityhub/internal/app/repositories"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
	"github.com/yigit/communityhub/internal/pkg/feed"
	"github.com/yigit/communityhub/internal/pkg/metrics"
)

// MessageStore opens units of work for private messages
type MessageStore interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.MessageTx) error) error
	Reader() repositories.MessageTx
}

// MessageService defines private messages between members of a community
type MessageService interface {
	Send(ctx context.Context, communityID, senderID, recipientID int64, text string) (*models.Message, error)
	Reply(ctx context.Context, parentID, userID int64, text string) (*models.Message, error)
	Get(ctx context.Context, id, userID int64) (*models.Message, error)
	Delete(ctx context.Context, id, userID int64) error
	Inbox(ctx context.Context, communityID, userID int64, page, size int) (*feed.Page, error)
	Outbox(ctx context.Context, communityID, userID int64, page, size int) (*feed.Page, error)
}

// messageServiceImpl implements MessageService
type messageServiceImpl struct {
	store      MessageStore
	blocks     BlockChecker
	aggregator *feed.Aggregator
	engine     *notifications.Engine
	dispatcher NotificationDispatcher
	authz      *auth.AuthorizationService
	limits     FeedLimits
	logger     zerolog.Logger
	now        func() time.Time
}

// NewMessageService creates a new MessageService
func NewMessageService(
	store MessageStore,
	blocks BlockChecker,
	index feed.Index,
	hydrator *feed.Hydrator,
	engine *notifications.Engine,
	dispatcher NotificationDispatcher,
	authz *auth.AuthorizationService,
	limits FeedLimits,
	logger zerolog.Logger,
) MessageService {
	return &messageServiceImpl{
		store:      store,
		blocks:     blocks,
		aggregator: feed.NewAggregator(index, hydrator),
		engine:     engine,
		dispatcher: dispatcher,
		authz:      authz,
		limits:     limits.normalized(),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// write runs fn with the bulk insert of its notifications and dispatches them
// once committed. Inboxes fn reports as purged are invalidated afterwards.
func (s *messageServiceImpl) write(ctx context.Context, op string, fn func(ctx context.Context, tx repositories.MessageTx) ([]models.Notification, []models.InboxRef, error)) error {
	var created []models.Notification
	var purged []models.InboxRef
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.MessageTx) error {
		ns, inboxes, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		if err := tx.InsertNotifications(ctx, ns); err != nil {
			return err
		}
		created, purged = ns, inboxes
		return nil
	})
	metrics.Transition(op, err)
	if err != nil {
		s.logger.Debug().Err(err).Str("operation", op).Msg("Message change rejected or rolled back")
		return apperrors.NewStorageError(err)
	}
	s.dispatcher.Invalidate(ctx, purged)
	s.dispatcher.Dispatch(ctx, created)
	return nil
}

// validateParties checks both users belong to the community and are not in a block relation
func (s *messageServiceImpl) validateParties(ctx context.Context, communityID, senderID, recipientID int64) error {
	if senderID == recipientID {
		return apperrors.NewBadRequestError("users cannot message themselves")
	}
	if err := s.authz.ValidateMember(ctx, communityID, senderID); err != nil {
		return err
	}
	if err := s.authz.ValidateMember(ctx, communityID, recipientID); err != nil {
		return err
	}
	blocked, err := s.blocks.BlockRelations(ctx, senderID)
	if err != nil {
		return apperrors.NewStorageError(err)
	}
	for _, id := range blocked {
		if id == recipientID {
			return apperrors.NewForbiddenError("cannot message a blocked user")
		}
	}
	return nil
}

func messageText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.NewBadRequestError("message cannot be empty")
	}
	return text, nil
}

func (s *messageServiceImpl) deliver(ctx context.Context, tx repositories.MessageTx, m *models.Message, verb models.Verb) ([]models.Notification, []models.InboxRef, error) {
	if err := tx.InsertMessage(ctx, m); err != nil {
		return nil, nil, err
	}
	n, err := s.engine.OnMessage(ctx, m, verb)
	if err != nil || n == nil {
		return nil, nil, err
	}
	return []models.Notification{*n}, nil, nil
}

// Send starts a new conversation
func (s *messageServiceImpl) Send(ctx context.Context, communityID, senderID, recipientID int64, text string) (*models.Message, error) {
	text, err := messageText(text)
	if err != nil {
		return nil, err
	}
	if err := s.validateParties(ctx, communityID, senderID, recipientID); err != nil {
		return nil, err
	}

	m := &models.Message{
		CommunityID: communityID,
		SenderID:    senderID,
		RecipientID: recipientID,
		Message:     text,
		CreatedAt:   s.now(),
	}
	err = s.write(ctx, "message_send", func(ctx context.Context, tx repositories.MessageTx) ([]models.Notification, []models.InboxRef, error) {
		return s.deliver(ctx, tx, m, models.VerbSend)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("messageID", m.ID).Int64("senderID", senderID).Int64("recipientID", recipientID).Msg("Message sent")
	return m, nil
}

// Reply answers a message to its other party. Answering a received message
// notifies with a reply; writing again under one's own message is a follow up.
func (s *messageServiceImpl) Reply(ctx context.Context, parentID, userID int64, text string) (*models.Message, error) {
	text, err := messageText(text)
	if err != nil {
		return nil, err
	}

	var m *models.Message
	err = s.write(ctx, "message_reply", func(ctx context.Context, tx repositories.MessageTx) ([]models.Notification, []models.InboxRef, error) {
		parent, err := tx.GetMessage(ctx, parentID)
		if err != nil {
			return nil, nil, err
		}
		if !parent.AccessibleTo(userID) {
			return nil, nil, apperrors.ErrMessageNotFound
		}
		recipientID := parent.OtherParty(userID)
		if err := s.validateParties(ctx, parent.CommunityID, userID, recipientID); err != nil {
			return nil, nil, err
		}

		verb := models.VerbFollowUp
		if userID == parent.RecipientID {
			verb = models.VerbReply
		}
		m = &models.Message{
			CommunityID: parent.CommunityID,
			SenderID:    userID,
			RecipientID: recipientID,
			ParentID:    &parent.ID,
			Message:     text,
			CreatedAt:   s.now(),
		}
		return s.deliver(ctx, tx, m, verb)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Get returns a message to one of its parties, marking it read for the recipient
func (s *messageServiceImpl) Get(ctx context.Context, id, userID int64) (*models.Message, error) {
	reader := s.store.Reader()
	m, err := reader.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.AccessibleTo(userID) {
		return nil, apperrors.ErrMessageNotFound
	}
	if m.RecipientID == userID && m.ReadAt == nil {
		now := s.now()
		if err := reader.MarkMessageRead(ctx, m.ID, now); err != nil {
			return nil, apperrors.NewStorageError(err)
		}
		m.ReadAt = &now
	}
	return m, nil
}

// Delete hides the message for userID and removes it once both parties did.
// The recipient hiding it also drops the notification about it.
func (s *messageServiceImpl) Delete(ctx context.Context, id, userID int64) error {
	return s.write(ctx, "message_delete", func(ctx context.Context, tx repositories.MessageTx) ([]models.Notification, []models.InboxRef, error) {
		m, err := tx.GetMessage(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if !m.AccessibleTo(userID) {
			return nil, nil, apperrors.ErrMessageNotFound
		}

		now := s.now()
		if userID == m.SenderID {
			m.SenderDeletedAt = &now
		} else {
			m.RecipientDeletedAt = &now
		}

		var purged []models.InboxRef
		if m.RecipientDeletedAt != nil {
			if purged, err = tx.DeleteNotifications(ctx, m.ID); err != nil {
				return nil, nil, err
			}
		}
		if m.SenderDeletedAt != nil && m.RecipientDeletedAt != nil {
			return nil, purged, tx.DeleteMessage(ctx, m.ID)
		}
		return nil, purged, tx.HideMessage(ctx, m)
	})
}

func (s *messageServiceImpl) box(ctx context.Context, stream string, communityID, userID int64, party, other string, page, size int) (*feed.Page, error) {
	if err := s.authz.ValidateMember(ctx, communityID, userID); err != nil {
		return nil, err
	}

	src := repositories.NewMessageSource().
		Where(squirrel.Eq{"a.community_id": communityID, "a." + party + "_id": userID}).
		Where(squirrel.Expr("a." + party + "_deleted_at IS NULL")).
		Where(notBlockedWith("a."+other+"_id", userID)).
		OrderBy(FieldCreated)

	done := metrics.ObserveFeedPage(stream)
	p, err := s.aggregator.Page(ctx, []feed.RecordSource{src}, feed.OrderSpec{Fields: []string{FieldCreated}},
		feed.PageRequest{Number: page, Size: s.limits.clamp(size)})
	if err != nil {
		s.logger.Error().Err(err).Str("stream", stream).Msg("Failed to build message page")
		done(0)
		return nil, err
	}
	done(len(p.Items))
	return p, nil
}

// Inbox lists received messages the user kept, newest first
func (s *messageServiceImpl) Inbox(ctx context.Context, communityID, userID int64, page, size int) (*feed.Page, error) {
	return s.box(ctx, "inbox", communityID, userID, "recipient", "sender", page, size)
}

// Outbox lists sent messages the user kept, newest first
func (s *messageServiceImpl) Outbox(ctx context.Context, communityID, userID int64, page, size int) (*feed.Page, error) {
	return s.box(ctx, "outbox", communityID, userID, "sender", "recipient", page, size)
}
