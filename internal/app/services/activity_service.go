package services

import (
	"context"
	"fmt"
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

// ActivityStore opens units of work for lifecycle transitions
type ActivityStore interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.ActivityTx) error) error
	Reader() repositories.ActivityTx
}

// NotificationDispatcher delivers notifications after they were committed
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, ns []models.Notification)
	// Invalidate drops cached unread counts of inboxes changed by deletions
	Invalidate(ctx context.Context, inboxes []models.InboxRef)
}

// ActivityFields are the user editable fields of an activity. A nil Details
// keeps the stored payload.
type ActivityFields struct {
	Title       string
	Description string
	Hashtags    string
	Mentions    string
	Details     models.Details
}

// CreateActivityInput describes a new activity
type CreateActivityInput struct {
	Type        models.ActivityType
	CommunityID int64
	Fields      ActivityFields
	// Answers are the choices of a new poll, in display order
	Answers []string
	// Publish saves the activity as a draft when false
	Publish bool
}

// ActivityService defines the lifecycle of posts, events, photos and polls
type ActivityService interface {
	Create(ctx context.Context, userID int64, in CreateActivityInput) (*models.Activity, error)
	Get(ctx context.Context, ref models.ActivityRef, viewerID int64) (*models.Activity, error)
	Publish(ctx context.Context, ref models.ActivityRef, userID int64) (*models.Activity, error)
	Edit(ctx context.Context, ref models.ActivityRef, editorID int64, fields ActivityFields, publish bool) (*models.Activity, error)
	Reshare(ctx context.Context, ref models.ActivityRef, userID int64) (*models.Activity, error)
	SoftDelete(ctx context.Context, ref models.ActivityRef, actorID int64) error
	HardDelete(ctx context.Context, ref models.ActivityRef, ownerID int64) error
	Vote(ctx context.Context, pollID, answerID, voterID int64) (*models.Activity, error)
	Pin(ctx context.Context, ref models.ActivityRef, userID int64) error
	Unpin(ctx context.Context, ref models.ActivityRef, userID int64) error
	Flag(ctx context.Context, ref models.ActivityRef, userID int64, reason string) error
	Like(ctx context.Context, ref models.ActivityRef, userID int64, liked bool) error
	Bookmark(ctx context.Context, ref models.ActivityRef, userID int64, bookmarked bool) error
	Comment(ctx context.Context, ref models.ActivityRef, userID int64, content string, parentID *int64) (*models.Comment, error)
	Comments(ctx context.Context, ref models.ActivityRef, viewerID int64) ([]models.Comment, error)
}

// activityServiceImpl implements ActivityService
type activityServiceImpl struct {
	store      ActivityStore
	engine     *notifications.Engine
	dispatcher NotificationDispatcher
	authz      *auth.AuthorizationService
	logger     zerolog.Logger
	now        func() time.Time
}

// NewActivityService creates a new ActivityService
func NewActivityService(
	store ActivityStore,
	engine *notifications.Engine,
	dispatcher NotificationDispatcher,
	authz *auth.AuthorizationService,
	logger zerolog.Logger,
) ActivityService {
	return &activityServiceImpl{
		store:      store,
		engine:     engine,
		dispatcher: dispatcher,
		authz:      authz,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// transition runs fn as one unit of work together with the bulk insert of the
// notifications it returns, then dispatches them once committed.
func (s *activityServiceImpl) transition(ctx context.Context, op string, fn func(ctx context.Context, tx repositories.ActivityTx) ([]models.Notification, error)) error {
	var created []models.Notification
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.ActivityTx) error {
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
		s.logger.Debug().Err(err).Str("operation", op).Msg("Activity transition rejected or rolled back")
		return apperrors.NewStorageError(err)
	}

	s.dispatcher.Dispatch(ctx, created)
	return nil
}

// live loads an activity and rejects it when deleted
func live(ctx context.Context, tx repositories.ActivityTx, ref models.ActivityRef) (*models.Activity, error) {
	a, err := tx.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if a.State() == models.StateDeleted {
		return nil, apperrors.NewInvalidStateError("activity is deleted")
	}
	return a, nil
}

// published loads an activity and rejects it unless published
func published(ctx context.Context, tx repositories.ActivityTx, ref models.ActivityRef) (*models.Activity, error) {
	a, err := live(ctx, tx, ref)
	if err != nil {
		return nil, err
	}
	if a.State() != models.StatePublished {
		return nil, apperrors.NewInvalidStateError("activity is not published")
	}
	return a, nil
}

// recomputeMarkup rewrites the hashtags and mentions fields from every text field
func recomputeMarkup(a *models.Activity) {
	a.Hashtags = joinPrefixed("#", a.ExtractHashtags())
	a.Mentions = joinPrefixed("@", a.ExtractMentions())
}

func joinPrefixed(prefix string, values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = prefix + v
	}
	return strings.Join(parts, " ")
}

func applyFields(a *models.Activity, f ActivityFields) error {
	if f.Details != nil {
		if f.Details.Kind() != a.Type {
			return apperrors.NewBadRequestError(fmt.Sprintf("details of a %s cannot be stored on a %s", f.Details.Kind(), a.Type))
		}
		a.Details = f.Details
	}
	a.Title = f.Title
	a.Description = f.Description
	a.Hashtags = f.Hashtags
	a.Mentions = f.Mentions
	return nil
}

// Create stores a new activity, publishing it right away when asked
func (s *activityServiceImpl) Create(ctx context.Context, userID int64, in CreateActivityInput) (*models.Activity, error) {
	if !in.Type.Valid() {
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("unknown activity type %q", in.Type))
	}
	if in.Type == models.ActivityTypePoll && len(in.Answers) < 2 {
		return nil, apperrors.NewBadRequestError("a poll needs at least two answers")
	}
	if err := s.authz.ValidateMember(ctx, in.CommunityID, userID); err != nil {
		return nil, err
	}

	a := &models.Activity{
		Type:        in.Type,
		OwnerID:     userID,
		CommunityID: in.CommunityID,
	}
	if err := applyFields(a, in.Fields); err != nil {
		return nil, err
	}
	if a.Details == nil {
		details, err := models.DecodeDetails(a.Type, nil)
		if err != nil {
			return nil, err
		}
		a.Details = details
	}
	recomputeMarkup(a)

	now := s.now()
	a.CreatedAt = now
	if in.Publish {
		a.PublishedAt = &now
	}

	op := "create_draft"
	if in.Publish {
		op = "publish"
	}
	err := s.transition(ctx, op, func(ctx context.Context, tx repositories.ActivityTx) ([]models.Notification, error) {
		if err := tx.Insert(ctx, a); err != nil {
			return nil, err
		}
		if a.Type == models.ActivityTypePoll {
			answers, err := tx.InsertAnswers(ctx, a.ID, in.Answers)
			if err != nil {
				return nil, err
			}
			a.Answers = answers
		}
		if !in.Publish {
			return nil, nil
		}
		if err := tx.Reindex(ctx, a.Ref()); err != nil {
			return nil, err
		}
		return s.engine.OnPublish(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("activity", a.Ref().String()).Int64("ownerID", userID).Str("state", string(a.State())).Msg("Activity created")
	return a, nil
}

// Get returns an activity visible to the viewer. Drafts are visible to their
// owner only; deleted activities to moderators only.
func (s *activityServiceImpl) Get(ctx context.Context, ref models.ActivityRef, viewerID int64) (*models.Activity, error) {
	a, err := s.store.Reader().GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.authz.ValidateMember(ctx, a.CommunityID, viewerID); err != nil {
		return nil, err
	}

	switch a.State() {
	case models.StateDraft:
		if !a.IsOwner(viewerID) {
			return nil, apperrors.ErrActivityNotFound
		}
	case models.StateDeleted:
		ok, err := s.authz.CanModerate(ctx, a.CommunityID, viewerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.ErrActivityNotFound
		}
	}
	return a, nil
}

// Publish moves a draft to the published state
func (s *activityServiceImpl) Publish(ctx context.Context, ref models.ActivityRef, userID int64) (*models.Activity, error) {
	var result *models.Activity
	err := s.transition(ctx, "publish", func(ctx context.Context, tx repositories.ActivityTx) ([]models.Notification, error) {
		a, err := live(ctx, tx, ref)
		if err != nil {
			return nil, err
		}
		if err := s.authz.ValidateOwner(a, userID); err != nil {
			return nil, err
		}
		if a.State() != models.StateDraft {
			return nil, apperrors.NewInvalidStateError("only drafts can be published")
		}
		result = a
		return s.publishDraft(ctx, tx, a)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *activityServiceImpl) publishDraft(ctx context.Context, tx repositories.ActivityTx, a *models.Activity) ([]models.Notification, error) {
	now := s.now()
	a.PublishedAt = &now
	if err := tx.Update(ctx, a); err != nil {
		return nil, err
	}
	if err := tx.Reindex(ctx, a.Ref()); err != nil {
		return nil, err
	}
	return s.engine.OnPublish(ctx, a)
}

// Edit replaces the editable fields. A published activity notifies about the
// changed fields and pushes them to its reshares; a draft is saved again, or
// published when publish is set.
func (s *activityServiceImpl) Edit(ctx context.Context, ref models.ActivityRef, editorID int64, fields ActivityFields, publish bool) (*models.Activity, error) {
	var result *models.Activity
	err := s.transition(ctx, "edit", func(ctx context.Context, tx repositories.ActivityTx) ([]models.Notification, error) {
		a, err := live(ctx, tx, ref)
		if err != nil {
			return nil, err
		}
		if a.IsReshare {
			return nil, apperrors.NewInvalidStateError("reshares cannot be edited")
		}

		wasDraft := a.State() == models.StateDraft
		if wasDraft {
			err = s.authz.ValidateOwner(a, editorID)
		} else {
			err = s.authz.ValidateOwnerOrModerator(ctx, a, editorID)
		}
		if err != nil {
			return nil, err
		}

		before := a.Snapshot()
		if err := applyFields(a, fields); err != nil {
			return nil, err
		}
		if before != a.Snapshot() {
			recomputeMarkup(a)
		}
		now := s.now()
		if editorID != a.OwnerID {
			a.EditorID = &editorID
		}
		a.EditedAt = &now
		result = a

		if wasDraft {
			if publish {
				return s.publishDraft(ctx, tx, a)
			}
			return nil, tx.Update(ctx, a)
		}

		if err := tx.Update(ctx, a); err != nil {
			return nil, err
		}
		if _, err := tx.CopyToReshares(ctx, a); err != nil {
			return nil, err
		}
		if err := tx.Reindex(ctx, a.Ref()); err != nil {
			return nil, err
		}
		return s.engine.OnUpdate(ctx, a, before)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reshare creates a published copy of an activity for userID. The copy always
// points at the original, never at an intermediate reshare.
func (s *activityServiceImpl) Reshare(ctx context.Context, ref models.ActivityRef, userID int64) (*models.Activity, error) {
	var reshare *models.Activity
	err := s.transition(ctx, "reshare", func(ctx context.Context, tx repositories.ActivityTx) ([]models.Notification, error) {
		root, err := published(ctx, tx, ref)
		if err != nil {
			return nil, err
		}
		if root.IsReshare {
			if root.ParentID == nil {
				return nil, apperrors.NewInvalidStateError("the original of this reshare no longer exists")
			}
			if root, err = published(ctx, tx, models.ActivityRef{Type: ref.Type, ID: *root.ParentID}); err != nil {
				return nil, err
			}
		}

		if err := s.authz.ValidateMember(ctx, root.CommunityID, userID); err != nil {
			return nil, err
		}
		if root.IsOwner(userID) {
			return nil, apperrors.NewInvalidStateError("you cannot reshare your own activity")
		}
		done, err := tx.HasReshared(ctx, root.Type, root.ID, userID)
		if err != nil {
			return nil, err
		}
		if done {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidState, apperrors.ErrAlreadyReshared)
		}

		now := s.now()
		reshare = &models.Activity{
			Type:          root.Type,
			OwnerID:       userID,
			CommunityID:   root.CommunityID,
			CreatedAt:     now,
			PublishedAt:   &now,
			ParentID:      &root.ID,
			IsReshare:     true,
			ParentOwnerID: &root.OwnerID,
		}
		root.CopyResharedFields(reshare)

		if err := tx.Insert(ctx, reshare); err != nil {
			return nil, err
		}
		if err := tx.Reindex(ctx, reshare.Ref()); err != nil {
			return nil, err
		}
		return s.engine.OnReshare(ctx, reshare)
	})
	if err != nil {
		return nil, err
	}
	return reshare, nil
}

// cascade removes what depends on an activity and detaches its comments. It
// returns the inboxes whose unread entries were removed.
func cascade(ctx context.Context, tx repositories.ActivityTx, ref models.ActivityRef) ([]models.InboxRef, error) {
	steps := []func(context.Context, models.ActivityRef) error{
		tx.DetachComments,
		tx.DeleteLikes,
		tx.DeleteBookmarks,
		tx.DeleteFlags,
	}
	for _, step := range steps {
		if err := step(ctx, ref); err != nil {
			return nil, err
		}
	}
	return tx.DeleteNotifications(ctx, ref)
}

// SoftDelete marks a published activity deleted. Only a moderator acting on
// someone else's activity produces a notification.
func (s *activityServiceImpl) SoftDelete(ctx context.Context, ref models.ActivityRef, actorID int64) error {
	var purged []models.InboxRef
	err := s.transition(ctx, "soft_delete", func(ctx context.Context, tx repositories.ActivityTx) ([]models.Notification, error) {
		a, err := published(ctx, tx, ref)
		if err != nil {
			return nil, err
		}
		if err := s.authz.ValidateOwnerOrModerator(ctx, a, actorID); err != nil {
			return nil, err
		}

		now := s.now()
		a.DeletedAt = &now
		a.PublishedAt = nil
		a.IsPinned = false
		if err := tx.Update(ctx, a); err != nil {
			return nil, err
		}
		if purged, err = cascade(ctx, tx, a.Ref()); err != nil {
			return nil, err
		}
		if err := tx.Reindex(ctx, a.Ref()); err != nil {
			return nil, err
		}

		n, err := s.engine.OnDelete(ctx, a, actorID)
		if err != nil || n == nil {
			return nil, err
		}
		return []models.Notification{*n}, nil
	})
	if err != nil {
		return err
	}
	s.dispatcher.Invalidate(ctx, purged)
	return nil
}

// HardDelete removes an activity of the owner in any state
func (s *activityServiceImpl) HardDelete(ctx context.Context, ref models.ActivityRef, ownerID int64) error {
	var purged []models.InboxRef
	err := s.transition(ctx, "hard_delete", func(ctx context.Context, tx repositories.ActivityTx) ([]models.Notification, error) {
		a, err := tx.GetByRef(ctx, ref)
		if err != nil {
			return nil, err
		}
		if err := s.authz.ValidateOwner(a, ownerID); err != nil {
			return nil, err
		}
		if purged, err = cascade(ctx, tx, ref); err != nil {
			return nil, err
		}
		return nil, tx.Delete(ctx, ref)
	})
	if err != nil {
		return err
	}
	s.dispatcher.Invalidate(ctx, purged)
	return nil
}

// Vote records the voter's single answer on a published poll. Only the first
// vote of a voter on a poll notifies the owner.
func (s *activityServiceImpl) Vote(ctx context.Context, pollID, answerID, voterID int64) (*models.Activity, error) {
	var poll *models.Activity
	err := s.transition(ctx, "vote", func(ctx context.Context, tx repositories.ActivityTx) ([]models.Notification, error) {
		p, err := published(ctx, tx, models.ActivityRef{Type: models.ActivityTypePoll, ID: pollID})
		if err != nil {
			return nil, err
		}
		if p.IsReshare && p.ParentID != nil {
			if p, err = published(ctx, tx, models.ActivityRef{Type: models.ActivityTypePoll, ID: *p.ParentID}); err != nil {
				return nil, err
			}
		}
		if d, ok := p.Details.(models.PollDetails); ok && !d.AllowVoting {
			return nil, apperrors.NewInvalidStateError("voting is closed on this poll")
		}
		if err := s.authz.ValidateMember(ctx, p.CommunityID, voterID); err != nil {
			return nil, err
		}

		answer, err := tx.GetAnswer(ctx, answerID)
		if err != nil {
			return nil, err
		}
		if answer.PollID != p.ID {
			return nil, apperrors.ErrAnswerNotFound
		}

		hadVoted, err := tx.RecordVote(ctx, p.ID, answerID, voterID)
		if err != nil {
			return nil, err
		}
		if poll, err = tx.GetByRef(ctx, p.Ref()); err != nil {
			return nil, err
		}
		if hadVoted {
			return nil, nil
		}

		n, err := s.engine.OnVote(ctx, p, voterID)
		if err != nil || n == nil {
			return nil, err
		}
		return []models.Notification{*n}, nil
	})
	if err != nil {
		return nil, err
	}
	return poll, nil
}

// Pin makes the activity the single pinned activity of its community
func (s *activityServiceImpl) Pin(ctx context.Context, ref models.ActivityRef, userID int64) error {
	return s.transition(ctx, "pin", func(ctx context.Context, tx repositories.ActivityTx) ([]models.Notification, error) {
		a, err := published(ctx, tx, ref)
		if err != nil {
			return nil, err
		}
		if err := s.authz.ValidateModerator(ctx, a.CommunityID, userID); err != nil {
			return nil, err
		}
		if err := tx.UnpinAll(ctx, a.CommunityID); err != nil {
			return nil, err
		}
		a.IsPinned = true
		return nil, tx.Update(ctx, a)
	})
}

// Unpin clears the pinned flag
func (s *activityServiceImpl) Unpin(ctx context.Context, ref models.ActivityRef, userID int64) error {
	return s.transition(ctx, "unpin", func(ctx context.Context, tx repositories.ActivityTx) ([]models.Notification, error) {
		a, err := live(ctx, tx, ref)
		if err != nil {
			return nil, err
		}
		if err := s.authz.ValidateModerator(ctx, a.CommunityID, userID); err != nil {
			return nil, err
		}
		a.IsPinned = false
		return nil, tx.Update(ctx, a)
	})
}

// Flag reports an activity to the moderators. Repeated flags by the same user
// are ignored.
func (s *activityServiceImpl) Flag(ctx context.Context, ref models.ActivityRef, userID int64, reason string) error {
	return s.transition(ctx, "flag", func(ctx context.Context, tx repositories.ActivityTx) ([]models.Notification, error) {
		a, err := published(ctx, tx, ref)
		if err != nil {
			return nil, err
		}
		if err := s.authz.ValidateMember(ctx, a.CommunityID, userID); err != nil {
			return nil, err
		}
		created, err := tx.AddFlag(ctx, &models.Flag{Activity: ref, UserID: userID, Reason: reason, CreatedAt: s.now()})
		if err != nil || !created {
			return nil, err
		}
		return s.engine.OnFlag(ctx, a, userID)
	})
}

// Like adds or removes the user's like
func (s *activityServiceImpl) Like(ctx context.Context, ref models.ActivityRef, userID int64, liked bool) error {
	return s.react(ctx, ref, userID, func(tx repositories.ActivityTx) error {
		if liked {
			_, err := tx.AddLike(ctx, ref, userID)
			return err
		}
		return tx.RemoveLike(ctx, ref, userID)
	})
}

// Bookmark adds or removes the user's bookmark
func (s *activityServiceImpl) Bookmark(ctx context.Context, ref models.ActivityRef, userID int64, bookmarked bool) error {
	return s.react(ctx, ref, userID, func(tx repositories.ActivityTx) error {
		if bookmarked {
			_, err := tx.AddBookmark(ctx, ref, userID)
			return err
		}
		return tx.RemoveBookmark(ctx, ref, userID)
	})
}

func (s *activityServiceImpl) react(ctx context.Context, ref models.ActivityRef, userID int64, fn func(tx repositories.ActivityTx) error) error {
	reader := s.store.Reader()
	a, err := published(ctx, reader, ref)
	if err != nil {
		return err
	}
	if err := s.authz.ValidateMember(ctx, a.CommunityID, userID); err != nil {
		return err
	}
	if err := fn(reader); err != nil {
		return apperrors.NewStorageError(err)
	}
	return nil
}

// Comment adds a comment to a published activity, optionally in reply to
// another comment on the same activity, and notifies the thread.
func (s *activityServiceImpl) Comment(ctx context.Context, ref models.ActivityRef, userID int64, content string, parentID *int64) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewBadRequestError("comment cannot be empty")
	}

	var c *models.Comment
	err := s.transition(ctx, "comment", func(ctx context.Context, tx repositories.ActivityTx) ([]models.Notification, error) {
		a, err := published(ctx, tx, ref)
		if err != nil {
			return nil, err
		}
		if err := s.authz.ValidateMember(ctx, a.CommunityID, userID); err != nil {
			return nil, err
		}

		var parent *models.Comment
		if parentID != nil {
			if parent, err = tx.GetComment(ctx, *parentID); err != nil {
				return nil, err
			}
			if parent.ActivityID == nil || *parent.ActivityID != a.ID || parent.ActivityType != a.Type {
				return nil, apperrors.NewBadRequestError("the parent comment belongs to another activity")
			}
		}

		commenters, err := tx.CommentOwners(ctx, a.Ref())
		if err != nil {
			return nil, err
		}

		id := a.ID
		c = &models.Comment{
			OwnerID:      userID,
			CommunityID:  a.CommunityID,
			ActivityType: a.Type,
			ActivityID:   &id,
			ParentID:     parentID,
			Content:      content,
			CreatedAt:    s.now(),
		}
		if err := tx.AddComment(ctx, c); err != nil {
			return nil, err
		}
		return s.engine.OnComment(ctx, c, notifications.CommentThread{
			Activity:   a,
			Parent:     parent,
			Commenters: commenters,
		})
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Comments lists the comments of an activity visible to the viewer
func (s *activityServiceImpl) Comments(ctx context.Context, ref models.ActivityRef, viewerID int64) ([]models.Comment, error) {
	if _, err := s.Get(ctx, ref, viewerID); err != nil {
		return nil, err
	}
	return s.store.Reader().ListComments(ctx, ref)
}
