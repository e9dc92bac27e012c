package notifications

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/communityhub/internal/app/models"
)

// ErrNotReshare is returned by OnReshare for an activity that is not a reshare
var ErrNotReshare = errors.New("activity is not a reshare")

// Engine computes the notifications a lifecycle transition produces. It never
// persists; callers write the result in bulk inside the transition's
// transaction.
type Engine struct {
	dir    Directory
	logger zerolog.Logger
	now    func() time.Time
}

// NewEngine creates an Engine reading relations from dir
func NewEngine(dir Directory, logger zerolog.Logger) *Engine {
	return &Engine{
		dir:    dir,
		logger: logger,
		now:    time.Now,
	}
}

// fanout collects candidates in precedence order and keeps the first per recipient
type fanout struct {
	seen  map[int64]struct{}
	items []models.Notification
}

func newFanout() *fanout {
	return &fanout{seen: make(map[int64]struct{})}
}

func (f *fanout) add(n models.Notification) {
	if _, dup := f.seen[n.RecipientID]; dup {
		return
	}
	f.seen[n.RecipientID] = struct{}{}
	f.items = append(f.items, n)
}

func (f *fanout) recipients() []int64 {
	ids := make([]int64, 0, len(f.seen))
	for id := range f.seen {
		ids = append(ids, id)
	}
	return ids
}

func (e *Engine) about(a *models.Activity, recipient, actor int64, verb models.Verb) models.Notification {
	return models.Notification{
		RecipientID: recipient,
		ActorID:     actor,
		CommunityID: a.CommunityID,
		Verb:        verb,
		ObjectType:  string(a.Type),
		ObjectID:    a.ID,
		CreatedAt:   e.now(),
	}
}

func (e *Engine) addRole(ctx context.Context, f *fanout, r *Resolver, a *models.Activity, role Role, actor int64) error {
	ids, err := r.Resolve(ctx, a, role, f.recipients()...)
	if err != nil {
		return err
	}
	for _, id := range ids {
		f.add(e.about(a, id, actor, role.Verb()))
	}
	return nil
}

func hasTaggableText(a *models.Activity) bool {
	return strings.TrimSpace(a.Description) != "" || strings.TrimSpace(a.Hashtags) != ""
}

// OnPublish returns notifications for a newly published activity: the parent
// owner of a reshare, then mentioned users, tag followers and followers of the
// owner. Each recipient appears once under the first role that matched.
func (e *Engine) OnPublish(ctx context.Context, a *models.Activity) ([]models.Notification, error) {
	if a.State() != models.StatePublished {
		return nil, nil
	}
	r := NewResolver(NewLookup(e.dir))
	f := newFanout()

	roles := []Role{RoleParentOwner, RoleMentioned}
	if hasTaggableText(a) {
		roles = append(roles, RoleTagFollower)
	}
	roles = append(roles, RoleUserFollower)

	for _, role := range roles {
		if err := e.addRole(ctx, f, r, a, role, a.OwnerID); err != nil {
			return nil, err
		}
	}

	e.logger.Debug().
		Str("activity", a.Ref().String()).
		Int("notifications", len(f.items)).
		Msg("Computed publish notifications")
	return f.items, nil
}

// OnReshare returns notifications for a freshly created reshare. The owner of
// the original takes precedence over every other role.
func (e *Engine) OnReshare(ctx context.Context, reshare *models.Activity) ([]models.Notification, error) {
	if !reshare.IsReshare || reshare.ParentID == nil {
		return nil, ErrNotReshare
	}
	return e.OnPublish(ctx, reshare)
}

// OnUpdate returns notifications for an edit of a published activity. Mentions
// and tag followers are only resolved when the fields they derive from
// changed since before. An edit by someone other than the owner always
// notifies the owner.
func (e *Engine) OnUpdate(ctx context.Context, a *models.Activity, before models.TrackedFields) ([]models.Notification, error) {
	if a.State() != models.StatePublished {
		return nil, nil
	}
	r := NewResolver(NewLookup(e.dir))
	f := newFanout()

	actor := a.OwnerID
	if a.EditorID != nil {
		actor = *a.EditorID
	}

	current := a.Snapshot()
	if before.MentionsChanged(current) {
		if err := e.addRole(ctx, f, r, a, RoleMentioned, actor); err != nil {
			return nil, err
		}
	}
	if before.HashtagsChanged(current) && hasTaggableText(a) {
		if err := e.addRole(ctx, f, r, a, RoleTagFollower, actor); err != nil {
			return nil, err
		}
	}
	if a.EditorID != nil && *a.EditorID != a.OwnerID {
		f.add(e.about(a, a.OwnerID, *a.EditorID, models.VerbEdit))
	}

	e.logger.Debug().
		Str("activity", a.Ref().String()).
		Int("notifications", len(f.items)).
		Msg("Computed update notifications")
	return f.items, nil
}

// OnDelete returns the notification telling the owner that actorID removed
// their activity, or nil when the owner deleted it themselves.
func (e *Engine) OnDelete(ctx context.Context, a *models.Activity, actorID int64) (*models.Notification, error) {
	if actorID == a.OwnerID {
		return nil, nil
	}
	n := e.about(a, a.OwnerID, actorID, models.VerbDelete)
	return &n, nil
}

// OnVote returns the notification telling the poll owner about a vote, or nil
// for the owner's own vote or a voter in a block relation with the owner.
func (e *Engine) OnVote(ctx context.Context, poll *models.Activity, voterID int64) (*models.Notification, error) {
	if voterID == poll.OwnerID {
		return nil, nil
	}
	blocked, err := NewLookup(e.dir).IsBlocked(ctx, poll.OwnerID, voterID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, nil
	}
	n := e.about(poll, poll.OwnerID, voterID, models.VerbVote)
	return &n, nil
}

// OnFollow returns the notification telling followedID about a new follower.
// Self follows and follows across a block produce nothing.
func (e *Engine) OnFollow(ctx context.Context, followerID, followedID, communityID int64) (*models.Notification, error) {
	if followerID == followedID {
		return nil, nil
	}
	blocked, err := NewLookup(e.dir).IsBlocked(ctx, followedID, followerID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, nil
	}
	return &models.Notification{
		RecipientID: followedID,
		ActorID:     followerID,
		CommunityID: communityID,
		Verb:        models.VerbNewFollower,
		ObjectType:  models.ObjectTypeUser,
		ObjectID:    followerID,
		CreatedAt:   e.now(),
	}, nil
}

// OnJoin returns notifications telling existing members about a new member
func (e *Engine) OnJoin(ctx context.Context, userID, communityID int64) ([]models.Notification, error) {
	l := NewLookup(e.dir)
	members, err := l.memberSet(ctx, communityID)
	if err != nil {
		return nil, err
	}
	blocked, err := l.blockSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	var out []models.Notification
	for _, id := range sortedIDs(members) {
		if id == userID || blocked.has(id) {
			continue
		}
		out = append(out, models.Notification{
			RecipientID: id,
			ActorID:     userID,
			CommunityID: communityID,
			Verb:        models.VerbNewMember,
			ObjectType:  models.ObjectTypeUser,
			ObjectID:    userID,
			CreatedAt:   e.now(),
		})
	}
	return out, nil
}

// OnFlag returns notifications telling moderators that flaggerID reported a
func (e *Engine) OnFlag(ctx context.Context, a *models.Activity, flaggerID int64) ([]models.Notification, error) {
	r := NewResolver(NewLookup(e.dir))
	ids, err := r.Resolve(ctx, a, RoleModerator, flaggerID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Notification, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.about(a, id, flaggerID, models.VerbFlag))
	}
	return out, nil
}

// CommentThread is the context a new comment is posted into
type CommentThread struct {
	Activity *models.Activity
	// Parent is the comment being answered, if any
	Parent *models.Comment
	// Commenters are the owners of earlier comments on the activity
	Commenters []int64
}

func (e *Engine) aboutComment(c *models.Comment, recipient int64, verb models.Verb) models.Notification {
	return models.Notification{
		RecipientID: recipient,
		ActorID:     c.OwnerID,
		CommunityID: c.CommunityID,
		Verb:        verb,
		ObjectType:  models.ObjectTypeComment,
		ObjectID:    c.ID,
		CreatedAt:   e.now(),
	}
}

// OnComment returns notifications for a new comment: mentioned users, the
// activity owner, the owner of the answered comment, earlier commenters and
// followers of the commenter, in that precedence. Recipients must be members
// outside any block relation with the commenter.
func (e *Engine) OnComment(ctx context.Context, c *models.Comment, thread CommentThread) ([]models.Notification, error) {
	a := thread.Activity
	if a == nil || a.State() != models.StatePublished {
		return nil, nil
	}
	l := NewLookup(e.dir)
	members, err := l.memberSet(ctx, c.CommunityID)
	if err != nil {
		return nil, err
	}
	blocked, err := l.blockSet(ctx, c.OwnerID)
	if err != nil {
		return nil, err
	}

	f := newFanout()
	add := func(ids []int64, verb models.Verb) {
		for _, id := range ids {
			if id == c.OwnerID || !members.has(id) || blocked.has(id) {
				continue
			}
			f.add(e.aboutComment(c, id, verb))
		}
	}

	mentioned, err := mentionedUsers(ctx, e.dir, c.ExtractMentions())
	if err != nil {
		return nil, err
	}
	add(mentioned, models.VerbMention)
	add([]int64{a.OwnerID}, models.VerbNewComment)
	if thread.Parent != nil {
		add([]int64{thread.Parent.OwnerID}, models.VerbReply)
	}
	add(sortedIDs(newUserSet(thread.Commenters)), models.VerbNewSibling)

	followers, err := l.followersOf(ctx, c.OwnerID)
	if err != nil {
		return nil, err
	}
	add(sortedIDs(newUserSet(followers)), models.VerbFollowedUser)

	e.logger.Debug().
		Int64("commentID", c.ID).
		Int("notifications", len(f.items)).
		Msg("Computed comment notifications")
	return f.items, nil
}

// OnMessage returns the notification telling the recipient about a private
// message, or nil when sender and recipient are in a block relation.
func (e *Engine) OnMessage(ctx context.Context, m *models.Message, verb models.Verb) (*models.Notification, error) {
	if m.SenderID == m.RecipientID {
		return nil, nil
	}
	blocked, err := NewLookup(e.dir).IsBlocked(ctx, m.RecipientID, m.SenderID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, nil
	}
	return &models.Notification{
		RecipientID: m.RecipientID,
		ActorID:     m.SenderID,
		CommunityID: m.CommunityID,
		Verb:        verb,
		ObjectType:  models.ObjectTypeMessage,
		ObjectID:    m.ID,
		CreatedAt:   e.now(),
	}, nil
}
