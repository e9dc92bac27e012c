package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/db"
)

// ActivityTx is the write surface of one lifecycle transition. Every method
// runs against the same transaction.
type ActivityTx interface {
	GetByRef(ctx context.Context, ref models.ActivityRef) (*models.Activity, error)
	Insert(ctx context.Context, a *models.Activity) error
	InsertAnswers(ctx context.Context, pollID int64, descriptions []string) ([]models.PollAnswer, error)
	Update(ctx context.Context, a *models.Activity) error
	Delete(ctx context.Context, ref models.ActivityRef) error
	CopyToReshares(ctx context.Context, original *models.Activity) (int64, error)
	HasReshared(ctx context.Context, t models.ActivityType, rootID, userID int64) (bool, error)
	Reindex(ctx context.Context, ref models.ActivityRef) error
	UnpinAll(ctx context.Context, communityID int64) error
	DetachComments(ctx context.Context, ref models.ActivityRef) error
	DeleteLikes(ctx context.Context, ref models.ActivityRef) error
	DeleteBookmarks(ctx context.Context, ref models.ActivityRef) error
	DeleteFlags(ctx context.Context, ref models.ActivityRef) error
	GetAnswer(ctx context.Context, answerID int64) (*models.PollAnswer, error)
	RecordVote(ctx context.Context, pollID, answerID, voterID int64) (hadVoted bool, err error)
	AddLike(ctx context.Context, ref models.ActivityRef, userID int64) (bool, error)
	RemoveLike(ctx context.Context, ref models.ActivityRef, userID int64) error
	AddBookmark(ctx context.Context, ref models.ActivityRef, userID int64) (bool, error)
	RemoveBookmark(ctx context.Context, ref models.ActivityRef, userID int64) error
	AddFlag(ctx context.Context, f *models.Flag) (bool, error)
	AddComment(ctx context.Context, c *models.Comment) error
	GetComment(ctx context.Context, id int64) (*models.Comment, error)
	ListComments(ctx context.Context, ref models.ActivityRef) ([]models.Comment, error)
	CommentOwners(ctx context.Context, ref models.ActivityRef) ([]int64, error)

	InsertNotifications(ctx context.Context, ns []models.Notification) error
	// DeleteNotifications returns the inboxes that lost unread entries
	DeleteNotifications(ctx context.Context, ref models.ActivityRef) ([]models.InboxRef, error)
}

type activityTx struct {
	*ActivityRepository
	notifications *NotificationRepository
}

func newActivityTx(q DBTX) *activityTx {
	return &activityTx{
		ActivityRepository: NewActivityRepository(q),
		notifications:      NewNotificationRepository(q),
	}
}

func (t *activityTx) InsertNotifications(ctx context.Context, ns []models.Notification) error {
	return t.notifications.InsertBatch(ctx, ns)
}

func (t *activityTx) DeleteNotifications(ctx context.Context, ref models.ActivityRef) ([]models.InboxRef, error) {
	return t.notifications.DeleteForObject(ctx, string(ref.Type), ref.ID)
}

// ActivityStore opens lifecycle units of work over the connection pool
type ActivityStore struct {
	db     *db.PostgresDB
	reader *activityTx
}

// NewActivityStore creates a new ActivityStore
func NewActivityStore(database *db.PostgresDB) *ActivityStore {
	return &ActivityStore{db: database, reader: newActivityTx(database.Pool)}
}

// WithinTx runs fn in one transaction. Nothing fn writes is kept unless it
// returns nil and the commit succeeds.
func (s *ActivityStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ActivityTx) error) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, newActivityTx(tx))
	})
}

// Reader returns the same surface bound to the pool, for reads outside a transition
func (s *ActivityStore) Reader() ActivityTx {
	return s.reader
}

// SocialTx is the write surface of graph and membership changes
type SocialTx interface {
	Follow(ctx context.Context, followerID, followedID int64) (bool, error)
	Unfollow(ctx context.Context, followerID, followedID int64) (bool, error)
	FollowTag(ctx context.Context, userID int64, tag string) (bool, error)
	UnfollowTag(ctx context.Context, userID int64, tag string) (bool, error)
	Block(ctx context.Context, blockerID, blockedID int64) (bool, error)
	Unblock(ctx context.Context, blockerID, blockedID int64) (bool, error)
	AddMember(ctx context.Context, communityID, userID int64, role models.MemberRole) (*models.Membership, error)
	RemoveMember(ctx context.Context, communityID, userID int64) error
	CreateCommunity(ctx context.Context, c *models.Community) (int64, error)

	InsertNotifications(ctx context.Context, ns []models.Notification) error
	// InboxesBetween lists inboxes of either user holding unread entries by the other
	InboxesBetween(ctx context.Context, a, b int64) ([]models.InboxRef, error)
}

type socialTx struct {
	graph         *GraphRepository
	members       *MembershipRepository
	communities   *CommunityRepository
	notifications *NotificationRepository
}

func newSocialTx(q DBTX) *socialTx {
	return &socialTx{
		graph:         NewGraphRepository(q),
		members:       NewMembershipRepository(q),
		communities:   NewCommunityRepository(q),
		notifications: NewNotificationRepository(q),
	}
}

func (t *socialTx) Follow(ctx context.Context, followerID, followedID int64) (bool, error) {
	return t.graph.Follow(ctx, followerID, followedID)
}

func (t *socialTx) Unfollow(ctx context.Context, followerID, followedID int64) (bool, error) {
	return t.graph.Unfollow(ctx, followerID, followedID)
}

func (t *socialTx) FollowTag(ctx context.Context, userID int64, tag string) (bool, error) {
	return t.graph.FollowTag(ctx, userID, tag)
}

func (t *socialTx) UnfollowTag(ctx context.Context, userID int64, tag string) (bool, error) {
	return t.graph.UnfollowTag(ctx, userID, tag)
}

func (t *socialTx) Block(ctx context.Context, blockerID, blockedID int64) (bool, error) {
	return t.graph.Block(ctx, blockerID, blockedID)
}

func (t *socialTx) Unblock(ctx context.Context, blockerID, blockedID int64) (bool, error) {
	return t.graph.Unblock(ctx, blockerID, blockedID)
}

func (t *socialTx) AddMember(ctx context.Context, communityID, userID int64, role models.MemberRole) (*models.Membership, error) {
	return t.members.AddMember(ctx, communityID, userID, role)
}

func (t *socialTx) RemoveMember(ctx context.Context, communityID, userID int64) error {
	return t.members.RemoveMember(ctx, communityID, userID)
}

func (t *socialTx) CreateCommunity(ctx context.Context, c *models.Community) (int64, error) {
	return t.communities.Create(ctx, c)
}

func (t *socialTx) InsertNotifications(ctx context.Context, ns []models.Notification) error {
	return t.notifications.InsertBatch(ctx, ns)
}

func (t *socialTx) InboxesBetween(ctx context.Context, a, b int64) ([]models.InboxRef, error) {
	return t.notifications.InboxesBetween(ctx, a, b)
}

// SocialStore opens units of work for follow, block and membership changes
type SocialStore struct {
	db     *db.PostgresDB
	reader *socialTx
}

// NewSocialStore creates a new SocialStore
func NewSocialStore(database *db.PostgresDB) *SocialStore {
	return &SocialStore{db: database, reader: newSocialTx(database.Pool)}
}

// WithinTx runs fn in one transaction
func (s *SocialStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx SocialTx) error) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, newSocialTx(tx))
	})
}

// Reader returns the same surface bound to the pool
func (s *SocialStore) Reader() SocialTx {
	return s.reader
}

// MessageTx is the write surface of private message changes
type MessageTx interface {
	InsertMessage(ctx context.Context, m *models.Message) error
	GetMessage(ctx context.Context, id int64) (*models.Message, error)
	MarkMessageRead(ctx context.Context, id int64, at time.Time) error
	HideMessage(ctx context.Context, m *models.Message) error
	DeleteMessage(ctx context.Context, id int64) error

	InsertNotifications(ctx context.Context, ns []models.Notification) error
	DeleteNotifications(ctx context.Context, messageID int64) ([]models.InboxRef, error)
}

type messageTx struct {
	*MessageRepository
	notifications *NotificationRepository
}

func newMessageTx(q DBTX) *messageTx {
	return &messageTx{
		MessageRepository: NewMessageRepository(q),
		notifications:     NewNotificationRepository(q),
	}
}

func (t *messageTx) InsertNotifications(ctx context.Context, ns []models.Notification) error {
	return t.notifications.InsertBatch(ctx, ns)
}

func (t *messageTx) DeleteNotifications(ctx context.Context, messageID int64) ([]models.InboxRef, error) {
	return t.notifications.DeleteForObject(ctx, models.ObjectTypeMessage, messageID)
}

// MessageStore opens units of work for private messages
type MessageStore struct {
	db     *db.PostgresDB
	reader *messageTx
}

// NewMessageStore creates a new MessageStore
func NewMessageStore(database *db.PostgresDB) *MessageStore {
	return &MessageStore{db: database, reader: newMessageTx(database.Pool)}
}

// WithinTx runs fn in one transaction
func (s *MessageStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx MessageTx) error) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, newMessageTx(tx))
	})
}

// Reader returns the same surface bound to the pool
func (s *MessageStore) Reader() MessageTx {
	return s.reader
}
