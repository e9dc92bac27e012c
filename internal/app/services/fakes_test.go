package services

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/communityhub/internal/app/auth"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/app/notifications"
	"github.com/yigit/communityhub/internal/app/repositories"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
)

const (
	alice     int64 = 1
	bob       int64 = 2
	carol     int64 = 3
	dave      int64 = 4
	moderator int64 = 6
	outsider  int64 = 9
	community int64 = 10
)

var errInjected = errors.New("injected storage failure")

// fakeDirectory is a fixed community: alice, bob, carol, dave and a moderator
type fakeDirectory struct {
	members      map[int64][]int64
	moderators   map[int64][]int64
	followers    map[int64][]int64
	tagFollowers map[string][]int64
	blocks       [][2]int64
	usernames    map[string]int64
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		members:      map[int64][]int64{community: {alice, bob, carol, dave, moderator}},
		moderators:   map[int64][]int64{community: {moderator}},
		followers:    map[int64][]int64{},
		tagFollowers: map[string][]int64{},
		usernames: map[string]int64{
			"alice": alice, "bob": bob, "carol": carol, "dave": dave, "mod": moderator,
		},
	}
}

func (d *fakeDirectory) Members(_ context.Context, communityID int64) ([]int64, error) {
	return d.members[communityID], nil
}

func (d *fakeDirectory) IsMember(_ context.Context, communityID, userID int64) (bool, error) {
	return slices.Contains(d.members[communityID], userID), nil
}

func (d *fakeDirectory) IsModerator(_ context.Context, communityID, userID int64) (bool, error) {
	return slices.Contains(d.moderators[communityID], userID), nil
}

func (d *fakeDirectory) Moderators(_ context.Context, communityID int64) ([]int64, error) {
	return d.moderators[communityID], nil
}

func (d *fakeDirectory) Admins(context.Context, int64) ([]int64, error) {
	return nil, nil
}

func (d *fakeDirectory) FollowersOf(_ context.Context, userID int64) ([]int64, error) {
	return d.followers[userID], nil
}

func (d *fakeDirectory) TagFollowersOf(_ context.Context, tags []string) ([]int64, error) {
	var ids []int64
	for _, tag := range tags {
		ids = append(ids, d.tagFollowers[tag]...)
	}
	return ids, nil
}

func (d *fakeDirectory) BlockRelations(_ context.Context, userID int64) ([]int64, error) {
	var ids []int64
	for _, b := range d.blocks {
		switch userID {
		case b[0]:
			ids = append(ids, b[1])
		case b[1]:
			ids = append(ids, b[0])
		}
	}
	return ids, nil
}

func (d *fakeDirectory) UserIDsByUsername(_ context.Context, names []string) (map[string]int64, error) {
	ids := make(map[string]int64)
	for _, name := range names {
		if id, ok := d.usernames[name]; ok {
			ids[name] = id
		}
	}
	return ids, nil
}

type reaction struct {
	ref    models.ActivityRef
	userID int64
}

// fakeState is everything the fake store persists
type fakeState struct {
	nextID        int64
	activities    map[models.ActivityRef]models.Activity
	answers       map[int64]models.PollAnswer
	votes         map[[2]int64]int64
	likes         map[reaction]bool
	bookmarks     map[reaction]bool
	flags         map[reaction]bool
	comments      []models.Comment
	notifications []models.Notification
	reindexed     []models.ActivityRef
}

func newFakeState() *fakeState {
	return &fakeState{
		activities: make(map[models.ActivityRef]models.Activity),
		answers:    make(map[int64]models.PollAnswer),
		votes:      make(map[[2]int64]int64),
		likes:      make(map[reaction]bool),
		bookmarks:  make(map[reaction]bool),
		flags:      make(map[reaction]bool),
	}
}

func (s *fakeState) clone() *fakeState {
	c := &fakeState{
		nextID:        s.nextID,
		activities:    make(map[models.ActivityRef]models.Activity, len(s.activities)),
		answers:       make(map[int64]models.PollAnswer, len(s.answers)),
		votes:         make(map[[2]int64]int64, len(s.votes)),
		likes:         make(map[reaction]bool, len(s.likes)),
		bookmarks:     make(map[reaction]bool, len(s.bookmarks)),
		flags:         make(map[reaction]bool, len(s.flags)),
		comments:      slices.Clone(s.comments),
		notifications: slices.Clone(s.notifications),
		reindexed:     slices.Clone(s.reindexed),
	}
	for k, v := range s.activities {
		c.activities[k] = v
	}
	for k, v := range s.answers {
		c.answers[k] = v
	}
	for k, v := range s.votes {
		c.votes[k] = v
	}
	for k, v := range s.likes {
		c.likes[k] = v
	}
	for k, v := range s.bookmarks {
		c.bookmarks[k] = v
	}
	for k, v := range s.flags {
		c.flags[k] = v
	}
	return c
}

// fakeStore runs units of work on a copy of its state and keeps the copy only
// when the unit succeeds
type fakeStore struct {
	state   *fakeState
	failOn  string
	commits int
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: newFakeState()}
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.ActivityTx) error) error {
	work := s.state.clone()
	if err := fn(ctx, &fakeTx{st: work, failOn: s.failOn}); err != nil {
		return err
	}
	s.state = work
	s.commits++
	return nil
}

func (s *fakeStore) Reader() repositories.ActivityTx {
	return &fakeTx{st: s.state, failOn: s.failOn}
}

func (s *fakeStore) activity(t *testing.T, ref models.ActivityRef) models.Activity {
	t.Helper()
	a, ok := s.state.activities[ref]
	if !ok {
		t.Fatalf("activity %s not stored", ref)
	}
	return a
}

func (s *fakeStore) notificationsFor(ref models.ActivityRef) []models.Notification {
	var ns []models.Notification
	for _, n := range s.state.notifications {
		if n.ObjectType == string(ref.Type) && n.ObjectID == ref.ID {
			ns = append(ns, n)
		}
	}
	return ns
}

type fakeTx struct {
	st     *fakeState
	failOn string
}

func (tx *fakeTx) fail(op string) error {
	if tx.failOn == op {
		return errInjected
	}
	return nil
}

func (tx *fakeTx) GetByRef(_ context.Context, ref models.ActivityRef) (*models.Activity, error) {
	a, ok := tx.st.activities[ref]
	if !ok {
		return nil, apperrors.ErrActivityNotFound
	}
	if a.ParentID != nil {
		if parent, ok := tx.st.activities[models.ActivityRef{Type: ref.Type, ID: *a.ParentID}]; ok {
			owner := parent.OwnerID
			a.ParentOwnerID = &owner
		}
	}
	a.Answers = nil
	for _, answer := range tx.st.answers {
		if answer.PollID == a.ID && ref.Type == models.ActivityTypePoll {
			for key, answerID := range tx.st.votes {
				if key[0] == a.ID && answerID == answer.ID {
					answer.Votes++
				}
			}
			a.Answers = append(a.Answers, answer)
		}
	}
	slices.SortFunc(a.Answers, func(x, y models.PollAnswer) int { return int(x.ID - y.ID) })
	return &a, nil
}

func (tx *fakeTx) Insert(_ context.Context, a *models.Activity) error {
	if err := tx.fail("Insert"); err != nil {
		return err
	}
	tx.st.nextID++
	a.ID = tx.st.nextID
	stored := *a
	stored.ParentOwnerID = nil
	tx.st.activities[a.Ref()] = stored
	return nil
}

func (tx *fakeTx) InsertAnswers(_ context.Context, pollID int64, descriptions []string) ([]models.PollAnswer, error) {
	var answers []models.PollAnswer
	for _, d := range descriptions {
		tx.st.nextID++
		answer := models.PollAnswer{ID: tx.st.nextID, PollID: pollID, Description: d}
		tx.st.answers[answer.ID] = answer
		answers = append(answers, answer)
	}
	return answers, nil
}

func (tx *fakeTx) Update(_ context.Context, a *models.Activity) error {
	if err := tx.fail("Update"); err != nil {
		return err
	}
	if _, ok := tx.st.activities[a.Ref()]; !ok {
		return apperrors.ErrActivityNotFound
	}
	stored := *a
	stored.ParentOwnerID = nil
	stored.Answers = nil
	tx.st.activities[a.Ref()] = stored
	return nil
}

func (tx *fakeTx) Delete(_ context.Context, ref models.ActivityRef) error {
	if _, ok := tx.st.activities[ref]; !ok {
		return apperrors.ErrActivityNotFound
	}
	delete(tx.st.activities, ref)
	for k, a := range tx.st.activities {
		if k.Type == ref.Type && a.ParentID != nil && *a.ParentID == ref.ID {
			a.ParentID = nil
			tx.st.activities[k] = a
		}
	}
	return nil
}

func (tx *fakeTx) CopyToReshares(_ context.Context, original *models.Activity) (int64, error) {
	if err := tx.fail("CopyToReshares"); err != nil {
		return 0, err
	}
	var n int64
	for k, a := range tx.st.activities {
		if k.Type == original.Type && a.IsReshare && a.DeletedAt == nil && a.ParentID != nil && *a.ParentID == original.ID {
			original.CopyResharedFields(&a)
			tx.st.activities[k] = a
			n++
		}
	}
	return n, nil
}

func (tx *fakeTx) HasReshared(_ context.Context, t models.ActivityType, rootID, userID int64) (bool, error) {
	for k, a := range tx.st.activities {
		if k.Type == t && a.IsReshare && a.DeletedAt == nil && a.OwnerID == userID && a.ParentID != nil && *a.ParentID == rootID {
			return true, nil
		}
	}
	return false, nil
}

func (tx *fakeTx) Reindex(_ context.Context, ref models.ActivityRef) error {
	tx.st.reindexed = append(tx.st.reindexed, ref)
	return nil
}

func (tx *fakeTx) UnpinAll(_ context.Context, communityID int64) error {
	for k, a := range tx.st.activities {
		if a.CommunityID == communityID && a.IsPinned {
			a.IsPinned = false
			tx.st.activities[k] = a
		}
	}
	return nil
}

func (tx *fakeTx) DetachComments(_ context.Context, ref models.ActivityRef) error {
	for i, c := range tx.st.comments {
		if c.ActivityType == ref.Type && c.ActivityID != nil && *c.ActivityID == ref.ID {
			tx.st.comments[i].ActivityID = nil
		}
	}
	return nil
}

func deleteReactions(m map[reaction]bool, ref models.ActivityRef) {
	for k := range m {
		if k.ref == ref {
			delete(m, k)
		}
	}
}

func (tx *fakeTx) DeleteLikes(_ context.Context, ref models.ActivityRef) error {
	deleteReactions(tx.st.likes, ref)
	return nil
}

func (tx *fakeTx) DeleteBookmarks(_ context.Context, ref models.ActivityRef) error {
	deleteReactions(tx.st.bookmarks, ref)
	return nil
}

func (tx *fakeTx) DeleteFlags(_ context.Context, ref models.ActivityRef) error {
	if err := tx.fail("DeleteFlags"); err != nil {
		return err
	}
	deleteReactions(tx.st.flags, ref)
	return nil
}

func (tx *fakeTx) GetAnswer(_ context.Context, answerID int64) (*models.PollAnswer, error) {
	a, ok := tx.st.answers[answerID]
	if !ok {
		return nil, apperrors.ErrAnswerNotFound
	}
	return &a, nil
}

func (tx *fakeTx) RecordVote(_ context.Context, pollID, answerID, voterID int64) (bool, error) {
	key := [2]int64{pollID, voterID}
	_, had := tx.st.votes[key]
	tx.st.votes[key] = answerID
	return had, nil
}

func (tx *fakeTx) AddLike(_ context.Context, ref models.ActivityRef, userID int64) (bool, error) {
	return addReaction(tx.st.likes, ref, userID), nil
}

func (tx *fakeTx) RemoveLike(_ context.Context, ref models.ActivityRef, userID int64) error {
	delete(tx.st.likes, reaction{ref, userID})
	return nil
}

func (tx *fakeTx) AddBookmark(_ context.Context, ref models.ActivityRef, userID int64) (bool, error) {
	return addReaction(tx.st.bookmarks, ref, userID), nil
}

func (tx *fakeTx) RemoveBookmark(_ context.Context, ref models.ActivityRef, userID int64) error {
	delete(tx.st.bookmarks, reaction{ref, userID})
	return nil
}

func (tx *fakeTx) AddFlag(_ context.Context, f *models.Flag) (bool, error) {
	return addReaction(tx.st.flags, f.Activity, f.UserID), nil
}

func addReaction(m map[reaction]bool, ref models.ActivityRef, userID int64) bool {
	key := reaction{ref, userID}
	if m[key] {
		return false
	}
	m[key] = true
	return true
}

func (tx *fakeTx) AddComment(_ context.Context, c *models.Comment) error {
	tx.st.nextID++
	c.ID = tx.st.nextID
	tx.st.comments = append(tx.st.comments, *c)
	return nil
}

func (tx *fakeTx) GetComment(_ context.Context, id int64) (*models.Comment, error) {
	for _, c := range tx.st.comments {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, apperrors.ErrCommentNotFound
}

func (tx *fakeTx) CommentOwners(_ context.Context, ref models.ActivityRef) ([]int64, error) {
	var owners []int64
	for _, c := range tx.st.comments {
		if c.ActivityType == ref.Type && c.ActivityID != nil && *c.ActivityID == ref.ID && !slices.Contains(owners, c.OwnerID) {
			owners = append(owners, c.OwnerID)
		}
	}
	return owners, nil
}

func (tx *fakeTx) ListComments(_ context.Context, ref models.ActivityRef) ([]models.Comment, error) {
	var cs []models.Comment
	for _, c := range tx.st.comments {
		if c.ActivityType == ref.Type && c.ActivityID != nil && *c.ActivityID == ref.ID {
			cs = append(cs, c)
		}
	}
	return cs, nil
}

func (tx *fakeTx) InsertNotifications(_ context.Context, ns []models.Notification) error {
	if err := tx.fail("InsertNotifications"); err != nil {
		return err
	}
	for i := range ns {
		tx.st.nextID++
		ns[i].ID = tx.st.nextID
	}
	tx.st.notifications = append(tx.st.notifications, ns...)
	return nil
}

func (tx *fakeTx) DeleteNotifications(_ context.Context, ref models.ActivityRef) ([]models.InboxRef, error) {
	var purged []models.InboxRef
	kept := tx.st.notifications[:0]
	for _, n := range tx.st.notifications {
		if n.ObjectType == string(ref.Type) && n.ObjectID == ref.ID {
			in := models.InboxRef{RecipientID: n.RecipientID, CommunityID: n.CommunityID}
			if !n.IsRead && !slices.Contains(purged, in) {
				purged = append(purged, in)
			}
			continue
		}
		kept = append(kept, n)
	}
	tx.st.notifications = kept
	return purged, nil
}

// recordingDispatcher checks that every dispatched notification was committed
type recordingDispatcher struct {
	t           *testing.T
	store       *fakeStore
	dispatched  [][]models.Notification
	invalidated []models.InboxRef
}

func (d *recordingDispatcher) Invalidate(_ context.Context, inboxes []models.InboxRef) {
	d.invalidated = append(d.invalidated, inboxes...)
}

func (d *recordingDispatcher) Dispatch(_ context.Context, ns []models.Notification) {
	d.t.Helper()
	for _, n := range ns {
		if !slices.ContainsFunc(d.store.state.notifications, func(c models.Notification) bool { return c.ID == n.ID }) {
			d.t.Errorf("notification %+v dispatched before it was committed", n)
		}
	}
	if len(ns) > 0 {
		d.dispatched = append(d.dispatched, ns)
	}
}

func (d *recordingDispatcher) all() []models.Notification {
	var ns []models.Notification
	for _, batch := range d.dispatched {
		ns = append(ns, batch...)
	}
	return ns
}

type activityFixture struct {
	svc        ActivityService
	store      *fakeStore
	dir        *fakeDirectory
	dispatcher *recordingDispatcher
}

func newActivityFixture(t *testing.T) *activityFixture {
	t.Helper()
	store := newFakeStore()
	dir := newFakeDirectory()
	dispatcher := &recordingDispatcher{t: t, store: store}
	svc := NewActivityService(
		store,
		notifications.NewEngine(dir, zerolog.Nop()),
		dispatcher,
		auth.NewAuthorizationService(dir),
		zerolog.Nop(),
	)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.(*activityServiceImpl).now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return &activityFixture{svc: svc, store: store, dir: dir, dispatcher: dispatcher}
}

func (f *activityFixture) post(t *testing.T, owner int64, description string) *models.Activity {
	t.Helper()
	a, err := f.svc.Create(context.Background(), owner, CreateActivityInput{
		Type:        models.ActivityTypePost,
		CommunityID: community,
		Fields:      ActivityFields{Title: "title", Description: description},
		Publish:     true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return a
}

func (f *activityFixture) poll(t *testing.T, owner int64) *models.Activity {
	t.Helper()
	a, err := f.svc.Create(context.Background(), owner, CreateActivityInput{
		Type:        models.ActivityTypePoll,
		CommunityID: community,
		Fields:      ActivityFields{Title: "lunch?"},
		Answers:     []string{"pizza", "salad"},
		Publish:     true,
	})
	if err != nil {
		t.Fatalf("Create poll: %v", err)
	}
	return a
}

func fieldsOf(a *models.Activity) ActivityFields {
	return ActivityFields{Title: a.Title, Description: a.Description, Hashtags: a.Hashtags, Mentions: a.Mentions}
}

func assertInvalidState(t *testing.T, op string, err error) {
	t.Helper()
	if !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("%s: got %v, want ErrInvalidState", op, err)
	}
}
