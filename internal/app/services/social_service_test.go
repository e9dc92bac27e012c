package services

import (
	"context"
	"errors"
	"maps"
	"slices"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yigit/communityhub/internal/app/auth"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/app/notifications"
	"github.com/yigit/communityhub/internal/app/repositories"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
)

type edge [2]int64

type tagEdge struct {
	user int64
	tag  string
}

type socialState struct {
	communities   []models.Community
	follows       map[edge]bool
	tags          map[tagEdge]bool
	blocks        map[edge]bool
	members       map[edge]models.MemberRole
	notifications []models.Notification
}

func (s *socialState) clone() *socialState {
	return &socialState{
		communities:   slices.Clone(s.communities),
		follows:       maps.Clone(s.follows),
		tags:          maps.Clone(s.tags),
		blocks:        maps.Clone(s.blocks),
		members:       maps.Clone(s.members),
		notifications: slices.Clone(s.notifications),
	}
}

type fakeSocialStore struct {
	state  *socialState
	failOn string
}

func newFakeSocialStore() *fakeSocialStore {
	return &fakeSocialStore{state: &socialState{
		follows: map[edge]bool{},
		tags:    map[tagEdge]bool{},
		blocks:  map[edge]bool{},
		members: map[edge]models.MemberRole{},
	}}
}

func (s *fakeSocialStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.SocialTx) error) error {
	staged := s.state.clone()
	if err := fn(ctx, &fakeSocialTx{state: staged, failOn: s.failOn}); err != nil {
		return err
	}
	s.state = staged
	return nil
}

func (s *fakeSocialStore) Reader() repositories.SocialTx {
	return &fakeSocialTx{state: s.state, failOn: s.failOn}
}

type fakeSocialTx struct {
	state  *socialState
	failOn string
}

func toggle[K comparable](m map[K]bool, k K, on bool) bool {
	if m[k] == on {
		return false
	}
	if on {
		m[k] = true
	} else {
		delete(m, k)
	}
	return true
}

func (tx *fakeSocialTx) Follow(_ context.Context, followerID, followedID int64) (bool, error) {
	return toggle(tx.state.follows, edge{followerID, followedID}, true), nil
}

func (tx *fakeSocialTx) Unfollow(_ context.Context, followerID, followedID int64) (bool, error) {
	if tx.failOn == "Unfollow" {
		return false, errInjected
	}
	return toggle(tx.state.follows, edge{followerID, followedID}, false), nil
}

func (tx *fakeSocialTx) FollowTag(_ context.Context, userID int64, tag string) (bool, error) {
	return toggle(tx.state.tags, tagEdge{userID, tag}, true), nil
}

func (tx *fakeSocialTx) UnfollowTag(_ context.Context, userID int64, tag string) (bool, error) {
	return toggle(tx.state.tags, tagEdge{userID, tag}, false), nil
}

func (tx *fakeSocialTx) Block(_ context.Context, blockerID, blockedID int64) (bool, error) {
	return toggle(tx.state.blocks, edge{blockerID, blockedID}, true), nil
}

func (tx *fakeSocialTx) Unblock(_ context.Context, blockerID, blockedID int64) (bool, error) {
	return toggle(tx.state.blocks, edge{blockerID, blockedID}, false), nil
}

func (tx *fakeSocialTx) AddMember(_ context.Context, communityID, userID int64, role models.MemberRole) (*models.Membership, error) {
	key := edge{communityID, userID}
	if _, ok := tx.state.members[key]; ok {
		return nil, apperrors.NewConflictError("user is already a member of this community")
	}
	tx.state.members[key] = role
	return &models.Membership{ID: int64(len(tx.state.members)), CommunityID: communityID, UserID: userID, Role: role}, nil
}

func (tx *fakeSocialTx) RemoveMember(_ context.Context, communityID, userID int64) error {
	key := edge{communityID, userID}
	if _, ok := tx.state.members[key]; !ok {
		return apperrors.ErrNotMember
	}
	delete(tx.state.members, key)
	return nil
}

func (tx *fakeSocialTx) CreateCommunity(_ context.Context, c *models.Community) (int64, error) {
	for _, existing := range tx.state.communities {
		if existing.Domain == c.Domain {
			return 0, apperrors.NewConflictError("a community with this domain already exists")
		}
	}
	c.ID = int64(100 + len(tx.state.communities))
	tx.state.communities = append(tx.state.communities, *c)
	return c.ID, nil
}

func (tx *fakeSocialTx) InsertNotifications(_ context.Context, ns []models.Notification) error {
	if tx.failOn == "InsertNotifications" {
		return errInjected
	}
	for i := range ns {
		ns[i].ID = int64(len(tx.state.notifications) + 1)
		tx.state.notifications = append(tx.state.notifications, ns[i])
	}
	return nil
}

func (tx *fakeSocialTx) InboxesBetween(_ context.Context, a, b int64) ([]models.InboxRef, error) {
	var inboxes []models.InboxRef
	for _, n := range tx.state.notifications {
		between := (n.RecipientID == a && n.ActorID == b) || (n.RecipientID == b && n.ActorID == a)
		in := models.InboxRef{RecipientID: n.RecipientID, CommunityID: n.CommunityID}
		if between && !n.IsRead && !slices.Contains(inboxes, in) {
			inboxes = append(inboxes, in)
		}
	}
	return inboxes, nil
}

type fakeTokens struct {
	saved []models.PushSubscription
}

func (f *fakeTokens) Save(_ context.Context, sub *models.PushSubscription) error {
	sub.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, *sub)
	return nil
}

type collectingDispatcher struct {
	ns          []models.Notification
	invalidated []models.InboxRef
}

func (d *collectingDispatcher) Invalidate(_ context.Context, inboxes []models.InboxRef) {
	d.invalidated = append(d.invalidated, inboxes...)
}

func (d *collectingDispatcher) Dispatch(_ context.Context, ns []models.Notification) {
	d.ns = append(d.ns, ns...)
}

type socialFixture struct {
	svc        SocialService
	store      *fakeSocialStore
	dir        *fakeDirectory
	tokens     *fakeTokens
	dispatcher *collectingDispatcher
}

func newSocialFixture() *socialFixture {
	f := &socialFixture{
		store:      newFakeSocialStore(),
		dir:        newFakeDirectory(),
		tokens:     &fakeTokens{},
		dispatcher: &collectingDispatcher{},
	}
	f.svc = NewSocialService(f.store, f.dir, f.tokens, notifications.NewEngine(f.dir, zerolog.Nop()),
		f.dispatcher, auth.NewAuthorizationService(f.dir), zerolog.Nop())
	return f
}

func TestFollowUserNotifiesOnce(t *testing.T) {
	f := newSocialFixture()
	ctx := context.Background()

	for range 2 {
		if err := f.svc.FollowUser(ctx, community, alice, bob); err != nil {
			t.Fatalf("FollowUser: %v", err)
		}
	}

	if !f.store.state.follows[edge{alice, bob}] {
		t.Fatal("follow edge not stored")
	}
	if len(f.dispatcher.ns) != 1 || len(f.store.state.notifications) != 1 {
		t.Fatalf("want one new follower notification, dispatched %v", f.dispatcher.ns)
	}
	n := f.dispatcher.ns[0]
	if n.RecipientID != bob || n.ActorID != alice || n.Verb != models.VerbNewFollower || n.ObjectType != models.ObjectTypeUser {
		t.Errorf("unexpected notification %+v", n)
	}
}

func TestFollowUserRejections(t *testing.T) {
	f := newSocialFixture()
	f.dir.blocks = append(f.dir.blocks, [2]int64{bob, carol})
	ctx := context.Background()

	tests := []struct {
		name     string
		follower int64
		followed int64
		want     error
	}{
		{"self", alice, alice, apperrors.ErrBadRequest},
		{"follower outside community", outsider, alice, apperrors.ErrNotMember},
		{"followed outside community", alice, outsider, apperrors.ErrNotMember},
		{"blocked by followed", carol, bob, apperrors.ErrPermissionDenied},
		{"blocking followed", bob, carol, apperrors.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.FollowUser(ctx, community, tt.follower, tt.followed)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if len(f.store.state.follows) != 0 || len(f.dispatcher.ns) != 0 {
		t.Error("rejected follows left state behind")
	}
}

func TestBlockRemovesFollowsBothWays(t *testing.T) {
	f := newSocialFixture()
	f.store.state.follows[edge{alice, bob}] = true
	f.store.state.follows[edge{bob, alice}] = true
	f.store.state.follows[edge{carol, bob}] = true

	if err := f.svc.Block(context.Background(), alice, bob); err != nil {
		t.Fatalf("Block: %v", err)
	}

	want := map[edge]bool{{carol, bob}: true}
	if !maps.Equal(f.store.state.follows, want) {
		t.Errorf("follows after block = %v, want %v", f.store.state.follows, want)
	}
	if !f.store.state.blocks[edge{alice, bob}] {
		t.Error("block not stored")
	}

	if err := f.svc.Block(context.Background(), alice, alice); !errors.Is(err, apperrors.ErrBadRequest) {
		t.Errorf("self block err = %v", err)
	}
}

func TestBlockRollsBackAsOneUnit(t *testing.T) {
	f := newSocialFixture()
	f.store.state.follows[edge{alice, bob}] = true
	f.store.failOn = "Unfollow"

	err := f.svc.Block(context.Background(), alice, bob)
	if !errors.Is(err, apperrors.ErrStorageFailure) {
		t.Fatalf("err = %v, want storage failure", err)
	}
	if len(f.store.state.blocks) != 0 || !f.store.state.follows[edge{alice, bob}] {
		t.Error("failed block was partially applied")
	}
}

func TestBlockInvalidatesBothInboxes(t *testing.T) {
	f := newSocialFixture()
	ctx := context.Background()
	f.store.state.notifications = []models.Notification{
		{RecipientID: alice, ActorID: bob, CommunityID: community, Verb: models.VerbMention},
		{RecipientID: bob, ActorID: alice, CommunityID: community, Verb: models.VerbNewFollower},
		{RecipientID: bob, ActorID: alice, CommunityID: 11, Verb: models.VerbMention, IsRead: true},
		{RecipientID: carol, ActorID: alice, CommunityID: community, Verb: models.VerbMention},
	}

	if err := f.svc.Block(ctx, alice, bob); err != nil {
		t.Fatalf("Block: %v", err)
	}
	want := []models.InboxRef{
		{RecipientID: alice, CommunityID: community},
		{RecipientID: bob, CommunityID: community},
	}
	if !slices.Equal(f.dispatcher.invalidated, want) {
		t.Fatalf("invalidated after block = %+v, want %+v", f.dispatcher.invalidated, want)
	}

	f.dispatcher.invalidated = nil
	if err := f.svc.Unblock(ctx, alice, bob); err != nil {
		t.Fatalf("Unblock: %v", err)
	}
	if f.store.state.blocks[edge{alice, bob}] {
		t.Error("block not removed")
	}
	if !slices.Equal(f.dispatcher.invalidated, want) {
		t.Fatalf("invalidated after unblock = %+v, want %+v", f.dispatcher.invalidated, want)
	}

	f.dispatcher.invalidated = nil
	if err := f.svc.Unblock(ctx, alice, bob); err != nil {
		t.Fatalf("repeated Unblock: %v", err)
	}
	if len(f.dispatcher.invalidated) != 0 {
		t.Errorf("unblock without a block invalidated %+v", f.dispatcher.invalidated)
	}
}

func TestFailedBlockInvalidatesNothing(t *testing.T) {
	f := newSocialFixture()
	f.store.state.notifications = []models.Notification{{RecipientID: alice, ActorID: bob, CommunityID: community}}
	f.store.failOn = "Unfollow"

	if err := f.svc.Block(context.Background(), alice, bob); err == nil {
		t.Fatal("Block succeeded with a failing store")
	}
	if len(f.dispatcher.invalidated) != 0 {
		t.Errorf("rolled back block invalidated %+v", f.dispatcher.invalidated)
	}
}

func TestJoinNotifiesExistingMembers(t *testing.T) {
	f := newSocialFixture()
	f.dir.blocks = append(f.dir.blocks, [2]int64{carol, outsider})

	m, err := f.svc.Join(context.Background(), community, outsider)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if m.Role != models.RoleMember || m.UserID != outsider {
		t.Errorf("membership = %+v", m)
	}

	var recipients []int64
	for _, n := range f.dispatcher.ns {
		if n.Verb != models.VerbNewMember || n.ActorID != outsider {
			t.Errorf("unexpected notification %+v", n)
		}
		recipients = append(recipients, n.RecipientID)
	}
	if want := []int64{alice, bob, dave, moderator}; !slices.Equal(recipients, want) {
		t.Errorf("recipients = %v, want %v", recipients, want)
	}

	if _, err := f.svc.Join(context.Background(), community, outsider); !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("second join err = %v, want conflict", err)
	}
}

func TestJoinRollsBackWhenNotificationsFail(t *testing.T) {
	f := newSocialFixture()
	f.store.failOn = "InsertNotifications"

	if _, err := f.svc.Join(context.Background(), community, outsider); !errors.Is(err, apperrors.ErrStorageFailure) {
		t.Fatalf("err = %v, want storage failure", err)
	}
	if len(f.store.state.members) != 0 || len(f.dispatcher.ns) != 0 {
		t.Error("membership kept or notifications dispatched after rollback")
	}
}

func TestFollowTagNormalizes(t *testing.T) {
	f := newSocialFixture()
	ctx := context.Background()

	if err := f.svc.FollowTag(ctx, alice, " #GoLang "); err != nil {
		t.Fatalf("FollowTag: %v", err)
	}
	if !f.store.state.tags[tagEdge{alice, "golang"}] {
		t.Errorf("tags = %v", f.store.state.tags)
	}
	if err := f.svc.UnfollowTag(ctx, alice, "golang"); err != nil {
		t.Fatalf("UnfollowTag: %v", err)
	}
	if len(f.store.state.tags) != 0 {
		t.Error("tag follow not removed")
	}
	if err := f.svc.FollowTag(ctx, alice, "#"); !errors.Is(err, apperrors.ErrBadRequest) {
		t.Errorf("empty tag err = %v", err)
	}
}

func TestRegisterPushToken(t *testing.T) {
	f := newSocialFixture()

	sub, err := f.svc.RegisterPushToken(context.Background(), alice, " token-1 ", "android")
	if err != nil {
		t.Fatalf("RegisterPushToken: %v", err)
	}
	if sub.Token != "token-1" || sub.UserID != alice || len(f.tokens.saved) != 1 {
		t.Errorf("saved %+v", f.tokens.saved)
	}
	if _, err := f.svc.RegisterPushToken(context.Background(), alice, "", "ios"); !errors.Is(err, apperrors.ErrBadRequest) {
		t.Errorf("empty token err = %v", err)
	}
}

func TestCreateCommunityMakesCreatorAdmin(t *testing.T) {
	store := newFakeSocialStore()
	svc := NewCommunityService(store, nil, zerolog.Nop())

	c, err := svc.Create(context.Background(), alice, &models.Community{Name: " Gophers ", Domain: "Gophers.Example.org"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Name != "Gophers" || c.Domain != "gophers.example.org" {
		t.Errorf("community not normalized: %+v", c)
	}
	if role := store.state.members[edge{c.ID, alice}]; role != models.RoleAdmin {
		t.Errorf("creator role = %q, want admin", role)
	}

	_, err = svc.Create(context.Background(), bob, &models.Community{Name: "Other", Domain: "gophers.example.org"})
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("duplicate domain err = %v, want conflict", err)
	}
	if len(store.state.communities) != 1 || len(store.state.members) != 1 {
		t.Error("failed creation left state behind")
	}
}
