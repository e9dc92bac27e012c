package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/pkg/push"
)

type recordingNotifier struct {
	name string
	err  error

	mu   sync.Mutex
	sent []int64
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Send(_ context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n.RecipientID)
	return r.err
}

type recordingCounter struct {
	invalidated map[int64][]int64
}

func (c *recordingCounter) Invalidate(_ context.Context, communityID int64, userIDs ...int64) error {
	c.invalidated[communityID] = append(c.invalidated[communityID], userIDs...)
	return errors.New("redis down")
}

func TestDispatchDeliversDespiteFailures(t *testing.T) {
	failing := &recordingNotifier{name: "email", err: errors.New("smtp down")}
	working := &recordingNotifier{name: "push"}
	counter := &recordingCounter{invalidated: map[int64][]int64{}}
	d := NewDispatcher(zerolog.Nop(), counter, failing, working)

	d.Dispatch(context.Background(), []models.Notification{
		{RecipientID: bob, CommunityID: community, Verb: models.VerbMention},
		{RecipientID: carol, CommunityID: community, Verb: models.VerbFollowedUser},
	})
	d.Wait()

	if len(failing.sent) != 2 || len(working.sent) != 2 {
		t.Fatalf("sent email=%v push=%v, want both recipients on both channels", failing.sent, working.sent)
	}
	if got := counter.invalidated[community]; len(got) != 2 {
		t.Fatalf("invalidated %v, want both recipients", got)
	}
}

func TestDispatchNilDispatcher(t *testing.T) {
	var d *Dispatcher
	d.Dispatch(context.Background(), []models.Notification{{RecipientID: bob}})
	d.Invalidate(context.Background(), []models.InboxRef{{RecipientID: bob}})
	d.Wait()
}

// blockingNotifier holds every delivery until released
type blockingNotifier struct {
	release chan struct{}
	errs    chan error
}

func (b *blockingNotifier) Name() string { return "blocking" }

func (b *blockingNotifier) Send(ctx context.Context, _ models.Notification) error {
	<-b.release
	b.errs <- ctx.Err()
	return nil
}

func TestDispatchDoesNotWaitForDelivery(t *testing.T) {
	notifier := &blockingNotifier{release: make(chan struct{}), errs: make(chan error, 1)}
	counter := &recordingCounter{invalidated: map[int64][]int64{}}
	d := NewDispatcher(zerolog.Nop(), counter, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, []models.Notification{{RecipientID: bob, CommunityID: community, Verb: models.VerbMention}})
	if got := counter.invalidated[community]; len(got) != 1 || got[0] != bob {
		t.Fatalf("counter not invalidated before Dispatch returned: %v", got)
	}
	cancel()

	close(notifier.release)
	d.Wait()
	if err := <-notifier.errs; err != nil {
		t.Fatalf("delivery saw the request's cancellation: %v", err)
	}
}

func TestInvalidateGroupsByCommunity(t *testing.T) {
	counter := &recordingCounter{invalidated: map[int64][]int64{}}
	d := NewDispatcher(zerolog.Nop(), counter)

	d.Invalidate(context.Background(), []models.InboxRef{
		{RecipientID: bob, CommunityID: community},
		{RecipientID: carol, CommunityID: 11},
		{RecipientID: dave, CommunityID: community},
	})
	if got := counter.invalidated[community]; len(got) != 2 || got[0] != bob || got[1] != dave {
		t.Errorf("community %d invalidated %v", community, got)
	}
	if got := counter.invalidated[11]; len(got) != 1 || got[0] != carol {
		t.Errorf("community 11 invalidated %v", got)
	}
}

type fakeUsers map[int64]*models.User

func (f fakeUsers) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

type fakeTokens struct {
	tokens  map[int64][]string
	deleted []string
}

func (f *fakeTokens) TokensForUser(_ context.Context, userID int64) ([]string, error) {
	return f.tokens[userID], nil
}

func (f *fakeTokens) DeleteTokens(_ context.Context, tokens []string) error {
	f.deleted = append(f.deleted, tokens...)
	return nil
}

type fakePushClient struct {
	stale []string
	got   push.Message
}

func (f *fakePushClient) Send(_ context.Context, _ []string, msg push.Message) ([]string, error) {
	f.got = msg
	return f.stale, nil
}

func TestPushNotifierPrunesStaleTokens(t *testing.T) {
	users := fakeUsers{
		alice: {ID: alice, Username: "alice", Name: "Alice"},
		bob:   {ID: bob, Username: "bob"},
	}
	tokens := &fakeTokens{tokens: map[int64][]string{bob: {"t1", "t2"}}}
	client := &fakePushClient{stale: []string{"t2"}}
	p := NewPushNotifier(users, tokens, client, zerolog.Nop())

	err := p.Send(context.Background(), models.Notification{
		RecipientID: bob, ActorID: alice, Verb: models.VerbMention, ObjectType: "post", ObjectID: 7,
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if client.got.Title != "Alice mentioned you" || client.got.Data["link"] != "/activities/post/7" {
		t.Fatalf("unexpected message %+v", client.got)
	}
	if len(tokens.deleted) != 1 || tokens.deleted[0] != "t2" {
		t.Fatalf("deleted tokens = %v, want [t2]", tokens.deleted)
	}
}

func TestPushNotifierWithoutDevices(t *testing.T) {
	client := &fakePushClient{}
	p := NewPushNotifier(fakeUsers{}, &fakeTokens{}, client, zerolog.Nop())
	if err := p.Send(context.Background(), models.Notification{RecipientID: bob, ActorID: alice}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if client.got.Title != "" {
		t.Fatal("push sent to a user with no devices")
	}
}

func TestDescribeCommentsAndMessages(t *testing.T) {
	text, link := Describe(models.Notification{
		Verb: models.VerbReply, ObjectType: models.ObjectTypeComment, ObjectID: 8,
	}, "Dave")
	if text != "Dave replied to you" || link != "/comments/8" {
		t.Fatalf("comment Describe = %q %q", text, link)
	}
	text, link = Describe(models.Notification{
		Verb: models.VerbSend, ObjectType: models.ObjectTypeMessage, ObjectID: 4,
	}, "Bob")
	if text != "Bob sent you a message" || link != "/messages/4" {
		t.Fatalf("message Describe = %q %q", text, link)
	}
}

func TestDescribeUserObjects(t *testing.T) {
	text, link := Describe(models.Notification{
		Verb: models.VerbNewFollower, ObjectType: models.ObjectTypeUser, ObjectID: 3,
	}, "Carol")
	if text != "Carol started following you" || link != "/users/3" {
		t.Fatalf("Describe = %q %q", text, link)
	}
}
