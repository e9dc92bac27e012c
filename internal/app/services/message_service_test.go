package services

import (
	"context"
	"errors"
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/communityhub/internal/app/auth"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/app/notifications"
	"github.com/yigit/communityhub/internal/app/repositories"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
	"github.com/yigit/communityhub/internal/pkg/feed"
)

type messageState struct {
	nextID        int64
	messages      map[int64]models.Message
	notifications []models.Notification
}

func (s *messageState) clone() *messageState {
	return &messageState{
		nextID:        s.nextID,
		messages:      maps.Clone(s.messages),
		notifications: slices.Clone(s.notifications),
	}
}

type fakeMessageStore struct {
	state  *messageState
	failOn string
}

func (s *fakeMessageStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.MessageTx) error) error {
	staged := s.state.clone()
	if err := fn(ctx, &fakeMessageTx{state: staged, failOn: s.failOn}); err != nil {
		return err
	}
	s.state = staged
	return nil
}

func (s *fakeMessageStore) Reader() repositories.MessageTx {
	return &fakeMessageTx{state: s.state, failOn: s.failOn}
}

type fakeMessageTx struct {
	state  *messageState
	failOn string
}

func (tx *fakeMessageTx) InsertMessage(_ context.Context, m *models.Message) error {
	tx.state.nextID++
	m.ID = tx.state.nextID
	tx.state.messages[m.ID] = *m
	return nil
}

func (tx *fakeMessageTx) GetMessage(_ context.Context, id int64) (*models.Message, error) {
	m, ok := tx.state.messages[id]
	if !ok {
		return nil, apperrors.ErrMessageNotFound
	}
	return &m, nil
}

func (tx *fakeMessageTx) MarkMessageRead(_ context.Context, id int64, at time.Time) error {
	m := tx.state.messages[id]
	if m.ReadAt == nil {
		m.ReadAt = &at
		tx.state.messages[id] = m
	}
	return nil
}

func (tx *fakeMessageTx) HideMessage(_ context.Context, m *models.Message) error {
	if tx.failOn == "HideMessage" {
		return errInjected
	}
	tx.state.messages[m.ID] = *m
	return nil
}

func (tx *fakeMessageTx) DeleteMessage(_ context.Context, id int64) error {
	delete(tx.state.messages, id)
	return nil
}

func (tx *fakeMessageTx) InsertNotifications(_ context.Context, ns []models.Notification) error {
	for i := range ns {
		tx.state.nextID++
		ns[i].ID = tx.state.nextID
	}
	tx.state.notifications = append(tx.state.notifications, ns...)
	return nil
}

func (tx *fakeMessageTx) DeleteNotifications(_ context.Context, messageID int64) ([]models.InboxRef, error) {
	var purged []models.InboxRef
	kept := tx.state.notifications[:0]
	for _, n := range tx.state.notifications {
		if n.ObjectType == models.ObjectTypeMessage && n.ObjectID == messageID {
			if !n.IsRead {
				purged = append(purged, models.InboxRef{RecipientID: n.RecipientID, CommunityID: n.CommunityID})
			}
			continue
		}
		kept = append(kept, n)
	}
	tx.state.notifications = kept
	return purged, nil
}

type messageFixture struct {
	svc        MessageService
	store      *fakeMessageStore
	dir        *fakeDirectory
	index      *capturingIndex
	dispatcher *collectingDispatcher
}

func newMessageFixture() *messageFixture {
	f := &messageFixture{
		store:      &fakeMessageStore{state: &messageState{messages: map[int64]models.Message{}}},
		dir:        newFakeDirectory(),
		index:      &capturingIndex{},
		dispatcher: &collectingDispatcher{},
	}
	hydrator := feed.NewHydrator().Register(repositories.MessageTag, func(_ context.Context, ids []int64) (map[int64]any, error) {
		out := make(map[int64]any, len(ids))
		for _, id := range ids {
			if m, ok := f.store.state.messages[id]; ok {
				out[id] = &m
			}
		}
		return out, nil
	})
	f.svc = NewMessageService(f.store, f.dir, f.index, hydrator, notifications.NewEngine(f.dir, zerolog.Nop()),
		f.dispatcher, auth.NewAuthorizationService(f.dir), FeedLimits{DefaultPageSize: 5, MaxPageSize: 10}, zerolog.Nop())
	return f
}

func TestSendNotifiesRecipient(t *testing.T) {
	f := newMessageFixture()

	m, err := f.svc.Send(context.Background(), community, alice, bob, "  lunch tomorrow?  ")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if m.ID == 0 || m.Message != "lunch tomorrow?" || m.ParentID != nil {
		t.Errorf("stored message %+v", m)
	}
	if len(f.dispatcher.ns) != 1 {
		t.Fatalf("dispatched %+v, want one notification", f.dispatcher.ns)
	}
	n := f.dispatcher.ns[0]
	if n.RecipientID != bob || n.ActorID != alice || n.Verb != models.VerbSend ||
		n.ObjectType != models.ObjectTypeMessage || n.ObjectID != m.ID {
		t.Errorf("unexpected notification %+v", n)
	}
}

func TestSendRejections(t *testing.T) {
	f := newMessageFixture()
	f.dir.blocks = append(f.dir.blocks, [2]int64{bob, carol})
	ctx := context.Background()

	tests := []struct {
		name      string
		sender    int64
		recipient int64
		text      string
		want      error
	}{
		{"empty", alice, bob, "  ", apperrors.ErrBadRequest},
		{"self", alice, alice, "hi", apperrors.ErrBadRequest},
		{"sender outside community", outsider, alice, "hi", apperrors.ErrNotMember},
		{"recipient outside community", alice, outsider, "hi", apperrors.ErrNotMember},
		{"blocked recipient", carol, bob, "hi", apperrors.ErrPermissionDenied},
		{"blocking sender", bob, carol, "hi", apperrors.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Send(ctx, community, tt.sender, tt.recipient, tt.text); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if len(f.store.state.messages) != 0 || len(f.dispatcher.ns) != 0 {
		t.Error("rejected messages left state behind")
	}
}

func TestReplyVerbDependsOnDirection(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	first, err := f.svc.Send(ctx, community, alice, bob, "hi")
	if err != nil {
		t.Fatal(err)
	}

	answer, err := f.svc.Reply(ctx, first.ID, bob, "hello")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if answer.RecipientID != alice || answer.ParentID == nil || *answer.ParentID != first.ID {
		t.Errorf("reply %+v", answer)
	}

	again, err := f.svc.Reply(ctx, first.ID, alice, "are you there?")
	if err != nil {
		t.Fatalf("follow up: %v", err)
	}
	if again.RecipientID != bob {
		t.Errorf("follow up went to %d, want bob", again.RecipientID)
	}

	verbs := make([]models.Verb, len(f.dispatcher.ns))
	for i, n := range f.dispatcher.ns {
		verbs[i] = n.Verb
	}
	want := []models.Verb{models.VerbSend, models.VerbReply, models.VerbFollowUp}
	if !slices.Equal(verbs, want) {
		t.Errorf("verbs = %v, want %v", verbs, want)
	}

	if _, err := f.svc.Reply(ctx, first.ID, carol, "me too"); !errors.Is(err, apperrors.ErrMessageNotFound) {
		t.Errorf("reply by a third party: got %v", err)
	}
}

func TestGetMarksReadForRecipientOnly(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	m, err := f.svc.Send(ctx, community, alice, bob, "hi")
	if err != nil {
		t.Fatal(err)
	}

	if got, err := f.svc.Get(ctx, m.ID, alice); err != nil || got.ReadAt != nil {
		t.Fatalf("sender Get = %+v, %v; want unread", got, err)
	}
	got, err := f.svc.Get(ctx, m.ID, bob)
	if err != nil || got.ReadAt == nil {
		t.Fatalf("recipient Get = %+v, %v; want read", got, err)
	}
	if f.store.state.messages[m.ID].ReadAt == nil {
		t.Error("read time not stored")
	}
	if _, err := f.svc.Get(ctx, m.ID, carol); !errors.Is(err, apperrors.ErrMessageNotFound) {
		t.Errorf("third party Get: got %v", err)
	}
}

func TestDeleteHidesPerSideThenRemoves(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	m, err := f.svc.Send(ctx, community, alice, bob, "hi")
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Delete(ctx, m.ID, alice); err != nil {
		t.Fatalf("sender Delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, m.ID, alice); !errors.Is(err, apperrors.ErrMessageNotFound) {
		t.Errorf("hidden message still visible to sender: %v", err)
	}
	if _, err := f.svc.Get(ctx, m.ID, bob); err != nil {
		t.Errorf("recipient lost the message: %v", err)
	}
	if len(f.store.state.notifications) != 1 || len(f.dispatcher.invalidated) != 0 {
		t.Error("sender hiding the message touched the recipient's inbox")
	}

	if err := f.svc.Delete(ctx, m.ID, bob); err != nil {
		t.Fatalf("recipient Delete: %v", err)
	}
	if _, ok := f.store.state.messages[m.ID]; ok {
		t.Error("message kept after both parties deleted it")
	}
	if len(f.store.state.notifications) != 0 {
		t.Errorf("notifications about the message survived: %+v", f.store.state.notifications)
	}
	want := []models.InboxRef{{RecipientID: bob, CommunityID: community}}
	if !slices.Equal(f.dispatcher.invalidated, want) {
		t.Errorf("invalidated = %+v, want %+v", f.dispatcher.invalidated, want)
	}
}

func TestFailedDeleteKeepsMessage(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	m, err := f.svc.Send(ctx, community, alice, bob, "hi")
	if err != nil {
		t.Fatal(err)
	}
	f.store.failOn = "HideMessage"

	if err := f.svc.Delete(ctx, m.ID, bob); !errors.Is(err, apperrors.ErrStorageFailure) {
		t.Fatalf("Delete: got %v, want storage failure", err)
	}
	if len(f.store.state.notifications) != 1 || len(f.dispatcher.invalidated) != 0 {
		t.Error("rolled back delete dropped notifications")
	}
}

func TestInboxAndOutboxSources(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	m, err := f.svc.Send(ctx, community, alice, bob, "hi")
	if err != nil {
		t.Fatal(err)
	}
	f.index.rows = []feed.IndexRow{{Type: repositories.MessageTag, ID: m.ID, Keys: []any{m.CreatedAt}}}

	page, err := f.svc.Inbox(ctx, community, bob, 1, 50)
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if f.index.limit != 10 {
		t.Errorf("page size not clamped: %d", f.index.limit)
	}
	if got := typeTags(f.index.sources); !slices.Equal(got, []string{repositories.MessageTag}) {
		t.Errorf("inbox sources = %v", got)
	}
	if got := f.index.sources[0].OrderFields(); !slices.Equal(got, []string{FieldCreated}) {
		t.Errorf("inbox order fields = %v", got)
	}
	if len(page.Items) != 1 {
		t.Fatalf("inbox items = %d", len(page.Items))
	}
	if got, ok := page.Items[0].Object.(*models.Message); !ok || got.ID != m.ID {
		t.Errorf("item hydrated to %#v", page.Items[0].Object)
	}

	if _, err := f.svc.Outbox(ctx, community, outsider, 1, 5); !errors.Is(err, apperrors.ErrNotMember) {
		t.Errorf("outbox of a non-member: got %v", err)
	}
}
