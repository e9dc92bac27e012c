package notifications

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Notifier delivers one persisted notification over an outbound channel
type Notifier interface {
	Name() string
	Send(ctx context.Context, n models.Notification) error
}

// CounterInvalidator drops cached unread counts
type CounterInvalidator interface {
	Invalidate(ctx context.Context, communityID int64, userIDs ...int64) error
}

const defaultDeliveryConcurrency = 8

// Dispatcher hands committed notifications to every notifier. Delivery is best
// effort and runs in the background: failures are logged and counted, never
// returned, and the caller does not wait for outbound channels.
type Dispatcher struct {
	notifiers []Notifier
	counter   CounterInvalidator
	logger    zerolog.Logger
	limit     int

	inflight sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. counter may be nil.
func NewDispatcher(logger zerolog.Logger, counter CounterInvalidator, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{
		notifiers: notifiers,
		counter:   counter,
		logger:    logger,
		limit:     defaultDeliveryConcurrency,
	}
}

// Invalidate drops the cached unread counts of inboxes whose content changed
// outside of Dispatch, such as notifications removed by a cascade.
func (d *Dispatcher) Invalidate(ctx context.Context, inboxes []models.InboxRef) {
	if d == nil || d.counter == nil || len(inboxes) == 0 {
		return
	}
	byCommunity := make(map[int64][]int64)
	for _, in := range inboxes {
		byCommunity[in.CommunityID] = append(byCommunity[in.CommunityID], in.RecipientID)
	}
	for communityID, users := range byCommunity {
		if err := d.counter.Invalidate(ctx, communityID, users...); err != nil {
			d.logger.Warn().Err(err).Int64("communityID", communityID).Msg("Failed to invalidate unread counters")
		}
	}
}

// Dispatch must only be called after the notifications were committed. Unread
// counters are invalidated before it returns; delivery continues on a context
// detached from the caller's cancellation.
func (d *Dispatcher) Dispatch(ctx context.Context, ns []models.Notification) {
	if d == nil || len(ns) == 0 {
		return
	}

	inboxes := make([]models.InboxRef, 0, len(ns))
	for _, n := range ns {
		metrics.NotificationCreated(string(n.Verb))
		inboxes = append(inboxes, models.InboxRef{RecipientID: n.RecipientID, CommunityID: n.CommunityID})
	}
	d.Invalidate(ctx, inboxes)

	if len(d.notifiers) == 0 {
		return
	}
	deliverCtx := context.WithoutCancel(ctx)
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		d.deliver(deliverCtx, ns)
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, ns []models.Notification) {
	var g errgroup.Group
	g.SetLimit(d.limit)
	for _, n := range ns {
		n := n
		for _, notifier := range d.notifiers {
			notifier := notifier
			g.Go(func() error {
				err := notifier.Send(ctx, n)
				metrics.Delivery(notifier.Name(), err)
				if err != nil {
					d.logger.Warn().Err(err).
						Str("channel", notifier.Name()).
						Int64("recipientID", n.RecipientID).
						Str("verb", string(n.Verb)).
						Msg("Notification delivery failed")
				}
				return nil
			})
		}
	}
	_ = g.Wait()
}

// Wait blocks until every delivery started so far finished
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.inflight.Wait()
}
