package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type Store interface {
	LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error)
	MarkSent(ctx context.Context, ids []int64) error
	// Release puts an event back to pending after a transient failure.
	Release(ctx context.Context, id int64, errMsg string) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
}

type Relay struct {
	log        *slog.Logger
	store      Store
	dispatch   *Dispatcher
	relayID    string
	batchSize  int
	interval   time.Duration
	lease      time.Duration
	maxRetries int
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option { return func(r *Relay) { r.interval = d } }

func WithBatchSize(n int) Option { return func(r *Relay) { r.batchSize = n } }

func WithMaxRetries(n int) Option { return func(r *Relay) { r.maxRetries = n } }

func NewRelay(log *slog.Logger, store Store, dispatch *Dispatcher, relayID string, opts ...Option) *Relay {
	r := &Relay{
		log:        log,
		store:      store,
		dispatch:   dispatch,
		relayID:    relayID,
		batchSize:  100,
		interval:   500 * time.Millisecond,
		lease:      5 * time.Second,
		maxRetries: 10,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopping", "relay_id", r.relayID)
			return nil
		case <-t.C:
			if _, err := r.Tick(ctx); err != nil {
				r.log.Error("relay lock batch error", "err", err)
			}
		}
	}
}

// Tick relays one batch and returns how many events were sent.
func (r *Relay) Tick(ctx context.Context) (int, error) {
	events, err := r.store.LockBatch(ctx, r.relayID, r.batchSize, r.lease)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(events))
	for _, e := range events {
		if err := r.dispatch.Dispatch(ctx, e); err != nil {
			r.fail(ctx, e, err)
			continue
		}
		ids = append(ids, e.ID)
	}
	if len(ids) > 0 {
		if err := r.store.MarkSent(ctx, ids); err != nil {
			r.log.Error("relay mark sent error", "err", err)
		}
	}
	return len(ids), nil
}

func (r *Relay) fail(ctx context.Context, e Event, err error) {
	if errors.Is(err, ErrPermanent) || e.RetryCount+1 >= r.maxRetries {
		if mErr := r.store.MarkFailed(ctx, e.ID, err.Error()); mErr != nil {
			r.log.Error("relay mark failed error", "event_id", e.ID, "err", mErr)
		}
		return
	}
	if rErr := r.store.Release(ctx, e.ID, err.Error()); rErr != nil {
		r.log.Error("relay release error", "event_id", e.ID, "err", rErr)
	}
}
