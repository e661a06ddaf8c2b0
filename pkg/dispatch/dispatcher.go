// Package dispatch runs the sharded per-OprfKeyId dispatcher goroutines
// (spec.md §5, Design Note §9: "no global lock; shard by OprfKeyId"). Each
// shard serializes the events for exactly one key through a single
// goroutine, so pkg/registry.Mirror and the round handlers never need to
// reason about concurrent access to one key's state.
package dispatch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/registry"
)

// Handler reacts to one confirmed, in-order event for a single OprfKeyId.
// Implementations live in pkg/keygen and pkg/reshare.
type Handler interface {
	Handle(ctx context.Context, ev registry.Event, committee party.Committee) error
}

// CommitteeResolver looks up the fixed committee for an OprfKeyId, needed
// to size a freshly observed key's state (Mirror.Apply's second argument).
type CommitteeResolver func(ctx context.Context, id oprfkey.ID) (party.Committee, error)

// Dispatcher owns one goroutine per OprfKeyId currently being processed,
// plus the confirmation-delay buffer in front of them.
type Dispatcher struct {
	chain         registry.ChainClient
	mirror        *registry.Mirror
	handler       Handler
	resolve       CommitteeResolver
	confirmations uint64
	pollInterval  time.Duration
	log           *zap.Logger

	mu      sync.Mutex
	shards  map[oprfkey.ID]chan registry.Event
	pending []bufferedEvent
}

type bufferedEvent struct {
	ev registry.Event
}

// New builds a Dispatcher. confirmations is the number of blocks an event
// must age past head before it is dispatched (spec.md §5); pollInterval
// governs how often LatestBlock is polled to age the buffer.
func New(chain registry.ChainClient, mirror *registry.Mirror, handler Handler, resolve CommitteeResolver, confirmations uint64, pollInterval time.Duration, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		chain:         chain,
		mirror:        mirror,
		handler:       handler,
		resolve:       resolve,
		confirmations: confirmations,
		pollInterval:  pollInterval,
		log:           log,
		shards:        make(map[oprfkey.ID]chan registry.Event),
	}
}

// Run subscribes to the chain client and drives every shard until ctx is
// cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	events, err := d.chain.Subscribe(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.closeAll()
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				d.closeAll()
				return nil
			}
			d.buffer(ev)
		case <-ticker.C:
			d.releaseConfirmed(ctx)
		}
	}
}

func (d *Dispatcher) buffer(ev registry.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, bufferedEvent{ev: ev})
}

func (d *Dispatcher) releaseConfirmed(ctx context.Context) {
	head, err := d.chain.LatestBlock(ctx)
	if err != nil {
		d.log.Warn("dispatch: latest block lookup failed", zap.Error(err))
		return
	}

	d.mu.Lock()
	var remaining []bufferedEvent
	var ready []registry.Event
	for _, be := range d.pending {
		if head >= be.ev.BlockNumber+d.confirmations {
			ready = append(ready, be.ev)
		} else {
			remaining = append(remaining, be)
		}
	}
	d.pending = remaining
	d.mu.Unlock()

	for _, ev := range ready {
		d.send(ctx, ev)
	}
}

func (d *Dispatcher) send(ctx context.Context, ev registry.Event) {
	d.mu.Lock()
	ch, ok := d.shards[ev.OprfKeyID]
	if !ok {
		ch = make(chan registry.Event, 64)
		d.shards[ev.OprfKeyID] = ch
		go d.runShard(ctx, ev.OprfKeyID, ch)
	}
	d.mu.Unlock()

	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}

func (d *Dispatcher) runShard(ctx context.Context, id oprfkey.ID, ch chan registry.Event) {
	log := d.log.With(zap.String("oprf_key_id", id.String()))
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			committee, err := d.resolve(ctx, id)
			if err != nil {
				log.Error("dispatch: committee resolve failed", zap.Error(err))
				continue
			}
			if err := d.mirror.Apply(ev, committee); err != nil {
				log.Error("dispatch: mirror apply failed", zap.Error(err))
				continue
			}
			if err := d.handler.Handle(ctx, ev, committee); err != nil {
				log.Error("dispatch: handler failed", zap.String("event", string(ev.Kind)), zap.Error(err))
			}
		}
	}
}

func (d *Dispatcher) closeAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, ch := range d.shards {
		close(ch)
		delete(d.shards, id)
	}
}
