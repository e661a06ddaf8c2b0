// Package alarm surfaces operator-facing faults as a structured event
// stream, independent of the zap log sink. The reshare handler raises one
// when a resharing aborts for too few Producers; cmd/oprf-noded watches
// the bus and logs each alarm.
package alarm

import (
	"context"
	"time"

	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
)

// Severity classifies an alarm for operator triage.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarn:
		return "warn"
	case SeverityCritical:
		return "critical"
	default:
		return "info"
	}
}

// Alarm is one operator-facing fault record.
type Alarm struct {
	Time      time.Time
	Severity  Severity
	OprfKeyID oprfkey.ID
	Kind      error
	Message   string
}

// Bus fans alarms out to every registered subscriber; a slow subscriber
// never blocks the raiser, it just misses events once its buffer fills.
type Bus struct {
	subs []chan Alarm
}

// NewBus returns an empty alarm bus.
func NewBus() *Bus { return &Bus{} }

// Subscribe returns a channel that receives every alarm raised after this
// call, buffered so one stalled consumer cannot backpressure Raise.
func (b *Bus) Subscribe(buffer int) <-chan Alarm {
	ch := make(chan Alarm, buffer)
	b.subs = append(b.subs, ch)
	return ch
}

// Raise publishes an alarm to every subscriber, dropping it for any
// subscriber whose buffer is currently full.
func (b *Bus) Raise(a Alarm) {
	for _, ch := range b.subs {
		select {
		case ch <- a:
		default:
		}
	}
}

// Watch blocks until ctx is cancelled, invoking fn for every alarm
// delivered on ch. cmd/oprf-noded uses it to log alarms.
func Watch(ctx context.Context, ch <-chan Alarm, fn func(Alarm)) {
	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-ch:
			if !ok {
				return
			}
			fn(a)
		}
	}
}
