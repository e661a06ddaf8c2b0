// Package refresh drives the periodic resharing loop (C8, spec.md §4.8):
// a ticker that, for every OprfKeyId this node is responsible for, checks
// whether the configured refresh interval has elapsed since the key's
// last epoch bump and, if so, kicks off a fresh InitReshare.
package refresh

import (
	"context"
	"time"

	"go.uber.org/zap"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/oprf-dkg/pkg/oprfkey"
	"github.com/luxfi/oprf-dkg/pkg/party"
	"github.com/luxfi/oprf-dkg/pkg/registry"
)

// Clock abstracts wall-clock reads so tests can control elapsed time
// without a live ticker.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Tracker answers which keys this node administers and when each one last
// finalized, so the loop only proposes a reshare once the interval has
// genuinely elapsed.
type Tracker interface {
	AdministeredKeys(ctx context.Context) ([]oprfkey.ID, error)
	LastFinalizedAt(ctx context.Context, id oprfkey.ID) (time.Time, error)
	CurrentCommittee(ctx context.Context, id oprfkey.ID) (party.Committee, error)
	NextCommittee(ctx context.Context, id oprfkey.ID, current party.Committee) (party.Committee, error)
}

var reshareInitiated = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "oprf_dkg",
	Subsystem: "refresh",
	Name:      "reshare_initiated_total",
	Help:      "Number of InitReshare calls this node's refresh loop issued.",
}, []string{"oprf_key_id"})

var reshareErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "oprf_dkg",
	Subsystem: "refresh",
	Name:      "reshare_errors_total",
	Help:      "Number of InitReshare calls that failed.",
}, []string{"oprf_key_id"})

func init() {
	prometheus.MustRegister(reshareInitiated, reshareErrors)
}

// Loop periodically scans administered keys and refreshes any key whose
// age has exceeded Interval.
type Loop struct {
	Chain    registry.ChainClient
	Tracker  Tracker
	Interval time.Duration
	Period   time.Duration // how often to scan; defaults to Interval/10
	Clock    Clock
	Log      *zap.Logger
}

// Run scans on Period until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if l.Clock == nil {
		l.Clock = realClock{}
	}
	period := l.Period
	if period <= 0 {
		period = l.Interval / 10
		if period <= 0 {
			period = time.Minute
		}
	}
	log := l.Log
	if log == nil {
		log = zap.NewNop()
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.scanOnce(ctx, log)
		}
	}
}

func (l *Loop) scanOnce(ctx context.Context, log *zap.Logger) {
	ids, err := l.Tracker.AdministeredKeys(ctx)
	if err != nil {
		log.Warn("refresh: list administered keys failed", zap.Error(err))
		return
	}

	now := l.Clock.Now()
	for _, id := range ids {
		lastFinalized, err := l.Tracker.LastFinalizedAt(ctx, id)
		if err != nil {
			log.Warn("refresh: last finalized lookup failed", zap.String("oprf_key_id", id.String()), zap.Error(err))
			continue
		}
		if now.Sub(lastFinalized) < l.Interval {
			continue
		}

		current, err := l.Tracker.CurrentCommittee(ctx, id)
		if err != nil {
			log.Warn("refresh: current committee lookup failed", zap.String("oprf_key_id", id.String()), zap.Error(err))
			continue
		}
		next, err := l.Tracker.NextCommittee(ctx, id, current)
		if err != nil {
			log.Warn("refresh: next committee lookup failed", zap.String("oprf_key_id", id.String()), zap.Error(err))
			continue
		}

		if err := l.Chain.InitReshare(ctx, id, next); err != nil {
			reshareErrors.WithLabelValues(id.String()).Inc()
			log.Error("refresh: InitReshare failed", zap.String("oprf_key_id", id.String()), zap.Error(err))
			continue
		}
		reshareInitiated.WithLabelValues(id.String()).Inc()
		log.Info("refresh: reshare initiated", zap.String("oprf_key_id", id.String()), zap.Duration("age", now.Sub(lastFinalized)))
	}
}
