package pubsub

import (
	"context"
	"sync"
	"time"

	"github.com/WatchBeam/clock"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/mistriapp/mistri/server/mistri"
)

// Poll intervals observed to work well in practice: latency-sensitive views
// (active job tracking, the broadcast feed) at one second, low-priority
// admin lists at ten to thirty seconds.
const (
	DefaultActiveInterval = 1 * time.Second
	DefaultAdminInterval  = 10 * time.Second
)

// JobLister is the subset of the datastore the poller reads from.
type JobLister interface {
	ListJobs(ctx context.Context, opt mistri.JobListOptions) ([]*mistri.JobRecord, error)
}

// Poller turns the datastore's filtered queries into subscriptions. Each
// subscription owns an independent timer which is cancelled on unsubscribe,
// so abandoned views do not keep polling load alive.
type Poller struct {
	lister JobLister
	clock  clock.Clock
	logger kitlog.Logger
}

// NewPoller creates a poller reading from lister.
func NewPoller(lister JobLister, c clock.Clock, logger kitlog.Logger) *Poller {
	if c == nil {
		c = clock.C
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &Poller{lister: lister, clock: c, logger: logger}
}

// Subscribe fetches the jobs matching opt immediately and then every
// interval, invoking onUpdate with the full current result set each time.
// A fetch error is logged and skipped; the next tick is the recovery
// mechanism, so subscribers see stale data rather than an error during an
// outage. The returned function cancels the subscription and its timer.
func (p *Poller) Subscribe(ctx context.Context, opt mistri.JobListOptions, interval time.Duration, onUpdate func([]*mistri.JobRecord)) (unsubscribe func()) {
	if interval <= 0 {
		interval = DefaultActiveInterval
	}

	done := make(chan struct{})
	go func() {
		p.fetch(ctx, opt, onUpdate)
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-p.clock.After(interval):
				p.fetch(ctx, opt, onUpdate)
			}
		}
	}()

	// Unsubscribe must be safe to call more than once.
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

func (p *Poller) fetch(ctx context.Context, opt mistri.JobListOptions, onUpdate func([]*mistri.JobRecord)) {
	jobs, err := p.lister.ListJobs(ctx, opt)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		level.Error(p.logger).Log("msg", "poll jobs", "err", err)
		return
	}
	onUpdate(jobs)
}
