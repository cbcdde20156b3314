// Package worker processes the durable outbox recorded alongside job
// transitions: wallet credits on settlement and penalty debits on worker
// cancellation. Entries are retried with growing delays so a transient
// store failure cannot leave a completed job uncredited.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/mistriapp/mistri/server/contexts/ctxerr"
	"github.com/mistriapp/mistri/server/mistri"
)

const maxRetries = 5

// Processor defines an interface for outbox jobs that can be run by the
// Worker.
type Processor interface {
	// Name is the unique name of the outbox job.
	Name() string

	// Run performs the actual work.
	Run(ctx context.Context, argsJSON json.RawMessage) error
}

// Worker runs queued outbox jobs. NOT SAFE FOR CONCURRENT USE.
type Worker struct {
	ds  mistri.Datastore
	log kitlog.Logger

	registry map[string]Processor
}

func NewWorker(ds mistri.Datastore, log kitlog.Logger) *Worker {
	return &Worker{
		ds:       ds,
		log:      log,
		registry: make(map[string]Processor),
	}
}

func (w *Worker) Register(procs ...Processor) {
	for _, p := range procs {
		name := p.Name()
		if _, ok := w.registry[name]; ok {
			panic(fmt.Sprintf("outbox processor %s already registered", name))
		}
		w.registry[name] = p
	}
}

// NewQueuedJob builds an outbox job record without persisting it, so
// callers can commit it atomically with another write (see
// Datastore.SettleJob).
func NewQueuedJob(name string, args interface{}) (*mistri.OutboxJob, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return &mistri.OutboxJob{
		Name:  name,
		Args:  (*json.RawMessage)(&argsJSON),
		State: mistri.OutboxStateQueued,
	}, nil
}

// this defines the delays to add between retries (i.e. how the "not_before"
// timestamp of a job will be set for the next run). At a minimum a job is
// not retried before the next cron run of the worker, but a growing delay
// gives transient store issues a chance to resolve themselves.
var delayPerRetry = []time.Duration{
	1: 0, // i.e. for the first retry, do it ASAP (on the next worker run)
	2: 5 * time.Minute,
	3: 10 * time.Minute,
	4: 1 * time.Hour,
	5: 2 * time.Hour,
}

// ProcessJobs processes all queued outbox jobs.
func (w *Worker) ProcessJobs(ctx context.Context) error {
	const maxNumJobs = 100

	// process jobs until there are none left or the context is cancelled
	seen := make(map[uint]struct{})
	for {
		jobs, err := w.ds.GetQueuedOutboxJobs(ctx, maxNumJobs, time.Now())
		if err != nil {
			return ctxerr.Wrap(ctx, err, "get queued outbox jobs")
		}

		if len(jobs) == 0 {
			break
		}

		for _, job := range jobs {
			select {
			case <-ctx.Done():
				return ctxerr.Wrap(ctx, ctx.Err(), "context done")
			default:
			}

			log := kitlog.With(w.log, "outbox_job_id", job.ID)

			if _, ok := seen[job.ID]; ok {
				level.Debug(log).Log("msg", "some outbox jobs failed, retrying on next cron execution")
				return nil
			}
			seen[job.ID] = struct{}{}

			level.Debug(log).Log("msg", "processing outbox job")

			if err := w.processJob(ctx, job); err != nil {
				level.Error(log).Log("msg", "process outbox job", "err", err)
				job.Error = err.Error()
				if job.Retries < maxRetries {
					level.Debug(log).Log("msg", "will retry outbox job")
					job.Retries += 1
					if job.Retries < len(delayPerRetry) {
						job.NotBefore = time.Now().Add(delayPerRetry[job.Retries])
					}
				} else {
					job.State = mistri.OutboxStateFailure
				}
			} else {
				job.State = mistri.OutboxStateSuccess
				job.Error = ""
			}

			if _, err := w.ds.UpdateOutboxJob(ctx, job.ID, job); err != nil {
				level.Error(log).Log("update outbox job", "err", err)
			}
		}
	}

	return nil
}

func (w *Worker) processJob(ctx context.Context, job *mistri.OutboxJob) error {
	p, ok := w.registry[job.Name]
	if !ok {
		return ctxerr.Errorf(ctx, "unknown outbox job: %s", job.Name)
	}

	var args json.RawMessage
	if job.Args != nil {
		args = *job.Args
	}

	return p.Run(ctx, args)
}
