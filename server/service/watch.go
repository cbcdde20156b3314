package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mistriapp/mistri/server/mistri"
	"github.com/mistriapp/mistri/server/pubsub"
)

// watchJobsHandler streams job list snapshots over server-sent events. Each
// event carries the full current result set for the requested filter,
// refreshed on the poller's interval, so a client that misses events still
// catches up on the next tick. Filters match the list endpoint: customer_id,
// worker_id, skill, status. Active views refresh on the tight interval;
// admin dashboards get the relaxed one.
func watchJobsHandler(svc mistri.Service, ds mistri.Datastore, activeInterval, adminInterval time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, v, err := authViewer(r.Context(), ds, r)
		if err != nil {
			encodeError(r.Context(), err, w)
			return
		}

		interval := activeInterval
		if v.IsAdmin() {
			interval = adminInterval
		}

		req, err := decodeListJobsRequest(ctx, r)
		if err != nil {
			encodeError(ctx, err, w)
			return
		}
		opt := req.(listJobsRequest).ListOptions

		flusher, ok := beginEventStream(ctx, w)
		if !ok {
			return
		}

		// ListJobs applies the caller's visibility scoping and code
		// scrubbing, so the poller reads through the service rather than the
		// datastore.
		snapshots := make(chan []*mistri.JobRecord, 1)
		poller := pubsub.NewPoller(svc, nil, nil)
		unsubscribe := poller.Subscribe(ctx, opt, interval, func(jobs []*mistri.JobRecord) {
			select {
			case snapshots <- jobs:
			default:
				// the client is still consuming the previous snapshot, skip
			}
		})
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case jobs := <-snapshots:
				if jobs == nil {
					jobs = []*mistri.JobRecord{}
				}
				if !writeEvent(w, flusher, "jobs", jobs) {
					return
				}
			}
		}
	})
}

// watchJobHandler streams snapshots of a single job over server-sent events.
// When a Redis event stream is configured, updates are pushed as transitions
// are published; otherwise the handler falls back to re-fetching on the
// active interval. Either way every event is a full snapshot, so a missed
// intermediate state is recovered by the next one.
func watchJobHandler(svc mistri.Service, ds mistri.Datastore, stream *pubsub.JobEventStream, interval time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, v, err := authViewer(r.Context(), ds, r)
		if err != nil {
			encodeError(r.Context(), err, w)
			return
		}

		jobID, err := idFromRequest(r, "id")
		if err != nil {
			encodeError(ctx, err, w)
			return
		}

		// authorizes the caller as a party to the job and scrubs the codes
		// from the first snapshot
		job, err := svc.Job(ctx, jobID)
		if err != nil {
			encodeError(ctx, err, w)
			return
		}

		flusher, ok := beginEventStream(ctx, w)
		if !ok {
			return
		}
		if !writeEvent(w, flusher, "job", job) {
			return
		}

		if stream != nil {
			events, err := stream.ReadChannel(ctx, jobID)
			if err != nil {
				// headers are out; the client reconnects and may land on a
				// healthy instance
				return
			}
			for {
				select {
				case <-ctx.Done():
					return
				case update, ok := <-events:
					if !ok {
						return
					}
					// published events carry whatever the acting party was
					// allowed to see, so scrub again for this viewer
					if !writeEvent(w, flusher, "job", scrubCodes(v, update)) {
						return
					}
				}
			}
		}

		// no event stream configured, fall back to interval re-fetches
		if interval <= 0 {
			interval = pubsub.DefaultActiveInterval
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				update, err := svc.Job(ctx, jobID)
				if err != nil {
					// next tick is the recovery path
					continue
				}
				if !writeEvent(w, flusher, "job", update) {
					return
				}
			}
		}
	})
}

func beginEventStream(ctx context.Context, w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		encodeError(ctx, fmt.Errorf("streaming not supported"), w)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher, true
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload interface{}) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return false
	}
	flusher.Flush()
	return true
}
