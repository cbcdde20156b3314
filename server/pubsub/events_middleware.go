package pubsub

import (
	"context"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/mistriapp/mistri/server/mistri"
)

// eventsMiddleware publishes the updated job snapshot after every mutating
// operation. Publishing is best effort: subscribers fall back to the poller,
// so a failed publish is logged and swallowed rather than failing the
// operation.
type eventsMiddleware struct {
	mistri.Service
	stream *JobEventStream
	logger kitlog.Logger
}

// NewPublishingService wraps svc so job mutations are pushed onto the event
// stream in addition to being visible to pollers.
func NewPublishingService(svc mistri.Service, stream *JobEventStream, logger kitlog.Logger) mistri.Service {
	return &eventsMiddleware{Service: svc, stream: stream, logger: logger}
}

func (mw *eventsMiddleware) publish(ctx context.Context, job *mistri.JobRecord) {
	if job == nil {
		return
	}
	if err := mw.stream.Publish(ctx, job); err != nil {
		level.Error(mw.logger).Log("msg", "publish job event", "job_id", job.ID, "err", err)
	}
}

func (mw *eventsMiddleware) CreateDirectJob(ctx context.Context, p mistri.DirectJobPayload) (*mistri.JobRecord, error) {
	job, err := mw.Service.CreateDirectJob(ctx, p)
	if err == nil {
		mw.publish(ctx, job)
	}
	return job, err
}

func (mw *eventsMiddleware) CreateBroadcastJob(ctx context.Context, p mistri.BroadcastJobPayload) (*mistri.JobRecord, error) {
	job, err := mw.Service.CreateBroadcastJob(ctx, p)
	if err == nil {
		mw.publish(ctx, job)
	}
	return job, err
}

func (mw *eventsMiddleware) AcceptJob(ctx context.Context, jobID string) (*mistri.JobRecord, error) {
	job, err := mw.Service.AcceptJob(ctx, jobID)
	if err == nil {
		mw.publish(ctx, job)
	}
	return job, err
}

func (mw *eventsMiddleware) VerifyArrival(ctx context.Context, jobID, code string) (*mistri.JobRecord, error) {
	job, err := mw.Service.VerifyArrival(ctx, jobID, code)
	if err == nil {
		mw.publish(ctx, job)
	}
	return job, err
}

func (mw *eventsMiddleware) RequestCompletion(ctx context.Context, jobID string, mediaURLs []string) (*mistri.JobRecord, error) {
	job, err := mw.Service.RequestCompletion(ctx, jobID, mediaURLs)
	if err == nil {
		mw.publish(ctx, job)
	}
	return job, err
}

func (mw *eventsMiddleware) VerifyCompletion(ctx context.Context, jobID, code string, method mistri.PaymentMethod) (*mistri.JobRecord, error) {
	job, err := mw.Service.VerifyCompletion(ctx, jobID, code, method)
	if err == nil {
		mw.publish(ctx, job)
	}
	return job, err
}

func (mw *eventsMiddleware) CancelJob(ctx context.Context, jobID string) (*mistri.JobRecord, error) {
	job, err := mw.Service.CancelJob(ctx, jobID)
	if err == nil {
		mw.publish(ctx, job)
	}
	return job, err
}

func (mw *eventsMiddleware) SaveReview(ctx context.Context, jobID string, review mistri.JobReview) (*mistri.JobRecord, error) {
	job, err := mw.Service.SaveReview(ctx, jobID, review)
	if err == nil {
		mw.publish(ctx, job)
	}
	return job, err
}
