package service

import (
	"context"
	"time"

	"github.com/mistriapp/mistri/server/mistri"
)

func (mw loggingMiddleware) CreateDirectJob(ctx context.Context, p mistri.DirectJobPayload) (job *mistri.JobRecord, err error) {
	defer func(begin time.Time) {
		mw.loggerInfo(err).Log(
			"method", "CreateDirectJob",
			"err", err,
			"worker_id", p.WorkerID,
			"took", time.Since(begin),
		)
	}(time.Now())
	job, err = mw.Service.CreateDirectJob(ctx, p)
	return job, err
}

func (mw loggingMiddleware) CreateBroadcastJob(ctx context.Context, p mistri.BroadcastJobPayload) (job *mistri.JobRecord, err error) {
	defer func(begin time.Time) {
		mw.loggerInfo(err).Log(
			"method", "CreateBroadcastJob",
			"err", err,
			"skill", p.Skill,
			"took", time.Since(begin),
		)
	}(time.Now())
	job, err = mw.Service.CreateBroadcastJob(ctx, p)
	return job, err
}

func (mw loggingMiddleware) AcceptJob(ctx context.Context, jobID string) (job *mistri.JobRecord, err error) {
	defer func(begin time.Time) {
		mw.loggerInfo(err).Log(
			"method", "AcceptJob",
			"err", err,
			"job_id", jobID,
			"took", time.Since(begin),
		)
	}(time.Now())
	job, err = mw.Service.AcceptJob(ctx, jobID)
	return job, err
}

func (mw loggingMiddleware) VerifyArrival(ctx context.Context, jobID, code string) (job *mistri.JobRecord, err error) {
	defer func(begin time.Time) {
		// never log the submitted code
		mw.loggerInfo(err).Log(
			"method", "VerifyArrival",
			"err", err,
			"job_id", jobID,
			"took", time.Since(begin),
		)
	}(time.Now())
	job, err = mw.Service.VerifyArrival(ctx, jobID, code)
	return job, err
}

func (mw loggingMiddleware) RequestCompletion(ctx context.Context, jobID string, mediaURLs []string) (job *mistri.JobRecord, err error) {
	defer func(begin time.Time) {
		mw.loggerInfo(err).Log(
			"method", "RequestCompletion",
			"err", err,
			"job_id", jobID,
			"media_count", len(mediaURLs),
			"took", time.Since(begin),
		)
	}(time.Now())
	job, err = mw.Service.RequestCompletion(ctx, jobID, mediaURLs)
	return job, err
}

func (mw loggingMiddleware) VerifyCompletion(ctx context.Context, jobID, code string, method mistri.PaymentMethod) (job *mistri.JobRecord, err error) {
	defer func(begin time.Time) {
		mw.loggerInfo(err).Log(
			"method", "VerifyCompletion",
			"err", err,
			"job_id", jobID,
			"payment_method", method,
			"took", time.Since(begin),
		)
	}(time.Now())
	job, err = mw.Service.VerifyCompletion(ctx, jobID, code, method)
	return job, err
}

func (mw loggingMiddleware) CancelJob(ctx context.Context, jobID string) (job *mistri.JobRecord, err error) {
	defer func(begin time.Time) {
		mw.loggerInfo(err).Log(
			"method", "CancelJob",
			"err", err,
			"job_id", jobID,
			"took", time.Since(begin),
		)
	}(time.Now())
	job, err = mw.Service.CancelJob(ctx, jobID)
	return job, err
}

func (mw loggingMiddleware) SaveReview(ctx context.Context, jobID string, review mistri.JobReview) (job *mistri.JobRecord, err error) {
	defer func(begin time.Time) {
		mw.loggerDebug(err).Log(
			"method", "SaveReview",
			"err", err,
			"job_id", jobID,
			"took", time.Since(begin),
		)
	}(time.Now())
	job, err = mw.Service.SaveReview(ctx, jobID, review)
	return job, err
}

func (mw loggingMiddleware) Job(ctx context.Context, id string) (job *mistri.JobRecord, err error) {
	defer func(begin time.Time) {
		mw.loggerDebug(err).Log(
			"method", "Job",
			"err", err,
			"job_id", id,
			"took", time.Since(begin),
		)
	}(time.Now())
	job, err = mw.Service.Job(ctx, id)
	return job, err
}

func (mw loggingMiddleware) ListJobs(ctx context.Context, opt mistri.JobListOptions) (jobs []*mistri.JobRecord, err error) {
	defer func(begin time.Time) {
		mw.loggerDebug(err).Log(
			"method", "ListJobs",
			"err", err,
			"took", time.Since(begin),
		)
	}(time.Now())
	jobs, err = mw.Service.ListJobs(ctx, opt)
	return jobs, err
}

func (mw loggingMiddleware) BroadcastFeed(ctx context.Context) (jobs []*mistri.JobRecord, err error) {
	defer func(begin time.Time) {
		mw.loggerDebug(err).Log(
			"method", "BroadcastFeed",
			"err", err,
			"took", time.Since(begin),
		)
	}(time.Now())
	jobs, err = mw.Service.BroadcastFeed(ctx)
	return jobs, err
}

func (mw loggingMiddleware) ListOnlineWorkers(ctx context.Context, skill string) (workers []*mistri.Worker, err error) {
	defer func(begin time.Time) {
		mw.loggerDebug(err).Log(
			"method", "ListOnlineWorkers",
			"err", err,
			"skill", skill,
			"took", time.Since(begin),
		)
	}(time.Now())
	workers, err = mw.Service.ListOnlineWorkers(ctx, skill)
	return workers, err
}

func (mw loggingMiddleware) WorkerLedger(ctx context.Context, workerID string) (entries []*mistri.LedgerEntry, err error) {
	defer func(begin time.Time) {
		mw.loggerDebug(err).Log(
			"method", "WorkerLedger",
			"err", err,
			"worker_id", workerID,
			"took", time.Since(begin),
		)
	}(time.Now())
	entries, err = mw.Service.WorkerLedger(ctx, workerID)
	return entries, err
}

func (mw loggingMiddleware) PlatformFeeConfig(ctx context.Context) (cfg *mistri.PlatformFeeConfig, err error) {
	defer func(begin time.Time) {
		mw.loggerDebug(err).Log(
			"method", "PlatformFeeConfig",
			"err", err,
			"took", time.Since(begin),
		)
	}(time.Now())
	cfg, err = mw.Service.PlatformFeeConfig(ctx)
	return cfg, err
}

func (mw loggingMiddleware) ModifyPlatformFeeConfig(ctx context.Context, cfg mistri.PlatformFeeConfig) (err error) {
	defer func(begin time.Time) {
		mw.loggerInfo(err).Log(
			"method", "ModifyPlatformFeeConfig",
			"err", err,
			"took", time.Since(begin),
		)
	}(time.Now())
	err = mw.Service.ModifyPlatformFeeConfig(ctx, cfg)
	return err
}
