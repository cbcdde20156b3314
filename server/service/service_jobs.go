package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/mistriapp/mistri/server/authz"
	"github.com/mistriapp/mistri/server/contexts/ctxerr"
	"github.com/mistriapp/mistri/server/contexts/viewer"
	"github.com/mistriapp/mistri/server/fees"
	"github.com/mistriapp/mistri/server/mistri"
	"github.com/mistriapp/mistri/server/otp"
	"github.com/mistriapp/mistri/server/ptr"
	"github.com/mistriapp/mistri/server/worker"
)

// scrubCodes blanks the checkpoint codes on job unless vc is the booking
// customer. The customer reads the codes off their own screen and relays
// them verbally; the assigned worker proves presence by hearing them, so no
// other caller's response may carry them. Safe to mutate in place: the
// datastores hand out copies.
func scrubCodes(vc viewer.Viewer, job *mistri.JobRecord) *mistri.JobRecord {
	if job == nil || vc.IsUserID(job.CustomerID) {
		return job
	}
	job.ArrivalCode = ""
	job.CompletionCode = ""
	return job
}

func scrubCodesList(vc viewer.Viewer, jobs []*mistri.JobRecord) []*mistri.JobRecord {
	for _, job := range jobs {
		scrubCodes(vc, job)
	}
	return jobs
}

func (svc *Service) CreateDirectJob(ctx context.Context, p mistri.DirectJobPayload) (*mistri.JobRecord, error) {
	vc, ok := viewer.FromContext(ctx)
	if !ok || !vc.IsCustomer() {
		return nil, authz.ForbiddenWithInternal("direct booking requires a customer account", vc.User, "job", "create")
	}

	invalid := &mistri.InvalidArgumentError{}
	if p.WorkerID == "" {
		invalid.Append("worker_id", "missing required argument")
	}
	if p.Price <= 0 {
		invalid.Append("price", "must be a positive amount")
	}
	if invalid.HasErrors() {
		return nil, ctxerr.Wrap(ctx, invalid)
	}

	target, err := svc.ds.Worker(ctx, p.WorkerID)
	if err != nil {
		if mistri.IsNotFound(err) {
			return nil, ctxerr.Wrap(ctx, mistri.NewInvalidArgumentError("worker_id", "no such worker"))
		}
		return nil, ctxerr.Wrap(ctx, err, "lookup target worker")
	}
	if !target.IsOnline {
		return nil, ctxerr.Wrap(ctx, mistri.NewInvalidArgumentError("worker_id", "worker is not online"))
	}
	if p.Skill != "" && target.Skill != p.Skill {
		return nil, ctxerr.Wrap(ctx, mistri.NewInvalidArgumentError("skill", "worker does not have this skill"))
	}

	job, err := svc.newJob(ctx, vc, mistri.JobStatusPending, false, target.Skill, p.Price, p.Description, p.Address)
	if err != nil {
		return nil, err
	}
	// a direct booking is a request to that worker, not a guarantee;
	// assignment is confirmed only when they accept
	job.WorkerID = target.ID
	job.WorkerName = target.Name
	job.WorkerPhone = target.Phone
	job.WorkerAvatar = target.Avatar

	saved, err := svc.ds.NewJob(ctx, job)
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "create direct job")
	}
	return scrubCodes(vc, saved), nil
}

func (svc *Service) CreateBroadcastJob(ctx context.Context, p mistri.BroadcastJobPayload) (*mistri.JobRecord, error) {
	vc, ok := viewer.FromContext(ctx)
	if !ok || !vc.IsCustomer() {
		return nil, authz.ForbiddenWithInternal("broadcast posting requires a customer account", vc.User, "job", "create")
	}

	invalid := &mistri.InvalidArgumentError{}
	if p.Skill == "" {
		invalid.Append("skill", "missing required argument")
	}
	if p.Price <= 0 {
		invalid.Append("price", "must be a positive amount")
	}
	if invalid.HasErrors() {
		return nil, ctxerr.Wrap(ctx, invalid)
	}

	job, err := svc.newJob(ctx, vc, mistri.JobStatusOpen, true, p.Skill, p.Price, p.Description, p.Address)
	if err != nil {
		return nil, err
	}

	saved, err := svc.ds.NewJob(ctx, job)
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "create broadcast job")
	}
	return scrubCodes(vc, saved), nil
}

// newJob builds a job record with both checkpoint codes minted. The codes are
// generated exactly once here and never regenerated.
func (svc *Service) newJob(ctx context.Context, vc viewer.Viewer, status mistri.JobStatus, broadcast bool, skill string, price int, description, address string) (*mistri.JobRecord, error) {
	arrivalCode, err := otp.GenerateCode()
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "generate arrival code")
	}
	completionCode, err := otp.GenerateCode()
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "generate completion code")
	}

	return &mistri.JobRecord{
		ID:             uuid.New().String(),
		CustomerID:     vc.UserID(),
		CustomerName:   vc.User.Name,
		CustomerPhone:  vc.User.Phone,
		CustomerAvatar: vc.User.Avatar,
		Skill:          skill,
		Description:    description,
		Address:        address,
		Status:         status,
		IsBroadcast:    broadcast,
		Price:          price,
		ArrivalCode:    arrivalCode,
		CompletionCode: completionCode,
	}, nil
}

func (svc *Service) AcceptJob(ctx context.Context, jobID string) (*mistri.JobRecord, error) {
	vc, ok := viewer.FromContext(ctx)
	if !ok || !vc.IsWorker() {
		return nil, authz.ForbiddenWithInternal("acceptance requires a worker account", vc.User, "job", "accept")
	}

	wrk, err := svc.ds.Worker(ctx, vc.UserID())
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "lookup accepting worker")
	}
	if !wrk.IsOnline {
		return nil, authz.ForbiddenWithInternal("offline workers cannot accept jobs", vc.User, "job", "accept")
	}

	job, err := svc.ds.Job(ctx, jobID)
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "lookup job for acceptance")
	}
	if job.IsBroadcast {
		if wrk.Skill != job.Skill {
			return nil, authz.ForbiddenWithInternal("worker skill does not match the job", vc.User, "job", "accept")
		}
	} else if job.WorkerID != wrk.ID {
		return nil, authz.ForbiddenWithInternal("direct booking targets a different worker", vc.User, "job", "accept")
	}

	// the conditional write arbitrates racing acceptances: exactly one
	// caller finds the job still unassigned
	accepted, err := svc.ds.TransitionJob(ctx, jobID,
		[]mistri.JobStatus{mistri.JobStatusOpen, mistri.JobStatusPending},
		mistri.JobChange{
			Status:       mistri.JobStatusAccepted,
			WorkerID:     ptr.String(wrk.ID),
			WorkerName:   ptr.String(wrk.Name),
			WorkerPhone:  ptr.String(wrk.Phone),
			WorkerAvatar: ptr.String(wrk.Avatar),
		})
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "accept job")
	}
	return scrubCodes(vc, accepted), nil
}

func (svc *Service) VerifyArrival(ctx context.Context, jobID, code string) (*mistri.JobRecord, error) {
	job, vc, err := svc.jobForAssignedWorker(ctx, jobID, "verify arrival")
	if err != nil {
		return nil, err
	}

	// a wrong code is retryable and must leave the record untouched
	if !otp.Match(job.ArrivalCode, code) {
		return nil, ctxerr.Wrap(ctx, mistri.NewInvalidArgumentError("code", "incorrect arrival code"))
	}

	started, err := svc.ds.TransitionJob(ctx, jobID,
		[]mistri.JobStatus{mistri.JobStatusAccepted},
		mistri.JobChange{Status: mistri.JobStatusInProgress})
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "verify arrival")
	}
	return scrubCodes(vc, started), nil
}

func (svc *Service) RequestCompletion(ctx context.Context, jobID string, mediaURLs []string) (*mistri.JobRecord, error) {
	job, vc, err := svc.jobForAssignedWorker(ctx, jobID, "request completion")
	if err != nil {
		return nil, err
	}

	if len(mediaURLs) == 0 {
		return nil, ctxerr.Wrap(ctx, mistri.NewInvalidArgumentError("media_urls", "at least one proof-of-work reference is required"))
	}
	if job.Status != mistri.JobStatusInProgress {
		return nil, ctxerr.Wrap(ctx, &mistri.StateConflictError{
			JobID:    jobID,
			Expected: []mistri.JobStatus{mistri.JobStatusInProgress},
			Actual:   job.Status,
		})
	}

	updated, err := svc.ds.TransitionJob(ctx, jobID,
		[]mistri.JobStatus{mistri.JobStatusInProgress},
		mistri.JobChange{
			Status:              mistri.JobStatusInProgress,
			CompletionRequested: ptr.Bool(true),
			CompletionMediaURLs: mediaURLs,
		})
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "request completion")
	}
	return scrubCodes(vc, updated), nil
}

func (svc *Service) VerifyCompletion(ctx context.Context, jobID, code string, method mistri.PaymentMethod) (*mistri.JobRecord, error) {
	job, vc, err := svc.jobForAssignedWorker(ctx, jobID, "verify completion")
	if err != nil {
		return nil, err
	}

	if !method.Valid() {
		return nil, ctxerr.Wrap(ctx, mistri.NewInvalidArgumentError("payment_method", "must be one of UPI, CARD or CASH"))
	}
	// the finish checkpoint is gated on submitted proof of work, not just on
	// the code; checked before the code so a premature call learns nothing
	// about the code's correctness
	if !job.CompletionRequested {
		return nil, ctxerr.Wrap(ctx, mistri.NewInvalidArgumentError("completion_requested", "proof of work must be submitted before completion can be verified"))
	}
	if !otp.Match(job.CompletionCode, code) {
		return nil, ctxerr.Wrap(ctx, mistri.NewInvalidArgumentError("code", "incorrect completion code"))
	}

	// the fee split uses whichever config is active right now, not a value
	// pinned at job creation
	feeCfg, err := svc.ds.PlatformFeeConfig(ctx)
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "load fee config for settlement")
	}
	split := fees.Calculate(feeCfg, job.Price)

	outbox, err := worker.NewLedgerOutboxJob(worker.LedgerArgs{
		Task:     worker.LedgerTaskCreditEarnings,
		JobID:    jobID,
		WorkerID: job.WorkerID,
		Amount:   split.WorkerEarnings,
	})
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "prepare settlement credit")
	}

	settled, err := svc.ds.SettleJob(ctx, jobID,
		[]mistri.JobStatus{mistri.JobStatusInProgress},
		mistri.JobChange{
			Status:         mistri.JobStatusCompleted,
			IsPaid:         ptr.Bool(true),
			PaymentMethod:  &method,
			PlatformFee:    ptr.Int(split.PlatformFee),
			WorkerEarnings: ptr.Int(split.WorkerEarnings),
		}, outbox)
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "verify completion")
	}
	return scrubCodes(vc, settled), nil
}

func (svc *Service) CancelJob(ctx context.Context, jobID string) (*mistri.JobRecord, error) {
	vc, ok := viewer.FromContext(ctx)
	if !ok || !vc.IsLoggedIn() {
		return nil, authz.ForbiddenWithInternal("cancellation requires an account", vc.User, "job", "cancel")
	}

	job, err := svc.ds.Job(ctx, jobID)
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "lookup job for cancellation")
	}

	var actor mistri.CancelActor
	switch {
	case vc.IsUserID(job.CustomerID):
		actor = mistri.CancelledByCustomer
	case vc.IsWorker() && vc.IsUserID(job.WorkerID):
		actor = mistri.CancelledByWorker
	case vc.IsAdmin():
		actor = mistri.CancelledByCustomer
	default:
		return nil, authz.ForbiddenWithInternal("caller is not a party to this job", vc.User, "job", "cancel")
	}

	penalize := actor == mistri.CancelledByWorker && job.Status == mistri.JobStatusAccepted

	from := []mistri.JobStatus{
		mistri.JobStatusOpen, mistri.JobStatusPending,
		mistri.JobStatusAccepted, mistri.JobStatusInProgress,
	}
	change := mistri.JobChange{
		Status:      mistri.JobStatusCancelled,
		CancelledBy: &actor,
	}

	var cancelled *mistri.JobRecord
	if penalize {
		outbox, err := worker.NewLedgerOutboxJob(worker.LedgerArgs{
			Task:     worker.LedgerTaskCancellationPenalty,
			JobID:    jobID,
			WorkerID: job.WorkerID,
			Amount:   svc.config.App.CancellationPenalty,
		})
		if err != nil {
			return nil, ctxerr.Wrap(ctx, err, "prepare cancellation penalty")
		}
		cancelled, err = svc.ds.SettleJob(ctx, jobID, from, change, outbox)
		if err != nil {
			return nil, ctxerr.Wrap(ctx, err, "cancel job")
		}
	} else {
		cancelled, err = svc.ds.TransitionJob(ctx, jobID, from, change)
		if err != nil {
			return nil, ctxerr.Wrap(ctx, err, "cancel job")
		}
	}
	return scrubCodes(vc, cancelled), nil
}

func (svc *Service) SaveReview(ctx context.Context, jobID string, review mistri.JobReview) (*mistri.JobRecord, error) {
	vc, ok := viewer.FromContext(ctx)
	if !ok || !vc.IsLoggedIn() {
		return nil, authz.ForbiddenWithInternal("reviews require an account", vc.User, "job", "review")
	}

	if review.Rating < 1 || review.Rating > 5 {
		return nil, ctxerr.Wrap(ctx, mistri.NewInvalidArgumentError("rating", "must be between 1 and 5"))
	}

	job, err := svc.ds.Job(ctx, jobID)
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "lookup job for review")
	}
	if !vc.IsUserID(job.CustomerID) {
		return nil, authz.ForbiddenWithInternal("only the booking customer may review", vc.User, "job", "review")
	}
	if job.Status != mistri.JobStatusCompleted {
		return nil, ctxerr.Wrap(ctx, &mistri.StateConflictError{
			JobID:    jobID,
			Expected: []mistri.JobStatus{mistri.JobStatusCompleted},
			Actual:   job.Status,
		})
	}

	reviewed, err := svc.ds.SaveJobReview(ctx, jobID, review)
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "save review")
	}
	return scrubCodes(vc, reviewed), nil
}

func (svc *Service) Job(ctx context.Context, id string) (*mistri.JobRecord, error) {
	vc, ok := viewer.FromContext(ctx)
	if !ok || !vc.IsLoggedIn() {
		return nil, authz.ForbiddenWithInternal("reading a job requires an account", vc.User, "job", "read")
	}

	job, err := svc.ds.Job(ctx, id)
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "lookup job")
	}
	if !vc.IsAdmin() && !vc.IsUserID(job.CustomerID) && !vc.IsUserID(job.WorkerID) &&
		!(job.IsBroadcast && job.Status == mistri.JobStatusOpen && vc.IsWorker()) {
		return nil, authz.ForbiddenWithInternal("caller is not a party to this job", vc.User, "job", "read")
	}
	return scrubCodes(vc, job), nil
}

func (svc *Service) ListJobs(ctx context.Context, opt mistri.JobListOptions) ([]*mistri.JobRecord, error) {
	vc, ok := viewer.FromContext(ctx)
	if !ok || !vc.IsLoggedIn() {
		return nil, authz.ForbiddenWithInternal("listing jobs requires an account", vc.User, "jobs", "list")
	}

	// non-admin callers only ever see their own jobs
	if !vc.IsAdmin() {
		if vc.IsWorker() {
			opt.WorkerID = vc.UserID()
		} else {
			opt.CustomerID = vc.UserID()
		}
	}

	jobs, err := svc.ds.ListJobs(ctx, opt)
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "list jobs")
	}
	return scrubCodesList(vc, jobs), nil
}

func (svc *Service) BroadcastFeed(ctx context.Context) ([]*mistri.JobRecord, error) {
	vc, ok := viewer.FromContext(ctx)
	if !ok || !vc.IsWorker() {
		return nil, authz.ForbiddenWithInternal("the broadcast feed is worker-only", vc.User, "jobs", "feed")
	}

	wrk, err := svc.ds.Worker(ctx, vc.UserID())
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "lookup worker for feed")
	}

	jobs, err := svc.ds.ListJobs(ctx, mistri.JobListOptions{
		Skill:         wrk.Skill,
		BroadcastFeed: true,
	})
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "list broadcast feed")
	}
	return scrubCodesList(vc, jobs), nil
}

// jobForAssignedWorker loads the job and authorizes the caller as its
// assigned worker. The checkpoint operations all share this guard.
func (svc *Service) jobForAssignedWorker(ctx context.Context, jobID, action string) (*mistri.JobRecord, viewer.Viewer, error) {
	vc, ok := viewer.FromContext(ctx)
	if !ok || !vc.IsWorker() {
		return nil, vc, authz.ForbiddenWithInternal(action+" requires a worker account", vc.User, "job", action)
	}

	job, err := svc.ds.Job(ctx, jobID)
	if err != nil {
		return nil, vc, ctxerr.Wrap(ctx, err, "lookup job")
	}
	if job.WorkerID == "" || !vc.IsUserID(job.WorkerID) {
		return nil, vc, authz.ForbiddenWithInternal("caller is not the assigned worker", vc.User, "job", action)
	}
	return job, vc, nil
}
