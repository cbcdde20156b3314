// Package mock provides a hand-rolled mock of the mistri.Datastore
// interface. Tests assign the XxxFunc fields they care about; calling an
// unassigned method panics, which keeps unexpected datastore usage visible.
package mock

import (
	"context"
	"time"

	"github.com/mistriapp/mistri/server/mistri"
)

var _ mistri.Datastore = (*Store)(nil)

type NewJobFunc func(ctx context.Context, job *mistri.JobRecord) (*mistri.JobRecord, error)
type JobFunc func(ctx context.Context, id string) (*mistri.JobRecord, error)
type ListJobsFunc func(ctx context.Context, opt mistri.JobListOptions) ([]*mistri.JobRecord, error)
type TransitionJobFunc func(ctx context.Context, id string, from []mistri.JobStatus, change mistri.JobChange) (*mistri.JobRecord, error)
type SettleJobFunc func(ctx context.Context, id string, from []mistri.JobStatus, change mistri.JobChange, outbox *mistri.OutboxJob) (*mistri.JobRecord, error)
type SaveJobReviewFunc func(ctx context.Context, id string, review mistri.JobReview) (*mistri.JobRecord, error)

type WorkerFunc func(ctx context.Context, id string) (*mistri.Worker, error)
type SaveWorkerFunc func(ctx context.Context, worker *mistri.Worker) error
type ListOnlineWorkersFunc func(ctx context.Context, skill string) ([]*mistri.Worker, error)
type ApplyLedgerEntryFunc func(ctx context.Context, entry *mistri.LedgerEntry) error
type ListLedgerEntriesFunc func(ctx context.Context, workerID string) ([]*mistri.LedgerEntry, error)

type UserFunc func(ctx context.Context, id string) (*mistri.User, error)
type SaveUserFunc func(ctx context.Context, user *mistri.User) error

type PlatformFeeConfigFunc func(ctx context.Context) (*mistri.PlatformFeeConfig, error)
type SavePlatformFeeConfigFunc func(ctx context.Context, cfg *mistri.PlatformFeeConfig) error

type NewOutboxJobFunc func(ctx context.Context, job *mistri.OutboxJob) (*mistri.OutboxJob, error)
type GetQueuedOutboxJobsFunc func(ctx context.Context, maxNumJobs int, now time.Time) ([]*mistri.OutboxJob, error)
type UpdateOutboxJobFunc func(ctx context.Context, id uint, job *mistri.OutboxJob) (*mistri.OutboxJob, error)

type Store struct {
	NewJobFunc        NewJobFunc
	NewJobFuncInvoked bool

	JobFunc        JobFunc
	JobFuncInvoked bool

	ListJobsFunc        ListJobsFunc
	ListJobsFuncInvoked bool

	TransitionJobFunc        TransitionJobFunc
	TransitionJobFuncInvoked bool

	SettleJobFunc        SettleJobFunc
	SettleJobFuncInvoked bool

	SaveJobReviewFunc        SaveJobReviewFunc
	SaveJobReviewFuncInvoked bool

	WorkerFunc        WorkerFunc
	WorkerFuncInvoked bool

	SaveWorkerFunc        SaveWorkerFunc
	SaveWorkerFuncInvoked bool

	ListOnlineWorkersFunc        ListOnlineWorkersFunc
	ListOnlineWorkersFuncInvoked bool

	ApplyLedgerEntryFunc        ApplyLedgerEntryFunc
	ApplyLedgerEntryFuncInvoked bool

	ListLedgerEntriesFunc        ListLedgerEntriesFunc
	ListLedgerEntriesFuncInvoked bool

	UserFunc        UserFunc
	UserFuncInvoked bool

	SaveUserFunc        SaveUserFunc
	SaveUserFuncInvoked bool

	PlatformFeeConfigFunc        PlatformFeeConfigFunc
	PlatformFeeConfigFuncInvoked bool

	SavePlatformFeeConfigFunc        SavePlatformFeeConfigFunc
	SavePlatformFeeConfigFuncInvoked bool

	NewOutboxJobFunc        NewOutboxJobFunc
	NewOutboxJobFuncInvoked bool

	GetQueuedOutboxJobsFunc        GetQueuedOutboxJobsFunc
	GetQueuedOutboxJobsFuncInvoked bool

	UpdateOutboxJobFunc        UpdateOutboxJobFunc
	UpdateOutboxJobFuncInvoked bool
}

func (s *Store) NewJob(ctx context.Context, job *mistri.JobRecord) (*mistri.JobRecord, error) {
	s.NewJobFuncInvoked = true
	return s.NewJobFunc(ctx, job)
}

func (s *Store) Job(ctx context.Context, id string) (*mistri.JobRecord, error) {
	s.JobFuncInvoked = true
	return s.JobFunc(ctx, id)
}

func (s *Store) ListJobs(ctx context.Context, opt mistri.JobListOptions) ([]*mistri.JobRecord, error) {
	s.ListJobsFuncInvoked = true
	return s.ListJobsFunc(ctx, opt)
}

func (s *Store) TransitionJob(ctx context.Context, id string, from []mistri.JobStatus, change mistri.JobChange) (*mistri.JobRecord, error) {
	s.TransitionJobFuncInvoked = true
	return s.TransitionJobFunc(ctx, id, from, change)
}

func (s *Store) SettleJob(ctx context.Context, id string, from []mistri.JobStatus, change mistri.JobChange, outbox *mistri.OutboxJob) (*mistri.JobRecord, error) {
	s.SettleJobFuncInvoked = true
	return s.SettleJobFunc(ctx, id, from, change, outbox)
}

func (s *Store) SaveJobReview(ctx context.Context, id string, review mistri.JobReview) (*mistri.JobRecord, error) {
	s.SaveJobReviewFuncInvoked = true
	return s.SaveJobReviewFunc(ctx, id, review)
}

func (s *Store) Worker(ctx context.Context, id string) (*mistri.Worker, error) {
	s.WorkerFuncInvoked = true
	return s.WorkerFunc(ctx, id)
}

func (s *Store) SaveWorker(ctx context.Context, worker *mistri.Worker) error {
	s.SaveWorkerFuncInvoked = true
	return s.SaveWorkerFunc(ctx, worker)
}

func (s *Store) ListOnlineWorkers(ctx context.Context, skill string) ([]*mistri.Worker, error) {
	s.ListOnlineWorkersFuncInvoked = true
	return s.ListOnlineWorkersFunc(ctx, skill)
}

func (s *Store) ApplyLedgerEntry(ctx context.Context, entry *mistri.LedgerEntry) error {
	s.ApplyLedgerEntryFuncInvoked = true
	return s.ApplyLedgerEntryFunc(ctx, entry)
}

func (s *Store) ListLedgerEntries(ctx context.Context, workerID string) ([]*mistri.LedgerEntry, error) {
	s.ListLedgerEntriesFuncInvoked = true
	return s.ListLedgerEntriesFunc(ctx, workerID)
}

func (s *Store) User(ctx context.Context, id string) (*mistri.User, error) {
	s.UserFuncInvoked = true
	return s.UserFunc(ctx, id)
}

func (s *Store) SaveUser(ctx context.Context, user *mistri.User) error {
	s.SaveUserFuncInvoked = true
	return s.SaveUserFunc(ctx, user)
}

func (s *Store) PlatformFeeConfig(ctx context.Context) (*mistri.PlatformFeeConfig, error) {
	s.PlatformFeeConfigFuncInvoked = true
	return s.PlatformFeeConfigFunc(ctx)
}

func (s *Store) SavePlatformFeeConfig(ctx context.Context, cfg *mistri.PlatformFeeConfig) error {
	s.SavePlatformFeeConfigFuncInvoked = true
	return s.SavePlatformFeeConfigFunc(ctx, cfg)
}

func (s *Store) NewOutboxJob(ctx context.Context, job *mistri.OutboxJob) (*mistri.OutboxJob, error) {
	s.NewOutboxJobFuncInvoked = true
	return s.NewOutboxJobFunc(ctx, job)
}

func (s *Store) GetQueuedOutboxJobs(ctx context.Context, maxNumJobs int, now time.Time) ([]*mistri.OutboxJob, error) {
	s.GetQueuedOutboxJobsFuncInvoked = true
	return s.GetQueuedOutboxJobsFunc(ctx, maxNumJobs, now)
}

func (s *Store) UpdateOutboxJob(ctx context.Context, id uint, job *mistri.OutboxJob) (*mistri.OutboxJob, error) {
	s.UpdateOutboxJobFuncInvoked = true
	return s.UpdateOutboxJobFunc(ctx, id, job)
}
