package mistri

import (
	"context"
	"time"
)

// Datastore combines all the interfaces implemented by the record store.
//
// The single correctness-critical discipline is that every status transition
// is written as a conditional update ("set status to X only if the current
// status is exactly Y"), rejecting with StateConflictError rather than
// silently overwriting. That is what arbitrates the broadcast acceptance
// race and what stops a stale client from re-applying a finished transition.
type Datastore interface {
	JobStore
	WorkerStore
	UserStore
	FeeConfigStore
	OutboxStore
}

// JobStore manages job records.
type JobStore interface {
	// NewJob persists a freshly created job record and returns it with its
	// assigned id.
	NewJob(ctx context.Context, job *JobRecord) (*JobRecord, error)

	// Job retrieves a job by id.
	Job(ctx context.Context, id string) (*JobRecord, error)

	// ListJobs returns the jobs matching opt, newest first.
	ListJobs(ctx context.Context, opt JobListOptions) ([]*JobRecord, error)

	// TransitionJob applies change to the job only if its current status is
	// one of from (compare-and-swap on status). On a precondition failure it
	// returns a StateConflictError carrying the job's actual status, and the
	// record is untouched.
	TransitionJob(ctx context.Context, id string, from []JobStatus, change JobChange) (*JobRecord, error)

	// SettleJob is TransitionJob plus the enqueueing of the settlement
	// outbox entry, committed atomically so a completed job cannot be left
	// uncredited.
	SettleJob(ctx context.Context, id string, from []JobStatus, change JobChange, outbox *OutboxJob) (*JobRecord, error)

	// SaveJobReview attaches customer feedback to a completed job.
	SaveJobReview(ctx context.Context, id string, review JobReview) (*JobRecord, error)
}

// WorkerStore manages worker profiles and their wallet ledgers.
type WorkerStore interface {
	Worker(ctx context.Context, id string) (*Worker, error)
	SaveWorker(ctx context.Context, worker *Worker) error
	ListOnlineWorkers(ctx context.Context, skill string) ([]*Worker, error)

	// ApplyLedgerEntry records entry and adjusts the worker's wallet balance
	// in the same commit.
	ApplyLedgerEntry(ctx context.Context, entry *LedgerEntry) error
	ListLedgerEntries(ctx context.Context, workerID string) ([]*LedgerEntry, error)
}

// UserStore manages customer and admin accounts.
type UserStore interface {
	User(ctx context.Context, id string) (*User, error)
	SaveUser(ctx context.Context, user *User) error
}

// FeeConfigStore is the platform-fee-config provider consumed at settlement.
type FeeConfigStore interface {
	PlatformFeeConfig(ctx context.Context) (*PlatformFeeConfig, error)
	SavePlatformFeeConfig(ctx context.Context, cfg *PlatformFeeConfig) error
}

// OutboxStore manages the durable side-effect queue.
type OutboxStore interface {
	NewOutboxJob(ctx context.Context, job *OutboxJob) (*OutboxJob, error)
	GetQueuedOutboxJobs(ctx context.Context, maxNumJobs int, now time.Time) ([]*OutboxJob, error)
	UpdateOutboxJob(ctx context.Context, id uint, job *OutboxJob) (*OutboxJob, error)
}
