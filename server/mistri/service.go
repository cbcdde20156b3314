package mistri

import "context"

// DirectJobPayload is the request to book one specific online worker. The
// resulting job is PENDING: a direct booking is a request to that worker,
// not a guarantee, and becomes binding only when the worker accepts.
type DirectJobPayload struct {
	WorkerID    string `json:"worker_id"`
	Skill       string `json:"skill"`
	Price       int    `json:"price"`
	Description string `json:"description"`
	Address     string `json:"address"`
}

// BroadcastJobPayload is the request to post an unassigned job visible to
// every online worker with a matching skill, first acceptor wins.
type BroadcastJobPayload struct {
	Skill       string `json:"skill"`
	Price       int    `json:"price"`
	Description string `json:"description"`
	Address     string `json:"address"`
}

// Service is the set of operations the dispatch core exposes to presentation
// layers. The authenticated caller is taken from the request context (see
// the viewer package).
type Service interface {
	// CreateDirectJob books a specific online worker; the job starts PENDING
	// with the worker pre-targeted.
	CreateDirectJob(ctx context.Context, p DirectJobPayload) (*JobRecord, error)

	// CreateBroadcastJob posts an unassigned job; the job starts OPEN.
	CreateBroadcastJob(ctx context.Context, p BroadcastJobPayload) (*JobRecord, error)

	// AcceptJob assigns the calling worker to an OPEN or PENDING job.
	// Exactly one of any set of racing acceptances succeeds; the rest fail
	// with StateConflictError.
	AcceptJob(ctx context.Context, jobID string) (*JobRecord, error)

	// VerifyArrival checks the arrival code and, on match, moves the job
	// from ACCEPTED to IN_PROGRESS. A mismatch returns a retryable
	// InvalidArgumentError without touching the record.
	VerifyArrival(ctx context.Context, jobID, code string) (*JobRecord, error)

	// RequestCompletion records the worker's proof-of-work media (at least
	// one item) and flags the job as awaiting the completion code.
	RequestCompletion(ctx context.Context, jobID string, mediaURLs []string) (*JobRecord, error)

	// VerifyCompletion checks the completion code and, on match, settles the
	// job: fee split computed from the currently active fee config, payment
	// method recorded, status moved to COMPLETED and the wallet credit
	// queued in the same commit.
	VerifyCompletion(ctx context.Context, jobID, code string, method PaymentMethod) (*JobRecord, error)

	// CancelJob cancels a non-terminal job on behalf of the caller and
	// records which party triggered it. A worker cancelling an ACCEPTED job
	// incurs the flat cancellation penalty.
	CancelJob(ctx context.Context, jobID string) (*JobRecord, error)

	// SaveReview attaches customer feedback to a completed job.
	SaveReview(ctx context.Context, jobID string, review JobReview) (*JobRecord, error)

	Job(ctx context.Context, id string) (*JobRecord, error)
	ListJobs(ctx context.Context, opt JobListOptions) ([]*JobRecord, error)

	// BroadcastFeed lists the OPEN broadcast jobs matching the calling
	// worker's skill.
	BroadcastFeed(ctx context.Context) ([]*JobRecord, error)

	ListOnlineWorkers(ctx context.Context, skill string) ([]*Worker, error)
	WorkerLedger(ctx context.Context, workerID string) ([]*LedgerEntry, error)

	PlatformFeeConfig(ctx context.Context) (*PlatformFeeConfig, error)
	ModifyPlatformFeeConfig(ctx context.Context, cfg PlatformFeeConfig) error
}
