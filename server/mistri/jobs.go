package mistri

import (
	"time"
)

// JobStatus is the lifecycle state of a job record.
type JobStatus string

// The possible statuses for a job.
//
//	            ┌──────────►CANCELLED◄──────────┐
//	            │                │              │
//	OPEN────────┤                │              │
//	            ├──►ACCEPTED──►IN_PROGRESS──►COMPLETED
//	PENDING─────┘
//
// OPEN is the initial status of a broadcast job (no worker assigned),
// PENDING the initial status of a direct booking (worker pre-targeted but
// not yet confirmed). COMPLETED and CANCELLED are terminal.
const (
	JobStatusOpen       JobStatus = "OPEN"
	JobStatusPending    JobStatus = "PENDING"
	JobStatusAccepted   JobStatus = "ACCEPTED"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusCancelled  JobStatus = "CANCELLED"
)

// Terminal reports whether no further transition is valid from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

// Valid reports whether s is a known job status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusOpen, JobStatusPending, JobStatusAccepted,
		JobStatusInProgress, JobStatusCompleted, JobStatusCancelled:
		return true
	}
	return false
}

// PaymentMethod is how the customer settled the job price. All methods are
// handled identically by the fee computation; the distinction is recorded
// for presentation only.
type PaymentMethod string

const (
	PaymentMethodUPI  PaymentMethod = "UPI"
	PaymentMethodCard PaymentMethod = "CARD"
	PaymentMethodCash PaymentMethod = "CASH"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodUPI, PaymentMethodCard, PaymentMethodCash:
		return true
	}
	return false
}

// CancelActor identifies which party triggered a cancellation, which drives
// the worker penalty policy.
type CancelActor string

const (
	CancelledByCustomer CancelActor = "customer"
	CancelledByWorker   CancelActor = "worker"
)

// JobReview is the customer feedback attached to a completed job. It carries
// no lifecycle invariants.
type JobReview struct {
	Rating    int      `json:"rating" db:"review_rating"`
	Text      string   `json:"text" db:"review_text"`
	MediaURLs []string `json:"media_urls,omitempty"`
}

// JobRecord is the central entity of the dispatch core. It is created by a
// customer booking or posting operation and mutated exclusively through
// guarded status transitions.
type JobRecord struct {
	ID         string `json:"id" db:"id"`
	CustomerID string `json:"customer_id" db:"customer_id"`
	// WorkerID is empty until a worker is assigned. For a direct booking it
	// is pre-filled at creation (the targeted worker), but assignment is only
	// confirmed once the status reaches ACCEPTED.
	WorkerID string `json:"worker_id,omitempty" db:"worker_id"`

	Skill       string    `json:"skill" db:"skill"`
	Description string    `json:"description,omitempty" db:"description"`
	Address     string    `json:"address,omitempty" db:"address"`
	Status      JobStatus `json:"status" db:"status"`
	IsBroadcast bool      `json:"is_broadcast" db:"is_broadcast"`

	// Price is fixed at creation. PlatformFee and WorkerEarnings are nil
	// until settlement; after settlement their sum equals Price.
	Price          int  `json:"price" db:"price"`
	PlatformFee    *int `json:"platform_fee,omitempty" db:"platform_fee"`
	WorkerEarnings *int `json:"worker_earnings,omitempty" db:"worker_earnings"`

	// ArrivalCode and CompletionCode are minted once at creation and never
	// regenerated. Each gates exactly one checkpoint transition. Only the
	// booking customer's responses carry them; the worker hears them from
	// the customer in person, never from the platform. The service blanks
	// both fields on every other caller's copy before it leaves.
	ArrivalCode    string `json:"arrival_code,omitempty" db:"arrival_code"`
	CompletionCode string `json:"completion_code,omitempty" db:"completion_code"`

	CompletionRequested bool     `json:"completion_requested" db:"completion_requested"`
	CompletionMediaURLs []string `json:"completion_media_urls,omitempty"`

	IsPaid        bool          `json:"is_paid" db:"is_paid"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty" db:"payment_method"`
	CancelledBy   CancelActor   `json:"cancelled_by,omitempty" db:"cancelled_by"`
	Review        *JobReview    `json:"review,omitempty"`

	// Party snapshots, copied onto the job so feeds render without joins.
	CustomerName   string `json:"customer_name,omitempty" db:"customer_name"`
	CustomerPhone  string `json:"customer_phone,omitempty" db:"customer_phone"`
	CustomerAvatar string `json:"customer_avatar,omitempty" db:"customer_avatar"`
	WorkerName     string `json:"worker_name,omitempty" db:"worker_name"`
	WorkerPhone    string `json:"worker_phone,omitempty" db:"worker_phone"`
	WorkerAvatar   string `json:"worker_avatar,omitempty" db:"worker_avatar"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Settled reports whether the fee split has been written.
func (j *JobRecord) Settled() bool {
	return j.PlatformFee != nil && j.WorkerEarnings != nil
}

// JobListOptions filters a job listing. Zero values mean "no filter" for the
// corresponding field.
type JobListOptions struct {
	CustomerID string
	WorkerID   string
	Skill      string
	Statuses   []JobStatus

	// BroadcastFeed restricts the listing to unassigned broadcast jobs
	// (status OPEN), the set a worker's feed is built from. Skill must be
	// set alongside it; matching is an exact string compare.
	BroadcastFeed bool
}

// JobChange describes the mutation applied by a guarded status transition.
// Nil pointer fields are left untouched by the write.
type JobChange struct {
	Status JobStatus

	// Assignment, set on acceptance.
	WorkerID     *string
	WorkerName   *string
	WorkerPhone  *string
	WorkerAvatar *string

	// Completion request, set when the worker submits proof of work.
	CompletionRequested *bool
	CompletionMediaURLs []string

	// Settlement, written once at completion.
	IsPaid         *bool
	PaymentMethod  *PaymentMethod
	PlatformFee    *int
	WorkerEarnings *int

	CancelledBy *CancelActor
}
