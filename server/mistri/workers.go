package mistri

import "time"

// Worker is a service provider registered on the platform.
type Worker struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Phone    string `json:"phone" db:"phone"`
	Skill    string `json:"skill" db:"skill"`
	Avatar   string `json:"avatar,omitempty" db:"avatar"`
	IsOnline bool   `json:"is_online" db:"is_online"`

	// WalletBalance is maintained exclusively by the settlement ledger;
	// see LedgerEntry.
	WalletBalance int `json:"wallet_balance" db:"wallet_balance"`

	Rating      float64 `json:"rating" db:"rating"`
	ReviewCount int     `json:"review_count" db:"review_count"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// LedgerEntryType distinguishes wallet credits (job earnings) from debits
// (cancellation penalties).
type LedgerEntryType string

const (
	LedgerCredit LedgerEntryType = "CREDIT"
	LedgerDebit  LedgerEntryType = "DEBIT"
)

// LedgerEntry is a single movement on a worker's wallet. Settlement writes
// are driven through the outbox so a completed job is never left uncredited
// on partial failure.
type LedgerEntry struct {
	ID          uint            `json:"id" db:"id"`
	WorkerID    string          `json:"worker_id" db:"worker_id"`
	JobID       string          `json:"job_id" db:"job_id"`
	Type        LedgerEntryType `json:"type" db:"entry_type"`
	Amount      int             `json:"amount" db:"amount"`
	Description string          `json:"description" db:"description"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
