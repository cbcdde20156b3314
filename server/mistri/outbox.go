package mistri

import (
	"encoding/json"
	"time"
)

type OutboxState int

// The possible states for an outbox job. Queued jobs are retried in place,
// so a job stays Queued across failed attempts until it either succeeds or
// exhausts its retries.
//
//	Queued───►Success
//	   │
//	   └─────►Failure
const (
	OutboxStateQueued OutboxState = iota + 1
	OutboxStateSuccess
	OutboxStateFailure
)

// OutboxJob is a durable side effect recorded alongside a job transition and
// processed asynchronously by the worker package. Settlement uses it so the
// COMPLETED write and the wallet credit cannot diverge on partial failure.
type OutboxJob struct {
	ID        uint             `json:"id" db:"id"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time       `json:"updated_at" db:"updated_at"`
	Name      string           `json:"name" db:"name"`
	Args      *json.RawMessage `json:"args" db:"args"`
	State     OutboxState      `json:"state" db:"state"`
	Retries   int              `json:"retries" db:"retries"`
	Error     string           `json:"error" db:"error"`
	NotBefore time.Time        `json:"not_before" db:"not_before"`
}
