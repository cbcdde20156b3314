// Package inmem is an in-memory implementation of the mistri.Datastore
// interface, used by tests and local development. It honors the same
// conditional-update contract as the MySQL implementation: status
// transitions are applied under a single lock only when the record is still
// in the expected prior status.
package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/WatchBeam/clock"
	"github.com/mistriapp/mistri/server/mistri"
)

type Datastore struct {
	clock clock.Clock

	mtx     sync.Mutex
	jobs    map[string]*mistri.JobRecord
	workers map[string]*mistri.Worker
	users   map[string]*mistri.User
	ledger  []*mistri.LedgerEntry
	outbox  map[uint]*mistri.OutboxJob
	feeCfg  *mistri.PlatformFeeConfig
	nextID  uint
	jobSeq  int
	ledgSeq uint
}

var _ mistri.Datastore = (*Datastore)(nil)

// New creates an empty in-memory datastore.
func New(c clock.Clock) *Datastore {
	if c == nil {
		c = clock.C
	}
	return &Datastore{
		clock:   c,
		jobs:    make(map[string]*mistri.JobRecord),
		workers: make(map[string]*mistri.Worker),
		users:   make(map[string]*mistri.User),
		outbox:  make(map[uint]*mistri.OutboxJob),
		feeCfg:  mistri.DefaultPlatformFeeConfig(),
	}
}

type notFoundError struct {
	kind string
	id   string
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("%s %s was not found in the datastore", e.kind, e.id)
}

func (e *notFoundError) IsNotFound() bool { return true }

////////////////////////////////////////////////////////////////////////////////
// Jobs
////////////////////////////////////////////////////////////////////////////////

func (d *Datastore) NewJob(ctx context.Context, job *mistri.JobRecord) (*mistri.JobRecord, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if job.ID == "" {
		d.jobSeq++
		job.ID = fmt.Sprintf("job-%d", d.jobSeq)
	}
	job.CreatedAt = d.clock.Now()

	cp := cloneJob(job)
	d.jobs[cp.ID] = cp
	return cloneJob(cp), nil
}

func (d *Datastore) Job(ctx context.Context, id string) (*mistri.JobRecord, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	job, ok := d.jobs[id]
	if !ok {
		return nil, &notFoundError{kind: "JobRecord", id: id}
	}
	return cloneJob(job), nil
}

func (d *Datastore) ListJobs(ctx context.Context, opt mistri.JobListOptions) ([]*mistri.JobRecord, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	var jobs []*mistri.JobRecord
	for _, job := range d.jobs {
		if matchJob(job, opt) {
			jobs = append(jobs, cloneJob(job))
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}

func matchJob(job *mistri.JobRecord, opt mistri.JobListOptions) bool {
	if opt.BroadcastFeed {
		if !job.IsBroadcast || job.Status != mistri.JobStatusOpen {
			return false
		}
	}
	if opt.CustomerID != "" && job.CustomerID != opt.CustomerID {
		return false
	}
	if opt.WorkerID != "" && job.WorkerID != opt.WorkerID {
		return false
	}
	if opt.Skill != "" && job.Skill != opt.Skill {
		return false
	}
	if len(opt.Statuses) > 0 {
		ok := false
		for _, s := range opt.Statuses {
			if job.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func (d *Datastore) TransitionJob(ctx context.Context, id string, from []mistri.JobStatus, change mistri.JobChange) (*mistri.JobRecord, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.transitionLocked(id, from, change)
}

func (d *Datastore) SettleJob(ctx context.Context, id string, from []mistri.JobStatus, change mistri.JobChange, outbox *mistri.OutboxJob) (*mistri.JobRecord, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	job, err := d.transitionLocked(id, from, change)
	if err != nil {
		return nil, err
	}
	if outbox != nil {
		d.newOutboxJobLocked(outbox)
	}
	return job, nil
}

func (d *Datastore) transitionLocked(id string, from []mistri.JobStatus, change mistri.JobChange) (*mistri.JobRecord, error) {
	job, ok := d.jobs[id]
	if !ok {
		return nil, &notFoundError{kind: "JobRecord", id: id}
	}

	inFrom := false
	for _, s := range from {
		if job.Status == s {
			inFrom = true
			break
		}
	}
	if !inFrom {
		return nil, &mistri.StateConflictError{JobID: id, Expected: from, Actual: job.Status}
	}

	job.Status = change.Status
	if change.WorkerID != nil {
		job.WorkerID = *change.WorkerID
	}
	if change.WorkerName != nil {
		job.WorkerName = *change.WorkerName
	}
	if change.WorkerPhone != nil {
		job.WorkerPhone = *change.WorkerPhone
	}
	if change.WorkerAvatar != nil {
		job.WorkerAvatar = *change.WorkerAvatar
	}
	if change.CompletionRequested != nil {
		job.CompletionRequested = *change.CompletionRequested
	}
	if change.CompletionMediaURLs != nil {
		job.CompletionMediaURLs = append([]string(nil), change.CompletionMediaURLs...)
	}
	if change.IsPaid != nil {
		job.IsPaid = *change.IsPaid
	}
	if change.PaymentMethod != nil {
		job.PaymentMethod = *change.PaymentMethod
	}
	if change.PlatformFee != nil {
		fee := *change.PlatformFee
		job.PlatformFee = &fee
	}
	if change.WorkerEarnings != nil {
		earn := *change.WorkerEarnings
		job.WorkerEarnings = &earn
	}
	if change.CancelledBy != nil {
		job.CancelledBy = *change.CancelledBy
	}
	now := d.clock.Now()
	job.UpdatedAt = &now

	return cloneJob(job), nil
}

func (d *Datastore) SaveJobReview(ctx context.Context, id string, review mistri.JobReview) (*mistri.JobRecord, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	job, ok := d.jobs[id]
	if !ok {
		return nil, &notFoundError{kind: "JobRecord", id: id}
	}
	rv := review
	job.Review = &rv
	return cloneJob(job), nil
}

func cloneJob(job *mistri.JobRecord) *mistri.JobRecord {
	cp := *job
	if job.PlatformFee != nil {
		fee := *job.PlatformFee
		cp.PlatformFee = &fee
	}
	if job.WorkerEarnings != nil {
		earn := *job.WorkerEarnings
		cp.WorkerEarnings = &earn
	}
	if job.UpdatedAt != nil {
		at := *job.UpdatedAt
		cp.UpdatedAt = &at
	}
	if job.Review != nil {
		rv := *job.Review
		cp.Review = &rv
	}
	cp.CompletionMediaURLs = append([]string(nil), job.CompletionMediaURLs...)
	return &cp
}

////////////////////////////////////////////////////////////////////////////////
// Workers
////////////////////////////////////////////////////////////////////////////////

func (d *Datastore) Worker(ctx context.Context, id string) (*mistri.Worker, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	w, ok := d.workers[id]
	if !ok {
		return nil, &notFoundError{kind: "Worker", id: id}
	}
	cp := *w
	return &cp, nil
}

func (d *Datastore) SaveWorker(ctx context.Context, worker *mistri.Worker) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	cp := *worker
	d.workers[cp.ID] = &cp
	return nil
}

func (d *Datastore) ListOnlineWorkers(ctx context.Context, skill string) ([]*mistri.Worker, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	var workers []*mistri.Worker
	for _, w := range d.workers {
		if !w.IsOnline {
			continue
		}
		if skill != "" && w.Skill != skill {
			continue
		}
		cp := *w
		workers = append(workers, &cp)
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].ID < workers[j].ID })
	return workers, nil
}

func (d *Datastore) ApplyLedgerEntry(ctx context.Context, entry *mistri.LedgerEntry) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	w, ok := d.workers[entry.WorkerID]
	if !ok {
		return &notFoundError{kind: "Worker", id: entry.WorkerID}
	}

	// same idempotency contract as the unique key in the MySQL schema, so a
	// retried outbox job cannot double-credit a wallet
	for _, e := range d.ledger {
		if e.JobID == entry.JobID && e.Type == entry.Type {
			return nil
		}
	}

	d.ledgSeq++
	cp := *entry
	cp.ID = d.ledgSeq
	cp.CreatedAt = d.clock.Now()
	d.ledger = append(d.ledger, &cp)

	switch cp.Type {
	case mistri.LedgerDebit:
		w.WalletBalance -= cp.Amount
	default:
		w.WalletBalance += cp.Amount
	}
	return nil
}

func (d *Datastore) ListLedgerEntries(ctx context.Context, workerID string) ([]*mistri.LedgerEntry, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	var entries []*mistri.LedgerEntry
	for _, e := range d.ledger {
		if e.WorkerID == workerID {
			cp := *e
			entries = append(entries, &cp)
		}
	}
	return entries, nil
}

////////////////////////////////////////////////////////////////////////////////
// Users
////////////////////////////////////////////////////////////////////////////////

func (d *Datastore) User(ctx context.Context, id string) (*mistri.User, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	u, ok := d.users[id]
	if !ok {
		return nil, &notFoundError{kind: "User", id: id}
	}
	cp := *u
	return &cp, nil
}

func (d *Datastore) SaveUser(ctx context.Context, user *mistri.User) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	cp := *user
	d.users[cp.ID] = &cp
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// Fee config
////////////////////////////////////////////////////////////////////////////////

func (d *Datastore) PlatformFeeConfig(ctx context.Context) (*mistri.PlatformFeeConfig, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	cp := *d.feeCfg
	return &cp, nil
}

func (d *Datastore) SavePlatformFeeConfig(ctx context.Context, cfg *mistri.PlatformFeeConfig) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	cp := *cfg
	d.feeCfg = &cp
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// Outbox
////////////////////////////////////////////////////////////////////////////////

func (d *Datastore) NewOutboxJob(ctx context.Context, job *mistri.OutboxJob) (*mistri.OutboxJob, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.newOutboxJobLocked(job), nil
}

func (d *Datastore) newOutboxJobLocked(job *mistri.OutboxJob) *mistri.OutboxJob {
	d.nextID++
	cp := *job
	cp.ID = d.nextID
	cp.CreatedAt = d.clock.Now()
	if cp.NotBefore.IsZero() {
		cp.NotBefore = cp.CreatedAt
	}
	d.outbox[cp.ID] = &cp
	out := cp
	return &out
}

func (d *Datastore) GetQueuedOutboxJobs(ctx context.Context, maxNumJobs int, now time.Time) ([]*mistri.OutboxJob, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if now.IsZero() {
		now = d.clock.Now()
	}

	var jobs []*mistri.OutboxJob
	for _, j := range d.outbox {
		if j.State == mistri.OutboxStateQueued && !j.NotBefore.After(now) {
			cp := *j
			jobs = append(jobs, &cp)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	if len(jobs) > maxNumJobs {
		jobs = jobs[:maxNumJobs]
	}
	return jobs, nil
}

func (d *Datastore) UpdateOutboxJob(ctx context.Context, id uint, job *mistri.OutboxJob) (*mistri.OutboxJob, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if _, ok := d.outbox[id]; !ok {
		return nil, &notFoundError{kind: "OutboxJob", id: fmt.Sprint(id)}
	}
	cp := *job
	cp.ID = id
	now := d.clock.Now()
	cp.UpdatedAt = &now
	d.outbox[id] = &cp
	out := cp
	return &out, nil
}
