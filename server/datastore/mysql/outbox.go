package mysql

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mistriapp/mistri/server/mistri"
)

func (ds *Datastore) NewOutboxJob(ctx context.Context, job *mistri.OutboxJob) (*mistri.OutboxJob, error) {
	return ds.newOutboxJobTx(ctx, ds.db, job)
}

func (ds *Datastore) newOutboxJobTx(ctx context.Context, tx sqlx.ExtContext, job *mistri.OutboxJob) (*mistri.OutboxJob, error) {
	query := `
INSERT INTO outbox_jobs (
    name,
    args,
    state,
    retries,
    error,
    not_before
)
VALUES (?, ?, ?, ?, ?, COALESCE(?, NOW()))
`
	var notBefore *time.Time
	if !job.NotBefore.IsZero() {
		notBefore = &job.NotBefore
	}
	result, err := tx.ExecContext(ctx, query, job.Name, job.Args, job.State, job.Retries, job.Error, notBefore)
	if err != nil {
		return nil, &mistri.PersistenceError{Op: "insert outbox job", Err: err}
	}

	id, _ := result.LastInsertId()
	job.ID = uint(id)

	return job, nil
}

func (ds *Datastore) GetQueuedOutboxJobs(ctx context.Context, maxNumJobs int, now time.Time) ([]*mistri.OutboxJob, error) {
	query := `
SELECT
    id, created_at, updated_at, name, args, state, retries, error, not_before
FROM
    outbox_jobs
WHERE
    state = ? AND
    not_before <= ?
ORDER BY
    updated_at ASC
LIMIT ?
`

	if now.IsZero() {
		now = ds.clock.Now().UTC()
	}

	var jobs []*mistri.OutboxJob
	err := sqlx.SelectContext(ctx, ds.db, &jobs, query, mistri.OutboxStateQueued, now, maxNumJobs)
	if err != nil {
		return nil, &mistri.PersistenceError{Op: "get queued outbox jobs", Err: err}
	}

	return jobs, nil
}

func (ds *Datastore) UpdateOutboxJob(ctx context.Context, id uint, job *mistri.OutboxJob) (*mistri.OutboxJob, error) {
	query := `
UPDATE outbox_jobs
SET
    state = ?,
    retries = ?,
    error = ?,
    not_before = COALESCE(?, NOW())
WHERE
    id = ?
`
	var notBefore *time.Time
	if !job.NotBefore.IsZero() {
		notBefore = &job.NotBefore
	}
	_, err := ds.db.ExecContext(ctx, query, job.State, job.Retries, job.Error, notBefore, id)
	if err != nil {
		return nil, &mistri.PersistenceError{Op: "update outbox job", Err: err}
	}

	return job, nil
}
