package mysql

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/mistriapp/mistri/server/contexts/ctxerr"
	"github.com/mistriapp/mistri/server/mistri"
)

func (ds *Datastore) Worker(ctx context.Context, id string) (*mistri.Worker, error) {
	query := `
SELECT id, name, phone, skill, avatar, is_online, wallet_balance, rating, review_count, created_at
FROM workers
WHERE id = ?
`
	var worker mistri.Worker
	err := sqlx.GetContext(ctx, ds.db, &worker, query, id)
	switch {
	case err == sql.ErrNoRows:
		return nil, ctxerr.Wrap(ctx, notFound("Worker").WithID(id))
	case err != nil:
		return nil, &mistri.PersistenceError{Op: "select worker", Err: err}
	}
	return &worker, nil
}

func (ds *Datastore) SaveWorker(ctx context.Context, worker *mistri.Worker) error {
	query := `
INSERT INTO workers (id, name, phone, skill, avatar, is_online, wallet_balance, rating, review_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    name = VALUES(name),
    phone = VALUES(phone),
    skill = VALUES(skill),
    avatar = VALUES(avatar),
    is_online = VALUES(is_online),
    rating = VALUES(rating),
    review_count = VALUES(review_count)
`
	_, err := ds.db.ExecContext(ctx, query,
		worker.ID, worker.Name, worker.Phone, worker.Skill, worker.Avatar,
		worker.IsOnline, worker.WalletBalance, worker.Rating, worker.ReviewCount,
	)
	if err != nil {
		return &mistri.PersistenceError{Op: "save worker", Err: err}
	}
	return nil
}

func (ds *Datastore) ListOnlineWorkers(ctx context.Context, skill string) ([]*mistri.Worker, error) {
	query := `
SELECT id, name, phone, skill, avatar, is_online, wallet_balance, rating, review_count, created_at
FROM workers
WHERE is_online = 1
`
	args := []interface{}{}
	if skill != "" {
		query += ` AND skill = ?`
		args = append(args, skill)
	}
	query += ` ORDER BY id`

	var workers []*mistri.Worker
	if err := sqlx.SelectContext(ctx, ds.db, &workers, query, args...); err != nil {
		return nil, &mistri.PersistenceError{Op: "list online workers", Err: err}
	}
	return workers, nil
}

// ApplyLedgerEntry records the wallet movement and adjusts the balance in
// the same transaction. The unique (job_id, entry_type) key makes the write
// idempotent under outbox retries.
func (ds *Datastore) ApplyLedgerEntry(ctx context.Context, entry *mistri.LedgerEntry) error {
	return ds.withRetryTxx(ctx, func(tx sqlx.ExtContext) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO worker_ledger (worker_id, job_id, entry_type, amount, description)
VALUES (?, ?, ?, ?, ?)
`, entry.WorkerID, entry.JobID, string(entry.Type), entry.Amount, entry.Description)
		if err != nil {
			if isDuplicate(err) {
				// Entry already applied on a prior attempt.
				return nil
			}
			return ctxerr.Wrap(ctx, err, "insert ledger entry")
		}

		id, _ := res.LastInsertId()
		entry.ID = uint(id)

		delta := entry.Amount
		if entry.Type == mistri.LedgerDebit {
			delta = -delta
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE workers SET wallet_balance = wallet_balance + ? WHERE id = ?`,
			delta, entry.WorkerID,
		); err != nil {
			return ctxerr.Wrap(ctx, err, "adjust wallet balance")
		}
		return nil
	})
}

func (ds *Datastore) ListLedgerEntries(ctx context.Context, workerID string) ([]*mistri.LedgerEntry, error) {
	query := `
SELECT id, worker_id, job_id, entry_type, amount, description, created_at
FROM worker_ledger
WHERE worker_id = ?
ORDER BY id DESC
`
	var entries []*mistri.LedgerEntry
	if err := sqlx.SelectContext(ctx, ds.db, &entries, query, workerID); err != nil {
		return nil, &mistri.PersistenceError{Op: "list ledger entries", Err: err}
	}
	return entries, nil
}
