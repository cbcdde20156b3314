package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/mistriapp/mistri/server/contexts/ctxerr"
	"github.com/mistriapp/mistri/server/mistri"
)

var dialect = goqu.Dialect("mysql")

// jobRow mirrors the jobs table; JSON columns are unpacked into the domain
// record by toJobRecord.
type jobRow struct {
	ID                  string          `db:"id"`
	CustomerID          string          `db:"customer_id"`
	WorkerID            string          `db:"worker_id"`
	Skill               string          `db:"skill"`
	Description         string          `db:"description"`
	Address             string          `db:"address"`
	Status              string          `db:"status"`
	IsBroadcast         bool            `db:"is_broadcast"`
	Price               int             `db:"price"`
	PlatformFee         sql.NullInt64   `db:"platform_fee"`
	WorkerEarnings      sql.NullInt64   `db:"worker_earnings"`
	ArrivalCode         string          `db:"arrival_code"`
	CompletionCode      string          `db:"completion_code"`
	CompletionRequested bool            `db:"completion_requested"`
	CompletionMedia     json.RawMessage `db:"completion_media"`
	IsPaid              bool            `db:"is_paid"`
	PaymentMethod       string          `db:"payment_method"`
	CancelledBy         string          `db:"cancelled_by"`
	Review              json.RawMessage `db:"review"`
	CustomerName        string          `db:"customer_name"`
	CustomerPhone       string          `db:"customer_phone"`
	CustomerAvatar      string          `db:"customer_avatar"`
	WorkerName          string          `db:"worker_name"`
	WorkerPhone         string          `db:"worker_phone"`
	WorkerAvatar        string          `db:"worker_avatar"`
	CreatedAt           sql.NullTime    `db:"created_at"`
	UpdatedAt           sql.NullTime    `db:"updated_at"`
}

const jobColumns = `
    id, customer_id, worker_id, skill, description, address, status,
    is_broadcast, price, platform_fee, worker_earnings, arrival_code,
    completion_code, completion_requested, completion_media, is_paid,
    payment_method, cancelled_by, review, customer_name, customer_phone,
    customer_avatar, worker_name, worker_phone, worker_avatar, created_at,
    updated_at`

func (r *jobRow) toJobRecord(ctx context.Context) (*mistri.JobRecord, error) {
	job := &mistri.JobRecord{
		ID:                  r.ID,
		CustomerID:          r.CustomerID,
		WorkerID:            r.WorkerID,
		Skill:               r.Skill,
		Description:         r.Description,
		Address:             r.Address,
		Status:              mistri.JobStatus(r.Status),
		IsBroadcast:         r.IsBroadcast,
		Price:               r.Price,
		ArrivalCode:         r.ArrivalCode,
		CompletionCode:      r.CompletionCode,
		CompletionRequested: r.CompletionRequested,
		IsPaid:              r.IsPaid,
		PaymentMethod:       mistri.PaymentMethod(r.PaymentMethod),
		CancelledBy:         mistri.CancelActor(r.CancelledBy),
		CustomerName:        r.CustomerName,
		CustomerPhone:       r.CustomerPhone,
		CustomerAvatar:      r.CustomerAvatar,
		WorkerName:          r.WorkerName,
		WorkerPhone:         r.WorkerPhone,
		WorkerAvatar:        r.WorkerAvatar,
	}
	if r.PlatformFee.Valid {
		fee := int(r.PlatformFee.Int64)
		job.PlatformFee = &fee
	}
	if r.WorkerEarnings.Valid {
		earn := int(r.WorkerEarnings.Int64)
		job.WorkerEarnings = &earn
	}
	if r.CreatedAt.Valid {
		job.CreatedAt = r.CreatedAt.Time
	}
	if r.UpdatedAt.Valid {
		at := r.UpdatedAt.Time
		job.UpdatedAt = &at
	}
	if len(r.CompletionMedia) > 0 {
		if err := json.Unmarshal(r.CompletionMedia, &job.CompletionMediaURLs); err != nil {
			return nil, ctxerr.Wrap(ctx, err, "unmarshal completion media")
		}
	}
	if len(r.Review) > 0 {
		var review mistri.JobReview
		if err := json.Unmarshal(r.Review, &review); err != nil {
			return nil, ctxerr.Wrap(ctx, err, "unmarshal review")
		}
		job.Review = &review
	}
	return job, nil
}

func (ds *Datastore) NewJob(ctx context.Context, job *mistri.JobRecord) (*mistri.JobRecord, error) {
	query := `
INSERT INTO jobs (
    id, customer_id, worker_id, skill, description, address, status,
    is_broadcast, price, arrival_code, completion_code,
    customer_name, customer_phone, customer_avatar
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	_, err := ds.db.ExecContext(ctx, query,
		job.ID, job.CustomerID, job.WorkerID, job.Skill, job.Description,
		job.Address, job.Status, job.IsBroadcast, job.Price, job.ArrivalCode,
		job.CompletionCode, job.CustomerName, job.CustomerPhone, job.CustomerAvatar,
	)
	if err != nil {
		if isDuplicate(err) {
			return nil, ctxerr.Errorf(ctx, "job %s already exists", job.ID)
		}
		return nil, &mistri.PersistenceError{Op: "insert job", Err: err}
	}
	// re-read so created_at reflects what MySQL actually stored
	return ds.jobDB(ctx, ds.db, job.ID)
}

func (ds *Datastore) Job(ctx context.Context, id string) (*mistri.JobRecord, error) {
	return ds.jobDB(ctx, ds.db, id)
}

func (ds *Datastore) jobDB(ctx context.Context, q sqlx.QueryerContext, id string) (*mistri.JobRecord, error) {
	var row jobRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT`+jobColumns+` FROM jobs WHERE id = ?`, id)
	switch {
	case err == sql.ErrNoRows:
		return nil, ctxerr.Wrap(ctx, notFound("JobRecord").WithID(id))
	case err != nil:
		return nil, &mistri.PersistenceError{Op: "select job", Err: err}
	}
	return row.toJobRecord(ctx)
}

func (ds *Datastore) ListJobs(ctx context.Context, opt mistri.JobListOptions) ([]*mistri.JobRecord, error) {
	stmt := dialect.From("jobs").Select(
		"id", "customer_id", "worker_id", "skill", "description", "address",
		"status", "is_broadcast", "price", "platform_fee", "worker_earnings",
		"arrival_code", "completion_code", "completion_requested",
		"completion_media", "is_paid", "payment_method", "cancelled_by",
		"review", "customer_name", "customer_phone", "customer_avatar",
		"worker_name", "worker_phone", "worker_avatar", "created_at",
		"updated_at",
	).Order(goqu.I("created_at").Desc(), goqu.I("id").Desc())

	if opt.BroadcastFeed {
		stmt = stmt.Where(
			goqu.C("is_broadcast").IsTrue(),
			goqu.C("status").Eq(string(mistri.JobStatusOpen)),
		)
	}
	if opt.CustomerID != "" {
		stmt = stmt.Where(goqu.C("customer_id").Eq(opt.CustomerID))
	}
	if opt.WorkerID != "" {
		stmt = stmt.Where(goqu.C("worker_id").Eq(opt.WorkerID))
	}
	if opt.Skill != "" {
		stmt = stmt.Where(goqu.C("skill").Eq(opt.Skill))
	}
	if len(opt.Statuses) > 0 {
		statuses := make([]string, len(opt.Statuses))
		for i, s := range opt.Statuses {
			statuses[i] = string(s)
		}
		stmt = stmt.Where(goqu.C("status").In(statuses))
	}

	query, args, err := stmt.ToSQL()
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "build list jobs query")
	}

	var rows []jobRow
	if err := sqlx.SelectContext(ctx, ds.db, &rows, query, args...); err != nil {
		return nil, &mistri.PersistenceError{Op: "list jobs", Err: err}
	}

	jobs := make([]*mistri.JobRecord, 0, len(rows))
	for i := range rows {
		job, err := rows[i].toJobRecord(ctx)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// transitionSQL builds the conditional update for a guarded transition. The
// WHERE clause on the current status is the whole concurrency story: when
// two workers race to accept the same OPEN job, only one UPDATE matches.
func transitionSQL(id string, from []mistri.JobStatus, change mistri.JobChange) (string, []interface{}) {
	sets := []string{"status = ?"}
	args := []interface{}{string(change.Status)}

	appendSet := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if change.WorkerID != nil {
		appendSet("worker_id", *change.WorkerID)
	}
	if change.WorkerName != nil {
		appendSet("worker_name", *change.WorkerName)
	}
	if change.WorkerPhone != nil {
		appendSet("worker_phone", *change.WorkerPhone)
	}
	if change.WorkerAvatar != nil {
		appendSet("worker_avatar", *change.WorkerAvatar)
	}
	if change.CompletionRequested != nil {
		appendSet("completion_requested", *change.CompletionRequested)
	}
	if change.CompletionMediaURLs != nil {
		media, _ := json.Marshal(change.CompletionMediaURLs)
		appendSet("completion_media", media)
	}
	if change.IsPaid != nil {
		appendSet("is_paid", *change.IsPaid)
	}
	if change.PaymentMethod != nil {
		appendSet("payment_method", string(*change.PaymentMethod))
	}
	if change.PlatformFee != nil {
		appendSet("platform_fee", *change.PlatformFee)
	}
	if change.WorkerEarnings != nil {
		appendSet("worker_earnings", *change.WorkerEarnings)
	}
	if change.CancelledBy != nil {
		appendSet("cancelled_by", string(*change.CancelledBy))
	}

	placeholders := make([]string, len(from))
	for i, s := range from {
		placeholders[i] = "?"
		args = append(args, string(s))
	}
	args = append(args, id)

	query := `UPDATE jobs SET ` + strings.Join(sets, ", ") +
		` WHERE status IN (` + strings.Join(placeholders, ", ") + `) AND id = ?`
	return query, args
}

func (ds *Datastore) TransitionJob(ctx context.Context, id string, from []mistri.JobStatus, change mistri.JobChange) (*mistri.JobRecord, error) {
	var job *mistri.JobRecord
	err := ds.withRetryTxx(ctx, func(tx sqlx.ExtContext) error {
		var err error
		job, err = ds.transitionJobTx(ctx, tx, id, from, change)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (ds *Datastore) transitionJobTx(ctx context.Context, tx sqlx.ExtContext, id string, from []mistri.JobStatus, change mistri.JobChange) (*mistri.JobRecord, error) {
	query, args := transitionSQL(id, from, change)
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, &mistri.PersistenceError{Op: "transition job", Err: err}
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		// Precondition failed: either the job is gone or its status moved.
		// Re-read inside the transaction to report which.
		var status string
		err := sqlx.GetContext(ctx, tx, &status, `SELECT status FROM jobs WHERE id = ?`, id)
		switch {
		case err == sql.ErrNoRows:
			return nil, ctxerr.Wrap(ctx, notFound("JobRecord").WithID(id))
		case err != nil:
			return nil, &mistri.PersistenceError{Op: "read job status", Err: err}
		}
		return nil, &mistri.StateConflictError{
			JobID:    id,
			Expected: from,
			Actual:   mistri.JobStatus(status),
		}
	}

	return ds.jobDB(ctx, tx, id)
}

func (ds *Datastore) SettleJob(ctx context.Context, id string, from []mistri.JobStatus, change mistri.JobChange, outbox *mistri.OutboxJob) (*mistri.JobRecord, error) {
	var job *mistri.JobRecord
	err := ds.withRetryTxx(ctx, func(tx sqlx.ExtContext) error {
		var err error
		job, err = ds.transitionJobTx(ctx, tx, id, from, change)
		if err != nil {
			return err
		}
		if outbox != nil {
			if _, err := ds.newOutboxJobTx(ctx, tx, outbox); err != nil {
				return ctxerr.Wrap(ctx, err, "enqueue settlement outbox")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (ds *Datastore) SaveJobReview(ctx context.Context, id string, review mistri.JobReview) (*mistri.JobRecord, error) {
	raw, err := json.Marshal(review)
	if err != nil {
		return nil, ctxerr.Wrap(ctx, err, "marshal review")
	}

	res, err := ds.db.ExecContext(ctx, `UPDATE jobs SET review = ? WHERE id = ?`, raw, id)
	if err != nil {
		return nil, &mistri.PersistenceError{Op: "save job review", Err: err}
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		// MySQL reports zero affected rows for a no-op update too, so check
		// existence before concluding not-found.
		if _, err := ds.jobDB(ctx, ds.db, id); err != nil {
			return nil, err
		}
	}
	return ds.jobDB(ctx, ds.db, id)
}
