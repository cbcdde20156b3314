// Package mysql is a MySQL implementation of the mistri.Datastore interface.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/VividCortex/mysqlerr"
	"github.com/WatchBeam/clock"
	"github.com/cenkalti/backoff/v4"
	kitlog "github.com/go-kit/log"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/mistriapp/mistri/server/config"
	"github.com/mistriapp/mistri/server/contexts/ctxerr"
	"github.com/mistriapp/mistri/server/mistri"
)

const mySQLTimestampFormat = "2006-01-02 15:04:05"

// Datastore is an implementation of mistri.Datastore backed by MySQL.
type Datastore struct {
	db     *sqlx.DB
	logger kitlog.Logger
	clock  clock.Clock
}

var _ mistri.Datastore = (*Datastore)(nil)

// Option is a functional option for configuring the datastore.
type Option func(*Datastore)

// WithLogger sets the logger used by the datastore.
func WithLogger(l kitlog.Logger) Option {
	return func(ds *Datastore) { ds.logger = l }
}

// WithClock sets the time source used by the datastore.
func WithClock(c clock.Clock) Option {
	return func(ds *Datastore) { ds.clock = c }
}

// New creates a Datastore from the MySQL configuration.
func New(cfg config.MysqlConfig, opts ...Option) (*Datastore, error) {
	dsn := generateDSN(cfg)
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(time.Second * time.Duration(cfg.ConnMaxLifetime))

	var dbError error
	for attempt := 0; attempt < cfg.ConnectRetryAttempts; attempt++ {
		dbError = db.Ping()
		if dbError == nil {
			break
		}
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	if dbError != nil {
		return nil, dbError
	}

	ds := &Datastore{
		db:     db,
		logger: kitlog.NewNopLogger(),
		clock:  clock.C,
	}
	for _, opt := range opts {
		opt(ds)
	}
	return ds, nil
}

func generateDSN(cfg config.MysqlConfig) string {
	params := "charset=utf8mb4&parseTime=true&loc=UTC&multiStatements=true"
	return fmt.Sprintf("%s:%s@%s(%s)/%s?%s",
		cfg.Username, cfg.Password, cfg.Protocol, cfg.Address, cfg.Database, params)
}

// Close closes the underlying database connection.
func (ds *Datastore) Close() error {
	return ds.db.Close()
}

// HealthCheck returns an error if the MySQL backend is not healthy.
func (ds *Datastore) HealthCheck() error {
	_, err := ds.db.Exec("select 1")
	return err
}

// MigrateTables creates the schema if it does not exist yet.
func (ds *Datastore) MigrateTables(ctx context.Context) error {
	_, err := ds.db.ExecContext(ctx, schema)
	return ctxerr.Wrap(ctx, err, "apply schema")
}

type txFn func(tx sqlx.ExtContext) error

// retryableError determines whether a MySQL error can be retried. By default
// errors are considered non-retryable. Only errors that we know have a
// possibility of succeeding on a retry should return true in this function.
func retryableError(err error) bool {
	base := ctxerr.Cause(err)
	if b, ok := base.(*mysql.MySQLError); ok {
		switch b.Number {
		case mysqlerr.ER_LOCK_DEADLOCK, mysqlerr.ER_LOCK_WAIT_TIMEOUT:
			return true
		}
	}
	return false
}

// withRetryTxx provides a common way to commit/rollback a txFn wrapped in a
// retry with exponential backoff.
func (ds *Datastore) withRetryTxx(ctx context.Context, fn txFn) error {
	operation := func() error {
		tx, err := ds.db.BeginTxx(ctx, nil)
		if err != nil {
			return ctxerr.Wrap(ctx, err, "create transaction")
		}

		defer func() {
			if p := recover(); p != nil {
				if err := tx.Rollback(); err != nil {
					ds.logger.Log("err", err, "msg", "error encountered during transaction panic rollback")
				}
				panic(p)
			}
		}()

		if err := fn(tx); err != nil {
			rbErr := tx.Rollback()
			if rbErr != nil && rbErr != sql.ErrTxDone {
				// Consider rollback errors to be non-retryable.
				return backoff.Permanent(ctxerr.Wrapf(ctx, err, "got err '%s' rolling back after err", rbErr.Error()))
			}
			if retryableError(err) {
				return err
			}
			// Consider any other errors to be non-retryable.
			return backoff.Permanent(err)
		}

		if err := tx.Commit(); err != nil {
			err = ctxerr.Wrap(ctx, err, "commit transaction")
			if retryableError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 5 * time.Second
	return backoff.Retry(operation, bo)
}
