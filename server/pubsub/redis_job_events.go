package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/mistriapp/mistri/server/mistri"
	"github.com/pkg/errors"
)

// JobEventStream publishes job snapshots to Redis channels as transitions
// happen, so deployments that can run Redis get change notifications without
// tightening the poll interval. Every published event carries the full job
// record, preserving the snapshot-per-update contract.
type JobEventStream struct {
	pool *redis.Pool
}

// NewRedisPool creates a Redis connection pool using the provided server
// address, password and database.
func NewRedisPool(server, password string, database int, useTLS bool) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     3,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			c, err := redis.Dial(
				"tcp",
				server,
				redis.DialDatabase(database),
				redis.DialUseTLS(useTLS),
				redis.DialConnectTimeout(5*time.Second),
				redis.DialKeepAlive(10*time.Second),
				// Read/write timeouts not set here because events may arrive
				// only rarely on the pub/sub channel.
			)
			if err != nil {
				return nil, err
			}
			if password != "" {
				if _, err := c.Do("AUTH", password); err != nil {
					c.Close()
					return nil, err
				}
			}
			return c, err
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// NewJobEventStream creates an event stream over the provided pool.
func NewJobEventStream(pool *redis.Pool) *JobEventStream {
	return &JobEventStream{pool: pool}
}

func jobChannelName(jobID string) string {
	return "mistri:job_events:" + jobID
}

// Publish writes the job snapshot to the job's channel. A publish with no
// subscribers is not an error; the pollers remain the source of truth.
func (s *JobEventStream) Publish(ctx context.Context, job *mistri.JobRecord) error {
	conn := s.pool.Get()
	defer conn.Close()

	raw, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "marshal job event")
	}

	if _, err := redis.DoContext(conn, ctx, "PUBLISH", jobChannelName(job.ID), raw); err != nil {
		return errors.Wrap(err, "publish job event")
	}
	return nil
}

// ReadChannel returns a channel of job snapshots for the given job. The
// returned channel is closed when ctx is done.
func (s *JobEventStream) ReadChannel(ctx context.Context, jobID string) (<-chan *mistri.JobRecord, error) {
	psc := redis.PubSubConn{Conn: s.pool.Get()}
	if err := psc.Subscribe(jobChannelName(jobID)); err != nil {
		psc.Close()
		return nil, errors.Wrap(err, "subscribe job channel")
	}

	out := make(chan *mistri.JobRecord)
	go func() {
		defer close(out)
		defer psc.Close()
		for {
			switch msg := psc.Receive().(type) {
			case redis.Message:
				var job mistri.JobRecord
				if err := json.Unmarshal(msg.Data, &job); err != nil {
					continue
				}
				select {
				case out <- &job:
				case <-ctx.Done():
					return
				}
			case error:
				return
			}
		}
	}()

	go func() {
		<-ctx.Done()
		// Unblocks the Receive loop.
		psc.Unsubscribe() //nolint:errcheck
	}()

	return out, nil
}

// HealthCheck returns an error if the Redis backend is not healthy.
func (s *JobEventStream) HealthCheck() error {
	conn := s.pool.Get()
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		return errors.Wrap(err, "reading from redis")
	}
	return nil
}
