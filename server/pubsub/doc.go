// Package pubsub implements the sync layer: the pseudo-realtime facade that
// lets presentation code subscribe to filtered job sets.
//
// The record store exposes only request/response filtered queries, so the
// Poller implements subscribe as an immediate fetch followed by re-fetches
// on a fixed interval, delivering the full current result set on each tick.
// There is no incremental diffing; consumers diff against their previous
// snapshot to detect actionable events, and must tolerate missed
// intermediate states (a job may never be observed OPEN if it was accepted
// between two ticks).
//
// JobEventStream is the push-channel upgrade path: transitions can be
// published to Redis so interested consumers learn of a change without
// waiting for the next tick. The snapshot contract stays the minimum
// guarantee either way.
package pubsub
