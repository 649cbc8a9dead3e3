// Package runtimeconfig holds the process-global mutable scalars named
// in spec §9: WriteQuorum, MinDelayMs, MaxDelayMs. Each is an
// independent atomic cell — spec §9 is explicit that these must not be
// snapshotted together as a struct, since the leader samples them
// independently at the start of each Write.
package runtimeconfig

import "sync/atomic"

// Scalars is the set of runtime-mutable knobs shared by the leader's
// HTTP config endpoint, LeaderWriter, and ReplicationClient.
type Scalars struct {
	writeQuorum atomic.Int64
	minDelayMs  atomic.Int64
	maxDelayMs  atomic.Int64
}

// New creates Scalars seeded with the given startup values.
func New(writeQuorum, minDelayMs, maxDelayMs int64) *Scalars {
	s := &Scalars{}
	s.writeQuorum.Store(writeQuorum)
	s.minDelayMs.Store(minDelayMs)
	s.maxDelayMs.Store(maxDelayMs)
	return s
}

// WriteQuorum returns the current write quorum Q.
func (s *Scalars) WriteQuorum() int64 { return s.writeQuorum.Load() }

// SetWriteQuorum updates Q; range validation is the caller's
// responsibility (the HTTP /config handler accepts 1 <= Q <= |F|).
func (s *Scalars) SetWriteQuorum(q int64) { s.writeQuorum.Store(q) }

// MinMs returns the current minimum injected delay, implementing
// replication.DelayBounds.
func (s *Scalars) MinMs() int64 { return s.minDelayMs.Load() }

// MaxMs returns the current maximum injected delay, implementing
// replication.DelayBounds.
func (s *Scalars) MaxMs() int64 { return s.maxDelayMs.Load() }

// SetDelayBoundsMs updates both delay bounds.
func (s *Scalars) SetDelayBoundsMs(minMs, maxMs int64) {
	s.minDelayMs.Store(minMs)
	s.maxDelayMs.Store(maxMs)
}
