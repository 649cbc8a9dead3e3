// Package follower implements the receiving half of replication: a
// ReplicationCommand arrives over the wire and is forwarded to the local
// Store under its version-checked arbitration rule (spec §4.5). It never
// propagates further.
package follower

import (
	"go.uber.org/zap"

	"quorumkv/internal/replication"
	"quorumkv/internal/store"
)

// Applier is the follower-side counterpart of leader.Writer.
type Applier struct {
	store store.Store
	log   *zap.Logger
}

// New creates an Applier over the given Store.
func New(s store.Store, log *zap.Logger) *Applier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Applier{store: s, log: log}
}

// Apply commits cmd to the local Store and returns once the write is
// visible to subsequent Gets, so the caller can acknowledge the leader
// only after the commit has happened.
func (a *Applier) Apply(cmd replication.Command) {
	a.store.Set(cmd.Key, cmd.Value, cmd.Version)
	a.log.Debug("applied replication command",
		zap.String("key", cmd.Key),
		zap.Uint64("version", cmd.Version),
	)
}
