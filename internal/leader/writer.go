// Package leader implements the quorum-gated fan-out orchestrator: local
// apply, parallel replication to every follower, and early-return once Q
// acknowledgements arrive while the remaining sends continue in the
// background (spec §4.4).
package leader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"quorumkv/internal/errs"
	"quorumkv/internal/replication"
	"quorumkv/internal/runtimeconfig"
	"quorumkv/internal/store"
)

// FollowerResponse is one follower's outcome, recorded in completion
// order as observed by the quorum wait.
type FollowerResponse struct {
	Follower string
	Outcome  replication.Outcome
	Err      string
}

// WriteResult is the outcome of one LeaderWriter.Write call.
type WriteResult struct {
	IsSuccess           bool
	RequiredQuorum      int
	SuccessfulFollowers int
	// Responses is a snapshot at the quorum point, not every follower's
	// eventual outcome (spec §4.4 step 7, §9 "ownership of responses").
	Responses    []FollowerResponse
	WasCancelled bool
	Version      uint64
}

// Writer orchestrates Write. One instance is created per leader process.
type Writer struct {
	store              store.Store
	versions           store.VersionSource
	replClient         replication.Client
	scalars            *runtimeconfig.Scalars
	followers          []string
	perFollowerTimeout time.Duration
	log                *zap.Logger

	// bg tracks every in-flight replication send across the process
	// lifetime, independent of any single request's context, so that
	// Shutdown can wait (bounded) for background work instead of
	// abandoning it (spec §9 "background work after response").
	bg sync.WaitGroup
}

// Config bundles Writer's fixed-at-startup dependencies.
type Config struct {
	Store              store.Store
	Versions           store.VersionSource
	ReplClient         replication.Client
	Scalars            *runtimeconfig.Scalars
	Followers          []string
	PerFollowerTimeout time.Duration
	Log                *zap.Logger
}

// New creates a Writer.
func New(cfg Config) *Writer {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{
		store:              cfg.Store,
		versions:           cfg.Versions,
		replClient:         cfg.ReplClient,
		scalars:            cfg.Scalars,
		followers:          cfg.Followers,
		perFollowerTimeout: cfg.PerFollowerTimeout,
		log:                log,
	}
}

// Write applies (key, value) locally, fans it out to every follower, and
// returns once RequiredQuorum acknowledgements arrive or ctx is
// cancelled, whichever comes first. In-flight sends that have not yet
// completed at that point keep running in the background.
func (w *Writer) Write(ctx context.Context, key, value string) (WriteResult, error) {
	if key == "" {
		return WriteResult{}, fmt.Errorf("%w: key must not be empty", errs.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return WriteResult{WasCancelled: true}, nil
	}

	version := w.versions.Next()
	w.store.Set(key, value, version)

	followers := w.followers
	quorum := int(w.scalars.WriteQuorum())

	if quorum < 0 || quorum > len(followers) {
		return WriteResult{}, fmt.Errorf("%w: quorum %d out of range [0, %d]", errs.ErrInvalidConfiguration, quorum, len(followers))
	}

	result := WriteResult{RequiredQuorum: quorum, Version: version}

	if quorum == 0 || len(followers) == 0 {
		result.IsSuccess = true
		return result, nil
	}

	cmd := replication.Command{Key: key, Value: value, Version: version}
	results := make(chan FollowerResponse, len(followers))

	for _, f := range followers {
		f := f
		w.bg.Add(1)
		go func() {
			defer w.bg.Done()

			sendCtx := context.Background()
			if w.perFollowerTimeout > 0 {
				var cancel context.CancelFunc
				sendCtx, cancel = context.WithTimeout(sendCtx, w.perFollowerTimeout)
				defer cancel()
			}

			resp := w.replClient.Send(sendCtx, f, cmd)
			results <- FollowerResponse{Follower: f, Outcome: resp.Outcome, Err: resp.Err}
		}()
	}

	successCount := 0
	for range followers {
		select {
		case r := <-results:
			result.Responses = append(result.Responses, r)
			if r.Outcome == replication.Success {
				successCount++
			}
			if successCount >= quorum {
				result.IsSuccess = true
				result.SuccessfulFollowers = successCount
				return result, nil
			}
		case <-ctx.Done():
			result.WasCancelled = true
			result.SuccessfulFollowers = successCount
			result.IsSuccess = successCount >= quorum
			return result, nil
		}
	}

	result.SuccessfulFollowers = successCount
	result.IsSuccess = successCount >= quorum
	return result, nil
}

// Shutdown waits up to timeout for in-flight background replication
// sends to finish, then returns regardless of whether they have.
func (w *Writer) Shutdown(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		w.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		w.log.Warn("shutdown timed out waiting for in-flight replication sends")
	}
}
