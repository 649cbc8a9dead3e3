// Command kvnode runs one node of a quorumkv cluster: either the leader
// or a follower, selected by NODE_ROLE (spec §6).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"quorumkv/internal/config"
	"quorumkv/internal/follower"
	"quorumkv/internal/httpapi"
	"quorumkv/internal/leader"
	"quorumkv/internal/logging"
	"quorumkv/internal/replication"
	"quorumkv/internal/runtimeconfig"
	"quorumkv/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("startup configuration: %w", err)
	}

	log := logging.New(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)
	defer log.Sync() //nolint:errcheck

	log.Info("starting node",
		zap.String("role", string(cfg.Node.Role)),
		zap.Int("followers", len(cfg.Cluster.Followers)),
		zap.Int("write_quorum", cfg.Cluster.WriteQuorum),
		zap.Bool("use_versioning", cfg.Versioning.UseVersioning),
		zap.String("version_policy", string(cfg.Versioning.Policy)),
	)

	kvStore := newStore(cfg.Versioning.UseVersioning)

	scalars := runtimeconfig.New(
		int64(cfg.Cluster.WriteQuorum),
		int64(cfg.Replication.MinDelayMs),
		int64(cfg.Replication.MaxDelayMs),
	)

	deps := httpapi.Deps{
		Role:                 cfg.Node.Role,
		Store:                kvStore,
		Scalars:              scalars,
		FollowerCount:        len(cfg.Cluster.Followers),
		PerFollowerTimeoutMs: int64(cfg.Replication.FollowerTimeoutMs),
		Log:                  log,
	}

	var writer *leader.Writer
	if cfg.Node.Role == config.Leader {
		versions := newVersionSource(cfg.Versioning.Policy)
		replClient := replication.NewHTTPClient(scalars, log)
		writer = leader.New(leader.Config{
			Store:              kvStore,
			Versions:           versions,
			ReplClient:         replClient,
			Scalars:            scalars,
			Followers:          cfg.Cluster.Followers,
			PerFollowerTimeout: time.Duration(cfg.Replication.FollowerTimeoutMs) * time.Millisecond,
			Log:                log,
		})
		deps.Writer = writer
	} else {
		deps.Applier = follower.New(kvStore, log)
	}

	server := httpapi.New(deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("port", cfg.Server.Port))
		serveErr <- server.Start(":" + cfg.Server.Port)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
		log.Warn("http shutdown error", zap.Error(err))
	}
	if writer != nil {
		writer.Shutdown(5 * time.Second)
	}

	return nil
}

func newStore(useVersioning bool) store.Store {
	if useVersioning {
		return store.NewMonotone()
	}
	return store.NewNaive()
}

func newVersionSource(policy config.VersionPolicy) store.VersionSource {
	if policy == config.TimestampPolicy {
		return store.NewTimestampVersionSource()
	}
	return store.NewCounterVersionSource()
}
