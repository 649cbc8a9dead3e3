// Package config assembles the process's startup configuration from
// environment variables into one typed struct, grouped by concern the
// way konsul's internal/config does it. The runtime-mutable subset
// (write quorum, delay bounds) is lifted out into
// quorumkv/internal/runtimeconfig rather than living here, per spec §9.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"quorumkv/internal/errs"
)

// Role is the process-wide, startup-fixed node role (spec §6).
type Role string

const (
	Leader   Role = "Leader"
	Follower Role = "Follower"
)

// VersionPolicy selects which store.VersionSource implementation the
// leader uses (spec §3/§4.2; see SPEC_FULL.md §12 for why this is a
// distinct knob from UseVersioning).
type VersionPolicy string

const (
	CounterPolicy   VersionPolicy = "counter"
	TimestampPolicy VersionPolicy = "timestamp"
)

// NodeConfig is this process's fixed identity.
type NodeConfig struct {
	Role Role
}

// ClusterConfig is the leader's view of the cluster.
type ClusterConfig struct {
	Followers   []string
	WriteQuorum int
}

// ReplicationConfig governs the leader's fan-out behavior.
type ReplicationConfig struct {
	FollowerTimeoutMs int
	MinDelayMs        int
	MaxDelayMs        int
}

// VersioningConfig selects the Store arbitration rule and the
// VersionSource policy.
type VersioningConfig struct {
	UseVersioning bool
	Policy        VersionPolicy
}

// ServerConfig is the HTTP listener configuration.
type ServerConfig struct {
	Port string
}

// LogConfig configures internal/logging.
type LogConfig struct {
	Level  string
	Format string
}

// Config is the complete startup configuration for one node process.
type Config struct {
	Node        NodeConfig
	Cluster     ClusterConfig
	Replication ReplicationConfig
	Versioning  VersioningConfig
	Server      ServerConfig
	Log         LogConfig
}

// FromEnv parses Config from the process environment (spec §6) and
// validates it. A non-nil error means the process must exit non-zero
// without starting a listener.
func FromEnv() (Config, error) {
	role := Role(getEnv("NODE_ROLE", string(Leader)))
	if role != Leader && role != Follower {
		return Config{}, fmt.Errorf("%w: NODE_ROLE must be %q or %q, got %q", errs.ErrInvalidConfiguration, Leader, Follower, role)
	}

	writeQuorum, err := getEnvInt("WRITE_QUORUM", 1)
	if err != nil {
		return Config{}, err
	}

	followerTimeoutMs, err := getEnvInt("FOLLOWER_TIMEOUT_MS", 2000)
	if err != nil {
		return Config{}, err
	}

	minDelayMs, err := getEnvInt("MIN_DELAY_MS", 0)
	if err != nil {
		return Config{}, err
	}

	maxDelayMs, err := getEnvInt("MAX_DELAY_MS", 1000)
	if err != nil {
		return Config{}, err
	}

	var followers []string
	if raw := os.Getenv("FOLLOWERS"); raw != "" {
		for _, f := range strings.Split(raw, ";") {
			f = strings.TrimSpace(f)
			if f != "" {
				followers = append(followers, f)
			}
		}
	}

	useVersioning, err := getEnvBool("USE_VERSIONING", true)
	if err != nil {
		return Config{}, err
	}

	policy := VersionPolicy(strings.ToLower(getEnv("VERSION_POLICY", string(CounterPolicy))))
	if policy != CounterPolicy && policy != TimestampPolicy {
		return Config{}, fmt.Errorf("%w: VERSION_POLICY must be %q or %q, got %q", errs.ErrInvalidConfiguration, CounterPolicy, TimestampPolicy, policy)
	}

	port := getEnv("PORT", "8080")

	cfg := Config{
		Node: NodeConfig{Role: role},
		Cluster: ClusterConfig{
			Followers:   followers,
			WriteQuorum: writeQuorum,
		},
		Replication: ReplicationConfig{
			FollowerTimeoutMs: followerTimeoutMs,
			MinDelayMs:        minDelayMs,
			MaxDelayMs:        maxDelayMs,
		},
		Versioning: VersioningConfig{
			UseVersioning: useVersioning,
			Policy:        policy,
		},
		Server: ServerConfig{Port: port},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants spec §6 demands at startup: the
// quorum must fit the follower count, and delay bounds must be
// non-negative.
func (c Config) Validate() error {
	if c.Node.Role == Leader {
		if c.Cluster.WriteQuorum < 0 || c.Cluster.WriteQuorum > len(c.Cluster.Followers) {
			return fmt.Errorf("%w: WRITE_QUORUM=%d out of range [0, %d]", errs.ErrInvalidConfiguration, c.Cluster.WriteQuorum, len(c.Cluster.Followers))
		}
	}
	if c.Replication.MinDelayMs < 0 || c.Replication.MaxDelayMs < 0 {
		return fmt.Errorf("%w: delay bounds must be >= 0", errs.ErrInvalidConfiguration)
	}
	if c.Replication.FollowerTimeoutMs < 0 {
		return fmt.Errorf("%w: FOLLOWER_TIMEOUT_MS must be >= 0", errs.ErrInvalidConfiguration)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", errs.ErrInvalidConfiguration, key, raw)
	}
	return v, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a bool, got %q", errs.ErrInvalidConfiguration, key, raw)
	}
	return v, nil
}
