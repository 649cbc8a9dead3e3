package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quorumkv/internal/errs"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"NODE_ROLE", "WRITE_QUORUM", "FOLLOWER_TIMEOUT_MS", "MIN_DELAY_MS",
		"MAX_DELAY_MS", "FOLLOWERS", "USE_VERSIONING", "VERSION_POLICY",
		"PORT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	// The default leader quorum of 1 needs at least one follower to pass
	// Validate; every other setting is left at its default.
	t.Setenv("FOLLOWERS", "http://a:8081")
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, Leader, cfg.Node.Role)
	assert.Equal(t, 1, cfg.Cluster.WriteQuorum)
	assert.Equal(t, 2000, cfg.Replication.FollowerTimeoutMs)
	assert.Equal(t, 0, cfg.Replication.MinDelayMs)
	assert.Equal(t, 1000, cfg.Replication.MaxDelayMs)
	assert.True(t, cfg.Versioning.UseVersioning)
	assert.Equal(t, CounterPolicy, cfg.Versioning.Policy)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestFromEnv_ParsesFollowerList(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ROLE", "Leader")
	t.Setenv("FOLLOWERS", "http://a:8081;http://b:8082; http://c:8083 ")
	t.Setenv("WRITE_QUORUM", "2")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a:8081", "http://b:8082", "http://c:8083"}, cfg.Cluster.Followers)
}

func TestFromEnv_RejectsBadRole(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ROLE", "Bogus")
	_, err := FromEnv()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidConfiguration))
}

func TestFromEnv_RejectsQuorumExceedingFollowers(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ROLE", "Leader")
	t.Setenv("FOLLOWERS", "http://a:8081")
	t.Setenv("WRITE_QUORUM", "5")

	_, err := FromEnv()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidConfiguration))
}

func TestFromEnv_RejectsNegativeDelay(t *testing.T) {
	clearEnv(t)
	t.Setenv("FOLLOWERS", "http://a:8081")
	t.Setenv("MIN_DELAY_MS", "-1")
	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnv_RejectsUnknownVersionPolicy(t *testing.T) {
	clearEnv(t)
	t.Setenv("VERSION_POLICY", "vector-clock")
	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnv_FollowerRoleSkipsQuorumValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ROLE", "Follower")
	t.Setenv("WRITE_QUORUM", "99")

	_, err := FromEnv()
	require.NoError(t, err, "quorum is meaningless on a follower and must not block startup")
}
