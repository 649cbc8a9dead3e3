package follower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quorumkv/internal/replication"
	"quorumkv/internal/store"
)

func TestApply_CommitsToStore(t *testing.T) {
	s := store.NewMonotone()
	a := New(s, nil)

	a.Apply(replication.Command{Key: "k", Value: "v", Version: 3})

	e, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", e.Value)
	assert.Equal(t, uint64(3), e.Version)
}

func TestApply_IdempotentReplay(t *testing.T) {
	s := store.NewMonotone()
	a := New(s, nil)

	for i := 0; i < 3; i++ {
		a.Apply(replication.Command{Key: "k", Value: "v", Version: 9})
	}

	e, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", e.Value)
	assert.Equal(t, uint64(9), e.Version)
}

func TestApply_RejectsStaleVersionViaMonotoneStore(t *testing.T) {
	s := store.NewMonotone()
	a := New(s, nil)

	a.Apply(replication.Command{Key: "k", Value: "new", Version: 5})
	a.Apply(replication.Command{Key: "k", Value: "old", Version: 2})

	e, _ := s.Get("k")
	assert.Equal(t, "new", e.Value, "a reordered, stale delivery must not overwrite the newer value")
}
