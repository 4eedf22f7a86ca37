package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context) error { return nil }

func mustJob(t *testing.T, name string, r Recurrence, a Action) *Job {
	t.Helper()
	if a == nil {
		a = noop
	}
	j, err := NewJob(name, r, a)
	require.NoError(t, err)
	return j
}

func every(t *testing.T, d time.Duration) EveryInterval {
	t.Helper()
	r, err := NewEveryInterval(d)
	require.NoError(t, err)
	return r
}

func names(jobs []*Job) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Name())
	}
	return out
}

func TestNewJobValidation(t *testing.T) {
	r := every(t, time.Minute)

	_, err := NewJob("  ", r, noop)
	assert.True(t, IsValidation(err))
	_, err = NewJob("x", nil, noop)
	assert.True(t, IsValidation(err))
	_, err = NewJob("x", r, nil)
	assert.True(t, IsValidation(err))

	j, err := NewJob(" morning ", r, noop)
	require.NoError(t, err)
	assert.Equal(t, "morning", j.Name())
	assert.True(t, j.NextDue().IsZero())
	assert.True(t, j.LastRun().IsZero())
}

func TestRegistryKeepsInsertionOrder(t *testing.T) {
	reg := NewRegistry()
	for _, n := range []string{"c", "a", "b"} {
		require.NoError(t, reg.Add(mustJob(t, n, every(t, time.Minute), nil)))
	}
	assert.Equal(t, []string{"c", "a", "b"}, names(reg.All()))
	assert.Equal(t, 3, reg.Len())

	j, ok := reg.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", j.Name())
	_, ok = reg.Get("zzz")
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	j := mustJob(t, "a", every(t, time.Minute), nil)
	require.NoError(t, reg.Add(j))

	assert.True(t, IsValidation(reg.Add(j)))
	assert.True(t, IsValidation(reg.Add(mustJob(t, "a", every(t, time.Hour), nil))))
	assert.True(t, IsValidation(reg.Add(nil)))

	// Same recurrence under another name is fine.
	require.NoError(t, reg.Add(mustJob(t, "b", every(t, time.Minute), nil)))
	assert.Equal(t, 2, reg.Len())
}

func TestRegistryRemovePreservesOrder(t *testing.T) {
	reg := NewRegistry()
	for _, n := range []string{"a", "b", "c", "d"} {
		require.NoError(t, reg.Add(mustJob(t, n, every(t, time.Minute), nil)))
	}
	snapshot := reg.All()

	assert.True(t, reg.Remove("b"))
	assert.False(t, reg.Remove("b"))
	assert.Equal(t, []string{"a", "c", "d"}, names(reg.All()))

	// Earlier copies are not affected.
	assert.Equal(t, []string{"a", "b", "c", "d"}, names(snapshot))

	require.NoError(t, reg.Add(mustJob(t, "b", every(t, time.Minute), nil)))
	assert.Equal(t, []string{"a", "c", "d", "b"}, names(reg.All()))
}

func TestZeroRegistryIsUsable(t *testing.T) {
	var reg Registry
	require.NoError(t, reg.Add(mustJob(t, "a", every(t, time.Minute), nil)))
	assert.Equal(t, 1, reg.Len())
}
