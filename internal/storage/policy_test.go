package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Success(t *testing.T) {
	got, err := Resolve(context.Background(), time.Second, FailOpen, 0,
		func(ctx context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestResolve_ErrorReturnsFallback(t *testing.T) {
	boom := errors.New("boom")
	got, err := Resolve(context.Background(), time.Second, FailClosed, false,
		func(ctx context.Context) (bool, error) { return true, boom })
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, got, "fail-closed fallback must win over the partial result")
}

func TestResolve_TimeoutHitsSlowStore(t *testing.T) {
	start := time.Now()
	got, err := Resolve(context.Background(), 20*time.Millisecond, FailOpen, "fallback",
		func(ctx context.Context) (string, error) {
			select {
			case <-time.After(5 * time.Second):
				return "late", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "fallback", got)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFailPolicy_String(t *testing.T) {
	assert.Equal(t, "fail-open", FailOpen.String())
	assert.Equal(t, "fail-closed", FailClosed.String())
}

func TestDateKey_UsesISTDay(t *testing.T) {
	// 20:00 UTC on the 1st is already 01:30 on the 2nd in IST.
	utcEvening := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-02", DateKey(utcEvening))

	utcMorning := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-01", DateKey(utcMorning))
}
