package writequeue

import (
	"context"
	"errors"
	"rad/internal/testutil"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(sink Sink) *Queue {
	return NewQueue(sink, &testutil.MockLogger{}, testutil.NewMockMetrics())
}

func TestIncrement_ConcurrentMergesToOneOp(t *testing.T) {
	sink := &testutil.MockSink{}
	q := newTestQueue(sink)

	const n = 500
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Increment("users", map[string]any{"_id": "u1"}, "stats.total_msgs", 1)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, q.Len())
	require.NoError(t, q.Flush(context.Background()))

	calls := sink.CallsFor("users")
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Ops, 1)
	assert.Equal(t, int64(n), calls[0].Ops[0].Delta)
	assert.Equal(t, "stats.total_msgs", calls[0].Ops[0].Field)

	// Buffer is empty immediately after a successful flush.
	assert.Equal(t, 0, q.Len())
}

func TestIncrement_DistinctKeysStaySeparate(t *testing.T) {
	sink := &testutil.MockSink{}
	q := newTestQueue(sink)

	q.Increment("users", map[string]any{"_id": "u1"}, "stats.total_msgs", 1)
	q.Increment("users", map[string]any{"_id": "u2"}, "stats.total_msgs", 2)
	q.Increment("users", map[string]any{"_id": "u1"}, "stats.total_stocks", 3)

	assert.Equal(t, 3, q.Len())
	require.NoError(t, q.Flush(context.Background()))

	calls := sink.CallsFor("users")
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].Ops, 3)
}

func TestFlush_GroupsByCollection(t *testing.T) {
	sink := &testutil.MockSink{}
	q := newTestQueue(sink)

	q.Increment("users", map[string]any{"_id": "u1"}, "stats.total_msgs", 1)
	q.Increment("daily_stats", map[string]any{"_id": "2026-08-30"}, "stats.u1.messages", 1)

	require.NoError(t, q.Flush(context.Background()))
	assert.Len(t, sink.CallsFor("users"), 1)
	assert.Len(t, sink.CallsFor("daily_stats"), 1)
}

func TestFlush_FailureIsolatedPerCollection(t *testing.T) {
	sink := &testutil.MockSink{FailFor: map[string]error{"users": errors.New("down")}}
	q := newTestQueue(sink)

	q.Increment("users", map[string]any{"_id": "u1"}, "stats.total_msgs", 1)
	q.Increment("daily_stats", map[string]any{"_id": "2026-08-30"}, "stats.u1.messages", 1)

	err := q.Flush(context.Background())
	require.Error(t, err)

	// The healthy collection still got its batch.
	assert.Len(t, sink.CallsFor("daily_stats"), 1)

	// Failed deltas are dropped, not re-queued: the next flush sees only
	// new increments.
	assert.Equal(t, 0, q.Len())
	require.NoError(t, q.Flush(context.Background()))
	assert.Len(t, sink.CallsFor("daily_stats"), 1)
}

func TestFlush_EmptyBufferIsNoop(t *testing.T) {
	sink := &testutil.MockSink{}
	q := newTestQueue(sink)

	require.NoError(t, q.Flush(context.Background()))
	assert.Empty(t, sink.Calls)
}

func TestCanonicalFilter_OrderIndependent(t *testing.T) {
	a := canonicalFilter(map[string]any{"a": 1, "b": "x"})
	b := canonicalFilter(map[string]any{"b": "x", "a": 1})
	assert.Equal(t, a, b)

	c := canonicalFilter(map[string]any{"a": 2, "b": "x"})
	assert.NotEqual(t, a, c)
}

func TestCanonicalFilter_DistinguishesValueTypes(t *testing.T) {
	// A numeric id and its string form are different documents; their
	// pending increments must never merge.
	num := canonicalFilter(map[string]any{"_id": 1})
	str := canonicalFilter(map[string]any{"_id": "1"})
	assert.NotEqual(t, num, str)
}
