package writequeue

import (
	"context"
	"errors"
	"fmt"
	"rad/internal/models"
	"rad/internal/providers"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// Sink applies one batched increment operation per collection. The mongo
// store implements it with an unordered bulk upsert.
type Sink interface {
	BulkIncrement(ctx context.Context, collection string, ops []models.Increment) error
}

type bufKey struct {
	collection string
	filter     string
	field      string
}

type pending struct {
	collection string
	filter     map[string]any
	field      string
	delta      int64
}

// Queue buffers high-frequency, low-value counter increments in memory and
// applies them in batches, trading write latency for bounded staleness.
// Deltas buffered here are applied no later than one flush interval after
// buffering and are lost on crash before flush; any decision that needs an
// up-to-date count must read the synchronous store path instead.
type Queue struct {
	mu  sync.Mutex
	buf map[bufKey]*pending

	sink    Sink
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
}

func NewQueue(sink Sink, logger providers.Logger, metrics providers.MetricsProviderInterface) *Queue {
	return &Queue{
		buf:     make(map[bufKey]*pending),
		sink:    sink,
		logger:  logger,
		metrics: metrics,
	}
}

// Increment merges a delta into the buffer. Concurrent increments to the
// same (collection, filter, field) add up; the lock covers only the buffer
// mutation, never I/O.
func (q *Queue) Increment(collection string, filter map[string]any, field string, delta int64) {
	key := bufKey{collection: collection, filter: canonicalFilter(filter), field: field}

	q.mu.Lock()
	if p, ok := q.buf[key]; ok {
		p.delta += delta
	} else {
		q.buf[key] = &pending{collection: collection, filter: filter, field: field, delta: delta}
	}
	q.mu.Unlock()
}

// Len reports the number of distinct pending increments.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Flush swaps the buffer for an empty one and applies one batch per target
// collection from its private snapshot. A failure on one collection is
// logged and does not abort the others; failed deltas are not re-queued —
// the next cycle only sees new increments.
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	if len(q.buf) == 0 {
		q.mu.Unlock()
		return nil
	}
	snapshot := q.buf
	q.buf = make(map[bufKey]*pending)
	q.mu.Unlock()

	start := time.Now()

	byCollection := make(map[string][]models.Increment)
	for _, p := range snapshot {
		byCollection[p.collection] = append(byCollection[p.collection], models.Increment{
			Filter: p.filter,
			Field:  p.field,
			Delta:  p.delta,
		})
	}

	var errs []error
	for collection, ops := range byCollection {
		if err := q.sink.BulkIncrement(ctx, collection, ops); err != nil {
			q.logger.Errorf(providers.TypeQueue, "flush failed for %s (%d ops dropped): %s", collection, len(ops), err)
			q.metrics.IncFlushErrors(collection)
			errs = append(errs, fmt.Errorf("%s: %w", collection, err))
			continue
		}
		q.metrics.AddFlushedOps(collection, len(ops))
		q.logger.Debugf(providers.TypeQueue, "flushed %d ops to %s", len(ops), collection)
	}

	q.metrics.ObserveFlushDuration(time.Since(start))
	return errors.Join(errs...)
}

// canonicalFilter renders a filter map as a stable hashable key. JSON
// encoding sorts map keys and keeps the value types distinguishable, so
// {"_id": "1"} and {"_id": 1} never merge into one bucket.
func canonicalFilter(filter map[string]any) string {
	data, err := json.Marshal(filter)
	if err != nil {
		// Filters are flat id maps; an unencodable value is a caller bug.
		return fmt.Sprintf("%#v", filter)
	}
	return string(data)
}
