package storage

import (
	"context"
	"fmt"
	"time"
)

// FailPolicy states what a hot-path decision does when the authoritative
// store cannot answer in time: fail open (use the permissive fallback, chat
// keeps flowing) or fail closed (use the restrictive fallback, no reward on
// a guess).
type FailPolicy uint8

const (
	FailOpen FailPolicy = iota + 1
	FailClosed
)

func (p FailPolicy) String() string {
	if p == FailClosed {
		return "fail-closed"
	}
	return "fail-open"
}

// Resolve runs fn under a bounded deadline. On error or timeout it resolves
// to fallback — the value the call site's policy dictates — and returns the
// underlying error for logging. Store hiccups are absorbed here, never
// raised into the message flow.
func Resolve[T any](ctx context.Context, timeout time.Duration, policy FailPolicy, fallback T, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	val, err := fn(ctx)
	if err != nil {
		return fallback, fmt.Errorf("resolved %s within %s: %w", policy, timeout, err)
	}
	return val, nil
}
