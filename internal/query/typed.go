package query

import (
	"context"
	"fmt"
	"strings"
)

// Get is the typed form of Manager.Fetch.
func Get[T any](ctx context.Context, m *Manager, key Key, p Policy, fn func(context.Context) (T, error)) (T, error) {
	v, err := m.fetch(ctx, key, p, erase(fn), nil, false)
	return cast[T](v, err)
}

// GetList is Get for list-shaped reads. Under Policy.RecoverEmpty a failed
// read resolves to an empty, non-nil slice.
func GetList[E any](ctx context.Context, m *Manager, key Key, p Policy, fn func(context.Context) ([]E, error)) ([]E, error) {
	v, err := m.fetch(ctx, key, p, erase(fn), []E{}, false)
	return cast[[]E](v, err)
}

// Watch is the typed form of Manager.Poll.
func Watch[T any](ctx context.Context, m *Manager, key Key, p Policy, fn func(context.Context) (T, error), onResult func(T, error) bool) error {
	return m.Poll(ctx, key, p, erase(fn), func(v any, err error) bool {
		return onResult(cast[T](v, err))
	})
}

// Cached returns the data held for key without fetching, fresh or not.
func Cached[T any](m *Manager, key Key) (T, bool) {
	e := m.Entry(key)
	t, ok := e.Data.(T)
	return t, ok
}

// Mutation is the typed form of Manager.Mutate.
func Mutation[T any](ctx context.Context, m *Manager, fn func(context.Context) (T, error), invalidates ...Key) (T, error) {
	var out T
	err := m.Mutate(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		out = v
		return err
	}, invalidates...)
	return out, err
}

func erase[T any](fn func(context.Context) (T, error)) FetchFunc {
	return func(ctx context.Context) (any, error) {
		return fn(ctx)
	}
}

func cast[T any](v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok && v != nil {
		return zero, fmt.Errorf("query: cached value is %T, want %T", v, zero)
	}
	return t, nil
}

// PayloadError reports a response whose shape failed validation.
type PayloadError struct {
	Resource string
	Problems []string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("invalid %s payload: %s", e.Resource, strings.Join(e.Problems, "; "))
}
