package store

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

var (
	errClosed         = errors.New("store closed")
	errNotInitialized = errors.New("store not initialized")
)

// lazyHandle guards a connection handle that is opened on first use.
// Concurrent openers share one attempt; a failed attempt leaves the handle
// unset so the next caller retries.
type lazyHandle[T any] struct {
	open  func(ctx context.Context) (T, error)
	close func(T) error

	group  singleflight.Group
	mu     sync.RWMutex
	value  T
	ready  bool
	closed bool
}

func (h *lazyHandle[T]) current() (T, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var zero T
	if h.closed {
		return zero, errClosed
	}
	if !h.ready {
		return zero, errNotInitialized
	}
	return h.value, nil
}

func (h *lazyHandle[T]) init(ctx context.Context) error {
	if _, err := h.current(); !errors.Is(err, errNotInitialized) {
		return err
	}
	_, err, _ := h.group.Do("init", func() (any, error) {
		if _, err := h.current(); !errors.Is(err, errNotInitialized) {
			return nil, err
		}
		// the shared attempt must not fail because one caller went away
		value, err := h.open(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.closed {
			_ = h.close(value)
			return nil, errClosed
		}
		h.value, h.ready = value, true
		return nil, nil
	})
	return err
}

func (h *lazyHandle[T]) get(ctx context.Context) (T, error) {
	if value, err := h.current(); !errors.Is(err, errNotInitialized) {
		return value, err
	}
	if err := h.init(ctx); err != nil {
		var zero T
		return zero, err
	}
	return h.current()
}

func (h *lazyHandle[T]) shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	if !h.ready {
		return nil
	}
	var zero T
	err := h.close(h.value)
	h.value, h.ready = zero, false
	return err
}
