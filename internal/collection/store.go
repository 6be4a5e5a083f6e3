// Package collection mirrors a server-side collection in memory.
//
// A Store keeps the last successfully fetched records and applies successful
// mutations to them locally. Operations report a bool and leave a
// human-readable message in Err; they never return errors. Without a session
// token an operation fails with "authentication required" and makes no
// network call.
package collection

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/cjl-github/chiwen/internal/errors"
	"github.com/cjl-github/chiwen/internal/log"
)

// Backend is the remote side of a collection.
type Backend[T any] interface {
	List(ctx context.Context, token string) ([]T, error)
	Delete(ctx context.Context, token, id string) error
	UpdateMetadata(ctx context.Context, token, id string, fields map[string]string) error
}

// TokenSource supplies the current bearer token, "" when anonymous.
type TokenSource interface {
	Token() string
}

// Options configures a Store.
type Options[T any] struct {
	// Name keys fetch de-duplication and tags log records.
	Name string
	// ID returns a record's identity. Required.
	ID func(T) string
	// Patch returns item with its metadata replaced by fields. When nil a
	// successful UpdateMetadata leaves the local record alone.
	Patch func(item T, fields map[string]string) T
	// Logger defaults to a discarding logger.
	Logger *log.Logger
}

// Store is an in-memory mirror of one remote collection.
//
// Concurrent FetchAll calls share a single request. Remove and
// UpdateMetadata are serialized against each other. Loading stays true
// while any operation is in flight.
type Store[T any] struct {
	backend Backend[T]
	tokens  TokenSource
	name    string
	id      func(T) string
	patch   func(T, map[string]string) T
	log     *log.Logger

	fetches singleflight.Group
	mutate  sync.Mutex

	mu       sync.RWMutex
	items    []T
	err      error
	inflight int
}

// New creates an empty store.
func New[T any](backend Backend[T], tokens TokenSource, opts Options[T]) *Store[T] {
	if opts.ID == nil {
		panic("collection: Options.ID is required")
	}
	if opts.Name == "" {
		opts.Name = "collection"
	}
	return &Store[T]{
		backend: backend,
		tokens:  tokens,
		name:    opts.Name,
		id:      opts.ID,
		patch:   opts.Patch,
		log:     log.OrDiscard(opts.Logger).With("component", "collection", "collection", opts.Name),
		items:   []T{},
	}
}

// FetchAll reloads the collection. On success the records are replaced
// wholesale, in server order, and Err is cleared. On failure the previous
// records are kept and Err describes the failure.
//
// Calls made while a fetch is already running join it and share its
// outcome. The shared request is not bound to any one caller's context; a
// caller whose context ends first returns false without waiting, and the
// request itself is bounded by the transport timeout.
func (s *Store[T]) FetchAll(ctx context.Context) bool {
	token, ok := s.token()
	if !ok {
		return false
	}

	shared := context.WithoutCancel(ctx)
	ch := s.fetches.DoChan(s.name, func() (any, error) {
		s.begin()
		defer s.end()

		items, err := s.backend.List(shared, token)
		if err != nil {
			s.fail(shared, "fetch failed", err)
			return nil, err
		}
		if items == nil {
			items = []T{}
		}

		s.mu.Lock()
		s.items = items
		s.err = nil
		s.mu.Unlock()

		s.log.DebugContext(shared, "collection fetched", "count", len(items))
		return nil, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.log.DebugContext(ctx, "fetch shared with an in-flight call")
		}
		return res.Err == nil
	case <-ctx.Done():
		s.fail(ctx, "fetch abandoned", ctx.Err())
		return false
	}
}

// Remove deletes the record with id. On success the matching local record
// is dropped; an id that is not held locally is not an error. On failure
// the records are untouched.
func (s *Store[T]) Remove(ctx context.Context, id string) bool {
	token, ok := s.token()
	if !ok {
		return false
	}

	s.mutate.Lock()
	defer s.mutate.Unlock()
	s.begin()
	defer s.end()

	if err := s.backend.Delete(ctx, token, id); err != nil {
		s.fail(ctx, "remove failed", err, "id", id)
		return false
	}

	s.mu.Lock()
	kept := s.items[:0:0]
	for _, item := range s.items {
		if s.id(item) != id {
			kept = append(kept, item)
		}
	}
	removed := len(s.items) - len(kept)
	s.items = kept
	s.err = nil
	s.mu.Unlock()

	s.log.InfoContext(ctx, "record removed", "id", id, "local_matches", removed)
	return true
}

// UpdateMetadata sends fields as the new metadata of the record with id.
// On success the matching local record is patched; on failure nothing
// changes locally.
func (s *Store[T]) UpdateMetadata(ctx context.Context, id string, fields map[string]string) bool {
	token, ok := s.token()
	if !ok {
		return false
	}

	s.mutate.Lock()
	defer s.mutate.Unlock()
	s.begin()
	defer s.end()

	if err := s.backend.UpdateMetadata(ctx, token, id, fields); err != nil {
		s.fail(ctx, "update failed", err, "id", id)
		return false
	}

	s.mu.Lock()
	if s.patch != nil {
		for i, item := range s.items {
			if s.id(item) == id {
				s.items[i] = s.patch(item, copyFields(fields))
			}
		}
	}
	s.err = nil
	s.mu.Unlock()

	s.log.InfoContext(ctx, "record metadata updated", "id", id, "fields", len(fields))
	return true
}

// Items returns a copy of the records in server order.
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the record with id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if s.id(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of records held.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Loading reports whether any operation is in flight.
func (s *Store[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// Err returns the message left by the most recent operation, "" when it
// succeeded.
func (s *Store[T]) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return errors.Message(s.err)
}

// LastError returns the error behind Err, or nil.
func (s *Store[T]) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store[T]) token() (string, bool) {
	var token string
	if s.tokens != nil {
		token = s.tokens.Token()
	}
	if token == "" {
		s.mu.Lock()
		s.err = errors.NewAuthRequiredError()
		s.mu.Unlock()
		return "", false
	}
	return token, true
}

func (s *Store[T]) begin() {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
}

func (s *Store[T]) end() {
	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
}

func (s *Store[T]) fail(ctx context.Context, msg string, err error, args ...any) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.log.WithError(err).WarnContext(ctx, msg, args...)
}

func copyFields(fields map[string]string) map[string]string {
	if fields == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
