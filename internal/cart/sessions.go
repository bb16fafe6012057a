package cart

import (
	"context"
	"errors"
	"strings"
	"sync"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// Sessions hands out the cart of a browsing session. Calls for the same
// session are serialized, so each Store sees a single writer.
type Sessions struct {
	snapshots SnapshotStore
	logg      *logger.Logger
	locks     *keyedMutex
}

func NewSessions(snapshots SnapshotStore, logg *logger.Logger) (*Sessions, error) {
	if snapshots == nil {
		return nil, errors.New("snapshot store required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Sessions{
		snapshots: snapshots,
		logg:      logg,
		locks:     newKeyedMutex(),
	}, nil
}

// With loads the session's cart and runs fn with exclusive access to it.
func (s *Sessions) With(ctx context.Context, sessionID string, notifier Notifier, fn func(*Store) error) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	store, err := s.open(ctx, sessionID, notifier)
	if err != nil {
		return err
	}
	return fn(store)
}

func (s *Sessions) open(ctx context.Context, sessionID string, notifier Notifier) (*Store, error) {
	data, err := s.snapshots.Load(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart could not be loaded")
	}

	var lines []Line
	if len(data) > 0 {
		lines, err = decodeLines(data)
		if err != nil {
			// A corrupt snapshot is dropped; the next mutation overwrites it.
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"session_id": sessionID,
				"reason":     err.Error(),
			}), "ignoring malformed cart snapshot")
			lines = nil
		}
	}
	return newStore(sessionID, lines, s.snapshots, notifier), nil
}

// keyedMutex is a set of mutexes created on demand and dropped when unused.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[string]*keyedEntry)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyedEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
