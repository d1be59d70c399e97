// Package store persists in-progress form snapshots to a key-value store
// behind a capability interface with explicit results. Store failures never
// reach callers: every operation degrades to a no-op and logs a warning.
package store

import (
	"encoding/json"
	"log/slog"
)

// Namespace is the fixed key prefix owned by the persistence adapter.
const Namespace = "scoreform:v1"

// KV is the minimal get/set/remove contract the adapter depends on.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Source exposes the field values the adapter snapshots. *session.Session
// satisfies it.
type Source interface {
	Values() map[string]string
}

// Option customises the adapter.
type Option func(*Adapter)

// WithLogger overrides the logger used for degradation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithKeySuffix scopes the snapshot key to one session, keeping concurrent
// sessions from overwriting each other's snapshots.
func WithKeySuffix(suffix string) Option {
	return func(a *Adapter) {
		if suffix != "" {
			a.key = Namespace + ":" + suffix
		}
	}
}

// Adapter owns all reads and writes of the persisted snapshot. No other
// component touches the underlying store directly.
type Adapter struct {
	kv     KV
	key    string
	logger *slog.Logger
}

// New constructs an adapter writing under the fixed namespace key.
func New(kv KV, options ...Option) *Adapter {
	a := &Adapter{
		kv:     kv,
		key:    Namespace,
		logger: slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(a)
	}
	return a
}

// Key returns the snapshot key this adapter writes under.
func (a *Adapter) Key() string {
	return a.key
}

// Save writes the full current field map under the namespace key. Store
// failures are logged and swallowed.
func (a *Adapter) Save(src Source) {
	if a.kv == nil || src == nil {
		return
	}
	payload, err := json.Marshal(src.Values())
	if err != nil {
		a.logger.Warn("store: encode snapshot", "key", a.key, "error", err)
		return
	}
	if err := a.kv.Set(a.key, payload); err != nil {
		a.logger.Warn("store: save snapshot unavailable", "key", a.key, "error", err)
	}
}

// Load reads the snapshot once at session start. The second return is false
// when no snapshot exists or the store is unavailable.
func (a *Adapter) Load() (map[string]string, bool) {
	if a.kv == nil {
		return nil, false
	}
	payload, found, err := a.kv.Get(a.key)
	if err != nil {
		a.logger.Warn("store: load snapshot unavailable", "key", a.key, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	var values map[string]string
	if err := json.Unmarshal(payload, &values); err != nil {
		a.logger.Warn("store: decode snapshot", "key", a.key, "error", err)
		return nil, false
	}
	return values, true
}

// Clear removes the snapshot. Clearing an already-empty store is not an
// error; it is invoked exactly once after a confirmed successful submission.
func (a *Adapter) Clear() {
	if a.kv == nil {
		return
	}
	if err := a.kv.Delete(a.key); err != nil {
		a.logger.Warn("store: clear snapshot unavailable", "key", a.key, "error", err)
	}
}
