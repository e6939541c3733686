// Package lock serializes deployments per environment. A lock is a single
// JSON record in the durable store; presence means held, absence means
// free. There is no timeout or forced expiry: a stuck lock is released by
// an operator, a deliberate tradeoff of liveness for safety.
package lock

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/samasrinivas/kafkautomation/errors"
	"github.com/samasrinivas/kafkautomation/store"
)

// RecordName is the lock file name within an environment's catalog directory.
const RecordName = ".lock"

// KeyFor returns the store key of an environment's lock record.
func KeyFor(environment string) string {
	return path.Join("catalogs", environment, RecordName)
}

// Record is the durable lock token.
type Record struct {
	Environment string    `json:"environment"`
	Holder      string    `json:"holder"`
	AcquiredAt  time.Time `json:"acquired_at"`
}

// Manager acquires and releases environment locks on top of any store with
// atomic create-if-absent semantics.
type Manager struct {
	store store.Store
	now   func() time.Time
}

// NewManager creates a Manager over the given store.
func NewManager(s store.Store) *Manager {
	return &Manager{store: s, now: time.Now}
}

// Acquire takes the environment lock for holder. The write is a
// conditional create: if any lock record exists, including one created by
// a concurrent run racing this one, Acquire fails with ALREADY_LOCKED
// naming the existing holder.
func (m *Manager) Acquire(ctx context.Context, environment, holder string) (*Record, error) {
	rec := &Record{
		Environment: environment,
		Holder:      holder,
		AcquiredAt:  m.now().UTC(),
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encoding lock record")
	}

	err = m.store.Create(ctx, KeyFor(environment), data,
		fmt.Sprintf("lock %s for %s", environment, holder))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, store.ErrKeyExists) {
		return nil, errors.Wrapf(err, errors.CodeIO, "acquiring lock for environment %q", environment)
	}

	existing, holderErr := m.Holder(ctx, environment)
	lockErr := errors.Newf(errors.CodeAlreadyLocked,
		"environment %q is locked", environment).
		WithContext("environment", environment)
	if holderErr == nil && existing != nil {
		lockErr = lockErr.
			WithContext("holder", existing.Holder).
			WithContext("acquired_at", existing.AcquiredAt.Format(time.RFC3339))
	}
	return nil, lockErr
}

// Release frees the environment lock. Idempotent: releasing an absent
// lock succeeds, so cleanup can run unconditionally on every exit path.
func (m *Manager) Release(ctx context.Context, environment string) error {
	err := m.store.Delete(ctx, KeyFor(environment),
		fmt.Sprintf("unlock %s", environment))
	if err != nil {
		return errors.Wrapf(err, errors.CodeIO, "releasing lock for environment %q", environment)
	}
	return nil
}

// Holder returns the current lock record, or nil when the environment is free.
func (m *Manager) Holder(ctx context.Context, environment string) (*Record, error) {
	data, err := m.store.Read(ctx, KeyFor(environment))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "reading lock for environment %q", environment)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrapf(err, errors.CodeMalformedDeclaration,
			"lock record for environment %q is unreadable", environment)
	}
	return &rec, nil
}
