package checker

import (
	"context"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/ankityadav/upwatch/internal/probe"
)

type registration struct {
	entryID cron.EntryID
	plan    *probe.Plan
}

// Registry maps target ids to their timer and compiled plan, and owns the
// per-target single-flight slots. A slot outlives its registration while a
// check holds it, so a tick still running for a replaced timer keeps
// excluding the new one; an idle slot with no registration is dropped.
type Registry struct {
	mu      sync.RWMutex
	entries map[uint]registration
	slots   map[uint]chan struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[uint]registration),
		slots:   make(map[uint]chan struct{}),
	}
}

func (r *Registry) get(id uint) (registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[id]
	return reg, ok
}

// put stores reg and returns the registration it replaced, if any.
func (r *Registry) put(id uint, reg registration) (registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.entries[id]
	r.entries[id] = reg
	return old, ok
}

func (r *Registry) remove(id uint) (registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.entries[id]
	delete(r.entries, id)
	r.dropIdle(id)
	return old, ok
}

func (r *Registry) Has(id uint) bool {
	_, ok := r.get(id)
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// IDs returns the scheduled target ids in ascending order.
func (r *Registry) IDs() []uint {
	r.mu.RLock()
	ids := make([]uint, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// slot returns the target's semaphore, creating it if needed. r.mu is held.
func (r *Registry) slot(id uint) chan struct{} {
	s, ok := r.slots[id]
	if !ok {
		s = make(chan struct{}, 1)
		r.slots[id] = s
	}
	return s
}

// dropIdle forgets the slot of an unregistered target nobody holds. r.mu is
// held.
func (r *Registry) dropIdle(id uint) {
	if _, ok := r.entries[id]; ok {
		return
	}
	if s, ok := r.slots[id]; ok && len(s) == 0 {
		delete(r.slots, id)
	}
}

func (r *Registry) releaser(id uint, s chan struct{}) func() {
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		<-s
		r.dropIdle(id)
	}
}

// tryAcquire takes the target's slot without waiting.
func (r *Registry) tryAcquire(id uint) (func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.slot(id)
	select {
	case s <- struct{}{}:
		return r.releaser(id, s), true
	default:
		return nil, false
	}
}

// acquire waits for the target's slot until ctx is done. A slot dropped while
// we waited on it is given back and the wait starts over on the new one.
func (r *Registry) acquire(ctx context.Context, id uint) (func(), error) {
	for {
		r.mu.Lock()
		s := r.slot(id)
		r.mu.Unlock()

		select {
		case s <- struct{}{}:
		case <-ctx.Done():
			r.mu.Lock()
			r.dropIdle(id)
			r.mu.Unlock()
			return nil, ctx.Err()
		}

		r.mu.Lock()
		if r.slots[id] == s {
			r.mu.Unlock()
			return r.releaser(id, s), nil
		}
		r.mu.Unlock()
		<-s
	}
}

func (r *Registry) slotCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}
