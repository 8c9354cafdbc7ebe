/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package lucid

import (
	"context"
	"log/slog"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/scribd/Lucid-sub001/entity"
	"github.com/scribd/Lucid-sub001/query"
)

// Subscription is a continuous observation of one logical query. The
// first emission is the current best-known result; every later emission
// reflects a mutation that changed the matching truth. Identical
// consecutive recomputations are suppressed, and emissions for a single
// subscription are strictly ordered.
type Subscription[E entity.Entity[E]] struct {
	id      uuid.UUID
	manager *CoreManager[E]
	q       query.Query
	rc      ReadContext[E]

	mu      sync.Mutex
	pending []query.Result[E]
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	out     chan query.Result[E]

	// last is the most recent emitted result; guarded by the manager's
	// critical section, not the subscription's own mutex.
	last    query.Result[E]
	hasLast bool
}

func newSubscription[E entity.Entity[E]](m *CoreManager[E], q query.Query, rc ReadContext[E]) *Subscription[E] {
	return &Subscription[E]{
		id:      uuid.New(),
		manager: m,
		q:       q,
		rc:      rc,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		out:     make(chan query.Result[E]),
	}
}

// Updates returns the delivery channel. It is closed after Dispose, once
// any already-queued emissions have been delivered or dropped.
func (s *Subscription[E]) Updates() <-chan query.Result[E] { return s.out }

// Dispose deregisters the subscription. Deregistration is synchronous
// with respect to the next mutation: once Dispose returns, no further
// emission is delivered. Any in-flight tier call shared with other
// observers keeps running; only delivery to this subscription stops.
func (s *Subscription[E]) Dispose() {
	s.manager.deregister(s.id)

	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	s.mu.Unlock()
}

// deliver queues an emission for the pump. Never blocks; called from the
// manager's critical section.
func (s *Subscription[E]) deliver(res query.Result[E]) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, res)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// emitLocked diffs a recomputed result against the last emission and
// delivers it when it differs. Caller holds the manager's critical
// section, which is what makes the dedup safe across mutations.
func (s *Subscription[E]) emitLocked(res query.Result[E]) {
	if s.hasLast && resultsEqual(s.last, res) {
		return
	}
	s.last = res
	s.hasLast = true
	s.deliver(res)
}

// pump moves queued emissions to the output channel in order.
func (s *Subscription[E]) pump() {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			batch := s.pending
			s.pending = nil
			s.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, res := range batch {
				select {
				case s.out <- res:
				case <-s.done:
					return
				}
			}
		}
	}
}

// Observe registers a continuous observation of the query. The read
// strategy runs asynchronously: the subscription first receives the
// current best-known result (two ordered emissions for LocalThen), then
// re-emissions on every mutation through this manager that changes the
// matching truth. The subscription is disposed when ctx is cancelled or
// Dispose is called.
func (m *CoreManager[E]) Observe(ctx context.Context, q query.Query, rc ReadContext[E]) *Subscription[E] {
	s := newSubscription(m, q, rc)

	m.mu.Lock()
	m.subs[s.id] = s
	m.mu.Unlock()

	go s.pump()

	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				s.Dispose()
			case <-s.done:
			}
		}()
	}

	go func() {
		_, err := m.execute(ctx, q, rc, func(res query.Result[E]) {
			m.mu.Lock()
			if _, live := m.subs[s.id]; live {
				s.emitLocked(res)
			}
			m.mu.Unlock()
		})
		if err != nil {
			m.logger.Warn("continuous observation initial read failed",
				slog.String("source", rc.Source.String()),
				slog.Any("error", err))
		}
	}()

	return s
}

func (m *CoreManager[E]) deregister(id uuid.UUID) {
	m.mu.Lock()
	delete(m.subs, id)
	m.mu.Unlock()
}

// notifyLocked re-evaluates every live continuous query against the
// updated local truth and emits where the recomputed result differs from
// the last emission. Caller holds the manager's critical section.
func (m *CoreManager[E]) notifyLocked(ctx context.Context) {
	if len(m.subs) == 0 {
		return
	}
	for _, s := range m.subs {
		scan := s.q
		scan.Orders = withoutNatural(scan.Orders)
		res, err := m.local.Search(ctx, scan)
		if err != nil {
			m.logger.Warn("subscription re-evaluation failed", slog.Any("error", err))
			continue
		}
		s.emitLocked(filterResult(res, s.q, s.rc.Contract))
	}
}

// withoutNatural strips natural markers so re-evaluation scans the local
// truth instead of routing to the authoritative tier.
func withoutNatural(orders []query.Order) []query.Order {
	kept := make([]query.Order, 0, len(orders))
	for _, o := range orders {
		if !o.IsNatural() {
			kept = append(kept, o)
		}
	}
	return kept
}

// resultsEqual compares two results by identifier sequence and entity
// values. Metadata changes alone never count as a difference.
func resultsEqual[E entity.Entity[E]](a, b query.Result[E]) bool {
	if len(a.Entities) != len(b.Entities) {
		return false
	}
	for i := range a.Entities {
		if a.Entities[i].EntityIdentifier() != b.Entities[i].EntityIdentifier() {
			return false
		}
		if !reflect.DeepEqual(a.Entities[i], b.Entities[i]) {
			return false
		}
	}
	return true
}
