/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package queue

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/scribd/Lucid-sub001/errors"
)

func fastPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	p.Backoff = time.Millisecond
	return p
}

func await(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for request outcome")
		return nil
	}
}

func TestQueueRunsConcurrentRequests(t *testing.T) {
	q := New()
	defer q.Close()

	var calls int32
	req := NewRequest("fetch", Concurrent, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	if err := await(t, q.Enqueue(context.Background(), req)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected exactly one call, got %d", calls)
	}
}

func TestQueueBarrierOrdering(t *testing.T) {
	q := New()
	defer q.Close()

	var mu sync.Mutex
	var order []int
	block := make(chan struct{})

	first := NewRequest("first", Barrier, func(ctx context.Context) error {
		<-block
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
		return nil
	})
	second := NewRequest("second", Barrier, func(ctx context.Context) error {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		return nil
	})

	ch1 := q.Enqueue(context.Background(), first)
	ch2 := q.Enqueue(context.Background(), second)
	close(block)

	if err := await(t, ch1); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	if err := await(t, ch2); err != nil {
		t.Fatalf("second request failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("barrier requests ran out of order: %v", order)
	}
}

func TestQueueRetries(t *testing.T) {
	t.Run("network interrupt retries until success", func(t *testing.T) {
		q := New()
		defer q.Close()

		var attempts int32
		req := NewRequest("flaky", Concurrent, func(ctx context.Context) error {
			if atomic.AddInt32(&attempts, 1) < 3 {
				return errors.NewNetworkError(stderrors.New("connection reset"))
			}
			return nil
		})
		req.Policy = fastPolicy()

		if err := await(t, q.Enqueue(context.Background(), req)); err != nil {
			t.Fatalf("expected eventual success, got %v", err)
		}
		if atomic.LoadInt32(&attempts) != 3 {
			t.Errorf("expected 3 attempts, got %d", attempts)
		}
	})

	t.Run("non-retryable failure is final", func(t *testing.T) {
		q := New()
		defer q.Close()

		var attempts int32
		req := NewRequest("rejected", Concurrent, func(ctx context.Context) error {
			atomic.AddInt32(&attempts, 1)
			return errors.NewStatusError(403)
		})
		req.Policy = fastPolicy()

		err := await(t, q.Enqueue(context.Background(), req))
		apiErr, ok := errors.AsAPIError(err)
		if !ok || apiErr.StatusCode != 403 {
			t.Fatalf("expected the 403 to surface, got %v", err)
		}
		if atomic.LoadInt32(&attempts) != 1 {
			t.Errorf("expected a single attempt, got %d", attempts)
		}
	})

	t.Run("attempts are bounded", func(t *testing.T) {
		q := New()
		defer q.Close()

		var attempts int32
		req := NewRequest("down", Concurrent, func(ctx context.Context) error {
			atomic.AddInt32(&attempts, 1)
			return errors.NewTimeoutError(stderrors.New("deadline"))
		})
		req.Policy = fastPolicy()

		if err := await(t, q.Enqueue(context.Background(), req)); err == nil {
			t.Fatal("expected the final failure to surface")
		}
		if got := atomic.LoadInt32(&attempts); got != 3 {
			t.Errorf("expected MaxAttempts attempts, got %d", got)
		}
	})

	t.Run("custom status codes are retryable", func(t *testing.T) {
		p := fastPolicy()
		p.StatusCodes = []int{429}
		if !p.IsRetryable(errors.NewStatusError(429)) {
			t.Error("listed status code not retryable")
		}
		if p.IsRetryable(errors.NewStatusError(500)) {
			t.Error("unlisted status code retryable")
		}
		if p.IsRetryable(stderrors.New("not an api error")) {
			t.Error("non-transport error retryable")
		}
	})
}

func TestQueueCloseRejectsNewRequests(t *testing.T) {
	q := New()
	q.Close()

	err := await(t, q.Enqueue(context.Background(), NewRequest("late", Concurrent,
		func(ctx context.Context) error { return nil })))
	if !errors.IsNotSupported(err) {
		t.Errorf("expected enqueue after close to fail, got %v", err)
	}
}

func TestQueueCloseDuringEnqueue(t *testing.T) {
	q := New()

	const n = 32
	results := make(chan (<-chan error), n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- q.Enqueue(context.Background(), NewRequest("mutate", Barrier,
				func(ctx context.Context) error { return nil }))
		}()
	}
	q.Close()
	wg.Wait()
	close(results)

	// Every request either ran before the close or was rejected; racing
	// Close with Enqueue must never panic or drop an outcome.
	for ch := range results {
		if err := await(t, ch); err != nil && !errors.IsNotSupported(err) {
			t.Errorf("unexpected outcome: %v", err)
		}
	}
}

func TestFileJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")
	j := NewFileJournal(path)

	entry := Entry{ID: uuid.New(), Label: "sync documents", Barrier: true, EnqueuedAt: time.Now().UTC()}

	t.Run("empty journal has no pending entries", func(t *testing.T) {
		pending, err := j.Pending()
		if err != nil || len(pending) != 0 {
			t.Errorf("expected no pending entries, got (%v, %v)", pending, err)
		}
	})

	t.Run("record then read back", func(t *testing.T) {
		if err := j.Record(entry); err != nil {
			t.Fatalf("record failed: %v", err)
		}
		pending, err := j.Pending()
		if err != nil {
			t.Fatalf("pending failed: %v", err)
		}
		if len(pending) != 1 || pending[0].ID != entry.ID || pending[0].Label != entry.Label {
			t.Errorf("unexpected pending entries: %v", pending)
		}
	})

	t.Run("clear with wrong id is a no-op", func(t *testing.T) {
		if err := j.Clear(uuid.New()); err != nil {
			t.Fatalf("clear failed: %v", err)
		}
		pending, _ := j.Pending()
		if len(pending) != 1 {
			t.Error("entry cleared by a mismatched id")
		}
	})

	t.Run("clear removes the entry", func(t *testing.T) {
		if err := j.Clear(entry.ID); err != nil {
			t.Fatalf("clear failed: %v", err)
		}
		pending, err := j.Pending()
		if err != nil || len(pending) != 0 {
			t.Errorf("expected an empty journal, got (%v, %v)", pending, err)
		}
	})
}

func TestQueueJournalLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")

	t.Run("completed request leaves no journal entry", func(t *testing.T) {
		q := New(WithJournal(NewFileJournal(path)))
		defer q.Close()

		req := NewRequest("sync", Barrier, func(ctx context.Context) error { return nil })
		if err := await(t, q.Enqueue(context.Background(), req)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		pending, err := NewFileJournal(path).Pending()
		if err != nil || len(pending) != 0 {
			t.Errorf("expected the journal cleared after completion, got (%v, %v)", pending, err)
		}
	})

	t.Run("journal slot passes to the next pending request", func(t *testing.T) {
		j := NewFileJournal(filepath.Join(t.TempDir(), "pending.json"))
		q := New(WithJournal(j))
		defer q.Close()

		releaseFirst := make(chan struct{})
		releaseSecond := make(chan struct{})
		ch1 := q.Enqueue(context.Background(), NewRequest("first", Barrier,
			func(ctx context.Context) error { <-releaseFirst; return nil }))
		ch2 := q.Enqueue(context.Background(), NewRequest("second", Barrier,
			func(ctx context.Context) error { <-releaseSecond; return nil }))

		close(releaseFirst)
		if err := await(t, ch1); err != nil {
			t.Fatalf("first request failed: %v", err)
		}

		// A crash between the two completions must still find the second
		// request in the journal.
		pending, err := j.Pending()
		if err != nil {
			t.Fatalf("pending failed: %v", err)
		}
		if len(pending) != 1 || pending[0].Label != "second" {
			t.Errorf("expected the second request journaled, got %v", pending)
		}

		close(releaseSecond)
		if err := await(t, ch2); err != nil {
			t.Fatalf("second request failed: %v", err)
		}
		pending, err = j.Pending()
		if err != nil || len(pending) != 0 {
			t.Errorf("expected the journal cleared, got (%v, %v)", pending, err)
		}
	})

	t.Run("interrupted request is restored on the next start", func(t *testing.T) {
		// Simulate a crash mid-request by journaling without completing.
		j := NewFileJournal(path)
		entry := Entry{ID: uuid.New(), Label: "sync documents", EnqueuedAt: time.Now().UTC()}
		if err := j.Record(entry); err != nil {
			t.Fatalf("record failed: %v", err)
		}

		q := New(WithJournal(NewFileJournal(path)))
		defer q.Close()

		restored := q.Restored()
		if len(restored) != 1 || restored[0].Label != "sync documents" {
			t.Errorf("expected the journaled request restored, got %v", restored)
		}
	})
}
