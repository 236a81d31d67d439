package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// mockResult implements Result
type mockResult struct {
	id  int
	err error
}

func (r *mockResult) Err() error { return r.err }

// mockJob implements Job
type mockJob struct {
	id       int
	duration time.Duration
	fail     bool
	running  *atomic.Int32
	peak     *atomic.Int32
}

func (j *mockJob) Execute(ctx context.Context) Result {
	if j.running != nil {
		n := j.running.Add(1)
		defer j.running.Add(-1)
		for {
			p := j.peak.Load()
			if n <= p || j.peak.CompareAndSwap(p, n) {
				break
			}
		}
	}
	if j.duration > 0 {
		select {
		case <-time.After(j.duration):
		case <-ctx.Done():
			return &mockResult{id: j.id, err: ctx.Err()}
		}
	}
	if j.fail {
		return &mockResult{id: j.id, err: errors.New("job error")}
	}
	return &mockResult{id: j.id}
}

func TestNewPool(t *testing.T) {
	if NewPool(5).Workers() != 5 {
		t.Errorf("expected 5 workers")
	}
	if NewPool(0).Workers() != 1 {
		t.Errorf("expected minimum of 1 worker")
	}
	if NewPool(-3).Workers() != 1 {
		t.Errorf("expected minimum of 1 worker for negative input")
	}
}

func TestPool_RunKeepsOrder(t *testing.T) {
	jobs := make([]Job, 20)
	for i := range jobs {
		// Later jobs finish first
		jobs[i] = &mockJob{id: i, duration: time.Duration(20-i) * time.Millisecond, fail: i%5 == 0}
	}

	results := NewPool(4).Run(context.Background(), jobs)
	if len(results) != 20 {
		t.Fatalf("expected 20 results, got %d", len(results))
	}
	for i, r := range results {
		mr := r.(*mockResult)
		if mr.id != i {
			t.Errorf("result %d has id %d", i, mr.id)
		}
		if (mr.err != nil) != (i%5 == 0) {
			t.Errorf("result %d: unexpected error state %v", i, mr.err)
		}
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	jobs := make([]Job, 50)
	for i := range jobs {
		jobs[i] = &mockJob{id: i, duration: 5 * time.Millisecond, running: &running, peak: &peak}
	}

	NewPool(3).Run(context.Background(), jobs)
	if peak.Load() > 3 {
		t.Errorf("expected at most 3 concurrent jobs, saw %d", peak.Load())
	}
	if peak.Load() < 2 {
		t.Errorf("expected jobs to overlap, peak %d", peak.Load())
	}
}

func TestPool_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []Job{&mockJob{id: 0, duration: time.Second}, &mockJob{id: 1, duration: time.Second}}
	start := time.Now()
	results := NewPool(1).Run(ctx, jobs)

	if time.Since(start) > 500*time.Millisecond {
		t.Error("expected cancelled run to return promptly")
	}
	for _, r := range results {
		if !errors.Is(r.Err(), context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", r.Err())
		}
	}
}

func TestPool_Empty(t *testing.T) {
	if got := NewPool(2).Run(context.Background(), nil); len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
}
