package worker

import (
	"context"
	"testing"
	"time"
)

func TestNewLimiter(t *testing.T) {
	if l := NewLimiter(10, 5); l.burst != 5 {
		t.Errorf("expected burst 5, got %d", l.burst)
	}
	if l := NewLimiter(10, -1); l.burst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l.burst)
	}
}

func TestLimiter_LocalSourcesUnlimited(t *testing.T) {
	l := NewLimiter(0.001, 1)
	for i := 0; i < 10; i++ {
		if !l.Allow("transcripts/call.txt") {
			t.Fatal("expected local file to be unlimited")
		}
		if err := l.Wait(context.Background(), "-"); err != nil {
			t.Fatalf("Wait stdin: %v", err)
		}
	}
}

func TestLimiter_PerHost(t *testing.T) {
	l := NewLimiter(0.001, 1)

	if !l.Allow("https://a.example.com/1") {
		t.Error("expected first request to a host to be allowed")
	}
	if l.Allow("https://a.example.com/2") {
		t.Error("expected burst of 1 to be exhausted")
	}
	if !l.Allow("https://b.example.com/1") {
		t.Error("expected other hosts to have their own budget")
	}
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := NewLimiter(0.001, 1)
	_ = l.Allow("https://a.example.com/1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "https://a.example.com/2"); err == nil {
		t.Error("expected Wait to fail once the budget cannot be met before the deadline")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !l.Allow("https://a.example.com/x") {
			t.Fatal("expected unlimited when rate is 0")
		}
	}
}

func TestLimiter_SlowHost(t *testing.T) {
	l := NewLimiter(100, 10)
	l.SlowHost("a.example.com", time.Hour)

	if !l.Allow("https://a.example.com/1") {
		t.Error("expected first request allowed")
	}
	if l.Allow("https://a.example.com/2") {
		t.Error("expected crawl delay to block the second request")
	}
	l.SlowHost("a.example.com", 0)
	if l.Allow("https://a.example.com/3") {
		t.Error("expected zero interval to be ignored")
	}
}
