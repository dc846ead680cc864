package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimiterWaitPacesSameHost(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 10, DefaultBurst: 1})
	ctx := context.Background()

	if err := l.Wait(ctx, "https://atcoder.jp/contests/abc001/submissions?page=1"); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := l.Wait(ctx, "https://atcoder.jp/contests/abc001/submissions?page=2"); err != nil {
		t.Fatal(err)
	}
	if dur := time.Since(start); dur < 80*time.Millisecond {
		t.Errorf("expected wait ~100ms, got %v", dur)
	}
}

func TestLimiterHostsAreIndependent(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 1, DefaultBurst: 1})
	ctx := context.Background()

	if err := l.Wait(ctx, "https://atcoder.jp/"); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := l.Wait(ctx, "https://kenkoooo.com/atcoder/resources/contests.json"); err != nil {
		t.Fatal(err)
	}
	if dur := time.Since(start); dur > 200*time.Millisecond {
		t.Errorf("expected a fresh bucket for a new host, waited %v", dur)
	}
}

func TestLimiterWaitHonorsContext(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 0.01, DefaultBurst: 1})
	if err := l.Wait(context.Background(), "https://atcoder.jp/"); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "https://atcoder.jp/")
	if err == nil {
		t.Fatal("expected error when context expires before a token")
	}
	if errors.Is(err, context.Canceled) {
		t.Fatalf("expected deadline style error, got %v", err)
	}
}

func TestLimiterUnlimited(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := l.Wait(context.Background(), "https://atcoder.jp/"); err != nil {
			t.Fatal(err)
		}
	}
	if dur := time.Since(start); dur > 100*time.Millisecond {
		t.Errorf("expected no pacing, took %v", dur)
	}
}

func TestHostOf(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://AtCoder.jp/contests": "atcoder.jp",
		"http://localhost:8080/x":     "localhost",
		"%%":                          "unknown",
		"":                            "unknown",
	}
	for in, want := range cases {
		if got := hostOf(in); got != want {
			t.Errorf("hostOf(%q) = %q, want %q", in, got, want)
		}
	}
}
