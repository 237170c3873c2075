package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestAdmitSlidingWindowEvictsOldEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	repo := NewRateRepo(client)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	members := []string{"a", "b", "c"}

	for i, member := range members[:2] {
		res, err := repo.AdmitSlidingWindow(ctx, "rate:test:u1", member, start.Add(time.Duration(i)*10*time.Second), time.Minute, 2)
		if err != nil {
			t.Fatalf("admit %s: %v", member, err)
		}
		if !res.Allowed || res.Count != int64(i+1) {
			t.Fatalf("unexpected admit result for %s: %+v", member, res)
		}
	}

	denied, err := repo.AdmitSlidingWindow(ctx, "rate:test:u1", "c", start.Add(30*time.Second), time.Minute, 2)
	if err != nil {
		t.Fatalf("admit c: %v", err)
	}
	if denied.Allowed {
		t.Fatalf("expected third request to be denied")
	}
	if denied.RetryAfter != 30*time.Second {
		t.Fatalf("expected retry after oldest entry leaves, got %s", denied.RetryAfter)
	}

	count, err := client.ZCard(ctx, "rate:test:u1").Result()
	if err != nil {
		t.Fatalf("window size: %v", err)
	}
	if count != 2 {
		t.Fatalf("denied request must not be recorded, count=%d", count)
	}

	// first entry slides out, second is still inside the window
	res, err := repo.AdmitSlidingWindow(ctx, "rate:test:u1", "d", start.Add(61*time.Second), time.Minute, 2)
	if err != nil {
		t.Fatalf("admit d: %v", err)
	}
	if !res.Allowed || res.Count != 2 {
		t.Fatalf("expected admission after eviction, got %+v", res)
	}
}

func TestAdmitSlidingWindowSetsTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	repo := NewRateRepo(client)
	if _, err := repo.AdmitSlidingWindow(context.Background(), "rate:ttl:u1", "m1", time.Now(), 10*time.Second, 5); err != nil {
		t.Fatalf("admit: %v", err)
	}

	if ttl := mr.TTL("rate:ttl:u1"); ttl <= 0 || ttl > 10*time.Second {
		t.Fatalf("unexpected ttl %s", ttl)
	}

	mr.FastForward(11 * time.Second)
	if mr.Exists("rate:ttl:u1") {
		t.Fatalf("expected window key to expire with the window")
	}
}

func TestAdmitSlidingWindowRejectsBadInput(t *testing.T) {
	repo := NewRateRepo(nil)
	if _, err := repo.AdmitSlidingWindow(context.Background(), "k", "m", time.Now(), time.Second, 1); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
