package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, ttl time.Duration) (*ProcessedStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewProcessedStore(rdb, ttl), mr
}

func TestProcessedStore(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	processed, err := store.AlreadyProcessed(ctx, "lineworks", "evt-1")
	if err != nil || processed {
		t.Fatalf("unseen event: processed=%v err=%v", processed, err)
	}

	ok, err := store.MarkProcessed(ctx, "lineworks", "evt-1")
	if err != nil || !ok {
		t.Fatalf("first mark: ok=%v err=%v", ok, err)
	}

	processed, err = store.AlreadyProcessed(ctx, "lineworks", "evt-1")
	if err != nil || !processed {
		t.Fatalf("seen event: processed=%v err=%v", processed, err)
	}

	// Second mark reports the duplicate.
	ok, err = store.MarkProcessed(ctx, "lineworks", "evt-1")
	if err != nil || ok {
		t.Fatalf("second mark: ok=%v err=%v", ok, err)
	}

	// Same id under a different provider is independent.
	processed, err = store.AlreadyProcessed(ctx, "other", "evt-1")
	if err != nil || processed {
		t.Fatalf("cross-provider: processed=%v err=%v", processed, err)
	}
}

func TestProcessedStoreTTL(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	if _, err := store.MarkProcessed(ctx, "lineworks", "evt-ttl"); err != nil {
		t.Fatal(err)
	}

	mr.FastForward(2 * time.Minute)

	processed, err := store.AlreadyProcessed(ctx, "lineworks", "evt-ttl")
	if err != nil {
		t.Fatal(err)
	}
	if processed {
		t.Error("entry should have expired")
	}
}
