package redisad_test

import (
	"context"
	"testing"
	"time"

	redisad "openstays_catalog/internal/adapters/redis"
)

type entry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestCache_RoundTripAndExpiry(t *testing.T) {
	mr, c := newClient(t)
	cache := redisad.NewCache(c)
	ctx := context.Background()

	var got entry
	if ok, err := cache.Get(ctx, "property:p1", &got); ok || err != nil {
		t.Fatalf("expected miss, got %v %v", ok, err)
	}
	if err := cache.Set(ctx, "property:p1", entry{ID: "p1", Title: "Villa"}, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ok, err := cache.Get(ctx, "property:p1", &got); !ok || err != nil || got.Title != "Villa" {
		t.Fatalf("expected hit, got %v %v %+v", ok, err, got)
	}

	mr.FastForward(61 * time.Second)
	if ok, _ := cache.Get(ctx, "property:p1", &got); ok {
		t.Fatal("entry should have expired")
	}
}
