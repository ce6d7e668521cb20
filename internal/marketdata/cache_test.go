package marketdata

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
)

func TestCache_ServesFromCacheUntilTTL(t *testing.T) {
	stub := NewStubProvider(map[string]domain.MarketQuote{
		"addr1": {Valuation: 1000, Symbol: "AAA", Volume24h: 5000},
	})

	now := time.Now()
	cache := NewCache(stub,
		WithTTL(20*time.Second),
		WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	got := cache.Lookup(ctx, []string{"addr1"})
	if got["addr1"].Valuation != 1000 {
		t.Fatalf("expected valuation 1000, got %+v", got["addr1"])
	}

	// Second lookup inside TTL must not hit the provider.
	cache.Lookup(ctx, []string{"addr1"})
	if n := len(stub.Lookups()); n != 1 {
		t.Errorf("expected 1 provider call, got %d", n)
	}

	// Past TTL the entry is stale and a fresh fetch must happen.
	now = now.Add(21 * time.Second)
	cache.Lookup(ctx, []string{"addr1"})
	if n := len(stub.Lookups()); n != 2 {
		t.Errorf("expected 2 provider calls after TTL, got %d", n)
	}
}

func TestCache_NegativeCachesUnresolved(t *testing.T) {
	stub := NewStubProvider(nil)
	cache := NewCache(stub)
	ctx := context.Background()

	got := cache.Lookup(ctx, []string{"dead"})
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}

	// The empty resolution is cached: no second provider call.
	cache.Lookup(ctx, []string{"dead"})
	if n := len(stub.Lookups()); n != 1 {
		t.Errorf("expected 1 provider call, got %d", n)
	}
}

func TestCache_ProviderFailureNotCached(t *testing.T) {
	stub := NewStubProvider(nil)
	stub.Fail(errors.New("provider down"))
	cache := NewCache(stub)
	ctx := context.Background()

	got := cache.Lookup(ctx, []string{"addr1"})
	if len(got) != 0 {
		t.Fatalf("expected empty result on failure, got %v", got)
	}

	// A failure must not leave a negative entry behind.
	stub.Fail(nil)
	stub.SetQuote("addr1", domain.MarketQuote{Valuation: 500})
	got = cache.Lookup(ctx, []string{"addr1"})
	if got["addr1"].Valuation != 500 {
		t.Errorf("expected retry to resolve, got %v", got)
	}
}

func TestCache_CapacityEviction(t *testing.T) {
	stub := NewStubProvider(nil)
	for i := 0; i < 20; i++ {
		stub.SetQuote(fmt.Sprintf("addr%d", i), domain.MarketQuote{Valuation: 1})
	}
	cache := NewCache(stub, WithMaxEntries(10))
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		cache.Lookup(ctx, []string{fmt.Sprintf("addr%d", i)})
	}

	if cache.Len() > 10 {
		t.Errorf("expected at most 10 entries, got %d", cache.Len())
	}
	if cache.Stats().Evictions == 0 {
		t.Error("expected evictions to be counted")
	}
}

func TestCache_MixedHitMiss(t *testing.T) {
	stub := NewStubProvider(map[string]domain.MarketQuote{
		"a": {Valuation: 1},
		"b": {Valuation: 2},
	})
	cache := NewCache(stub)
	ctx := context.Background()

	cache.Lookup(ctx, []string{"a"})
	got := cache.Lookup(ctx, []string{"a", "b"})

	if len(got) != 2 {
		t.Fatalf("expected both quotes, got %v", got)
	}
	// Second call should only have fetched the miss.
	lookups := stub.Lookups()
	if len(lookups) != 2 || len(lookups[1]) != 1 || lookups[1][0] != "b" {
		t.Errorf("expected second fetch to be [b], got %v", lookups)
	}
}
