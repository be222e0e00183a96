package cache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"nexusbuy-analytics/pkg/logging/logging"
)

func TestLoggingStore(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logging.WithLogger(context.Background(), zap.New(core))

	mem := NewMemoryStore(time.Minute, nil)
	t.Cleanup(func() { mem.Close() })
	store := NewLoggingStore(mem)

	if err := store.Set(ctx, "delivery_times:Peru", []byte(`[]`), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "delivery_times:Peru"); !ok {
		t.Fatalf("expected hit")
	}
	if _, ok, _ := store.Get(ctx, "delivery_times:Chile"); ok {
		t.Fatalf("expected miss")
	}

	gets := logs.FilterMessage("cache_get").All()
	if len(gets) != 2 {
		t.Fatalf("expected 2 cache_get lines, got %d", len(gets))
	}
	first := gets[0].ContextMap()
	if first["cache_result"] != "hit" || first["query_type"] != "delivery_times" || first["region"] != "Peru" {
		t.Fatalf("unexpected fields %v", first)
	}
	if gets[1].ContextMap()["cache_result"] != "miss" {
		t.Fatalf("unexpected fields %v", gets[1].ContextMap())
	}
	if logs.FilterMessage("cache_set").Len() != 1 {
		t.Fatalf("expected a cache_set line")
	}
}
