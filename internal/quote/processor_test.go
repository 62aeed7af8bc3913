package quote

import (
	"context"
	"testing"
	"time"
)

func TestRecorderAssignsIDAndPublishes(t *testing.T) {
	queue := NewMemoryQueue(4)
	defer queue.Close()
	recorder := NewRecorder(queue)

	record := Record{
		SessionID:       "s1",
		Asset:           "BTC",
		Currency:        "USD",
		PreferredSource: "coingecko",
		Status:          StatusResolved,
		Price:           "64000.5",
	}
	if err := recorder.Record(context.Background(), record); err != nil {
		t.Fatalf("record: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewMemoryStore()
	processor := NewProcessor(store, queue)
	go func() {
		_ = processor.Start(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for {
		latest, err := store.ListLatest(context.Background(), 1)
		if err != nil {
			t.Fatalf("list latest: %v", err)
		}
		if len(latest) == 1 {
			got := latest[0]
			if got.ID == "" {
				t.Fatal("expected recorder to assign an ID")
			}
			if got.CreatedAt == 0 {
				t.Fatal("expected recorder to set CreatedAt")
			}
			if got.Price != "64000.5" || got.Status != StatusResolved {
				t.Fatalf("unexpected record: %+v", got)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for record to be stored")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestProcessorDropsMalformedPayload(t *testing.T) {
	queue := NewMemoryQueue(4)
	defer queue.Close()
	store := NewMemoryStore()
	processor := NewProcessor(store, queue)

	if err := processor.handle(context.Background(), []byte("not json")); err != nil {
		t.Fatalf("malformed payload should be dropped, got %v", err)
	}
	latest, err := store.ListLatest(context.Background(), 10)
	if err != nil {
		t.Fatalf("list latest: %v", err)
	}
	if len(latest) != 0 {
		t.Fatalf("expected no records, got %d", len(latest))
	}
}
