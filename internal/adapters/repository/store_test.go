package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/okian/battle64/internal/domain/model"
)

func raceEntry(id, raw string) model.RaceEntry {
	return model.RaceEntry{
		ID:                id,
		UserID:            "user-" + id,
		Username:          "racer " + id,
		RawTime:           raw,
		SubmissionDate:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		DocumentationType: model.DocumentationVideo,
		MediaURL:          "https://example.com/" + id,
	}
}

// testStoreContract runs the behavior every Store must share. Event ids are
// unique per run so a shared database does not leak between runs.
func testStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	eventID := "event-" + uuid.NewString()
	otherID := "event-" + uuid.NewString()

	if _, _, err := store.Snapshot(ctx, eventID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown event, got %v", err)
	}
	if _, err := store.Version(ctx, eventID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound version for unknown event, got %v", err)
	}
	countBefore, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}

	var last uint64
	for i, raw := range []string{"1:05.000", "garbage", "65"} {
		v, err := store.Append(ctx, eventID, raceEntry(fmt.Sprintf("e%d", i), raw))
		if err != nil {
			t.Fatalf("append e%d: %v", i, err)
		}
		if v <= last {
			t.Fatalf("version must grow: %d after %d", v, last)
		}
		last = v
	}
	if _, err := store.Append(ctx, otherID, raceEntry("x", "0:59.000")); err != nil {
		t.Fatalf("append other: %v", err)
	}

	if _, err := store.Append(ctx, eventID, raceEntry("e1", "1:00.000")); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	entries, version, err := store.Snapshot(ctx, eventID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if version != last {
		t.Errorf("snapshot version %d, want %d", version, last)
	}
	if version != uint64(len(entries)) {
		t.Errorf("snapshot version %d does not match its %d entries", version, len(entries))
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.ID != fmt.Sprintf("e%d", i) {
			t.Errorf("entry %d has id %s, want insertion order", i, e.ID)
		}
	}
	if entries[1].RawTime != "garbage" || entries[0].DocumentationType != model.DocumentationVideo {
		t.Errorf("entry fields not preserved: %+v", entries[:2])
	}
	if !entries[0].SubmissionDate.Equal(raceEntry("e0", "").SubmissionDate) {
		t.Errorf("submission date not preserved: %v", entries[0].SubmissionDate)
	}

	got, err := store.Version(ctx, eventID)
	if err != nil || got != last {
		t.Errorf("version = %d, %v; want %d", got, err, last)
	}

	countAfter, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if countAfter-countBefore != 4 {
		t.Errorf("count grew by %d, want 4", countAfter-countBefore)
	}

	events, err := store.Events(ctx)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	found := 0
	for i, ev := range events {
		if i > 0 && events[i-1].EventID >= ev.EventID {
			t.Errorf("events not ordered by id: %s before %s", events[i-1].EventID, ev.EventID)
		}
		switch ev.EventID {
		case eventID:
			found++
			if ev.Entries != 3 {
				t.Errorf("event has %d entries, want 3", ev.Entries)
			}
		case otherID:
			found++
		}
	}
	if found != 2 {
		t.Errorf("expected both events listed, found %d", found)
	}
}

// testStoreConcurrentSnapshots appends from several writers while a reader
// takes snapshots. Every snapshot must hold exactly as many entries as its
// version says, so a reader that caches by version can never miss one.
func testStoreConcurrentSnapshots(t *testing.T, store Store) {
	ctx := context.Background()
	eventID := "event-" + uuid.NewString()
	const writers, perWriter = 8, 50

	if _, err := store.Append(ctx, eventID, raceEntry("seed", "1:00.000")); err != nil {
		t.Fatalf("append seed: %v", err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := store.Append(ctx, eventID, raceEntry(fmt.Sprintf("%d-%d", w, i), "1:00.000")); err != nil {
					t.Errorf("append %d-%d: %v", w, i, err)
					return
				}
			}
		}(w)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	var lastVersion uint64
	for reading := true; reading; {
		select {
		case <-done:
			reading = false
		default:
		}
		entries, version, err := store.Snapshot(ctx, eventID)
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if version != uint64(len(entries)) {
			t.Fatalf("snapshot at version %d holds %d entries", version, len(entries))
		}
		if version < lastVersion {
			t.Fatalf("version went backwards: %d after %d", version, lastVersion)
		}
		lastVersion = version
	}

	want := uint64(writers*perWriter + 1)
	if v, err := store.Version(ctx, eventID); err != nil || v != want {
		t.Errorf("final version = %d, %v; want %d", v, err, want)
	}
}

func TestMemoryStore_Contract(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()
	testStoreContract(t, store)
	testStoreConcurrentSnapshots(t, store)
}

func TestMemoryStore_SnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Append(ctx, "ev", raceEntry("a", "1:00.000")); err != nil {
		t.Fatalf("append: %v", err)
	}
	entries, _, _ := store.Snapshot(ctx, "ev")
	entries[0].RawTime = "mutated"

	again, _, _ := store.Snapshot(ctx, "ev")
	if again[0].RawTime != "1:00.000" {
		t.Errorf("store was mutated through a snapshot: %q", again[0].RawTime)
	}
}

func TestMemoryStore_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				_, _ = store.Append(ctx, "ev", raceEntry(fmt.Sprintf("%d-%d", w, i), "1:00.000"))
			}
		}(w)
	}
	wg.Wait()

	v, err := store.Version(ctx, "ev")
	if err != nil || v != 2000 {
		t.Errorf("version = %d, %v; want 2000", v, err)
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Close()
	if _, err := store.Append(context.Background(), "ev", raceEntry("a", "")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestPostgresStore_Contract(t *testing.T) {
	dsn := os.Getenv("BATTLE64_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("BATTLE64_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { _ = store.Close() }()
	testStoreContract(t, store)
	testStoreConcurrentSnapshots(t, store)
}
