package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	jsoniter "github.com/json-iterator/go"

	"github.com/dvloznov/cheqd-ledger/internal/fetch"
)

func envelopes(n int) []jsoniter.RawMessage {
	out := make([]jsoniter.RawMessage, n)
	for i := range out {
		out[i] = jsoniter.RawMessage(fmt.Sprintf(`{"transaction":{"hash":"H%d"}}`, i))
	}
	return out
}

func openTestStore(t *testing.T, path, address string) *ProgressStore {
	t.Helper()
	s, err := Open(context.Background(), path, address)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestProgressStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress.db")
	s := openTestStore(t, path, "cheqd1me")

	if _, err := s.Load(ctx); !errors.Is(err, fetch.ErrNoProgress) {
		t.Fatalf("Load() on empty store error = %v, want ErrNoProgress", err)
	}

	steps := []fetch.Progress{
		{Offset: 10, Envelopes: envelopes(10)},
		{Offset: 25, Envelopes: envelopes(25)},
		{Offset: 5, Envelopes: envelopes(5)},
	}
	for _, want := range steps {
		if err := s.Save(ctx, want); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		got, err := s.Load(ctx)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Load() mismatch after saving offset %d (-want +got):\n%s", want.Offset, diff)
		}
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, fetch.ErrNoProgress) {
		t.Errorf("Load() after Clear error = %v, want ErrNoProgress", err)
	}
}

func TestProgressStoreScopedByAddress(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress.db")
	mine := openTestStore(t, path, "cheqd1me")
	theirs := openTestStore(t, path, "cheqd1you")

	if err := mine.Save(ctx, fetch.Progress{Offset: 3, Envelopes: envelopes(3)}); err != nil {
		t.Fatal(err)
	}
	if _, err := theirs.Load(ctx); !errors.Is(err, fetch.ErrNoProgress) {
		t.Errorf("other address sees progress: %v", err)
	}

	// Reopening the file finds the saved progress.
	reopened := openTestStore(t, path, "cheqd1me")
	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Offset != 3 || len(got.Envelopes) != 3 {
		t.Errorf("reopened progress = offset %d, %d envelopes", got.Offset, len(got.Envelopes))
	}
}
