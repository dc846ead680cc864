package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/JakeFAU/atcoder-search/internal/storage"
)

func TestBlobStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	ctx := context.Background()
	payload := []byte(`[{"problem_id":"abc001_a"}]`)
	uri, err := store.PutObject(ctx, "problem/run-1/000001.json", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "memory://problem/run-1/000001.json" {
		t.Fatalf("unexpected uri %s", uri)
	}

	got, err := store.GetObject(ctx, "problem/run-1/000001.json")
	if err != nil {
		t.Fatalf("GetObject() error = %v", err)
	}
	got[0] = '{'
	again, _ := store.GetObject(ctx, "problem/run-1/000001.json")
	if !bytes.Equal(again, payload) {
		t.Fatalf("expected stored copy to be immutable, got %q", again)
	}
}

func TestBlobStoreGetMissing(t *testing.T) {
	t.Parallel()

	_, err := NewBlobStore().GetObject(context.Background(), "nope")
	if !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestBlobStoreListObjectsSortedByPrefix(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	ctx := context.Background()
	for _, p := range []string{"user/r2/000002.json", "user/r2/000001.json", "problem/r1/000001.json"} {
		if _, err := store.PutObject(ctx, p, "", bytes.NewReader(nil)); err != nil {
			t.Fatal(err)
		}
	}
	got, err := store.ListObjects(ctx, "user/")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "user/r2/000001.json" || got[1] != "user/r2/000002.json" {
		t.Fatalf("unexpected listing %v", got)
	}
}
