package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"orthoset/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	md := map[string]string{"run": "r1"}
	if _, err := s.Put(ctx, "r1/b.json", strings.NewReader("{}"), core.PutOptions{ContentType: "application/json", Metadata: md}); err != nil {
		t.Fatalf("put: %v", err)
	}
	md["run"] = "mutated"
	if _, err := s.Put(ctx, "r1/a.csv", strings.NewReader("x,y"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "r1/a.csv", strings.NewReader("again"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	info, rc, err := s.Get(ctx, "r1/b.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if string(body) != "{}" || info.Metadata["run"] != "r1" {
		t.Fatalf("unexpected get %+v %q", info, body)
	}
	info.Metadata["run"] = "leak"
	head, err := s.Head(ctx, "r1/b.json")
	if err != nil || head.Metadata["run"] != "r1" {
		t.Fatalf("metadata aliasing: %v %+v", err, head)
	}

	list, err := s.List(ctx, "r1/")
	if err != nil || len(list) != 2 || list[0].Key != "r1/a.csv" {
		t.Fatalf("list: %v %+v", err, list)
	}
	if _, err := s.SignedURL(ctx, "r1/a.csv", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if ok, _ := s.Delete(ctx, "r1/a.csv"); !ok {
		t.Fatalf("expected delete to report existing key")
	}
	if ok, _ := s.Delete(ctx, "r1/a.csv"); ok {
		t.Fatalf("expected second delete to report missing key")
	}
	if _, _, err := s.Get(ctx, "r1/a.csv"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Put(ctx, "k", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
