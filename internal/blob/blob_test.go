package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), "/files/")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestPutOpen(t *testing.T) {
	s := newStore(t)
	ref, err := s.PutBytes(context.Background(), "Hero.GLB", []byte("glTF-data"))
	if err != nil {
		t.Fatalf("PutBytes: %v", err)
	}
	if !strings.HasSuffix(ref.ID, ".glb") {
		t.Errorf("Expected lowercase .glb id, got %q", ref.ID)
	}
	if ref.URL != "/files/"+ref.ID {
		t.Errorf("Expected url /files/%s, got %q", ref.ID, ref.URL)
	}
	if ref.Size != 9 || ref.Name != "Hero.GLB" {
		t.Errorf("Unexpected ref %+v", ref)
	}
	if ref.ContentType != "model/gltf-binary" {
		t.Errorf("Expected gltf content type, got %q", ref.ContentType)
	}

	f, err := s.Open(ref.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	b, _ := io.ReadAll(f)
	if string(b) != "glTF-data" {
		t.Errorf("Expected stored bytes, got %q", b)
	}
}

func TestPath_RejectsTraversal(t *testing.T) {
	s := newStore(t)
	for _, id := range []string{"../etc/passwd", "nope.png", "", "0190b5c4-0000-7000-8000-000000000000.png"} {
		if _, err := s.Path(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("%q: expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestPut_CanceledContext(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.PutBytes(ctx, "a.png", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	ref, err := s.PutBytes(context.Background(), "a.obj", []byte("v 0 0 0"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ref.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Open(ref.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ref.ID); err != nil {
		t.Errorf("Expected second delete to be a no-op, got %v", err)
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"a.png": "image/png",
		"a.obj": "model/obj",
		"a.xyz": "application/octet-stream",
	}
	for name, want := range tests {
		if got := ContentType(name); got != want {
			t.Errorf("%s: expected %q, got %q", name, want, got)
		}
	}
}
