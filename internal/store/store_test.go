package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"avatarstudio/internal/avatar"
	"avatarstudio/internal/dbopen"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), dbopen.OpenMemory(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestCreateGet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	settings := avatar.Default()
	settings.Muscle = 80
	created, err := s.Create(ctx, SavedAvatar{UserID: "u1", Name: "  Hero  ", Settings: settings, Lighting: avatar.DefaultLighting()})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || created.Name != "Hero" {
		t.Errorf("Expected id and trimmed name, got %+v", created)
	}

	got, err := s.Get(ctx, "u1", created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Settings != settings || got.Lighting != avatar.DefaultLighting() {
		t.Errorf("Expected settings round-trip, got %+v", got.Settings)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("Expected created_at %v, got %v", created.CreatedAt, got.CreatedAt)
	}

	if _, err := s.Get(ctx, "u2", created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for another user, got %v", err)
	}
}

func TestCreate_ValidatesName(t *testing.T) {
	s := newStore(t)
	for _, name := range []string{"", "   ", strings.Repeat("é", MaxNameLength+1)} {
		_, err := s.Create(context.Background(), SavedAvatar{UserID: "u1", Name: name, Settings: avatar.Default()})
		if !errors.Is(err, ErrInvalidName) {
			t.Errorf("%q: expected ErrInvalidName, got %v", name, err)
		}
	}
	if _, err := s.Create(context.Background(), SavedAvatar{UserID: "u1", Name: strings.Repeat("é", MaxNameLength), Settings: avatar.Default()}); err != nil {
		t.Errorf("Expected %d-rune name to be accepted, got %v", MaxNameLength, err)
	}
}

func TestCreate_ClampsSettings(t *testing.T) {
	s := newStore(t)
	in := avatar.Default()
	in.Height = 500
	a, err := s.Create(context.Background(), SavedAvatar{UserID: "u1", Name: "x", Settings: in})
	if err != nil {
		t.Fatal(err)
	}
	if a.Settings.Height != avatar.HeightRange.Max {
		t.Errorf("Expected clamped height, got %d", a.Settings.Height)
	}
}

func TestList_NewestFirstAndLimited(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for i := 0; i < DefaultListLimit+2; i++ {
		if _, err := s.Create(ctx, SavedAvatar{UserID: "u1", Name: string(rune('a' + i)), Settings: avatar.Default()}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Create(ctx, SavedAvatar{UserID: "u2", Name: "other", Settings: avatar.Default()}); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != DefaultListLimit {
		t.Fatalf("Expected %d avatars, got %d", DefaultListLimit, len(list))
	}
	if list[0].Name != "l" {
		t.Errorf("Expected newest first, got %q", list[0].Name)
	}
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt.After(list[i-1].CreatedAt) {
			t.Fatalf("Expected descending creation order at %d", i)
		}
	}

	empty, err := s.List(ctx, "nobody", 5)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("Expected empty non-nil list, got %v %v", empty, err)
	}
}

func TestUpdate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	a, err := s.Create(ctx, SavedAvatar{UserID: "u1", Name: "before", Settings: avatar.Default(), Lighting: avatar.DefaultLighting()})
	if err != nil {
		t.Fatal(err)
	}
	name := "after"
	settings := avatar.Default()
	settings.HairStyle = avatar.HairMohawk
	thumb := "/files/x.png"
	got, err := s.Update(ctx, "u1", a.ID, Changes{Name: &name, Settings: &settings, ThumbnailURL: &thumb})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Name != "after" || got.Settings.HairStyle != avatar.HairMohawk || got.ThumbnailURL != thumb {
		t.Errorf("Unexpected update result %+v", got)
	}
	if got.Lighting != avatar.DefaultLighting() {
		t.Error("Expected lighting to be kept")
	}
	if !got.UpdatedAt.After(a.UpdatedAt) {
		t.Error("Expected updated_at to advance")
	}

	stored, _ := s.Get(ctx, "u1", a.ID)
	if stored.Name != "after" {
		t.Errorf("Expected stored name after, got %q", stored.Name)
	}

	blank := " "
	if _, err := s.Update(ctx, "u1", a.ID, Changes{Name: &blank}); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Expected ErrInvalidName, got %v", err)
	}
	if stored, _ := s.Get(ctx, "u1", a.ID); stored.Name != "after" {
		t.Error("Expected rejected update to leave the row untouched")
	}
	if _, err := s.Update(ctx, "u2", a.ID, Changes{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for another user, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	a, err := s.Create(ctx, SavedAvatar{UserID: "u1", Name: "x", Settings: avatar.Default()})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "u2", a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for another user, got %v", err)
	}
	if err := s.Delete(ctx, "u1", a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "u1", a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestClosedDatabaseIsStorageFailure(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	a, err := s.Create(ctx, SavedAvatar{UserID: "u1", Name: "x", Settings: avatar.Default()})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DB.Close(); err != nil {
		t.Fatal(err)
	}

	name := "y"
	_, createErr := s.Create(ctx, SavedAvatar{UserID: "u1", Name: "z", Settings: avatar.Default()})
	_, getErr := s.Get(ctx, "u1", a.ID)
	_, listErr := s.List(ctx, "u1", 0)
	_, updateErr := s.Update(ctx, "u1", a.ID, Changes{Name: &name})
	deleteErr := s.Delete(ctx, "u1", a.ID)
	for op, err := range map[string]error{
		"create": createErr,
		"get":    getErr,
		"list":   listErr,
		"update": updateErr,
		"delete": deleteErr,
	} {
		if !errors.Is(err, ErrStorage) {
			t.Errorf("%s: expected ErrStorage, got %v", op, err)
		}
		if errors.Is(err, ErrNotFound) {
			t.Errorf("%s: storage failure reported as not found", op)
		}
	}
}
