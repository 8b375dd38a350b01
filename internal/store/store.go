// Package store persists saved avatars in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"avatarstudio/internal/avatar"

	"github.com/google/uuid"
)

// Schema creates the saved_avatars table. Timestamps are unix milliseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS saved_avatars (
    id            TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL,
    name          TEXT NOT NULL CHECK(length(name) > 0),
    settings      TEXT NOT NULL,
    lighting      TEXT NOT NULL,
    thumbnail_url TEXT NOT NULL DEFAULT '',
    created_at    INTEGER NOT NULL,
    updated_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_saved_avatars_user_created
    ON saved_avatars(user_id, created_at DESC);
`

// DefaultListLimit is the number of avatars the gallery shows.
const DefaultListLimit = 10

// MaxNameLength is the longest accepted avatar name, in runes.
const MaxNameLength = 64

var (
	ErrNotFound    = errors.New("saved avatar not found")
	ErrInvalidName = errors.New("invalid avatar name")
	ErrStorage     = errors.New("avatar storage failure")
)

// SavedAvatar is a named snapshot of editor settings owned by one user.
type SavedAvatar struct {
	ID           string          `json:"id"`
	UserID       string          `json:"-"`
	Name         string          `json:"name"`
	Settings     avatar.Settings `json:"settings"`
	Lighting     avatar.Lighting `json:"lighting"`
	ThumbnailURL string          `json:"thumbnailUrl,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Changes lists the fields Update replaces; nil fields are kept.
type Changes struct {
	Name         *string          `json:"name,omitempty"`
	Settings     *avatar.Settings `json:"settings,omitempty"`
	Lighting     *avatar.Lighting `json:"lighting,omitempty"`
	ThumbnailURL *string          `json:"thumbnailUrl,omitempty"`
}

// Store is the SQLite-backed avatar repository.
type Store struct {
	DB  *sql.DB
	now func() time.Time
}

// New applies Schema and returns a Store.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return nil, fmt.Errorf("store: schema: %w: %w", ErrStorage, err)
	}
	return &Store{DB: db, now: time.Now}, nil
}

// NormalizeName trims name and checks it is non-empty and short enough.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: name is longer than %d characters", ErrInvalidName, MaxNameLength)
	}
	return name, nil
}

// Create inserts a new avatar for a.UserID and returns it with ID and
// timestamps filled in. Settings and lighting are clamped before storing.
func (s *Store) Create(ctx context.Context, a SavedAvatar) (SavedAvatar, error) {
	name, err := NormalizeName(a.Name)
	if err != nil {
		return SavedAvatar{}, err
	}
	a.Name = name
	a.ID = uuid.Must(uuid.NewV7()).String()
	a.Settings = a.Settings.Clamp()
	a.Lighting = a.Lighting.Clamp()
	a.CreatedAt = s.now().UTC().Truncate(time.Millisecond)
	a.UpdatedAt = a.CreatedAt

	settings, lighting, err := encode(a.Settings, a.Lighting)
	if err != nil {
		return SavedAvatar{}, err
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO saved_avatars (id, user_id, name, settings, lighting, thumbnail_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, settings, lighting, a.ThumbnailURL,
		a.CreatedAt.UnixMilli(), a.UpdatedAt.UnixMilli())
	if err != nil {
		return SavedAvatar{}, fmt.Errorf("store: create: %w: %w", ErrStorage, err)
	}
	return a, nil
}

// Get returns one avatar of userID.
func (s *Store) Get(ctx context.Context, userID, id string) (SavedAvatar, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, user_id, name, settings, lighting, thumbnail_url, created_at, updated_at
		FROM saved_avatars WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedAvatar{}, ErrNotFound
	}
	if err != nil {
		return SavedAvatar{}, fmt.Errorf("store: get: %w: %w", ErrStorage, err)
	}
	return a, nil
}

// List returns the newest avatars of userID first. A limit of zero or less
// means DefaultListLimit.
func (s *Store) List(ctx context.Context, userID string, limit int) ([]SavedAvatar, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user_id, name, settings, lighting, thumbnail_url, created_at, updated_at
		FROM saved_avatars WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w: %w", ErrStorage, err)
	}
	defer rows.Close()

	out := []SavedAvatar{}
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list: %w: %w", ErrStorage, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w: %w", ErrStorage, err)
	}
	return out, nil
}

// Update applies c to an avatar of userID and returns the stored result.
func (s *Store) Update(ctx context.Context, userID, id string, c Changes) (SavedAvatar, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return SavedAvatar{}, fmt.Errorf("store: update: %w: %w", ErrStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx, `
		SELECT id, user_id, name, settings, lighting, thumbnail_url, created_at, updated_at
		FROM saved_avatars WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedAvatar{}, ErrNotFound
	}
	if err != nil {
		return SavedAvatar{}, fmt.Errorf("store: update: %w: %w", ErrStorage, err)
	}

	if c.Name != nil {
		if a.Name, err = NormalizeName(*c.Name); err != nil {
			return SavedAvatar{}, err
		}
	}
	if c.Settings != nil {
		a.Settings = c.Settings.Clamp()
	}
	if c.Lighting != nil {
		a.Lighting = c.Lighting.Clamp()
	}
	if c.ThumbnailURL != nil {
		a.ThumbnailURL = *c.ThumbnailURL
	}
	a.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)

	settings, lighting, err := encode(a.Settings, a.Lighting)
	if err != nil {
		return SavedAvatar{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE saved_avatars
		SET name = ?, settings = ?, lighting = ?, thumbnail_url = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		a.Name, settings, lighting, a.ThumbnailURL, a.UpdatedAt.UnixMilli(), id, userID); err != nil {
		return SavedAvatar{}, fmt.Errorf("store: update: %w: %w", ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		return SavedAvatar{}, fmt.Errorf("store: update: %w: %w", ErrStorage, err)
	}
	return a, nil
}

// Delete removes an avatar of userID.
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM saved_avatars WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("store: delete: %w: %w", ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete: %w: %w", ErrStorage, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(r scanner) (SavedAvatar, error) {
	var a SavedAvatar
	var settings, lighting string
	var created, updated int64
	if err := r.Scan(&a.ID, &a.UserID, &a.Name, &settings, &lighting, &a.ThumbnailURL, &created, &updated); err != nil {
		return SavedAvatar{}, err
	}
	if err := json.Unmarshal([]byte(settings), &a.Settings); err != nil {
		return SavedAvatar{}, fmt.Errorf("decode settings of %s: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(lighting), &a.Lighting); err != nil {
		return SavedAvatar{}, fmt.Errorf("decode lighting of %s: %w", a.ID, err)
	}
	a.CreatedAt = time.UnixMilli(created).UTC()
	a.UpdatedAt = time.UnixMilli(updated).UTC()
	return a, nil
}

func encode(s avatar.Settings, l avatar.Lighting) (string, string, error) {
	sb, err := json.Marshal(s)
	if err != nil {
		return "", "", fmt.Errorf("store: encode settings: %w", err)
	}
	lb, err := json.Marshal(l)
	if err != nil {
		return "", "", fmt.Errorf("store: encode lighting: %w", err)
	}
	return string(sb), string(lb), nil
}
