// Package blob stores uploaded and generated artifacts on disk and hands out
// durable reference URLs for them.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown or malformed blob ids.
var ErrNotFound = errors.New("blob not found")

// Ref points at a stored artifact.
type Ref struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Store is a flat directory of blobs named <uuid><ext>.
type Store struct {
	dir     string
	baseURL string
}

// NewStore creates dir if needed. URLs are baseURL + "/" + id.
func NewStore(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("blob: create %s: %w", dir, err)
	}
	return &Store{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put copies r into a new blob. name is the display name; its extension
// decides the stored extension and content type.
func (s *Store) Put(ctx context.Context, name string, r io.Reader) (Ref, error) {
	if err := ctx.Err(); err != nil {
		return Ref{}, err
	}
	ext := strings.ToLower(filepath.Ext(name))
	id := uuid.Must(uuid.NewV7()).String() + ext

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return Ref{}, fmt.Errorf("blob: put: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	n, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Ref{}, fmt.Errorf("blob: put: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, id)); err != nil {
		return Ref{}, fmt.Errorf("blob: put: %w", err)
	}
	return Ref{
		ID:          id,
		Name:        name,
		URL:         s.baseURL + "/" + id,
		ContentType: ContentType(id),
		Size:        n,
	}, nil
}

// PutBytes stores b.
func (s *Store) PutBytes(ctx context.Context, name string, b []byte) (Ref, error) {
	return s.Put(ctx, name, bytes.NewReader(b))
}

// Path resolves id to a file inside the store, rejecting anything that is
// not a blob id.
func (s *Store) Path(id string) (string, error) {
	ext := filepath.Ext(id)
	if _, err := uuid.Parse(strings.TrimSuffix(id, ext)); err != nil || strings.ContainsAny(ext, `/\`) {
		return "", ErrNotFound
	}
	p := filepath.Join(s.dir, id)
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("blob: stat: %w", err)
	}
	return p, nil
}

// Open returns the blob contents.
func (s *Store) Open(id string) (*os.File, error) {
	p, err := s.Path(id)
	if err != nil {
		return nil, err
	}
	return os.Open(p) //nolint:gosec // p is validated by Path
}

// Delete removes a blob. Missing blobs are not an error.
func (s *Store) Delete(id string) error {
	p, err := s.Path(id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("blob: delete: %w", err)
	}
	return nil
}

// ContentType guesses the MIME type from the blob extension.
func ContentType(name string) string {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".glb":
		return "model/gltf-binary"
	case ".obj":
		return "model/obj"
	case ".fbx":
		return "application/octet-stream"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
