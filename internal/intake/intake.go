// Package intake validates user uploads: custom .glb models that are kept
// as blobs, and reference photos that are echoed back as data URLs.
package intake

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"avatarstudio/internal/blob"
)

// Upload limits.
const (
	MaxModelBytes = 30 << 20
	MaxPhotoBytes = 15 << 20
)

// ErrRejected wraps every validation failure; the message is user facing.
var ErrRejected = errors.New("upload rejected")

// Model is an accepted custom model.
type Model struct {
	blob.Ref
	DisplayName string `json:"displayName"`
}

func reject(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}

// AcceptModel checks a .glb upload and stores it. size is the declared size
// (-1 if unknown); the body is also capped while copying so an understated
// size cannot slip through.
func AcceptModel(ctx context.Context, store *blob.Store, filename string, size int64, r io.Reader) (Model, error) {
	name := filepath.Base(filepath.Clean("/" + filename))
	ext := filepath.Ext(name)
	if !strings.EqualFold(ext, ".glb") {
		return Model{}, reject("only .glb files are supported, got %q", name)
	}
	if size > MaxModelBytes {
		return Model{}, reject("%s is %d MB; the limit is 30 MB", name, size>>20)
	}

	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return Model{}, reject("%s is too short to be a GLB file", name)
	}
	if string(magic) != "glTF" {
		return Model{}, reject("%s is not a binary glTF file", name)
	}

	body := io.MultiReader(bytes.NewReader(magic), io.LimitReader(r, MaxModelBytes-4+1))
	lr := &countingReader{r: body}
	ref, err := store.Put(ctx, name, lr)
	if err != nil {
		return Model{}, fmt.Errorf("intake: store model: %w", err)
	}
	if lr.n > MaxModelBytes {
		_ = store.Delete(ref.ID)
		return Model{}, reject("%s exceeds the 30 MB limit", name)
	}
	return Model{Ref: ref, DisplayName: strings.TrimSuffix(name, ext)}, nil
}

// PhotoDataURL reads an image and returns it as a data URL for preview.
// Content that does not sniff as an image is rejected.
func PhotoDataURL(filename string, r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxPhotoBytes+1))
	if err != nil {
		return "", fmt.Errorf("intake: read photo: %w", err)
	}
	if len(b) == 0 {
		return "", reject("%s is empty", filename)
	}
	if len(b) > MaxPhotoBytes {
		return "", reject("%s exceeds the 15 MB photo limit", filename)
	}
	mime := http.DetectContentType(b)
	if !strings.HasPrefix(mime, "image/") {
		return "", reject("%s is not an image (%s)", filename, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
