// Package export encodes the current avatar into downloadable artifacts:
// raster images, 3D interchange files and a printable character sheet.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"avatarstudio/internal/avatar"
	"avatarstudio/internal/blob"
	"avatarstudio/internal/lighting"
	"avatarstudio/internal/mesh"
)

// ErrUnknownFormat is returned for format ids outside Formats.
var ErrUnknownFormat = errors.New("unknown export format")

// Format identifies an export target.
type Format string

const (
	PNGHD    Format = "png-hd"
	PNG4K    Format = "png-4k"
	JPGHD    Format = "jpg-hd"
	GLB      Format = "glb-3d"
	OBJ      Format = "obj-3d"
	FBX      Format = "fbx-3d"
	PDFSheet Format = "pdf-sheet"
)

// Formats lists every supported format in menu order.
var Formats = []Format{PNGHD, PNG4K, JPGHD, GLB, FBX, OBJ, PDFSheet}

// ParseFormat validates a format id.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("export: %q: %w", s, ErrUnknownFormat)
}

// Ext is the file extension of f including the dot.
func (f Format) Ext() string {
	switch f {
	case PNGHD, PNG4K:
		return ".png"
	case JPGHD:
		return ".jpg"
	case GLB:
		return ".glb"
	case OBJ:
		return ".obj"
	case FBX:
		return ".fbx"
	case PDFSheet:
		return ".pdf"
	}
	return ""
}

// Input is everything an export may draw on.
type Input struct {
	Name     string
	Settings avatar.Settings
	Lighting avatar.Lighting
}

// Scene builds the scene for in.
func (in Input) Scene() mesh.Scene { return mesh.Build(in.Settings) }

// Rig builds the light rig for in.
func (in Input) Rig() lighting.Rig { return lighting.NewRig(in.Lighting) }

// Encoder turns an Input into file bytes.
type Encoder func(ctx context.Context, in Input) ([]byte, error)

// Exporter encodes and stores artifacts.
type Exporter struct {
	Blobs *blob.Store
	// RenderScale divides the image target size to get the software
	// render size before resampling; 0 means 2.
	RenderScale int
	Logger      *slog.Logger
}

// Encoder returns the encoder for f.
func (e *Exporter) Encoder(f Format) (Encoder, error) {
	switch f {
	case PNGHD:
		return e.raster(1920, 1080, pngEncoder), nil
	case PNG4K:
		return e.raster(3840, 2160, pngEncoder), nil
	case JPGHD:
		return e.raster(1920, 1080, jpegEncoder), nil
	case GLB:
		return func(ctx context.Context, in Input) ([]byte, error) { return EncodeGLB(in.Scene()) }, nil
	case OBJ:
		return func(ctx context.Context, in Input) ([]byte, error) { return EncodeOBJ(in.Scene()) }, nil
	case FBX:
		return func(ctx context.Context, in Input) ([]byte, error) { return EncodeFBX(in.Scene()) }, nil
	case PDFSheet:
		return EncodeSheet, nil
	}
	return nil, fmt.Errorf("export: %q: %w", f, ErrUnknownFormat)
}

// Encode produces the bytes of f for in.
func (e *Exporter) Encode(ctx context.Context, f Format, in Input) ([]byte, error) {
	enc, err := e.Encoder(f)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := enc(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("export: encode %s: %w", f, err)
	}
	return b, nil
}

// Store saves encoded bytes as a blob named after in and f.
func (e *Exporter) Store(ctx context.Context, f Format, in Input, b []byte) (blob.Ref, error) {
	ref, err := e.Blobs.PutBytes(ctx, FileName(in.Name, f), b)
	if err != nil {
		return blob.Ref{}, fmt.Errorf("export: store %s: %w", f, err)
	}
	e.logger().Info("export stored", "format", f, "id", ref.ID, "size", ref.Size)
	return ref, nil
}

// Export encodes f and stores it in one step. The export job runs Encode
// and Store as separate phases instead so it can report progress between
// them.
func (e *Exporter) Export(ctx context.Context, f Format, in Input) (blob.Ref, error) {
	b, err := e.Encode(ctx, f, in)
	if err != nil {
		return blob.Ref{}, err
	}
	return e.Store(ctx, f, in, b)
}

func (e *Exporter) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// FileName builds a download name such as "my-avatar-png-hd.png".
func FileName(name string, f Format) string {
	slug := slugify(name)
	if slug == "" {
		slug = "avatar"
	}
	return slug + "-" + string(f) + f.Ext()
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
