package export

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"avatarstudio/internal/blob"
	"avatarstudio/internal/render"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
)

// JPEGQuality is used for jpg-hd.
const JPEGQuality = 92

var (
	pngEncoder  = imgio.PNGEncoder()
	jpegEncoder = imgio.JPEGEncoder(JPEGQuality)
)

// raster renders at a reduced size and resamples up to w×h.
func (e *Exporter) raster(w, h int, enc imgio.Encoder) Encoder {
	return func(ctx context.Context, in Input) ([]byte, error) {
		img := e.RenderImage(in, w, h)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := enc(&buf, img); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

// RenderImage draws in at exactly w×h.
func (e *Exporter) RenderImage(in Input, w, h int) image.Image {
	scale := e.RenderScale
	if scale <= 0 {
		scale = 2
	}
	opts := render.DefaultOptions()
	opts.Width, opts.Height = max(w/scale, 1), max(h/scale, 1)
	img := render.Render(in.Scene(), in.Rig(), opts)
	if opts.Width == w && opts.Height == h {
		return img
	}
	return transform.Resize(img, w, h, transform.CatmullRom)
}

// ThumbnailSize is the side of saved-avatar thumbnails.
const ThumbnailSize = 192

// Thumbnail renders a square preview of in and stores it as a PNG blob.
func (e *Exporter) Thumbnail(ctx context.Context, in Input) (blob.Ref, error) {
	img := e.RenderImage(in, ThumbnailSize, ThumbnailSize)
	var buf bytes.Buffer
	if err := pngEncoder(&buf, img); err != nil {
		return blob.Ref{}, fmt.Errorf("export: thumbnail: %w", err)
	}
	slug := slugify(in.Name)
	if slug == "" {
		slug = "avatar"
	}
	ref, err := e.Blobs.PutBytes(ctx, slug+"-thumb.png", buf.Bytes())
	if err != nil {
		return blob.Ref{}, fmt.Errorf("export: thumbnail: %w", err)
	}
	return ref, nil
}
