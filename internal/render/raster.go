package render

import (
	"image"
	"image/color"

	"avatarstudio/internal/lighting"
	"avatarstudio/internal/mesh"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Options control a render.
type Options struct {
	Width, Height int
	// Detail is the segment count for curved primitives.
	Detail int
	// Top and Bottom are the background gradient colours.
	Top, Bottom color.RGBA
	// FOV is the vertical field of view in degrees.
	FOV float32
}

// DefaultOptions renders a 512×512 preview.
func DefaultOptions() Options {
	return Options{
		Width:  512,
		Height: 512,
		Detail: DefaultDetail,
		Top:    color.RGBA{0x2a, 0x2f, 0x45, 255},
		Bottom: color.RGBA{0x12, 0x14, 0x1f, 255},
		FOV:    35,
	}
}

// Camera holds the view-projection used for a render.
type Camera struct {
	Eye, Target mgl32.Vec3
	ViewProj    mgl32.Mat4
}

// FrameCamera places a camera in front of the avatar (+Z) so that the
// bounds fit the viewport with a small margin.
func FrameCamera(lo, hi mgl32.Vec3, width, height int, fovDeg float32) Camera {
	aspect := float32(width) / float32(height)
	fov := mgl32.DegToRad(fovDeg)
	center := lo.Add(hi).Mul(0.5)
	size := hi.Sub(lo)
	const margin = 1.15
	halfH := size.Y() / 2 * margin
	halfW := max(size.X(), size.Z()) / 2 * margin
	dist := max(halfH, halfW/aspect) / math32.Tan(fov/2)
	dist += size.Z() / 2
	eye := mgl32.Vec3{center.X(), center.Y(), center.Z() + dist}
	proj := mgl32.Perspective(fov, aspect, dist/100, dist*4)
	view := mgl32.LookAtV(eye, center, mgl32.Vec3{0, 1, 0})
	return Camera{Eye: eye, Target: center, ViewProj: proj.Mul4(view)}
}

// Rasterizer draws lit triangles into an RGBA frame with a depth buffer.
type Rasterizer struct {
	img    *image.RGBA
	zbuf   []float32
	camera Camera
	rig    lighting.Rig
}

// NewRasterizer clears a w×h frame to the background gradient.
func NewRasterizer(w, h int, cam Camera, rig lighting.Rig, top, bottom color.RGBA) *Rasterizer {
	r := &Rasterizer{
		img:    image.NewRGBA(image.Rect(0, 0, w, h)),
		zbuf:   make([]float32, w*h),
		camera: cam,
		rig:    rig,
	}
	for y := 0; y < h; y++ {
		t := float32(y) / float32(max(h-1, 1))
		c := color.RGBA{
			R: lerp8(top.R, bottom.R, t),
			G: lerp8(top.G, bottom.G, t),
			B: lerp8(top.B, bottom.B, t),
			A: 255,
		}
		for x := 0; x < w; x++ {
			r.img.SetRGBA(x, y, c)
		}
	}
	for i := range r.zbuf {
		r.zbuf[i] = math32.Inf(1)
	}
	return r
}

// Image returns the frame.
func (r *Rasterizer) Image() *image.RGBA { return r.img }

type screenVertex struct {
	x, y, z float32
	c       mgl32.Vec3
}

// project returns the screen position of p, or false when p is behind the
// camera.
func (r *Rasterizer) project(p mgl32.Vec3) (screenVertex, bool) {
	clip := r.camera.ViewProj.Mul4x1(p.Vec4(1))
	if clip.W() <= 1e-6 {
		return screenVertex{}, false
	}
	w, h := float32(r.img.Rect.Dx()), float32(r.img.Rect.Dy())
	return screenVertex{
		x: (clip.X()/clip.W() + 1) * 0.5 * w,
		y: (1 - clip.Y()/clip.W()) * 0.5 * h,
		z: clip.Z() / clip.W(),
	}, true
}

// DrawMesh rasterizes m with Gouraud shading from the rig.
func (r *Rasterizer) DrawMesh(m Mesh) {
	albedo := mgl32.Vec3{float32(m.Color.R), float32(m.Color.G), float32(m.Color.B)}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		var sv [3]screenVertex
		ok := true
		for k := 0; k < 3; k++ {
			v := m.Vertices[m.Indices[i+k]]
			s, in := r.project(v.Position)
			if !in {
				ok = false
				break
			}
			s.c = albedo.Mul(r.rig.Shade(v.Normal))
			sv[k] = s
		}
		if ok {
			r.scan(sv, func(x, y int, b0, b1, b2 float32) {
				z := b0*sv[0].z + b1*sv[1].z + b2*sv[2].z
				i := y*r.img.Rect.Dx() + x
				if z >= r.zbuf[i] {
					return
				}
				r.zbuf[i] = z
				c := sv[0].c.Mul(b0).Add(sv[1].c.Mul(b1)).Add(sv[2].c.Mul(b2))
				r.img.SetRGBA(x, y, color.RGBA{R: unit8(c[0]), G: unit8(c[1]), B: unit8(c[2]), A: 255})
			})
		}
	}
}

// scan calls plot for every pixel centre inside the triangle with its
// barycentric weights.
func (r *Rasterizer) scan(sv [3]screenVertex, plot func(x, y int, b0, b1, b2 float32)) {
	area := (sv[1].x-sv[0].x)*(sv[2].y-sv[0].y) - (sv[1].y-sv[0].y)*(sv[2].x-sv[0].x)
	if math32.Abs(area) < 1e-9 {
		return
	}
	w, h := r.img.Rect.Dx(), r.img.Rect.Dy()
	minX := max(0, int(math32.Floor(min(sv[0].x, sv[1].x, sv[2].x))))
	maxX := min(w-1, int(math32.Ceil(max(sv[0].x, sv[1].x, sv[2].x))))
	minY := max(0, int(math32.Floor(min(sv[0].y, sv[1].y, sv[2].y))))
	maxY := min(h-1, int(math32.Ceil(max(sv[0].y, sv[1].y, sv[2].y))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float32(x)+0.5, float32(y)+0.5
			b0 := ((sv[1].x-px)*(sv[2].y-py) - (sv[1].y-py)*(sv[2].x-px)) / area
			b1 := ((sv[2].x-px)*(sv[0].y-py) - (sv[2].y-py)*(sv[0].x-px)) / area
			b2 := 1 - b0 - b1
			if b0 < 0 || b1 < 0 || b2 < 0 {
				continue
			}
			plot(x, y, b0, b1, b2)
		}
	}
}

// DrawContactShadow darkens an ellipse on the ground under the avatar,
// nudged away from the key light. Depth is left untouched.
func (r *Rasterizer) DrawContactShadow(lo, hi mgl32.Vec3, seg int) {
	dir := r.rig.Directional.Direction
	mid3 := lo.Add(hi).Mul(0.5)
	center := mgl32.Vec3{mid3.X() + dir.X()*0.15, lo.Y() + 1e-3, mid3.Z() + dir.Z()*0.15}
	rx := (hi.X() - lo.X()) * 0.45
	rz := max((hi.Z()-lo.Z())*0.6, rx*0.5)
	mid, ok := r.project(center)
	if !ok {
		return
	}
	f := 1 - 0.45*min(r.rig.Directional.Intensity, 1.5)/1.5
	for i := 0; i < seg; i++ {
		a0 := float32(i) / float32(seg) * 2 * math32.Pi
		a1 := float32(i+1) / float32(seg) * 2 * math32.Pi
		p0, ok0 := r.project(center.Add(mgl32.Vec3{rx * math32.Cos(a0), 0, rz * math32.Sin(a0)}))
		p1, ok1 := r.project(center.Add(mgl32.Vec3{rx * math32.Cos(a1), 0, rz * math32.Sin(a1)}))
		if !ok0 || !ok1 {
			continue
		}
		r.scan([3]screenVertex{mid, p0, p1}, func(x, y int, _, _, _ float32) {
			c := r.img.RGBAAt(x, y)
			r.img.SetRGBA(x, y, color.RGBA{
				R: uint8(float32(c.R) * f),
				G: uint8(float32(c.G) * f),
				B: uint8(float32(c.B) * f),
				A: 255,
			})
		})
	}
}

// Render draws the whole scene: background, optional contact shadow, then
// every shape. Zero option fields take DefaultOptions values.
func Render(sc mesh.Scene, rig lighting.Rig, opts Options) *image.RGBA {
	def := DefaultOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.Detail <= 0 {
		opts.Detail = def.Detail
	}
	if opts.FOV <= 0 {
		opts.FOV = def.FOV
	}
	if opts.Top == (color.RGBA{}) && opts.Bottom == (color.RGBA{}) {
		opts.Top, opts.Bottom = def.Top, def.Bottom
	}

	meshes := TessellateScene(sc, opts.Detail)
	lo, hi := sceneBounds(meshes)
	cam := FrameCamera(lo, hi, opts.Width, opts.Height, opts.FOV)
	r := NewRasterizer(opts.Width, opts.Height, cam, rig, opts.Top, opts.Bottom)
	if len(meshes) == 0 {
		return r.Image()
	}
	if rig.Directional.CastShadow {
		r.DrawContactShadow(lo, hi, opts.Detail*2)
	}
	for _, m := range meshes {
		r.DrawMesh(m)
	}
	return r.Image()
}

func sceneBounds(meshes []Mesh) (lo, hi mgl32.Vec3) {
	if len(meshes) == 0 {
		return mgl32.Vec3{-1, 0, -1}, mgl32.Vec3{1, 2, 1}
	}
	lo, hi = meshes[0].Bounds()
	for _, m := range meshes[1:] {
		l, h := m.Bounds()
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], l[k])
			hi[k] = max(hi[k], h[k])
		}
	}
	return lo, hi
}

func lerp8(a, b uint8, t float32) uint8 {
	return uint8(float32(a) + (float32(b)-float32(a))*t)
}

func unit8(v float32) uint8 {
	switch {
	case v <= 0 || v != v:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
