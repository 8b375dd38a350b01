package export

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"math"

	"avatarstudio/internal/display"
	"avatarstudio/internal/render"

	"github.com/jung-kurt/gofpdf/v2"
)

const (
	pageW     = 595
	pageH     = 842
	margin    = 40
	fontSize  = 9
	titleSize = 18
	rowH      = 14.0
)

// EncodeSheet returns an A4 character sheet: a rendered preview, the
// schematic silhouette and a table of every slider and light setting.
func EncodeSheet(ctx context.Context, in Input) ([]byte, error) {
	s := in.Settings.Clamp()
	l := in.Lighting.Clamp()

	opts := render.DefaultOptions()
	opts.Width, opts.Height = 300, 400
	preview := render.Render(in.Scene(), in.Rig(), opts)
	var img bytes.Buffer
	if err := png.Encode(&img, preview); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("Avatar sheet", true)
	pdf.AddPage()

	pdf.SetFillColor(245, 240, 230)
	pdf.Rect(0, 0, pageW, pageH, "F")
	drawWavyBorder(pdf)

	title := in.Name
	if title == "" {
		title = "Untitled avatar"
	}
	pdf.SetTextColor(40, 30, 60)
	pdf.SetFont("Helvetica", "B", titleSize)
	pdf.SetXY(margin+10, margin+12)
	pdf.CellFormat(pageW-2*margin-20, 20, title, "", 0, "L", false, 0, "")

	const previewW, previewH = 240.0, 320.0
	imgOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("preview", imgOpts, &img)
	pdf.ImageOptions("preview", margin+10, margin+44, previewW, previewH, false, imgOpts, 0, "")
	pdf.SetDrawColor(40, 30, 60)
	pdf.Rect(margin+10, margin+44, previewW, previewH, "D")

	drawSchematic(pdf, display.Schematic(s), margin+10+previewW+30, margin+44, 200, previewH)

	y := margin + 44 + previewH + 24
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(margin+10, y)
	pdf.CellFormat(200, 16, "Body and face", "", 0, "L", false, 0, "")
	pdf.SetXY(pageW/2+10, y)
	pdf.CellFormat(200, 16, "Lighting", "", 0, "L", false, 0, "")
	y += 20

	body := [][2]string{
		{"Gender", string(s.Gender)},
		{"Height", fmt.Sprintf("%d cm", s.Height)},
		{"Muscle", fmt.Sprint(s.Muscle)},
		{"Body fat", fmt.Sprintf("%d%%", s.BodyFat)},
		{"Shoulder width", fmt.Sprint(s.ShoulderWidth)},
		{"Waist size", fmt.Sprint(s.WaistSize)},
		{"Skin tone", fmt.Sprint(s.SkinTone)},
		{"Facial structure", fmt.Sprint(s.FacialStructure)},
		{"Eye size", fmt.Sprint(s.EyeSize)},
		{"Nose size", fmt.Sprint(s.NoseSize)},
		{"Mouth size", fmt.Sprint(s.MouthSize)},
		{"Hair style", s.HairStyle.String()},
		{"Hair colour", fmt.Sprint(s.HairColor)},
	}
	p := l.DirectionalPosition
	lights := [][2]string{
		{"Ambient", fmt.Sprintf("%.2f", l.AmbientIntensity)},
		{"Key light", fmt.Sprintf("%.2f", l.DirectionalIntensity)},
		{"Key position", fmt.Sprintf("%.1f, %.1f, %.1f", p[0], p[1], p[2])},
		{"Environment", fmt.Sprintf("%.2f", l.EnvironmentIntensity)},
		{"Shadows", onOff(l.Shadows)},
	}
	drawTable(pdf, margin+10, y, body)
	drawTable(pdf, pageW/2+10, y, lights)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// drawTable prints label/value rows with alternating shading.
func drawTable(pdf *gofpdf.Fpdf, x, y float64, rows [][2]string) {
	pdf.SetFont("Helvetica", "", fontSize)
	pdf.SetTextColor(40, 30, 60)
	for i, r := range rows {
		fill := i%2 == 0
		pdf.SetFillColor(232, 226, 240)
		pdf.SetXY(x, y+float64(i)*rowH)
		pdf.CellFormat(110, rowH, r[0], "", 0, "L", fill, 0, "")
		pdf.CellFormat(100, rowH, r[1], "", 0, "R", fill, 0, "")
	}
}

// drawSchematic fits the schematic layout into the w×h box at (x, y).
func drawSchematic(pdf *gofpdf.Fpdf, l display.Layout, x, y, w, h float64) {
	minX, maxX, maxY := math.Inf(1), math.Inf(-1), 0.0
	for _, r := range l.Rects {
		minX = math.Min(minX, r.X)
		maxX = math.Max(maxX, r.X+r.W)
		maxY = math.Max(maxY, r.Y+r.H)
	}
	scale := math.Min(w/(maxX-minX), h/maxY) * 0.9
	cx := x + w/2
	ground := y + h - 6
	pdf.SetDrawColor(40, 30, 60)
	pdf.SetFillColor(200, 190, 220)
	pdf.SetLineWidth(1)
	for _, r := range l.Rects {
		pdf.Rect(cx+r.X*scale, ground-(r.Y+r.H)*scale, r.W*scale, r.H*scale, "FD")
	}
	pdf.Line(x, ground, x+w, ground)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.SetXY(x, ground+2)
	pdf.CellFormat(w, 8, fmt.Sprintf("height x%.2f  muscle x%.2f", l.Scales.Height, l.Scales.Muscle), "", 0, "C", false, 0, "")
}

// drawWavyBorder draws a softly wobbling frame around the sheet.
func drawWavyBorder(pdf *gofpdf.Fpdf) {
	pts := wavyRectPoints(margin, margin, pageW-2*margin, pageH-2*margin, 12, 3)
	pdf.SetDrawColor(40, 30, 60)
	pdf.SetLineWidth(1.5)
	pdf.Polygon(pts, "D")
	pdf.SetLineWidth(1)
}

// wavyRectPoints returns polygon points for a rectangle with sinusoidal
// wobble on each side.
func wavyRectPoints(x, y, w, h float64, steps int, amp float64) []gofpdf.PointType {
	pts := make([]gofpdf.PointType, 0, steps*4+1)
	edge := func(x0, y0, dx, dy, fx, fy float64, from int) {
		for i := from; i <= steps; i++ {
			t := float64(i) / float64(steps)
			pts = append(pts, gofpdf.PointType{
				X: x0 + t*dx + amp*math.Sin(float64(i)*fx),
				Y: y0 + t*dy + amp*math.Cos(float64(i)*fy),
			})
		}
	}
	edge(x, y, w, 0, 0.7, 0.5, 0)
	edge(x+w, y, 0, h, 0.6, 0.4, 1)
	edge(x+w, y+h, -w, 0, 0.8, 0.3, 1)
	edge(x, y+h, 0, -h, 0.5, 0.6, 1)
	return pts
}
