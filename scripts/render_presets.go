// render_presets renders every body preset under the studio lighting preset
// to <outdir>/<name>.png, plus a schematic of each and a PDF character sheet
// under <outdir>/sheets.
// Usage: go run scripts/render_presets.go [outdir] [presets.yaml]
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"avatarstudio/internal/avatar"
	"avatarstudio/internal/blob"
	"avatarstudio/internal/display"
	"avatarstudio/internal/export"
	"avatarstudio/internal/lighting"
	"avatarstudio/internal/mesh"
	"avatarstudio/internal/render"

	"github.com/anthonynsimon/bild/imgio"
)

func main() {
	code := run()
	if code != 0 {
		os.Exit(code)
	}
}

func run() int {
	outDir := "presets"
	if len(os.Args) > 1 {
		outDir = filepath.Clean(os.Args[1])
	}
	if strings.Contains(outDir, "..") {
		fmt.Fprintf(os.Stderr, "path must not escape current directory\n")
		return 1
	}
	catalog := avatar.DefaultCatalog()
	if len(os.Args) > 2 {
		c, err := avatar.LoadCatalog(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "load presets: %v\n", err)
			return 1
		}
		catalog = c
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir %s: %v\n", outDir, err)
		return 1
	}

	light := avatar.DefaultLighting()
	if p, ok := catalog.LightingPreset("studio"); ok {
		light = p.Apply(light)
	}
	rig := lighting.NewRig(light)
	opts := render.DefaultOptions()

	sheets, err := blob.NewStore(filepath.Join(outDir, "sheets"), "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	exp := &export.Exporter{Blobs: sheets}
	ctx := context.Background()

	for _, p := range catalog.Body {
		s := p.Apply(avatar.Default())
		img := render.Render(mesh.Build(s), rig, opts)
		path := filepath.Join(outDir, p.Name+".png")
		if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
			return 1
		}
		schematic := filepath.Join(outDir, p.Name+"_schematic.png")
		if err := imgio.Save(schematic, display.SchematicImage(s), imgio.PNGEncoder()); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", schematic, err)
			return 1
		}
		ref, err := exp.Export(ctx, export.PDFSheet, export.Input{Name: p.Label, Settings: s, Lighting: light})
		if err != nil {
			fmt.Fprintf(os.Stderr, "sheet %s: %v\n", p.Name, err)
			return 1
		}
		fmt.Printf("%s -> %s, sheets/%s\n", p.Label, path, ref.ID)
	}
	return 0
}
