package export

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"avatarstudio/internal/mesh"
	"avatarstudio/internal/render"
)

// EncodeOBJ writes a Wavefront OBJ with one object per shape. Colours are
// carried as per-vertex RGB after the position, as most DCC tools accept.
func EncodeOBJ(sc mesh.Scene) ([]byte, error) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	fmt.Fprintln(w, "# avatarstudio OBJ export")
	base := 1
	for _, m := range render.TessellateScene(sc, render.DefaultDetail) {
		fmt.Fprintf(w, "o %s\n", objName(m.Name))
		c := m.Color.Clamped()
		for _, v := range m.Vertices {
			p := v.Position
			fmt.Fprintf(w, "v %.5f %.5f %.5f %.4f %.4f %.4f\n", p[0], p[1], p[2], c.R, c.G, c.B)
		}
		for _, v := range m.Vertices {
			n := v.Normal
			fmt.Fprintf(w, "vn %.5f %.5f %.5f\n", n[0], n[1], n[2])
		}
		for i := 0; i+2 < len(m.Indices); i += 3 {
			a := base + int(m.Indices[i])
			b := base + int(m.Indices[i+1])
			c := base + int(m.Indices[i+2])
			fmt.Fprintf(w, "f %d//%d %d//%d %d//%d\n", a, a, b, b, c, c)
		}
		base += len(m.Vertices)
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func objName(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return '_'
		}
		return r
	}, s)
}
