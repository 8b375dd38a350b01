package export

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"avatarstudio/internal/mesh"
	"avatarstudio/internal/render"
)

// fbxIDBase keeps object ids clear of the root (0).
const fbxIDBase = 100000

// EncodeFBX writes an ASCII FBX 7.4 document with a Geometry, Model and
// Material per shape.
func EncodeFBX(sc mesh.Scene) ([]byte, error) {
	meshes := render.TessellateScene(sc, render.DefaultDetail)
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	fmt.Fprintln(w, "; FBX 7.4.0 project file")
	fmt.Fprintln(w, "; Created by avatarstudio")
	fmt.Fprintln(w, "FBXHeaderExtension:  {")
	fmt.Fprintln(w, "\tFBXHeaderVersion: 1003")
	fmt.Fprintln(w, "\tFBXVersion: 7400")
	fmt.Fprintln(w, "\tCreator: \"avatarstudio\"")
	fmt.Fprintln(w, "}")
	fmt.Fprintln(w, "GlobalSettings:  {")
	fmt.Fprintln(w, "\tVersion: 1000")
	fmt.Fprintln(w, "\tProperties70:  {")
	fmt.Fprintln(w, "\t\tP: \"UpAxis\", \"int\", \"Integer\", \"\",1")
	fmt.Fprintln(w, "\t\tP: \"UnitScaleFactor\", \"double\", \"Number\", \"\",100")
	fmt.Fprintln(w, "\t}")
	fmt.Fprintln(w, "}")
	fmt.Fprintln(w, "Definitions:  {")
	fmt.Fprintf(w, "\tCount: %d\n", 3*len(meshes))
	for _, t := range []string{"Geometry", "Model", "Material"} {
		fmt.Fprintf(w, "\tObjectType: %q {\n\t\tCount: %d\n\t}\n", t, len(meshes))
	}
	fmt.Fprintln(w, "}")

	fmt.Fprintln(w, "Objects:  {")
	for i, m := range meshes {
		geo, model, mat := fbxIDs(i)
		var verts, normals, poly []string
		for _, v := range m.Vertices {
			verts = append(verts, fbxFloat(v.Position[0]), fbxFloat(v.Position[1]), fbxFloat(v.Position[2]))
		}
		for t := 0; t+2 < len(m.Indices); t += 3 {
			a, b, c := m.Indices[t], m.Indices[t+1], m.Indices[t+2]
			// The last index of each polygon is stored as -(i+1).
			poly = append(poly, strconv.Itoa(int(a)), strconv.Itoa(int(b)), strconv.Itoa(-int(c)-1))
			for _, ix := range [3]uint32{a, b, c} {
				n := m.Vertices[ix].Normal
				normals = append(normals, fbxFloat(n[0]), fbxFloat(n[1]), fbxFloat(n[2]))
			}
		}
		fmt.Fprintf(w, "\tGeometry: %d, \"Geometry::%s\", \"Mesh\" {\n", geo, m.Name)
		fmt.Fprintf(w, "\t\tVertices: *%d {\n\t\t\ta: %s\n\t\t}\n", len(verts), strings.Join(verts, ","))
		fmt.Fprintf(w, "\t\tPolygonVertexIndex: *%d {\n\t\t\ta: %s\n\t\t}\n", len(poly), strings.Join(poly, ","))
		fmt.Fprintln(w, "\t\tGeometryVersion: 124")
		fmt.Fprintln(w, "\t\tLayerElementNormal: 0 {")
		fmt.Fprintln(w, "\t\t\tVersion: 101")
		fmt.Fprintln(w, "\t\t\tMappingInformationType: \"ByPolygonVertex\"")
		fmt.Fprintln(w, "\t\t\tReferenceInformationType: \"Direct\"")
		fmt.Fprintf(w, "\t\t\tNormals: *%d {\n\t\t\t\ta: %s\n\t\t\t}\n", len(normals), strings.Join(normals, ","))
		fmt.Fprintln(w, "\t\t}")
		fmt.Fprintln(w, "\t\tLayer: 0 {")
		fmt.Fprintln(w, "\t\t\tVersion: 100")
		fmt.Fprintln(w, "\t\t\tLayerElement:  {\n\t\t\t\tType: \"LayerElementNormal\"\n\t\t\t\tTypedIndex: 0\n\t\t\t}")
		fmt.Fprintln(w, "\t\t}")
		fmt.Fprintln(w, "\t}")

		fmt.Fprintf(w, "\tModel: %d, \"Model::%s\", \"Mesh\" {\n", model, m.Name)
		fmt.Fprintln(w, "\t\tVersion: 232")
		fmt.Fprintln(w, "\t\tShading: T")
		fmt.Fprintln(w, "\t\tCulling: \"CullingOff\"")
		fmt.Fprintln(w, "\t}")

		c := m.Color.Clamped()
		fmt.Fprintf(w, "\tMaterial: %d, \"Material::%s\", \"\" {\n", mat, m.Name)
		fmt.Fprintln(w, "\t\tVersion: 102")
		fmt.Fprintln(w, "\t\tShadingModel: \"phong\"")
		fmt.Fprintln(w, "\t\tProperties70:  {")
		fmt.Fprintf(w, "\t\t\tP: \"DiffuseColor\", \"Color\", \"\", \"A\",%s,%s,%s\n",
			fbxFloat64(c.R), fbxFloat64(c.G), fbxFloat64(c.B))
		fmt.Fprintf(w, "\t\t\tP: \"Shininess\", \"double\", \"Number\", \"\",%s\n", fbxFloat64(float64(1-m.Roughness)*100))
		fmt.Fprintln(w, "\t\t}")
		fmt.Fprintln(w, "\t}")
	}
	fmt.Fprintln(w, "}")

	fmt.Fprintln(w, "Connections:  {")
	for i := range meshes {
		geo, model, mat := fbxIDs(i)
		fmt.Fprintf(w, "\tC: \"OO\",%d,0\n", model)
		fmt.Fprintf(w, "\tC: \"OO\",%d,%d\n", geo, model)
		fmt.Fprintf(w, "\tC: \"OO\",%d,%d\n", mat, model)
	}
	fmt.Fprintln(w, "}")

	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fbxIDs(i int) (geo, model, mat int64) {
	base := int64(fbxIDBase + i*3)
	return base, base + 1, base + 2
}

func fbxFloat(v float32) string   { return strconv.FormatFloat(float64(v), 'f', 5, 32) }
func fbxFloat64(v float64) string { return strconv.FormatFloat(v, 'f', 5, 64) }
