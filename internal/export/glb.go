package export

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"

	"avatarstudio/internal/mesh"
	"avatarstudio/internal/render"
)

// glTF binary container constants.
const (
	glbMagic      = 0x46546C67 // "glTF"
	glbVersion    = 2
	chunkJSON     = 0x4E4F534A
	chunkBIN      = 0x004E4942
	arrayBuffer   = 34962
	elementBuffer = 34963
	compFloat     = 5126
	compUint32    = 5125
	modeTriangles = 4
)

type gltfDoc struct {
	Asset       gltfAsset        `json:"asset"`
	Scene       int              `json:"scene"`
	Scenes      []gltfScene      `json:"scenes"`
	Nodes       []gltfNode       `json:"nodes"`
	Meshes      []gltfMesh       `json:"meshes"`
	Materials   []gltfMaterial   `json:"materials"`
	Accessors   []gltfAccessor   `json:"accessors"`
	BufferViews []gltfBufferView `json:"bufferViews"`
	Buffers     []gltfBuffer     `json:"buffers"`
}

type gltfAsset struct {
	Version   string `json:"version"`
	Generator string `json:"generator"`
}

type gltfScene struct {
	Name  string `json:"name"`
	Nodes []int  `json:"nodes"`
}

type gltfNode struct {
	Name string `json:"name"`
	Mesh int    `json:"mesh"`
}

type gltfMesh struct {
	Name       string          `json:"name"`
	Primitives []gltfPrimitive `json:"primitives"`
}

type gltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    int            `json:"indices"`
	Material   int            `json:"material"`
	Mode       int            `json:"mode"`
}

type gltfMaterial struct {
	Name string  `json:"name"`
	PBR  gltfPBR `json:"pbrMetallicRoughness"`
}

type gltfPBR struct {
	BaseColorFactor [4]float64 `json:"baseColorFactor"`
	MetallicFactor  float32    `json:"metallicFactor"`
	RoughnessFactor float32    `json:"roughnessFactor"`
}

type gltfAccessor struct {
	BufferView    int       `json:"bufferView"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Min           []float32 `json:"min,omitempty"`
	Max           []float32 `json:"max,omitempty"`
}

type gltfBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
	Target     int `json:"target"`
}

type gltfBuffer struct {
	ByteLength int `json:"byteLength"`
}

// EncodeGLB writes the scene as a glTF 2.0 binary: one node, mesh and
// material per shape with world-space positions and normals.
func EncodeGLB(sc mesh.Scene) ([]byte, error) {
	doc := gltfDoc{
		Asset:   gltfAsset{Version: "2.0", Generator: "avatarstudio"},
		Scenes:  []gltfScene{{Name: "avatar"}},
		Buffers: []gltfBuffer{{}},
	}
	var bin bytes.Buffer
	view := func(b []byte, target int) int {
		doc.BufferViews = append(doc.BufferViews, gltfBufferView{
			ByteOffset: bin.Len(),
			ByteLength: len(b),
			Target:     target,
		})
		bin.Write(b)
		return len(doc.BufferViews) - 1
	}
	accessor := func(a gltfAccessor) int {
		doc.Accessors = append(doc.Accessors, a)
		return len(doc.Accessors) - 1
	}

	for i, m := range render.TessellateScene(sc, render.DefaultDetail) {
		pos := make([]byte, 0, len(m.Vertices)*12)
		nrm := make([]byte, 0, len(m.Vertices)*12)
		for _, v := range m.Vertices {
			for k := 0; k < 3; k++ {
				pos = binary.LittleEndian.AppendUint32(pos, math.Float32bits(v.Position[k]))
				nrm = binary.LittleEndian.AppendUint32(nrm, math.Float32bits(v.Normal[k]))
			}
		}
		idx := make([]byte, 0, len(m.Indices)*4)
		for _, ix := range m.Indices {
			idx = binary.LittleEndian.AppendUint32(idx, ix)
		}
		lo, hi := m.Bounds()

		posAcc := accessor(gltfAccessor{
			BufferView: view(pos, arrayBuffer), ComponentType: compFloat,
			Count: len(m.Vertices), Type: "VEC3",
			Min: lo[:], Max: hi[:],
		})
		nrmAcc := accessor(gltfAccessor{
			BufferView: view(nrm, arrayBuffer), ComponentType: compFloat,
			Count: len(m.Vertices), Type: "VEC3",
		})
		idxAcc := accessor(gltfAccessor{
			BufferView: view(idx, elementBuffer), ComponentType: compUint32,
			Count: len(m.Indices), Type: "SCALAR",
		})

		r, g, b := m.Color.LinearRgb()
		doc.Materials = append(doc.Materials, gltfMaterial{
			Name: m.Name,
			PBR: gltfPBR{
				BaseColorFactor: [4]float64{r, g, b, 1},
				MetallicFactor:  m.Metalness,
				RoughnessFactor: m.Roughness,
			},
		})
		doc.Meshes = append(doc.Meshes, gltfMesh{
			Name: m.Name,
			Primitives: []gltfPrimitive{{
				Attributes: map[string]int{"POSITION": posAcc, "NORMAL": nrmAcc},
				Indices:    idxAcc,
				Material:   i,
				Mode:       modeTriangles,
			}},
		})
		doc.Nodes = append(doc.Nodes, gltfNode{Name: m.Name, Mesh: i})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, i)
	}
	doc.Buffers[0].ByteLength = bin.Len()

	js, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	js = pad(js, ' ')
	binChunk := pad(bin.Bytes(), 0)

	var out bytes.Buffer
	total := 12 + 8 + len(js) + 8 + len(binChunk)
	for _, v := range []uint32{glbMagic, glbVersion, uint32(total), uint32(len(js)), chunkJSON} {
		_ = binary.Write(&out, binary.LittleEndian, v)
	}
	out.Write(js)
	_ = binary.Write(&out, binary.LittleEndian, uint32(len(binChunk)))
	_ = binary.Write(&out, binary.LittleEndian, uint32(chunkBIN))
	out.Write(binChunk)
	return out.Bytes(), nil
}

// pad extends b to a multiple of four bytes.
func pad(b []byte, with byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, with)
	}
	return b
}
