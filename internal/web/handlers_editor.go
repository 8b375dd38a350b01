package web

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"

	"avatarstudio/internal/avatar"
	"avatarstudio/internal/display"
	"avatarstudio/internal/session"
	"avatarstudio/internal/texture"

	"github.com/go-chi/chi/v5"
)

// textureSeed fixes the skin grain so identical requests give identical
// images.
const textureSeed = 0x5eed

// GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	_, ed, err := s.editor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	data := ShellData{
		View:     makeView(s.Prober.Probe(r), ed),
		Settings: ed.Settings,
		Catalog:  s.Catalog,
	}
	if err := s.tmpl.ExecuteTemplate(w, "shell.html", data); err != nil {
		s.logger().Error("render shell", "err", err)
	}
}

// GET /api/settings
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	_, ed, err := s.editor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, editorView(ed))
}

// PATCH /api/settings
func (s *Server) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	var p avatar.Patch
	if err := decodeJSON(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondMutation(w, r, func(ed *session.Editor) error {
		ed.Settings = ed.Settings.Apply(p)
		return nil
	})
}

// PATCH /api/lighting
func (s *Server) handlePatchLighting(w http.ResponseWriter, r *http.Request) {
	var p avatar.LightingPatch
	if err := decodeJSON(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondMutation(w, r, func(ed *session.Editor) error {
		ed.Lighting = ed.Lighting.Apply(p)
		return nil
	})
}

type tuningPatch struct {
	MuscleIntensity *int `json:"muscleIntensity"`
	SkinDetail      *int `json:"skinDetail"`
	Vascularization *int `json:"vascularization"`
}

func (p tuningPatch) apply(tu texture.Tuning) texture.Tuning {
	if p.MuscleIntensity != nil {
		tu.MuscleIntensity = avatar.SliderRange.Clamp(*p.MuscleIntensity)
	}
	if p.SkinDetail != nil {
		tu.SkinDetail = avatar.SliderRange.Clamp(*p.SkinDetail)
	}
	if p.Vascularization != nil {
		tu.Vascularization = avatar.SliderRange.Clamp(*p.Vascularization)
	}
	return tu
}

// PATCH /api/texture
func (s *Server) handlePatchTexture(w http.ResponseWriter, r *http.Request) {
	var p tuningPatch
	if err := decodeJSON(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondMutation(w, r, func(ed *session.Editor) error {
		ed.Texture = p.apply(ed.Texture)
		return nil
	})
}

// POST /api/settings/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.respondMutation(w, r, func(ed *session.Editor) error {
		ed.Settings = avatar.Default()
		ed.Lighting = avatar.DefaultLighting()
		ed.Texture = texture.DefaultTuning()
		ed.LoadedID = ""
		return nil
	})
}

// GET /api/presets
func (s *Server) handlePresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Catalog)
}

// POST /api/presets/{name}
func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, ok := s.Catalog.BodyPreset(name)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: body preset %q", errNoPreset, name))
		return
	}
	s.respondMutation(w, r, func(ed *session.Editor) error {
		ed.Settings = p.Apply(ed.Settings)
		return nil
	})
}

// POST /api/lighting/presets/{name}
func (s *Server) handleApplyLightingPreset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, ok := s.Catalog.LightingPreset(name)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: lighting preset %q", errNoPreset, name))
		return
	}
	s.respondMutation(w, r, func(ed *session.Editor) error {
		ed.Lighting = p.Apply(ed.Lighting)
		return nil
	})
}

func (s *Server) respondMutation(w http.ResponseWriter, r *http.Request, fn func(*session.Editor) error) {
	_, ed, err := s.mutate(w, r, fn)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, editorView(ed))
}

// GET /api/scene
func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	_, ed, err := s.editor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sceneView(ed))
}

// GET /api/view
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	_, ed, err := s.editor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c := s.Prober.Probe(r)
	if !c.ThreeD {
		s.logger().Debug("schematic fallback", "reason", c.Reason)
	}
	writeJSON(w, http.StatusOK, makeView(c, ed))
}

// GET /api/texture.png
func (s *Server) handleTexture(w http.ResponseWriter, r *http.Request) {
	_, ed, err := s.editor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	quality := texture.DefaultQuality
	if v := q.Get("quality"); v != "" {
		if quality, err = strconv.Atoi(v); err != nil {
			s.writeError(w, r, fmt.Errorf("%w: quality must be an integer", errBadRequest))
			return
		}
	}
	var p tuningPatch
	for _, f := range []struct {
		name string
		dst  **int
	}{
		{"muscleIntensity", &p.MuscleIntensity},
		{"skinDetail", &p.SkinDetail},
		{"vascularization", &p.Vascularization},
	} {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %s must be an integer", errBadRequest, f.name))
			return
		}
		*f.dst = &n
	}

	rng := rand.New(rand.NewPCG(textureSeed, uint64(quality)))
	img := texture.Synthesize(texture.ParamsFrom(ed.Settings), quality, p.apply(ed.Texture), rng)
	b, err := texture.EncodePNG(img)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writePNG(w, b)
}

// GET /api/schematic.png
func (s *Server) handleSchematic(w http.ResponseWriter, r *http.Request) {
	_, ed, err := s.editor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := display.SchematicPNG(ed.Settings)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writePNG(w, b)
}

func writePNG(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	_, _ = w.Write(b)
}
