package web

import (
	"context"
	"fmt"
	"net/http"

	"avatarstudio/internal/export"
	"avatarstudio/internal/mesh"
	"avatarstudio/internal/pipeline"
	"avatarstudio/internal/session"
	"avatarstudio/internal/texture"

	"github.com/go-chi/chi/v5"
)

// GenerationResult is the output of a finished generation job.
type GenerationResult struct {
	UsedPhoto  bool   `json:"usedPhoto"`
	Shapes     int    `json:"shapes"`
	TextureURL string `json:"textureUrl"`
}

// generationPhases builds the avatar from a snapshot of ed.
func (s *Server) generationPhases(ed session.Editor) []pipeline.Phase {
	var (
		res GenerationResult
		sc  mesh.Scene
	)
	return []pipeline.Phase{
		{Name: "analyzing", Run: func(_ context.Context, j *pipeline.Job) error {
			res.UsedPhoto = ed.Photo != ""
			j.Report(1)
			return nil
		}},
		{Name: "building", Run: func(_ context.Context, j *pipeline.Job) error {
			sc = mesh.Build(ed.Settings)
			res.Shapes = len(sc.Shapes)
			j.Report(1)
			return nil
		}},
		{Name: "texturing", Run: func(ctx context.Context, j *pipeline.Job) error {
			img := texture.Synthesize(texture.ParamsFrom(ed.Settings), texture.DefaultQuality, ed.Texture, texture.Zero{})
			j.Report(0.5)
			b, err := texture.EncodePNG(img)
			if err != nil {
				return err
			}
			ref, err := s.Blobs.PutBytes(ctx, "texture.png", b)
			if err != nil {
				return err
			}
			res.TextureURL = ref.URL
			j.Report(1)
			return nil
		}},
		{Name: "finalizing", Run: func(_ context.Context, j *pipeline.Job) error {
			j.SetResult(res)
			return nil
		}},
	}
}

// POST /api/generate
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id, ed, err := s.editor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	j := s.Runner.Start(id, pipeline.Generation, s.generationPhases(ed)...)
	writeJSON(w, http.StatusAccepted, j.Status())
}

type exportRequest struct {
	Format string `json:"format"`
	Name   string `json:"name"`
}

// exportPhases encodes and stores one artifact from a snapshot.
func (s *Server) exportPhases(f export.Format, in export.Input) []pipeline.Phase {
	var b []byte
	return []pipeline.Phase{
		{Name: "preparing", Run: func(_ context.Context, j *pipeline.Job) error {
			if in.Name == "" {
				in.Name = "avatar"
			}
			j.Report(1)
			return nil
		}},
		{Name: "encoding", Run: func(ctx context.Context, j *pipeline.Job) error {
			var err error
			b, err = s.Exporter.Encode(ctx, f, in)
			j.Report(1)
			return err
		}},
		{Name: "storing", Run: func(ctx context.Context, j *pipeline.Job) error {
			ref, err := s.Exporter.Store(ctx, f, in, b)
			if err != nil {
				return err
			}
			j.SetResult(ref)
			return nil
		}},
	}
}

// POST /api/exports
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := export.ParseFormat(req.Format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, ed, err := s.editor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	in := export.Input{Name: req.Name, Settings: ed.Settings, Lighting: ed.Lighting}
	j := s.Runner.Start(id, pipeline.Export, s.exportPhases(f, in)...)
	writeJSON(w, http.StatusAccepted, j.Status())
}

func (s *Server) currentJob(w http.ResponseWriter, r *http.Request) (string, pipeline.Kind, *pipeline.Job, error) {
	kind, err := pipeline.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", "", nil, err
	}
	id := s.sessionID(w, r)
	j, ok := s.Runner.Current(id, kind)
	if !ok {
		return id, kind, nil, fmt.Errorf("%w: no %s job for this session", errNoJob, kind)
	}
	return id, kind, j, nil
}

// GET /api/jobs/{kind}
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	_, _, j, err := s.currentJob(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, j.Status())
}

// DELETE /api/jobs/{kind}
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id, kind, j, err := s.currentJob(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.Runner.Cancel(id, kind) {
		// The job goroutine records the terminal state.
		if _, err := j.Wait(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, j.Status())
}

