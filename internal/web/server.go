// Package web is the HTTP surface of the avatar editor: a JSON API over the
// live editor session plus a minimal HTML shell.
package web

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"avatarstudio/internal/auth"
	"avatarstudio/internal/avatar"
	"avatarstudio/internal/blob"
	"avatarstudio/internal/display"
	"avatarstudio/internal/export"
	"avatarstudio/internal/pipeline"
	"avatarstudio/internal/session"
	"avatarstudio/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wires the editor collaborators to HTTP.
type Server struct {
	Catalog  *avatar.Catalog
	Sessions session.Store[session.Editor]
	Prober   display.Prober
	Runner   *pipeline.Runner
	Exporter *export.Exporter
	Blobs    *blob.Store
	Avatars  *store.Store
	Auth     *auth.Service
	Logger   *slog.Logger
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool

	tmpl *template.Template
}

const cookieName = "avatar_sid"

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	if s.tmpl == nil {
		s.tmpl = shellTemplate
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.Auth.Middleware)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/settings", s.handleGetSettings)
		r.Patch("/settings", s.handlePatchSettings)
		r.Post("/settings/reset", s.handleReset)
		r.Patch("/lighting", s.handlePatchLighting)
		r.Patch("/texture", s.handlePatchTexture)
		r.Get("/presets", s.handlePresets)
		r.Post("/presets/{name}", s.handleApplyPreset)
		r.Post("/lighting/presets/{name}", s.handleApplyLightingPreset)

		r.Get("/scene", s.handleScene)
		r.Get("/view", s.handleView)
		r.Get("/texture.png", s.handleTexture)
		r.Get("/schematic.png", s.handleSchematic)

		r.Post("/uploads/model", s.handleUploadModel)
		r.Delete("/uploads/model", s.handleClearModel)
		r.Post("/uploads/photo", s.handleUploadPhoto)

		r.Post("/generate", s.handleGenerate)
		r.Post("/exports", s.handleExport)
		r.Get("/jobs/{kind}", s.handleJob)
		r.Delete("/jobs/{kind}", s.handleCancelJob)

		r.Route("/avatars", func(r chi.Router) {
			r.Use(auth.RequireUser)
			r.Get("/", s.handleListAvatars)
			r.Post("/", s.handleSaveAvatar)
			r.Get("/{id}", s.handleGetAvatar)
			r.Put("/{id}", s.handleUpdateAvatar)
			r.Delete("/{id}", s.handleDeleteAvatar)
			r.Post("/{id}/load", s.handleLoadAvatar)
		})
	})

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", s.handleLogout)
	r.With(auth.RequireUser).Get("/auth/me", s.handleMe)

	r.Get("/files/{id}", s.handleFile)
	return r
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger().Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// sessionID returns the editor id from the cookie, minting and setting a
// new one when absent.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := s.Sessions.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// editor returns the live editor for the request, creating a fresh one for
// new or expired sessions.
func (s *Server) editor(w http.ResponseWriter, r *http.Request) (string, session.Editor, error) {
	id := s.sessionID(w, r)
	ed, err := s.Sessions.Update(r.Context(), id, func(ed session.Editor, ok bool) (session.Editor, error) {
		if !ok {
			return session.NewEditor(), nil
		}
		return ed, nil
	})
	return id, ed, err
}

// mutate applies fn to the request's editor. An error from fn leaves the
// editor unchanged.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(*session.Editor) error) (string, session.Editor, error) {
	id := s.sessionID(w, r)
	ed, err := s.Sessions.Update(r.Context(), id, func(ed session.Editor, ok bool) (session.Editor, error) {
		if !ok {
			ed = session.NewEditor()
		}
		if err := fn(&ed); err != nil {
			return ed, err
		}
		return ed, nil
	})
	return id, ed, err
}

