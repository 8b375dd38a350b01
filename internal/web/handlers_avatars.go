package web

import (
	"context"
	"net/http"
	"path"
	"strconv"

	"avatarstudio/internal/auth"
	"avatarstudio/internal/export"
	"avatarstudio/internal/session"
	"avatarstudio/internal/store"

	"github.com/go-chi/chi/v5"
)

// userID is only called behind auth.RequireUser.
func userID(r *http.Request) string {
	return auth.ClaimsFrom(r.Context()).UserID
}

// GET /api/avatars
func (s *Server) handleListAvatars(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < limit {
			limit = n
		}
	}
	list, err := s.Avatars.List(r.Context(), userID(r), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type saveRequest struct {
	Name string `json:"name"`
}

// thumbnail renders a preview blob; failures only cost the preview.
func (s *Server) thumbnail(ctx context.Context, name string, ed session.Editor) string {
	ref, err := s.Exporter.Thumbnail(ctx, export.Input{Name: name, Settings: ed.Settings, Lighting: ed.Lighting})
	if err != nil {
		s.logger().Warn("thumbnail", "err", err)
		return ""
	}
	return ref.URL
}

func (s *Server) dropThumbnail(url string) {
	if url != "" {
		s.deleteBlob(path.Base(url))
	}
}

// POST /api/avatars saves the current editor state.
func (s *Server) handleSaveAvatar(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	name, err := store.NormalizeName(req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_, ed, err := s.editor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	thumb := s.thumbnail(r.Context(), name, ed)
	saved, err := s.Avatars.Create(r.Context(), store.SavedAvatar{
		UserID:       userID(r),
		Name:         name,
		Settings:     ed.Settings,
		Lighting:     ed.Lighting,
		ThumbnailURL: thumb,
	})
	if err != nil {
		s.dropThumbnail(thumb)
		s.writeError(w, r, err)
		return
	}
	if _, _, err := s.mutate(w, r, func(ed *session.Editor) error {
		ed.LoadedID = saved.ID
		return nil
	}); err != nil {
		s.logger().Warn("record saved avatar", "id", saved.ID, "err", err)
	}
	s.logger().Info("avatar saved", "id", saved.ID, "user", saved.UserID)
	writeJSON(w, http.StatusCreated, saved)
}

// GET /api/avatars/{id}
func (s *Server) handleGetAvatar(w http.ResponseWriter, r *http.Request) {
	a, err := s.Avatars.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type updateRequest struct {
	Name *string `json:"name"`
	// FromEditor replaces the snapshot with the current editor state.
	FromEditor bool `json:"fromEditor"`
}

// PUT /api/avatars/{id}
func (s *Server) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := r.Context()
	id, uid := chi.URLParam(r, "id"), userID(r)
	prev, err := s.Avatars.Get(ctx, uid, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	c := store.Changes{Name: req.Name}
	var thumb string
	if req.FromEditor {
		_, ed, err := s.editor(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		name := prev.Name
		if req.Name != nil {
			name = *req.Name
		}
		thumb = s.thumbnail(ctx, name, ed)
		c.Settings, c.Lighting, c.ThumbnailURL = &ed.Settings, &ed.Lighting, &thumb
	}
	a, err := s.Avatars.Update(ctx, uid, id, c)
	if err != nil {
		s.dropThumbnail(thumb)
		s.writeError(w, r, err)
		return
	}
	if req.FromEditor {
		s.dropThumbnail(prev.ThumbnailURL)
	}
	writeJSON(w, http.StatusOK, a)
}

// DELETE /api/avatars/{id}
func (s *Server) handleDeleteAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, uid := chi.URLParam(r, "id"), userID(r)
	a, err := s.Avatars.Get(ctx, uid, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Avatars.Delete(ctx, uid, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.dropThumbnail(a.ThumbnailURL)
	if _, _, err := s.mutate(w, r, func(ed *session.Editor) error {
		if ed.LoadedID == id {
			ed.LoadedID = ""
		}
		return nil
	}); err != nil {
		s.logger().Warn("clear loaded avatar", "id", id, "err", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/avatars/{id}/load copies the snapshot into the editor.
func (s *Server) handleLoadAvatar(w http.ResponseWriter, r *http.Request) {
	a, err := s.Avatars.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondMutation(w, r, func(ed *session.Editor) error {
		ed.Settings = a.Settings
		ed.Lighting = a.Lighting
		ed.LoadedID = a.ID
		return nil
	})
}
