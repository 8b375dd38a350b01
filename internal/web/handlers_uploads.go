package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"avatarstudio/internal/intake"
	"avatarstudio/internal/session"
)

// multipartSlack covers form boundaries and headers around the file.
const multipartSlack = 1 << 20

// formFile opens the "file" part of a multipart upload capped at limit.
func formFile(w http.ResponseWriter, r *http.Request, limit int64) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartSlack)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: missing file field", errBadRequest)
	}
	return f, hdr, nil
}

// POST /api/uploads/model
func (s *Server) handleUploadModel(w http.ResponseWriter, r *http.Request) {
	f, hdr, err := formFile(w, r, intake.MaxModelBytes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer f.Close()

	m, err := intake.AcceptModel(r.Context(), s.Blobs, hdr.Filename, hdr.Size, f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var replaced *intake.Model
	_, ed, err := s.mutate(w, r, func(ed *session.Editor) error {
		replaced = ed.Model
		ed.Model = &m
		return nil
	})
	if err != nil {
		_ = s.Blobs.Delete(m.ID)
		s.writeError(w, r, err)
		return
	}
	if replaced != nil {
		s.deleteBlob(replaced.ID)
	}
	s.logger().Info("model uploaded", "id", m.ID, "name", m.DisplayName, "size", m.Size)
	writeJSON(w, http.StatusCreated, editorView(ed))
}

// DELETE /api/uploads/model
func (s *Server) handleClearModel(w http.ResponseWriter, r *http.Request) {
	var removed *intake.Model
	_, ed, err := s.mutate(w, r, func(ed *session.Editor) error {
		removed, ed.Model = ed.Model, nil
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if removed != nil {
		s.deleteBlob(removed.ID)
	}
	writeJSON(w, http.StatusOK, editorView(ed))
}

// POST /api/uploads/photo
func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	f, hdr, err := formFile(w, r, intake.MaxPhotoBytes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer f.Close()

	url, err := intake.PhotoDataURL(hdr.Filename, f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, _, err := s.mutate(w, r, func(ed *session.Editor) error {
		ed.Photo = url
		return nil
	}); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"photo": url})
}

func (s *Server) deleteBlob(id string) {
	if err := s.Blobs.Delete(id); err != nil {
		s.logger().Warn("delete blob", "id", id, "err", err)
	}
}
