package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/filevault/internal/files"
)

// HandlerFunc is an http handler that reports failures by returning them.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle renders any error the handler returns.
func (s *Server) handle(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(w, r, s.log, err)
		}
	}
}

type presignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type finalizeRequest struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type finalizeResponse struct {
	Status string     `json:"status"`
	File   files.View `json:"file"`
}

type listResponse struct {
	Items  []files.View `json:"items"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

type downloadResponse struct {
	URL string `json:"url"`
}

func (s *Server) presignUpload(w http.ResponseWriter, r *http.Request) error {
	var req presignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if req.Filename == "" {
		return errBadRequest("filename is required")
	}

	ticket, err := s.files.PresignUpload(r.Context(), caller(r), req.Filename, req.ContentType)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, ticket)
	return nil
}

func (s *Server) finalize(w http.ResponseWriter, r *http.Request) error {
	var req finalizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if req.Key == "" || req.Filename == "" {
		return errBadRequest("key and filename are required")
	}

	res, err := s.files.Finalize(r.Context(), caller(r), files.FinalizeInput{
		Key:         req.Key,
		Filename:    req.Filename,
		ContentType: req.ContentType,
	})
	if err != nil {
		return err
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, finalizeResponse{Status: res.Status(), File: res.File})
	return nil
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) error {
	limit, offset, err := pagination(r)
	if err != nil {
		return err
	}
	items, err := s.files.List(r.Context(), caller(r), limit, offset)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newListResponse(items, limit, offset))
	return nil
}

func (s *Server) listAllFiles(w http.ResponseWriter, r *http.Request) error {
	limit, offset, err := pagination(r)
	if err != nil {
		return err
	}
	items, err := s.files.ListAll(r.Context(), caller(r), limit, offset)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newListResponse(items, limit, offset))
	return nil
}

func (s *Server) getFile(w http.ResponseWriter, r *http.Request) error {
	id, err := fileID(r)
	if err != nil {
		return err
	}
	view, err := s.files.Get(r.Context(), caller(r), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, view)
	return nil
}

func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request) error {
	id, err := fileID(r)
	if err != nil {
		return err
	}
	url, err := s.files.DownloadURL(r.Context(), caller(r), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, downloadResponse{URL: url})
	return nil
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) error {
	id, err := fileID(r)
	if err != nil {
		return err
	}
	if err := s.files.Delete(r.Context(), caller(r), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func caller(r *http.Request) files.Caller {
	p, _ := PrincipalFromContext(r.Context())
	return p.Caller()
}

func fileID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadRequest("file id must be a positive integer")
	}
	return id, nil
}

// pagination reads limit and offset. A missing limit means the default page
// size; an explicit one must be within 1..MaxPageSize.
func pagination(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()

	limit = files.DefaultPageSize
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > files.MaxPageSize {
			return 0, 0, errBadRequest("limit must be between 1 and " + strconv.Itoa(files.MaxPageSize))
		}
	}
	if v := q.Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, errBadRequest("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

func newListResponse(items []files.View, limit, offset int) listResponse {
	if items == nil {
		items = []files.View{}
	}
	return listResponse{Items: items, Limit: limit, Offset: offset}
}
