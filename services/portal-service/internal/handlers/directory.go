package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/directory"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/medapi"
)

type DirectoryHandler struct {
	dir    *directory.Service
	logger *slog.Logger
}

func NewDirectoryHandler(dir *directory.Service, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{dir: dir, logger: logger}
}

func (h *DirectoryHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/doctors", h.Doctors)
	mux.HandleFunc("/api/v1/doctors/browse", h.Browse)
	mux.HandleFunc("/api/v1/specializations", h.Specializations)
}

func (h *DirectoryHandler) Doctors(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	listing, err := h.dir.ListDoctors(r.Context(), medapi.Page(q.Get("page")), medapi.PageSize(q.Get("page_size")))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *DirectoryHandler) Browse(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	specializationID := strings.TrimSpace(q.Get("specialization_id"))
	if specializationID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "specialization_id is required"})
		return
	}
	listing, err := h.dir.BrowseDoctors(r.Context(), specializationID, medapi.Page(q.Get("page")), medapi.PageSize(q.Get("page_size")))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *DirectoryHandler) Specializations(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	page, err := h.dir.ListSpecializations(r.Context(), medapi.Page(q.Get("page")), medapi.PageSize(q.Get("page_size")))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
