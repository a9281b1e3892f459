package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oakhurst-media/catalogbackend/models"
	"github.com/oakhurst-media/catalogbackend/repository"
)

type LibraryHandler struct {
	Libraries repository.LibraryRepositoryInterface
}

// ListLibraries handles GET /api/libraries
func (h *LibraryHandler) ListLibraries(w http.ResponseWriter, r *http.Request) {
	libraries, err := h.Libraries.ListAll()
	if err != nil {
		log.Printf("Error listing libraries: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal", "Failed to retrieve libraries")
		return
	}
	writeJSON(w, http.StatusOK, libraries)
}

// CreateLibrary handles POST /api/libraries
func (h *LibraryHandler) CreateLibrary(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		FolderPath string `json:"folder_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Missing required field: name")
		return
	}

	library := &models.Library{Name: req.Name, FolderPath: req.FolderPath}
	if err := h.Libraries.Create(library); err != nil {
		log.Printf("Error creating library '%s': %v", req.Name, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal", "Failed to create library")
		return
	}
	writeJSON(w, http.StatusCreated, library)
}

// GetLibrary handles GET /api/libraries/{library_id}
func (h *LibraryHandler) GetLibrary(w http.ResponseWriter, r *http.Request) {
	libraryID := chi.URLParam(r, "library_id")
	library, err := h.Libraries.GetByID(libraryID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, library)
}

// UpdateLibrary handles PUT /api/libraries/{library_id}
func (h *LibraryHandler) UpdateLibrary(w http.ResponseWriter, r *http.Request) {
	libraryID := chi.URLParam(r, "library_id")
	library, err := h.Libraries.GetByID(libraryID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req struct {
		Name       *string `json:"name"`
		FolderPath *string `json:"folder_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Name != nil {
		library.Name = *req.Name
	}
	if req.FolderPath != nil {
		library.FolderPath = *req.FolderPath
	}

	if err := h.Libraries.Update(library); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, library)
}

// DeleteLibrary handles DELETE /api/libraries/{library_id}
func (h *LibraryHandler) DeleteLibrary(w http.ResponseWriter, r *http.Request) {
	libraryID := chi.URLParam(r, "library_id")
	if _, err := h.Libraries.GetByID(libraryID); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.Libraries.Delete(libraryID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
