package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oakhurst-media/catalogbackend/models"
	"github.com/oakhurst-media/catalogbackend/repository"
	"github.com/oakhurst-media/catalogbackend/services"
)

type BookHandler struct {
	Books    repository.BookRepositoryInterface
	Authors  repository.AuthorRepositoryInterface
	Metadata services.MetadataWriter
	Notifier services.Notifier
}

// ListBooks handles GET /api/books with an optional library_id filter.
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	libraryID := r.URL.Query().Get("library_id")
	if libraryID == "" {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Missing required query parameter: library_id")
		return
	}

	books, err := h.Books.ListByLibrary(libraryID)
	if err != nil {
		log.Printf("Error listing books for library %s: %v", libraryID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal", "Failed to retrieve books")
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// CreateBook handles POST /api/books
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title     string   `json:"title"`
		LibraryID string   `json:"library_id"`
		AuthorIDs []string `json:"author_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.LibraryID) == "" {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Missing required fields: title, library_id")
		return
	}

	book := &models.Book{Title: req.Title, LibraryID: req.LibraryID}
	if err := h.Books.Create(book); err != nil {
		log.Printf("Error creating book '%s': %v", req.Title, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal", "Failed to create book")
		return
	}

	if len(req.AuthorIDs) > 0 {
		if err := h.Books.SetAuthors(book.ID, req.AuthorIDs); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	created, err := h.Books.GetByID(book.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.Metadata.SaveMetadata(*created); err != nil {
		log.Printf("Error saving metadata for book %s: %v", created.ID, err)
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetBook handles GET /api/books/{book_id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "book_id")
	book, err := h.Books.GetByID(bookID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// SetAuthors handles PUT /api/books/{book_id}/authors, replacing the book's
// author list.
func (h *BookHandler) SetAuthors(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "book_id")

	var req struct {
		AuthorIDs []string `json:"author_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Missing request body")
		return
	}

	if _, err := h.Authors.GetByIDs(req.AuthorIDs); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.Books.SetAuthors(bookID, req.AuthorIDs); err != nil {
		writeServiceError(w, err)
		return
	}

	book, err := h.Books.GetByID(bookID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.Metadata.SaveMetadata(*book); err != nil {
		log.Printf("Error saving metadata for book %s: %v", book.ID, err)
	}
	if h.Notifier != nil {
		h.Notifier.ItemsUpdated([]models.Book{*book})
	}
	writeJSON(w, http.StatusOK, book)
}

// DeleteBook handles DELETE /api/books/{book_id}
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "book_id")
	if _, err := h.Books.GetByID(bookID); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.Books.Delete(bookID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
