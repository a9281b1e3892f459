package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/facette/natsort"
	"github.com/go-chi/chi/v5"
	"github.com/oakhurst-media/catalogbackend/database"
	"github.com/oakhurst-media/catalogbackend/imagecache"
	"github.com/oakhurst-media/catalogbackend/models"
	"github.com/oakhurst-media/catalogbackend/repository"
	"github.com/oakhurst-media/catalogbackend/services"
	"github.com/oakhurst-media/catalogbackend/workers"
	"gorm.io/gorm"
)

// AuthorHandler exposes the author catalog endpoints, including the alias
// and merge operations.
type AuthorHandler struct {
	Authors    repository.AuthorRepositoryInterface
	Books      repository.BookRepositoryInterface
	Resolver   *services.AliasResolver
	Merger     *services.IdentityMerger
	Cache      *imagecache.Cache
	Downloader *imagecache.Downloader
	Metadata   services.MetadataWriter
	Notifier   services.Notifier
	Prewarmer  *workers.AuthorImageProcessor
	SearchDB   *sql.DB
}

type authorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func authorRefs(authors []models.Author) []authorRef {
	refs := make([]authorRef, 0, len(authors))
	for _, au := range authors {
		refs = append(refs, authorRef{ID: au.ID, Name: au.Name})
	}
	return refs
}

// ListAuthors handles GET /api/authors with optional q, library_id,
// alias_kind, limit and offset filters.
func (h *AuthorHandler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	filters := database.AuthorSearchFilters{
		Query:     r.URL.Query().Get("q"),
		LibraryID: r.URL.Query().Get("library_id"),
		AliasKind: r.URL.Query().Get("alias_kind"),
	}
	if v, err := strconv.ParseUint(r.URL.Query().Get("limit"), 10, 64); err == nil {
		filters.Limit = v
	}
	if v, err := strconv.ParseUint(r.URL.Query().Get("offset"), 10, 64); err == nil {
		filters.Offset = v
	}

	summaries, err := database.SearchAuthors(h.SearchDB, filters)
	if err != nil {
		log.Printf("Error searching authors: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal", "Failed to retrieve authors")
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// CreateAuthor handles POST /api/authors
func (h *AuthorHandler) CreateAuthor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		LibraryID   string `json:"library_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.LibraryID) == "" {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Missing required fields: name, library_id")
		return
	}

	author := &models.Author{
		Name:        req.Name,
		Description: req.Description,
		LibraryID:   req.LibraryID,
	}
	if err := h.Authors.Create(author); err != nil {
		log.Printf("Error creating author '%s': %v", req.Name, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal", "Failed to create author")
		return
	}
	writeJSON(w, http.StatusCreated, author)
}

// GetAuthor handles GET /api/authors/{author_id}. With ?include=items the
// response carries the author's books in natural title order.
func (h *AuthorHandler) GetAuthor(w http.ResponseWriter, r *http.Request) {
	author, ok := h.loadAuthor(w, r)
	if !ok {
		return
	}

	include := strings.Split(r.URL.Query().Get("include"), ",")
	response := map[string]interface{}{"author": author}

	for _, inc := range include {
		if inc != "items" {
			continue
		}
		books, err := h.Books.ListByAuthor(author.ID)
		if err != nil {
			log.Printf("Error listing books for author %s: %v", author.ID, err)
			WriteAPIError(w, http.StatusInternalServerError, "internal", "Failed to retrieve author's books")
			return
		}
		sort.SliceStable(books, func(i, j int) bool {
			return natsort.Compare(books[i].Title, books[j].Title)
		})
		response["books"] = books
	}

	writeJSON(w, http.StatusOK, response)
}

// UpdateAuthor handles PATCH /api/authors/{author_id}. Renaming an author to
// a name already held by a different author triggers an irreversible merge
// of the two records.
func (h *AuthorHandler) UpdateAuthor(w http.ResponseWriter, r *http.Request) {
	author, ok := h.loadAuthor(w, r)
	if !ok {
		return
	}

	var payload struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		ImagePath   *string `json:"image_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	// the image path is managed by the image endpoints only
	if payload.ImagePath != nil {
		log.Printf("[AuthorHandler] Updating author imagePath directly is not supported")
		payload.ImagePath = nil
	}

	nameUpdate := payload.Name != nil && *payload.Name != author.Name

	if nameUpdate {
		existing, err := h.Authors.GetByNameExcluding(*payload.Name, author.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			writeServiceError(w, err)
			return
		}
		if existing != nil {
			log.Printf("[AuthorHandler] Merging author %q with %q", author.Name, existing.Name)
			result, err := h.Merger.Merge(author.ID, existing.ID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"author": result.Winner,
				"merged": true,
			})
			return
		}
	}

	updated := false
	if payload.Name != nil && *payload.Name != author.Name {
		author.Name = *payload.Name
		updated = true
	}
	if payload.Description != nil && *payload.Description != author.Description {
		author.Description = *payload.Description
		updated = true
	}

	if updated {
		if err := h.Authors.Update(author); err != nil {
			writeServiceError(w, err)
			return
		}

		var bookCount int64
		if nameUpdate {
			// propagate the new name into every book's metadata file
			books, err := h.Books.ListByAuthor(author.ID)
			if err != nil {
				log.Printf("Error listing books for renamed author %s: %v", author.ID, err)
			} else {
				bookCount = int64(len(books))
				for _, book := range books {
					if err := h.Metadata.SaveMetadata(book); err != nil {
						log.Printf("Error saving metadata for book %s: %v", book.ID, err)
					}
				}
				if len(books) > 0 && h.Notifier != nil {
					h.Notifier.ItemsUpdated(books)
				}
			}
		} else {
			var err error
			bookCount, err = h.Books.CountByAuthor(author.ID)
			if err != nil {
				log.Printf("Error counting books for author %s: %v", author.ID, err)
			}
		}

		if h.Notifier != nil {
			h.Notifier.AuthorUpdated(*author, bookCount)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"author":  author,
		"updated": updated,
	})
}

// DeleteAuthor handles DELETE /api/authors/{author_id}. A JSON body with an
// "ids" array deletes several authors in one call.
func (h *AuthorHandler) DeleteAuthor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	// the body is optional for single deletes
	_ = json.NewDecoder(r.Body).Decode(&req)

	ids := req.IDs
	if len(ids) == 0 {
		ids = []string{chi.URLParam(r, "author_id")}
	}

	for _, id := range ids {
		author, err := h.Authors.GetByID(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		if err := h.Resolver.DetachAuthor(author.ID); err != nil {
			writeServiceError(w, err)
			return
		}
		if err := h.Books.RemoveAuthorFromAllBooks(author.ID); err != nil {
			writeServiceError(w, err)
			return
		}
		if err := h.Authors.Delete(author.ID); err != nil {
			writeServiceError(w, err)
			return
		}

		if author.ImagePath != nil {
			if err := h.Cache.Purge(author.ID); err != nil {
				log.Printf("Error purging image cache for author %s: %v", author.ID, err)
			}
		}
		if h.Notifier != nil {
			h.Notifier.AuthorRemoved(*author)
		}
	}

	w.WriteHeader(http.StatusOK)
}

// UploadImage handles POST /api/authors/{author_id}/image, downloading the
// image at the supplied URL.
func (h *AuthorHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	author, ok := h.loadAuthor(w, r)
	if !ok {
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request payload. 'url' not in request body")
		return
	}
	if !strings.HasPrefix(req.URL, "http:") && !strings.HasPrefix(req.URL, "https:") {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request payload. Invalid url "+strconv.Quote(req.URL))
		return
	}

	log.Printf("[AuthorHandler] Downloading author image from url %q", req.URL)
	savedPath, err := h.Downloader.SaveAuthorImage(author.ID, req.URL)
	if err != nil {
		log.Printf("Error downloading author image: %v", err)
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Failed to download image")
		return
	}

	if author.ImagePath != nil {
		if err := h.Cache.Purge(author.ID); err != nil {
			log.Printf("Error purging image cache for author %s: %v", author.ID, err)
		}
		if err := h.Downloader.RemoveFile(*author.ImagePath); err != nil {
			log.Printf("Error removing old image for author %s: %v", author.ID, err)
		}
	}

	if err := h.Authors.SetImagePath(author.ID, &savedPath); err != nil {
		writeServiceError(w, err)
		return
	}
	author.ImagePath = &savedPath

	if h.Prewarmer != nil {
		h.Prewarmer.Enqueue(author.ID, savedPath)
	}

	bookCount, err := h.Books.CountByAuthor(author.ID)
	if err != nil {
		log.Printf("Error counting books for author %s: %v", author.ID, err)
	}
	if h.Notifier != nil {
		h.Notifier.AuthorUpdated(*author, bookCount)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"author": author})
}

// DeleteImage handles DELETE /api/authors/{author_id}/image
func (h *AuthorHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	author, ok := h.loadAuthor(w, r)
	if !ok {
		return
	}
	if author.ImagePath == nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Author has no image path set")
		return
	}

	log.Printf("[AuthorHandler] Removing image for author %q at %q", author.Name, *author.ImagePath)
	if err := h.Cache.Purge(author.ID); err != nil {
		log.Printf("Error purging image cache for author %s: %v", author.ID, err)
	}
	if err := h.Downloader.RemoveFile(*author.ImagePath); err != nil {
		log.Printf("Error removing image file for author %s: %v", author.ID, err)
	}
	if err := h.Authors.SetImagePath(author.ID, nil); err != nil {
		writeServiceError(w, err)
		return
	}
	author.ImagePath = nil

	bookCount, err := h.Books.CountByAuthor(author.ID)
	if err != nil {
		log.Printf("Error counting books for author %s: %v", author.ID, err)
	}
	if h.Notifier != nil {
		h.Notifier.AuthorUpdated(*author, bookCount)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"author": author})
}

// GetImage handles GET /api/authors/{author_id}/image with optional width,
// height, format and raw query parameters.
func (h *AuthorHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	author, ok := h.loadAuthor(w, r)
	if !ok {
		return
	}
	if author.ImagePath == nil {
		WriteAPIError(w, http.StatusNotFound, "not_found", "Author has no image")
		return
	}

	if r.URL.Query().Get("raw") != "" {
		http.ServeFile(w, r, *author.ImagePath)
		return
	}

	opts := imagecache.Options{Format: r.URL.Query().Get("format")}
	if v, err := strconv.Atoi(r.URL.Query().Get("width")); err == nil {
		opts.Width = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("height")); err == nil {
		opts.Height = v
	}

	if err := h.Cache.Serve(w, r, author.ID, *author.ImagePath, opts); err != nil {
		log.Printf("Error serving cached image for author %s: %v", author.ID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal", "Failed to serve author image")
	}
}

// GetAliases handles GET /api/authors/{author_id}/alias, listing the
// author's simple aliases.
func (h *AuthorHandler) GetAliases(w http.ResponseWriter, r *http.Request) {
	authorID := chi.URLParam(r, "author_id")
	aliases, err := h.Resolver.GetDirectAliasesOf(authorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authorRefs(aliases))
}

// AddAliases handles POST /api/authors/{author_id}/alias, linking each id in
// the request body to the author in sequence.
func (h *AuthorHandler) AddAliases(w http.ResponseWriter, r *http.Request) {
	authorID := chi.URLParam(r, "author_id")

	var req struct {
		Aliases []string `json:"aliases"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Missing request body")
		return
	}

	if err := h.Resolver.LinkAliasBatch(authorID, req.Aliases); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully added alias"})
}

// MakeAlias handles POST /api/authors/{author_id}/make_alias, linking one
// alias to this author.
func (h *AuthorHandler) MakeAlias(w http.ResponseWriter, r *http.Request) {
	originID := chi.URLParam(r, "author_id")

	var req struct {
		AliasID string `json:"alias_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AliasID == "" {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Missing request body")
		return
	}

	if err := h.Resolver.LinkAlias(originID, req.AliasID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Success"})
}

// SetOrigins handles POST /api/authors/{author_id}/combined_alias,
// reshaping the author's full origin set.
func (h *AuthorHandler) SetOrigins(w http.ResponseWriter, r *http.Request) {
	aliasID := chi.URLParam(r, "author_id")

	var req struct {
		OriginalAuthors []string `json:"original_authors"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Missing request body")
		return
	}

	if err := h.Resolver.SetOrigins(aliasID, req.OriginalAuthors); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully set original authors"})
}

// Unlink handles DELETE /api/authors/{author_id}/alias, removing one
// origin/alias relation between this author and the id in the body.
func (h *AuthorHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	authorID := chi.URLParam(r, "author_id")

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Missing request body")
		return
	}

	if err := h.Resolver.Unlink(authorID, req.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully unlinked the alias relation"})
}

// GetOrigin handles GET /api/authors/{author_id}/origin, resolving the
// single origin of a simple alias.
func (h *AuthorHandler) GetOrigin(w http.ResponseWriter, r *http.Request) {
	authorID := chi.URLParam(r, "author_id")

	origin, err := h.Resolver.GetOrigin(authorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if origin == nil {
		writeJSON(w, http.StatusOK, []authorRef{})
		return
	}
	writeJSON(w, http.StatusOK, origin)
}

// GetOrigins handles GET /api/authors/{author_id}/origins, listing the
// origin set of a combined alias.
func (h *AuthorHandler) GetOrigins(w http.ResponseWriter, r *http.Request) {
	authorID := chi.URLParam(r, "author_id")

	origins, err := h.Resolver.GetOrigins(authorID)
	if err != nil {
		if errors.Is(err, services.ErrNotCombinedAlias) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authorRefs(origins))
}

// GetCombinedAliases handles GET /api/authors/{author_id}/combined_alias,
// listing the combined aliases that reference this author.
func (h *AuthorHandler) GetCombinedAliases(w http.ResponseWriter, r *http.Request) {
	authorID := chi.URLParam(r, "author_id")

	aliases, err := h.Resolver.GetCombinedAliasesOf(authorID)
	if err != nil {
		if errors.Is(err, services.ErrNotOriginAuthor) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authorRefs(aliases))
}

func (h *AuthorHandler) loadAuthor(w http.ResponseWriter, r *http.Request) (*models.Author, bool) {
	authorID := chi.URLParam(r, "author_id")
	author, err := h.Authors.GetByID(authorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Author not found")
		} else {
			log.Printf("Error getting author %s: %v", authorID, err)
			WriteAPIError(w, http.StatusInternalServerError, "internal", "Failed to retrieve author")
		}
		return nil, false
	}
	return author, true
}
