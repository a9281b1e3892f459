package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oakhurst-media/catalogbackend/models"
)

// BookMetadata is the on-disk metadata document kept next to each book's
// files. It is rewritten whenever the book's author list or author names
// change.
type BookMetadata struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	LibraryID string      `json:"library_id"`
	Authors   []AuthorRef `json:"authors"`
	SavedAt   int64       `json:"saved_at"`
}

// AuthorRef is the minimal author snapshot embedded in a metadata file.
type AuthorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Writer persists per-book metadata files under a base directory, one
// directory per book id.
type Writer struct {
	baseDir string
}

// NewWriter creates a writer rooted at baseDir, creating the directory if
// needed.
func NewWriter(baseDir string) (*Writer, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory %s: %w", baseDir, err)
	}
	return &Writer{baseDir: baseDir}, nil
}

// MetadataPath returns where the book's metadata file lives
func (w *Writer) MetadataPath(bookID string) string {
	return filepath.Join(w.baseDir, bookID, "metadata.json")
}

// SaveMetadata writes the book's metadata file, replacing any previous
// contents. The write goes through a temp file so a crash never leaves a
// truncated document behind.
func (w *Writer) SaveMetadata(book models.Book) error {
	doc := BookMetadata{
		ID:        book.ID,
		Title:     book.Title,
		LibraryID: book.LibraryID,
		Authors:   make([]AuthorRef, 0, len(book.Authors)),
		SavedAt:   time.Now().Unix(),
	}
	for _, au := range book.Authors {
		if au == nil {
			continue
		}
		doc.Authors = append(doc.Authors, AuthorRef{ID: au.ID, Name: au.Name})
	}

	target := w.MetadataPath(book.ID)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory for book %s: %w", book.ID, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata for book %s: %w", book.ID, err)
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata temp file for book %s: %w", book.ID, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to replace metadata file for book %s: %w", book.ID, err)
	}
	return nil
}
