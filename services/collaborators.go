package services

import "github.com/oakhurst-media/catalogbackend/models"

// Notifier broadcasts committed catalog changes to connected clients.
// Failures are fire-and-forget; a broadcast never rolls back the state
// change it describes.
type Notifier interface {
	AuthorUpdated(author models.Author, bookCount int64)
	AuthorRemoved(author models.Author)
	ItemsUpdated(books []models.Book)
}

// MetadataWriter persists a book's metadata file after its author list or
// author names change. Best-effort; callers log failures and continue.
type MetadataWriter interface {
	SaveMetadata(book models.Book) error
}

// ImageCache invalidates cached image variants for an author. Best-effort;
// callers log failures and continue.
type ImageCache interface {
	Purge(authorID string) error
}
