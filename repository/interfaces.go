package repository

import (
	"github.com/oakhurst-media/catalogbackend/models"
	"gorm.io/gorm"
)

// AuthorRepositoryInterface defines the methods for author data operations.
// WithTx returns a copy of the repository bound to the given transaction so
// that services can run multi-row state transitions atomically.
type AuthorRepositoryInterface interface {
	WithTx(tx *gorm.DB) AuthorRepositoryInterface
	Create(author *models.Author) error
	GetByID(id string) (*models.Author, error)
	GetByIDs(ids []string) ([]models.Author, error)
	// GetByNameExcluding looks up an author by exact name, excluding the
	// given id. Deliberately not scoped to a library; see the merge notes in
	// DESIGN.md.
	GetByNameExcluding(name, excludeID string) (*models.Author, error)
	ListByLibrary(libraryID string) ([]models.Author, error)
	ListSimpleAliasesOf(originID string) ([]models.Author, error)
	Update(author *models.Author) error
	SetAliasState(id string, kind models.AliasKind, originID *string) error
	SetImagePath(id string, imagePath *string) error
	Delete(id string) error
}

// AliasEdgeRepositoryInterface defines the methods for combined-alias edge
// data operations.
type AliasEdgeRepositoryInterface interface {
	WithTx(tx *gorm.DB) AliasEdgeRepositoryInterface
	Get(originID, aliasID string) (*models.AliasEdge, error)
	ListByAlias(aliasID string) ([]models.AliasEdge, error)
	ListByOrigin(originID string) ([]models.AliasEdge, error)
	CountByAlias(aliasID string) (int64, error)
	Insert(edge *models.AliasEdge) error
	Delete(originID, aliasID string) error
	DeleteAllForAuthor(authorID string) error
}

// BookRepositoryInterface defines the methods for book data operations.
type BookRepositoryInterface interface {
	WithTx(tx *gorm.DB) BookRepositoryInterface
	Create(book *models.Book) error
	GetByID(id string) (*models.Book, error)
	ListByLibrary(libraryID string) ([]models.Book, error)
	// ListByAuthor returns the author's books with their full author lists
	// preloaded.
	ListByAuthor(authorID string) ([]models.Book, error)
	CountByAuthor(authorID string) (int64, error)
	AddAuthor(bookID, authorID string) error
	RemoveAuthorFromAllBooks(authorID string) error
	SetAuthors(bookID string, authorIDs []string) error
	Delete(id string) error
}

// LibraryRepositoryInterface defines the methods for library data operations.
type LibraryRepositoryInterface interface {
	Create(library *models.Library) error
	GetByID(id string) (*models.Library, error)
	ListAll() ([]models.Library, error)
	Update(library *models.Library) error
	Delete(id string) error
}

// UserRepositoryInterface defines the methods for user data operations.
type UserRepositoryInterface interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	Update(user *models.User) error
	ListAll() ([]models.User, error)
}
