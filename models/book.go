package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Book represents a cataloged book in the database using GORM.
// It corresponds to the 'books' table.
type Book struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string `gorm:"not null;index" json:"title"`
	LibraryID string `gorm:"not null;index" json:"library_id"`
	CreatedAt int64  `gorm:"not null" json:"created_at"` // Unix timestamp
	UpdatedAt int64  `gorm:"not null" json:"updated_at"` // Unix timestamp

	// Relationships
	Authors []*Author `gorm:"many2many:book_authors;" json:"authors,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Book) TableName() string {
	return "books"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// HasAuthor reports whether the book's loaded author list contains the id.
func (b *Book) HasAuthor(authorID string) bool {
	for _, au := range b.Authors {
		if au != nil && au.ID == authorID {
			return true
		}
	}
	return false
}

// BookAuthor is the explicit join row between books and authors. The merge
// path rewrites these rows in bulk, so the table is modeled directly rather
// than left implicit behind the many2many association.
type BookAuthor struct {
	BookID   string `gorm:"primaryKey" json:"book_id"`
	AuthorID string `gorm:"primaryKey" json:"author_id"`
}

// TableName explicitly sets the table name for GORM.
func (BookAuthor) TableName() string {
	return "book_authors"
}
