package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/oakhurst-media/catalogbackend/models"
	"gorm.io/gorm"
)

// BookRepository handles database operations for Book entities and the
// book_authors join table
type BookRepository struct {
	DB *gorm.DB
}

// NewBookRepository creates a new instance of BookRepository
func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{DB: db}
}

// WithTx returns the repository bound to the given transaction
func (r *BookRepository) WithTx(tx *gorm.DB) BookRepositoryInterface {
	return &BookRepository{DB: tx}
}

// Create creates a new book record in the database. Associated authors on the
// model are written to the join table as well.
func (r *BookRepository) Create(book *models.Book) error {
	now := time.Now().Unix()
	if book.CreatedAt == 0 {
		book.CreatedAt = now
	}
	if book.UpdatedAt == 0 {
		book.UpdatedAt = now
	}

	err := r.DB.Create(book).Error
	if err != nil {
		return fmt.Errorf("failed to create book %s: %w", book.Title, err)
	}
	return nil
}

// GetByID retrieves a book by its ID, preloading its authors
func (r *BookRepository) GetByID(id string) (*models.Book, error) {
	var book models.Book
	err := r.DB.Preload("Authors").Where("id = ?", id).First(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get book by ID %s: %w", id, err)
	}
	return &book, nil
}

// ListByLibrary retrieves all books in a library, ordered by title
func (r *BookRepository) ListByLibrary(libraryID string) ([]models.Book, error) {
	var books []models.Book
	err := r.DB.Preload("Authors").Where("library_id = ?", libraryID).Order("title ASC").Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list books for library %s: %w", libraryID, err)
	}
	return books, nil
}

// ListByAuthor retrieves every book associated with the author, preloading
// the full author list of each book
func (r *BookRepository) ListByAuthor(authorID string) ([]models.Book, error) {
	var books []models.Book
	err := r.DB.Preload("Authors").
		Joins("JOIN book_authors ON book_authors.book_id = books.id").
		Where("book_authors.author_id = ?", authorID).
		Order("books.title ASC").
		Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list books for author %s: %w", authorID, err)
	}
	return books, nil
}

// CountByAuthor counts the books associated with the author
func (r *BookRepository) CountByAuthor(authorID string) (int64, error) {
	var count int64
	err := r.DB.Model(&models.BookAuthor{}).Where("author_id = ?", authorID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count books for author %s: %w", authorID, err)
	}
	return count, nil
}

// AddAuthor associates the author with the book, skipping an existing row
func (r *BookRepository) AddAuthor(bookID, authorID string) error {
	var count int64
	err := r.DB.Model(&models.BookAuthor{}).
		Where("book_id = ? AND author_id = ?", bookID, authorID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check book author (%s, %s): %w", bookID, authorID, err)
	}
	if count > 0 {
		return nil
	}
	err = r.DB.Create(&models.BookAuthor{BookID: bookID, AuthorID: authorID}).Error
	if err != nil {
		return fmt.Errorf("failed to add author %s to book %s: %w", authorID, bookID, err)
	}
	return nil
}

// RemoveAuthorFromAllBooks deletes every join row referencing the author
func (r *BookRepository) RemoveAuthorFromAllBooks(authorID string) error {
	result := r.DB.Where("author_id = ?", authorID).Delete(&models.BookAuthor{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove author %s from books: %w", authorID, result.Error)
	}
	return nil
}

// SetAuthors replaces the book's author list with the given ids
func (r *BookRepository) SetAuthors(bookID string, authorIDs []string) error {
	err := r.DB.Where("book_id = ?", bookID).Delete(&models.BookAuthor{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear authors for book %s: %w", bookID, err)
	}
	for _, authorID := range authorIDs {
		if err := r.DB.Create(&models.BookAuthor{BookID: bookID, AuthorID: authorID}).Error; err != nil {
			return fmt.Errorf("failed to set author %s on book %s: %w", authorID, bookID, err)
		}
	}
	return nil
}

// Delete removes a book by its ID along with its author associations
func (r *BookRepository) Delete(id string) error {
	if err := r.DB.Where("book_id = ?", id).Delete(&models.BookAuthor{}).Error; err != nil {
		return fmt.Errorf("failed to delete author associations for book %s: %w", id, err)
	}
	result := r.DB.Where("id = ?", id).Delete(&models.Book{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete book ID %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
