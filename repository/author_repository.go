package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/oakhurst-media/catalogbackend/models"
	"gorm.io/gorm"
)

// AuthorRepository handles database operations for Author entities
type AuthorRepository struct {
	DB *gorm.DB
}

// NewAuthorRepository creates a new instance of AuthorRepository
func NewAuthorRepository(db *gorm.DB) *AuthorRepository {
	return &AuthorRepository{DB: db}
}

// WithTx returns the repository bound to the given transaction
func (r *AuthorRepository) WithTx(tx *gorm.DB) AuthorRepositoryInterface {
	return &AuthorRepository{DB: tx}
}

// Create creates a new author record in the database
func (r *AuthorRepository) Create(author *models.Author) error {
	now := time.Now().Unix()
	if author.CreatedAt == 0 {
		author.CreatedAt = now
	}
	if author.UpdatedAt == 0 {
		author.UpdatedAt = now
	}
	if author.AliasKind == "" {
		author.AliasKind = models.AliasKindOriginal
	}

	err := r.DB.Create(author).Error
	if err != nil {
		return fmt.Errorf("failed to create author %s: %w", author.Name, err)
	}
	return nil
}

// GetByID retrieves an author by its ID
func (r *AuthorRepository) GetByID(id string) (*models.Author, error) {
	var author models.Author
	err := r.DB.Where("id = ?", id).First(&author).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get author by ID %s: %w", id, err)
	}
	return &author, nil
}

// GetByIDs retrieves all authors whose ids appear in the given list
func (r *AuthorRepository) GetByIDs(ids []string) ([]models.Author, error) {
	if len(ids) == 0 {
		return []models.Author{}, nil
	}
	var authors []models.Author
	err := r.DB.Where("id IN ?", ids).Order("name ASC").Find(&authors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get authors by IDs: %w", err)
	}
	return authors, nil
}

// GetByNameExcluding retrieves an author by exact name, skipping the given id
func (r *AuthorRepository) GetByNameExcluding(name, excludeID string) (*models.Author, error) {
	var author models.Author
	err := r.DB.Where("name = ? AND id <> ?", name, excludeID).First(&author).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get author by name %s: %w", name, err)
	}
	return &author, nil
}

// ListByLibrary retrieves all authors in a library, ordered by name
func (r *AuthorRepository) ListByLibrary(libraryID string) ([]models.Author, error) {
	var authors []models.Author
	err := r.DB.Where("library_id = ?", libraryID).Order("name ASC").Find(&authors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list authors for library %s: %w", libraryID, err)
	}
	return authors, nil
}

// ListSimpleAliasesOf retrieves the authors whose inline alias pointer
// references the given origin
func (r *AuthorRepository) ListSimpleAliasesOf(originID string) ([]models.Author, error) {
	var authors []models.Author
	err := r.DB.
		Where("alias_kind = ? AND alias_origin_id = ?", models.AliasKindSimple, originID).
		Order("name ASC").
		Find(&authors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list simple aliases of author %s: %w", originID, err)
	}
	return authors, nil
}

// Update updates an existing author's editable fields
func (r *AuthorRepository) Update(author *models.Author) error {
	author.UpdatedAt = time.Now().Unix()
	result := r.DB.Model(&models.Author{}).Where("id = ?", author.ID).Updates(map[string]interface{}{
		"name":        author.Name,
		"description": author.Description,
		"updated_at":  author.UpdatedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update author ID %s: %w", author.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetAliasState writes the alias-state tag of one author. originID must be
// non-nil exactly when kind is AliasKindSimple.
func (r *AuthorRepository) SetAliasState(id string, kind models.AliasKind, originID *string) error {
	updates := map[string]interface{}{
		"alias_kind": kind,
		"updated_at": time.Now().Unix(),
	}
	if kind == models.AliasKindSimple {
		if originID == nil {
			return fmt.Errorf("simple alias state for author %s requires an origin id", id)
		}
		updates["alias_origin_id"] = *originID
	} else {
		updates["alias_origin_id"] = gorm.Expr("NULL")
	}

	result := r.DB.Model(&models.Author{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to set alias state for author ID %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetImagePath updates only the author's image path
func (r *AuthorRepository) SetImagePath(id string, imagePath *string) error {
	updates := map[string]interface{}{
		"updated_at": time.Now().Unix(),
	}
	if imagePath == nil {
		updates["image_path"] = gorm.Expr("NULL")
	} else {
		updates["image_path"] = *imagePath
	}

	result := r.DB.Model(&models.Author{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to set image path for author ID %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes an author by its ID
func (r *AuthorRepository) Delete(id string) error {
	result := r.DB.Where("id = ?", id).Delete(&models.Author{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete author ID %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
