package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/oakhurst-media/catalogbackend/models"
	"gorm.io/gorm"
)

// LibraryRepository handles database operations for Library entities
type LibraryRepository struct {
	DB *gorm.DB
}

// NewLibraryRepository creates a new instance of LibraryRepository
func NewLibraryRepository(db *gorm.DB) *LibraryRepository {
	return &LibraryRepository{DB: db}
}

// Create creates a new library record in the database
func (r *LibraryRepository) Create(library *models.Library) error {
	now := time.Now().Unix()
	if library.CreatedAt == 0 {
		library.CreatedAt = now
	}
	if library.UpdatedAt == 0 {
		library.UpdatedAt = now
	}

	err := r.DB.Create(library).Error
	if err != nil {
		return fmt.Errorf("failed to create library %s: %w", library.Name, err)
	}
	return nil
}

// GetByID retrieves a library by its ID
func (r *LibraryRepository) GetByID(id string) (*models.Library, error) {
	var library models.Library
	err := r.DB.Where("id = ?", id).First(&library).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get library by ID %s: %w", id, err)
	}
	return &library, nil
}

// ListAll retrieves all libraries, ordered by name
func (r *LibraryRepository) ListAll() ([]models.Library, error) {
	var libraries []models.Library
	err := r.DB.Order("name ASC").Find(&libraries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list libraries: %w", err)
	}
	return libraries, nil
}

// Update updates an existing library's details
func (r *LibraryRepository) Update(library *models.Library) error {
	library.UpdatedAt = time.Now().Unix()
	result := r.DB.Model(&models.Library{}).Where("id = ?", library.ID).Updates(map[string]interface{}{
		"name":        library.Name,
		"folder_path": library.FolderPath,
		"updated_at":  library.UpdatedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update library ID %s: %w", library.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a library by its ID
func (r *LibraryRepository) Delete(id string) error {
	result := r.DB.Where("id = ?", id).Delete(&models.Library{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete library ID %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
