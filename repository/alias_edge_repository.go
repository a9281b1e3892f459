package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/oakhurst-media/catalogbackend/models"
	"gorm.io/gorm"
)

// AliasEdgeRepository handles database operations for combined-alias edges
type AliasEdgeRepository struct {
	DB *gorm.DB
}

// NewAliasEdgeRepository creates a new instance of AliasEdgeRepository
func NewAliasEdgeRepository(db *gorm.DB) *AliasEdgeRepository {
	return &AliasEdgeRepository{DB: db}
}

// WithTx returns the repository bound to the given transaction
func (r *AliasEdgeRepository) WithTx(tx *gorm.DB) AliasEdgeRepositoryInterface {
	return &AliasEdgeRepository{DB: tx}
}

// Get retrieves the edge between one origin and one alias, if present
func (r *AliasEdgeRepository) Get(originID, aliasID string) (*models.AliasEdge, error) {
	var edge models.AliasEdge
	err := r.DB.Where("origin_id = ? AND alias_id = ?", originID, aliasID).First(&edge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get alias edge (%s, %s): %w", originID, aliasID, err)
	}
	return &edge, nil
}

// ListByAlias retrieves all edges whose alias side is the given author
func (r *AliasEdgeRepository) ListByAlias(aliasID string) ([]models.AliasEdge, error) {
	var edges []models.AliasEdge
	err := r.DB.Where("alias_id = ?", aliasID).Order("created_at ASC").Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list alias edges for alias %s: %w", aliasID, err)
	}
	return edges, nil
}

// ListByOrigin retrieves all edges whose origin side is the given author
func (r *AliasEdgeRepository) ListByOrigin(originID string) ([]models.AliasEdge, error) {
	var edges []models.AliasEdge
	err := r.DB.Where("origin_id = ?", originID).Order("created_at ASC").Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list alias edges for origin %s: %w", originID, err)
	}
	return edges, nil
}

// CountByAlias counts the edges referencing the given author as alias
func (r *AliasEdgeRepository) CountByAlias(aliasID string) (int64, error) {
	var count int64
	err := r.DB.Model(&models.AliasEdge{}).Where("alias_id = ?", aliasID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count alias edges for alias %s: %w", aliasID, err)
	}
	return count, nil
}

// Insert creates a new edge record
func (r *AliasEdgeRepository) Insert(edge *models.AliasEdge) error {
	if edge.CreatedAt == 0 {
		edge.CreatedAt = time.Now().Unix()
	}
	err := r.DB.Create(edge).Error
	if err != nil {
		return fmt.Errorf("failed to insert alias edge (%s, %s): %w", edge.OriginID, edge.AliasID, err)
	}
	return nil
}

// Delete removes the edge between one origin and one alias
func (r *AliasEdgeRepository) Delete(originID, aliasID string) error {
	result := r.DB.Where("origin_id = ? AND alias_id = ?", originID, aliasID).Delete(&models.AliasEdge{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete alias edge (%s, %s): %w", originID, aliasID, result.Error)
	}
	return nil
}

// DeleteAllForAuthor removes every edge that references the author on either
// side. Used when an author record is deleted or merged away.
func (r *AliasEdgeRepository) DeleteAllForAuthor(authorID string) error {
	result := r.DB.Where("origin_id = ? OR alias_id = ?", authorID, authorID).Delete(&models.AliasEdge{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete alias edges for author %s: %w", authorID, result.Error)
	}
	return nil
}
