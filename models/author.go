package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AliasKind discriminates the three identity states an author record can be
// in. It replaces the nullable-column sentinel encoding used by older
// importers (NULL = original, 0 = combined, id = simple) with an explicit tag.
type AliasKind string

const (
	// AliasKindOriginal marks a canonical identity. It may be referenced as
	// the origin of any number of aliases.
	AliasKindOriginal AliasKind = "original"
	// AliasKindSimple marks an author that denotes the same person as exactly
	// one other author, recorded inline in AliasOriginID.
	AliasKindSimple AliasKind = "simple"
	// AliasKindCombined marks an author that denotes the same person as a set
	// of origin authors, recorded as rows in the alias_edges table.
	AliasKindCombined AliasKind = "combined"
)

// Author represents an author identity in the database using GORM.
// It corresponds to the 'authors' table.
type Author struct {
	ID          string  `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string  `gorm:"not null;index" json:"name"`
	Description string  `gorm:"" json:"description"`
	ImagePath   *string `gorm:"" json:"image_path,omitempty"` // Nullable
	LibraryID   string  `gorm:"not null;index" json:"library_id"`

	// AliasKind and AliasOriginID together form the alias-state tag.
	// AliasOriginID is set if and only if AliasKind is AliasKindSimple.
	AliasKind     AliasKind `gorm:"not null;default:original" json:"alias_kind"`
	AliasOriginID *string   `gorm:"index" json:"alias_origin_id,omitempty"`

	CreatedAt int64 `gorm:"not null" json:"created_at"` // Unix timestamp
	UpdatedAt int64 `gorm:"not null" json:"updated_at"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (Author) TableName() string {
	return "authors"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (a *Author) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (a *Author) IsOriginal() bool {
	return a.AliasKind == AliasKindOriginal
}

func (a *Author) IsSimpleAlias() bool {
	return a.AliasKind == AliasKindSimple
}

func (a *Author) IsCombinedAlias() bool {
	return a.AliasKind == AliasKindCombined
}

// SimpleOrigin returns the inline origin id when the author is a simple
// alias.
func (a *Author) SimpleOrigin() (string, bool) {
	if a.AliasKind != AliasKindSimple || a.AliasOriginID == nil {
		return "", false
	}
	return *a.AliasOriginID, true
}
