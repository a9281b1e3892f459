package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Library represents an owning collection of books and authors in the
// database using GORM. It corresponds to the 'libraries' table.
type Library struct {
	ID         string `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string `gorm:"not null;unique" json:"name"`
	FolderPath string `gorm:"not null" json:"folder_path"`
	CreatedAt  int64  `gorm:"not null" json:"created_at"` // Unix timestamp
	UpdatedAt  int64  `gorm:"not null" json:"updated_at"` // Unix timestamp

	// Relationships
	Authors []Author `gorm:"foreignKey:LibraryID;constraint:OnDelete:CASCADE" json:"authors,omitempty"`
	Books   []Book   `gorm:"foreignKey:LibraryID;constraint:OnDelete:CASCADE" json:"books,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Library) TableName() string {
	return "libraries"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (l *Library) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
