package models

// AliasEdge records one origin of a combined alias in the database using
// GORM. It corresponds to the 'alias_edges' table. Edges exist only for
// authors in AliasKindCombined state; a simple alias keeps its single origin
// inline on the author row instead.
type AliasEdge struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	OriginID  string `gorm:"not null;uniqueIndex:idx_origin_alias;index" json:"origin_id"`
	AliasID   string `gorm:"not null;uniqueIndex:idx_origin_alias;index" json:"alias_id"`
	CreatedAt int64  `gorm:"not null" json:"created_at"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (AliasEdge) TableName() string {
	return "alias_edges"
}
