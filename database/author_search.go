package database

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// AuthorSearchFilters narrows a catalog-wide author listing.
type AuthorSearchFilters struct {
	Query     string // substring match on name
	LibraryID string
	AliasKind string // original, simple or combined
	Limit     uint64
	Offset    uint64
}

// AuthorSummary is the flat listing row returned by SearchAuthors, carrying
// the per-author book count alongside the identity fields.
type AuthorSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	LibraryID string `json:"library_id"`
	AliasKind string `json:"alias_kind"`
	BookCount int64  `json:"book_count"`
}

// SearchAuthors runs a filtered author listing with book counts over the raw
// connection. Results are ordered by name.
func SearchAuthors(db *sql.DB, filters AuthorSearchFilters) ([]AuthorSummary, error) {
	queryBuilder := psql.Select(
		"authors.id",
		"authors.name",
		"authors.library_id",
		"authors.alias_kind",
		"COUNT(book_authors.book_id) AS book_count",
	).
		From("authors").
		LeftJoin("book_authors ON book_authors.author_id = authors.id").
		GroupBy("authors.id", "authors.name", "authors.library_id", "authors.alias_kind").
		OrderBy("authors.name ASC")

	if filters.Query != "" {
		queryBuilder = queryBuilder.Where(sq.Like{"authors.name": "%" + filters.Query + "%"})
	}
	if filters.LibraryID != "" {
		queryBuilder = queryBuilder.Where(sq.Eq{"authors.library_id": filters.LibraryID})
	}
	if filters.AliasKind != "" {
		queryBuilder = queryBuilder.Where(sq.Eq{"authors.alias_kind": filters.AliasKind})
	}
	if filters.Limit > 0 {
		queryBuilder = queryBuilder.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		queryBuilder = queryBuilder.Offset(filters.Offset)
	}

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for SearchAuthors: %w", err)
	}

	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute SearchAuthors query: %w", err)
	}
	defer rows.Close()

	summaries := []AuthorSummary{}
	for rows.Next() {
		var s AuthorSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.LibraryID, &s.AliasKind, &s.BookCount); err != nil {
			return nil, fmt.Errorf("failed to scan author summary row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate author summary rows: %w", err)
	}
	return summaries, nil
}
