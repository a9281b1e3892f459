package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/oakhurst-media/catalogbackend/models"
	"github.com/oakhurst-media/catalogbackend/repository"
	"gorm.io/gorm"
)

// AliasResolver enforces the author alias state machine and answers
// origin/alias queries. Every mutating operation runs its reads and writes
// inside one database transaction so concurrent callers never observe a
// half-applied transition.
type AliasResolver struct {
	db       *gorm.DB
	authors  repository.AuthorRepositoryInterface
	edges    repository.AliasEdgeRepositoryInterface
	books    repository.BookRepositoryInterface
	notifier Notifier
}

// NewAliasResolver creates a new instance of AliasResolver
func NewAliasResolver(
	db *gorm.DB,
	authors repository.AuthorRepositoryInterface,
	edges repository.AliasEdgeRepositoryInterface,
	books repository.BookRepositoryInterface,
	notifier Notifier,
) *AliasResolver {
	return &AliasResolver{db: db, authors: authors, edges: edges, books: books, notifier: notifier}
}

// LinkAlias links the author aliasID to the origin author originID.
//
// The origin must be an original author. An original alias transitions to a
// simple alias unless it is itself an origin for someone else; a combined
// alias gains an edge; a simple alias of a different origin is promoted to a
// combined alias holding both origins. Re-linking an existing simple alias to
// the same origin is a no-op.
func (r *AliasResolver) LinkAlias(originID, aliasID string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return r.linkAliasTx(tx, originID, aliasID)
	})
	if err != nil {
		return err
	}
	r.notifyAuthor(aliasID)
	return nil
}

func (r *AliasResolver) linkAliasTx(tx *gorm.DB, originID, aliasID string) error {
	authors := r.authors.WithTx(tx)
	edges := r.edges.WithTx(tx)

	origin, err := authors.GetByID(originID)
	if err != nil {
		return authorNotFound(err, originID)
	}
	alias, err := authors.GetByID(aliasID)
	if err != nil {
		return authorNotFound(err, aliasID)
	}

	if !origin.IsOriginal() {
		return &ConflictError{Message: fmt.Sprintf("%s is an alias of another author", origin.Name)}
	}

	switch {
	case alias.IsOriginal():
		// an origin cannot be re-purposed as someone else's alias
		outgoing, err := edges.ListByOrigin(alias.ID)
		if err != nil {
			return err
		}
		inbound, err := authors.ListSimpleAliasesOf(alias.ID)
		if err != nil {
			return err
		}
		if len(outgoing) > 0 || len(inbound) > 0 {
			return &ConflictError{Message: fmt.Sprintf("%s is an original author of other aliases", alias.Name)}
		}
		return authors.SetAliasState(alias.ID, models.AliasKindSimple, &originID)

	case alias.IsCombinedAlias():
		_, err := edges.Get(originID, alias.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return edges.Insert(&models.AliasEdge{OriginID: originID, AliasID: alias.ID})

	default: // simple alias
		currentOrigin, _ := alias.SimpleOrigin()
		if currentOrigin == originID {
			return nil
		}
		// promote to combined: the existing inline pointer and the new
		// origin both become edges
		if err := edges.Insert(&models.AliasEdge{OriginID: currentOrigin, AliasID: alias.ID}); err != nil {
			return err
		}
		if err := edges.Insert(&models.AliasEdge{OriginID: originID, AliasID: alias.ID}); err != nil {
			return err
		}
		return authors.SetAliasState(alias.ID, models.AliasKindCombined, nil)
	}
}

// LinkAliasBatch applies LinkAlias to each id in sequence order. Each id
// commits in its own transaction; the first failure aborts the remainder and
// earlier commits stand.
func (r *AliasResolver) LinkAliasBatch(originID string, aliasIDs []string) error {
	if len(aliasIDs) == 0 {
		return &ValidationError{Message: "no alias ids supplied"}
	}
	for _, aliasID := range aliasIDs {
		if err := r.LinkAlias(originID, aliasID); err != nil {
			return err
		}
	}
	return nil
}

// SetOrigins reshapes the full origin set of one alias.
//
// An original author with exactly one requested origin becomes a simple
// alias, unless it is itself an origin for someone else. An already-aliased
// author with more than one requested origin
// becomes (or stays) a combined alias with one edge per origin, each of which
// must itself be an original author. Other argument shapes are rejected; see
// DESIGN.md for the decision record.
func (r *AliasResolver) SetOrigins(aliasID string, originIDs []string) error {
	if len(originIDs) == 0 {
		return &ValidationError{Message: "no origin ids supplied"}
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return r.setOriginsTx(tx, aliasID, originIDs)
	})
	if err != nil {
		return err
	}
	r.notifyAuthor(aliasID)
	return nil
}

func (r *AliasResolver) setOriginsTx(tx *gorm.DB, aliasID string, originIDs []string) error {
	authors := r.authors.WithTx(tx)
	edges := r.edges.WithTx(tx)

	alias, err := authors.GetByID(aliasID)
	if err != nil {
		return authorNotFound(err, aliasID)
	}

	switch {
	case alias.IsOriginal() && len(originIDs) == 1:
		// an origin cannot be re-purposed as someone else's alias
		outgoing, err := edges.ListByOrigin(alias.ID)
		if err != nil {
			return err
		}
		inbound, err := authors.ListSimpleAliasesOf(alias.ID)
		if err != nil {
			return err
		}
		if len(outgoing) > 0 || len(inbound) > 0 {
			return &ConflictError{Message: fmt.Sprintf("%s is an original author of other aliases", alias.Name)}
		}

		originID := originIDs[0]
		origin, err := authors.GetByID(originID)
		if err != nil {
			return authorNotFound(err, originID)
		}
		if !origin.IsOriginal() {
			return &ConflictError{Message: fmt.Sprintf("%s is an alias of another author", origin.Name)}
		}
		return authors.SetAliasState(alias.ID, models.AliasKindSimple, &originID)

	case !alias.IsOriginal() && len(originIDs) > 1:
		if inline, ok := alias.SimpleOrigin(); ok {
			if err := edges.Insert(&models.AliasEdge{OriginID: inline, AliasID: alias.ID}); err != nil {
				return err
			}
			if err := authors.SetAliasState(alias.ID, models.AliasKindCombined, nil); err != nil {
				return err
			}
		}
		for _, originID := range originIDs {
			origin, err := authors.GetByID(originID)
			if err != nil {
				return authorNotFound(err, originID)
			}
			if !origin.IsOriginal() {
				return &ConflictError{Message: fmt.Sprintf("%s is an alias of another author", origin.Name)}
			}
			_, err = edges.Get(originID, alias.ID)
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err := edges.Insert(&models.AliasEdge{OriginID: originID, AliasID: alias.ID}); err != nil {
				return err
			}
		}
		return nil

	default:
		return &ValidationError{Message: "unsupported origin set shape for author's current alias state"}
	}
}

// Unlink removes one origin/alias relationship. The removal semantics key on
// the alias state of the caller-designated origin record; see DESIGN.md
// before changing this.
func (r *AliasResolver) Unlink(originID, aliasID string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return r.unlinkTx(tx, originID, aliasID)
	})
	if err != nil {
		return err
	}
	r.notifyAuthor(aliasID)
	return nil
}

func (r *AliasResolver) unlinkTx(tx *gorm.DB, originID, aliasID string) error {
	authors := r.authors.WithTx(tx)
	edges := r.edges.WithTx(tx)

	origin, err := authors.GetByID(originID)
	if err != nil {
		return authorNotFound(err, originID)
	}
	alias, err := authors.GetByID(aliasID)
	if err != nil {
		return authorNotFound(err, aliasID)
	}

	switch {
	case origin.IsOriginal():
		if alias.IsCombinedAlias() {
			if err := edges.Delete(origin.ID, alias.ID); err != nil {
				return err
			}
			return r.demoteIfOrphaned(authors, edges, alias.ID)
		}
		if alias.IsSimpleAlias() {
			return authors.SetAliasState(alias.ID, models.AliasKindOriginal, nil)
		}
		// both records are original: nothing to unlink
		return nil

	case origin.IsCombinedAlias():
		// remove the other record from this record's origin set
		if err := edges.Delete(alias.ID, origin.ID); err != nil {
			return err
		}
		return r.demoteIfOrphaned(authors, edges, origin.ID)

	default: // simple alias: demote unconditionally, ignoring the other record
		return authors.SetAliasState(origin.ID, models.AliasKindOriginal, nil)
	}
}

// demoteIfOrphaned returns a combined alias to original state once no edges
// reference it.
func (r *AliasResolver) demoteIfOrphaned(
	authors repository.AuthorRepositoryInterface,
	edges repository.AliasEdgeRepositoryInterface,
	aliasID string,
) error {
	count, err := edges.CountByAlias(aliasID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return authors.SetAliasState(aliasID, models.AliasKindOriginal, nil)
}

// GetOrigin returns the single origin author of a simple alias, or nil when
// the author is itself original. For a combined alias the caller is using the
// wrong accessor and a NotFoundError is returned; use GetOrigins instead.
func (r *AliasResolver) GetOrigin(aliasID string) (*models.Author, error) {
	alias, err := r.authors.GetByID(aliasID)
	if err != nil {
		return nil, authorNotFound(err, aliasID)
	}
	if alias.IsOriginal() {
		return nil, nil
	}
	originID, ok := alias.SimpleOrigin()
	if !ok {
		return nil, &NotFoundError{Entity: "single origin for author", ID: aliasID}
	}
	origin, err := r.authors.GetByID(originID)
	if err != nil {
		return nil, authorNotFound(err, originID)
	}
	return origin, nil
}

// GetOrigins returns the origin authors of a combined alias. It signals
// ErrNotCombinedAlias for authors in any other state.
func (r *AliasResolver) GetOrigins(aliasID string) ([]models.Author, error) {
	alias, err := r.authors.GetByID(aliasID)
	if err != nil {
		return nil, authorNotFound(err, aliasID)
	}
	if !alias.IsCombinedAlias() {
		return nil, ErrNotCombinedAlias
	}
	edges, err := r.edges.ListByAlias(alias.ID)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, &NotFoundError{Entity: "origins for alias", ID: aliasID}
	}
	originIDs := make([]string, 0, len(edges))
	for _, edge := range edges {
		originIDs = append(originIDs, edge.OriginID)
	}
	return r.authors.GetByIDs(originIDs)
}

// GetCombinedAliasesOf returns the combined aliases that reference the
// author via edges. It signals ErrNotOriginAuthor when the author is itself
// aliased. Simple aliases are not included; use GetDirectAliasesOf for those.
func (r *AliasResolver) GetCombinedAliasesOf(originID string) ([]models.Author, error) {
	origin, err := r.authors.GetByID(originID)
	if err != nil {
		return nil, authorNotFound(err, originID)
	}
	if !origin.IsOriginal() {
		return nil, ErrNotOriginAuthor
	}
	edges, err := r.edges.ListByOrigin(origin.ID)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return []models.Author{}, nil
	}
	aliasIDs := make([]string, 0, len(edges))
	for _, edge := range edges {
		aliasIDs = append(aliasIDs, edge.AliasID)
	}
	return r.authors.GetByIDs(aliasIDs)
}

// GetDirectAliasesOf returns the authors in simple-alias state pointing at
// the given origin.
func (r *AliasResolver) GetDirectAliasesOf(originID string) ([]models.Author, error) {
	if _, err := r.authors.GetByID(originID); err != nil {
		return nil, authorNotFound(err, originID)
	}
	return r.authors.ListSimpleAliasesOf(originID)
}

// DetachAuthor severs every alias relationship involving the author, ahead
// of its deletion. Simple aliases pointing at it return to original state,
// edges it originates are removed (demoting combined aliases left with no
// edges), and edges naming it as alias are removed.
func (r *AliasResolver) DetachAuthor(authorID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		authors := r.authors.WithTx(tx)
		edges := r.edges.WithTx(tx)

		author, err := authors.GetByID(authorID)
		if err != nil {
			return authorNotFound(err, authorID)
		}

		if author.IsOriginal() {
			simple, err := authors.ListSimpleAliasesOf(author.ID)
			if err != nil {
				return err
			}
			for _, alias := range simple {
				if err := authors.SetAliasState(alias.ID, models.AliasKindOriginal, nil); err != nil {
					return err
				}
			}

			outgoing, err := edges.ListByOrigin(author.ID)
			if err != nil {
				return err
			}
			for _, edge := range outgoing {
				if err := edges.Delete(edge.OriginID, edge.AliasID); err != nil {
					return err
				}
				if err := r.demoteIfOrphaned(authors, edges, edge.AliasID); err != nil {
					return err
				}
			}
		}

		return edges.DeleteAllForAuthor(author.ID)
	})
}

// notifyAuthor broadcasts the author's current snapshot after a committed
// alias transition. Lookup or broadcast problems are logged, never surfaced.
func (r *AliasResolver) notifyAuthor(authorID string) {
	if r.notifier == nil {
		return
	}
	author, err := r.authors.GetByID(authorID)
	if err != nil {
		log.Printf("alias resolver: failed to load author %s for notification: %v", authorID, err)
		return
	}
	bookCount, err := r.books.CountByAuthor(author.ID)
	if err != nil {
		log.Printf("alias resolver: failed to count books for author %s: %v", authorID, err)
	}
	r.notifier.AuthorUpdated(*author, bookCount)
}
