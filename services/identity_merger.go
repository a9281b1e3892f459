package services

import (
	"log"

	"github.com/oakhurst-media/catalogbackend/models"
	"github.com/oakhurst-media/catalogbackend/repository"
	"gorm.io/gorm"
)

// IdentityMerger collapses two author records revealed to be duplicates by a
// rename. The merge is destructive and irreversible: the loser's book
// associations move to the winner, the loser's alias relationships are
// severed, and the loser row is deleted — all in one transaction.
type IdentityMerger struct {
	db       *gorm.DB
	authors  repository.AuthorRepositoryInterface
	edges    repository.AliasEdgeRepositoryInterface
	books    repository.BookRepositoryInterface
	notifier Notifier
	metadata MetadataWriter
	images   ImageCache
}

// NewIdentityMerger creates a new instance of IdentityMerger
func NewIdentityMerger(
	db *gorm.DB,
	authors repository.AuthorRepositoryInterface,
	edges repository.AliasEdgeRepositoryInterface,
	books repository.BookRepositoryInterface,
	notifier Notifier,
	metadata MetadataWriter,
	images ImageCache,
) *IdentityMerger {
	return &IdentityMerger{
		db:       db,
		authors:  authors,
		edges:    edges,
		books:    books,
		notifier: notifier,
		metadata: metadata,
		images:   images,
	}
}

// MergeResult reports what a committed merge touched.
type MergeResult struct {
	Winner        models.Author
	LoserID       string
	AffectedBooks []models.Book
	BookCount     int64
}

// Merge reassigns every book of the loser to the winner (deduplicating where
// the winner is already listed), severs the loser's alias relationships, and
// deletes the loser. Collaborator side effects run only after the commit and
// never fail the merge.
func (m *IdentityMerger) Merge(loserID, winnerID string) (*MergeResult, error) {
	var affected []models.Book
	var loserSnapshot models.Author

	err := m.db.Transaction(func(tx *gorm.DB) error {
		authors := m.authors.WithTx(tx)
		edges := m.edges.WithTx(tx)
		books := m.books.WithTx(tx)

		loser, err := authors.GetByID(loserID)
		if err != nil {
			return authorNotFound(err, loserID)
		}
		if _, err := authors.GetByID(winnerID); err != nil {
			return authorNotFound(err, winnerID)
		}
		loserSnapshot = *loser

		affected, err = books.ListByAuthor(loser.ID)
		if err != nil {
			return err
		}

		if err := books.RemoveAuthorFromAllBooks(loser.ID); err != nil {
			return err
		}
		for _, book := range affected {
			if err := books.AddAuthor(book.ID, winnerID); err != nil {
				return err
			}
		}

		// the loser must not remain referenced anywhere once deleted
		simple, err := authors.ListSimpleAliasesOf(loser.ID)
		if err != nil {
			return err
		}
		for _, alias := range simple {
			if err := authors.SetAliasState(alias.ID, models.AliasKindOriginal, nil); err != nil {
				return err
			}
		}
		outgoing, err := edges.ListByOrigin(loser.ID)
		if err != nil {
			return err
		}
		if err := edges.DeleteAllForAuthor(loser.ID); err != nil {
			return err
		}
		// a combined alias whose only origin was the loser falls back to
		// original state
		for _, edge := range outgoing {
			count, err := edges.CountByAlias(edge.AliasID)
			if err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			if err := authors.SetAliasState(edge.AliasID, models.AliasKindOriginal, nil); err != nil {
				return err
			}
		}

		return authors.Delete(loser.ID)
	})
	if err != nil {
		return nil, err
	}

	if len(affected) > 0 {
		// refresh each affected book's author list for metadata and events
		for i, book := range affected {
			refreshed, err := m.books.GetByID(book.ID)
			if err != nil {
				log.Printf("identity merger: failed to reload book %s after merge: %v", book.ID, err)
				continue
			}
			affected[i] = *refreshed
			m.saveMetadata(*refreshed)
		}
	}

	winner, err := m.authors.GetByID(winnerID)
	if err != nil {
		return nil, err
	}
	bookCount, err := m.books.CountByAuthor(winner.ID)
	if err != nil {
		log.Printf("identity merger: failed to count books for author %s: %v", winner.ID, err)
	}

	if m.images != nil {
		if err := m.images.Purge(loserID); err != nil {
			log.Printf("identity merger: failed to purge image cache for author %s: %v", loserID, err)
		}
	}
	if m.notifier != nil {
		if len(affected) > 0 {
			m.notifier.ItemsUpdated(affected)
		}
		m.notifier.AuthorRemoved(loserSnapshot)
		m.notifier.AuthorUpdated(*winner, bookCount)
	}

	return &MergeResult{
		Winner:        *winner,
		LoserID:       loserID,
		AffectedBooks: affected,
		BookCount:     bookCount,
	}, nil
}

func (m *IdentityMerger) saveMetadata(book models.Book) {
	if m.metadata == nil {
		return
	}
	if err := m.metadata.SaveMetadata(book); err != nil {
		log.Printf("identity merger: failed to save metadata for book %s: %v", book.ID, err)
	}
}
