package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/oakhurst-media/catalogbackend/database"
	"github.com/oakhurst-media/catalogbackend/models"
	"github.com/oakhurst-media/catalogbackend/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db       *gorm.DB
	authors  *repository.AuthorRepository
	edges    *repository.AliasEdgeRepository
	books    *repository.BookRepository
	resolver *AliasResolver
	merger   *IdentityMerger
	library  models.Library
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))

	f := &fixture{
		db:      db,
		authors: repository.NewAuthorRepository(db),
		edges:   repository.NewAliasEdgeRepository(db),
		books:   repository.NewBookRepository(db),
	}
	f.resolver = NewAliasResolver(db, f.authors, f.edges, f.books, nil)
	f.merger = NewIdentityMerger(db, f.authors, f.edges, f.books, nil, nil, nil)

	f.library = models.Library{Name: "Fiction " + uuid.NewString(), FolderPath: "/library"}
	require.NoError(t, repository.NewLibraryRepository(db).Create(&f.library))
	return f
}

func (f *fixture) createAuthor(t *testing.T, name string) *models.Author {
	t.Helper()
	author := &models.Author{Name: name, LibraryID: f.library.ID}
	require.NoError(t, f.authors.Create(author))
	return author
}

func (f *fixture) createBook(t *testing.T, title string, authorIDs ...string) *models.Book {
	t.Helper()
	book := &models.Book{Title: title, LibraryID: f.library.ID}
	require.NoError(t, f.books.Create(book))
	for _, id := range authorIDs {
		require.NoError(t, f.books.AddAuthor(book.ID, id))
	}
	return book
}

func (f *fixture) reload(t *testing.T, id string) *models.Author {
	t.Helper()
	author, err := f.authors.GetByID(id)
	require.NoError(t, err)
	return author
}

func TestLinkAliasOriginalBecomesSimple(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "Richard Bachman")
	alias := f.createAuthor(t, "Stephen King")

	require.NoError(t, f.resolver.LinkAlias(origin.ID, alias.ID))

	got := f.reload(t, alias.ID)
	assert.True(t, got.IsSimpleAlias())
	originID, ok := got.SimpleOrigin()
	require.True(t, ok)
	assert.Equal(t, origin.ID, originID)

	// the origin itself is untouched
	assert.True(t, f.reload(t, origin.ID).IsOriginal())
}

func TestLinkAliasRejectsAliasedOrigin(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "A")
	middle := f.createAuthor(t, "B")
	alias := f.createAuthor(t, "C")
	require.NoError(t, f.resolver.LinkAlias(origin.ID, middle.ID))

	err := f.resolver.LinkAlias(middle.ID, alias.ID)
	assert.True(t, IsConflict(err))
	assert.True(t, f.reload(t, alias.ID).IsOriginal())
}

func TestLinkAliasRejectsOriginWithDependents(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "A")
	target := f.createAuthor(t, "B")
	dependent := f.createAuthor(t, "C")
	require.NoError(t, f.resolver.LinkAlias(target.ID, dependent.ID))

	// target is itself an origin of dependent; it cannot become an alias
	err := f.resolver.LinkAlias(origin.ID, target.ID)
	assert.True(t, IsConflict(err))
	assert.True(t, f.reload(t, target.ID).IsOriginal())
}

func TestLinkAliasSameOriginIsNoOp(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "A")
	alias := f.createAuthor(t, "B")
	require.NoError(t, f.resolver.LinkAlias(origin.ID, alias.ID))

	require.NoError(t, f.resolver.LinkAlias(origin.ID, alias.ID))

	got := f.reload(t, alias.ID)
	assert.True(t, got.IsSimpleAlias())
	edges, err := f.edges.ListByAlias(alias.ID)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestLinkAliasSecondOriginPromotesToCombined(t *testing.T) {
	f := newFixture(t)
	first := f.createAuthor(t, "Stephen King")
	second := f.createAuthor(t, "Peter Straub")
	pen := f.createAuthor(t, "King & Straub")
	require.NoError(t, f.resolver.LinkAlias(first.ID, pen.ID))

	require.NoError(t, f.resolver.LinkAlias(second.ID, pen.ID))

	got := f.reload(t, pen.ID)
	assert.True(t, got.IsCombinedAlias())
	assert.Nil(t, got.AliasOriginID)

	edges, err := f.edges.ListByAlias(pen.ID)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	originIDs := []string{edges[0].OriginID, edges[1].OriginID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, originIDs)
}

func TestLinkAliasCombinedGainsEdgeIdempotently(t *testing.T) {
	f := newFixture(t)
	first := f.createAuthor(t, "A")
	second := f.createAuthor(t, "B")
	third := f.createAuthor(t, "C")
	pen := f.createAuthor(t, "Joint")
	require.NoError(t, f.resolver.LinkAlias(first.ID, pen.ID))
	require.NoError(t, f.resolver.LinkAlias(second.ID, pen.ID))

	require.NoError(t, f.resolver.LinkAlias(third.ID, pen.ID))
	require.NoError(t, f.resolver.LinkAlias(third.ID, pen.ID))

	edges, err := f.edges.ListByAlias(pen.ID)
	require.NoError(t, err)
	assert.Len(t, edges, 3)
}

func TestLinkAliasUnknownAuthors(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "A")

	err := f.resolver.LinkAlias(origin.ID, uuid.NewString())
	assert.True(t, IsNotFound(err))

	err = f.resolver.LinkAlias(uuid.NewString(), origin.ID)
	assert.True(t, IsNotFound(err))
}

func TestLinkAliasBatch(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "A")
	first := f.createAuthor(t, "B")
	second := f.createAuthor(t, "C")

	require.NoError(t, f.resolver.LinkAliasBatch(origin.ID, []string{first.ID, second.ID}))

	assert.True(t, f.reload(t, first.ID).IsSimpleAlias())
	assert.True(t, f.reload(t, second.ID).IsSimpleAlias())
}

func TestLinkAliasBatchEmpty(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "A")

	err := f.resolver.LinkAliasBatch(origin.ID, nil)
	assert.True(t, IsValidation(err))
}

func TestLinkAliasBatchStopsAtFirstFailure(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "A")
	good := f.createAuthor(t, "B")
	after := f.createAuthor(t, "D")

	err := f.resolver.LinkAliasBatch(origin.ID, []string{good.ID, uuid.NewString(), after.ID})
	assert.True(t, IsNotFound(err))

	// the link before the failure stands, the one after never ran
	assert.True(t, f.reload(t, good.ID).IsSimpleAlias())
	assert.True(t, f.reload(t, after.ID).IsOriginal())
}

func TestSetOriginsSingleOnOriginal(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "A")
	alias := f.createAuthor(t, "B")

	require.NoError(t, f.resolver.SetOrigins(alias.ID, []string{origin.ID}))

	got := f.reload(t, alias.ID)
	assert.True(t, got.IsSimpleAlias())
	originID, _ := got.SimpleOrigin()
	assert.Equal(t, origin.ID, originID)
}

func TestSetOriginsSingleRejectsAliasedOrigin(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "A")
	middle := f.createAuthor(t, "B")
	alias := f.createAuthor(t, "C")
	require.NoError(t, f.resolver.LinkAlias(origin.ID, middle.ID))

	err := f.resolver.SetOrigins(alias.ID, []string{middle.ID})
	assert.True(t, IsConflict(err))
	assert.True(t, f.reload(t, alias.ID).IsOriginal())
}

func TestSetOriginsRejectsOriginWithSimpleDependents(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "Origin")
	dependent := f.createAuthor(t, "Dependent")
	other := f.createAuthor(t, "Other")
	require.NoError(t, f.resolver.LinkAlias(origin.ID, dependent.ID))

	// origin is the target of a simple alias; it cannot become an alias itself
	err := f.resolver.SetOrigins(origin.ID, []string{other.ID})
	assert.True(t, IsConflict(err))

	assert.True(t, f.reload(t, origin.ID).IsOriginal())
	got := f.reload(t, dependent.ID)
	originID, ok := got.SimpleOrigin()
	require.True(t, ok)
	assert.Equal(t, origin.ID, originID)
}

func TestSetOriginsRejectsOriginWithCombinedDependents(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "Origin")
	second := f.createAuthor(t, "Second")
	other := f.createAuthor(t, "Other")
	pen := f.createAuthor(t, "Pen")
	require.NoError(t, f.resolver.LinkAlias(origin.ID, pen.ID))
	require.NoError(t, f.resolver.LinkAlias(second.ID, pen.ID))

	// origin holds edges into a combined alias; it cannot become an alias
	err := f.resolver.SetOrigins(origin.ID, []string{other.ID})
	assert.True(t, IsConflict(err))
	assert.True(t, f.reload(t, origin.ID).IsOriginal())
}

func TestSetOriginsMigratesSimpleToCombined(t *testing.T) {
	f := newFixture(t)
	first := f.createAuthor(t, "A")
	second := f.createAuthor(t, "B")
	alias := f.createAuthor(t, "C")
	require.NoError(t, f.resolver.LinkAlias(first.ID, alias.ID))

	require.NoError(t, f.resolver.SetOrigins(alias.ID, []string{first.ID, second.ID}))

	got := f.reload(t, alias.ID)
	assert.True(t, got.IsCombinedAlias())
	edges, err := f.edges.ListByAlias(alias.ID)
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}

func TestSetOriginsExtendsCombined(t *testing.T) {
	f := newFixture(t)
	first := f.createAuthor(t, "A")
	second := f.createAuthor(t, "B")
	third := f.createAuthor(t, "C")
	alias := f.createAuthor(t, "D")
	require.NoError(t, f.resolver.LinkAlias(first.ID, alias.ID))
	require.NoError(t, f.resolver.LinkAlias(second.ID, alias.ID))

	// existing edges are kept, only the new origin gains one
	require.NoError(t, f.resolver.SetOrigins(alias.ID, []string{first.ID, second.ID, third.ID}))

	edges, err := f.edges.ListByAlias(alias.ID)
	require.NoError(t, err)
	assert.Len(t, edges, 3)
}

func TestSetOriginsRejectsUnsupportedShapes(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "A")
	other := f.createAuthor(t, "B")
	alias := f.createAuthor(t, "C")

	// original author with more than one origin
	err := f.resolver.SetOrigins(alias.ID, []string{origin.ID, other.ID})
	assert.True(t, IsValidation(err))

	// aliased author with exactly one origin
	require.NoError(t, f.resolver.LinkAlias(origin.ID, alias.ID))
	err = f.resolver.SetOrigins(alias.ID, []string{other.ID})
	assert.True(t, IsValidation(err))

	// empty set
	err = f.resolver.SetOrigins(alias.ID, nil)
	assert.True(t, IsValidation(err))
}

func TestUnlinkSimpleAliasFromOrigin(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "A")
	alias := f.createAuthor(t, "B")
	require.NoError(t, f.resolver.LinkAlias(origin.ID, alias.ID))

	require.NoError(t, f.resolver.Unlink(origin.ID, alias.ID))

	got := f.reload(t, alias.ID)
	assert.True(t, got.IsOriginal())
	assert.Nil(t, got.AliasOriginID)
}

func TestUnlinkCombinedAliasKeepsRemainingEdges(t *testing.T) {
	f := newFixture(t)
	first := f.createAuthor(t, "A")
	second := f.createAuthor(t, "B")
	alias := f.createAuthor(t, "C")
	require.NoError(t, f.resolver.LinkAlias(first.ID, alias.ID))
	require.NoError(t, f.resolver.LinkAlias(second.ID, alias.ID))

	require.NoError(t, f.resolver.Unlink(first.ID, alias.ID))

	assert.True(t, f.reload(t, alias.ID).IsCombinedAlias())
	edges, err := f.edges.ListByAlias(alias.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, second.ID, edges[0].OriginID)
}

func TestUnlinkLastEdgeDemotesCombinedAlias(t *testing.T) {
	f := newFixture(t)
	first := f.createAuthor(t, "A")
	second := f.createAuthor(t, "B")
	alias := f.createAuthor(t, "C")
	require.NoError(t, f.resolver.LinkAlias(first.ID, alias.ID))
	require.NoError(t, f.resolver.LinkAlias(second.ID, alias.ID))

	require.NoError(t, f.resolver.Unlink(first.ID, alias.ID))
	require.NoError(t, f.resolver.Unlink(second.ID, alias.ID))

	got := f.reload(t, alias.ID)
	assert.True(t, got.IsOriginal())
	count, err := f.edges.CountByAlias(alias.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUnlinkBothOriginalIsNoOp(t *testing.T) {
	f := newFixture(t)
	a := f.createAuthor(t, "A")
	b := f.createAuthor(t, "B")

	require.NoError(t, f.resolver.Unlink(a.ID, b.ID))

	assert.True(t, f.reload(t, a.ID).IsOriginal())
	assert.True(t, f.reload(t, b.ID).IsOriginal())
}

func TestUnlinkKeyedOnCombinedFirstArgument(t *testing.T) {
	f := newFixture(t)
	first := f.createAuthor(t, "A")
	second := f.createAuthor(t, "B")
	alias := f.createAuthor(t, "C")
	require.NoError(t, f.resolver.LinkAlias(first.ID, alias.ID))
	require.NoError(t, f.resolver.LinkAlias(second.ID, alias.ID))

	// called with the combined alias first: remove the named origin from
	// its origin set
	require.NoError(t, f.resolver.Unlink(alias.ID, first.ID))

	edges, err := f.edges.ListByAlias(alias.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, second.ID, edges[0].OriginID)
}

func TestUnlinkKeyedOnSimpleFirstArgument(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "A")
	alias := f.createAuthor(t, "B")
	unrelated := f.createAuthor(t, "C")
	require.NoError(t, f.resolver.LinkAlias(origin.ID, alias.ID))

	// a simple alias in first position is demoted regardless of the second
	// argument
	require.NoError(t, f.resolver.Unlink(alias.ID, unrelated.ID))

	assert.True(t, f.reload(t, alias.ID).IsOriginal())
}

func TestGetOrigin(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "A")
	alias := f.createAuthor(t, "B")
	require.NoError(t, f.resolver.LinkAlias(origin.ID, alias.ID))

	got, err := f.resolver.GetOrigin(alias.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, origin.ID, got.ID)

	// an original author has no origin
	got, err = f.resolver.GetOrigin(origin.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetOriginOnCombinedAlias(t *testing.T) {
	f := newFixture(t)
	first := f.createAuthor(t, "A")
	second := f.createAuthor(t, "B")
	alias := f.createAuthor(t, "C")
	require.NoError(t, f.resolver.LinkAlias(first.ID, alias.ID))
	require.NoError(t, f.resolver.LinkAlias(second.ID, alias.ID))

	// a combined alias has no single origin
	_, err := f.resolver.GetOrigin(alias.ID)
	assert.True(t, IsNotFound(err))
}

func TestGetOrigins(t *testing.T) {
	f := newFixture(t)
	first := f.createAuthor(t, "Alpha")
	second := f.createAuthor(t, "Beta")
	alias := f.createAuthor(t, "C")
	require.NoError(t, f.resolver.LinkAlias(first.ID, alias.ID))
	require.NoError(t, f.resolver.LinkAlias(second.ID, alias.ID))

	origins, err := f.resolver.GetOrigins(alias.ID)
	require.NoError(t, err)
	require.Len(t, origins, 2)
	assert.Equal(t, "Alpha", origins[0].Name)
	assert.Equal(t, "Beta", origins[1].Name)
}

func TestGetOriginsRequiresCombinedAlias(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "A")
	alias := f.createAuthor(t, "B")
	require.NoError(t, f.resolver.LinkAlias(origin.ID, alias.ID))

	_, err := f.resolver.GetOrigins(origin.ID)
	assert.ErrorIs(t, err, ErrNotCombinedAlias)

	_, err = f.resolver.GetOrigins(alias.ID)
	assert.ErrorIs(t, err, ErrNotCombinedAlias)
}

func TestGetCombinedAliasesOf(t *testing.T) {
	f := newFixture(t)
	first := f.createAuthor(t, "A")
	second := f.createAuthor(t, "B")
	pen := f.createAuthor(t, "Joint")
	require.NoError(t, f.resolver.LinkAlias(first.ID, pen.ID))
	require.NoError(t, f.resolver.LinkAlias(second.ID, pen.ID))

	aliases, err := f.resolver.GetCombinedAliasesOf(first.ID)
	require.NoError(t, err)
	require.Len(t, aliases, 1)
	assert.Equal(t, pen.ID, aliases[0].ID)

	// an origin with no combined aliases gets an empty list, not an error
	lone := f.createAuthor(t, "Lone")
	aliases, err = f.resolver.GetCombinedAliasesOf(lone.ID)
	require.NoError(t, err)
	assert.Empty(t, aliases)
}

func TestGetCombinedAliasesOfRequiresOriginal(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "A")
	alias := f.createAuthor(t, "B")
	require.NoError(t, f.resolver.LinkAlias(origin.ID, alias.ID))

	_, err := f.resolver.GetCombinedAliasesOf(alias.ID)
	assert.ErrorIs(t, err, ErrNotOriginAuthor)
}

func TestGetDirectAliasesOf(t *testing.T) {
	f := newFixture(t)
	origin := f.createAuthor(t, "A")
	first := f.createAuthor(t, "Bravo")
	second := f.createAuthor(t, "Charlie")
	require.NoError(t, f.resolver.LinkAlias(origin.ID, first.ID))
	require.NoError(t, f.resolver.LinkAlias(origin.ID, second.ID))

	aliases, err := f.resolver.GetDirectAliasesOf(origin.ID)
	require.NoError(t, err)
	require.Len(t, aliases, 2)
	assert.Equal(t, "Bravo", aliases[0].Name)
	assert.Equal(t, "Charlie", aliases[1].Name)
}

func TestDetachAuthorSeversAllRelationships(t *testing.T) {
	f := newFixture(t)
	target := f.createAuthor(t, "Target")
	simple := f.createAuthor(t, "Simple")
	other := f.createAuthor(t, "Other")
	pen := f.createAuthor(t, "Pen")
	require.NoError(t, f.resolver.LinkAlias(target.ID, simple.ID))
	require.NoError(t, f.resolver.LinkAlias(target.ID, pen.ID))
	require.NoError(t, f.resolver.LinkAlias(other.ID, pen.ID))

	require.NoError(t, f.resolver.DetachAuthor(target.ID))

	// the simple alias returns to original state
	assert.True(t, f.reload(t, simple.ID).IsOriginal())
	// the combined alias loses target's edge but keeps other's
	edges, err := f.edges.ListByAlias(pen.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, other.ID, edges[0].OriginID)
	assert.True(t, f.reload(t, pen.ID).IsCombinedAlias())
}

func TestDetachAuthorDemotesOrphanedCombinedAlias(t *testing.T) {
	f := newFixture(t)
	target := f.createAuthor(t, "Target")
	second := f.createAuthor(t, "Second")
	pen := f.createAuthor(t, "Pen")
	require.NoError(t, f.resolver.LinkAlias(target.ID, pen.ID))
	require.NoError(t, f.resolver.LinkAlias(second.ID, pen.ID))
	require.NoError(t, f.resolver.Unlink(second.ID, pen.ID))

	require.NoError(t, f.resolver.DetachAuthor(target.ID))

	assert.True(t, f.reload(t, pen.ID).IsOriginal())
}
