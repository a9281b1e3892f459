package repository

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/oakhurst-media/catalogbackend/database"
	"github.com/oakhurst-media/catalogbackend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))
	return db
}

func createTestLibrary(t *testing.T, db *gorm.DB) *models.Library {
	t.Helper()
	library := &models.Library{Name: "Library " + uuid.NewString(), FolderPath: "/library"}
	require.NoError(t, NewLibraryRepository(db).Create(library))
	return library
}

func TestAuthorCreateAssignsDefaults(t *testing.T) {
	db := setupTestDB(t)
	library := createTestLibrary(t, db)
	repo := NewAuthorRepository(db)

	author := &models.Author{Name: "Ursula K. Le Guin", LibraryID: library.ID}
	require.NoError(t, repo.Create(author))

	assert.NotEmpty(t, author.ID)
	assert.Equal(t, models.AliasKindOriginal, author.AliasKind)
	assert.NotZero(t, author.CreatedAt)

	got, err := repo.GetByID(author.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ursula K. Le Guin", got.Name)
	assert.Nil(t, got.AliasOriginID)
}

func TestAuthorGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAuthorRepository(db)

	_, err := repo.GetByID(uuid.NewString())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAuthorGetByIDs(t *testing.T) {
	db := setupTestDB(t)
	library := createTestLibrary(t, db)
	repo := NewAuthorRepository(db)

	b := &models.Author{Name: "Beta", LibraryID: library.ID}
	a := &models.Author{Name: "Alpha", LibraryID: library.ID}
	require.NoError(t, repo.Create(b))
	require.NoError(t, repo.Create(a))

	got, err := repo.GetByIDs([]string{b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alpha", got[0].Name)
	assert.Equal(t, "Beta", got[1].Name)

	got, err = repo.GetByIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAuthorGetByNameExcluding(t *testing.T) {
	db := setupTestDB(t)
	library := createTestLibrary(t, db)
	repo := NewAuthorRepository(db)

	author := &models.Author{Name: "Iain Banks", LibraryID: library.ID}
	require.NoError(t, repo.Create(author))

	got, err := repo.GetByNameExcluding("Iain Banks", uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, author.ID, got.ID)

	// the excluded id hides the only match
	_, err = repo.GetByNameExcluding("Iain Banks", author.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAuthorSetAliasState(t *testing.T) {
	db := setupTestDB(t)
	library := createTestLibrary(t, db)
	repo := NewAuthorRepository(db)

	origin := &models.Author{Name: "Origin", LibraryID: library.ID}
	alias := &models.Author{Name: "Alias", LibraryID: library.ID}
	require.NoError(t, repo.Create(origin))
	require.NoError(t, repo.Create(alias))

	require.NoError(t, repo.SetAliasState(alias.ID, models.AliasKindSimple, &origin.ID))
	got, err := repo.GetByID(alias.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSimpleAlias())
	require.NotNil(t, got.AliasOriginID)
	assert.Equal(t, origin.ID, *got.AliasOriginID)

	// leaving simple state clears the inline pointer
	require.NoError(t, repo.SetAliasState(alias.ID, models.AliasKindCombined, nil))
	got, err = repo.GetByID(alias.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCombinedAlias())
	assert.Nil(t, got.AliasOriginID)
}

func TestAuthorSetAliasStateRequiresOriginForSimple(t *testing.T) {
	db := setupTestDB(t)
	library := createTestLibrary(t, db)
	repo := NewAuthorRepository(db)

	author := &models.Author{Name: "A", LibraryID: library.ID}
	require.NoError(t, repo.Create(author))

	err := repo.SetAliasState(author.ID, models.AliasKindSimple, nil)
	assert.Error(t, err)
}

func TestAuthorListSimpleAliasesOf(t *testing.T) {
	db := setupTestDB(t)
	library := createTestLibrary(t, db)
	repo := NewAuthorRepository(db)

	origin := &models.Author{Name: "Origin", LibraryID: library.ID}
	first := &models.Author{Name: "Bravo", LibraryID: library.ID}
	second := &models.Author{Name: "Alpha", LibraryID: library.ID}
	unrelated := &models.Author{Name: "Unrelated", LibraryID: library.ID}
	for _, a := range []*models.Author{origin, first, second, unrelated} {
		require.NoError(t, repo.Create(a))
	}
	require.NoError(t, repo.SetAliasState(first.ID, models.AliasKindSimple, &origin.ID))
	require.NoError(t, repo.SetAliasState(second.ID, models.AliasKindSimple, &origin.ID))

	got, err := repo.ListSimpleAliasesOf(origin.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alpha", got[0].Name)
	assert.Equal(t, "Bravo", got[1].Name)
}

func TestAuthorUpdate(t *testing.T) {
	db := setupTestDB(t)
	library := createTestLibrary(t, db)
	repo := NewAuthorRepository(db)

	author := &models.Author{Name: "Old Name", LibraryID: library.ID}
	require.NoError(t, repo.Create(author))

	author.Name = "New Name"
	author.Description = "Updated"
	require.NoError(t, repo.Update(author))

	got, err := repo.GetByID(author.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)
	assert.Equal(t, "Updated", got.Description)

	missing := &models.Author{ID: uuid.NewString(), Name: "X"}
	assert.ErrorIs(t, repo.Update(missing), gorm.ErrRecordNotFound)
}

func TestAuthorSetImagePath(t *testing.T) {
	db := setupTestDB(t)
	library := createTestLibrary(t, db)
	repo := NewAuthorRepository(db)

	author := &models.Author{Name: "A", LibraryID: library.ID}
	require.NoError(t, repo.Create(author))

	path := "/images/a.jpg"
	require.NoError(t, repo.SetImagePath(author.ID, &path))
	got, err := repo.GetByID(author.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ImagePath)
	assert.Equal(t, path, *got.ImagePath)

	require.NoError(t, repo.SetImagePath(author.ID, nil))
	got, err = repo.GetByID(author.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ImagePath)
}

func TestAuthorDelete(t *testing.T) {
	db := setupTestDB(t)
	library := createTestLibrary(t, db)
	repo := NewAuthorRepository(db)

	author := &models.Author{Name: "A", LibraryID: library.ID}
	require.NoError(t, repo.Create(author))

	require.NoError(t, repo.Delete(author.ID))
	_, err := repo.GetByID(author.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.ErrorIs(t, repo.Delete(author.ID), gorm.ErrRecordNotFound)
}

func TestAliasEdgeLifecycle(t *testing.T) {
	db := setupTestDB(t)
	library := createTestLibrary(t, db)
	authors := NewAuthorRepository(db)
	edges := NewAliasEdgeRepository(db)

	origin := &models.Author{Name: "Origin", LibraryID: library.ID}
	alias := &models.Author{Name: "Alias", LibraryID: library.ID}
	require.NoError(t, authors.Create(origin))
	require.NoError(t, authors.Create(alias))

	require.NoError(t, edges.Insert(&models.AliasEdge{OriginID: origin.ID, AliasID: alias.ID}))

	edge, err := edges.Get(origin.ID, alias.ID)
	require.NoError(t, err)
	assert.NotZero(t, edge.CreatedAt)

	count, err := edges.CountByAlias(alias.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	byOrigin, err := edges.ListByOrigin(origin.ID)
	require.NoError(t, err)
	assert.Len(t, byOrigin, 1)

	require.NoError(t, edges.Delete(origin.ID, alias.ID))
	_, err = edges.Get(origin.ID, alias.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAliasEdgeDeleteAllForAuthor(t *testing.T) {
	db := setupTestDB(t)
	library := createTestLibrary(t, db)
	authors := NewAuthorRepository(db)
	edges := NewAliasEdgeRepository(db)

	a := &models.Author{Name: "A", LibraryID: library.ID}
	b := &models.Author{Name: "B", LibraryID: library.ID}
	c := &models.Author{Name: "C", LibraryID: library.ID}
	for _, au := range []*models.Author{a, b, c} {
		require.NoError(t, authors.Create(au))
	}
	// a appears once as origin and once as alias
	require.NoError(t, edges.Insert(&models.AliasEdge{OriginID: a.ID, AliasID: b.ID}))
	require.NoError(t, edges.Insert(&models.AliasEdge{OriginID: c.ID, AliasID: a.ID}))
	require.NoError(t, edges.Insert(&models.AliasEdge{OriginID: c.ID, AliasID: b.ID}))

	require.NoError(t, edges.DeleteAllForAuthor(a.ID))

	remaining, err := edges.ListByAlias(b.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, c.ID, remaining[0].OriginID)
}

func TestBookAuthorAssociations(t *testing.T) {
	db := setupTestDB(t)
	library := createTestLibrary(t, db)
	authors := NewAuthorRepository(db)
	books := NewBookRepository(db)

	author := &models.Author{Name: "A", LibraryID: library.ID}
	other := &models.Author{Name: "B", LibraryID: library.ID}
	require.NoError(t, authors.Create(author))
	require.NoError(t, authors.Create(other))

	book := &models.Book{Title: "Novel", LibraryID: library.ID}
	require.NoError(t, books.Create(book))
	require.NoError(t, books.AddAuthor(book.ID, author.ID))
	// duplicate association is skipped
	require.NoError(t, books.AddAuthor(book.ID, author.ID))

	count, err := books.CountByAuthor(author.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	listed, err := books.ListByAuthor(author.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Len(t, listed[0].Authors, 1)

	require.NoError(t, books.SetAuthors(book.ID, []string{other.ID}))
	got, err := books.GetByID(book.ID)
	require.NoError(t, err)
	require.Len(t, got.Authors, 1)
	assert.Equal(t, other.ID, got.Authors[0].ID)

	require.NoError(t, books.RemoveAuthorFromAllBooks(other.ID))
	count, err = books.CountByAuthor(other.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
