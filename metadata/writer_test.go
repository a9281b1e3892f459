package metadata

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/oakhurst-media/catalogbackend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveMetadataWritesDocument(t *testing.T) {
	writer, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	book := models.Book{
		ID:        "book-1",
		Title:     "The Stand",
		LibraryID: "lib-1",
		Authors: []*models.Author{
			{ID: "author-1", Name: "Stephen King"},
			nil,
		},
	}
	require.NoError(t, writer.SaveMetadata(book))

	data, err := os.ReadFile(writer.MetadataPath(book.ID))
	require.NoError(t, err)

	var doc BookMetadata
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "book-1", doc.ID)
	assert.Equal(t, "The Stand", doc.Title)
	assert.Equal(t, "lib-1", doc.LibraryID)
	require.Len(t, doc.Authors, 1)
	assert.Equal(t, "Stephen King", doc.Authors[0].Name)
	assert.NotZero(t, doc.SavedAt)
}

func TestSaveMetadataReplacesPrevious(t *testing.T) {
	writer, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	book := models.Book{ID: "book-1", Title: "Old Title", LibraryID: "lib-1"}
	require.NoError(t, writer.SaveMetadata(book))

	book.Title = "New Title"
	require.NoError(t, writer.SaveMetadata(book))

	data, err := os.ReadFile(writer.MetadataPath(book.ID))
	require.NoError(t, err)

	var doc BookMetadata
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "New Title", doc.Title)
	assert.Empty(t, doc.Authors)

	// no temp file is left behind
	_, err = os.Stat(writer.MetadataPath(book.ID) + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
