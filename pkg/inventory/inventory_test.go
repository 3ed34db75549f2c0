package inventory_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notefold/annotate/pkg/inventory"
)

func TestRead(t *testing.T) {
	data := `document_id,note_date,note_type
doc-1,2021-03-04,Progress Note
doc-2,2021-03-05,Operative Note
doc-3,2021-03-06,Pathology Report
`
	inv, err := inventory.Read(strings.NewReader(data), inventory.ReaderConfig{})
	require.NoError(t, err)

	assert.Equal(t, []string{"document_id", "note_date", "note_type"}, inv.Columns)
	require.Len(t, inv.Docs, 3)
	assert.Equal(t, "doc-1", inv.Docs[0].ID)
	assert.Equal(t, "Progress Note", inv.Docs[0].Fields["note_type"])
	assert.Equal(t, "2021-03-06", inv.Docs[2].Fields["note_date"])
	assert.Equal(t, []string{"doc-1", "doc-2", "doc-3"}, inv.IDs())
}

func TestRead_BOM(t *testing.T) {
	data := "\xEF\xBB\xBFdocument_id,note_type\ndoc-1,Progress Note\n"

	inv, err := inventory.Read(strings.NewReader(data), inventory.ReaderConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{"document_id", "note_type"}, inv.Columns)
	require.Len(t, inv.Docs, 1)
	assert.Equal(t, "doc-1", inv.Docs[0].ID)
}

func TestRead_CustomIDColumn(t *testing.T) {
	data := "NOTE_ID,note_type\nn-1,Progress Note\n"

	inv, err := inventory.Read(strings.NewReader(data), inventory.ReaderConfig{IDColumn: "NOTE_ID"})
	require.NoError(t, err)
	assert.Equal(t, "n-1", inv.Docs[0].ID)
}

func TestRead_MissingIDColumn(t *testing.T) {
	data := "note_date,note_type\n2021-03-04,Progress Note\n"

	_, err := inventory.Read(strings.NewReader(data), inventory.ReaderConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no "document_id" column`)
}

func TestRead_EmptyID(t *testing.T) {
	data := "document_id,note_type\n,Progress Note\n"

	_, err := inventory.Read(strings.NewReader(data), inventory.ReaderConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty document_id")
}

func TestRead_ShortRowPadded(t *testing.T) {
	data := "document_id,note_date,note_type\ndoc-1,2021-03-04\n"

	inv, err := inventory.Read(strings.NewReader(data), inventory.ReaderConfig{})
	require.NoError(t, err)
	assert.Equal(t, "", inv.Docs[0].Fields["note_type"])
}

func TestRead_DuplicateIDsKept(t *testing.T) {
	// Dedup happens at materialization, not on read.
	data := "document_id\ndoc-1\ndoc-1\ndoc-2\n"

	inv, err := inventory.Read(strings.NewReader(data), inventory.ReaderConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1", "doc-1", "doc-2"}, inv.IDs())
}

func TestRead_Empty(t *testing.T) {
	_, err := inventory.Read(strings.NewReader(""), inventory.ReaderConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}
