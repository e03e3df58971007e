package bleve

import (
	"testing"

	"github.com/durck/crawl/pkg/indexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memIndex(t *testing.T) *Index {
	t.Helper()
	x, err := New("")
	require.NoError(t, err)
	t.Cleanup(func() { x.Close() })
	return x
}

func seedDocs(t *testing.T, x *Index) {
	t.Helper()
	require.NoError(t, x.Index([]*indexer.Document{
		{
			ID:      indexer.DocumentID("file://fs01/share/passwords.xlsx"),
			URL:     "file://fs01/share/passwords.xlsx",
			Title:   "passwords.xlsx",
			Content: "admin hunter2 svc-backup winter2024",
			Class:   "excel",
			Ext:     "xlsx",
			Server:  "fs01",
			Share:   "share",
		},
		{
			ID:      indexer.DocumentID("file://fs01/share/minutes.docx"),
			URL:     "file://fs01/share/minutes.docx",
			Title:   "minutes.docx",
			Content: "board meeting minutes quarterly review",
			Class:   "word",
			Ext:     "docx",
		},
	}))
}

func TestBleve_IndexAndSearch(t *testing.T) {
	x := memIndex(t)
	seedDocs(t, x)

	res, err := x.Search(indexer.Query{Expression: "hunter2"})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)
	assert.Equal(t, "passwords.xlsx", res.Hits[0].Doc.Title)
	assert.Equal(t, "excel", res.Hits[0].Doc.Class)
	assert.NotEmpty(t, res.Hits[0].Highlights)
}

func TestBleve_FindByID(t *testing.T) {
	x := memIndex(t)
	seedDocs(t, x)

	id := indexer.DocumentID("file://fs01/share/minutes.docx")
	doc, err := x.FindByID(id)
	require.NoError(t, err)
	assert.Equal(t, "board meeting minutes quarterly review", doc.Content)

	_, err = x.FindByID("ffffffffffffffffffffffffffffffff")
	assert.ErrorIs(t, err, indexer.ErrNotFound)
}

func TestBleve_UpsertReplacesDocument(t *testing.T) {
	x := memIndex(t)

	doc := &indexer.Document{ID: "doc1", URL: "u", Title: "t", Content: "first version"}
	require.NoError(t, x.Index([]*indexer.Document{doc}))

	doc.Content = "second version"
	require.NoError(t, x.Index([]*indexer.Document{doc}))

	res, err := x.Search(indexer.Query{Expression: "version"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total)
}

func TestBleve_Delete(t *testing.T) {
	x := memIndex(t)
	seedDocs(t, x)

	id := indexer.DocumentID("file://fs01/share/passwords.xlsx")
	require.NoError(t, x.Delete([]string{id}))

	_, err := x.FindByID(id)
	assert.ErrorIs(t, err, indexer.ErrNotFound)
}

func TestBleve_Suggest(t *testing.T) {
	x := memIndex(t)
	seedDocs(t, x)

	titles, err := x.Suggest("pass", 5)
	require.NoError(t, err)
	assert.Contains(t, titles, "passwords.xlsx")
}

func TestBleve_MissingIDRejected(t *testing.T) {
	x := memIndex(t)
	err := x.Index([]*indexer.Document{{URL: "u"}})
	assert.ErrorIs(t, err, indexer.ErrMissingID)
}

func TestBleve_EmptyQueryRejected(t *testing.T) {
	x := memIndex(t)
	_, err := x.Search(indexer.Query{})
	assert.ErrorIs(t, err, indexer.ErrBadQuery)
}
