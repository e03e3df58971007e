// Package bleve implements the indexer contract on an embedded bleve index,
// for deployments without an Elasticsearch cluster.
package bleve

import (
	"fmt"
	"os"

	"github.com/blevesearch/bleve"
	_ "github.com/blevesearch/bleve/config"
	"github.com/blevesearch/bleve/mapping"
	"github.com/blevesearch/bleve/search/query"

	"github.com/durck/crawl/pkg/indexer"
)

var _ indexer.Indexer = (*Index)(nil)

// Index wraps a bleve index on disk (or in memory for tests).
type Index struct {
	idx  bleve.Index
	path string
}

func documentMapping() mapping.IndexMapping {
	m := bleve.NewIndexMapping()

	doc := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"

	doc.AddFieldMappingsAt("inurl", text)
	doc.AddFieldMappingsAt("intitle", text)
	doc.AddFieldMappingsAt("intext", text)
	doc.AddFieldMappingsAt("filetype", keyword)
	doc.AddFieldMappingsAt("ext", keyword)
	doc.AddFieldMappingsAt("server", keyword)
	doc.AddFieldMappingsAt("share", keyword)
	doc.AddFieldMappingsAt("site", keyword)
	doc.AddFieldMappingsAt("relpath", keyword)
	doc.AddFieldMappingsAt("timestamp", keyword)

	m.DefaultMapping = doc
	return m
}

// New opens or creates a bleve index at path. An empty path builds an
// in-memory index.
func New(path string) (*Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(documentMapping())
		if err != nil {
			return nil, fmt.Errorf("creating memory index: %w", err)
		}
		return &Index{idx: idx}, nil
	}

	idx, err := bleve.Open(path)
	if err != nil {
		idx, err = bleve.New(path, documentMapping())
		if err != nil {
			return nil, fmt.Errorf("creating index: %w", err)
		}
	}
	return &Index{idx: idx, path: path}, nil
}

// Init is satisfied by New; the mapping exists once the index does.
func (x *Index) Init() error { return nil }

// Index upserts a batch of documents.
func (x *Index) Index(docs []*indexer.Document) error {
	batch := x.idx.NewBatch()
	for _, doc := range docs {
		if doc.ID == "" {
			return indexer.ErrMissingID
		}
		if err := batch.Index(doc.ID, toFields(doc)); err != nil {
			return fmt.Errorf("batching document: %w", err)
		}
	}
	if err := x.idx.Batch(batch); err != nil {
		return fmt.Errorf("executing batch: %w", err)
	}
	return nil
}

// Delete removes documents by id.
func (x *Index) Delete(ids []string) error {
	batch := x.idx.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return x.idx.Batch(batch)
}

func toFields(doc *indexer.Document) map[string]any {
	return map[string]any{
		"inurl":     doc.URL,
		"intitle":   doc.Title,
		"intext":    doc.Content,
		"filetype":  doc.Class,
		"ext":       doc.Ext,
		"server":    doc.Server,
		"share":     doc.Share,
		"site":      doc.Site,
		"relpath":   doc.RelPath,
		"timestamp": doc.Timestamp,
	}
}

func fromFields(id string, fields map[string]any) *indexer.Document {
	str := func(key string) string {
		v, _ := fields[key].(string)
		return v
	}
	return &indexer.Document{
		ID:        id,
		URL:       str("inurl"),
		Title:     str("intitle"),
		Content:   str("intext"),
		Class:     str("filetype"),
		Ext:       str("ext"),
		Server:    str("server"),
		Share:     str("share"),
		Site:      str("site"),
		RelPath:   str("relpath"),
		Timestamp: str("timestamp"),
	}
}

// FindByID fetches one document through a doc-id query.
func (x *Index) FindByID(id string) (*indexer.Document, error) {
	req := bleve.NewSearchRequest(query.NewDocIDQuery([]string{id}))
	req.Fields = []string{"*"}

	res, err := x.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("doc id search: %w", err)
	}
	if len(res.Hits) == 0 {
		return nil, indexer.ErrNotFound
	}
	return fromFields(id, res.Hits[0].Fields), nil
}

// Search runs a ranked query-string search with highlights. The relevance
// order (inurl over intitle over intext) is approximated with per-field
// query boosts.
func (x *Index) Search(q indexer.Query) (*indexer.Result, error) {
	if q.Expression == "" {
		return nil, indexer.ErrBadQuery
	}
	if q.Size <= 0 {
		q.Size = 10
	}

	boosted := bleve.NewDisjunctionQuery()
	for field, boost := range map[string]float64{"inurl": 100, "intitle": 50, "intext": 5} {
		mq := bleve.NewMatchQuery(q.Expression)
		mq.SetField(field)
		mq.SetBoost(boost)
		boosted.AddQuery(mq)
	}
	boosted.AddQuery(bleve.NewQueryStringQuery(q.Expression))

	req := bleve.NewSearchRequestOptions(boosted, q.Size, q.From, false)
	req.Fields = []string{"*"}
	req.Highlight = bleve.NewHighlight()

	res, err := x.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	result := &indexer.Result{Total: res.Total}
	for _, h := range res.Hits {
		hit := indexer.Hit{Doc: fromFields(h.ID, h.Fields), Score: h.Score}
		for _, frags := range h.Fragments {
			hit.Highlights = append(hit.Highlights, frags...)
		}
		result.Hits = append(result.Hits, hit)
	}
	return result, nil
}

// Suggest completes title prefixes.
func (x *Index) Suggest(prefix string, size int) ([]string, error) {
	if size <= 0 {
		size = 10
	}

	pq := bleve.NewPrefixQuery(prefix)
	pq.SetField("intitle")

	req := bleve.NewSearchRequestOptions(pq, size, 0, false)
	req.Fields = []string{"intitle"}

	res, err := x.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}

	var titles []string
	for _, h := range res.Hits {
		if title, ok := h.Fields["intitle"].(string); ok && title != "" {
			titles = append(titles, title)
		}
	}
	return titles, nil
}

// Drop closes and removes the index files.
func (x *Index) Drop() error {
	if err := x.idx.Close(); err != nil {
		return err
	}
	if x.path != "" {
		return os.RemoveAll(x.path)
	}
	return nil
}

// Close releases the index.
func (x *Index) Close() error {
	return x.idx.Close()
}
