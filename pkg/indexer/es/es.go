// Package es implements the indexer contract against an Elasticsearch or
// OpenSearch cluster.
package es

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/durck/crawl/pkg/indexer"
)

// Static and compile-time check that Index implements the contract.
var _ indexer.Indexer = (*Index)(nil)

// esMappings tunes the index for document search: path-hierarchy analysis
// on URLs, an edge-ngram autocomplete subfield on titles, and Russian
// stop words and stemming on titles and content.
const esMappings = `
{
  "mappings": {
    "properties": {
      "timestamp": {"type": "date", "format": "yyyy-MM-dd HH:mm:ss||epoch_second"},
      "inurl":    {"type": "text", "analyzer": "path_analyzer", "fields": {"keyword": {"type": "keyword"}}},
      "relpath":  {"type": "keyword"},
      "server":   {"type": "keyword"},
      "share":    {"type": "keyword"},
      "site":     {"type": "keyword"},
      "ext":      {"type": "keyword"},
      "intitle":  {"type": "text", "analyzer": "multilang", "fields": {"autocomplete": {"type": "text", "analyzer": "autocomplete", "search_analyzer": "standard"}}},
      "intext":   {"type": "text", "analyzer": "multilang"},
      "filetype": {"type": "keyword"}
    }
  },
  "settings": {
    "index": {"number_of_shards": 1, "number_of_replicas": 0, "refresh_interval": "30s"},
    "analysis": {
      "analyzer": {
        "default":       {"type": "custom", "tokenizer": "standard", "filter": ["lowercase", "multilang_stop", "multilang_stemmer"]},
        "multilang":     {"type": "custom", "tokenizer": "standard", "filter": ["lowercase", "multilang_stop", "multilang_stemmer"]},
        "path_analyzer": {"type": "custom", "tokenizer": "path_tokenizer", "filter": ["lowercase"]},
        "autocomplete":  {"type": "custom", "tokenizer": "standard", "filter": ["lowercase", "autocomplete_filter"]}
      },
      "tokenizer": {"path_tokenizer": {"type": "path_hierarchy", "delimiter": "/"}},
      "filter": {
        "multilang_stop":      {"type": "stop", "stopwords": "_russian_"},
        "multilang_stemmer":   {"type": "stemmer", "language": "russian"},
        "autocomplete_filter": {"type": "edge_ngram", "min_gram": 2, "max_gram": 20}
      }
    }
  }
}`

// Config for the ES-backed indexer.
type Config struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
	Insecure  bool // skip TLS verification (self-signed clusters)
}

// Index talks to one named Elasticsearch index.
type Index struct {
	client *elasticsearch.Client
	name   string
}

// New creates the ES indexer.
func New(cfg Config) (*Index, error) {
	if cfg.Index == "" {
		return nil, fmt.Errorf("index name is required")
	}

	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	}
	if cfg.Insecure {
		esCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return &Index{client: client, name: cfg.Index}, nil
}

// Init creates the index with its mappings; an existing index is fine.
func (x *Index) Init() error {
	res, err := x.client.Indices.Create(x.name, x.client.Indices.Create.WithBody(strings.NewReader(esMappings)))
	if err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		if strings.Contains(string(body), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("creating index: %s", res.Status())
	}
	return nil
}

// Index bulk-upserts a batch of documents.
func (x *Index) Index(docs []*indexer.Document) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		if doc.ID == "" {
			return indexer.ErrMissingID
		}
		meta, err := json.Marshal(map[string]any{"index": map[string]any{"_index": x.name, "_id": doc.ID}})
		if err != nil {
			return err
		}
		source, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(source)
		buf.WriteByte('\n')
	}

	return x.bulk(&buf)
}

// Delete bulk-removes documents by id.
func (x *Index) Delete(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, id := range ids {
		meta, err := json.Marshal(map[string]any{"delete": map[string]any{"_index": x.name, "_id": id}})
		if err != nil {
			return err
		}
		buf.Write(meta)
		buf.WriteByte('\n')
	}
	return x.bulk(&buf)
}

func (x *Index) bulk(body io.Reader) error {
	res, err := x.client.Bulk(body, x.client.Bulk.WithRefresh("false"))
	if err != nil {
		return fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk request: %s", res.Status())
	}

	var bulkRes struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Error *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkRes); err != nil {
		return fmt.Errorf("decoding bulk response: %w", err)
	}
	if bulkRes.Errors {
		for _, item := range bulkRes.Items {
			for _, op := range item {
				if op.Error != nil {
					return fmt.Errorf("bulk item failed: %s: %s", op.Error.Type, op.Error.Reason)
				}
			}
		}
		return fmt.Errorf("bulk request reported errors")
	}
	return nil
}

// Refresh makes indexed documents visible to search immediately.
func (x *Index) Refresh() error {
	res, err := x.client.Indices.Refresh(x.client.Indices.Refresh.WithIndex(x.name))
	if err != nil {
		return fmt.Errorf("refreshing index: %w", err)
	}
	res.Body.Close()
	return nil
}

// FindByID fetches a single document.
func (x *Index) FindByID(id string) (*indexer.Document, error) {
	res, err := x.client.Get(x.name, id)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, indexer.ErrNotFound
	}
	if res.IsError() {
		return nil, fmt.Errorf("get request: %s", res.Status())
	}

	var getRes struct {
		Source indexer.Document `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&getRes); err != nil {
		return nil, fmt.Errorf("decoding get response: %w", err)
	}
	doc := getRes.Source
	doc.ID = id
	return &doc, nil
}

// searchBody builds the ranked query: URLs dominate titles dominate content.
func searchBody(q indexer.Query) map[string]any {
	return map[string]any{
		"size": q.Size,
		"from": q.From,
		"query": map[string]any{
			"query_string": map[string]any{
				"query":            sanitizeQuery(q.Expression),
				"fields":           []string{"inurl^100", "intitle^50", "intext^5"},
				"default_operator": "AND",
				"fuzziness":        "AUTO",
			},
		},
		"highlight": map[string]any{
			"order": "score",
			"fields": map[string]any{
				"*": map[string]any{"fragment_size": 50, "number_of_fragments": 3},
			},
		},
	}
}

func sanitizeQuery(q string) string {
	return strings.NewReplacer("<", "", ">", "", ";", "").Replace(q)
}

// Search runs a ranked query with highlights.
func (x *Index) Search(q indexer.Query) (*indexer.Result, error) {
	if strings.TrimSpace(q.Expression) == "" {
		return nil, indexer.ErrBadQuery
	}
	if q.Size <= 0 {
		q.Size = 10
	}

	body, err := json.Marshal(searchBody(q))
	if err != nil {
		return nil, err
	}

	res, err := x.client.Search(
		x.client.Search.WithIndex(x.name),
		x.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search request: %s", res.Status())
	}
	return decodeSearch(res)
}

type esSearchRes struct {
	Hits struct {
		Total struct {
			Value uint64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID        string              `json:"_id"`
			Score     float64             `json:"_score"`
			Source    indexer.Document    `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

func decodeSearch(res *esapi.Response) (*indexer.Result, error) {
	var parsed esSearchRes
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	result := &indexer.Result{Total: parsed.Hits.Total.Value}
	for _, h := range parsed.Hits.Hits {
		doc := h.Source
		doc.ID = h.ID
		hit := indexer.Hit{Doc: &doc, Score: h.Score}
		for _, frags := range h.Highlight {
			hit.Highlights = append(hit.Highlights, frags...)
		}
		result.Hits = append(result.Hits, hit)
	}
	return result, nil
}

// Suggest completes title prefixes through the edge-ngram subfield.
func (x *Index) Suggest(prefix string, size int) ([]string, error) {
	if size <= 0 {
		size = 10
	}
	body, err := json.Marshal(map[string]any{
		"size":    size,
		"_source": []string{"intitle"},
		"query": map[string]any{
			"match": map[string]any{
				"intitle.autocomplete": sanitizeQuery(prefix),
			},
		},
	})
	if err != nil {
		return nil, err
	}

	res, err := x.client.Search(
		x.client.Search.WithIndex(x.name),
		x.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("suggest request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("suggest request: %s", res.Status())
	}

	parsed, err := decodeSearch(res)
	if err != nil {
		return nil, err
	}
	var titles []string
	for _, h := range parsed.Hits {
		if h.Doc.Title != "" {
			titles = append(titles, h.Doc.Title)
		}
	}
	return titles, nil
}

// Drop deletes the index.
func (x *Index) Drop() error {
	res, err := x.client.Indices.Delete([]string{x.name})
	if err != nil {
		return fmt.Errorf("deleting index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("deleting index: %s", res.Status())
	}
	return nil
}

// Close is a no-op; the underlying transport needs no teardown.
func (x *Index) Close() error { return nil }
