// Package indexer defines the full-text index contract the search bridge
// targets. Implementations exist for a remote Elasticsearch/OpenSearch
// cluster and an embedded bleve index; the crawl core requires neither.
package indexer

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

// Errors shared by indexer implementations.
var (
	ErrNotFound  = errors.New("document not found")
	ErrMissingID = errors.New("document is missing an ID")
	ErrBadQuery  = errors.New("invalid query")
)

// Document is one indexed file record. Field names follow the search
// operators exposed to analysts: inurl, intitle, intext.
type Document struct {
	ID        string `json:"-"`
	URL       string `json:"inurl"`
	Title     string `json:"intitle"`
	Content   string `json:"intext"`
	Class     string `json:"filetype"`
	Ext       string `json:"ext"`
	Server    string `json:"server"`
	Share     string `json:"share"`
	Site      string `json:"site"`
	RelPath   string `json:"relpath"`
	Timestamp string `json:"timestamp"`
}

// DocumentID derives the stable document id from a logical URL.
func DocumentID(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// FormatTimestamp renders an epoch-second string the way the index mapping
// expects. Unparseable input is passed through.
func FormatTimestamp(epoch string) string {
	sec, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return epoch
	}
	return time.Unix(sec, 0).UTC().Format("2006-01-02 15:04:05")
}

// Query is a ranked search request.
type Query struct {
	Expression string
	From       int
	Size       int
}

// Hit is one search result with highlighted fragments.
type Hit struct {
	Doc        *Document
	Score      float64
	Highlights []string
}

// Result is a page of ranked hits.
type Result struct {
	Total uint64
	Hits  []Hit
}

// Indexer is implemented by full-text index backends. Index and Delete are
// batched; relevance weighting (inurl over intitle over intext) is a
// property of the backend's query boosts.
type Indexer interface {
	// Init creates the index with its mappings. Idempotent.
	Init() error

	// Index upserts a batch of documents.
	Index(docs []*Document) error

	// Delete removes documents by id.
	Delete(ids []string) error

	// FindByID fetches one document, ErrNotFound if absent.
	FindByID(id string) (*Document, error)

	// Search returns ranked hits with highlights.
	Search(q Query) (*Result, error)

	// Suggest returns title completions for a prefix.
	Suggest(prefix string, size int) ([]string, error)

	// Drop deletes the entire index.
	Drop() error

	// Close releases backend resources.
	Close() error
}
