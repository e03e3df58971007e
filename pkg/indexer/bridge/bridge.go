// Package bridge streams completed crawl CSVs into a full-text index in
// batches. It is read-only on the CSV and tolerates partial files: the
// output format is append-only and line-oriented, so a crawl still in
// flight imports cleanly up to its last complete row.
package bridge

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/durck/crawl/pkg/indexer"
	"github.com/durck/crawl/pkg/record"
	"go.uber.org/zap"
)

// DefaultBatchSize is used when the configured batch size is zero.
const DefaultBatchSize = 500

// Result summarizes an import or delete pass.
type Result struct {
	Total  int
	Errors int
}

// Importer batches CSV rows into an Indexer.
type Importer struct {
	ix        indexer.Indexer
	batchSize int
	logger    *zap.Logger
	pending   []*indexer.Document
}

// NewImporter creates an Importer.
func NewImporter(ix indexer.Indexer, batchSize int, logger *zap.Logger) *Importer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{ix: ix, batchSize: batchSize, logger: logger}
}

// Import reads a crawl CSV and upserts every well-formed row. Malformed
// rows are counted and skipped, never fatal.
func (im *Importer) Import(csvPath string) (Result, error) {
	var res Result
	site := siteName(csvPath)

	err := im.eachRow(csvPath, func(row []string) {
		doc := rowToDocument(row, site)
		if doc == nil {
			res.Errors++
			return
		}
		im.pending = append(im.pending, doc)
		if len(im.pending) >= im.batchSize {
			im.flush(&res)
		}
	})
	if err != nil {
		return res, err
	}
	im.flush(&res)
	return res, nil
}

// Delete removes the documents named by a CSV's rows.
func (im *Importer) Delete(csvPath string) (Result, error) {
	var res Result
	var ids []string

	err := im.eachRow(csvPath, func(row []string) {
		if len(row) < 2 {
			res.Errors++
			return
		}
		ids = append(ids, indexer.DocumentID(row[1]))
		if len(ids) >= im.batchSize {
			if err := im.ix.Delete(ids); err != nil {
				im.logger.Warn("delete batch failed", zap.Error(err))
				res.Errors += len(ids)
			} else {
				res.Total += len(ids)
			}
			ids = ids[:0]
		}
	})
	if err != nil {
		return res, err
	}
	if len(ids) > 0 {
		if err := im.ix.Delete(ids); err != nil {
			res.Errors += len(ids)
		} else {
			res.Total += len(ids)
		}
	}
	return res, nil
}

func (im *Importer) flush(res *Result) {
	if len(im.pending) == 0 {
		return
	}
	if err := im.ix.Index(im.pending); err != nil {
		im.logger.Warn("index batch failed", zap.Int("size", len(im.pending)), zap.Error(err))
		res.Errors += len(im.pending)
	} else {
		res.Total += len(im.pending)
	}
	im.pending = im.pending[:0]
}

func (im *Importer) eachRow(csvPath string, fn func(row []string)) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("opening csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A torn final line of an in-flight crawl is expected.
			im.logger.Debug("skipping malformed row", zap.Error(err))
			continue
		}
		fn(row)
	}
	return nil
}

// rowToDocument maps the eight-field record onto index attributes.
func rowToDocument(row []string, site string) *indexer.Document {
	if len(row) < record.FieldCount {
		return nil
	}
	url := row[1]
	if url == "" {
		return nil
	}
	return &indexer.Document{
		ID:        indexer.DocumentID(url),
		URL:       url,
		Title:     titleFromURL(url),
		Content:   row[7],
		Class:     row[6],
		Ext:       row[5],
		Server:    row[3],
		Share:     row[4],
		Site:      site,
		RelPath:   row[2],
		Timestamp: indexer.FormatTimestamp(row[0]),
	}
}

// titleFromURL picks the filename the analyst searches by: the nested name
// for embedded files, the last path element otherwise.
func titleFromURL(url string) string {
	if i := strings.LastIndexByte(url, '#'); i >= 0 && i < len(url)-1 {
		return url[i+1:]
	}
	return filepath.Base(url)
}

func siteName(csvPath string) string {
	return strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))
}
