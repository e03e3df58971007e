package serve

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/durck/crawl/pkg/indexer"
	"github.com/durck/crawl/pkg/stats"
)

type stubIndexer struct {
	searchRes *indexer.Result
	searchErr error
	doc       *indexer.Document
	docErr    error
	titles    []string
}

func (s *stubIndexer) Init() error                              { return nil }
func (s *stubIndexer) Index(docs []*indexer.Document) error     { return nil }
func (s *stubIndexer) Delete(ids []string) error                { return nil }
func (s *stubIndexer) Drop() error                              { return nil }
func (s *stubIndexer) Close() error                             { return nil }
func (s *stubIndexer) FindByID(id string) (*indexer.Document, error) {
	return s.doc, s.docErr
}
func (s *stubIndexer) Search(q indexer.Query) (*indexer.Result, error) {
	return s.searchRes, s.searchErr
}
func (s *stubIndexer) Suggest(prefix string, size int) ([]string, error) {
	return s.titles, nil
}

func doGet(t *testing.T, srv *Server, path string) (*http.Response, Response) {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	res, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer res.Body.Close()

	var envelope Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&envelope))
	return res, envelope
}

func TestSearch_OK(t *testing.T) {
	stub := &stubIndexer{searchRes: &indexer.Result{
		Total: 2,
		Hits: []indexer.Hit{{
			Doc:        &indexer.Document{ID: "abc", URL: "file://fs01/share/a.txt", Title: "a.txt", Class: "text", Server: "fs01"},
			Score:      3.2,
			Highlights: []string{"<em>match</em>"},
		}},
	}}
	srv := New(stub, nil, nil)

	res, envelope := doGet(t, srv, "/search?q=password")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	require.True(t, envelope.Success)

	data, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var parsed SearchData
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.EqualValues(t, 2, parsed.Total)
	require.Len(t, parsed.Hits, 1)
	assert.Equal(t, "abc", parsed.Hits[0].ID)
	assert.Equal(t, "fs01", parsed.Hits[0].Server)
	assert.Equal(t, []string{"<em>match</em>"}, parsed.Hits[0].Highlights)
}

func TestSearch_MissingQuery(t *testing.T) {
	srv := New(&stubIndexer{}, nil, nil)
	res, envelope := doGet(t, srv, "/search")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.False(t, envelope.Success)
	assert.NotEmpty(t, envelope.Error)
}

func TestSearch_BackendDown(t *testing.T) {
	srv := New(&stubIndexer{searchErr: errors.New("connection refused")}, nil, nil)
	res, envelope := doGet(t, srv, "/search?q=x")
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
	assert.False(t, envelope.Success)
}

func TestSuggest(t *testing.T) {
	srv := New(&stubIndexer{titles: []string{"passwords.xlsx", "passport.pdf"}}, nil, nil)
	res, envelope := doGet(t, srv, "/suggest?q=pass")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, envelope.Success)

	data, _ := json.Marshal(envelope.Data)
	var titles []string
	require.NoError(t, json.Unmarshal(data, &titles))
	assert.Equal(t, []string{"passwords.xlsx", "passport.pdf"}, titles)
}

func TestCache_Found(t *testing.T) {
	srv := New(&stubIndexer{doc: &indexer.Document{ID: "abc", Content: "cached text"}}, nil, nil)
	res, envelope := doGet(t, srv, "/cache/abc")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	data, _ := json.Marshal(envelope.Data)
	var parsed CacheData
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "cached text", parsed.Content)
}

func TestCache_NotFound(t *testing.T) {
	srv := New(&stubIndexer{docErr: indexer.ErrNotFound}, nil, nil)
	res, envelope := doGet(t, srv, "/cache/missing")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.False(t, envelope.Success)
}

func TestHealthz(t *testing.T) {
	srv := New(&stubIndexer{}, nil, nil)
	res, envelope := doGet(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, envelope.Success)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	st := stats.New()
	require.NoError(t, st.Register(reg))
	st.AddProcessed()

	srv := New(&stubIndexer{}, reg, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
