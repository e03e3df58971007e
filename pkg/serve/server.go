// Package serve exposes a completed full-text index behind a small
// read-only HTTP façade: search, autocomplete, cached-document display,
// health and metrics.
package serve

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/durck/crawl/pkg/indexer"
)

// Server serves queries against one Indexer. It performs no writes.
type Server struct {
	ix     indexer.Indexer
	log    *zap.Logger
	reg    *prometheus.Registry
	router chi.Router
}

// New creates the façade. reg may be nil to disable /metrics.
func New(ix indexer.Indexer, reg *prometheus.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{ix: ix, log: logger, reg: reg}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/search", s.handleSearch)
	r.Get("/suggest", s.handleSuggest)
	r.Get("/cache/{id}", s.handleCache)
	if reg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	s.router = r
	return s
}

// Handler returns the router for mounting or testing.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks serving on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("serving search façade", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	from, _ := strconv.Atoi(r.URL.Query().Get("from"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	res, err := s.ix.Search(indexer.Query{Expression: q, From: from, Size: size})
	if err != nil {
		if errors.Is(err, indexer.ErrBadQuery) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("search failed", zap.String("query", q), zap.Error(err))
		writeError(w, http.StatusBadGateway, "search backend unavailable")
		return
	}

	hits := make([]SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, SearchHit{
			ID:         h.Doc.ID,
			URL:        h.Doc.URL,
			Title:      h.Doc.Title,
			Class:      h.Doc.Class,
			Server:     h.Doc.Server,
			Share:      h.Doc.Share,
			Score:      h.Score,
			Highlights: h.Highlights,
		})
	}
	writeData(w, http.StatusOK, SearchData{Total: res.Total, Hits: hits})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("q")
	if prefix == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	titles, err := s.ix.Suggest(prefix, size)
	if err != nil {
		s.log.Error("suggest failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "search backend unavailable")
		return
	}
	if titles == nil {
		titles = []string{}
	}
	writeData(w, http.StatusOK, titles)
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := s.ix.FindByID(id)
	if err != nil {
		if errors.Is(err, indexer.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		s.log.Error("cache lookup failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusBadGateway, "search backend unavailable")
		return
	}
	writeData(w, http.StatusOK, CacheData{
		ID:      doc.ID,
		URL:     doc.URL,
		Title:   doc.Title,
		Class:   doc.Class,
		Content: doc.Content,
	})
}
