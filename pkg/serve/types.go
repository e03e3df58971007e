package serve

import (
	"encoding/json"
	"net/http"
)

// Response is the uniform JSON envelope for every endpoint.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SearchData is the data payload of /search responses.
type SearchData struct {
	Total uint64      `json:"total"`
	Hits  []SearchHit `json:"hits"`
}

// SearchHit is one ranked result.
type SearchHit struct {
	ID         string   `json:"id"`
	URL        string   `json:"url"`
	Title      string   `json:"title"`
	Class      string   `json:"class"`
	Server     string   `json:"server,omitempty"`
	Share      string   `json:"share,omitempty"`
	Score      float64  `json:"score"`
	Highlights []string `json:"highlights,omitempty"`
}

// CacheData is the data payload of /cache responses.
type CacheData struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Class   string `json:"class"`
	Content string `json:"content"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Success: false, Error: msg})
}
