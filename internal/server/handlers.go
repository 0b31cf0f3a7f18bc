package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ziadkadry99/edwin/internal/rag"
	"github.com/ziadkadry99/edwin/internal/retriever"
)

const maxBodyBytes = 1 << 20

// searchRequest is the body of /api/search and /api/context. Omitted
// numeric fields and plan take the server defaults.
type searchRequest struct {
	Query    string   `json:"query"`
	TopK     *int     `json:"top_k"`
	MinScore *float32 `json:"min_score"`
	Topics   []string `json:"topics"`
	Entities []string `json:"entities"`
	Version  *int     `json:"version"`
	Plan     *bool    `json:"plan"`
}

func (b searchRequest) toRequest() rag.Request {
	return rag.Request{
		Query:    b.Query,
		TopK:     b.TopK,
		MinScore: b.MinScore,
		Filters: retriever.Filters{
			Topics:   b.Topics,
			Entities: b.Entities,
			Version:  b.Version,
		},
		Plan: b.Plan,
	}
}

type contextResponse struct {
	Context string        `json:"context"`
	Search  *rag.Response `json:"search"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func decodeSearch(w http.ResponseWriter, r *http.Request) (rag.Request, bool) {
	var body searchRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return rag.Request{}, false
	}
	if strings.TrimSpace(body.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return rag.Request{}, false
	}
	if body.TopK != nil && *body.TopK < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "top_k must be non-negative"})
		return rag.Request{}, false
	}
	return body.toRequest(), true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearch(w, r)
	if !ok {
		return
	}
	resp, err := s.searcher.Search(r.Context(), req)
	if err != nil {
		s.writeSearchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, normalize(resp))
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearch(w, r)
	if !ok {
		return
	}
	block, resp, err := s.searcher.Context(r.Context(), req)
	if err != nil {
		s.writeSearchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contextResponse{Context: block, Search: normalize(resp)})
}

func (s *Server) writeSearchError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, retriever.ErrRetrieval) {
		status = http.StatusBadGateway
	}
	s.logger.Error("search failed", "error", err)
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// normalize makes empty result lists encode as [] rather than null.
func normalize(resp *rag.Response) *rag.Response {
	if resp != nil && resp.Results == nil {
		resp.Results = []retriever.Result{}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
