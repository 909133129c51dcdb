package api

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/vparse/vparse/internal/errors"
	"github.com/vparse/vparse/internal/parser"
	"github.com/vparse/vparse/internal/resolver"
)

// maxRequestBody bounds parse request bodies
const maxRequestBody = 64 << 10

// ParseHandlers serves parse requests
type ParseHandlers struct {
	service *parser.Service
}

// NewParseHandlers creates a new ParseHandlers instance
func NewParseHandlers(service *parser.Service) *ParseHandlers {
	return &ParseHandlers{service: service}
}

// ParseRequest is the JSON body of a parse request. api_index is accepted as
// an alias of preferred_index.
type ParseRequest struct {
	URL            string `json:"url"`
	PreferredIndex *int   `json:"preferred_index,omitempty"`
	APIIndex       *int   `json:"api_index,omitempty"`
}

// ParseResponse is returned on success
type ParseResponse struct {
	Success bool           `json:"success"`
	Data    *parser.Result `json:"data"`
}

// CandidatesResponse lists the configured candidates
type CandidatesResponse struct {
	Candidates []resolver.Candidate `json:"candidates"`
}

// Parse handles POST /parse and POST /api/v1/parse
func (h *ParseHandlers) Parse(w http.ResponseWriter, r *http.Request) error {
	req, err := decodeParseRequest(w, r)
	if err != nil {
		return err
	}

	// An accepted request runs to completion even if the client goes away.
	ctx := context.WithoutCancel(r.Context())

	res, err := h.service.Parse(ctx, req)
	if err != nil {
		return err
	}

	if res.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, ParseResponse{Success: true, Data: res})
	return nil
}

// PurgeCache handles DELETE /api/v1/cache
func (h *ParseHandlers) PurgeCache(w http.ResponseWriter, r *http.Request) error {
	if err := h.service.PurgeCache(r.Context()); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Candidates handles GET /api/v1/candidates
func (h *ParseHandlers) Candidates(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK,
		CandidatesResponse{Candidates: h.service.Candidates()})
}

// decodeParseRequest reads a JSON or form-encoded parse request
func decodeParseRequest(w http.ResponseWriter, r *http.Request) (parser.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body ParseRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return parser.Request{}, apperrors.BadRequest("invalid JSON body")
		}
		req := parser.Request{URL: body.URL}
		switch {
		case body.PreferredIndex != nil:
			req.PreferredIndex = *body.PreferredIndex
		case body.APIIndex != nil:
			req.PreferredIndex = *body.APIIndex
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return parser.Request{}, apperrors.BadRequest("invalid form body")
	}
	req := parser.Request{URL: r.PostForm.Get("url")}

	raw := r.PostForm.Get("preferred_index")
	if raw == "" {
		raw = r.PostForm.Get("api_index")
	}
	if raw = strings.TrimSpace(raw); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return parser.Request{}, apperrors.InvalidCandidateIndex()
		}
		req.PreferredIndex = idx
	}
	return req, nil
}
