package validators

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/vparse/vparse/internal/errors"
)

// maxRequestBody bounds validate request bodies
const maxRequestBody = 64 << 10

// Handlers provides HTTP handlers for URL validation
type Handlers struct {
	registry *Registry
}

// NewHandlers creates a new Handlers instance
func NewHandlers(registry *Registry) *Handlers {
	return &Handlers{
		registry: registry,
	}
}

// ValidateURLRequest is the request body for URL validation
type ValidateURLRequest struct {
	URL string `json:"url"`
}

// SupportedPlatformsResponse is the response for listing supported platforms
type SupportedPlatformsResponse struct {
	Platforms []string `json:"platforms"`
}

// ValidateURL handles POST /api/v1/validate
func (h *Handlers) ValidateURL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req ValidateURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteError(w, apperrors.GetRequestID(r.Context()), apperrors.BadRequest("invalid JSON body"))
		return
	}
	h.validate(w, r, req.URL)
}

// ValidateURLQuery handles GET /api/v1/validate?url=...
func (h *Handlers) ValidateURLQuery(w http.ResponseWriter, r *http.Request) {
	h.validate(w, r, r.URL.Query().Get("url"))
}

func (h *Handlers) validate(w http.ResponseWriter, r *http.Request, raw string) {
	requestID := apperrors.GetRequestID(r.Context())

	normalized, err := Normalize(raw)
	if errors.Is(err, ErrEmptyInput) {
		apperrors.WriteError(w, requestID, apperrors.EmptyInput())
		return
	}

	result := h.registry.Validate(normalized)
	status := http.StatusOK
	if !result.Valid {
		status = http.StatusUnprocessableEntity
	}
	apperrors.WriteJSON(w, requestID, status, result)
}

// GetSupportedPlatforms handles GET /api/v1/platforms
func (h *Handlers) GetSupportedPlatforms(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK,
		SupportedPlatformsResponse{Platforms: h.registry.SupportedPlatforms()})
}
