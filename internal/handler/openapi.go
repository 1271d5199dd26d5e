package handler

import (
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/Jonathanferreras/watch-the-hutch/internal/openapi"
)

// OpenAPIHandler serves the generated OpenAPI document. The document is
// static for a given build, so it is generated once on first request.
type OpenAPIHandler struct {
	version string

	once sync.Once
	doc  *openapi3.T
}

// NewOpenAPIHandler creates a new OpenAPIHandler.
func NewOpenAPIHandler(version string) *OpenAPIHandler {
	return &OpenAPIHandler{version: version}
}

// ServeSpec returns the OpenAPI document.
// GET /api/v1/openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	h.once.Do(func() {
		h.doc = openapi.Generate("", h.version)
	})
	writeJSON(w, http.StatusOK, h.doc)
}
