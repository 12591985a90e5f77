package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"sigs.k8s.io/yaml"

	"github.com/daap14/caseentry/internal/api/middleware"
	"github.com/daap14/caseentry/internal/api/response"
)

// OpenAPIHandler serves the embedded YAML API document as JSON.
type OpenAPIHandler struct {
	rawYAML []byte
	version string

	once sync.Once
	doc  []byte
	etag string
	err  error
}

// NewOpenAPIHandler creates the handler. A non-empty version replaces the
// document's info.version so the served document matches the running build.
func NewOpenAPIHandler(yamlSpec []byte, version string) *OpenAPIHandler {
	return &OpenAPIHandler{rawYAML: yamlSpec, version: version}
}

// ServeHTTP writes the converted document, answering 304 to a matching
// If-None-Match.
func (h *OpenAPIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.once.Do(h.convert)

	if h.err != nil {
		slog.Error("failed to convert OpenAPI document", "error", h.err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to convert OpenAPI document", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("ETag", h.etag)
	if r.Header.Get("If-None-Match") == h.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(h.doc); err != nil {
		slog.Error("failed to write OpenAPI response", "error", err)
	}
}

func (h *OpenAPIHandler) convert() {
	raw, err := yaml.YAMLToJSON(h.rawYAML)
	if err != nil {
		h.err = err
		return
	}

	if h.version != "" {
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			h.err = err
			return
		}
		info, ok := doc["info"].(map[string]any)
		if !ok {
			h.err = fmt.Errorf("document has no info object")
			return
		}
		info["version"] = h.version
		if raw, err = json.Marshal(doc); err != nil {
			h.err = err
			return
		}
	}

	sum := sha256.Sum256(raw)
	h.doc = raw
	h.etag = `"` + hex.EncodeToString(sum[:8]) + `"`
}
