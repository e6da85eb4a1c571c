package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/arhipvp/docrouter/internal/archive"
	"github.com/arhipvp/docrouter/internal/decision"
	"github.com/arhipvp/docrouter/internal/domain"
	"github.com/arhipvp/docrouter/internal/extract"
	"github.com/arhipvp/docrouter/internal/middleware"
	"github.com/arhipvp/docrouter/internal/report"
)

// Handler exposes the routing-pipeline utilities over HTTP. The workflow
// engine is the only intended client, so responses mirror exactly what its
// nodes expect.
type Handler struct {
	extractor  *extract.Service
	classifier domain.Classifier
	queue      *decision.Queue
	archive    *archive.Service
	reporter   *report.Printer
	logger     *zap.Logger

	defaultOCRLangs string
}

// NewHandler creates the HTTP handler with all its collaborators
func NewHandler(
	extractor *extract.Service,
	classifier domain.Classifier,
	queue *decision.Queue,
	archiveSvc *archive.Service,
	reporter *report.Printer,
	defaultOCRLangs string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		extractor:       extractor,
		classifier:      classifier,
		queue:           queue,
		archive:         archiveSvc,
		reporter:        reporter,
		defaultOCRLangs: defaultOCRLangs,
		logger:          logger,
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":        true,
		"timestamp": time.Now().Unix(),
	}, middleware.GetRequestID(r.Context()))
}

// respondJSON sends a JSON response
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}
}

// respondError sends an error response
func (h *Handler) respondError(w http.ResponseWriter, status int, message, requestID string) {
	h.respondJSON(w, status, map[string]string{
		"error": message,
	}, requestID)
}

// respondErrorDetail sends an error response with a machine-readable code
// and a human-readable detail.
func (h *Handler) respondErrorDetail(w http.ResponseWriter, status int, code, detail, requestID string) {
	h.respondJSON(w, status, map[string]string{
		"error":  code,
		"detail": detail,
	}, requestID)
}
