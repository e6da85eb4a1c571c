package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/arhipvp/docrouter/internal/decision"
	"github.com/arhipvp/docrouter/internal/domain"
	"github.com/arhipvp/docrouter/internal/middleware"
)

// InitDecision handles POST /decisions/init: валидируем запрос воркфлоу
// и ставим решение в очередь к оператору. Ответ немедленный — сам ответ
// человека уйдет асинхронно на resume_url.
func (h *Handler) InitDecision(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var pending domain.PendingDecision
	if err := json.NewDecoder(r.Body).Decode(&pending); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", requestID)
		return
	}

	if err := validateDecision(&pending); err != nil {
		h.logger.Warn("decision rejected",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	if err := h.queue.Enqueue(&pending); err != nil {
		if errors.Is(err, decision.ErrQueueClosed) {
			h.respondError(w, http.StatusServiceUnavailable, "service is shutting down", requestID)
			return
		}
		h.logger.Error("failed to enqueue decision",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusInternalServerError, "failed to enqueue decision", requestID)
		return
	}

	h.logger.Info("decision queued",
		zap.String("request_id", pending.RequestID),
		zap.Int("endpoints", len(pending.FolderEndpoints)),
		zap.Bool("has_suggestion", pending.SuggestedPath != ""),
	)
	h.respondJSON(w, http.StatusOK, map[string]bool{"ok": true}, requestID)
}

func validateDecision(d *domain.PendingDecision) error {
	if d.RequestID == "" {
		return errors.New("request_id is required")
	}
	if d.ResumeURL == "" {
		return errors.New("resume_url is required")
	}
	if len(d.FolderEndpoints) == 0 {
		return errors.New("folder_endpoints is required")
	}
	return nil
}

// PrintReport handles POST /print-report. Принимает как голый отчет, так и
// обертку {"final_report": {...}} — воркфлоу шлет и так, и так.
func (h *Handler) PrintReport(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var wrapper struct {
		FinalReport json.RawMessage `json:"final_report"`
	}
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", requestID)
		return
	}

	payload := raw
	if err := json.Unmarshal(raw, &wrapper); err == nil && len(wrapper.FinalReport) > 0 {
		payload = wrapper.FinalReport
	}

	var final domain.FinalReport
	if err := json.Unmarshal(payload, &final); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid report payload", requestID)
		return
	}

	h.reporter.Print(&final)
	h.respondJSON(w, http.StatusOK, map[string]bool{"ok": true}, requestID)
}
