package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/arhipvp/docrouter/internal/extract"
	"github.com/arhipvp/docrouter/internal/middleware"
)

const maxUploadMemory = 32 << 20 // form parts above this spill to disk

// ExtractByPathRequest is the body of POST /extract-text-by-path
type ExtractByPathRequest struct {
	FilePath string `json:"file_path"`
	OCRLangs string `json:"ocr_langs"`
}

// LangRequest is the body of POST /lang
type LangRequest struct {
	Text string `json:"text"`
}

// ExtractText handles POST /extract-text (multipart upload).
// Ручная загрузка для тестов; основной путь конвейера — by-path.
func (h *Handler) ExtractText(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.logger.Warn("failed to parse multipart form",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusBadRequest, "invalid multipart form", requestID)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "file field is required", requestID)
		return
	}
	defer file.Close()

	if !isPDFName(header.Filename) {
		h.logger.Warn("upload rejected: not a pdf",
			zap.String("request_id", requestID),
			zap.String("filename", header.Filename),
		)
		h.respondError(w, http.StatusBadRequest, "only .pdf accepted", requestID)
		return
	}

	ocrLangs := r.FormValue("ocr_langs")
	if ocrLangs == "" {
		ocrLangs = h.defaultOCRLangs
	}

	// Входящий файл проливается во временный и удаляется после извлечения.
	tmp, err := os.CreateTemp("", "docrouter-upload-*.pdf")
	if err != nil {
		h.logger.Error("failed to create temp file",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusInternalServerError, "failed to store upload", requestID)
		return
	}
	tmpPath := tmp.Name()
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			h.logger.Warn("failed to remove uploaded temp file",
				zap.String("path", tmpPath),
				zap.Error(err),
			)
		}
	}()

	written, err := io.Copy(tmp, file)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		h.logger.Error("failed to spool upload",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		h.respondError(w, http.StatusInternalServerError, "failed to store upload", requestID)
		return
	}

	h.logger.Info("upload received",
		zap.String("request_id", requestID),
		zap.String("filename", header.Filename),
		zap.Int64("bytes", written),
		zap.String("ocr_langs", ocrLangs),
	)

	result, err := h.extractor.Extract(ctx, tmpPath, ocrLangs)
	if err != nil {
		h.respondExtractError(w, err, requestID)
		return
	}

	// Размер отдаем по принятым байтам, а не по временному файлу.
	result.SizeBytes = written
	h.respondJSON(w, http.StatusOK, result, requestID)
}

// ExtractTextByPath handles POST /extract-text-by-path
func (h *Handler) ExtractTextByPath(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req ExtractByPathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", requestID)
		return
	}

	path := filepath.Clean(req.FilePath)
	if !isPDFName(path) {
		h.logger.Warn("extract rejected: not a pdf",
			zap.String("request_id", requestID),
			zap.String("path", path),
		)
		h.respondError(w, http.StatusBadRequest, "only .pdf accepted", requestID)
		return
	}
	if _, err := os.Stat(path); err != nil {
		h.logger.Warn("extract rejected: file not found",
			zap.String("request_id", requestID),
			zap.String("path", path),
		)
		h.respondError(w, http.StatusNotFound, "file not found", requestID)
		return
	}

	ocrLangs := req.OCRLangs
	if ocrLangs == "" {
		ocrLangs = h.defaultOCRLangs
	}

	result, err := h.extractor.Extract(ctx, path, ocrLangs)
	if err != nil {
		h.respondExtractError(w, err, requestID)
		return
	}

	h.respondJSON(w, http.StatusOK, result, requestID)
}

// DetectLanguage handles POST /lang
func (h *Handler) DetectLanguage(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req LangRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", requestID)
		return
	}

	result := h.classifier.Classify(req.Text)
	h.respondJSON(w, http.StatusOK, result, requestID)
}

// respondExtractError maps pipeline failures onto the wire contract:
// a failed OCR run is reported distinctly so the workflow can retry it.
func (h *Handler) respondExtractError(w http.ResponseWriter, err error, requestID string) {
	var extractionErr *extract.ExtractionError
	if errors.As(err, &extractionErr) {
		h.logger.Error("ocr failed",
			zap.String("request_id", requestID),
			zap.String("path", extractionErr.Path),
			zap.Error(err),
		)
		h.respondErrorDetail(w, http.StatusInternalServerError, "ocr_failed", extractionErr.Detail, requestID)
		return
	}

	h.logger.Error("extraction failed",
		zap.String("request_id", requestID),
		zap.Error(err),
	)
	h.respondErrorDetail(w, http.StatusInternalServerError, "extract_failed", err.Error(), requestID)
}

func isPDFName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
