package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/arhipvp/docrouter/internal/archive"
	"github.com/arhipvp/docrouter/internal/middleware"
)

// RouteApplyRequest is the body of POST /route-apply
type RouteApplyRequest struct {
	InboxName    string `json:"inbox_name"`
	SelectedPath string `json:"selected_path"`
}

// MoveRequest is the body of POST /fs-move
type MoveRequest struct {
	SrcPath  string `json:"src_path"`
	DestDir  string `json:"dest_dir"`
	DestName string `json:"dest_name"`
}

// MkdirRequest is the body of POST /fs-mkdir
type MkdirRequest struct {
	RelPath string `json:"rel_path"`
}

// FolderEndpoints handles GET /folder-endpoints
func (h *Handler) FolderEndpoints(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	endpoints, err := h.archive.Endpoints()
	if err != nil {
		h.logger.Error("archive scan failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		h.respondErrorDetail(w, http.StatusInternalServerError, "scan_failed", err.Error(), requestID)
		return
	}

	h.logger.Info("archive scanned",
		zap.String("request_id", requestID),
		zap.Int("endpoints", len(endpoints)),
	)
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"folder_endpoints": endpoints,
	}, requestID)
}

// ArchiveTree handles GET /list-archive-tree
func (h *Handler) ArchiveTree(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	tree, err := h.archive.Tree()
	if err != nil {
		h.logger.Error("archive tree failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		h.respondErrorDetail(w, http.StatusInternalServerError, "scan_failed", err.Error(), requestID)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"tree": tree}, requestID)
}

// RouteApply handles POST /route-apply
func (h *Handler) RouteApply(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req RouteApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", requestID)
		return
	}

	target, err := h.archive.ApplyRoute(req.InboxName, req.SelectedPath)
	if err != nil {
		if errors.Is(err, archive.ErrRelPathRequired) {
			h.respondError(w, http.StatusBadRequest, "selected_path is required", requestID)
			return
		}
		if errors.Is(err, archive.ErrOutsideRoot) {
			h.respondError(w, http.StatusBadRequest, "selected_path escapes the archive root", requestID)
			return
		}
		h.logger.Error("route apply failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		h.respondErrorDetail(w, http.StatusInternalServerError, "route_failed", err.Error(), requestID)
		return
	}

	h.respondJSON(w, http.StatusOK, target, requestID)
}

// FsMove handles POST /fs-move
func (h *Handler) FsMove(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", requestID)
		return
	}

	dest, err := h.archive.Move(req.SrcPath, req.DestDir, req.DestName)
	if err != nil {
		if errors.Is(err, archive.ErrSourceMissing) {
			h.respondJSON(w, http.StatusNotFound, map[string]string{
				"error": "src_missing",
				"path":  req.SrcPath,
			}, requestID)
			return
		}
		h.logger.Error("move failed",
			zap.String("request_id", requestID),
			zap.String("src", req.SrcPath),
			zap.Error(err),
		)
		h.respondErrorDetail(w, http.StatusInternalServerError, "move_failed", err.Error(), requestID)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":        true,
		"dest_path": dest,
	}, requestID)
}

// FsMkdir handles POST /fs-mkdir
func (h *Handler) FsMkdir(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req MkdirRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", requestID)
		return
	}

	dir, err := h.archive.Mkdir(req.RelPath)
	if err != nil {
		if errors.Is(err, archive.ErrRelPathRequired) {
			h.respondError(w, http.StatusBadRequest, "rel_path is required", requestID)
			return
		}
		if errors.Is(err, archive.ErrOutsideRoot) {
			h.respondError(w, http.StatusBadRequest, "rel_path escapes the archive root", requestID)
			return
		}
		h.logger.Error("mkdir failed",
			zap.String("request_id", requestID),
			zap.String("rel_path", req.RelPath),
			zap.Error(err),
		)
		h.respondErrorDetail(w, http.StatusInternalServerError, "mkdir_failed", err.Error(), requestID)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"dest_dir": dir,
	}, requestID)
}
