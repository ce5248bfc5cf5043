package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/maauso/gifstudio-api/internal/job"
	"github.com/maauso/gifstudio-api/internal/media"
	"github.com/maauso/gifstudio-api/internal/project"
	"github.com/maauso/gifstudio-api/internal/studio"
)

// DefaultMaxBodyBytes bounds request bodies carrying base64 media.
const DefaultMaxBodyBytes = 256 << 20

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            *studio.Service
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
	maxBodyBytes       int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background rendering.
// When disabled, StartRender only queues the render and returns immediately
// without running it.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// WithMaxBodyBytes sets the maximum accepted request body size.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *studio.Service, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true, // Default to enabled
		maxBodyBytes:       DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateProject handles POST /projects requests.
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !h.decode(w, r, &req) {
		return
	}

	var settings project.Settings
	if req.Settings != nil {
		settings = toSettings(*req.Settings)
	}

	view, err := h.service.CreateProject(r.Context(), req.Name, settings)
	if err != nil {
		h.writeServiceError(w, err, "failed to create project")
		return
	}

	writeJSON(w, http.StatusCreated, toProjectResponse(view))
}

// ListProjects handles GET /projects requests.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListProjects(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "failed to list projects")
		return
	}

	resp := ProjectListResponse{Projects: make([]ProjectResponse, len(views))}
	for i, v := range views {
		resp.Projects[i] = toProjectResponse(v)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProject handles GET /projects/{id} requests.
func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to get project")
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(view))
}

// DeleteProject handles DELETE /projects/{id} requests.
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "failed to delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateSettings handles PUT /projects/{id}/settings requests.
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.service.UpdateSettings(r.Context(), chi.URLParam(r, "id"), toSettings(req))
	if err != nil {
		h.writeServiceError(w, err, "failed to update settings")
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(view))
}

// AddFrames handles POST /projects/{id}/frames requests.
func (h *Handlers) AddFrames(w http.ResponseWriter, r *http.Request) {
	var req AddFramesRequest
	if !h.decode(w, r, &req) {
		return
	}

	uploads := make([]studio.Upload, len(req.Frames))
	for i, f := range req.Frames {
		data, ok := decodeBase64(w, f.ImageBase64)
		if !ok {
			return
		}
		uploads[i] = studio.Upload{Name: f.Name, Data: data}
	}

	view, err := h.service.AddFrames(r.Context(), chi.URLParam(r, "id"), uploads)
	if err != nil {
		h.writeServiceError(w, err, "failed to add frames")
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(view))
}

// ImportVideo handles POST /projects/{id}/video requests.
func (h *Handlers) ImportVideo(w http.ResponseWriter, r *http.Request) {
	var req ImportVideoRequest
	if !h.decode(w, r, &req) {
		return
	}

	data, ok := decodeBase64(w, req.VideoBase64)
	if !ok {
		return
	}

	opts := media.ExtractOpts{
		FPS:         req.FPS,
		StartSec:    req.StartSec,
		DurationSec: req.DurationSec,
		MaxFrames:   req.MaxFrames,
	}
	view, err := h.service.ImportVideo(r.Context(), chi.URLParam(r, "id"), studio.Upload{Name: req.Name, Data: data}, opts)
	if err != nil {
		h.writeServiceError(w, err, "failed to import video")
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(view))
}

// SetOverlayImage handles PUT /projects/{id}/overlay-image requests.
func (h *Handlers) SetOverlayImage(w http.ResponseWriter, r *http.Request) {
	var req OverlayImageRequest
	if !h.decode(w, r, &req) {
		return
	}

	data, ok := decodeBase64(w, req.ImageBase64)
	if !ok {
		return
	}

	view, err := h.service.SetOverlayImage(r.Context(), chi.URLParam(r, "id"), studio.Upload{Name: req.Name, Data: data})
	if err != nil {
		h.writeServiceError(w, err, "failed to set overlay image")
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(view))
}

// RemoveFrame handles DELETE /projects/{id}/frames/{frameID} requests.
func (h *Handlers) RemoveFrame(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.RemoveFrame(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "frameID"))
	if err != nil {
		h.writeServiceError(w, err, "failed to remove frame")
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(view))
}

// MoveFrame handles POST /projects/{id}/frames/{frameID}/move requests.
func (h *Handlers) MoveFrame(w http.ResponseWriter, r *http.Request) {
	var req MoveFrameRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.service.MoveFrame(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "frameID"), *req.To)
	if err != nil {
		h.writeServiceError(w, err, "failed to move frame")
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(view))
}

// ReorderFrames handles PUT /projects/{id}/frames/order requests.
func (h *Handlers) ReorderFrames(w http.ResponseWriter, r *http.Request) {
	var req ReorderFramesRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.service.ReorderFrames(r.Context(), chi.URLParam(r, "id"), req.FrameIDs)
	if err != nil {
		h.writeServiceError(w, err, "failed to reorder frames")
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(view))
}

// RenameProject handles PUT /projects/{id}/name requests.
func (h *Handlers) RenameProject(w http.ResponseWriter, r *http.Request) {
	var req RenameProjectRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.service.RenameProject(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.writeServiceError(w, err, "failed to rename project")
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(view))
}

// SetFrameDelay handles PUT /projects/{id}/frames/{frameID}/delay requests.
func (h *Handlers) SetFrameDelay(w http.ResponseWriter, r *http.Request) {
	var req FrameDelayRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.service.SetFrameDelay(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "frameID"), req.DelayMs)
	if err != nil {
		h.writeServiceError(w, err, "failed to set frame delay")
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(view))
}

// GetPreview handles GET /projects/{id}/frames/{frameID}/preview requests.
func (h *Handlers) GetPreview(w http.ResponseWriter, r *http.Request) {
	rc, err := h.service.OpenPreview(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "frameID"))
	if err != nil {
		h.writeServiceError(w, err, "failed to open preview")
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("failed to stream preview", slog.String("error", err.Error()))
	}
}

// GetHistory handles GET /projects/{id}/history requests.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to get history")
		return
	}
	writeJSON(w, http.StatusOK, toHistoryResponse(state))
}

// ClearHistory handles DELETE /projects/{id}/history requests.
func (h *Handlers) ClearHistory(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ClearHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to clear history")
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(view))
}

// Undo handles POST /projects/{id}/undo requests.
func (h *Handlers) Undo(w http.ResponseWriter, r *http.Request) {
	view, ok, err := h.service.Undo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to undo")
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "nothing to undo", "NOTHING_TO_UNDO")
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(view))
}

// Redo handles POST /projects/{id}/redo requests.
func (h *Handlers) Redo(w http.ResponseWriter, r *http.Request) {
	view, ok, err := h.service.Redo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to redo")
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "nothing to redo", "NOTHING_TO_REDO")
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(view))
}

// decode reads and validates a JSON body. It writes the error response and
// returns false when the body is unusable.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "BODY_TOO_LARGE")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}
	return true
}

// decodeBase64 decodes a validated base64 payload.
func decodeBase64(w http.ResponseWriter, s string) (io.Reader, bool) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid base64 payload", "VALIDATION_ERROR")
		return nil, false
	}
	return bytes.NewReader(data), true
}

// writeServiceError maps studio errors to HTTP responses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error, msg string) {
	var ffErr *media.FFmpegError
	switch {
	case errors.Is(err, project.ErrProjectNotFound):
		writeError(w, http.StatusNotFound, "project not found", "PROJECT_NOT_FOUND")
	case errors.Is(err, project.ErrFrameNotFound):
		writeError(w, http.StatusNotFound, "frame not found", "FRAME_NOT_FOUND")
	case errors.Is(err, job.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "render not found", "RENDER_NOT_FOUND")
	case errors.Is(err, studio.ErrNoOutput):
		writeError(w, http.StatusNotFound, "render has no output", "NO_OUTPUT")
	case errors.Is(err, project.ErrInvalidIndex),
		errors.Is(err, project.ErrInvalidOrder),
		errors.Is(err, project.ErrInvalidDelay),
		errors.Is(err, project.ErrInvalidSettings),
		errors.Is(err, studio.ErrEmptyUpload):
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, studio.ErrNoFrames):
		writeError(w, http.StatusConflict, "project has no frames", "NO_FRAMES")
	case errors.Is(err, studio.ErrRenderInProgress):
		writeError(w, http.StatusConflict, "render in progress", "RENDER_IN_PROGRESS")
	case errors.Is(err, media.ErrNoVideoStream),
		errors.Is(err, media.ErrNothingExtracted),
		errors.As(err, &ffErr):
		h.logger.Warn(msg, slog.String("error", err.Error()))
		writeError(w, http.StatusUnprocessableEntity, "media could not be processed", "MEDIA_ERROR")
	default:
		h.logger.Error(msg, slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, msg, "INTERNAL_ERROR")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
