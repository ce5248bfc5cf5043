package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maauso/gifstudio-api/internal/job"
	"github.com/maauso/gifstudio-api/internal/studio"
)

// StartRender handles POST /projects/{id}/renders requests.
func (h *Handlers) StartRender(w http.ResponseWriter, r *http.Request) {
	var req StartRenderRequest
	if r.ContentLength != 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}

	projectID := chi.URLParam(r, "id")
	created, err := h.service.StartRender(r.Context(), projectID, studio.RenderOptions{Publish: req.Publish})
	if err != nil {
		h.writeServiceError(w, err, "failed to start render")
		return
	}

	// Render in background with a detached context
	// Use context.WithoutCancel to prevent cancellation when the request ends
	if h.enableAsyncProcess {
		go func(ctx context.Context, jobID string) {
			if processErr := h.service.ProcessRender(ctx, jobID); processErr != nil {
				h.logger.Error("background render failed",
					slog.String("job_id", jobID),
					slog.String("error", processErr.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), created.ID)
	}

	h.logger.Info("render requested",
		slog.String("job_id", created.ID),
		slog.String("project_id", projectID),
	)

	writeJSON(w, http.StatusAccepted, toRenderResponse(created))
}

// ListRenders handles GET /projects/{id}/renders requests.
func (h *Handlers) ListRenders(w http.ResponseWriter, r *http.Request) {
	renders, err := h.service.ListRenders(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to list renders")
		return
	}

	resp := RenderListResponse{Renders: make([]RenderResponse, len(renders))}
	for i, j := range renders {
		resp.Renders[i] = toRenderResponse(j)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetRender handles GET /renders/{id} requests.
// A completed render carries its output as base64, or its URL when published.
func (h *Handlers) GetRender(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	found, err := h.service.GetRender(r.Context(), jobID)
	if err != nil {
		h.writeServiceError(w, err, "failed to get render")
		return
	}

	resp := toRenderResponse(found)

	if found.Status == job.StatusCompleted && found.OutputURL == "" && found.OutputPath != "" {
		data, err := h.readOutput(r.Context(), jobID)
		if err != nil {
			h.logger.Error("failed to read render output",
				slog.String("job_id", jobID),
				slog.String("path", found.OutputPath),
				slog.String("error", err.Error()),
			)
			// Don't fail the request, just log and omit the output
		} else {
			resp.OutputBase64 = base64.StdEncoding.EncodeToString(data)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRenderOutput handles GET /renders/{id}/output requests by streaming the file.
func (h *Handlers) GetRenderOutput(w http.ResponseWriter, r *http.Request) {
	rc, found, err := h.service.OpenRenderOutput(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to open render output")
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", found.Format.ContentType())
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("failed to stream render output",
			slog.String("job_id", found.ID),
			slog.String("error", err.Error()),
		)
	}
}

// CancelRender handles POST /renders/{id}/cancel requests.
func (h *Handlers) CancelRender(w http.ResponseWriter, r *http.Request) {
	found, err := h.service.CancelRender(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to cancel render")
		return
	}
	writeJSON(w, http.StatusAccepted, toRenderResponse(found))
}

// DeleteRenderOutput handles DELETE /renders/{id}/output requests.
func (h *Handlers) DeleteRenderOutput(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.DeleteRenderOutput(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "failed to delete render output")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) readOutput(ctx context.Context, jobID string) ([]byte, error) {
	rc, _, err := h.service.OpenRenderOutput(ctx, jobID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read render output: %w", err)
	}
	return data, nil
}
