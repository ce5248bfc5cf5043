package server

import (
	"github.com/maauso/gifstudio-api/internal/job"
	"github.com/maauso/gifstudio-api/internal/media"
	"github.com/maauso/gifstudio-api/internal/project"
)

// toSettings maps request settings to domain settings. Zero values are
// defaulted by the project.
func toSettings(req SettingsRequest) project.Settings {
	s := project.Settings{
		Format:  media.Format(req.Format),
		FPS:     req.FPS,
		Width:   req.Width,
		Height:  req.Height,
		Loop:    req.Loop,
		Quality: req.Quality,
	}
	if o := req.Overlay; o != nil {
		s.Overlay = &media.Overlay{
			Text:      o.Text,
			FontSize:  o.FontSize,
			FontColor: o.FontColor,
			Position:  media.Position(o.Position),
			Margin:    o.Margin,
			Opacity:   o.Opacity,
		}
	}
	return s
}

func toProjectResponse(v project.View) ProjectResponse {
	frames := make([]FrameResponse, len(v.Frames))
	for i, f := range v.Frames {
		frames[i] = FrameResponse{ID: f.ID, Name: f.Name, DelayMs: f.DelayMs}
	}
	return ProjectResponse{
		ID:        v.ID,
		Name:      v.Name,
		Frames:    frames,
		Settings:  toSettingsResponse(v.Settings),
		History:   toHistoryResponse(v.History),
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

func toSettingsResponse(s project.Settings) SettingsResponse {
	resp := SettingsResponse{
		Format:  string(s.Format),
		FPS:     s.FPS,
		Width:   s.Width,
		Height:  s.Height,
		Loop:    s.Loop,
		Quality: s.Quality,
	}
	if o := s.Overlay; o != nil {
		resp.Overlay = &OverlayResponse{
			Text:      o.Text,
			FontSize:  o.FontSize,
			FontColor: o.FontColor,
			HasImage:  o.ImagePath != "",
			Position:  string(o.Position),
			Margin:    o.Margin,
			Opacity:   o.Opacity,
		}
	}
	return resp
}

func toHistoryResponse(h project.HistoryState) HistoryResponse {
	entries := make([]HistoryEntryResponse, len(h.Entries))
	for i, e := range h.Entries {
		entries[i] = HistoryEntryResponse{FrameCount: e.FrameCount, CreatedAt: e.CreatedAt}
	}
	return HistoryResponse{
		CanUndo:    h.CanUndo,
		CanRedo:    h.CanRedo,
		Length:     h.Length,
		Cursor:     h.Cursor,
		MaxHistory: h.MaxHistory,
		Entries:    entries,
	}
}

func toRenderResponse(j *job.Job) RenderResponse {
	return RenderResponse{
		ID:         j.ID,
		ProjectID:  j.ProjectID,
		Status:     string(j.Status),
		Format:     string(j.Format),
		FrameCount: j.FrameCount,
		Progress:   j.Progress,
		Error:      j.Error,
		OutputURL:  j.OutputURL,
		CreatedAt:  j.CreatedAt,
	}
}
