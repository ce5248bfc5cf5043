// Package server provides the HTTP server for the gifstudio API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// OverlayRequest describes a text and/or image overlay. The image itself is
// uploaded through PUT /projects/{id}/overlay-image.
type OverlayRequest struct {
	// Text is drawn over every frame when non-empty.
	Text string `json:"text" validate:"max=200"`
	// FontSize is the text size in pixels.
	FontSize int `json:"font_size" validate:"omitempty,min=6,max=256"`
	// FontColor is an ffmpeg color name or hex value.
	FontColor string `json:"font_color" validate:"omitempty,hexcolor|alpha"`
	// Position is one of top-left, top-right, bottom-left, bottom-right, center.
	Position string `json:"position" validate:"omitempty,oneof=top-left top-right bottom-left bottom-right center"`
	// Margin is the distance from the anchored edges in pixels.
	Margin int `json:"margin" validate:"omitempty,min=0,max=1024"`
	// Opacity of the overlay image, in (0, 1]. Omitted or 0 means fully opaque.
	Opacity float64 `json:"opacity" validate:"omitempty,gt=0,lte=1"`
}

// SettingsRequest is the output settings part of a request.
type SettingsRequest struct {
	// Format is gif, webp or mp4.
	Format string `json:"format" validate:"omitempty,oneof=gif webp mp4"`
	// FPS is the default playback rate.
	FPS int `json:"fps" validate:"omitempty,min=1,max=60"`
	// Width is the output width; 0 keeps the source width.
	Width int `json:"width" validate:"min=0,max=4096"`
	// Height is the output height; 0 keeps the source height.
	Height int `json:"height" validate:"min=0,max=4096"`
	// Loop is 0 for infinite, n to play n+1 times.
	Loop int `json:"loop" validate:"min=0,max=65535"`
	// Quality is 1..100.
	Quality int `json:"quality" validate:"omitempty,min=1,max=100"`
	// Overlay is optional.
	Overlay *OverlayRequest `json:"overlay" validate:"omitempty"`
}

// CreateProjectRequest is the HTTP request body for creating a project.
type CreateProjectRequest struct {
	// Name is the display name of the project.
	Name string `json:"name" validate:"max=200"`
	// Settings are optional; defaults apply when omitted.
	Settings *SettingsRequest `json:"settings" validate:"omitempty"`
}

// FrameUpload is one base64-encoded image.
type FrameUpload struct {
	// Name is the original file name.
	Name string `json:"name" validate:"max=255"`
	// ImageBase64 is the base64-encoded image.
	ImageBase64 string `json:"image_base64" validate:"required,base64"`
}

// AddFramesRequest is the HTTP request body for adding frames.
type AddFramesRequest struct {
	Frames []FrameUpload `json:"frames" validate:"required,min=1,max=500,dive"`
}

// ImportVideoRequest is the HTTP request body for importing frames from a video.
type ImportVideoRequest struct {
	// Name is the original file name.
	Name string `json:"name" validate:"max=255"`
	// VideoBase64 is the base64-encoded video.
	VideoBase64 string `json:"video_base64" validate:"required,base64"`
	// FPS is the sampling rate; 0 keeps every source frame.
	FPS int `json:"fps" validate:"min=0,max=60"`
	// StartSec skips the beginning of the video.
	StartSec float64 `json:"start_sec" validate:"min=0"`
	// DurationSec limits the sampled span; 0 means until the end.
	DurationSec float64 `json:"duration_sec" validate:"min=0"`
	// MaxFrames caps the number of frames; 0 uses the server limit.
	MaxFrames int `json:"max_frames" validate:"min=0"`
}

// OverlayImageRequest is the HTTP request body for setting the overlay image.
type OverlayImageRequest struct {
	// Name is the original file name.
	Name string `json:"name" validate:"max=255"`
	// ImageBase64 is the base64-encoded image.
	ImageBase64 string `json:"image_base64" validate:"required,base64"`
}

// MoveFrameRequest is the HTTP request body for reordering a frame.
type MoveFrameRequest struct {
	// To is the target zero-based index.
	To *int `json:"to" validate:"required,min=0"`
}

// ReorderFramesRequest is the HTTP request body for setting the full frame order.
type ReorderFramesRequest struct {
	FrameIDs []string `json:"frame_ids" validate:"required,min=1,dive,required"`
}

// RenameProjectRequest is the HTTP request body for renaming a project.
type RenameProjectRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// FrameDelayRequest is the HTTP request body for setting a frame delay.
// A null delay_ms clears the override.
type FrameDelayRequest struct {
	DelayMs *int `json:"delay_ms" validate:"omitempty,min=0,max=60000"`
}

// StartRenderRequest is the HTTP request body for starting a render.
type StartRenderRequest struct {
	// Publish uploads the output to the publish target (S3).
	Publish bool `json:"publish"`
}

// FrameResponse is one frame in a project response.
type FrameResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	DelayMs *int   `json:"delay_ms,omitempty"`
}

// OverlayResponse is the overlay part of a settings response.
type OverlayResponse struct {
	Text      string  `json:"text,omitempty"`
	FontSize  int     `json:"font_size"`
	FontColor string  `json:"font_color"`
	HasImage  bool    `json:"has_image"`
	Position  string  `json:"position"`
	Margin    int     `json:"margin"`
	Opacity   float64 `json:"opacity"`
}

// SettingsResponse is the settings part of a project response.
type SettingsResponse struct {
	Format  string           `json:"format"`
	FPS     int              `json:"fps"`
	Width   int              `json:"width"`
	Height  int              `json:"height"`
	Loop    int              `json:"loop"`
	Quality int              `json:"quality"`
	Overlay *OverlayResponse `json:"overlay,omitempty"`
}

// HistoryEntryResponse summarizes one history snapshot.
type HistoryEntryResponse struct {
	FrameCount int       `json:"frame_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryResponse is the undo/redo state of a project.
type HistoryResponse struct {
	CanUndo    bool                   `json:"can_undo"`
	CanRedo    bool                   `json:"can_redo"`
	Length     int                    `json:"length"`
	Cursor     int                    `json:"cursor"`
	MaxHistory int                    `json:"max_history"`
	Entries    []HistoryEntryResponse `json:"entries"`
}

// ProjectResponse is the HTTP response for project details.
type ProjectResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Frames    []FrameResponse  `json:"frames"`
	Settings  SettingsResponse `json:"settings"`
	History   HistoryResponse  `json:"history"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ProjectListResponse is the HTTP response for listing projects.
type ProjectListResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

// RenderResponse is the HTTP response for render job details.
type RenderResponse struct {
	// ID is the unique identifier for the render.
	ID string `json:"id"`
	// ProjectID is the rendered project.
	ProjectID string `json:"project_id"`
	// Status is the current job status.
	Status string `json:"status"`
	// Format is the output format.
	Format string `json:"format"`
	// FrameCount is the number of frames captured for the render.
	FrameCount int `json:"frame_count"`
	// Progress is the percentage of completion (0-100).
	Progress int `json:"progress"`
	// Error contains any error message if the render failed.
	Error string `json:"error,omitempty"`
	// OutputBase64 is the base64-encoded output (completed, not published).
	OutputBase64 string `json:"output_base64,omitempty"`
	// OutputURL is the public URL of the output (completed, published).
	OutputURL string `json:"output_url,omitempty"`
	// CreatedAt is when the render was requested.
	CreatedAt time.Time `json:"created_at"`
}

// RenderListResponse is the HTTP response for listing the renders of a project.
type RenderListResponse struct {
	Renders []RenderResponse `json:"renders"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
