package domain

import (
	"strings"
	"time"
)

// GifSource identifies the provider a GIF descriptor came from.
// Values include SourceGiphy, SourceTenor, and SourceMock.
type GifSource string

const (
	SourceGiphy GifSource = "giphy"
	SourceTenor GifSource = "tenor"
	SourceMock  GifSource = "mock"
)

// Known reports whether the source is one of the recognized providers.
// Parameters: none.
// Returns:
//   - bool: true when the source tag is a known provider.
func (s GifSource) Known() bool {
	switch s {
	case SourceGiphy, SourceTenor, SourceMock:
		return true
	}
	return false
}

// GifDescriptor identifies a source animation fetched from a provider.
// Immutable once created by the search layer.
type GifDescriptor struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Preview    string    `json:"preview"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Duration   float64   `json:"duration,omitempty"`
	FrameCount int       `json:"frame_count,omitempty"`
	Source     GifSource `json:"source"`
}

// FontWeight is the typeface weight of an overlay.
type FontWeight string

const (
	WeightNormal FontWeight = "normal"
	WeightBold   FontWeight = "bold"
)

// TextAlign is the horizontal alignment hint of an overlay.
type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

// Position locates an overlay as percentages (0-100) of the GIF's natural
// dimensions, origin top-left.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// OverlayStyle holds the visual attributes of a text overlay.
type OverlayStyle struct {
	FontSize    float64    `json:"font_size"`
	FontFamily  string     `json:"font_family"`
	Color       string     `json:"color"`
	StrokeColor string     `json:"stroke_color"`
	StrokeWidth float64    `json:"stroke_width"`
	Opacity     float64    `json:"opacity"`
	FontWeight  FontWeight `json:"font_weight"`
	TextAlign   TextAlign  `json:"text_align"`
}

// OverlayAnimation carries optional animation metadata. It is echoed back to
// callers but has no effect on pixel rendering.
type OverlayAnimation struct {
	Type     string  `json:"type"`
	Duration float64 `json:"duration,omitempty"`
	Delay    float64 `json:"delay,omitempty"`
}

// TextOverlay is one user-authored caption layer. The processing pipeline
// treats overlays as read-only input.
type TextOverlay struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Position  Position          `json:"position"`
	Style     OverlayStyle      `json:"style"`
	Animation *OverlayAnimation `json:"animation,omitempty"`

	// IsDragging is a transient UI flag, ignored by the pipeline.
	IsDragging bool `json:"is_dragging,omitempty"`
}

// Active reports whether the overlay has renderable content.
// Parameters: none.
// Returns:
//   - bool: true when the trimmed text is non-empty.
func (o TextOverlay) Active() bool {
	return strings.TrimSpace(o.Text) != ""
}

// ProcessingResult is the raw output of one successful engine run.
type ProcessingResult struct {
	Data           []byte        `json:"-"`
	Size           int64         `json:"size"`
	ProcessingTime time.Duration `json:"processing_time"`

	// Best-effort media metadata probed from the output bytes.
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
	FrameCount int     `json:"frame_count,omitempty"`
}

// ProcessedGif is the caller-facing artifact produced by the orchestrator.
// Never mutated after creation; evicted by cache TTL/LRU or explicit clear.
type ProcessedGif struct {
	GifDescriptor

	ProcessedURL   string        `json:"processed_url"`
	ProcessedAt    time.Time     `json:"processed_at"`
	TextOverlays   []TextOverlay `json:"text_overlays"`
	FileSize       int64         `json:"file_size"`
	ProcessingTime time.Duration `json:"processing_time_ms"`
}

// ProcessingStage labels the phase a job is in.
type ProcessingStage string

const (
	StageLoading    ProcessingStage = "loading"
	StageProcessing ProcessingStage = "processing"
	StageEncoding   ProcessingStage = "encoding"
	StageComplete   ProcessingStage = "complete"
)

// ProcessingProgress is a transient status update pushed to subscribers.
// Progress is in [0,1] and non-decreasing for a given job.
type ProcessingProgress struct {
	Progress      float64         `json:"progress"`
	Stage         ProcessingStage `json:"stage"`
	TimeRemaining int64           `json:"time_remaining_ms,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// ProgressFunc receives progress updates during a processing job.
type ProgressFunc func(ProcessingProgress)

// MemoryUsage exposes the engine's advisory memory bookkeeping.
type MemoryUsage struct {
	Current    int64   `json:"current"`
	Max        int64   `json:"max"`
	Percentage float64 `json:"percentage"`
}

// SharedGif is an ephemeral share-link entry for a processed GIF.
type SharedGif struct {
	ID        string       `json:"id"`
	URL       string       `json:"url"`
	Gif       ProcessedGif `json:"gif"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
	ViewCount int64        `json:"view_count"`
}
