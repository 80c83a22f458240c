// Package overlay implements the text-overlay half of the rendering pipeline:
// structural validation of processing requests and generation of encoder
// filter graphs from percentage-positioned overlays.
package overlay

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/timmy/gifforge/internal/domain"
)

const (
	// MaxTextLength is the per-overlay text cap.
	MaxTextLength = 200

	// MaxFontSize bounds Style.FontSize (exclusive lower, inclusive upper).
	MaxFontSize = 200

	// MaxStrokeWidth bounds Style.StrokeWidth.
	MaxStrokeWidth = 20

	// overlayCountWarnThreshold triggers an advisory warning, not an error.
	overlayCountWarnThreshold = 10

	// overlapWarnDistance is the Euclidean distance (percentage units) below
	// which two overlays are flagged as visually overlapping.
	overlapWarnDistance = 10.0
)

var (
	hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	rgbColorRe = regexp.MustCompile(`^rgba?\(\s*\d{1,3}\s*,\s*\d{1,3}\s*,\s*\d{1,3}\s*(?:,\s*(?:0|1|0?\.\d+|1\.0+)\s*)?\)$`)

	namedColors = map[string]struct{}{
		"white": {}, "black": {}, "red": {}, "green": {}, "blue": {},
		"yellow": {}, "cyan": {}, "magenta": {}, "orange": {}, "purple": {},
		"pink": {}, "gray": {}, "grey": {},
	}
)

// ValidationResult reports the outcome of a pre-processing check. Errors
// block processing; warnings are advisory only.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationResult) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) addWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateRequest checks a GIF descriptor and overlay list before any
// expensive work starts. It reports malformed-but-structurally-present input
// rather than failing.
// Parameters:
//   - gif: source GIF descriptor.
//   - overlays: caption layers to render.
//
// Returns:
//   - *ValidationResult: pass/fail with enumerated reasons.
func ValidateRequest(gif domain.GifDescriptor, overlays []domain.TextOverlay) *ValidationResult {
	res := &ValidationResult{Errors: []string{}, Warnings: []string{}}

	validateGif(gif, res)
	for i, o := range overlays {
		validateOverlay(i, o, res)
	}
	validateCollection(overlays, res)

	res.IsValid = len(res.Errors) == 0
	return res
}

func validateGif(gif domain.GifDescriptor, res *ValidationResult) {
	if strings.TrimSpace(gif.ID) == "" {
		res.addError("gif: id is required")
	}
	if !wellFormedURL(gif.URL) {
		res.addError("gif: url %q is not a well-formed URL", gif.URL)
	}
	if !wellFormedURL(gif.Preview) {
		res.addError("gif: preview %q is not a well-formed URL", gif.Preview)
	}
	if gif.Width <= 0 || gif.Height <= 0 {
		res.addError("gif: dimensions %dx%d must be positive", gif.Width, gif.Height)
	}
	if !gif.Source.Known() {
		res.addError("gif: unknown source %q", gif.Source)
	}
}

func validateOverlay(i int, o domain.TextOverlay, res *ValidationResult) {
	label := fmt.Sprintf("overlay %d", i)
	if o.ID != "" {
		label = fmt.Sprintf("overlay %q", o.ID)
	} else {
		res.addError("overlay %d: id is required", i)
	}

	if utf8.RuneCountInString(o.Text) > MaxTextLength {
		res.addError("%s: text exceeds %d characters", label, MaxTextLength)
	}
	if o.Position.X < 0 || o.Position.X > 100 {
		res.addError("%s: position.x %.2f is outside [0,100]", label, o.Position.X)
	}
	if o.Position.Y < 0 || o.Position.Y > 100 {
		res.addError("%s: position.y %.2f is outside [0,100]", label, o.Position.Y)
	}

	s := o.Style
	if s.FontSize <= 0 || s.FontSize > MaxFontSize {
		res.addError("%s: font size %.1f is outside (0,%d]", label, s.FontSize, MaxFontSize)
	}
	if s.StrokeWidth < 0 || s.StrokeWidth > MaxStrokeWidth {
		res.addError("%s: stroke width %.1f is outside [0,%d]", label, s.StrokeWidth, MaxStrokeWidth)
	}
	if s.Opacity < 0 || s.Opacity > 1 {
		res.addError("%s: opacity %.2f is outside [0,1]", label, s.Opacity)
	}
	if !ValidColor(s.Color) {
		res.addError("%s: color %q is not a recognized color", label, s.Color)
	}
	if s.StrokeColor != "" && !ValidColor(s.StrokeColor) {
		res.addError("%s: stroke color %q is not a recognized color", label, s.StrokeColor)
	}
	switch s.FontWeight {
	case domain.WeightNormal, domain.WeightBold:
	default:
		res.addError("%s: font weight %q must be normal or bold", label, s.FontWeight)
	}
	switch s.TextAlign {
	case domain.AlignLeft, domain.AlignCenter, domain.AlignRight:
	default:
		res.addError("%s: text align %q must be left, center or right", label, s.TextAlign)
	}
}

func validateCollection(overlays []domain.TextOverlay, res *ValidationResult) {
	active := 0
	for _, o := range overlays {
		if o.Active() {
			active++
		}
	}
	if active == 0 {
		res.addError("at least one text overlay with content is required")
	}

	if len(overlays) > overlayCountWarnThreshold {
		res.addWarning("%d overlays may be hard to read; consider fewer than %d",
			len(overlays), overlayCountWarnThreshold+1)
	}

	for i := 0; i < len(overlays); i++ {
		for j := i + 1; j < len(overlays); j++ {
			a, b := overlays[i], overlays[j]
			if !a.Active() || !b.Active() {
				continue
			}
			dx := a.Position.X - b.Position.X
			dy := a.Position.Y - b.Position.Y
			if math.Hypot(dx, dy) < overlapWarnDistance {
				res.addWarning("overlays %d and %d are close together and may overlap", i, j)
			}
		}
	}
}

// ValidColor reports whether s is an accepted color: #RGB/#RRGGBB hex,
// rgb()/rgba(), or one of a small named-color allow-list.
// Parameters:
//   - s: color string to check.
//
// Returns:
//   - bool: true when the color is accepted.
func ValidColor(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if hexColorRe.MatchString(s) {
		return true
	}
	if rgbColorRe.MatchString(strings.ToLower(s)) {
		return true
	}
	_, ok := namedColors[strings.ToLower(s)]
	return ok
}

func wellFormedURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
