package overlay

import (
	"fmt"
	"strings"

	"github.com/timmy/gifforge/internal/domain"
)

// DefaultColor is used when a color cannot be converted to the encoder's
// native hex literal. Falling back keeps the render going instead of failing
// the whole job over one bad color.
const DefaultColor = "white"

// FilterPass is one candidate filter graph for the encoder. Passes are tried
// in order; the first one that renders wins.
type FilterPass struct {
	Graph     string
	WithFonts bool
}

// FontFileFunc resolves a weight to a staged font file path. An empty return
// means no font file is available for that weight.
type FontFileFunc func(weight domain.FontWeight) string

// EscapeText escapes a raw string for use inside a drawtext text parameter.
// Backslashes are escaped first, then colons, then single quotes; the order
// matters so later steps do not re-escape the backslashes just inserted.
// Parameters:
//   - s: raw overlay text.
//
// Returns:
//   - string: filter-safe text.
func EscapeText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `:`, `\:`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return s
}

// ConvertColor turns a UI color into the encoder's native form. Six-digit
// hex becomes a 0xRRGGBB literal; three-digit hex is expanded first;
// anything else falls back to DefaultColor.
// Parameters:
//   - s: UI color string.
//
// Returns:
//   - string: encoder color literal.
func ConvertColor(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		return DefaultColor
	}
	hex := s[1:]
	if len(hex) == 3 {
		var b strings.Builder
		for _, r := range hex {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		hex = b.String()
	}
	if len(hex) != 6 {
		return DefaultColor
	}
	for _, r := range hex {
		if !isHexDigit(r) {
			return DefaultColor
		}
	}
	return "0x" + strings.ToUpper(hex)
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// DrawtextFilter renders one overlay as a drawtext filter. Positions are
// emitted as encoder expressions over the input dimensions (W, H) so they
// resolve against the actual decoded frame size at run time; this layer
// never needs to know pixel dimensions. Text anchors at its top-left
// drawing origin.
// Parameters:
//   - o: overlay to render.
//   - fontFile: staged font file path, or empty to rely on the built-in font.
//
// Returns:
//   - string: a single drawtext filter expression.
func DrawtextFilter(o domain.TextOverlay, fontFile string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "drawtext=text='%s'", EscapeText(o.Text))
	fmt.Fprintf(&b, ":x=(W*%s/100):y=(H*%s/100)", trimFloat(o.Position.X), trimFloat(o.Position.Y))
	fmt.Fprintf(&b, ":fontsize=%s", trimFloat(o.Style.FontSize))
	fmt.Fprintf(&b, ":fontcolor=%s@%.2f", ConvertColor(o.Style.Color), o.Style.Opacity)

	if o.Style.StrokeWidth > 0 {
		fmt.Fprintf(&b, ":borderw=%s:bordercolor=%s",
			trimFloat(o.Style.StrokeWidth), ConvertColor(o.Style.StrokeColor))
	}
	if fontFile != "" {
		fmt.Fprintf(&b, ":fontfile=%s", fontFile)
	}
	return b.String()
}

// BuildPasses produces the ordered list of filter graphs for a job. The
// first pass references staged font files for custom rendering; the second
// carries identical text, position and style parameters but omits font-file
// directives, relying on the encoder's built-in font. When no overlay has
// renderable text a single passthrough graph is returned (output equals
// input).
// Parameters:
//   - overlays: caption layers; inactive (blank) overlays are skipped.
//   - fontFile: resolver for staged font paths; nil disables the font pass.
//
// Returns:
//   - []FilterPass: graphs to try in order.
func BuildPasses(overlays []domain.TextOverlay, fontFile FontFileFunc) []FilterPass {
	var active []domain.TextOverlay
	for _, o := range overlays {
		if o.Active() {
			active = append(active, o)
		}
	}
	if len(active) == 0 {
		return []FilterPass{{Graph: "null"}}
	}

	var passes []FilterPass
	if fontFile != nil {
		if graph, ok := chain(active, fontFile); ok {
			passes = append(passes, FilterPass{Graph: graph, WithFonts: true})
		}
	}
	graph, _ := chain(active, nil)
	passes = append(passes, FilterPass{Graph: graph})
	return passes
}

// chain joins per-overlay drawtext filters and finishes with a palette round
// trip for GIF-quality output. The second return is false when fonts were
// requested but no overlay could resolve a font file.
func chain(active []domain.TextOverlay, fontFile FontFileFunc) (string, bool) {
	parts := make([]string, 0, len(active))
	resolvedAny := false
	for _, o := range active {
		path := ""
		if fontFile != nil {
			weight := o.Style.FontWeight
			if weight == "" {
				weight = domain.WeightNormal
			}
			path = fontFile(weight)
			if path != "" {
				resolvedAny = true
			}
		}
		parts = append(parts, DrawtextFilter(o, path))
	}
	graph := strings.Join(parts, ",") + ",split[a][b];[b]palettegen[p];[a][p]paletteuse"
	return graph, fontFile == nil || resolvedAny
}

// trimFloat prints a float without trailing zero noise.
func trimFloat(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}
