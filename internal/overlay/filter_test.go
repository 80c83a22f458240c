package overlay

import (
	"strings"
	"testing"

	"github.com/timmy/gifforge/internal/domain"
)

func TestEscapeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "Hello World"},
		{"Hello: World", `Hello\: World`},
		{"It's", `It\'s`},
		{`a\b`, `a\\b`},
		{`c:\path`, `c\:\\path`},
		{`\:'`, `\\\:\'`},
	}

	for _, tt := range tests {
		if got := EscapeText(tt.in); got != tt.want {
			t.Errorf("EscapeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConvertColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#FFFFFF", "0xFFFFFF"},
		{"#1a2b3c", "0x1A2B3C"},
		{"#abc", "0xAABBCC"},
		{"white", DefaultColor},
		{"rgb(1,2,3)", DefaultColor},
		{"#12345", DefaultColor},
		{"#gghhii", DefaultColor},
		{"", DefaultColor},
	}

	for _, tt := range tests {
		if got := ConvertColor(tt.in); got != tt.want {
			t.Errorf("ConvertColor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDrawtextFilter(t *testing.T) {
	o := domain.TextOverlay{
		ID:       "o1",
		Text:     "Hi: there",
		Position: domain.Position{X: 50, Y: 25.5},
		Style: domain.OverlayStyle{
			FontSize:    24,
			Color:       "#FF0000",
			StrokeColor: "#000000",
			StrokeWidth: 2,
			Opacity:     0.8,
			FontWeight:  domain.WeightBold,
		},
	}

	got := DrawtextFilter(o, "/fonts/bold.ttf")

	for _, want := range []string{
		`text='Hi\: there'`,
		"x=(W*50/100)",
		"y=(H*25.5/100)",
		"fontsize=24",
		"fontcolor=0xFF0000@0.80",
		"borderw=2",
		"bordercolor=0x000000",
		"fontfile=/fonts/bold.ttf",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("filter missing %q:\n%s", want, got)
		}
	}
}

func TestDrawtextFilter_NoStrokeNoFont(t *testing.T) {
	o := domain.TextOverlay{
		ID:       "o1",
		Text:     "Hi",
		Position: domain.Position{X: 0, Y: 100},
		Style:    domain.OverlayStyle{FontSize: 12, Color: "#FFFFFF", Opacity: 1},
	}

	got := DrawtextFilter(o, "")
	if strings.Contains(got, "borderw") {
		t.Errorf("zero stroke width must omit border params: %s", got)
	}
	if strings.Contains(got, "fontfile") {
		t.Errorf("empty font path must omit fontfile: %s", got)
	}
	if !strings.Contains(got, "x=(W*0/100)") || !strings.Contains(got, "y=(H*100/100)") {
		t.Errorf("boundary positions rendered wrong: %s", got)
	}
}

func TestBuildPasses_FontFallbackOrder(t *testing.T) {
	overlays := []domain.TextOverlay{
		{ID: "a", Text: "top", Style: domain.OverlayStyle{FontSize: 20, Color: "#FFF", Opacity: 1, FontWeight: domain.WeightBold}},
		{ID: "b", Text: "", Style: domain.OverlayStyle{FontSize: 20, Color: "#FFF", Opacity: 1}},
		{ID: "c", Text: "bottom", Position: domain.Position{X: 10, Y: 90}, Style: domain.OverlayStyle{FontSize: 20, Color: "#FFF", Opacity: 1}},
	}

	resolver := func(w domain.FontWeight) string {
		if w == domain.WeightBold {
			return "/fonts/bold.ttf"
		}
		return "/fonts/regular.ttf"
	}

	passes := BuildPasses(overlays, resolver)
	if len(passes) != 2 {
		t.Fatalf("expected 2 passes, got %d", len(passes))
	}
	if !passes[0].WithFonts || passes[1].WithFonts {
		t.Error("expected font pass first, system-font pass second")
	}
	if !strings.Contains(passes[0].Graph, "fontfile=/fonts/bold.ttf") {
		t.Errorf("font pass missing bold font: %s", passes[0].Graph)
	}
	if strings.Contains(passes[1].Graph, "fontfile") {
		t.Errorf("system-font pass must omit fontfile: %s", passes[1].Graph)
	}

	// Inactive overlay b must not appear; identical text/position otherwise.
	for _, p := range passes {
		if got := strings.Count(p.Graph, "drawtext="); got != 2 {
			t.Errorf("expected 2 drawtext filters, got %d: %s", got, p.Graph)
		}
		if !strings.Contains(p.Graph, "palettegen") || !strings.Contains(p.Graph, "paletteuse") {
			t.Errorf("expected palette round trip in graph: %s", p.Graph)
		}
	}
}

func TestBuildPasses_NoResolver(t *testing.T) {
	overlays := []domain.TextOverlay{
		{ID: "a", Text: "hi", Style: domain.OverlayStyle{FontSize: 20, Color: "#FFF", Opacity: 1}},
	}
	passes := BuildPasses(overlays, nil)
	if len(passes) != 1 {
		t.Fatalf("expected single system-font pass, got %d", len(passes))
	}
	if passes[0].WithFonts {
		t.Error("pass must not claim font files without a resolver")
	}
}

func TestBuildPasses_AllBlankYieldsPassthrough(t *testing.T) {
	overlays := []domain.TextOverlay{
		{ID: "a", Text: ""},
		{ID: "b", Text: "   "},
	}
	passes := BuildPasses(overlays, nil)
	if len(passes) != 1 {
		t.Fatalf("expected 1 pass, got %d", len(passes))
	}
	if passes[0].Graph != "null" {
		t.Errorf("expected passthrough graph, got %q", passes[0].Graph)
	}
}
