package overlay

import (
	"strings"
	"testing"

	"github.com/timmy/gifforge/internal/domain"
)

func validGif() domain.GifDescriptor {
	return domain.GifDescriptor{
		ID:      "g1",
		Title:   "test gif",
		URL:     "https://media.example.com/g1.gif",
		Preview: "https://media.example.com/g1_s.gif",
		Width:   400,
		Height:  300,
		Source:  domain.SourceGiphy,
	}
}

func validOverlay(id, text string) domain.TextOverlay {
	return domain.TextOverlay{
		ID:       id,
		Text:     text,
		Position: domain.Position{X: 50, Y: 50},
		Style: domain.OverlayStyle{
			FontSize:    24,
			FontFamily:  "Impact",
			Color:       "#FFFFFF",
			StrokeColor: "#000000",
			StrokeWidth: 2,
			Opacity:     1,
			FontWeight:  domain.WeightBold,
			TextAlign:   domain.AlignCenter,
		},
	}
}

func TestValidateRequest_HappyPath(t *testing.T) {
	res := ValidateRequest(validGif(), []domain.TextOverlay{validOverlay("o1", "Hi")})
	if !res.IsValid {
		t.Fatalf("expected valid request, errors: %v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", res.Warnings)
	}
}

func TestValidateRequest_GifChecks(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.GifDescriptor)
		want   string
	}{
		{"missing id", func(g *domain.GifDescriptor) { g.ID = " " }, "id is required"},
		{"bad url", func(g *domain.GifDescriptor) { g.URL = "not a url" }, "not a well-formed URL"},
		{"bad preview", func(g *domain.GifDescriptor) { g.Preview = "ftp://x" }, "not a well-formed URL"},
		{"zero width", func(g *domain.GifDescriptor) { g.Width = 0 }, "must be positive"},
		{"negative height", func(g *domain.GifDescriptor) { g.Height = -1 }, "must be positive"},
		{"unknown source", func(g *domain.GifDescriptor) { g.Source = "imgur" }, "unknown source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gif := validGif()
			tt.mutate(&gif)
			res := ValidateRequest(gif, []domain.TextOverlay{validOverlay("o1", "Hi")})
			if res.IsValid {
				t.Fatal("expected invalid request")
			}
			if !containsSubstring(res.Errors, tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, res.Errors)
			}
		})
	}
}

func TestValidateRequest_OverlayBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.TextOverlay)
		want   string
	}{
		{"x below range", func(o *domain.TextOverlay) { o.Position.X = -0.1 }, "position.x"},
		{"x above range", func(o *domain.TextOverlay) { o.Position.X = 100.5 }, "position.x"},
		{"y above range", func(o *domain.TextOverlay) { o.Position.Y = 101 }, "position.y"},
		{"zero font size", func(o *domain.TextOverlay) { o.Style.FontSize = 0 }, "font size"},
		{"huge font size", func(o *domain.TextOverlay) { o.Style.FontSize = 201 }, "font size"},
		{"negative stroke", func(o *domain.TextOverlay) { o.Style.StrokeWidth = -1 }, "stroke width"},
		{"wide stroke", func(o *domain.TextOverlay) { o.Style.StrokeWidth = 21 }, "stroke width"},
		{"opacity above one", func(o *domain.TextOverlay) { o.Style.Opacity = 1.1 }, "opacity"},
		{"bad color", func(o *domain.TextOverlay) { o.Style.Color = "#GGHHII" }, "color"},
		{"bad weight", func(o *domain.TextOverlay) { o.Style.FontWeight = "heavy" }, "font weight"},
		{"bad align", func(o *domain.TextOverlay) { o.Style.TextAlign = "justify" }, "text align"},
		{"missing id", func(o *domain.TextOverlay) { o.ID = "" }, "id is required"},
		{"long text", func(o *domain.TextOverlay) { o.Text = strings.Repeat("a", 201) }, "exceeds 200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOverlay("o1", "Hi")
			tt.mutate(&o)
			res := ValidateRequest(validGif(), []domain.TextOverlay{o})
			if res.IsValid {
				t.Fatal("expected invalid request")
			}
			if !containsSubstring(res.Errors, tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, res.Errors)
			}
		})
	}
}

func TestValidateRequest_TextCapCountsRunes(t *testing.T) {
	// 200 multibyte characters are well over 200 bytes but within the cap.
	o := validOverlay("o1", strings.Repeat("😀", 200))
	res := ValidateRequest(validGif(), []domain.TextOverlay{o})
	if !res.IsValid {
		t.Fatalf("expected 200-rune text to pass, errors: %v", res.Errors)
	}

	o.Text = strings.Repeat("😀", 201)
	res = ValidateRequest(validGif(), []domain.TextOverlay{o})
	if res.IsValid {
		t.Fatal("expected 201-rune text to fail")
	}
	if !containsSubstring(res.Errors, "exceeds 200") {
		t.Errorf("expected length error, got %v", res.Errors)
	}
}

func TestValidateRequest_BoundaryPositionsPass(t *testing.T) {
	for _, pos := range []domain.Position{{X: 0, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}} {
		o := validOverlay("o1", "Hi")
		o.Position = pos
		res := ValidateRequest(validGif(), []domain.TextOverlay{o})
		if !res.IsValid {
			t.Errorf("expected position %+v to pass, errors: %v", pos, res.Errors)
		}
	}
}

func TestValidateRequest_AllBlankText(t *testing.T) {
	overlays := []domain.TextOverlay{
		validOverlay("o1", ""),
		validOverlay("o2", "   "),
	}
	res := ValidateRequest(validGif(), overlays)
	if res.IsValid {
		t.Fatal("expected invalid request")
	}
	if !containsSubstring(res.Errors, "at least one text overlay with content is required") {
		t.Errorf("expected nothing-to-render error, got %v", res.Errors)
	}
}

func TestValidateRequest_Warnings(t *testing.T) {
	t.Run("too many overlays", func(t *testing.T) {
		var overlays []domain.TextOverlay
		for i := 0; i < 11; i++ {
			o := validOverlay("o", "text")
			o.Position = domain.Position{X: float64(i * 9), Y: float64(i * 9)}
			overlays = append(overlays, o)
		}
		res := ValidateRequest(validGif(), overlays)
		if !res.IsValid {
			t.Fatalf("warnings must not invalidate, errors: %v", res.Errors)
		}
		if !containsSubstring(res.Warnings, "overlays may be hard to read") {
			t.Errorf("expected count warning, got %v", res.Warnings)
		}
	})

	t.Run("overlapping overlays", func(t *testing.T) {
		a := validOverlay("a", "one")
		b := validOverlay("b", "two")
		b.Position = domain.Position{X: 52, Y: 53}
		res := ValidateRequest(validGif(), []domain.TextOverlay{a, b})
		if !res.IsValid {
			t.Fatalf("warnings must not invalidate, errors: %v", res.Errors)
		}
		if !containsSubstring(res.Warnings, "close together") {
			t.Errorf("expected overlap warning, got %v", res.Warnings)
		}
	})
}

func TestValidColor(t *testing.T) {
	valid := []string{"#FFF", "#ffffff", "#1a2B3c", "rgb(255, 0, 0)", "rgba(0,0,0,0.5)", "white", "Black", "grey"}
	invalid := []string{"", "#ff", "#ffff", "#gggggg", "rgb(255)", "chartreuse", "blue;drop"}

	for _, c := range valid {
		if !ValidColor(c) {
			t.Errorf("expected %q to be valid", c)
		}
	}
	for _, c := range invalid {
		if ValidColor(c) {
			t.Errorf("expected %q to be invalid", c)
		}
	}
}

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
