package ogimage

import (
	"bytes"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func isWhite(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r == 0xffff && g == 0xffff && b == 0xffff
}

func TestPNGDimensions(t *testing.T) {
	data, err := newRenderer(t).PNG("Hello World")
	if err != nil {
		t.Fatalf("PNG failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode failed: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != Width || b.Dy() != Height {
		t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), Width, Height)
	}
}

func TestImageBackgroundAndText(t *testing.T) {
	img := newRenderer(t).Image("A Title")

	if !isWhite(img.At(0, 0)) {
		t.Errorf("corner pixel is not white")
	}
	if !isWhite(img.At(Width-1, Height-1)) {
		t.Errorf("opposite corner pixel is not white")
	}

	dark := 0
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r < 0x8000 && g < 0x8000 && b < 0x8000 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Error("no title pixels drawn")
	}
}

func TestImageEmptyTitleUsesDefault(t *testing.T) {
	r := newRenderer(t)
	empty := r.Image("   ")
	def := r.Image(DefaultTitle)
	if !bytes.Equal(empty.Pix, def.Pix) {
		t.Error("empty title did not render the default title")
	}
}

func TestWrapFitsWidth(t *testing.T) {
	r := newRenderer(t)
	maxWidth := Width - 2*r.opts.Padding
	title := strings.Repeat("supercalifragilistic ", 6) + strings.Repeat("x", 80)

	lines := wrap(r.face, title, maxWidth)
	if len(lines) < 2 {
		t.Fatalf("wrap produced %d lines, want several", len(lines))
	}
	for i, line := range lines {
		if w := textWidth(r.face, line); w > maxWidth {
			t.Errorf("line %d width = %d, want <= %d (%q)", i, w, maxWidth, line)
		}
	}
	if got := strings.Join(strings.Fields(strings.Join(lines, "")), ""); got != strings.Join(strings.Fields(title), "") {
		t.Error("wrap dropped characters")
	}
}

func TestWrapShortTitleSingleLine(t *testing.T) {
	r := newRenderer(t)
	lines := wrap(r.face, "Short", Width)
	if len(lines) != 1 || lines[0] != "Short" {
		t.Errorf("wrap = %q, want [Short]", lines)
	}
}

func TestFitLinesTruncates(t *testing.T) {
	r := newRenderer(t)
	lines := fitLines([]string{"one", "two", "three"}, 2, r.face, Width)
	if len(lines) != 2 {
		t.Fatalf("fitLines kept %d lines, want 2", len(lines))
	}
	if lines[1] != "two…" {
		t.Errorf("last line = %q, want %q", lines[1], "two…")
	}
}

func TestDefaultRendererShared(t *testing.T) {
	a, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	b, _ := Default()
	if a != b {
		t.Error("Default returned different renderers")
	}
}
