// Package ogimage draws OpenGraph preview images: a bold title on a white
// 1200x630 canvas, encoded as PNG.
package ogimage

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	Width  = 1200
	Height = 630

	// DefaultTitle is drawn when the request carries no title.
	DefaultTitle = "My Portfolio"

	ContentType = "image/png"
)

// Options controls the layout. Zero fields take defaults.
type Options struct {
	FontSize   float64
	Padding    int
	LineHeight float64
	Background color.Color
	Foreground color.Color
}

func (o *Options) setDefaults() {
	if o.FontSize == 0 {
		o.FontSize = 64
	}
	if o.Padding == 0 {
		o.Padding = 96
	}
	if o.LineHeight == 0 {
		o.LineHeight = 1.25
	}
	if o.Background == nil {
		o.Background = color.White
	}
	if o.Foreground == nil {
		o.Foreground = color.Black
	}
}

// Renderer draws title cards. The font face is shared, so renders are
// serialized.
type Renderer struct {
	opts Options
	mu   sync.Mutex
	face font.Face
}

// New parses the bundled Go Bold font and returns a Renderer.
func New(opts Options) (*Renderer, error) {
	opts.setDefaults()
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("ogimage: parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    opts.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("ogimage: font face: %w", err)
	}
	return &Renderer{opts: opts, face: face}, nil
}

var defaultRenderer = sync.OnceValues(func() (*Renderer, error) {
	return New(Options{})
})

// Default returns a process-wide Renderer with default options.
func Default() (*Renderer, error) {
	return defaultRenderer()
}

// Image draws title onto a fresh canvas. An empty title draws DefaultTitle.
func (r *Renderer) Image(title string) *image.RGBA {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.opts.Background), image.Point{}, draw.Src)

	r.mu.Lock()
	defer r.mu.Unlock()

	maxWidth := Width - 2*r.opts.Padding
	lineHeight := int(r.opts.FontSize * r.opts.LineHeight)
	maxLines := (Height - 2*r.opts.Padding) / lineHeight
	lines := fitLines(wrap(r.face, title, maxWidth), maxLines, r.face, maxWidth)

	metrics := r.face.Metrics()
	ascent := metrics.Ascent.Ceil()
	blockHeight := lineHeight*(len(lines)-1) + ascent + metrics.Descent.Ceil()
	y := (Height-blockHeight)/2 + ascent

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(r.opts.Foreground),
		Face: r.face,
	}
	for _, line := range lines {
		d.Dot = fixed.P(r.opts.Padding, y)
		d.DrawString(line)
		y += lineHeight
	}
	return img
}

// Render writes title as a PNG to w.
func (r *Renderer) Render(w io.Writer, title string) error {
	if err := png.Encode(w, r.Image(title)); err != nil {
		return fmt.Errorf("ogimage: encode: %w", err)
	}
	return nil
}

// PNG returns the encoded image for title.
func (r *Renderer) PNG(title string) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, title); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func textWidth(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// wrap breaks s into lines no wider than maxWidth. Words that do not fit on
// a line of their own are split between runes.
func wrap(face font.Face, s string, maxWidth int) []string {
	var lines []string
	var cur string
	for _, word := range strings.Fields(s) {
		candidate := word
		if cur != "" {
			candidate = cur + " " + word
		}
		if textWidth(face, candidate) <= maxWidth {
			cur = candidate
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
			cur = ""
		}
		for textWidth(face, word) > maxWidth {
			head, tail := splitToWidth(face, word, maxWidth)
			lines = append(lines, head)
			word = tail
		}
		cur = word
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

func splitToWidth(face font.Face, word string, maxWidth int) (string, string) {
	runes := []rune(word)
	n := 1
	for n < len(runes) && textWidth(face, string(runes[:n+1])) <= maxWidth {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}

// fitLines truncates lines to limit, ending the last kept line with an ellipsis.
func fitLines(lines []string, limit int, face font.Face, maxWidth int) []string {
	if limit < 1 {
		limit = 1
	}
	if len(lines) <= limit {
		return lines
	}
	lines = lines[:limit]
	last := []rune(lines[limit-1])
	for len(last) > 0 && textWidth(face, string(last)+"…") > maxWidth {
		last = last[:len(last)-1]
	}
	lines[limit-1] = strings.TrimRight(string(last), " ") + "…"
	return lines
}
