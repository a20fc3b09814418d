package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	cardBackground = color.NRGBA{R: 15, G: 23, B: 42, A: 255}
	cardHeaderBar  = color.NRGBA{R: 14, G: 116, B: 144, A: 255}
	cardHighlight  = color.NRGBA{R: 30, G: 64, B: 175, A: 255}
	cardText       = color.NRGBA{R: 241, G: 245, B: 249, A: 255}
	cardMuted      = color.NRGBA{R: 148, G: 163, B: 184, A: 255}
)

const (
	cardPadding    = 12
	cardLineHeight = 16
	cardCellWidth  = 56
	cardFirstWidth = 88
)

// ImageExporter renders a Document as a shareable PNG card. Text is drawn
// with a fixed bitmap face and the canvas is upscaled for sharper output.
type ImageExporter struct {
	Scale int
}

// NewImageExporter constructs an image exporter with 2x upscaling.
func NewImageExporter() *ImageExporter {
	return &ImageExporter{Scale: 2}
}

func (e *ImageExporter) Render(doc Document) ([]byte, error) {
	if len(doc.Headers) == 0 {
		return nil, fmt.Errorf("image requires at least one header")
	}

	width := cardPadding*2 + cardFirstWidth + cardCellWidth*(len(doc.Headers)-1)
	lines := 1 + len(doc.Preamble) + 1 + 1 + len(doc.Rows)
	if doc.Subtitle != "" {
		lines++
	}
	if doc.Footer != "" {
		lines++
	}
	height := cardPadding*2 + lines*cardLineHeight

	canvas := imaging.New(width, height, cardBackground)
	face := basicfont.Face7x13
	y := cardPadding + cardLineHeight

	drawText(canvas, face, cardPadding, y, doc.Title, cardText)
	y += cardLineHeight
	if doc.Subtitle != "" {
		drawText(canvas, face, cardPadding, y, doc.Subtitle, cardMuted)
		y += cardLineHeight
	}
	for _, line := range doc.Preamble {
		drawText(canvas, face, cardPadding, y, line, cardMuted)
		y += cardLineHeight
	}
	y += cardLineHeight / 2

	fillRow(canvas, y, width, cardHeaderBar)
	x := cardPadding
	for i, header := range doc.Headers {
		drawText(canvas, face, x, y, header, cardText)
		x += columnWidth(i)
	}
	y += cardLineHeight

	for r, row := range doc.Rows {
		if r == doc.Highlight {
			fillRow(canvas, y, width, cardHighlight)
		}
		x = cardPadding
		for i := range doc.Headers {
			drawText(canvas, face, x, y, doc.cell(row, i), cardText)
			x += columnWidth(i)
		}
		y += cardLineHeight
	}

	if doc.Footer != "" {
		drawText(canvas, face, cardPadding, y+cardLineHeight/2, doc.Footer, cardMuted)
	}

	var out image.Image = canvas
	if e.Scale > 1 {
		out = imaging.Resize(canvas, width*e.Scale, height*e.Scale, imaging.NearestNeighbor)
	}

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("render png: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidth(i int) int {
	if i == 0 {
		return cardFirstWidth
	}
	return cardCellWidth
}

// fillRow paints the band behind the text baseline at y.
func fillRow(dst *image.NRGBA, y, width int, c color.NRGBA) {
	top := y - cardLineHeight + 4
	for py := top; py < top+cardLineHeight; py++ {
		for px := 0; px < width; px++ {
			dst.SetNRGBA(px, py, c)
		}
	}
}

func drawText(dst *image.NRGBA, face font.Face, x, y int, text string, c color.NRGBA) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
