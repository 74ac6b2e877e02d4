package engine

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var bars = []color.RGBA{
	{192, 192, 192, 255},
	{192, 192, 0, 255},
	{0, 192, 192, 255},
	{0, 192, 0, 255},
	{192, 0, 192, 255},
	{192, 0, 0, 255},
	{0, 0, 192, 255},
	{16, 16, 16, 255},
}

const (
	markerSize = 32
	markerStep = 8
)

// RenderPattern draws the test card for frame seq into img: colour bars, a
// marker that moves markerStep pixels per frame and a text label.
func RenderPattern(img *image.RGBA, seq uint64, pts time.Duration) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return
	}

	for i, c := range bars {
		x0 := b.Min.X + i*w/len(bars)
		x1 := b.Min.X + (i+1)*w/len(bars)
		draw.Draw(img, image.Rect(x0, b.Min.Y, x1, b.Max.Y), image.NewUniform(c), image.Point{}, draw.Src)
	}

	span := w - markerSize
	if span < 1 {
		span = 1
	}
	mx := b.Min.X + int((seq*markerStep)%uint64(span))
	my := b.Min.Y + h/2 - markerSize/2
	draw.Draw(img, image.Rect(mx, my, mx+markerSize, my+markerSize), image.White, image.Point{}, draw.Src)

	label := fmt.Sprintf("seq %06d  pts %s", seq, formatPTS(pts))
	face := basicfont.Face7x13
	lw := font.MeasureString(face, label).Ceil()
	lh := face.Metrics().Height.Ceil()
	box := image.Rect(b.Min.X+8, b.Min.Y+8, b.Min.X+8+lw+8, b.Min.Y+8+lh+8)
	draw.Draw(img, box, image.Black, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(box.Min.X+4, box.Min.Y+4+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(label)
}

func formatPTS(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, (ms/1000)%60, ms%1000)
}
