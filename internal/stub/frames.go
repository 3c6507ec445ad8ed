package stub

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	frameWidth  = 320
	frameHeight = 240
)

var (
	captionColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	shadowColor  = color.RGBA{A: 180}
	boxColor     = color.RGBA{G: 255, A: 255}
)

// drawFrame renders the synthetic camera image for capture number seq
func drawFrame(seq int, at time.Time) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, frameWidth, frameHeight))

	// background shifts hue with seq so consecutive frames differ
	shift := uint8(seq * 23)
	for y := 0; y < frameHeight; y++ {
		for x := 0; x < frameWidth; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x*255/frameWidth) + shift,
				G: uint8(y * 255 / frameHeight),
				B: 128 + shift/2,
				A: 255,
			})
		}
	}

	caption(img, fmt.Sprintf("frame #%d  %s", seq, at.Format("15:04:05.000")))
	return img
}

// caption writes text in the bottom-left corner over a dark band
func caption(img *image.RGBA, text string) {
	face := basicfont.Face7x13
	b := img.Bounds()

	dr := &font.Drawer{Dst: img, Src: image.NewUniform(captionColor), Face: face}
	tw := dr.MeasureString(text).Ceil()
	x := b.Min.X + 8
	y := b.Max.Y - 8

	pad := 4
	band := image.Rect(x-pad, y-face.Metrics().Ascent.Ceil()-pad, x+tw+pad, y+pad)
	draw.Draw(img, band, image.NewUniform(color.RGBA{A: 200}), image.Point{}, draw.Over)

	shadow := &font.Drawer{Dst: img, Src: image.NewUniform(shadowColor), Face: face, Dot: fixed.P(x+1, y+1)}
	shadow.DrawString(text)
	dr.Dot = fixed.P(x, y)
	dr.DrawString(text)
}

// markSmile returns a copy of src with box outlined
func markSmile(src *image.RGBA, box image.Rectangle) *image.RGBA {
	out := image.NewRGBA(src.Bounds())
	draw.Draw(out, out.Bounds(), src, src.Bounds().Min, draw.Src)

	box = box.Intersect(out.Bounds())
	const thickness = 2
	edges := []image.Rectangle{
		image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+thickness),
		image.Rect(box.Min.X, box.Max.Y-thickness, box.Max.X, box.Max.Y),
		image.Rect(box.Min.X, box.Min.Y, box.Min.X+thickness, box.Max.Y),
		image.Rect(box.Max.X-thickness, box.Min.Y, box.Max.X, box.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(out, e, image.NewUniform(boxColor), image.Point{}, draw.Src)
	}
	return out
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}
	return buf.Bytes(), nil
}
