package ui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const iconSize = 22

var iconBackground = color.RGBA{R: 0x7c, G: 0x3a, B: 0xed, A: 0xff}

var iconBytes = renderIcon()

// renderIcon draws the tray glyph: a white "M" on the brand violet.
func renderIcon() []byte {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	draw.Draw(img, img.Bounds(), image.NewUniform(iconBackground), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P((iconSize-face.Advance)/2, (iconSize+face.Ascent-face.Descent)/2),
	}
	d.DrawString("M")

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
