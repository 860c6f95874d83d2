package frames

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/munzgen/munzgen-agent/internal/genai"
)

// MaxWidth caps the width of reference images.
const MaxWidth = 1280

// Normalize decodes a PNG, JPEG, GIF or WebP image and re-encodes it as PNG,
// scaling it down to MaxWidth when wider.
func Normalize(data []byte) (*genai.Media, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	if b.Dx() > MaxWidth {
		h := b.Dy() * MaxWidth / b.Dx()
		if h < 1 {
			h = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, MaxWidth, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		src = dst
	} else if format == "png" {
		return &genai.Media{Data: data, MimeType: "image/png"}, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return &genai.Media{Data: buf.Bytes(), MimeType: "image/png"}, nil
}
