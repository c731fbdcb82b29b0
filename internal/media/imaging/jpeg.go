// Package imaging re-encodes uploaded images to JPEG before they are published.
package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
)

const DefaultQuality = 85

// ToJPEG decodes src (JPEG, PNG or GIF) and writes it to dst as JPEG.
// Transparent areas are flattened onto white.
func ToJPEG(src, dst string, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer in.Close()

	img, format, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	if format != "jpeg" {
		img = flatten(img)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create jpeg: %w", err)
	}
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: quality}); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("encode jpeg: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("close jpeg: %w", err)
	}
	return nil
}

func flatten(img image.Image) image.Image {
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(rgba, b, img, b.Min, draw.Over)
	return rgba
}
