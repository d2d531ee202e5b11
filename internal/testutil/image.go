package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

// MakePNG encodes a width×height RGBA gradient as PNG bytes. The
// gradient keeps resize output visually distinct from a solid fill.
func MakePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradient(width, height)))
	return buf.Bytes()
}

// MakeJPEG encodes a width×height RGBA gradient as JPEG bytes.
func MakeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, gradient(width, height), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

// MakePalettedPNG encodes a width×height paletted image as PNG bytes.
// Paletted sources exercise the color-model normalization path.
func MakePalettedPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	palette := color.Palette{
		color.RGBA{R: 0xc0, G: 0x40, B: 0x20, A: 0xff},
		color.RGBA{R: 0x20, G: 0x40, B: 0xc0, A: 0xff},
		color.RGBA{R: 0x40, G: 0xc0, B: 0x20, A: 0xff},
	}
	img := image.NewPaletted(image.Rect(0, 0, width, height), palette)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetColorIndex(x, y, uint8((x+y)%len(palette)))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// MakeAlphaPNG encodes a width×height NRGBA image with a transparent
// corner as PNG bytes. Alpha sources exercise the 3-channel conversion
// path.
func MakeAlphaPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			alpha := uint8(0xff)
			if x < width/2 && y < height/2 {
				alpha = 0
			}
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0x80, A: alpha})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func gradient(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x % 256),
				G: uint8(y % 256),
				B: uint8((x + y) % 256),
				A: 0xff,
			})
		}
	}
	return img
}
