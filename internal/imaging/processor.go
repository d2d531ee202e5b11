// Package imaging normalizes generated images into the fixed card
// format.
//
// The backend's declared and actual output sizes can drift, and its
// encoder may emit palette or alpha color models, so every image is
// forced to exact target dimensions and flattened to 3-channel color
// before the JPEG write.
package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	_ "image/png"
)

// Processor converts raw backend output into card images of exactly
// Width×Height pixels, JPEG-encoded at Quality (1..100).
type Processor struct {
	Width   int
	Height  int
	Quality int
}

// ProcessAndSave decodes raw, normalizes it, and writes it to path.
// The write goes through a temp file in the same directory followed by
// a rename, so a crash never leaves a truncated card image behind.
// Parent directories are created as needed.
func (p Processor) ProcessAndSave(raw []byte, path string) error {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return &Error{Code: ErrCodeDecodeFailed, Path: path, Message: "decode image", Err: err}
	}
	out := p.normalize(src)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &Error{Code: ErrCodeWriteFailed, Path: path, Message: "create output directory", Err: err}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return &Error{Code: ErrCodeWriteFailed, Path: path, Message: "create temp file", Err: err}
	}
	if err := jpeg.Encode(tmp, out, &jpeg.Options{Quality: p.Quality}); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &Error{Code: ErrCodeWriteFailed, Path: path, Message: "encode jpeg", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &Error{Code: ErrCodeWriteFailed, Path: path, Message: "close temp file", Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return &Error{Code: ErrCodeWriteFailed, Path: path, Message: "replace output file", Err: err}
	}
	return nil
}

// normalize returns src as an RGBA image of exactly the target
// dimensions. Mismatched sizes are resampled with Catmull-Rom; matching
// sizes in other color models are redrawn. The JPEG encoder discards
// alpha, leaving 3-channel output.
func (p Processor) normalize(src image.Image) image.Image {
	b := src.Bounds()
	if b.Dx() == p.Width && b.Dy() == p.Height {
		if rgba, ok := src.(*image.RGBA); ok {
			return rgba
		}
		out := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
		xdraw.Draw(out, out.Bounds(), src, b.Min, xdraw.Src)
		return out
	}
	out := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	xdraw.CatmullRom.Scale(out, out.Bounds(), src, b, xdraw.Src, nil)
	return out
}
