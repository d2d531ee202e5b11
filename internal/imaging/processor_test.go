package imaging

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atelier/internal/testutil"
)

func cardProcessor() Processor {
	return Processor{Width: 960, Height: 720, Quality: 90}
}

func decodeFile(t *testing.T, path string) (string, image.Config) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return format, cfg
}

func TestProcessAndSave_ResizesToTarget(t *testing.T) {
	out := filepath.Join(t.TempDir(), "042.jpg")

	err := cardProcessor().ProcessAndSave(testutil.MakePNG(t, 500, 375), out)

	require.NoError(t, err)
	format, cfg := decodeFile(t, out)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 960, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
}

func TestProcessAndSave_UpscalesAndDownscales(t *testing.T) {
	cases := []struct {
		name string
		w, h int
	}{
		{"smaller", 96, 72},
		{"larger", 1920, 1440},
		{"different aspect", 640, 640},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "042.jpg")

			err := cardProcessor().ProcessAndSave(testutil.MakePNG(t, tc.w, tc.h), out)

			require.NoError(t, err)
			_, cfg := decodeFile(t, out)
			assert.Equal(t, 960, cfg.Width)
			assert.Equal(t, 720, cfg.Height)
		})
	}
}

func TestProcessAndSave_ExactSizePassesThrough(t *testing.T) {
	out := filepath.Join(t.TempDir(), "042.jpg")

	err := cardProcessor().ProcessAndSave(testutil.MakePNG(t, 960, 720), out)

	require.NoError(t, err)
	format, cfg := decodeFile(t, out)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 960, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
}

func TestProcessAndSave_ReprocessesOwnOutput(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.jpg")
	second := filepath.Join(dir, "second.jpg")
	p := cardProcessor()

	require.NoError(t, p.ProcessAndSave(testutil.MakePNG(t, 500, 375), first))
	data, err := os.ReadFile(first)
	require.NoError(t, err)

	require.NoError(t, p.ProcessAndSave(data, second))
	format, cfg := decodeFile(t, second)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 960, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
}

func TestProcessAndSave_PalettedSource(t *testing.T) {
	out := filepath.Join(t.TempDir(), "042.jpg")

	err := cardProcessor().ProcessAndSave(testutil.MakePalettedPNG(t, 320, 240), out)

	require.NoError(t, err)
	format, cfg := decodeFile(t, out)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 960, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
}

func TestProcessAndSave_AlphaSource(t *testing.T) {
	out := filepath.Join(t.TempDir(), "042.jpg")

	err := cardProcessor().ProcessAndSave(testutil.MakeAlphaPNG(t, 960, 720), out)

	require.NoError(t, err)
	format, _ := decodeFile(t, out)
	assert.Equal(t, "jpeg", format)
}

func TestProcessAndSave_JPEGSource(t *testing.T) {
	out := filepath.Join(t.TempDir(), "042.jpg")

	err := cardProcessor().ProcessAndSave(testutil.MakeJPEG(t, 500, 375), out)

	require.NoError(t, err)
	_, cfg := decodeFile(t, out)
	assert.Equal(t, 960, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
}

func TestProcessAndSave_UndecodableBytes(t *testing.T) {
	out := filepath.Join(t.TempDir(), "042.jpg")

	err := cardProcessor().ProcessAndSave([]byte("not an image"), out)

	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
	assert.False(t, IsWriteError(err))
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no file may appear on decode failure")
}

func TestProcessAndSave_BlockedOutputPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "cards")
	require.NoError(t, os.WriteFile(blocker, []byte("file, not dir"), 0o644))

	err := cardProcessor().ProcessAndSave(testutil.MakePNG(t, 96, 72), filepath.Join(blocker, "042.jpg"))

	require.Error(t, err)
	assert.True(t, IsWriteError(err))
}

func TestProcessAndSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()

	err := cardProcessor().ProcessAndSave(testutil.MakePNG(t, 96, 72), filepath.Join(dir, "042.jpg"))

	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "042.jpg", entries[0].Name())
}

func TestProcessAndSave_OverwritesExisting(t *testing.T) {
	out := filepath.Join(t.TempDir(), "042.jpg")
	p := cardProcessor()

	require.NoError(t, p.ProcessAndSave(testutil.MakePNG(t, 96, 72), out))
	require.NoError(t, p.ProcessAndSave(testutil.MakePNG(t, 500, 375), out))

	_, cfg := decodeFile(t, out)
	assert.Equal(t, 960, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
}

func TestError_Format(t *testing.T) {
	withPath := &Error{Code: ErrCodeWriteFailed, Path: "cards/042.jpg", Message: "replace output file"}
	assert.Equal(t, "WRITE_FAILED: replace output file (path=cards/042.jpg)", withPath.Error())

	bare := &Error{Code: ErrCodeDecodeFailed, Message: "decode image"}
	assert.Equal(t, "DECODE_FAILED: decode image", bare.Error())
}
