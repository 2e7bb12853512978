// Filename: internal/encoder/ffmpeg_test.go
package encoder

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewDefaultsBinary(t *testing.T) {
	t.Parallel()

	f := New("", zap.NewNop())
	assert.Equal(t, "ffmpeg", f.bin)
}

func TestProbeMissingBinary(t *testing.T) {
	t.Parallel()

	f := New("/nonexistent/ffmpeg-binary", zap.NewNop())
	err := f.Probe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not available")
}

func TestConcatRequiresInputs(t *testing.T) {
	t.Parallel()

	f := New("/nonexistent/ffmpeg-binary", zap.NewNop())
	err := f.Concat(context.Background(), nil, filepath.Join(t.TempDir(), "out.mp4"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one input")
}

func TestSlideshowRequiresImages(t *testing.T) {
	t.Parallel()

	f := New("/nonexistent/ffmpeg-binary", zap.NewNop())
	err := f.Slideshow(context.Background(), nil, 0, filepath.Join(t.TempDir(), "out.mp4"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one image")
}

// An unreadable image in the middle of the batch must not leave a numbering
// gap: ffmpeg stops reading an image sequence at the first missing frame.
func TestStageFramesSkipsUnreadableKeepingSequence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good1 := filepath.Join(dir, "beat-01.png")
	bad := filepath.Join(dir, "beat-02.png")
	good2 := filepath.Join(dir, "beat-03.png")
	writeTestPNG(t, good1, 320, 240)
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	writeTestPNG(t, good2, 320, 240)

	stageDir := t.TempDir()
	f := New("/nonexistent/ffmpeg-binary", zap.NewNop())
	staged, err := f.stageFrames(stageDir, []string{good1, bad, good2})
	require.NoError(t, err)
	assert.Equal(t, 2, staged)

	assert.FileExists(t, filepath.Join(stageDir, "frame-000001.jpg"))
	assert.FileExists(t, filepath.Join(stageDir, "frame-000002.jpg"))
	assert.NoFileExists(t, filepath.Join(stageDir, "frame-000003.jpg"))
}

// A bad first image must not sink the whole slideshow; the canvas comes from
// the first image that decodes.
func TestStageFramesBadFirstImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bad := filepath.Join(dir, "beat-01.png")
	good := filepath.Join(dir, "beat-02.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	writeTestPNG(t, good, 640, 480)

	stageDir := t.TempDir()
	f := New("/nonexistent/ffmpeg-binary", zap.NewNop())
	staged, err := f.stageFrames(stageDir, []string{bad, good})
	require.NoError(t, err)
	assert.Equal(t, 1, staged)

	fh, err := os.Open(filepath.Join(stageDir, "frame-000001.jpg"))
	require.NoError(t, err)
	defer fh.Close()
	cfg, _, err := image.DecodeConfig(fh)
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 480, cfg.Height)
}

func TestStageFramesAllUnreadable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bad := filepath.Join(dir, "beat-01.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))

	f := New("/nonexistent/ffmpeg-binary", zap.NewNop())
	_, err := f.stageFrames(t.TempDir(), []string{bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no readable slideshow images")
}

func TestEscapeDrawtext(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		in       string
		expected string
	}{
		{name: "plain", in: "Live Map", expected: "Live Map"},
		{name: "colon", in: "Note: dispatch", expected: `Note\: dispatch`},
		{name: "quote", in: "it's here", expected: `it\'s here`},
		{name: "percent", in: "100% done", expected: `100\% done`},
		{name: "backslash", in: `a\b`, expected: `a\\b`},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, escapeDrawtext(tc.in))
		})
	}
}

func writeTestPNG(t *testing.T, path string, width, height int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	fh, err := os.Create(path)
	require.NoError(t, err)
	defer fh.Close()
	require.NoError(t, png.Encode(fh, img))
}

func TestCanvasSizeRoundsDownToEven(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "still.png")
	writeTestPNG(t, path, 1281, 721)

	w, h, err := canvasSize(path)
	require.NoError(t, err)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)
}

func TestCanvasSizeErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, _, err := canvasSize(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))
	_, _, err = canvasSize(garbage)
	assert.Error(t, err)
}

func TestNormalizeImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	dst := filepath.Join(dir, "dst.jpg")
	writeTestPNG(t, src, 640, 480)

	require.NoError(t, normalizeImage(src, dst, 320, 240))

	fh, err := os.Open(dst)
	require.NoError(t, err)
	defer fh.Close()
	cfg, format, err := image.DecodeConfig(fh)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 240, cfg.Height)
}
