// internal/encoder/slideshow.go
package encoder

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // screenshots are PNG; register the decoder
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

// Slideshow is the degraded-output path: when frame-accurate encoding is not
// possible (missing binary, encode error), the run still yields a watchable
// artifact built from per-beat still images. Images are normalized to a
// common even-dimensioned canvas first so the frame sequence is uniform.
func (f *FFmpeg) Slideshow(ctx context.Context, images []string, perImage time.Duration, out string) error {
	if len(images) == 0 {
		return fmt.Errorf("slideshow requires at least one image")
	}
	if perImage <= 0 {
		perImage = 3 * time.Second
	}

	stageDir, err := os.MkdirTemp(filepath.Dir(out), "slideshow-")
	if err != nil {
		return fmt.Errorf("creating slideshow staging dir: %w", err)
	}
	defer os.RemoveAll(stageDir)

	if _, err := f.stageFrames(stageDir, images); err != nil {
		return err
	}

	// One input frame per perImage seconds, re-timed to a normal playback rate.
	inputRate := 1.0 / perImage.Seconds()
	return f.run(ctx,
		"-framerate", fmt.Sprintf("%f", inputRate),
		"-i", filepath.Join(stageDir, "frame-%06d.jpg"),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-r", "25",
		out,
	)
}

// stageFrames normalizes the readable images into stageDir as a contiguous
// frame-%06d.jpg sequence. Staged frames are numbered by their own counter,
// not the input index: ffmpeg's image2 demuxer stops at the first gap in the
// sequence, so a skipped input must not leave a hole. The canvas comes from
// the first image that decodes.
func (f *FFmpeg) stageFrames(stageDir string, images []string) (int, error) {
	var width, height, staged int
	for _, img := range images {
		if width == 0 {
			w, h, err := canvasSize(img)
			if err != nil {
				f.logger.Warn("Skipping unreadable slideshow image", zap.String("image", img), zap.Error(err))
				continue
			}
			width, height = w, h
		}
		dst := filepath.Join(stageDir, fmt.Sprintf("frame-%06d.jpg", staged+1))
		if err := normalizeImage(img, dst, width, height); err != nil {
			f.logger.Warn("Skipping unreadable slideshow image", zap.String("image", img), zap.Error(err))
			continue
		}
		staged++
	}
	if staged == 0 {
		return 0, fmt.Errorf("no readable slideshow images")
	}
	return staged, nil
}

// canvasSize derives the slideshow canvas from the first image, rounded down
// to even dimensions.
func canvasSize(path string) (int, int, error) {
	fh, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer fh.Close()

	cfg, _, err := image.DecodeConfig(fh)
	if err != nil {
		return 0, 0, fmt.Errorf("decoding %s: %w", path, err)
	}
	return cfg.Width &^ 1, cfg.Height &^ 1, nil
}

// normalizeImage decodes src, scales it onto a width x height canvas, and
// writes it as JPEG to dst.
func normalizeImage(src, dst string, width, height int) error {
	fh, err := os.Open(src)
	if err != nil {
		return err
	}
	defer fh.Close()

	img, _, err := image.Decode(fh)
	if err != nil {
		return err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(canvas, canvas.Bounds(), img, img.Bounds(), draw.Over, nil)

	outFh, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer outFh.Close()
	return jpeg.Encode(outFh, canvas, &jpeg.Options{Quality: 90})
}
