// internal/encoder/ffmpeg.go
//
// Thin wrapper over the external ffmpeg binary. Every operation builds an
// argument list and a filter-graph string, shells out, and treats a non-zero
// exit as the step's permanent failure; the orchestrator decides whether a
// fallback applies.
package encoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FFmpeg invokes the encoder binary.
type FFmpeg struct {
	bin    string
	logger *zap.Logger
}

// New creates an FFmpeg wrapper around the given binary path ("ffmpeg" to use
// PATH lookup).
func New(bin string, logger *zap.Logger) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpeg{bin: bin, logger: logger.Named("encoder")}
}

// Probe reports whether the binary is present and runnable.
func (f *FFmpeg) Probe(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, f.bin, "-version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg not available at %q: %w", f.bin, err)
	}
	return nil
}

// run executes ffmpeg with -y prepended and stderr captured for diagnostics.
func (f *FFmpeg) run(ctx context.Context, args ...string) error {
	full := append([]string{"-hide_banner", "-y"}, args...)
	cmd := exec.CommandContext(ctx, f.bin, full...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	f.logger.Debug("Invoking encoder", zap.Strings("args", full))
	if err := cmd.Run(); err != nil {
		tail := stderr.String()
		if len(tail) > 2000 {
			tail = tail[len(tail)-2000:]
		}
		return fmt.Errorf("ffmpeg %s: %w\n%s", args[len(args)-1], err, tail)
	}
	return nil
}

// FramesToVideo encodes a directory of numbered JPEG frames into an H.264
// segment. Frame files must follow the frame-%06d.jpg naming the screencast
// sink produces.
func (f *FFmpeg) FramesToVideo(ctx context.Context, frameDir string, fps int, out string) error {
	if fps <= 0 {
		fps = 15
	}
	pattern := filepath.Join(frameDir, "frame-%06d.jpg")
	return f.run(ctx,
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", pattern,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		// The encoder rejects odd dimensions for yuv420p.
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		out,
	)
}

// Concat joins video segments losslessly using the concat demuxer. All inputs
// must share codec parameters, which holds because every segment comes out of
// FramesToVideo with identical settings.
func (f *FFmpeg) Concat(ctx context.Context, inputs []string, out string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("concat requires at least one input")
	}

	listFile, err := os.CreateTemp(filepath.Dir(out), "concat-*.txt")
	if err != nil {
		return fmt.Errorf("creating concat list: %w", err)
	}
	defer os.Remove(listFile.Name())

	var sb strings.Builder
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return fmt.Errorf("resolving input %q: %w", in, err)
		}
		fmt.Fprintf(&sb, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if _, err := listFile.WriteString(sb.String()); err != nil {
		listFile.Close()
		return fmt.Errorf("writing concat list: %w", err)
	}
	listFile.Close()

	return f.run(ctx,
		"-f", "concat",
		"-safe", "0",
		"-i", listFile.Name(),
		"-c", "copy",
		out,
	)
}

// Overlay burns a caption onto the lower third of a video.
func (f *FFmpeg) Overlay(ctx context.Context, in, caption, out string) error {
	filter := fmt.Sprintf(
		"drawtext=text='%s':fontcolor=white:fontsize=36:box=1:boxcolor=black@0.5:boxborderw=12:x=(w-text_w)/2:y=h-text_h-48",
		escapeDrawtext(caption),
	)
	return f.run(ctx,
		"-i", in,
		"-vf", filter,
		"-c:a", "copy",
		out,
	)
}

// MuxAudio combines a video track with a narration track, ending at the
// shorter of the two.
func (f *FFmpeg) MuxAudio(ctx context.Context, video, audio, out string) error {
	return f.run(ctx,
		"-i", video,
		"-i", audio,
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		out,
	)
}

// escapeDrawtext escapes the characters drawtext treats specially.
func escapeDrawtext(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return r.Replace(s)
}
