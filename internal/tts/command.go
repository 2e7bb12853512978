// internal/tts/command.go
package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"

	"github.com/kestrelmotion/showreel-cli/internal/config"
)

// commandProvider shells out to a local speech tool (macOS `say`, Linux
// `espeak`) that writes an audio file, then reads the file back.
type commandProvider struct {
	bin    string
	voice  string
	logger *zap.Logger
}

func newCommandProvider(cfg config.TTSConfig, logger *zap.Logger) (*commandProvider, error) {
	bin := cfg.Command
	if bin == "" {
		if runtime.GOOS == "darwin" {
			bin = "say"
		} else {
			bin = "espeak"
		}
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("speech command %q not found: %w", bin, err)
	}
	return &commandProvider{bin: bin, voice: cfg.Voice, logger: logger.Named("tts-cmd")}, nil
}

func (p *commandProvider) Name() string { return "command" }

func (p *commandProvider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "narration-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	out := filepath.Join(tmpDir, "clip.wav")
	var cmd *exec.Cmd
	switch p.bin {
	case "say":
		// say writes AIFF by default; -o with .wav selects WAVE output.
		cmd = exec.CommandContext(ctx, p.bin, "-o", out, "--data-format=LEF32@22050", text)
	default:
		cmd = exec.CommandContext(ctx, p.bin, "-w", out, text)
	}

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("speech command failed: %w", err)
	}

	audio, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("reading speech output: %w", err)
	}
	p.logger.Debug("Synthesized narration via command", zap.Int("bytes", len(audio)))
	return audio, nil
}
