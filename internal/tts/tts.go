// internal/tts/tts.go
package tts

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kestrelmotion/showreel-cli/internal/config"
)

// Provider turns narration text into audio bytes. Implementations are
// best-effort collaborators: a failed synthesis fails the beat's narration,
// never the run.
type Provider interface {
	// Synthesize returns encoded audio for the text. The format depends on
	// the provider (the HTTP provider requests MP3, the command provider
	// produces whatever the local speech tool writes).
	Synthesize(ctx context.Context, text string) ([]byte, error)
	// Name identifies the provider in logs and reports.
	Name() string
}

// NewProvider builds the provider selected by configuration.
func NewProvider(cfg config.TTSConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case "", "none":
		return noopProvider{}, nil
	case "http":
		return newHTTPProvider(cfg, logger)
	case "command":
		return newCommandProvider(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown tts provider %q", cfg.Provider)
	}
}

// noopProvider disables narration without branching in the orchestrator.
type noopProvider struct{}

func (noopProvider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return nil, nil
}

func (noopProvider) Name() string { return "none" }
