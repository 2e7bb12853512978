// internal/tts/http.go
package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/kestrelmotion/showreel-cli/internal/config"
)

// maxAudioBytes caps a single synthesis response. Narration clips are short;
// anything larger is a misbehaving endpoint.
const maxAudioBytes = 32 << 20

// httpProvider posts SSML to a speech API and returns the audio body.
type httpProvider struct {
	cfg    config.TTSConfig
	client *http.Client
	logger *zap.Logger
}

func newHTTPProvider(cfg config.TTSConfig, logger *zap.Logger) (*httpProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("http tts provider requires an endpoint")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("http tts provider requires an API key (set SHOWREEL_TTS_API_KEY)")
	}
	return &httpProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("tts-http"),
	}, nil
}

func (p *httpProvider) Name() string { return "http" }

func (p *httpProvider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := buildSSML(text, p.cfg.Voice, p.cfg.Rate, p.cfg.Pitch)
	if err != nil {
		return nil, fmt.Errorf("building ssml: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tts endpoint returned %d: %s", resp.StatusCode, snippet)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("reading tts response: %w", err)
	}
	p.logger.Debug("Synthesized narration", zap.Int("bytes", len(audio)))
	return audio, nil
}

// buildSSML wraps the narration text in a minimal SSML document, applying the
// configured voice and prosody. etree handles the escaping of arbitrary
// narration text.
func buildSSML(text, voice string, rate, pitch float64) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	speak := doc.CreateElement("speak")
	speak.CreateAttr("version", "1.1")
	speak.CreateAttr("xmlns", "http://www.w3.org/2001/10/synthesis")
	speak.CreateAttr("xml:lang", "en-US")

	v := speak.CreateElement("voice")
	v.CreateAttr("name", voice)

	prosody := v.CreateElement("prosody")
	prosody.CreateAttr("rate", fmt.Sprintf("%.0f%%", rate*100))
	if pitch != 0 {
		prosody.CreateAttr("pitch", fmt.Sprintf("%+.0f%%", pitch*100))
	}
	prosody.SetText(text)

	return doc.WriteToBytes()
}
