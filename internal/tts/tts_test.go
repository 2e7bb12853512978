// Filename: internal/tts/tts_test.go
package tts

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kestrelmotion/showreel-cli/internal/config"
)

func TestNewProviderSelection(t *testing.T) {
	t.Parallel()

	p, err := NewProvider(config.TTSConfig{Provider: "none"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "none", p.Name())

	p, err = NewProvider(config.TTSConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "none", p.Name())

	_, err = NewProvider(config.TTSConfig{Provider: "telepathy"}, zap.NewNop())
	require.Error(t, err)
}

func TestNoopProviderYieldsNoAudio(t *testing.T) {
	t.Parallel()

	p, err := NewProvider(config.TTSConfig{Provider: "none"}, zap.NewNop())
	require.NoError(t, err)

	audio, err := p.Synthesize(context.Background(), "anything at all")
	require.NoError(t, err)
	assert.Empty(t, audio)
}

func TestHTTPProviderRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := newHTTPProvider(config.TTSConfig{Provider: "http"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")

	_, err = newHTTPProvider(config.TTSConfig{Provider: "http", Endpoint: "https://tts.test"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestHTTPProviderSynthesize(t *testing.T) {
	t.Parallel()

	const wantAudio = "fake-mp3-bytes"
	var gotBody, gotAuth, gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(wantAudio))
	}))
	defer srv.Close()

	p, err := newHTTPProvider(config.TTSConfig{
		Provider: "http",
		Endpoint: srv.URL,
		APIKey:   "secret",
		Voice:    "en-US-standard",
		Rate:     1.0,
		Timeout:  5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)

	audio, err := p.Synthesize(context.Background(), "Dispatch <console> & map")
	require.NoError(t, err)
	assert.Equal(t, wantAudio, string(audio))

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/ssml+xml", gotContentType)
	assert.Contains(t, gotBody, "<speak")
	assert.Contains(t, gotBody, `name="en-US-standard"`)
	// Narration text is XML-escaped, not injected raw.
	assert.Contains(t, gotBody, "&lt;console&gt;")
	assert.Contains(t, gotBody, "&amp;")
}

func TestHTTPProviderNonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	p, err := newHTTPProvider(config.TTSConfig{
		Provider: "http", Endpoint: srv.URL, APIKey: "k", Timeout: 5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)

	_, err = p.Synthesize(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "402")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestBuildSSML(t *testing.T) {
	t.Parallel()

	out, err := buildSSML("The live map shows units.", "narrator", 1.25, 0.1)
	require.NoError(t, err)
	doc := string(out)

	assert.True(t, strings.HasPrefix(doc, "<?xml"))
	assert.Contains(t, doc, `rate="125%"`)
	assert.Contains(t, doc, `pitch="+10%"`)
	assert.Contains(t, doc, "The live map shows units.")

	// Zero pitch omits the attribute entirely.
	out, err = buildSSML("x", "narrator", 1.0, 0)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "pitch")
}

func TestCommandProviderUnknownBinary(t *testing.T) {
	t.Parallel()

	_, err := newCommandProvider(config.TTSConfig{
		Provider: "command",
		Command:  "definitely-not-a-real-speech-tool",
	}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
