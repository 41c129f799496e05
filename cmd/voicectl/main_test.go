package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/voiceover/internal/auth"
	"github.com/nikhilbhutani/voiceover/internal/config"
	"github.com/nikhilbhutani/voiceover/internal/pipeline"
	"github.com/nikhilbhutani/voiceover/internal/provider"
)

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(func() (*config.Config, error) { return cfg, nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestProviders(t *testing.T) {
	cfg := &config.Config{
		LLM: config.LLMConfig{GroqKey: "k", Order: []string{"gemini", "Groq", "mystery"}},
		TTS: config.TTSConfig{ElevenLabsKey: "k", Order: []string{"elevenlabs", "openai-tts"}},
	}

	out, err := run(t, cfg, "providers")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Regexp(t, `^text\s+1\s+gemini\s+no$`, lines[1])
	assert.Regexp(t, `^text\s+2\s+groq\s+yes$`, lines[2])
	assert.Regexp(t, `^text\s+3\s+mystery\s+unknown$`, lines[3])
	assert.Regexp(t, `^voice\s+1\s+elevenlabs\s+yes$`, lines[4])
	assert.Regexp(t, `^voice\s+2\s+openai-tts\s+no$`, lines[5])
}

func TestToken(t *testing.T) {
	cfg := &config.Config{Auth: config.AuthConfig{JWTSecret: "s3cret"}}

	out, err := run(t, cfg, "token", "--subject", "ops", "--role", "admin")
	require.NoError(t, err)

	claims, err := auth.NewJWTMiddleware("s3cret").Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, auth.RoleAdmin, claims.Role)

	_, err = run(t, &config.Config{}, "token")
	assert.EqualError(t, err, "AUTH_JWT_SECRET is not set")
}

func TestVoicesRequiresKey(t *testing.T) {
	_, err := run(t, &config.Config{}, "voices")
	assert.EqualError(t, err, "ELEVENLABS_API_KEY is not set")
}

func TestConfigError(t *testing.T) {
	cmd := newRootCmd(func() (*config.Config, error) { return nil, errors.New("invalid PORT") })
	cmd.SetArgs([]string{"providers"})
	cmd.SetOut(&bytes.Buffer{})
	assert.EqualError(t, cmd.Execute(), "invalid PORT")
}

func TestProcessRequiresFile(t *testing.T) {
	_, err := run(t, &config.Config{}, "process")
	assert.Error(t, err)
}

func TestReadInputStdin(t *testing.T) {
	got, err := readInput(strings.NewReader("so um hello"), "-")
	require.NoError(t, err)
	assert.Equal(t, "so um hello", got)

	_, err = readInput(nil, filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestReadEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"type":"click"},{"type":"scroll"}]`), 0o644))

	events, err := readEvents(path)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	require.NoError(t, os.WriteFile(path, []byte(`{"not":"an array"}`), 0o644))
	_, err = readEvents(path)
	assert.Error(t, err)

	events, err = readEvents("")
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestWriteResult(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "nested", "voice.mp3")
	var buf bytes.Buffer

	err := writeResult(&buf, &pipeline.Result{
		CleanedScript: "Click save.",
		AudioBase64:   "SUQzAAAA",
		AudioFormat:   "mp3",
		TextProvider:  "gemini",
		VoiceProvider: "elevenlabs",
	}, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3\x00\x00\x00"), data)
	assert.Contains(t, buf.String(), "Click save.")
	assert.Contains(t, buf.String(), "wrote 6 bytes of mp3 audio")

	buf.Reset()
	require.NoError(t, writeResult(&buf, &pipeline.Result{AudioFormat: "mp3"}, filepath.Join(dir, "empty.mp3")))
	assert.Contains(t, buf.String(), "no audio")
	assert.NoFileExists(t, filepath.Join(dir, "empty.mp3"))
}

func TestDescribeFailure(t *testing.T) {
	var buf bytes.Buffer
	err := describeFailure(&buf, &pipeline.StageError{
		Stage: pipeline.StageTextTransform,
		Err: &provider.ExhaustedError{Kind: provider.KindTextTransform, Failures: []provider.Failure{
			{Provider: "gemini", Kind: provider.QuotaExceeded, Err: errors.New("billing\ndisabled")},
		}},
	})

	assert.EqualError(t, err, "pipeline failed")
	assert.Contains(t, buf.String(), "text_transform failed after 1 attempt(s)")
	assert.Contains(t, buf.String(), "quota_exceeded")
	assert.Contains(t, buf.String(), "billing disabled")

	plain := errors.New("boom")
	assert.Equal(t, plain, describeFailure(&buf, plain))
}
