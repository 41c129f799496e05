package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/voiceover/internal/audio"
	"github.com/nikhilbhutani/voiceover/internal/pipeline"
)

func (c *cli) processCmd() *cobra.Command {
	var (
		file       string
		eventsFile string
		lang       string
		out        string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Clean a transcript and synthesize its voiceover",
		Example: `  voicectl process --file transcript.txt --lang es --out voiceover.mp3
  cat transcript.txt | voicectl process --file -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			transcript, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			events, err := readEvents(eventsFile)
			if err != nil {
				return err
			}

			if err := c.cfg.Validate(); err != nil {
				return err
			}
			coordinator, closeProviders, err := pipeline.Build(cmd.Context(), c.cfg, nil)
			if err != nil {
				return err
			}
			defer closeProviders()

			result, err := coordinator.Process(cmd.Context(), pipeline.Request{
				Transcript:        transcript,
				InteractionEvents: events,
				TargetLanguage:    lang,
			})
			if err != nil {
				return describeFailure(cmd.ErrOrStderr(), err)
			}

			return writeResult(cmd.OutOrStdout(), result, out)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "transcript file, or - for stdin (required)")
	cmd.Flags().StringVar(&eventsFile, "events", "", "JSON array of interaction events to pass through")
	cmd.Flags().StringVarP(&lang, "lang", "l", "en", "target language code")
	cmd.Flags().StringVarP(&out, "out", "o", "", "audio output path (default voiceover.<format>)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func readInput(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return string(data), nil
}

func readEvents(path string) ([]json.RawMessage, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	var events []json.RawMessage
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parse events: %w", err)
	}
	return events, nil
}

// writeResult prints the script and writes the decoded audio. Empty audio
// from an empty transcript is not written.
func writeResult(w io.Writer, result *pipeline.Result, out string) error {
	fmt.Fprintln(w, result.CleanedScript)

	data, err := audio.Decode(result.AudioBase64)
	if err != nil {
		return fmt.Errorf("decode audio: %w", err)
	}
	if len(data) == 0 {
		fmt.Fprintln(w, "(no audio: transcript was empty)")
		return nil
	}

	if out == "" {
		out = "voiceover." + result.AudioFormat
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	fmt.Fprintf(w, "wrote %d bytes of %s audio to %s (text: %s, voice: %s)\n",
		len(data), result.AudioFormat, out, result.TextProvider, result.VoiceProvider)
	return nil
}

// describeFailure lists each failed provider attempt before returning err.
func describeFailure(w io.Writer, err error) error {
	stage, attempts := pipeline.Report(err)
	if stage == "" {
		return err
	}
	fmt.Fprintf(w, "%s failed after %d attempt(s):\n", stage, len(attempts))
	for _, a := range attempts {
		fmt.Fprintf(w, "  %-12s %-22s %s\n", a.Provider, a.Kind, oneLine(a.Error))
	}
	return errors.New("pipeline failed")
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 120 {
		return s[:117] + "..."
	}
	return s
}
