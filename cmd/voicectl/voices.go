package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/voiceover/internal/tts"
)

func (c *cli) voicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List ElevenLabs voices available to the configured account",
		RunE: func(cmd *cobra.Command, args []string) error {
			el := tts.NewElevenLabsFromConfig(c.cfg.TTS)
			if el == nil {
				return errors.New("ELEVENLABS_API_KEY is not set")
			}
			voices, err := el.ListVoices(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VOICE ID\tNAME\tCATEGORY")
			for _, v := range voices {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", v.VoiceID, v.Name, v.Category)
			}
			return tw.Flush()
		},
	}
}
