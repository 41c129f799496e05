package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/voiceover/internal/llm"
	"github.com/nikhilbhutani/voiceover/internal/tts"
)

func (c *cli) providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Show the fallback order of each chain and which providers are configured",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STAGE\tPRIORITY\tPROVIDER\tCONFIGURED")
			printChain(tw, "text", c.cfg.LLM.Order, llm.Configured(c.cfg.LLM))
			printChain(tw, "voice", c.cfg.TTS.Order, tts.Configured(c.cfg.TTS))
			return tw.Flush()
		},
	}
}

func printChain(w io.Writer, stage string, order []string, configured map[string]bool) {
	for i, raw := range order {
		name := strings.ToLower(strings.TrimSpace(raw))
		state := "no"
		if ok, known := configured[name]; !known {
			state = "unknown"
		} else if ok {
			state = "yes"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", stage, i+1, name, state)
	}
}
