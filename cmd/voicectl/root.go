package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/voiceover/internal/config"
)

type configLoader func() (*config.Config, error)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

// cli carries state shared by subcommands.
type cli struct {
	load    configLoader
	cfg     *config.Config
	verbose bool
}

func newRootCmd(load configLoader) *cobra.Command {
	c := &cli{load: load}

	rootCmd := &cobra.Command{
		Use:           "voicectl",
		Short:         "Turn screen-recording transcripts into voiceovers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if c.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			cfg, err := c.load()
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log provider attempts to stderr")

	rootCmd.AddCommand(c.processCmd())
	rootCmd.AddCommand(c.voicesCmd())
	rootCmd.AddCommand(c.providersCmd())
	rootCmd.AddCommand(c.tokenCmd())

	return rootCmd
}
