package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/qrblock/qrb/internal/qrlog"
)

func run(args []string) int {
	var verbose bool
	var log zerolog.Logger

	root := &cobra.Command{
		Use:           "qrb",
		Short:         "Archive files as QR code page images, and reconstruct files from them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log = qrlog.New(os.Stderr, verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newEncodeCommand(&log), newDecodeCommand(&log))
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		zerolog.New(os.Stderr).Error().Err(err).Msg("qrb failed")
		return 1
	}
	return 0
}
