package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/qrblock/qrb/internal/pipeline"
)

func newDecodeCommand(log *zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <input_dir> <output_dir> [<ecc_dir>]",
		Short: "Reconstruct a file from a set of scanned QR code page images",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputDir, outputDir := args[0], args[1]
			eccDir := ""
			if len(args) == 3 {
				eccDir = args[2]
			}

			result, err := pipeline.Decode(inputDir, eccDir, outputDir, *log)
			if err != nil {
				if len(result.Missing) > 0 || result.BlocksTotal == 0 {
					fmt.Printf("Blocks:  %d / ", result.BlocksFound)
					if result.BlocksTotal > 0 {
						fmt.Println(result.BlocksTotal)
					} else {
						fmt.Println("?")
					}
					if len(result.Missing) > 0 {
						fmt.Print("Missing:")
						for _, idx := range result.Missing {
							fmt.Printf(" [%d]", idx)
						}
						fmt.Println()
					}
				}
				return err
			}

			fmt.Printf("Blocks:  %d / %d\n", result.BlocksFound, result.BlocksTotal)
			fmt.Printf("Size:    %d Bytes\n", result.FileSize)
			fmt.Printf("Name:    %s\n", result.Trailer.Name)
			fmt.Printf("Time:    %s UTC\n", result.Trailer.ModTime.Format("2006-01-02 15:04:05"))

			return nil
		},
	}
}
