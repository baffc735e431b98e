package main

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/qrblock/qrb/internal/page"
	"github.com/qrblock/qrb/internal/pipeline"
	"github.com/qrblock/qrb/internal/qr"
	"github.com/qrblock/qrb/internal/qr/qrcodegen"
)

func newEncodeCommand(log *zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "encode <input_file> <output_dir> <cols> <rows> <qr_version> <qr_ecc> [<file_ecc>]",
		Short: "Archive a file as a set of QR code page images",
		Args:  cobra.RangeArgs(6, 7),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputFile, outputDir := args[0], args[1]

			cols, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("cols: %w", err)
			}
			rows, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("rows: %w", err)
			}
			version, err := strconv.Atoi(args[4])
			if err != nil {
				return fmt.Errorf("qr_version: %w", err)
			}
			ecc, err := strconv.Atoi(args[5])
			if err != nil {
				return fmt.Errorf("qr_ecc: %w", err)
			}

			fileECC := 0
			if len(args) == 7 {
				fileECC, err = strconv.Atoi(args[6])
				if err != nil {
					return fmt.Errorf("file_ecc: %w", err)
				}
			}
			if fileECC < 0 || fileECC > 6 {
				return fmt.Errorf("file_ecc must be in [0, 6], got %d", fileECC)
			}

			qrCfg, err := qr.NewConfig(qrcodegen.Version(version), qrcodegen.ECC(ecc))
			if err != nil {
				return err
			}
			pageCfg, err := page.NewConfig(cols, rows, qrCfg)
			if err != nil {
				return err
			}

			result, err := pipeline.Encode(inputFile, outputDir, pageCfg, qrCfg, fileECC, *log)
			if err != nil {
				return err
			}

			fmt.Printf("Blocks: %d", result.DataBlocks)
			if result.ParityBlocks > 0 {
				fmt.Printf(" + %d (ECC)", result.ParityBlocks)
			}
			fmt.Println()
			fmt.Printf("Pages:  %d", result.DataPages)
			if result.ParityPages > 0 {
				fmt.Printf(" + %d (ECC)", result.ParityPages)
			}
			fmt.Println()

			return nil
		},
	}
}
