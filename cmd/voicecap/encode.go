package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/kbukum/voicecap/audio/wav"
	"github.com/kbukum/voicecap/logger"
)

func newEncodeCmd(flags *rootFlags) *cobra.Command {
	var (
		output   string
		mimeType string
	)

	cmd := &cobra.Command{
		Use:   "encode <in.raw|in.webm> -o <out.wav>",
		Short: "Decode a recorded blob and write a canonical 16-bit PCM WAV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(output) == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".wav"
			}
			if filepath.Clean(output) == filepath.Clean(args[0]) {
				return fmt.Errorf("-o must differ from the input file")
			}
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			log := logger.New(&cfg.Logging, cfg.Name)

			blob, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if mimeType == "" {
				mimeType = mimetype.Detect(blob).String()
			}

			buf, err := newDecoder(cfg.Capture, log).Decode(cmd.Context(), blob, mimeType)
			if err != nil {
				return err
			}
			data, err := wav.Encode(buf)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d Hz, %d ch, %d frames, %.2fs\n",
				output, buf.SampleRate, buf.NumChannels(), buf.NumFrames(), buf.Duration().Seconds())
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output WAV path (default: input with .wav)")
	cmd.Flags().StringVar(&mimeType, "mime", "", "input MIME type (default: detected from content)")
	return cmd
}
