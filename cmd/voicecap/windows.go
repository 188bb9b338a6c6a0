package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/voicecap/schedule"
)

func newWindowsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "windows HH:MM",
		Short: "Print both recording windows for a start time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := schedule.ParseTimeOfDay(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			for _, w := range schedule.WindowsWith(start, cfg.Schedule.FirstWindowDelay, cfg.Schedule.SecondWindowGap) {
				line := fmt.Sprintf("window %d  %s", w.Index+1, w)
				if d := w.Day(); d > 0 {
					line += fmt.Sprintf("  (+%dd)", d)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}
