package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/voicecap/version"
)

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			if short {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), info.String())
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), info.Full())
			return nil
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print only the version")
	return cmd
}
