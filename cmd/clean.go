package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanq16/trickle/internal/output"
	"github.com/tanq16/trickle/internal/utils"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [dir]",
		Short: "Remove worker temp files left in a download directory",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dir := utils.DefaultOutputDir
			if len(args) > 0 {
				dir = args[0]
			}
			removed, err := utils.Clean(dir)
			if err != nil {
				output.PrintError(fmt.Sprintf("Error cleaning %s: %v", dir, err))
				os.Exit(1)
			}
			output.PrintSuccess(fmt.Sprintf("Removed %d temporary file(s) from %s", removed, dir))
		},
	}
}
