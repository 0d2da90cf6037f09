package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version and Commit are set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = ""
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if isJSON() {
				return printJSON(map[string]string{
					"version": Version,
					"commit":  Commit,
					"go":      runtime.Version(),
				})
			}
			if Commit != "" {
				fmt.Printf("eb %s (%s)\n", Version, Commit)
				return nil
			}
			fmt.Printf("eb %s\n", Version)
			return nil
		},
	}
}
