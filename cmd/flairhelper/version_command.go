package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flair-helper/flairhelper/pkg/console"
	"github.com/flair-helper/flairhelper/pkg/constants"
)

// newVersionCommand creates the version command.
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(console.FormatInfoMessage(fmt.Sprintf("%s version %s", constants.CLIExtensionPrefix, version)))
		},
	}
}
