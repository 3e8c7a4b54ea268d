// Command flairhelper runs the flair-driven moderator-automation service:
// it ingests per-community wiki configs, classifies mod-log activity into
// action batches, executes those batches against the platform, and answers
// moderator PM commands, all under a single supervised process.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flair-helper/flairhelper/pkg/console"
	"github.com/flair-helper/flairhelper/pkg/constants"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     constants.CLIExtensionPrefix,
	Short:   "Flair-driven moderator automation",
	Version: version,
	Long: `flairhelper watches a community's configuration wiki page, turns
editflair mod-log activity into queued actions, and carries them out
against the forum platform: approving, removing, flairing, ban/nuke
escalation, usernotes, and moderator notifications.

Common tasks:
  flairhelper run                    # start the supervisor and all pipelines
  flairhelper status                 # point-in-time snapshot of running tasks
  flairhelper config check <sub> <f> # validate a config file without touching the wiki
  flairhelper version                # show build information`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Accepted but has no effect")
	rootCmd.PersistentFlags().Bool("debug", false, "Accepted but has no effect; debug logging is enabled through the DEBUG environment variable")
	rootCmd.PersistentFlags().String("config", "", "Path to the operator settings file (default ./flairhelper.yml)")
	rootCmd.SetOut(os.Stderr)

	rootCmd.SetVersionTemplate(fmt.Sprintf("%s\n",
		console.FormatInfoMessage(fmt.Sprintf("%s version {{.Version}}", constants.CLIExtensionPrefix))))

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newVersionCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
		os.Exit(1)
	}
}
