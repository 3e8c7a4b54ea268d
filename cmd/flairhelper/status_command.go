package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flair-helper/flairhelper/internal/actionstore"
	"github.com/flair-helper/flairhelper/internal/configstore"
	"github.com/flair-helper/flairhelper/internal/supervisor"
	"github.com/flair-helper/flairhelper/pkg/console"
)

// statusReport is the console/JSON-renderable shape of a status snapshot.
type statusReport struct {
	RunningTasks         []string `json:"running_tasks" console:"header:Running Tasks"`
	PendingActions       int      `json:"pending_actions" console:"header:Pending Actions"`
	MonitoredCommunities []string `json:"monitored_communities" console:"header:Monitored Communities"`
}

// newStatusCommand creates "status": a point-in-time snapshot of the
// action store and config store backing a (possibly running) instance.
// Because this is invoked as a separate process from `run`, running-task
// names are only populated when this command itself supervises something
// (it does not); the pending-action count and monitored-community list are
// read directly from the on-disk stores, which is what an operator
// actually wants from a cold CLI invocation.
func newStatusCommand() *cobra.Command {
	var jsonOutput bool
	var settingsPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a point-in-time snapshot of pending work",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(settingsPath)
			if err != nil {
				return err
			}

			ctx := context.Background()

			actions, err := actionstore.Open(settings.DataDir + "/actions.db")
			if err != nil {
				return fmt.Errorf("open action store: %w", err)
			}
			defer actions.Close()

			configs, err := configstore.Open(settings.DataDir + "/configs.db")
			if err != nil {
				return fmt.Errorf("open config store: %w", err)
			}
			defer configs.Close()

			sup := supervisor.New(nil, actions, configs)
			snapshot := sup.Status(ctx)

			report := statusReport{
				RunningTasks:         snapshot.RunningTasks,
				PendingActions:       snapshot.PendingActions,
				MonitoredCommunities: snapshot.MonitoredCommunities,
			}
			return console.OutputStructOrJSON(report, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON instead of a formatted report")
	cmd.Flags().StringVar(&settingsPath, "config", "", "Path to the operator settings file (default ./flairhelper.yml)")
	return cmd
}
