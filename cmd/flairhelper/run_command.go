package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flair-helper/flairhelper/internal/actionstore"
	"github.com/flair-helper/flairhelper/internal/classifier"
	"github.com/flair-helper/flairhelper/internal/configstore"
	"github.com/flair-helper/flairhelper/internal/configwatch"
	"github.com/flair-helper/flairhelper/internal/ingestor"
	"github.com/flair-helper/flairhelper/internal/notifier"
	"github.com/flair-helper/flairhelper/internal/pm"
	"github.com/flair-helper/flairhelper/internal/platform"
	"github.com/flair-helper/flairhelper/internal/processor"
	"github.com/flair-helper/flairhelper/internal/settings"
	"github.com/flair-helper/flairhelper/internal/supervisor"
	"github.com/flair-helper/flairhelper/internal/toolbox"
	"github.com/flair-helper/flairhelper/pkg/logger"
)

var log = logger.New("cmd:run")

// consistencySweepSchedule re-ingests every known community's config on a
// fixed cadence, so a missed mod-log wiki-revise entry (or a cold start)
// can't leave a community running against a stale config indefinitely.
const consistencySweepSchedule = "@every 15m"

// newPlatformClient is the integration seam for the live platform
// connection (authentication, token refresh, the mod-log/inbox streams).
// That client is an external collaborator outside this module's scope;
// a deployment links its own implementation of platform.Client in here.
// It is a package variable, not a constant function, specifically so a
// calling program can replace it before invoking rootCmd.Execute.
var newPlatformClient = func(s settings.Settings) (platform.Client, error) {
	return nil, errors.New("no platform client wired: set newPlatformClient in cmd/flairhelper before running")
}

func newRunCommand() *cobra.Command {
	var settingsPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the supervisor and all pipelines",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(settingsPath)
			if err != nil {
				return err
			}
			if err := s.Validate(); err != nil {
				return fmt.Errorf("invalid settings: %w", err)
			}
			return runService(cmd.Context(), s)
		},
	}

	cmd.Flags().StringVar(&settingsPath, "config", "", "Path to the operator settings file (default ./flairhelper.yml)")
	return cmd
}

// runService assembles every component and runs until ctx is cancelled.
func runService(ctx context.Context, s settings.Settings) error {
	client, err := newPlatformClient(s)
	if err != nil {
		return fmt.Errorf("construct platform client: %w", err)
	}

	actions, err := actionstore.Open(s.DataDir + "/actions.db")
	if err != nil {
		return fmt.Errorf("open action store: %w", err)
	}
	defer actions.Close()

	configs, err := configstore.Open(s.DataDir + "/configs.db")
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer configs.Close()

	notif := notifier.New(client, s.WebhookURL, s.OperatorUsername)
	if s.Chat.Enabled {
		notif.ChatWebhookURL = s.Chat.WebhookURL
	}

	ingest := ingestor.New(client, configs, notif)
	classify := classifier.New(client, configs, actions, ingestor.ReingestorFunc(func(ctx context.Context, subreddit string) error {
		res := ingest.IngestOne(ctx, subreddit)
		return res.Err
	}), s.IgnoreMods)

	tb := toolbox.New(client)
	proc := processor.New(client, configs, actions, tb, notif)
	proc.AllowBanAndNuke = s.AllowBanAndNuke
	if s.MaxConcurrentSubmissions > 0 {
		proc.MaxConcurrentSubmissions = s.MaxConcurrentSubmissions
	}
	if s.MaxProcessingRetries > 0 {
		proc.MaxProcessingRetries = s.MaxProcessingRetries
	}

	pmHandler := pm.New(client, s.AutoAcceptModInvites, notif)

	sup := supervisor.New(notif, actions, configs)
	sup.Start(ctx)
	defer sup.StopAll()

	sup.AddTask(ctx, "classifier", classify.Run)
	sup.AddTask(ctx, "processor", pollLoop(proc.ProcessOnce, 10*time.Second))
	sup.AddTask(ctx, "pm", pollLoop(pmHandler.ProcessOnce, 30*time.Second))

	if s.LocalOverrideDir != "" {
		watch := configwatch.New(s.LocalOverrideDir, configs)
		sup.AddTask(ctx, "configwatch", watch.Run)
	}

	if err := sup.StartConsistencySweep(ctx, consistencySweepSchedule, func(sweepCtx context.Context) {
		communities, err := configs.ListCommunities(sweepCtx)
		if err != nil {
			log.Printf("consistency sweep: list communities: %v", err)
			return
		}
		for _, result := range ingest.IngestAll(sweepCtx, communities) {
			if result.Err != nil {
				log.Printf("consistency sweep: %s: %v", result.Subreddit, result.Err)
			}
		}
	}); err != nil {
		return fmt.Errorf("start consistency sweep: %w", err)
	}

	<-ctx.Done()
	return nil
}

// pollLoop adapts a ProcessOnce-style method into a supervisor.TaskFunc
// that repeats on a fixed interval until ctx is cancelled, returning the
// first error so the supervisor's backoff-and-restart takes over.
func pollLoop(once func(ctx context.Context) error, interval time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := once(ctx); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
}
