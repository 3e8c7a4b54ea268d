// Package classifier implements the Event Classifier (C4): it drains the
// unified mod-log stream, turns editflair entries into action batches for
// the action store, and forwards wiki-revise entries that touch the config
// page to a re-ingest hook. There is no ordering guarantee across
// submissions; a per-(submission, flair) dedupe window absorbs repeat
// editflair entries for the same assignment within a short span.
package classifier

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/flair-helper/flairhelper/internal/actionstore"
	"github.com/flair-helper/flairhelper/internal/configstore"
	"github.com/flair-helper/flairhelper/internal/flairconfig"
	"github.com/flair-helper/flairhelper/internal/platform"
	"github.com/flair-helper/flairhelper/pkg/constants"
	"github.com/flair-helper/flairhelper/pkg/logger"
)

var log = logger.New("classifier")

// Reingestor is called when a wiki-revise entry names the config page for a
// community, so C3 can re-fetch it without waiting for the consistency
// sweep.
type Reingestor interface {
	IngestOne(ctx context.Context, subreddit string) error
}

// ReingestorFunc adapts a plain function to Reingestor.
type ReingestorFunc func(ctx context.Context, subreddit string) error

func (f ReingestorFunc) IngestOne(ctx context.Context, subreddit string) error { return f(ctx, subreddit) }

// dedupeKey identifies one (submission, flair template) assignment.
type dedupeKey struct {
	submissionID string
	flairGUID    string
}

// Service consumes the mod-log stream and populates the action store.
type Service struct {
	Platform   platform.Client
	Configs    *configstore.Store
	Actions    *actionstore.Store
	Reingestor Reingestor

	// IgnoreMods lists moderator usernames whose editflair entries are not
	// acted on, e.g. the bot's own flair-correction passes.
	IgnoreMods map[string]bool

	mu     sync.Mutex
	recent map[dedupeKey]time.Time
}

// New constructs a Service. reingestor may be nil, in which case
// wiki-revise entries are logged and otherwise ignored.
func New(client platform.Client, configs *configstore.Store, actions *actionstore.Store, reingestor Reingestor, ignoreMods []string) *Service {
	ignore := make(map[string]bool, len(ignoreMods))
	for _, m := range ignoreMods {
		ignore[strings.ToLower(m)] = true
	}
	return &Service{
		Platform:   client,
		Configs:    configs,
		Actions:    actions,
		Reingestor: reingestor,
		IgnoreMods: ignore,
		recent:     make(map[dedupeKey]time.Time),
	}
}

// Run drains the mod-log stream until ctx is cancelled or the stream closes.
func (s *Service) Run(ctx context.Context) error {
	stream, err := s.Platform.ModLogStream(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-stream:
			if !ok {
				return nil
			}
			s.handle(ctx, entry)
		}
	}
}

func (s *Service) handle(ctx context.Context, entry platform.ModLogEntry) {
	switch {
	case entry.Action == "wiki-revise" && strings.Contains(entry.Details, constants.ConfigWikiPageName):
		s.handleWikiRevise(ctx, entry)
	case entry.Action == "editflair" && strings.HasPrefix(entry.TargetID, "t3_"):
		s.handleEditFlair(ctx, entry)
	}
}

func (s *Service) handleWikiRevise(ctx context.Context, entry platform.ModLogEntry) {
	if s.Reingestor == nil {
		return
	}
	if err := s.Reingestor.IngestOne(ctx, entry.Subreddit); err != nil {
		log.Printf("re-ingest after wiki-revise failed: subreddit=%s err=%v", entry.Subreddit, err)
	}
}

func (s *Service) handleEditFlair(ctx context.Context, entry platform.ModLogEntry) {
	if s.IgnoreMods[strings.ToLower(entry.Mod)] {
		return
	}

	cfg, err := s.Configs.Get(ctx, entry.Subreddit)
	if err != nil {
		log.Printf("load config failed: subreddit=%s err=%v", entry.Subreddit, err)
		return
	}
	if cfg == nil {
		return
	}

	flairGUID, err := s.Platform.CurrentFlairTemplateID(ctx, entry.TargetID)
	if err != nil {
		log.Printf("resolve flair template failed: submission=%s err=%v", entry.TargetID, err)
		return
	}
	if flairGUID == "" {
		return
	}

	if s.withinDedupeWindow(entry.TargetID, flairGUID, cfg.General.EffectiveIgnoreSameFlairSeconds()) {
		return
	}

	rule, ok := cfg.Rule(flairGUID)
	if !ok {
		return
	}

	kinds := actionSet(rule)
	if len(kinds) == 0 {
		return
	}

	if err := s.Actions.InsertBatch(ctx, entry.TargetID, kinds, entry.Mod, flairGUID); err != nil {
		log.Printf("insert_batch failed: submission=%s err=%v", entry.TargetID, err)
	}
}

// withinDedupeWindow reports whether (submissionID, flairGUID) was enqueued
// within the last windowSeconds. The current attempt is recorded only when it
// falls outside the window; a deduped attempt leaves the earlier time in place.
func (s *Service) withinDedupeWindow(submissionID, flairGUID string, windowSeconds int) bool {
	key := dedupeKey{submissionID: submissionID, flairGUID: flairGUID}
	window := time.Duration(windowSeconds) * time.Second

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if last, seen := s.recent[key]; seen && now.Sub(last) < window {
		return true
	}
	s.recent[key] = now
	s.pruneLocked(now, window)
	return false
}

// pruneLocked drops dedupe entries older than twice the window, bounding
// memory for communities with long histories of one-off template ids.
func (s *Service) pruneLocked(now time.Time, window time.Duration) {
	if window <= 0 {
		window = time.Minute
	}
	cutoff := 2 * window
	for k, t := range s.recent {
		if now.Sub(t) > cutoff {
			delete(s.recent, k)
		}
	}
}

// actionSet computes the action-kind rows a FlairRule produces, in the
// documented processing order. modlogReason is folded into remove when
// remove is separately enabled, rather than emitted as its own row.
func actionSet(rule flairconfig.FlairRule) []constants.ActionKind {
	var kinds []constants.ActionKind

	if rule.Approve {
		kinds = append(kinds, constants.ActionApprove)
	}
	if rule.Remove {
		kinds = append(kinds, constants.ActionRemove)
	} else if rule.ModLogReason != "" {
		kinds = append(kinds, constants.ActionModLogReason)
	}
	if rule.Lock {
		kinds = append(kinds, constants.ActionLock)
	}
	if rule.Spoiler {
		kinds = append(kinds, constants.ActionSpoiler)
	}
	if rule.ClearPostFlair {
		kinds = append(kinds, constants.ActionClearPostFlair)
	}
	if rule.SendToWebhook {
		kinds = append(kinds, constants.ActionWebhook)
	}
	if rule.Comment.Enabled {
		kinds = append(kinds, constants.ActionComment)
	}
	if rule.Ban.Enabled {
		kinds = append(kinds, constants.ActionBan)
	}
	if rule.Unban {
		kinds = append(kinds, constants.ActionUnban)
	}
	if rule.UserFlair.Enabled {
		kinds = append(kinds, constants.ActionUserFlair)
	}
	if rule.Usernote.Enabled {
		kinds = append(kinds, constants.ActionUsernote)
	}
	if rule.Contributor.Enabled {
		kinds = append(kinds, constants.ActionContributor)
	}
	if rule.Nuke.Enabled {
		kinds = append(kinds, constants.ActionNuke)
	}
	if rule.NukeUserComments {
		kinds = append(kinds, constants.ActionNukeUserComments)
	}

	return kinds
}
