// Package ingestor implements the config-ingest pipeline (C3): fetching a
// community's wiki configuration page, parsing either canonical JSON or
// legacy YAML, validating and canonicalizing it, and persisting it to the
// config store when it changed. Up to maxConcurrentCommunities communities
// are ingested at once; rate-limited upstream calls are retried with a
// capped exponential delay via pkg/ratelimit, and other upstream errors are
// returned without retry.
package ingestor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/flair-helper/flairhelper/internal/configschema"
	"github.com/flair-helper/flairhelper/internal/configstore"
	"github.com/flair-helper/flairhelper/internal/flairconfig"
	"github.com/flair-helper/flairhelper/internal/legacyyaml"
	"github.com/flair-helper/flairhelper/internal/platform"
	"github.com/flair-helper/flairhelper/pkg/constants"
	"github.com/flair-helper/flairhelper/pkg/logger"
	"github.com/flair-helper/flairhelper/pkg/ratelimit"
)

var log = logger.New("ingestor")

// maxConcurrentCommunities caps how many wiki-page ingests run in parallel
// across a single IngestAll call.
const maxConcurrentCommunities = 3

// permissionEditorExempt are the permission keys that satisfy a
// require_config_to_edit gate, in addition to the bot's own edits.
var permissionEditorExempt = map[string]bool{"config": true, "all": true}

// Notifier reacts to ingest outcomes a moderator needs to hear about. A
// real implementation (outside this package) forwards to the external
// notifier (C8); tests can use NoopNotifier.
type Notifier interface {
	NotifyConfigRejected(ctx context.Context, subreddit, editor, reason string) error
	NotifyConfigApplied(ctx context.Context, subreddit string) error
}

// NoopNotifier discards every notification. Useful where a caller does not
// care about editor/community messaging (e.g. startup ingestion in tests).
type NoopNotifier struct{}

func (NoopNotifier) NotifyConfigRejected(context.Context, string, string, string) error { return nil }
func (NoopNotifier) NotifyConfigApplied(context.Context, string) error                  { return nil }

// Service runs the ingest pipeline against a platform client and config
// store.
type Service struct {
	Platform platform.Client
	Store    *configstore.Store
	Notifier Notifier
}

// New constructs a Service. notifier may be nil, in which case NoopNotifier
// is used.
func New(client platform.Client, store *configstore.Store, notifier Notifier) *Service {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &Service{Platform: client, Store: store, Notifier: notifier}
}

// Result reports the outcome of ingesting a single community.
type Result struct {
	Subreddit string
	Changed   bool
	Err       error
}

// IngestAll ingests every community in communities, at most
// maxConcurrentCommunities at a time.
func (s *Service) IngestAll(ctx context.Context, communities []string) []Result {
	p := pool.NewWithResults[Result]().WithMaxGoroutines(maxConcurrentCommunities)
	for _, subreddit := range communities {
		subreddit := subreddit
		p.Go(func() Result {
			return s.IngestOne(ctx, subreddit)
		})
	}
	return p.Wait()
}

// IngestOne runs the full pipeline for a single community. A rejected or
// unchanged config is not reported as an error — only upstream/storage
// failures are.
func (s *Service) IngestOne(ctx context.Context, subreddit string) Result {
	var content, editor string
	err := ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationWikiRead, func() error {
		var fetchErr error
		content, editor, fetchErr = s.Platform.WikiPage(ctx, subreddit, constants.ConfigWikiPageName)
		return fetchErr
	})
	if errors.Is(err, platform.ErrNotFound) {
		return Result{Subreddit: subreddit}
	}
	if err != nil {
		return Result{Subreddit: subreddit, Err: fmt.Errorf("fetch config wiki page: %w", err)}
	}
	if strings.TrimSpace(content) == "" {
		return Result{Subreddit: subreddit}
	}

	cfg, fromLegacy, err := parse(content)
	if err != nil {
		s.reject(ctx, subreddit, editor, fmt.Sprintf("could not parse config: %v", err))
		return Result{Subreddit: subreddit}
	}
	unescape(cfg)

	canonical, err := cfg.MarshalCanonical()
	if err != nil {
		s.reject(ctx, subreddit, editor, fmt.Sprintf("could not serialize config: %v", err))
		return Result{Subreddit: subreddit}
	}
	if err := configschema.Validate(canonical); err != nil {
		s.reject(ctx, subreddit, editor, err.Error())
		return Result{Subreddit: subreddit}
	}

	if cfg.General.RequireConfigToEdit {
		if allowed, permErr := s.editorAllowed(ctx, subreddit, editor); permErr != nil {
			return Result{Subreddit: subreddit, Err: fmt.Errorf("check editor permissions: %w", permErr)}
		} else if !allowed {
			s.reject(ctx, subreddit, editor, "this wiki page requires the config or all moderator permission to edit")
			return Result{Subreddit: subreddit}
		}
	}

	cached, err := s.Store.Get(ctx, subreddit)
	if err != nil {
		return Result{Subreddit: subreddit, Err: fmt.Errorf("load cached config: %w", err)}
	}
	if cached != nil {
		if equal, eqErr := flairconfig.Equal(cached, cfg); eqErr == nil && equal {
			return Result{Subreddit: subreddit}
		}
	}

	if err := s.Store.Put(ctx, subreddit, cfg); err != nil {
		return Result{Subreddit: subreddit, Err: fmt.Errorf("persist config: %w", err)}
	}
	log.Printf("config updated: subreddit=%s legacy=%v", subreddit, fromLegacy)

	if fromLegacy {
		if err := s.rewriteWikiPage(ctx, subreddit, canonical); err != nil {
			log.Printf("failed to rewrite legacy config page for %s: %v", subreddit, err)
		}
	}

	if err := s.Notifier.NotifyConfigApplied(ctx, subreddit); err != nil {
		log.Printf("failed to notify %s of applied config: %v", subreddit, err)
	}

	return Result{Subreddit: subreddit, Changed: true}
}

func (s *Service) reject(ctx context.Context, subreddit, editor, reason string) {
	if err := s.Notifier.NotifyConfigRejected(ctx, subreddit, editor, reason); err != nil {
		log.Printf("failed to notify %s editor %s of rejected config: %v", subreddit, editor, err)
	}
}

func (s *Service) editorAllowed(ctx context.Context, subreddit, editor string) (bool, error) {
	if editor == "" || editor == s.Platform.BotUsername() {
		return true, nil
	}
	perms, err := s.Platform.ModeratorPermissions(ctx, subreddit, editor)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if permissionEditorExempt[p] {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) rewriteWikiPage(ctx context.Context, subreddit string, canonical []byte) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, canonical, "", "  "); err != nil {
		return fmt.Errorf("pretty-print canonical config: %w", err)
	}
	return ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationWikiWrite, func() error {
		return s.Platform.EditWikiPage(ctx, subreddit, constants.ConfigWikiPageName, pretty.String(),
			"canonicalize legacy configuration")
	})
}

// ParseDocument runs the same tolerant JSON-or-legacy-YAML read and
// canonicalization IngestOne applies to a fetched wiki page, against an
// arbitrary in-memory document. It does not touch the platform or config
// store, which makes it the entry point for offline validation (the
// `config check` CLI command).
func ParseDocument(content string) (cfg *flairconfig.Config, fromLegacy bool, err error) {
	cfg, fromLegacy, err = parse(content)
	if err != nil {
		return nil, fromLegacy, err
	}
	unescape(cfg)
	return cfg, fromLegacy, nil
}

// parse dispatches to the JSON or legacy-YAML reader based on the first
// non-whitespace byte, per the documented tolerant-read rule.
func parse(content string) (cfg *flairconfig.Config, fromLegacy bool, err error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "[") {
		cfg, err = flairconfig.UnmarshalCanonical([]byte(trimmed))
		return cfg, false, err
	}
	cfg, err = legacyyaml.Convert([]byte(content))
	return cfg, true, err
}

// unescape turns literal backslash-n sequences (as typically typed into a
// wiki text box) into real newlines across every free-text field a
// moderator might write multi-line content into.
func unescape(cfg *flairconfig.Config) {
	cfg.General.Header = unescapeString(cfg.General.Header)
	cfg.General.Footer = unescapeString(cfg.General.Footer)
	for id, rule := range cfg.Rules {
		rule.ModLogReason = unescapeString(rule.ModLogReason)
		rule.Comment.Body = unescapeString(rule.Comment.Body)
		rule.Usernote.Note = unescapeString(rule.Usernote.Note)
		rule.Ban.Message = unescapeString(rule.Ban.Message)
		rule.UserFlair.Text = unescapeString(rule.UserFlair.Text)
		cfg.Rules[id] = rule
	}
}

func unescapeString(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}
