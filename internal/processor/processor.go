// Package processor implements the Action Processor (C5): it drains the
// action store with bounded concurrency, executes each pending row's action
// in the documented order, and retries a failing submission with a flat
// delay before escalating to the external notifier and force-completing the
// job so garbage collection can proceed.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sourcegraph/conc/pool"

	"github.com/flair-helper/flairhelper/internal/actionstore"
	"github.com/flair-helper/flairhelper/internal/configstore"
	"github.com/flair-helper/flairhelper/internal/flairconfig"
	"github.com/flair-helper/flairhelper/internal/notifier"
	"github.com/flair-helper/flairhelper/internal/placeholder"
	"github.com/flair-helper/flairhelper/internal/platform"
	"github.com/flair-helper/flairhelper/internal/toolbox"
	"github.com/flair-helper/flairhelper/pkg/constants"
	"github.com/flair-helper/flairhelper/pkg/logger"
	"github.com/flair-helper/flairhelper/pkg/ratelimit"
	"github.com/flair-helper/flairhelper/pkg/stringutil"
)

var log = logger.New("processor")

// Defaults used when a Service field is left at its zero value.
const (
	DefaultMaxConcurrentSubmissions = 2
	DefaultMaxProcessingRetries     = 5
	DefaultRetryDelay               = 30 * time.Second
)

// banHistoryCategory is the Toolbox warning category every escalating-ban
// history note is filed under. Usernote actions use the community's own
// usernote_type_name instead; see defaultUsernoteCategory.
const banHistoryCategory = "flair_helper_note"

// defaultUsernoteCategory is used when a community config leaves
// usernote_type_name unset.
const defaultUsernoteCategory = "flair_helper_note"

// Notifier is the subset of the external notifier a processor escalates
// exhausted jobs to.
type Notifier interface {
	Failure(ctx context.Context, event notifier.FailureEvent) error
}

// retryState is the in-memory, per-submission attempt tracker. Nothing here
// is persisted: a process restart resets the backoff, which is acceptable
// because the action rows themselves remain the source of truth for what
// still needs doing.
type retryState struct {
	attempts     int
	lastAttempt  time.Time
	firstAttempt time.Time
}

// Service executes pending action-store jobs against a platform client.
type Service struct {
	Platform platform.Client
	Configs  *configstore.Store
	Actions  *actionstore.Store
	Toolbox  *toolbox.Service
	Notifier Notifier

	MaxConcurrentSubmissions int
	MaxProcessingRetries     int
	RetryDelay               time.Duration

	// AllowBanAndNuke mirrors the operator's allow_ban_and_nuke setting: a
	// global kill switch over the two heaviest-handed action kinds,
	// independent of what any single community's config requests.
	AllowBanAndNuke bool

	mu      sync.Mutex
	retries map[string]*retryState
}

// New constructs a Service with the documented defaults.
func New(client platform.Client, configs *configstore.Store, actions *actionstore.Store, tb *toolbox.Service, notif Notifier) *Service {
	return &Service{
		Platform:                 client,
		Configs:                  configs,
		Actions:                  actions,
		Toolbox:                  tb,
		Notifier:                 notif,
		MaxConcurrentSubmissions: DefaultMaxConcurrentSubmissions,
		MaxProcessingRetries:     DefaultMaxProcessingRetries,
		RetryDelay:               DefaultRetryDelay,
		retries:                  make(map[string]*retryState),
	}
}

// ProcessOnce drains every currently-pending job, at most
// MaxConcurrentSubmissions at a time, skipping any submission still inside
// its retry backoff window.
func (s *Service) ProcessOnce(ctx context.Context) error {
	jobs, err := s.Actions.ListPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("list pending jobs: %w", err)
	}

	maxGoroutines := s.MaxConcurrentSubmissions
	if maxGoroutines <= 0 {
		maxGoroutines = DefaultMaxConcurrentSubmissions
	}

	p := pool.New().WithMaxGoroutines(maxGoroutines)
	for _, job := range jobs {
		job := job
		if !s.readyFor(job.SubmissionID) {
			continue
		}
		p.Go(func() {
			s.runJob(ctx, job)
		})
	}
	p.Wait()
	return nil
}

func (s *Service) readyFor(submissionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.retries[submissionID]
	if !ok {
		return true
	}
	delay := s.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	return time.Since(rs.lastAttempt) >= delay
}

func (s *Service) runJob(ctx context.Context, job actionstore.Job) {
	if s.gcIfDone(ctx, job.SubmissionID) {
		return
	}

	if err := s.process(ctx, job); err != nil {
		s.recordFailure(ctx, job.SubmissionID, err)
		return
	}
	s.clearRetry(job.SubmissionID)
	s.gcIfDone(ctx, job.SubmissionID)
}

// gcIfDone reports whether submissionID's job is fully completed, garbage
// collecting it if so.
func (s *Service) gcIfDone(ctx context.Context, submissionID string) bool {
	done, err := s.Actions.JobDone(ctx, submissionID)
	if err != nil {
		log.Printf("job_done? failed: submission=%s err=%v", submissionID, err)
		return false
	}
	if !done {
		return false
	}
	if err := s.Actions.GCCompleted(ctx, submissionID); err != nil {
		log.Printf("gc_completed failed: submission=%s err=%v", submissionID, err)
	}
	return true
}

func (s *Service) recordFailure(ctx context.Context, submissionID string, cause error) {
	s.mu.Lock()
	rs, ok := s.retries[submissionID]
	if !ok {
		rs = &retryState{firstAttempt: time.Now()}
		s.retries[submissionID] = rs
	}
	rs.attempts++
	rs.lastAttempt = time.Now()
	attempts := rs.attempts
	firstAttempt := rs.firstAttempt
	maxRetries := s.MaxProcessingRetries
	s.mu.Unlock()

	if maxRetries <= 0 {
		maxRetries = DefaultMaxProcessingRetries
	}
	log.Printf("process failed: submission=%s attempt=%d/%d err=%v", submissionID, attempts, maxRetries, cause)
	if attempts < maxRetries {
		return
	}

	pending, err := s.Actions.PendingActions(ctx, submissionID)
	if err != nil {
		log.Printf("pending_actions failed while escalating: submission=%s err=%v", submissionID, err)
	}
	log.Printf("escalating to notifier: submission=%s struggling since %s", submissionID, humanize.Time(firstAttempt))
	if s.Notifier != nil {
		event := notifier.FailureEvent{
			SubmissionID: submissionID,
			LastError:    fmt.Sprintf("%s (first failed %s)", cause.Error(), humanize.Time(firstAttempt)),
			PendingKinds: pending,
		}
		if err := s.Notifier.Failure(ctx, event); err != nil {
			log.Printf("failure notification failed: submission=%s err=%v", submissionID, err)
		}
	}
	if err := s.Actions.MarkAllCompleted(ctx, submissionID); err != nil {
		log.Printf("mark_all_completed failed: submission=%s err=%v", submissionID, err)
		return
	}
	s.clearRetry(submissionID)
}

func (s *Service) clearRetry(submissionID string) {
	s.mu.Lock()
	delete(s.retries, submissionID)
	s.mu.Unlock()
}

// process runs one submission's full action sequence. A returned error means
// the job should be retried later; NotFound/Forbidden/no-config/no-rule
// conditions instead force-complete the job directly (not an error — there's
// nothing left to retry).
func (s *Service) process(ctx context.Context, job actionstore.Job) error {
	submission, err := s.Platform.Submission(ctx, job.SubmissionID)
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) || errors.Is(err, platform.ErrForbidden) {
			log.Printf("submission unreachable, completing remaining actions as no-ops: submission=%s err=%v", job.SubmissionID, err)
			return s.Actions.MarkAllCompleted(ctx, job.SubmissionID)
		}
		return fmt.Errorf("load submission: %w", err)
	}

	cfg, err := s.Configs.Get(ctx, submission.Subreddit)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg == nil {
		return s.Actions.MarkAllCompleted(ctx, job.SubmissionID)
	}
	rule, ok := cfg.Rule(job.FlairGUID)
	if !ok {
		return s.Actions.MarkAllCompleted(ctx, job.SubmissionID)
	}

	authorUsable := submission.Author != ""
	if authorUsable {
		suspended, err := s.Platform.IsAuthorSuspended(ctx, submission.Author)
		switch {
		case errors.Is(err, platform.ErrNotFound):
			authorUsable = false
		case err != nil:
			return fmt.Errorf("check author suspension: %w", err)
		case suspended:
			authorUsable = false
		}
	}

	values := placeholder.Values{
		Author:                submission.Author,
		Subreddit:             submission.Subreddit,
		Title:                 submission.Title,
		Body:                  submission.Body,
		ID:                    submission.ID,
		Permalink:             submission.Permalink,
		URL:                   submission.URL,
		Domain:                submission.Domain,
		Link:                  submission.Permalink,
		AuthorID:              submission.AuthorID,
		AuthorFlairText:       submission.AuthorFlairText,
		AuthorFlairCSSClass:   submission.AuthorFlairCSSClass,
		AuthorFlairTemplateID: submission.AuthorFlairTemplateID,
		LinkFlairText:         submission.LinkFlairText,
		LinkFlairCSSClass:     submission.LinkFlairCSSClass,
		LinkFlairTemplateID:   submission.LinkFlairTemplateID,
		Mod:                   job.ModName,
		CreatedUTC:            submission.CreatedUTC,
		UTCOffset:             cfg.General.UTCOffset,
		TimeFormat:            cfg.General.CustomTimeFormat,
	}

	for _, kind := range constants.AllActionKinds {
		done, err := s.Actions.IsCompleted(ctx, job.SubmissionID, kind)
		if err != nil {
			return fmt.Errorf("is_completed %s: %w", kind, err)
		}
		if done {
			continue
		}

		if isAuthorScoped(kind) && !authorUsable {
			if err := s.Actions.MarkCompleted(ctx, job.SubmissionID, kind); err != nil {
				return fmt.Errorf("mark_completed %s: %w", kind, err)
			}
			continue
		}

		if isBanOrNuke(kind) && !s.AllowBanAndNuke {
			log.Printf("skipping %s: ban and nuke actions are disabled for this deployment: submission=%s", kind, job.SubmissionID)
			if err := s.Actions.MarkCompleted(ctx, job.SubmissionID, kind); err != nil {
				return fmt.Errorf("mark_completed %s: %w", kind, err)
			}
			continue
		}

		if err := s.execute(ctx, submission, cfg, rule, kind, values); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
		if err := s.Actions.MarkCompleted(ctx, job.SubmissionID, kind); err != nil {
			return fmt.Errorf("mark_completed %s: %w", kind, err)
		}
	}

	return nil
}

// isBanOrNuke reports whether kind is gated by the operator's global
// allow_ban_and_nuke switch.
func isBanOrNuke(kind constants.ActionKind) bool {
	switch kind {
	case constants.ActionBan, constants.ActionNuke:
		return true
	default:
		return false
	}
}

// isAuthorScoped reports whether kind belongs to the step-8 group that's
// short-circuited to completed when the submission has no usable author.
func isAuthorScoped(kind constants.ActionKind) bool {
	switch kind {
	case constants.ActionComment, constants.ActionBan, constants.ActionUnban,
		constants.ActionUserFlair, constants.ActionUsernote, constants.ActionContributor, constants.ActionNuke:
		return true
	default:
		return false
	}
}

func (s *Service) execute(ctx context.Context, submission *platform.Submission, cfg *flairconfig.Config, rule flairconfig.FlairRule, kind constants.ActionKind, values placeholder.Values) error {
	switch kind {
	case constants.ActionApprove:
		return s.doApprove(ctx, submission)
	case constants.ActionRemove:
		return s.doRemove(ctx, submission, rule, values)
	case constants.ActionModLogReason:
		return s.doModLogReason(ctx, submission, rule, values)
	case constants.ActionLock:
		return ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationPlatformAPI, func() error {
			return s.Platform.Lock(ctx, submission.ID)
		})
	case constants.ActionSpoiler:
		return ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationPlatformAPI, func() error {
			return s.Platform.Spoiler(ctx, submission.ID)
		})
	case constants.ActionClearPostFlair:
		return ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationPlatformAPI, func() error {
			return s.Platform.ClearPostFlair(ctx, submission.ID)
		})
	case constants.ActionWebhook:
		return s.doWebhook(ctx, cfg, submission)
	case constants.ActionComment:
		return s.doComment(ctx, submission, cfg, rule, values)
	case constants.ActionBan:
		return s.doBan(ctx, submission, rule, values)
	case constants.ActionUnban:
		return ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationPlatformAPI, func() error {
			return s.Platform.Unban(ctx, submission.Subreddit, submission.Author)
		})
	case constants.ActionUserFlair:
		return s.doUserFlair(ctx, submission, rule, values)
	case constants.ActionUsernote:
		return s.doUsernote(ctx, submission, cfg, rule, values)
	case constants.ActionContributor:
		return s.doContributor(ctx, submission, rule)
	case constants.ActionNuke:
		s.doNuke(ctx, submission, rule)
		return nil
	case constants.ActionNukeUserComments:
		return s.doNukeUserComments(ctx, submission)
	default:
		return fmt.Errorf("unhandled action kind %q", kind)
	}
}

// doApprove runs the tight approve+unlock+unspoiler group as a single
// operation, matching the documented grouping.
func (s *Service) doApprove(ctx context.Context, submission *platform.Submission) error {
	return ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationPlatformAPI, func() error {
		if err := s.Platform.Approve(ctx, submission.ID); err != nil {
			return err
		}
		if err := s.Platform.Unlock(ctx, submission.ID); err != nil {
			return err
		}
		return s.Platform.Unspoiler(ctx, submission.ID)
	})
}

func (s *Service) doRemove(ctx context.Context, submission *platform.Submission, rule flairconfig.FlairRule, values placeholder.Values) error {
	if submission.Removed {
		return nil
	}

	note := placeholder.Expand(rule.ModLogReason, values)
	if note == "" {
		note = placeholder.Expand(rule.Usernote.Note, values)
	}
	note = truncateRunes(note, 100)

	return ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationPlatformAPI, func() error {
		return s.Platform.Remove(ctx, submission.ID, false, note)
	})
}

// doModLogReason handles the standalone case: remove is not enabled on this
// rule, so modlogReason gets its own mod-log note instead of riding along
// with a remove call.
func (s *Service) doModLogReason(ctx context.Context, submission *platform.Submission, rule flairconfig.FlairRule, values placeholder.Values) error {
	reason := stringutil.SanitizeModLogReason(placeholder.Expand(rule.ModLogReason, values))
	if reason == "" {
		return nil
	}
	return ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationPlatformAPI, func() error {
		return s.Platform.CreateModNote(ctx, submission.ID, reason)
	})
}

func (s *Service) doWebhook(ctx context.Context, cfg *flairconfig.Config, submission *platform.Submission) error {
	if cfg.General.WebhookURL == "" {
		return nil
	}
	payload, err := json.Marshal(map[string]string{
		"subreddit":     submission.Subreddit,
		"submission_id": submission.ID,
		"author":        submission.Author,
		"title":         submission.Title,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	return ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationNetworkRequest, func() error {
		return s.Platform.SendWebhook(ctx, cfg.General.WebhookURL, payload)
	})
}

// composeMessage wraps body with the community's header/footer, honoring
// skip_add_newlines: normally a header/footer is joined by a blank line,
// skip_add_newlines concatenates directly.
func composeMessage(general flairconfig.GeneralConfiguration, body string, values placeholder.Values) string {
	header := placeholder.Expand(general.Header, values)
	footer := placeholder.Expand(general.Footer, values)
	body = placeholder.Expand(body, values)

	var b strings.Builder
	if header != "" {
		b.WriteString(header)
		if !general.SkipAddNewlines {
			b.WriteString("\n\n")
		}
	}
	b.WriteString(body)
	if footer != "" {
		if !general.SkipAddNewlines {
			b.WriteString("\n\n")
		}
		b.WriteString(footer)
	}
	return b.String()
}

func (s *Service) doComment(ctx context.Context, submission *platform.Submission, cfg *flairconfig.Config, rule flairconfig.FlairRule, values placeholder.Values) error {
	if !submission.CreatedUTC.IsZero() {
		maxAge := time.Duration(cfg.General.EffectiveMaxAgeForComment()) * 24 * time.Hour
		if time.Since(submission.CreatedUTC) > maxAge {
			return nil
		}
	}
	if strings.TrimSpace(rule.Comment.Body) == "" {
		return nil
	}

	body := composeMessage(cfg.General, rule.Comment.Body, values)

	if rule.Remove {
		kind := platform.RemovalMessageKind(cfg.General.EffectiveRemovalCommentType())
		return ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationPlatformAPI, func() error {
			return s.Platform.SendRemovalMessage(ctx, submission.ID, kind, body)
		})
	}

	return ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationPlatformAPI, func() error {
		return s.Platform.Comment(ctx, submission.ID, body, rule.Comment.StickyComment, rule.Comment.LockComment, rule.Comment.Distinguish)
	})
}

func (s *Service) doBan(ctx context.Context, submission *platform.Submission, rule flairconfig.FlairRule, values placeholder.Values) error {
	steps := rule.Ban.Duration.Steps()
	var priorDays []int
	if len(steps) > 1 {
		tags, err := s.Toolbox.ReadHistory(ctx, submission.Subreddit, submission.Author)
		if err != nil {
			return fmt.Errorf("read ban history: %w", err)
		}
		priorDays = parseBanTags(tags)
	}

	days, permanent := rule.Ban.Duration.ResolvedDays(priorDays)

	banValues := values
	banValues.BanSet = true
	banValues.BanDurationDays = days
	banValues.BanPermanent = permanent

	message := placeholder.Expand(rule.Ban.Message, banValues)
	modNote := stringutil.SanitizeBanNote(placeholder.Expand(rule.Ban.ModNote, banValues))

	if err := ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationPlatformAPI, func() error {
		return s.Platform.Ban(ctx, submission.Subreddit, submission.Author, days, permanent, message, modNote)
	}); err != nil {
		return err
	}

	tag := "FH-Ban-permanent"
	if !permanent {
		tag = fmt.Sprintf("FH-Ban-%d", days)
	}
	if err := s.Toolbox.Append(ctx, submission.Subreddit, submission.Author, tag, submission.ID, values.Mod, banHistoryCategory); err != nil {
		return fmt.Errorf("record ban history note: %w", err)
	}
	return nil
}

// parseBanTags converts ReadHistory's "FH-Ban-<n>"/"FH-Ban-permanent" tags
// back into day counts, permanent represented as 0 (matching
// BanDuration.ResolvedDays' own convention for a permanent prior ban).
func parseBanTags(tags []string) []int {
	days := make([]int, 0, len(tags))
	for _, t := range tags {
		if t == "FH-Ban-permanent" {
			days = append(days, 0)
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(t, "FH-Ban-")); err == nil {
			days = append(days, n)
		}
	}
	return days
}

func (s *Service) doUserFlair(ctx context.Context, submission *platform.Submission, rule flairconfig.FlairRule, values placeholder.Values) error {
	uf := rule.UserFlair
	if uf.TemplateID != "" {
		return ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationPlatformAPI, func() error {
			return s.Platform.SetAuthorFlair(ctx, submission.Subreddit, submission.Author, uf.TemplateID, "", "")
		})
	}
	if uf.Text == "" && uf.CSSClass == "" {
		return nil
	}
	text := placeholder.Expand(uf.Text, values)
	css := placeholder.Expand(uf.CSSClass, values)
	return ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationPlatformAPI, func() error {
		return s.Platform.SetAuthorFlair(ctx, submission.Subreddit, submission.Author, "", text, css)
	})
}

func (s *Service) doUsernote(ctx context.Context, submission *platform.Submission, cfg *flairconfig.Config, rule flairconfig.FlairRule, values placeholder.Values) error {
	text := placeholder.Expand(rule.Usernote.Note, values)
	if text == "" {
		return nil
	}
	category := cfg.General.UsernoteTypeName
	if category == "" {
		category = defaultUsernoteCategory
	}
	return s.Toolbox.Append(ctx, submission.Subreddit, submission.Author, text, submission.ID, values.Mod, category)
}

func (s *Service) doContributor(ctx context.Context, submission *platform.Submission, rule flairconfig.FlairRule) error {
	return ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationPlatformAPI, func() error {
		if rule.Contributor.Action == flairconfig.ContributorRemove {
			return s.Platform.RemoveContributor(ctx, submission.Subreddit, submission.Author)
		}
		return s.Platform.AddContributor(ctx, submission.Subreddit, submission.Author)
	})
}

// doNuke sweeps the author across every configured target community.
// Per-community, per-item failures are logged and do not abort the rest of
// the sweep or the job it belongs to.
func (s *Service) doNuke(ctx context.Context, submission *platform.Submission, rule flairconfig.FlairRule) {
	n := rule.Nuke
	for _, target := range n.TargetSubreddits {
		if n.BanFromAllListed {
			if err := ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationPlatformAPI, func() error {
				return s.Platform.Ban(ctx, target, submission.Author, 0, true, "", "nuke")
			}); err != nil {
				log.Printf("nuke ban failed: subreddit=%s author=%s err=%v", target, submission.Author, err)
			}
		}
		if n.RemoveAllComments {
			ids, err := s.Platform.RecentComments(ctx, submission.Author, target, 100)
			if err != nil {
				log.Printf("nuke list comments failed: subreddit=%s author=%s err=%v", target, submission.Author, err)
			}
			for _, id := range ids {
				if err := ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationPlatformAPI, func() error {
					return s.Platform.RemoveComment(ctx, id)
				}); err != nil {
					log.Printf("nuke remove comment failed: subreddit=%s id=%s err=%v", target, id, err)
				}
			}
		}
		if n.RemoveAllSubmissions {
			ids, err := s.Platform.RecentSubmissions(ctx, submission.Author, target, 100)
			if err != nil {
				log.Printf("nuke list submissions failed: subreddit=%s author=%s err=%v", target, submission.Author, err)
			}
			for _, id := range ids {
				if err := ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationPlatformAPI, func() error {
					return s.Platform.Remove(ctx, id, false, "nuke")
				}); err != nil {
					log.Printf("nuke remove submission failed: subreddit=%s id=%s err=%v", target, id, err)
				}
			}
		}
	}
}

// doNukeUserComments sweeps the post's own direct comments, leaving
// already-removed and moderator-distinguished replies alone. Unlike doNuke,
// a failure here propagates: this is a plain step in the ordered sequence,
// not a best-effort cross-community cleanup.
func (s *Service) doNukeUserComments(ctx context.Context, submission *platform.Submission) error {
	comments, err := s.Platform.SubmissionComments(ctx, submission.ID)
	if err != nil {
		return fmt.Errorf("list submission comments: %w", err)
	}
	for _, c := range comments {
		if c.Removed || c.Distinguished {
			continue
		}
		if err := ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationPlatformAPI, func() error {
			return s.Platform.RemoveComment(ctx, c.ID)
		}); err != nil {
			return fmt.Errorf("remove comment %s: %w", c.ID, err)
		}
	}
	return nil
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
