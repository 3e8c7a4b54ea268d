// Package notifier implements the External Notifier (C8): the single
// collaborator every other component reports plaintext status lines and
// structured failure events to. Both status lines and failure events are
// logged and forwarded to the operator's webhook and chat channel when
// those are configured; a failure event is also PM'd to the operator, and
// a rejected config is PM'd to the editor who submitted it.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flair-helper/flairhelper/internal/platform"
	"github.com/flair-helper/flairhelper/pkg/constants"
	"github.com/flair-helper/flairhelper/pkg/httputil"
	"github.com/flair-helper/flairhelper/pkg/logger"
)

var log = logger.New("notifier")

// FailureEvent is a typed, job-level failure report, raised by the
// processor once a submission exhausts its retry budget.
type FailureEvent struct {
	SubmissionID string
	LastError    string
	PendingKinds []constants.ActionKind
}

// Service delivers status lines and failure events to the operator's
// configured channels.
type Service struct {
	Platform         platform.Client
	WebhookURL       string // operator status/failure sink; empty disables it
	OperatorUsername string // PM'd on FailureEvent; empty disables it

	// ChatWebhookURL, when set, additionally forwards every status line and
	// failure event to an external chat channel (e.g. Discord) over a
	// direct HTTP POST, independent of the platform's own webhook path.
	ChatWebhookURL string
	ChatHTTP       *httputil.Client
}

// New constructs a Service.
func New(client platform.Client, webhookURL, operatorUsername string) *Service {
	return &Service{Platform: client, WebhookURL: webhookURL, OperatorUsername: operatorUsername}
}

// Status records a plaintext status line: logged always, and forwarded to
// the operator webhook and chat channel when configured.
func (s *Service) Status(ctx context.Context, line string) error {
	log.Printf("status: %s", line)
	s.notifyChat(ctx, line)
	if s.WebhookURL == "" {
		return nil
	}
	payload, err := json.Marshal(map[string]string{"text": line})
	if err != nil {
		return fmt.Errorf("marshal status payload: %w", err)
	}
	return s.Platform.SendWebhook(ctx, s.WebhookURL, payload)
}

// Failure records a job-level failure event: logged, forwarded to the
// operator webhook and chat channel, and PM'd to the operator if configured.
func (s *Service) Failure(ctx context.Context, event FailureEvent) error {
	log.Printf("failure: submission=%s kinds=%v err=%s", event.SubmissionID, event.PendingKinds, event.LastError)
	s.notifyChat(ctx, fmt.Sprintf("submission %s exhausted its retry budget: %s", event.SubmissionID, event.LastError))

	if s.WebhookURL != "" {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal failure payload: %w", err)
		}
		if err := s.Platform.SendWebhook(ctx, s.WebhookURL, payload); err != nil {
			return fmt.Errorf("send failure webhook: %w", err)
		}
	}

	if s.OperatorUsername != "" {
		body := fmt.Sprintf("submission %s exhausted its retry budget.\nlast error: %s\npending: %v",
			event.SubmissionID, event.LastError, event.PendingKinds)
		if err := s.Platform.SendPrivateMessage(ctx, s.OperatorUsername, "flairhelper: job failed", body); err != nil {
			return fmt.Errorf("PM operator of failure: %w", err)
		}
	}
	return nil
}

// NotifyConfigRejected implements ingestor.Notifier: it PMs the editor who
// submitted the rejected config and logs a status line.
func (s *Service) NotifyConfigRejected(ctx context.Context, subreddit, editor, reason string) error {
	if err := s.Status(ctx, fmt.Sprintf("config rejected: subreddit=%s editor=%s reason=%s", subreddit, editor, reason)); err != nil {
		log.Printf("status forwarding failed: %v", err)
	}
	if editor == "" {
		return nil
	}
	body := fmt.Sprintf("Your edit to the flair_helper configuration wiki page for r/%s was not applied:\n\n%s", subreddit, reason)
	if err := s.Platform.SendPrivateMessage(ctx, editor, fmt.Sprintf("r/%s: configuration not applied", subreddit), body); err != nil {
		return fmt.Errorf("PM editor of rejected config: %w", err)
	}
	return nil
}

// NotifyConfigApplied implements ingestor.Notifier: it logs a status line.
// No PM is sent on success, matching the documented "quiet on success,
// loud on failure" user-visible behavior.
func (s *Service) NotifyConfigApplied(ctx context.Context, subreddit string) error {
	return s.Status(ctx, fmt.Sprintf("config applied: subreddit=%s", subreddit))
}

// notifyChat posts line to the configured chat webhook, if any. Failures
// are logged, never propagated: the chat channel is a convenience, not a
// required delivery path.
func (s *Service) notifyChat(ctx context.Context, line string) {
	if s.ChatWebhookURL == "" {
		return
	}
	client := s.ChatHTTP
	if client == nil {
		client = httputil.NewClient(nil)
	}
	payload, err := json.Marshal(map[string]string{"content": line})
	if err != nil {
		log.Printf("marshal chat payload failed: %v", err)
		return
	}
	if err := client.PostJSON(ctx, s.ChatWebhookURL, payload); err != nil {
		log.Printf("chat webhook post failed: %v", err)
	}
}
