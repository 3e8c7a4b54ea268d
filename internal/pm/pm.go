// Package pm implements the Private-Message Handler (C6): it drains the
// bot's inbox once per call, dispatches subject-recognized commands, and
// always marks a message read before (or alongside) replying to it.
package pm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/flair-helper/flairhelper/internal/flairconfig"
	"github.com/flair-helper/flairhelper/internal/platform"
	"github.com/flair-helper/flairhelper/pkg/logger"
)

var log = logger.New("pm")

// MaxMessageLength is the platform's outbound message size ceiling; an
// "auto" reply that would exceed it is truncated by dropping trailing
// flair rules and re-serializing until it fits.
const MaxMessageLength = 10000

const usageLine = "Unknown command. Available commands: 'list <community>', 'auto <community>'."

const invalidCommunityNameMessage = "Invalid subreddit name. The subreddit name must be between 3 and 21 characters long and can only contain letters, numbers, and underscores."

var communityNameRE = regexp.MustCompile(`^[a-zA-Z0-9_]{3,21}$`)

// Notifier is the out-of-band status sink, used when a mod invitation
// arrives and auto-accept is disabled.
type Notifier interface {
	Status(ctx context.Context, line string) error
}

// Service drains and responds to inbox messages.
type Service struct {
	Platform platform.Client
	Notifier Notifier

	// AutoAcceptModInvites, when true, accepts mod invitations on sight
	// instead of only reporting them.
	AutoAcceptModInvites bool
}

// New constructs a Service. notif may be nil, in which case mod-invitation
// reports are simply logged.
func New(client platform.Client, autoAcceptModInvites bool, notif Notifier) *Service {
	return &Service{Platform: client, Notifier: notif, AutoAcceptModInvites: autoAcceptModInvites}
}

// ProcessOnce drains every currently-unread inbox message.
func (s *Service) ProcessOnce(ctx context.Context) error {
	messages, err := s.Platform.Inbox(ctx)
	if err != nil {
		return fmt.Errorf("fetch inbox: %w", err)
	}
	for _, m := range messages {
		if m.IsModInvite {
			s.handleModInvite(ctx, m)
			continue
		}
		s.reply(ctx, m, s.route(ctx, m))
	}
	return nil
}

func (s *Service) handleModInvite(ctx context.Context, m platform.PrivateMessage) {
	if s.AutoAcceptModInvites {
		if err := s.Platform.AcceptModInvite(ctx, m.Subreddit); err != nil {
			log.Printf("accept mod invite failed: subreddit=%s err=%v", m.Subreddit, err)
		} else {
			s.notifyStatus(ctx, fmt.Sprintf("accepted mod invitation for r/%s", m.Subreddit))
		}
	} else {
		s.notifyStatus(ctx, fmt.Sprintf("received mod invitation for r/%s but auto-accept is disabled", m.Subreddit))
	}
	if err := s.Platform.MarkRead(ctx, m.ID); err != nil {
		log.Printf("mark_read failed: message=%s err=%v", m.ID, err)
	}
}

// route maps a message's subject to a command and reply body. The subject's
// first token is the command; its second is the target community. Anything
// else falls back to the usage line.
func (s *Service) route(ctx context.Context, m platform.PrivateMessage) string {
	fields := strings.Fields(m.Subject)
	if len(fields) < 2 {
		return usageLine
	}
	community := fields[1]
	switch strings.ToLower(fields[0]) {
	case "list":
		return s.handleList(ctx, community)
	case "auto":
		return s.handleAuto(ctx, community)
	default:
		return usageLine
	}
}

func (s *Service) handleList(ctx context.Context, community string) string {
	if !communityNameRE.MatchString(community) {
		return invalidCommunityNameMessage
	}

	moderator, err := s.isModerator(ctx, community)
	if err != nil {
		return fmt.Sprintf("Subreddit /r/%s not found.", community)
	}
	if !moderator {
		return fmt.Sprintf("You are not a moderator of /r/%s.", community)
	}

	templates, err := s.Platform.FlairTemplates(ctx, community)
	if err != nil {
		return fmt.Sprintf("Subreddit /r/%s not found.", community)
	}

	var lines []string
	for _, t := range templates {
		if t.ModOnly {
			lines = append(lines, fmt.Sprintf("%s: %s", t.Text, t.ID))
		}
	}
	if len(lines) == 0 {
		return fmt.Sprintf("No mod-only flair templates found for /r/%s.", community)
	}
	return fmt.Sprintf("Mod-only flair templates for /r/%s:\n\n%s", community, strings.Join(lines, "\n\n"))
}

func (s *Service) handleAuto(ctx context.Context, community string) string {
	if !communityNameRE.MatchString(community) {
		return invalidCommunityNameMessage
	}

	moderator, err := s.isModerator(ctx, community)
	if err != nil {
		return fmt.Sprintf("Subreddit /r/%s not found.", community)
	}
	if !moderator {
		return fmt.Sprintf("You are not a moderator of /r/%s.", community)
	}

	templates, err := s.Platform.FlairTemplates(ctx, community)
	if err != nil {
		return fmt.Sprintf("Subreddit /r/%s not found.", community)
	}

	var ids []string
	for _, t := range templates {
		if t.ModOnly {
			ids = append(ids, t.ID)
		}
	}

	for n := len(ids); n >= 0; n-- {
		cfg := &flairconfig.Config{Rules: make(map[string]flairconfig.FlairRule, n)}
		for _, id := range ids[:n] {
			cfg.Rules[id] = flairconfig.FlairRule{TemplateID: id}
		}
		canonical, err := cfg.MarshalCanonical()
		if err != nil {
			return fmt.Sprintf("Could not generate a starter configuration for /r/%s.", community)
		}
		if len(canonical) <= MaxMessageLength || n == 0 {
			return string(canonical)
		}
	}
	return fmt.Sprintf("Could not generate a starter configuration for /r/%s.", community)
}

// isModerator reports whether the bot holds any moderator permission on
// community. A permission-fetch error (subreddit gone, banned, etc.) is
// returned for the caller to render as a not-found reply.
func (s *Service) isModerator(ctx context.Context, community string) (bool, error) {
	perms, err := s.Platform.ModeratorPermissions(ctx, community, s.Platform.BotUsername())
	if err != nil {
		return false, err
	}
	return len(perms) > 0, nil
}

// reply marks m read, then sends body unless it is empty. Blocked-sender
// and not-found failures on the reply itself are tolerated silently; any
// other failure is logged.
func (s *Service) reply(ctx context.Context, m platform.PrivateMessage, body string) {
	if err := s.Platform.MarkRead(ctx, m.ID); err != nil {
		log.Printf("mark_read failed: message=%s err=%v", m.ID, err)
	}
	if body == "" {
		return
	}
	err := s.Platform.ReplyToMessage(ctx, m.ID, body)
	switch {
	case err == nil:
		return
	case errors.Is(err, platform.ErrForbidden), errors.Is(err, platform.ErrNotFound):
		log.Printf("skipping reply: message=%s err=%v", m.ID, err)
	default:
		log.Printf("reply failed: message=%s err=%v", m.ID, err)
	}
}

func (s *Service) notifyStatus(ctx context.Context, line string) {
	log.Print(line)
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Status(ctx, line); err != nil {
		log.Printf("status notify failed: %v", err)
	}
}
