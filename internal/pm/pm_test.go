package pm

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/flair-helper/flairhelper/internal/flairconfig"
	"github.com/flair-helper/flairhelper/internal/platform"
)

type stubNotifier struct {
	lines []string
}

func (s *stubNotifier) Status(_ context.Context, line string) error {
	s.lines = append(s.lines, line)
	return nil
}

func TestProcessOnceListRepliesWithModOnlyFlairs(t *testing.T) {
	fake := platform.NewFake("flairhelperbot")
	fake.SetModeratorPermissions("testsub", "flairhelperbot", []string{"all"})
	fake.SetFlairTemplates("testsub", []platform.FlairTemplate{
		{ID: "abc-1", Text: "Approved", ModOnly: true},
		{ID: "abc-2", Text: "Public Flair", ModOnly: false},
	})
	fake.SetInbox([]platform.PrivateMessage{
		{ID: "m1", From: "amod", Subject: "list testsub"},
	})

	svc := New(fake, false, nil)
	if err := svc.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}

	if !fake.MarkedRead["m1"] {
		t.Fatalf("expected message to be marked read")
	}
	reply, ok := fake.RepliedTo["m1"]
	if !ok {
		t.Fatalf("expected a reply to m1")
	}
	if !strings.Contains(reply, "Approved: abc-1") {
		t.Fatalf("reply = %q, want it to list the mod-only template", reply)
	}
	if strings.Contains(reply, "abc-2") {
		t.Fatalf("reply = %q, should not list the non-mod-only template", reply)
	}
}

func TestProcessOnceListRejectsNonModerator(t *testing.T) {
	fake := platform.NewFake("flairhelperbot")
	fake.SetFlairTemplates("testsub", []platform.FlairTemplate{
		{ID: "abc-1", Text: "Approved", ModOnly: true},
	})
	fake.SetInbox([]platform.PrivateMessage{
		{ID: "m1", From: "amod", Subject: "list testsub"},
	})

	svc := New(fake, false, nil)
	if err := svc.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}

	reply := fake.RepliedTo["m1"]
	if !strings.Contains(reply, "not a moderator") {
		t.Fatalf("reply = %q, want a not-a-moderator message", reply)
	}
}

func TestProcessOnceAutoRepliesWithStarterConfig(t *testing.T) {
	fake := platform.NewFake("flairhelperbot")
	fake.SetModeratorPermissions("testsub", "flairhelperbot", []string{"all"})
	fake.SetFlairTemplates("testsub", []platform.FlairTemplate{
		{ID: "abc-1", Text: "Approved", ModOnly: true},
		{ID: "abc-2", Text: "Removed", ModOnly: true},
	})
	fake.SetInbox([]platform.PrivateMessage{
		{ID: "m1", From: "amod", Subject: "auto testsub"},
	})

	svc := New(fake, false, nil)
	if err := svc.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}

	reply := fake.RepliedTo["m1"]
	cfg, err := flairconfig.UnmarshalCanonical([]byte(reply))
	if err != nil {
		t.Fatalf("reply is not a valid canonical config: %v\nreply: %s", err, reply)
	}
	if len(cfg.Rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(cfg.Rules))
	}
	for id, rule := range cfg.Rules {
		if rule.Approve || rule.Remove || rule.Ban.Enabled || rule.Comment.Enabled {
			t.Fatalf("starter rule %s has a toggle enabled, want all defaulted off: %+v", id, rule)
		}
	}
}

func TestProcessOnceAutoTruncatesToFitMessageLimit(t *testing.T) {
	fake := platform.NewFake("flairhelperbot")
	fake.SetModeratorPermissions("bigsub", "flairhelperbot", []string{"all"})

	var templates []platform.FlairTemplate
	for i := 0; i < 400; i++ {
		templates = append(templates, platform.FlairTemplate{
			ID:      strings.Repeat("x", 20) + string(rune('a'+i%26)) + string(rune(i)),
			Text:    "Some Flair Template",
			ModOnly: true,
		})
	}
	fake.SetFlairTemplates("bigsub", templates)
	fake.SetInbox([]platform.PrivateMessage{
		{ID: "m1", From: "amod", Subject: "auto bigsub"},
	})

	svc := New(fake, false, nil)
	if err := svc.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}

	reply := fake.RepliedTo["m1"]
	if len(reply) > MaxMessageLength {
		t.Fatalf("reply length = %d, want <= %d", len(reply), MaxMessageLength)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(reply), &raw); err != nil {
		t.Fatalf("truncated reply is not valid JSON: %v", err)
	}
	if len(raw) >= 401 {
		t.Fatalf("expected fewer than 400 rules to survive truncation, got %d elements", len(raw)-1)
	}
}

func TestProcessOnceUnknownSubjectGetsUsageLine(t *testing.T) {
	fake := platform.NewFake("flairhelperbot")
	fake.SetInbox([]platform.PrivateMessage{
		{ID: "m1", From: "amod", Subject: "hello there"},
	})

	svc := New(fake, false, nil)
	if err := svc.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if fake.RepliedTo["m1"] != usageLine {
		t.Fatalf("reply = %q, want usage line", fake.RepliedTo["m1"])
	}
}

func TestProcessOnceAcceptsModInviteWhenAutoAcceptEnabled(t *testing.T) {
	fake := platform.NewFake("flairhelperbot")
	fake.SetInbox([]platform.PrivateMessage{
		{ID: "m1", From: "reddit", Subject: "invitation to moderate /r/testsub", IsModInvite: true, Subreddit: "testsub"},
	})
	notif := &stubNotifier{}

	svc := New(fake, true, notif)
	if err := svc.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}

	if len(fake.AcceptedInvites) != 1 || fake.AcceptedInvites[0] != "testsub" {
		t.Fatalf("AcceptedInvites = %v, want [testsub]", fake.AcceptedInvites)
	}
	if !fake.MarkedRead["m1"] {
		t.Fatalf("expected mod invitation message to be marked read")
	}
	if _, replied := fake.RepliedTo["m1"]; replied {
		t.Fatalf("mod invitation should not get a direct reply")
	}
	if len(notif.lines) != 1 {
		t.Fatalf("expected one status line, got %v", notif.lines)
	}
}

func TestProcessOnceReportsModInviteOutOfBandWhenAutoAcceptDisabled(t *testing.T) {
	fake := platform.NewFake("flairhelperbot")
	fake.SetInbox([]platform.PrivateMessage{
		{ID: "m1", From: "reddit", Subject: "invitation to moderate /r/testsub", IsModInvite: true, Subreddit: "testsub"},
	})
	notif := &stubNotifier{}

	svc := New(fake, false, notif)
	if err := svc.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}

	if len(fake.AcceptedInvites) != 0 {
		t.Fatalf("expected no invites accepted, got %v", fake.AcceptedInvites)
	}
	if !fake.MarkedRead["m1"] {
		t.Fatalf("expected mod invitation message to be marked read")
	}
	if len(notif.lines) != 1 || !strings.Contains(notif.lines[0], "auto-accept is disabled") {
		t.Fatalf("notif.lines = %v, want one auto-accept-disabled status line", notif.lines)
	}
}
