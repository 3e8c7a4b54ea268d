package placeholder

import (
	"strings"
	"testing"
	"time"
)

func TestExpandKnownTokens(t *testing.T) {
	v := Values{
		Author:    "someuser",
		Subreddit: "testsub",
		Title:     "hello world",
		Now:       time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
	}
	got := Expand("Hi {{author}} from r/{{subreddit}}: {{title}}", v)
	want := "Hi someuser from r/testsub: hello world"
	if got != want {
		t.Errorf("Expand() = %q, want %q", got, want)
	}
}

func TestExpandUnknownTokenPassesThrough(t *testing.T) {
	got := Expand("value is {{not_a_real_token}}", Values{})
	if got != "value is {{not_a_real_token}}" {
		t.Errorf("unexpected expansion: %q", got)
	}
}

func TestExpandDoesNotConsumeAcrossUnknownToken(t *testing.T) {
	v := Values{Author: "a"}
	got := Expand("{{unknown}} then {{author}}", v)
	if got != "{{unknown}} then a" {
		t.Errorf("Expand() = %q", got)
	}
}

func TestExpandBanPlaceholdersOnlyWhenSet(t *testing.T) {
	without := Expand("{{ban_duration}}", Values{})
	if without != "{{ban_duration}}" {
		t.Errorf("expected ban placeholder to pass through when unset, got %q", without)
	}

	withDays := Expand("{{ban_duration}} ({{ban_duration_number}})", Values{
		BanSet: true, BanDurationDays: 7,
	})
	if withDays != "banned for 7 days (7)" {
		t.Errorf("Expand() = %q", withDays)
	}

	permanent := Expand("{{ban_duration}} ({{ban_duration_number}})", Values{
		BanSet: true, BanPermanent: true,
	})
	if permanent != "permanently banned (permanent)" {
		t.Errorf("Expand() = %q", permanent)
	}

	oneDay := Expand("{{ban_duration}}", Values{BanSet: true, BanDurationDays: 1})
	if oneDay != "banned for 1 day" {
		t.Errorf("Expand() = %q, want singular form", oneDay)
	}
}

func TestExpandTimeTokensRespectUTCOffset(t *testing.T) {
	v := Values{
		Now:       time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		UTCOffset: -5,
	}
	got := Expand("{{time_iso}}", v)
	if !strings.Contains(got, "2026-05-31") {
		t.Errorf("Expand() with negative offset = %q, expected prior-day date", got)
	}
}

func TestExpandHonorsCustomTimeFormat(t *testing.T) {
	v := Values{
		Now:        time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		TimeFormat: "2006/01/02",
	}
	got := Expand("{{time_custom}}", v)
	if got != "2026/03/04" {
		t.Errorf("Expand() = %q, want 2026/03/04", got)
	}
}

func TestHumanBanDuration(t *testing.T) {
	cases := []struct {
		days      int
		permanent bool
		want      string
	}{
		{0, true, "permanently banned"},
		{1, false, "banned for 1 day"},
		{14, false, "banned for 14 days"},
	}
	for _, tt := range cases {
		if got := HumanBanDuration(tt.days, tt.permanent); got != tt.want {
			t.Errorf("HumanBanDuration(%d, %v) = %q, want %q", tt.days, tt.permanent, got, tt.want)
		}
	}
}
