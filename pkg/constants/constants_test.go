package constants

import "testing"

func TestAllActionKindsNonEmpty(t *testing.T) {
	if len(AllActionKinds) == 0 {
		t.Fatal("AllActionKinds should not be empty")
	}
}

func TestAllActionKindsUnique(t *testing.T) {
	seen := make(map[ActionKind]bool, len(AllActionKinds))
	for _, k := range AllActionKinds {
		if seen[k] {
			t.Errorf("duplicate action kind %q", k)
		}
		seen[k] = true
	}
}

func TestWikiPageNames(t *testing.T) {
	if ConfigWikiPageName != "flair_helper" {
		t.Errorf("ConfigWikiPageName = %q, want %q", ConfigWikiPageName, "flair_helper")
	}
	if ToolboxNotesWikiPageName != "usernotes" {
		t.Errorf("ToolboxNotesWikiPageName = %q, want %q", ToolboxNotesWikiPageName, "usernotes")
	}
}

func TestDefaultIgnoreSameFlairSeconds(t *testing.T) {
	if DefaultIgnoreSameFlairSeconds != 60 {
		t.Errorf("DefaultIgnoreSameFlairSeconds = %d, want 60", DefaultIgnoreSameFlairSeconds)
	}
}

func TestDefaultMaxAgeForCommentDays(t *testing.T) {
	if DefaultMaxAgeForCommentDays != 175 {
		t.Errorf("DefaultMaxAgeForCommentDays = %d, want 175", DefaultMaxAgeForCommentDays)
	}
}
