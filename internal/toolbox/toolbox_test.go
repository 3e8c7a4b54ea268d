package toolbox

import (
	"context"
	"sync"
	"testing"

	"github.com/flair-helper/flairhelper/internal/platform"
	"github.com/flair-helper/flairhelper/pkg/constants"
)

func TestAppendThenReadHistoryRoundTrips(t *testing.T) {
	fake := platform.NewFake("flairhelperbot")
	svc := New(fake)
	ctx := context.Background()

	if err := svc.Append(ctx, "testsub", "alice", "FH-Ban-7", "p1", "amod", "flair_helper_note"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	tags, err := svc.ReadHistory(ctx, "testsub", "alice")
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(tags) != 1 || tags[0] != "FH-Ban-7" {
		t.Fatalf("ReadHistory = %v, want [FH-Ban-7]", tags)
	}
}

func TestReadHistoryIgnoresNonBanNotes(t *testing.T) {
	fake := platform.NewFake("flairhelperbot")
	svc := New(fake)
	ctx := context.Background()

	if err := svc.Append(ctx, "testsub", "alice", "please follow the rules", "p1", "amod", "flair_helper_note"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := svc.Append(ctx, "testsub", "alice", "FH-Ban-permanent", "p2", "amod", "flair_helper_note"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	tags, err := svc.ReadHistory(ctx, "testsub", "alice")
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(tags) != 1 || tags[0] != "FH-Ban-permanent" {
		t.Fatalf("ReadHistory = %v, want only the ban-tagged note", tags)
	}
}

func TestReadHistoryOnAbsentPageIsEmpty(t *testing.T) {
	fake := platform.NewFake("flairhelperbot")
	svc := New(fake)

	tags, err := svc.ReadHistory(context.Background(), "nosuchsub", "alice")
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(tags) != 0 {
		t.Fatalf("expected no history for an absent notes page, got %v", tags)
	}
}

func TestAppendPreservesExistingNotesAcrossUsers(t *testing.T) {
	fake := platform.NewFake("flairhelperbot")
	svc := New(fake)
	ctx := context.Background()

	if err := svc.Append(ctx, "testsub", "alice", "FH-Ban-1", "p1", "amod", "flair_helper_note"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := svc.Append(ctx, "testsub", "bob", "FH-Ban-3", "p2", "amod", "flair_helper_note"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	aliceTags, _ := svc.ReadHistory(ctx, "testsub", "alice")
	bobTags, _ := svc.ReadHistory(ctx, "testsub", "bob")
	if len(aliceTags) != 1 || aliceTags[0] != "FH-Ban-1" {
		t.Fatalf("alice tags = %v", aliceTags)
	}
	if len(bobTags) != 1 || bobTags[0] != "FH-Ban-3" {
		t.Fatalf("bob tags = %v", bobTags)
	}
}

func TestAppendWireFormatIsBitExact(t *testing.T) {
	fake := platform.NewFake("flairhelperbot")
	svc := New(fake)
	ctx := context.Background()

	if err := svc.Append(ctx, "testsub", "alice", "FH-Ban-7", "p1", "amod", "flair_helper_note"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	content, _, err := fake.WikiPage(ctx, "testsub", constants.ToolboxNotesWikiPageName)
	if err != nil {
		t.Fatalf("WikiPage: %v", err)
	}

	doc, notes, err := svc.load(ctx, "testsub")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(doc.Constants.Users) != 1 || doc.Constants.Users[0] != "amod" {
		t.Fatalf("constants.users = %v", doc.Constants.Users)
	}
	if len(doc.Constants.Warnings) != 1 || doc.Constants.Warnings[0] != "flair_helper_note" {
		t.Fatalf("constants.warnings = %v", doc.Constants.Warnings)
	}
	un := notes["alice"]
	if len(un.NS) != 1 || un.NS[0].Text != "[FH] FH-Ban-7" || un.NS[0].Link != "l,p1" {
		t.Fatalf("decoded note = %+v", un.NS)
	}
	if content == "" {
		t.Fatal("expected non-empty wiki page content")
	}
}

func TestAppendIsSerializedPerCommunity(t *testing.T) {
	fake := platform.NewFake("flairhelperbot")
	svc := New(fake)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = svc.Append(ctx, "testsub", "alice", "FH-Ban-1", "p1", "amod", "flair_helper_note")
		}(i)
	}
	wg.Wait()

	tags, err := svc.ReadHistory(ctx, "testsub", "alice")
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(tags) != 10 {
		t.Fatalf("expected 10 serialized appends to survive, got %d", len(tags))
	}
}
