// Package toolbox implements the Toolbox Notes collaborator (C9): a
// bit-exact reader/writer of the Toolbox moderator-notes wiki format,
// compatible with the note-taking extension most communities already use.
// Notes are stored compressed: a top-level JSON document carries a
// "constants" side table of mod usernames and warning categories, plus a
// "blob" field holding base64(zlib(JSON(...))) of the actual per-user note
// lists. Every read-modify-write against one community's page is serialized
// by a per-community lock, since the wiki page itself has no server-side
// merge.
package toolbox

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/flair-helper/flairhelper/internal/platform"
	"github.com/flair-helper/flairhelper/pkg/constants"
	"github.com/flair-helper/flairhelper/pkg/logger"
)

var log = logger.New("toolbox")

// banTagPrefix is the note-text prefix a ban-escalation history note always
// carries, e.g. "[FH] FH-Ban-7" or "[FH] FH-Ban-permanent".
const (
	notePrefix   = "[FH] "
	banTagPrefix = "FH-Ban-"
)

// note is one entry in a user's "ns" list.
type note struct {
	Text      string `json:"n"`
	CreatedAt int64  `json:"t"`
	ModIndex  int    `json:"m"`
	Link      string `json:"l"`
	WarnIndex int    `json:"w"`
}

type userNotes struct {
	NS []note `json:"ns"`
}

type constantsTable struct {
	Users    []string `json:"users"`
	Warnings []string `json:"warnings"`
}

type wireDoc struct {
	Constants constantsTable `json:"constants"`
	Blob      string         `json:"blob"`
}

// Service reads and writes the toolbox-notes wiki page for each moderated
// community.
type Service struct {
	Platform platform.Client

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New constructs a Service.
func New(client platform.Client) *Service {
	return &Service{Platform: client, locks: make(map[string]*sync.Mutex)}
}

func (s *Service) lockFor(community string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[community]
	if !ok {
		l = &sync.Mutex{}
		s.locks[community] = l
	}
	return l
}

// ReadHistory returns the ban tags (e.g. "FH-Ban-7", "FH-Ban-permanent")
// recorded against user in community, oldest first, used to resolve the
// next step of an escalating ban.
func (s *Service) ReadHistory(ctx context.Context, community, user string) ([]string, error) {
	l := s.lockFor(community)
	l.Lock()
	defer l.Unlock()

	_, notes, err := s.load(ctx, community)
	if err != nil {
		return nil, err
	}

	var tags []string
	for _, n := range notes[user].NS {
		if tag, ok := strings.CutPrefix(n.Text, notePrefix); ok {
			if strings.HasPrefix(tag, banTagPrefix) {
				tags = append(tags, tag)
			}
		}
	}
	return tags, nil
}

// Append adds one note to user's history in community. text is the bare
// note body; the "[FH] " prefix is applied here, matching every note this
// engine ever writes. link is typically a submission id, rendered into the
// "l,<id>" shorthand.
func (s *Service) Append(ctx context.Context, community, user, text, link, mod, category string) error {
	l := s.lockFor(community)
	l.Lock()
	defer l.Unlock()

	doc, notes, err := s.load(ctx, community)
	if err != nil {
		return err
	}

	modIndex := indexOf(&doc.Constants.Users, mod)
	warnIndex := indexOf(&doc.Constants.Warnings, category)

	un := notes[user]
	un.NS = append(un.NS, note{
		Text:      notePrefix + text,
		CreatedAt: time.Now().Unix(),
		ModIndex:  modIndex,
		Link:      "l," + link,
		WarnIndex: warnIndex,
	})
	notes[user] = un

	return s.save(ctx, community, doc, notes, user)
}

func (s *Service) load(ctx context.Context, community string) (*wireDoc, map[string]userNotes, error) {
	content, _, err := s.Platform.WikiPage(ctx, community, constants.ToolboxNotesWikiPageName)
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return &wireDoc{}, make(map[string]userNotes), nil
		}
		return nil, nil, fmt.Errorf("fetch toolbox notes page: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return &wireDoc{}, make(map[string]userNotes), nil
	}

	var doc wireDoc
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		log.Printf("toolbox notes page for %s is not valid JSON, starting fresh: %v", community, err)
		return &wireDoc{}, make(map[string]userNotes), nil
	}

	notes, err := decompressBlob(doc.Blob)
	if err != nil {
		log.Printf("toolbox notes blob for %s failed to decompress, starting fresh: %v", community, err)
		notes = make(map[string]userNotes)
	}
	return &doc, notes, nil
}

func (s *Service) save(ctx context.Context, community string, doc *wireDoc, notes map[string]userNotes, user string) error {
	blob, err := compressBlob(notes)
	if err != nil {
		return fmt.Errorf("compress toolbox notes blob: %w", err)
	}
	doc.Blob = blob

	out, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal toolbox notes document: %w", err)
	}

	reason := fmt.Sprintf("note added on user %s via flairhelper", user)
	if err := s.Platform.EditWikiPage(ctx, community, constants.ToolboxNotesWikiPageName, string(out), reason); err != nil {
		return fmt.Errorf("write toolbox notes page: %w", err)
	}
	return nil
}

func decompressBlob(blob string) (map[string]userNotes, error) {
	if blob == "" {
		return make(map[string]userNotes), nil
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("base64-decode blob: %w", err)
	}
	r, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("zlib-decompress blob: %w", err)
	}
	defer r.Close()
	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read decompressed blob: %w", err)
	}

	notes := make(map[string]userNotes)
	if err := json.Unmarshal(decompressed, &notes); err != nil {
		return nil, fmt.Errorf("parse decompressed blob: %w", err)
	}
	return notes, nil
}

func compressBlob(notes map[string]userNotes) (string, error) {
	raw, err := json.Marshal(notes)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// indexOf returns the index of value in *table, appending it first if
// absent.
func indexOf(table *[]string, value string) int {
	for i, v := range *table {
		if v == value {
			return i
		}
	}
	*table = append(*table, value)
	return len(*table) - 1
}
