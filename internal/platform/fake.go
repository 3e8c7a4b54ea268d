package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Fake is an in-memory Client used by the domain packages' tests. It is
// not concurrency-exotic: a single mutex guards all state, matching the
// "throughput is gated by the upstream API, not by storage" assumption the
// real system makes.
type Fake struct {
	mu sync.Mutex

	bot string

	wikiPages     map[string]map[string]string // subreddit -> page -> content
	wikiEditors   map[string]map[string]string // subreddit -> page -> last editor
	permissions   map[string]map[string][]string // subreddit -> username -> permission keys
	submissions   map[string]*Submission
	submissionComments map[string][]Comment // submission ID -> its direct comments
	removedComments map[string]bool
	flairTemplates map[string][]FlairTemplate
	suspended     map[string]bool
	modLog        chan ModLogEntry
	inbox         []PrivateMessage

	// Call logs, inspected by tests to assert side effects.
	Approved        []string
	Removed         []string
	Locked          []string
	Spoilered       []string
	ClearedFlair    []string
	Commented       []FakeComment
	RemovalMessages []FakeRemovalMessage
	Banned          []FakeBan
	Unbanned        []string
	ContributorAdds []string
	ContributorDels []string
	Webhooks        [][]byte
	RepliedTo       map[string]string
	MarkedRead      map[string]bool
	AcceptedInvites []string
	AuthorFlairSets []FakeAuthorFlair
	PostFlairSets   []FakePostFlair
	PrivateMessages []FakePrivateMessage
	ModNotes        []FakeModNote
}

type FakeModNote struct {
	SubmissionID string
	Note         string
}

type FakePrivateMessage struct {
	To      string
	Subject string
	Body    string
}

type FakeComment struct {
	SubmissionID string
	Body         string
	Sticky       bool
	Lock         bool
}

type FakeRemovalMessage struct {
	SubmissionID string
	Kind         RemovalMessageKind
	Body         string
}

type FakeBan struct {
	Subreddit string
	Author    string
	Days      int
	Permanent bool
	Message   string
	ModNote   string
}

type FakeAuthorFlair struct {
	Subreddit  string
	Author     string
	TemplateID string
	Text       string
	CSSClass   string
}

type FakePostFlair struct {
	SubmissionID string
	TemplateID   string
	Text         string
	CSSClass     string
}

// NewFake constructs an empty fake client for botUsername.
func NewFake(botUsername string) *Fake {
	return &Fake{
		bot:             botUsername,
		wikiPages:       make(map[string]map[string]string),
		wikiEditors:     make(map[string]map[string]string),
		permissions:     make(map[string]map[string][]string),
		submissions:     make(map[string]*Submission),
		submissionComments: make(map[string][]Comment),
		removedComments: make(map[string]bool),
		flairTemplates:  make(map[string][]FlairTemplate),
		suspended:       make(map[string]bool),
		modLog:          make(chan ModLogEntry, 256),
		RepliedTo:       make(map[string]string),
		MarkedRead:      make(map[string]bool),
	}
}

func (f *Fake) BotUsername() string { return f.bot }

// SetWikiPage seeds a community's wiki page content and last editor, for
// test setup.
func (f *Fake) SetWikiPage(subreddit, page, content, editor string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.wikiPages[subreddit] == nil {
		f.wikiPages[subreddit] = make(map[string]string)
		f.wikiEditors[subreddit] = make(map[string]string)
	}
	f.wikiPages[subreddit][page] = content
	f.wikiEditors[subreddit][page] = editor
}

func (f *Fake) WikiPage(_ context.Context, subreddit, page string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pages, ok := f.wikiPages[subreddit]
	if !ok {
		return "", "", fmt.Errorf("%w: r/%s has no wiki", ErrNotFound, subreddit)
	}
	content, ok := pages[page]
	if !ok {
		return "", "", fmt.Errorf("%w: r/%s/wiki/%s", ErrNotFound, subreddit, page)
	}
	return content, f.wikiEditors[subreddit][page], nil
}

// SetModeratorPermissions seeds username's permission keys in subreddit, for
// test setup.
func (f *Fake) SetModeratorPermissions(subreddit, username string, permissions []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.permissions[subreddit] == nil {
		f.permissions[subreddit] = make(map[string][]string)
	}
	f.permissions[subreddit][username] = permissions
}

func (f *Fake) ModeratorPermissions(_ context.Context, subreddit, username string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.permissions[subreddit][username], nil
}

func (f *Fake) EditWikiPage(_ context.Context, subreddit, page, content, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.wikiPages[subreddit] == nil {
		f.wikiPages[subreddit] = make(map[string]string)
		f.wikiEditors[subreddit] = make(map[string]string)
	}
	f.wikiPages[subreddit][page] = content
	f.wikiEditors[subreddit][page] = f.bot
	return nil
}

// SetSubmission seeds a submission's state, for test setup.
func (f *Fake) SetSubmission(s *Submission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.submissions[s.ID] = &cp
}

func (f *Fake) Submission(_ context.Context, id string) (*Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.submissions[id]
	if !ok {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, id)
	}
	cp := *s
	return &cp, nil
}

func (f *Fake) CurrentFlairTemplateID(_ context.Context, submissionID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.submissions[submissionID]
	if !ok {
		return "", fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}
	return s.LinkFlairTemplateID, nil
}

// SetFlairTemplates seeds a community's moderator-only flair template list.
func (f *Fake) SetFlairTemplates(subreddit string, templates []FlairTemplate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flairTemplates[subreddit] = templates
}

func (f *Fake) FlairTemplates(_ context.Context, subreddit string) ([]FlairTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FlairTemplate, len(f.flairTemplates[subreddit]))
	copy(out, f.flairTemplates[subreddit])
	return out, nil
}

func (f *Fake) Approve(_ context.Context, submissionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.submissions[submissionID]; ok {
		s.Removed = false
	}
	f.Approved = append(f.Approved, submissionID)
	return nil
}

func (f *Fake) Remove(_ context.Context, submissionID string, _ bool, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.submissions[submissionID]
	if !ok {
		return fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}
	s.Removed = true
	f.Removed = append(f.Removed, submissionID)
	return nil
}

func (f *Fake) Lock(_ context.Context, submissionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.submissions[submissionID]; ok {
		s.Locked = true
	}
	f.Locked = append(f.Locked, submissionID)
	return nil
}

func (f *Fake) Unlock(_ context.Context, submissionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.submissions[submissionID]; ok {
		s.Locked = false
	}
	return nil
}

func (f *Fake) Spoiler(_ context.Context, submissionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.submissions[submissionID]; ok {
		s.Spoilered = true
	}
	f.Spoilered = append(f.Spoilered, submissionID)
	return nil
}

func (f *Fake) Unspoiler(_ context.Context, submissionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.submissions[submissionID]; ok {
		s.Spoilered = false
	}
	return nil
}

func (f *Fake) ClearPostFlair(_ context.Context, submissionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.submissions[submissionID]; ok {
		s.LinkFlairTemplateID = ""
		s.LinkFlairText = ""
		s.LinkFlairCSSClass = ""
	}
	f.ClearedFlair = append(f.ClearedFlair, submissionID)
	return nil
}

func (f *Fake) SetPostFlair(_ context.Context, submissionID, templateID, text, cssClass string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.submissions[submissionID]; ok {
		s.LinkFlairTemplateID = templateID
		s.LinkFlairText = text
		s.LinkFlairCSSClass = cssClass
	}
	f.PostFlairSets = append(f.PostFlairSets, FakePostFlair{submissionID, templateID, text, cssClass})
	return nil
}

func (f *Fake) SetAuthorFlair(_ context.Context, subreddit, author, templateID, text, cssClass string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AuthorFlairSets = append(f.AuthorFlairSets, FakeAuthorFlair{subreddit, author, templateID, text, cssClass})
	return nil
}

func (f *Fake) Comment(_ context.Context, submissionID, body string, sticky, lock, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Commented = append(f.Commented, FakeComment{submissionID, body, sticky, lock})
	return nil
}

func (f *Fake) SendRemovalMessage(_ context.Context, submissionID string, kind RemovalMessageKind, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RemovalMessages = append(f.RemovalMessages, FakeRemovalMessage{submissionID, kind, body})
	return nil
}

func (f *Fake) CreateModNote(_ context.Context, submissionID, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ModNotes = append(f.ModNotes, FakeModNote{submissionID, note})
	return nil
}

func (f *Fake) Ban(_ context.Context, subreddit, author string, days int, permanent bool, message, modNote string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Banned = append(f.Banned, FakeBan{subreddit, author, days, permanent, message, modNote})
	return nil
}

func (f *Fake) Unban(_ context.Context, _, author string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Unbanned = append(f.Unbanned, author)
	return nil
}

func (f *Fake) AddContributor(_ context.Context, _, author string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ContributorAdds = append(f.ContributorAdds, author)
	return nil
}

func (f *Fake) RemoveContributor(_ context.Context, _, author string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ContributorDels = append(f.ContributorDels, author)
	return nil
}

// SetSuspended marks author as platform-suspended for IsAuthorSuspended.
func (f *Fake) SetSuspended(author string, suspended bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suspended[author] = suspended
}

func (f *Fake) IsAuthorSuspended(_ context.Context, author string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suspended[author], nil
}

func (f *Fake) RecentComments(_ context.Context, _, _ string, _ int) ([]string, error) {
	return nil, nil
}

func (f *Fake) RecentSubmissions(_ context.Context, _, _ string, _ int) ([]string, error) {
	return nil, nil
}

func (f *Fake) RemoveComment(_ context.Context, commentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removedComments[commentID] = true
	for subID, cs := range f.submissionComments {
		for i, c := range cs {
			if c.ID == commentID {
				cs[i].Removed = true
				f.submissionComments[subID] = cs
			}
		}
	}
	return nil
}

// SetSubmissionComments seeds submissionID's direct comments, for test setup.
func (f *Fake) SetSubmissionComments(submissionID string, comments []Comment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]Comment, len(comments))
	copy(cp, comments)
	f.submissionComments[submissionID] = cp
}

func (f *Fake) SubmissionComments(_ context.Context, submissionID string) ([]Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Comment, len(f.submissionComments[submissionID]))
	copy(out, f.submissionComments[submissionID])
	return out, nil
}

// Inject appends a mod-log entry to the stream ModLogStream's channel
// delivers.
func (f *Fake) Inject(entry ModLogEntry) {
	f.modLog <- entry
}

func (f *Fake) ModLogStream(ctx context.Context) (<-chan ModLogEntry, error) {
	return f.modLog, nil
}

// SetInbox seeds the PM inbox for test setup.
func (f *Fake) SetInbox(messages []PrivateMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbox = messages
}

func (f *Fake) Inbox(_ context.Context) ([]PrivateMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var unread []PrivateMessage
	for _, m := range f.inbox {
		if !f.MarkedRead[m.ID] {
			unread = append(unread, m)
		}
	}
	sort.Slice(unread, func(i, j int) bool { return unread[i].ID < unread[j].ID })
	return unread, nil
}

func (f *Fake) MarkRead(_ context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MarkedRead[messageID] = true
	return nil
}

func (f *Fake) ReplyToMessage(_ context.Context, messageID, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RepliedTo[messageID] = body
	return nil
}

func (f *Fake) SendPrivateMessage(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PrivateMessages = append(f.PrivateMessages, FakePrivateMessage{to, subject, body})
	return nil
}

func (f *Fake) AcceptModInvite(_ context.Context, subreddit string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AcceptedInvites = append(f.AcceptedInvites, subreddit)
	return nil
}

func (f *Fake) SendWebhook(_ context.Context, _ string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Webhooks = append(f.Webhooks, payload)
	return nil
}
