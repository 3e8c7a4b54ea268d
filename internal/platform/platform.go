// Package platform defines the capability the rest of flairhelper uses to
// talk to the forum platform. The concrete client (authentication, token
// refresh, rate-limit header parsing) is an external collaborator outside
// this module's scope; callers receive a Client through the supervisor and
// never construct one themselves.
package platform

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors every Client implementation translates platform-specific
// failures into, so callers can branch with errors.Is instead of inspecting
// provider-specific status codes.
var (
	// ErrNotFound means the targeted submission, comment, or author no
	// longer exists.
	ErrNotFound = errors.New("platform: resource not found")
	// ErrForbidden means the bot lacks permission for the operation.
	ErrForbidden = errors.New("platform: forbidden")
	// ErrRateLimited carries a RetryAfter duration the caller should sleep
	// before retrying, parsed from the platform's rate-limit response.
	ErrRateLimited = errors.New("platform: rate limited")
	// ErrTransient covers 5xx responses and request timeouts.
	ErrTransient = errors.New("platform: transient upstream error")
)

// RateLimitError wraps ErrRateLimited with the server-reported cooldown.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return "platform: rate limited, retry after " + e.RetryAfter.String()
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// Submission is the subset of a post's state the action engine reasons
// about.
type Submission struct {
	ID                   string
	Subreddit            string
	Author               string
	AuthorID             string
	Title                string
	Body                 string
	Permalink            string
	URL                  string
	Domain               string
	CreatedUTC           time.Time
	Removed              bool
	Locked               bool
	Spoilered            bool
	AuthorFlairText      string
	AuthorFlairCSSClass  string
	AuthorFlairTemplateID string
	LinkFlairText        string
	LinkFlairCSSClass    string
	LinkFlairTemplateID  string
}

// ModLogEntry is one unified mod-log record across every moderated
// community.
type ModLogEntry struct {
	ID          string
	Subreddit   string
	Action      string // e.g. "editflair", "wiki-revise"
	Mod         string
	TargetID    string // fullname, e.g. "t3_abc123"
	Details     string
	CreatedUTC  time.Time
}

// PrivateMessage is one inbox entry the PM handler reacts to.
type PrivateMessage struct {
	ID         string
	From       string
	Subject    string
	Body       string
	IsModInvite bool
	Subreddit  string // set when IsModInvite
}

// Comment is one direct reply on a submission, the subset nukeUserComments
// reasons about.
type Comment struct {
	ID            string
	Author        string
	Removed       bool
	Distinguished bool // true for a moderator's own comment; never swept
}

// FlairTemplate is one moderator-assignable category a community exposes.
type FlairTemplate struct {
	ID        string
	Text      string
	ModOnly   bool
}

// RemovalMessageKind mirrors flairconfig.RemovalCommentType at the
// platform-call boundary, avoiding an import cycle.
type RemovalMessageKind string

// Client is the platform capability surface the domain components depend
// on. A concrete implementation (not part of this module) handles auth,
// retries at the transport layer, and translates provider errors into the
// sentinel errors above.
type Client interface {
	// BotUsername returns the identity the bot operates as, used by the
	// ingestor to exempt the bot's own wiki edits from the editor
	// permission check and by the PM handler to look up the bot's
	// moderator permissions.
	BotUsername() string

	WikiPage(ctx context.Context, subreddit, page string) (content string, lastEditor string, err error)
	EditWikiPage(ctx context.Context, subreddit, page, content, editReason string) error

	// ModeratorPermissions returns the permission keys (e.g. "config",
	// "all") username holds in subreddit, used to gate wiki edits when a
	// community requires config-permission to change its settings.
	ModeratorPermissions(ctx context.Context, subreddit, username string) ([]string, error)

	ModLogStream(ctx context.Context) (<-chan ModLogEntry, error)

	Submission(ctx context.Context, id string) (*Submission, error)
	CurrentFlairTemplateID(ctx context.Context, submissionID string) (string, error)
	FlairTemplates(ctx context.Context, subreddit string) ([]FlairTemplate, error)

	Approve(ctx context.Context, submissionID string) error
	Remove(ctx context.Context, submissionID string, spam bool, modNote string) error
	Lock(ctx context.Context, submissionID string) error
	Unlock(ctx context.Context, submissionID string) error
	Spoiler(ctx context.Context, submissionID string) error
	Unspoiler(ctx context.Context, submissionID string) error
	ClearPostFlair(ctx context.Context, submissionID string) error
	SetPostFlair(ctx context.Context, submissionID, templateID, text, cssClass string) error
	SetAuthorFlair(ctx context.Context, subreddit, author, templateID, text, cssClass string) error

	Comment(ctx context.Context, submissionID, body string, sticky, lock, distinguish bool) error
	SendRemovalMessage(ctx context.Context, submissionID string, kind RemovalMessageKind, body string) error

	// CreateModNote attaches a standalone mod-log note to submissionID,
	// independent of a remove (used when modlogReason is set but remove is
	// not enabled on the rule).
	CreateModNote(ctx context.Context, submissionID, note string) error

	Ban(ctx context.Context, subreddit, author string, days int, permanent bool, message, modNote string) error
	Unban(ctx context.Context, subreddit, author string) error

	AddContributor(ctx context.Context, subreddit, author string) error
	RemoveContributor(ctx context.Context, subreddit, author string) error

	IsAuthorSuspended(ctx context.Context, author string) (bool, error)
	RecentComments(ctx context.Context, author, subreddit string, limit int) ([]string, error)
	RecentSubmissions(ctx context.Context, author, subreddit string, limit int) ([]string, error)
	RemoveComment(ctx context.Context, commentID string) error

	// SubmissionComments lists submissionID's direct comments, used by
	// nukeUserComments to sweep everything but the moderators' own replies.
	SubmissionComments(ctx context.Context, submissionID string) ([]Comment, error)

	Inbox(ctx context.Context) ([]PrivateMessage, error)
	MarkRead(ctx context.Context, messageID string) error
	ReplyToMessage(ctx context.Context, messageID, body string) error
	SendPrivateMessage(ctx context.Context, to, subject, body string) error
	AcceptModInvite(ctx context.Context, subreddit string) error

	SendWebhook(ctx context.Context, url string, payload []byte) error
}
