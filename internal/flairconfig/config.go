// Package flairconfig defines the statically-typed community configuration
// record that replaces the dynamic dict-of-dicts shape of the original
// automation: a single GeneralConfiguration plus a map of FlairRule keyed by
// flair template id.
package flairconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// RemovalCommentType is the kind of outbound message attached to a removal.
type RemovalCommentType string

const (
	RemovalPublic            RemovalCommentType = "public"
	RemovalPrivate           RemovalCommentType = "private"
	RemovalPrivateExposed    RemovalCommentType = "private_exposed"
	RemovalPublicAsSubreddit RemovalCommentType = "public_as_subreddit"
)

// GeneralConfiguration holds the community-wide settings that precede the
// per-flair rules in a config sequence.
type GeneralConfiguration struct {
	Header                 string              `json:"header,omitempty"`
	Footer                 string              `json:"footer,omitempty"`
	SkipAddNewlines        bool                `json:"skip_add_newlines,omitempty"`
	RequireConfigToEdit    bool                `json:"require_config_to_edit,omitempty"`
	IgnoreSameFlairSeconds int                 `json:"ignore_same_flair_seconds,omitempty"`
	RemovalCommentType     RemovalCommentType  `json:"removal_comment_type,omitempty"`
	UsernoteTypeName       string              `json:"usernote_type_name,omitempty"`
	UTCOffset              int                 `json:"utc_offset,omitempty"`
	CustomTimeFormat       string              `json:"custom_time_format,omitempty"`
	MaxAgeForComment       int                 `json:"maxAgeForComment,omitempty"`
	WebhookURL             string              `json:"webhook_url,omitempty"`
	WebhookFormat          string              `json:"webhook_format,omitempty"`
}

// EffectiveIgnoreSameFlairSeconds returns the configured dedupe window or the
// documented default when unset.
func (g GeneralConfiguration) EffectiveIgnoreSameFlairSeconds() int {
	if g.IgnoreSameFlairSeconds > 0 {
		return g.IgnoreSameFlairSeconds
	}
	return 60
}

// EffectiveMaxAgeForComment returns the configured comment-age cutoff in
// days or the documented default when unset.
func (g GeneralConfiguration) EffectiveMaxAgeForComment() int {
	if g.MaxAgeForComment > 0 {
		return g.MaxAgeForComment
	}
	return 175
}

// EffectiveRemovalCommentType defaults to public_as_subreddit, matching the
// documented fallback when a community never set the field.
func (g GeneralConfiguration) EffectiveRemovalCommentType() RemovalCommentType {
	if g.RemovalCommentType == "" {
		return RemovalPublicAsSubreddit
	}
	return g.RemovalCommentType
}

// CommentAction configures the comment/removal-message capability.
type CommentAction struct {
	Enabled       bool   `json:"enabled,omitempty"`
	Body          string `json:"body,omitempty"`
	LockComment   bool   `json:"lockComment,omitempty"`
	StickyComment bool   `json:"stickyComment,omitempty"`
	Distinguish   bool   `json:"distinguish,omitempty"`
	// HeaderFooter is accepted and round-tripped for document compatibility.
	// The general header/footer is applied to every composed comment or
	// removal message regardless of its value; legacy-converted documents
	// always set it true and nothing downstream branches on it.
	HeaderFooter bool `json:"headerFooter,omitempty"`
}

// UsernoteAction configures the Toolbox-note append capability.
type UsernoteAction struct {
	Enabled bool   `json:"enabled,omitempty"`
	Note    string `json:"note,omitempty"`
}

// ContributorOp is the operation a ContributorAction performs.
type ContributorOp string

const (
	ContributorAdd    ContributorOp = "add"
	ContributorRemove ContributorOp = "remove"
)

// ContributorAction configures approved-submitter list membership changes.
type ContributorAction struct {
	Enabled bool          `json:"enabled,omitempty"`
	Action  ContributorOp `json:"action,omitempty"`
}

// UserFlairAction configures the author-flair-assignment capability.
type UserFlairAction struct {
	Enabled    bool   `json:"enabled,omitempty"`
	Text       string `json:"text,omitempty"`
	CSSClass   string `json:"cssClass,omitempty"`
	TemplateID string `json:"templateId,omitempty"`
}

// BanDuration is the raw `duration` field of a ban action. The source
// accepts an empty string, the boolean true, a bare integer, or a
// comma-separated list of integers, all meaning different things (see
// BanDuration.Steps). It always round-trips to its canonical string form.
type BanDuration string

// UnmarshalJSON accepts string, bool, and number encodings, normalizing
// bool(true) and the empty string to the same canonical "permanent" marker.
func (d *BanDuration) UnmarshalJSON(data []byte) error {
	var asBool bool
	if err := json.Unmarshal(data, &asBool); err == nil {
		if asBool {
			*d = ""
		}
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*d = BanDuration(asString)
		return nil
	}

	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err != nil {
		return fmt.Errorf("duration must be a string, number, or bool: %w", err)
	}
	*d = BanDuration(asNumber.String())
	return nil
}

// BanAction configures the ban capability, including escalating-ban
// durations.
type BanAction struct {
	Enabled  bool        `json:"enabled,omitempty"`
	Duration BanDuration `json:"duration,omitempty"`
	Message  string      `json:"message,omitempty"`
	ModNote  string      `json:"modNote,omitempty"`
}

// NukeAction configures the heavyweight cross-community cleanup capability.
type NukeAction struct {
	Enabled              bool     `json:"enabled,omitempty"`
	BanFromAllListed     bool     `json:"banFromAllListed,omitempty"`
	RemoveAllComments    bool     `json:"removeAllComments,omitempty"`
	RemoveAllSubmissions bool     `json:"removeAllSubmissions,omitempty"`
	TargetSubreddits     []string `json:"targetSubreddits,omitempty"`
}

// FlairRule is the bundle of actions triggered when a post is assigned the
// flair template identified by TemplateID.
type FlairRule struct {
	TemplateID      string            `json:"templateId"`
	Approve         bool              `json:"approve,omitempty"`
	Remove          bool              `json:"remove,omitempty"`
	Lock            bool              `json:"lock,omitempty"`
	Spoiler         bool              `json:"spoiler,omitempty"`
	ClearPostFlair  bool              `json:"clearPostFlair,omitempty"`
	Unban           bool              `json:"unban,omitempty"`
	NukeUserComments bool             `json:"nukeUserComments,omitempty"`
	SendToWebhook   bool              `json:"sendToWebhook,omitempty"`
	ModLogReason    string            `json:"modlogReason,omitempty"`
	Comment         CommentAction     `json:"comment,omitempty"`
	Usernote        UsernoteAction    `json:"usernote,omitempty"`
	Contributor     ContributorAction `json:"contributor,omitempty"`
	UserFlair       UserFlairAction   `json:"userFlair,omitempty"`
	Ban             BanAction         `json:"ban,omitempty"`
	Nuke            NukeAction        `json:"nuke,omitempty"`
}

// Config is the full active configuration for one community: a
// GeneralConfiguration plus the map of FlairRule keyed by template id
// (invariant I1/I2 of the domain spec).
type Config struct {
	General GeneralConfiguration
	Rules   map[string]FlairRule
}

// Rule looks up a FlairRule by template id, returning ok=false when no rule
// is registered for it (classifier drops the event in that case).
func (c *Config) Rule(templateID string) (FlairRule, bool) {
	if c == nil || c.Rules == nil {
		return FlairRule{}, false
	}
	r, ok := c.Rules[templateID]
	return r, ok
}

// wireGeneral is the leading element of the on-wire JSON array shape:
// [ {"GeneralConfiguration": …}, {"templateId": …}, {"templateId": …}, … ].
type wireGeneral struct {
	GeneralConfiguration GeneralConfiguration `json:"GeneralConfiguration"`
}

// MarshalCanonical serializes a Config to the canonical JSON array form with
// stable key order, so byte-equality of two canonical serializations implies
// semantic equality (the diff used by the ingestor to skip no-op swaps).
func (c *Config) MarshalCanonical() ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("cannot marshal nil config")
	}

	ids := make([]string, 0, len(c.Rules))
	for id := range c.Rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var buf bytes.Buffer
	buf.WriteByte('[')

	generalJSON, err := json.Marshal(wireGeneral{GeneralConfiguration: c.General})
	if err != nil {
		return nil, fmt.Errorf("marshal general configuration: %w", err)
	}
	buf.Write(generalJSON)

	for _, id := range ids {
		buf.WriteByte(',')
		ruleJSON, err := json.Marshal(c.Rules[id])
		if err != nil {
			return nil, fmt.Errorf("marshal flair rule %q: %w", id, err)
		}
		buf.Write(ruleJSON)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalCanonical parses the on-wire JSON array form into a Config,
// enforcing invariant I1 (exactly one GeneralConfiguration, at index 0) and
// I2 (every rule carries a non-empty, unique templateId).
func UnmarshalCanonical(data []byte) (*Config, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config array: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("config array is empty, expected a leading GeneralConfiguration element")
	}

	var head map[string]json.RawMessage
	if err := json.Unmarshal(raw[0], &head); err != nil {
		return nil, fmt.Errorf("parse GeneralConfiguration: %w", err)
	}
	if _, ok := head["GeneralConfiguration"]; !ok {
		return nil, fmt.Errorf("config array element 0 is not a GeneralConfiguration")
	}

	var wg wireGeneral
	if err := json.Unmarshal(raw[0], &wg); err != nil {
		return nil, fmt.Errorf("parse GeneralConfiguration: %w", err)
	}

	cfg := &Config{
		General: wg.GeneralConfiguration,
		Rules:   make(map[string]FlairRule, len(raw)-1),
	}

	for i, elem := range raw[1:] {
		var rule FlairRule
		if err := json.Unmarshal(elem, &rule); err != nil {
			return nil, fmt.Errorf("parse flair rule at index %d: %w", i+1, err)
		}
		if rule.TemplateID == "" {
			return nil, fmt.Errorf("flair rule at index %d has no templateId", i+1)
		}
		if _, dup := cfg.Rules[rule.TemplateID]; dup {
			return nil, fmt.Errorf("duplicate templateId %q in config", rule.TemplateID)
		}
		cfg.Rules[rule.TemplateID] = rule
	}

	return cfg, nil
}

// Equal reports whether two configs are semantically identical, via
// canonical-JSON comparison (ignores map ordering, respects only the fields
// that survive JSON round-tripping).
func Equal(a, b *Config) (bool, error) {
	aJSON, err := a.MarshalCanonical()
	if err != nil {
		return false, err
	}
	bJSON, err := b.MarshalCanonical()
	if err != nil {
		return false, err
	}
	return bytes.Equal(aJSON, bJSON), nil
}
