// Package constants holds fixed vocabulary shared across flairhelper's
// packages: wiki page names, action kinds, and operational defaults.
package constants

import "time"

// CLIExtensionPrefix is the prefix used in user-facing output to refer to the CLI.
const CLIExtensionPrefix = "flairhelper"

// ConfigWikiPageName is the wiki page a moderated community's flair-action
// configuration lives on.
const ConfigWikiPageName = "flair_helper"

// ToolboxNotesWikiPageName is the wiki page toolbox-compatible mod notes
// are stored on, as a base64+zlib blob.
const ToolboxNotesWikiPageName = "usernotes"

// ActionKind enumerates the flair-triggered action verbs a community config
// can attach to a flair template.
type ActionKind string

const (
	ActionApprove          ActionKind = "approve"
	ActionRemove           ActionKind = "remove"
	ActionModLogReason     ActionKind = "modlog_reason"
	ActionLock             ActionKind = "lock"
	ActionSpoiler          ActionKind = "spoiler"
	ActionClearPostFlair   ActionKind = "clear_post_flair"
	ActionWebhook          ActionKind = "send_to_webhook"
	ActionComment          ActionKind = "comment"
	ActionBan              ActionKind = "ban"
	ActionUnban            ActionKind = "unban"
	ActionUserFlair        ActionKind = "user_flair"
	ActionUsernote         ActionKind = "usernote"
	ActionContributor      ActionKind = "contributor"
	ActionNuke             ActionKind = "nuke"
	ActionNukeUserComments ActionKind = "nuke_user_comments"
)

// AllActionKinds lists every action verb in the §4.5 processing order, used
// to validate action kinds on insert into the action store and to order a
// job's pending actions in the processor.
var AllActionKinds = []ActionKind{
	ActionApprove,
	ActionRemove,
	ActionModLogReason,
	ActionLock,
	ActionSpoiler,
	ActionClearPostFlair,
	ActionWebhook,
	ActionComment,
	ActionBan,
	ActionUnban,
	ActionUserFlair,
	ActionUsernote,
	ActionContributor,
	ActionNuke,
	ActionNukeUserComments,
}

// Operational defaults. The first two have a config-level override and are
// the values used when a community's config is silent; the last two are
// not referenced by any component.
const (
	// DefaultIgnoreSameFlairSeconds suppresses repeat processing of a
	// submission that already carries the flair it was just re-flaired to.
	DefaultIgnoreSameFlairSeconds = 60

	// DefaultMaxAgeForCommentDays bounds how old a submission may be before
	// the comment action is skipped (commenting on ancient threads is
	// usually a sign of a stale re-ingest, not a moderator's intent).
	DefaultMaxAgeForCommentDays = 175

	// DefaultBanDuration is a three-day ban length. The processor does not
	// use it: a ban action with an empty duration is a permanent ban.
	DefaultBanDuration = 3 * 24 * time.Hour

	// DefaultConsistencySweepInterval is an hourly interval. The run
	// command does not use it: its consistency sweep has its own cron
	// schedule.
	DefaultConsistencySweepInterval = time.Hour
)
