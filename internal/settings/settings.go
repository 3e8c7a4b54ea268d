// Package settings holds the small top-level operational configuration
// loaded once at startup: debug verbosity, console coloring, the
// auto-accept-mod-invites toggle, optional chat-bot notification
// credentials, the operator webhook, and storage/log locations. Domain
// configuration (per-community flair rules) lives in flairconfig instead.
package settings

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// ChatNotifications configures the optional external status channel (e.g.
// a Discord bot) C8 forwards plaintext status lines and failure events to,
// in addition to the operator webhook.
type ChatNotifications struct {
	Enabled           bool     `yaml:"enabled"`
	BotToken          string   `yaml:"bot_token"`
	WebhookURL        string   `yaml:"webhook_url"`
	AllowedChannelIDs []string `yaml:"allowed_channel_ids"`
}

// Settings is the operational configuration surface, distinct from any
// single community's flair rules.
type Settings struct {
	// BotUsername identifies the account the platform client authenticates
	// as; it is handed to the platform client, which reports it back through
	// Client.BotUsername.
	BotUsername string `yaml:"bot_username"`

	// IgnoreMods lists moderator usernames whose editflair entries the
	// classifier never acts on, e.g. other bots known to reflair posts.
	IgnoreMods []string `yaml:"ignore_mods"`

	DebugMode     bool `yaml:"debug_mode"`
	VerboseMode   bool `yaml:"verbose_mode"`
	ColoredOutput bool `yaml:"colored_output"`

	AutoAcceptModInvites bool `yaml:"auto_accept_mod_invites"`

	// SendPMOnWikiConfigUpdate is loaded from the settings file, but no
	// component reads it: an applied config never PMs the editor, whatever
	// its value.
	SendPMOnWikiConfigUpdate bool `yaml:"send_pm_on_wiki_config_update"`

	// AllowBanAndNuke gates the ban and nuke action kinds globally; a
	// community config may request them, but the processor skips them
	// unless the operator has opted the deployment in.
	AllowBanAndNuke bool `yaml:"allow_ban_and_nuke"`

	WebhookURL string `yaml:"webhook_url"`

	// OperatorUsername, when set, is PM'd a job-failure report once a
	// submission exhausts its processing retry budget.
	OperatorUsername string `yaml:"operator_username"`

	Chat ChatNotifications `yaml:"chat"`

	// LocalOverrideDir, when set, runs a local config-watch task alongside
	// the wiki ingestor: every <community>.json/.yml file under it is
	// applied to the config store directly, for development and testing
	// without a live wiki connection.
	LocalOverrideDir string `yaml:"local_override_dir"`

	// DataDir holds the SQLite-backed config and action stores.
	DataDir string `yaml:"data_dir"`
	// LogsDir holds rotated log output, when file logging is enabled.
	LogsDir string `yaml:"logs_dir"`

	// MaxConcurrentSubmissions bounds the action processor's per-tick
	// goroutine pool; zero defers to the processor's own default.
	MaxConcurrentSubmissions int `yaml:"max_concurrent_submissions"`
	// MaxProcessingRetries bounds per-job retry attempts before the
	// processor gives up and reports the job as failed; zero defers to
	// the processor's own default.
	MaxProcessingRetries int `yaml:"max_processing_retries"`
}

// Default returns the zero-value-safe baseline: everything off except the
// paths, which default to ./data and ./logs.
func Default() Settings {
	return Settings{
		DataDir: "./data",
		LogsDir: "./logs",
	}
}

// Load reads and parses a YAML settings file at path. A missing file is
// not an error: it returns Default().
func Load(path string) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return Settings{}, fmt.Errorf("read settings file %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings file %q: %w", path, err)
	}
	return s, nil
}

// Validate reports the first structural problem found, if any.
func (s Settings) Validate() error {
	if s.BotUsername == "" {
		return fmt.Errorf("bot_username is required")
	}
	if s.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if s.Chat.Enabled && s.Chat.WebhookURL == "" && s.Chat.BotToken == "" {
		return fmt.Errorf("chat.enabled requires either chat.webhook_url or chat.bot_token")
	}
	return nil
}
