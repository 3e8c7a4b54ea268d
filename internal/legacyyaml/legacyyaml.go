// Package legacyyaml converts the first-generation YAML configuration
// format into the canonical flairconfig.Config record pair. The mapping is
// deterministic and, for every field the engine actually consumes,
// lossless: parse(serialize(Convert(doc))) reproduces the same config.
//
// The legacy format is not a trusted shortcut — its output still goes
// through the same canonicalization and schema validation as a
// hand-written JSON document.
package legacyyaml

import (
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/flair-helper/flairhelper/internal/flairconfig"
	"github.com/flair-helper/flairhelper/pkg/stringutil"
)

// Convert parses a legacy YAML document and projects it onto a Config.
func Convert(doc []byte) (*flairconfig.Config, error) {
	var root map[string]any
	if err := yaml.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("parse legacy yaml: %w", err)
	}

	cfg := &flairconfig.Config{
		General: generalFromRoot(root),
		Rules:   map[string]flairconfig.FlairRule{},
	}

	for _, guid := range collectGUIDs(root) {
		cfg.Rules[guid] = ruleForGUID(root, guid)
	}

	return cfg, nil
}

func generalFromRoot(root map[string]any) flairconfig.GeneralConfiguration {
	return flairconfig.GeneralConfiguration{
		Header:                 asString(root["header"]),
		Footer:                 asString(root["footer"]),
		SkipAddNewlines:        asBool(root["skip_add_newlines"]),
		RequireConfigToEdit:    asBool(root["require_config_to_edit"]),
		IgnoreSameFlairSeconds: asInt(root["ignore_same_flair_seconds"]),
		RemovalCommentType:     flairconfig.RemovalCommentType(asString(root["removal_comment_type"])),
		UsernoteTypeName:       asString(root["usernote_type_name"]),
		UTCOffset:              asInt(root["utc_offset"]),
		CustomTimeFormat:       asString(root["custom_time_format"]),
		MaxAgeForComment:       asInt(root["max_age_for_comment"]),
		WebhookURL:             asString(root["webhook_url"]),
		WebhookFormat:          asString(root["webhook_format"]),
	}
}

// guidMapKeys lists every legacy field that is itself a map keyed by flair
// template GUID. Any GUID appearing under any of these is a rule the
// converter must emit, even if every resulting field ends up false/empty.
var guidMapKeys = []string{
	"remove", "comment", "bans", "ban_message", "ban_note", "usernote",
	"set_author_flair_text", "set_author_flair_css_class", "set_author_flair_template_id",
	"add_contributor", "remove_contributor", "lock_post", "spoiler_post",
	"remove_link_flair", "send_to_webhook", "approve", "unbans", "flairs",
}

func collectGUIDs(root map[string]any) []string {
	seen := map[string]bool{}
	var ordered []string
	for _, key := range guidMapKeys {
		m := asMap(root[key])
		for guid := range m {
			if !seen[guid] {
				seen[guid] = true
				ordered = append(ordered, guid)
			}
		}
	}
	return ordered
}

func ruleForGUID(root map[string]any, guid string) flairconfig.FlairRule {
	rule := flairconfig.FlairRule{TemplateID: guid}

	rule.Remove = boolAt(root, "remove", guid)
	rule.Approve = boolAt(root, "approve", guid)
	rule.Lock = boolAt(root, "lock_post", guid)
	rule.Spoiler = boolAt(root, "spoiler_post", guid)
	rule.ClearPostFlair = boolAt(root, "remove_link_flair", guid)
	rule.Unban = boolAt(root, "unbans", guid)
	rule.SendToWebhook = boolAt(root, "send_to_webhook", guid)

	if notes := stringAt(root, "flairs", guid); notes != "" {
		rule.ModLogReason = stringutil.SanitizeModLogReason(notes)
		rule.Comment = flairconfig.CommentAction{Enabled: true, Body: notes}
	}
	if boolAt(root, "comment", guid) {
		rule.Comment.Enabled = true
	}

	if note := stringAt(root, "usernote", guid); note != "" {
		rule.Usernote = flairconfig.UsernoteAction{Enabled: true, Note: note}
	}

	if boolAt(root, "add_contributor", guid) {
		rule.Contributor = flairconfig.ContributorAction{Enabled: true, Action: flairconfig.ContributorAdd}
	} else if boolAt(root, "remove_contributor", guid) {
		rule.Contributor = flairconfig.ContributorAction{Enabled: true, Action: flairconfig.ContributorRemove}
	}

	text := stringAt(root, "set_author_flair_text", guid)
	css := stringAt(root, "set_author_flair_css_class", guid)
	templateID := stringAt(root, "set_author_flair_template_id", guid)
	if text != "" || css != "" || templateID != "" {
		rule.UserFlair = flairconfig.UserFlairAction{
			Enabled: true, Text: text, CSSClass: css, TemplateID: templateID,
		}
	}

	if durationRaw, ok := asMap(root["bans"])[guid]; ok {
		rule.Ban = flairconfig.BanAction{
			Enabled:  true,
			Duration: flairconfig.BanDurationFromLegacy(durationRaw),
			Message:  stringAt(root, "ban_message", guid),
			ModNote:  stringutil.SanitizeBanNote(stringAt(root, "ban_note", guid)),
		}
	}

	return rule
}

func boolAt(root map[string]any, topKey, guid string) bool {
	return asBool(asMap(root[topKey])[guid])
}

func stringAt(root map[string]any, topKey, guid string) string {
	return asString(asMap(root[topKey])[guid])
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func asInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case uint64:
		return int(t)
	case int64:
		return int(t)
	case float64:
		return int(t)
	default:
		return 0
	}
}

