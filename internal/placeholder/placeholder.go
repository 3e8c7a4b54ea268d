// Package placeholder implements the literal {{name}} substitution used in
// header/footer/comment/mod-note/ban/user-flair text. It is a single scan
// over the template rather than repeated string replacement, so an unknown
// token's braces can never be accidentally consumed by an earlier
// replacement.
package placeholder

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Values holds the resolved value for every recognized placeholder name.
// Fields left as their zero value still substitute (e.g. an empty body),
// matching the "no escaping, literal replace" semantics in the domain
// spec — callers decide what's meaningful to set.
type Values struct {
	Author               string
	Subreddit             string
	Title                 string
	Body                  string
	ID                    string
	Permalink             string
	URL                   string
	Domain                string
	Link                  string
	AuthorID              string
	SubredditID           string
	AuthorFlairText       string
	AuthorFlairCSSClass   string
	AuthorFlairTemplateID string
	LinkFlairText         string
	LinkFlairCSSClass     string
	LinkFlairTemplateID   string
	Mod                   string

	Now        time.Time
	CreatedUTC time.Time
	UTCOffset  int
	TimeFormat string

	// Ban-only. BanSet gates whether {{ban_duration}}/{{ban_duration_number}}
	// are substituted at all — they're computed after duration resolution,
	// later than the rest of Values, so a template rendered before a ban
	// decision is made should pass them through unchanged.
	BanSet             bool
	BanDurationDays    int
	BanPermanent       bool
}

// Kind is always "submission": the domain spec's {{kind}} placeholder names
// the platform object type the engine acts on, which this system never
// varies.
const Kind = "submission"

// Expand performs the single-pass literal substitution described in the
// domain spec's external-interfaces section. Unknown {{name}} tokens pass
// through unchanged.
func Expand(template string, v Values) string {
	tokens := tokenValues(v)

	var out strings.Builder
	out.Grow(len(template))

	rest := template
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			out.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], "}}")
		if end == -1 {
			out.WriteString(rest)
			break
		}
		end += start

		out.WriteString(rest[:start])
		name := strings.TrimSpace(rest[start+2 : end])
		if value, ok := tokens[name]; ok {
			out.WriteString(value)
		} else {
			out.WriteString(rest[start : end+2])
		}
		rest = rest[end+2:]
	}

	return out.String()
}

func tokenValues(v Values) map[string]string {
	loc := time.FixedZone("", v.UTCOffset*3600)

	format := v.TimeFormat
	if format == "" {
		format = "2006-01-02 15:04:05 MST"
	}

	now := v.Now
	if now.IsZero() {
		now = time.Now()
	}

	tokens := map[string]string{
		"author":                   v.Author,
		"subreddit":                v.Subreddit,
		"title":                    v.Title,
		"body":                     v.Body,
		"id":                       v.ID,
		"permalink":                v.Permalink,
		"url":                      v.URL,
		"domain":                   v.Domain,
		"link":                     v.Link,
		"kind":                     Kind,
		"author_id":                v.AuthorID,
		"subreddit_id":             v.SubredditID,
		"author_flair_text":        v.AuthorFlairText,
		"author_flair_css_class":   v.AuthorFlairCSSClass,
		"author_flair_template_id": v.AuthorFlairTemplateID,
		"link_flair_text":          v.LinkFlairText,
		"link_flair_css_class":     v.LinkFlairCSSClass,
		"link_flair_template_id":   v.LinkFlairTemplateID,
		"mod":                      v.Mod,

		"time_unix":   strconv.FormatInt(now.Unix(), 10),
		"time_iso":    now.In(loc).Format(time.RFC3339),
		"time_custom": now.In(loc).Format(format),
	}

	if !v.CreatedUTC.IsZero() {
		tokens["created_unix"] = strconv.FormatInt(v.CreatedUTC.Unix(), 10)
		tokens["created_iso"] = v.CreatedUTC.In(loc).Format(time.RFC3339)
		tokens["created_custom"] = v.CreatedUTC.In(loc).Format(format)
	}

	if v.BanSet {
		tokens["ban_duration"] = HumanBanDuration(v.BanDurationDays, v.BanPermanent)
		tokens["ban_duration_number"] = BanDurationNumber(v.BanDurationDays, v.BanPermanent)
	}

	return tokens
}

// HumanBanDuration renders a ban length for {{ban_duration}}: "permanently
// banned" or "banned for N days".
func HumanBanDuration(days int, permanent bool) string {
	if permanent {
		return "permanently banned"
	}
	if days == 1 {
		return "banned for 1 day"
	}
	return fmt.Sprintf("banned for %d days", days)
}

// BanDurationNumber renders {{ban_duration_number}}: "permanent" or the
// stringified day count.
func BanDurationNumber(days int, permanent bool) string {
	if permanent {
		return "permanent"
	}
	return strconv.Itoa(days)
}
