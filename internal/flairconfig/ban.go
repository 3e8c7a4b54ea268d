package flairconfig

import (
	"fmt"
	"strconv"
	"strings"
)

// BanDurationFromLegacy converts a YAML-decoded `bans` map value — a bool,
// string, or number, the same tri-form the canonical JSON field accepts —
// into a BanDuration. true and empty both normalize to the permanent marker.
func BanDurationFromLegacy(v any) BanDuration {
	switch t := v.(type) {
	case bool:
		if t {
			return ""
		}
		return ""
	case string:
		return BanDuration(strings.TrimSpace(t))
	case int:
		return BanDuration(strconv.Itoa(t))
	case int64:
		return BanDuration(strconv.FormatInt(t, 10))
	case uint64:
		return BanDuration(strconv.FormatUint(t, 10))
	case float64:
		return BanDuration(strconv.Itoa(int(t)))
	case nil:
		return ""
	default:
		return BanDuration(fmt.Sprintf("%v", t))
	}
}

// Steps parses BanDuration into the ordered list of day-counts it encodes.
// An empty duration (or the JSON `true` normalized to "" by UnmarshalJSON)
// has no steps and means a flat permanent ban. A single integer means a
// flat temporary ban of that many days. A comma-separated list of integers
// means an escalating ban: see NextDuration.
func (d BanDuration) Steps() []int {
	s := strings.TrimSpace(string(d))
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	steps := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		steps = append(steps, n)
	}
	return steps
}

// IsEscalating reports whether this duration encodes more than one step.
func (d BanDuration) IsEscalating() bool {
	return len(d.Steps()) > 1
}

// NextEscalatingDuration picks the next ban length in an escalating
// sequence, given the maximum prior ban length (in days, 0 meaning no prior
// bans or a prior permanent ban recorded as 0) for this author in this
// community. It chooses the first step strictly greater than maxPrior, or
// falls back to the last step (by convention 0, meaning permanent) once the
// sequence is exhausted.
//
// With steps [1,3,7,14,0] and maxPrior 7, this returns 14; with maxPrior 14
// it returns 0 (permanent); with maxPrior 0 (no history) it returns the
// first step, 1.
func NextEscalatingDuration(steps []int, maxPrior int) int {
	if len(steps) == 0 {
		return 0
	}
	for _, step := range steps {
		if step > maxPrior {
			return step
		}
	}
	return steps[len(steps)-1]
}

// ResolvedDays returns the number of ban days to apply for this duration
// given the author's prior-ban history (in days; pass nil/empty for no
// history), along with whether the result is permanent.
func (d BanDuration) ResolvedDays(priorDays []int) (days int, permanent bool) {
	steps := d.Steps()
	switch {
	case len(steps) == 0:
		return 0, true
	case len(steps) == 1:
		if steps[0] <= 0 {
			return 0, true
		}
		return steps[0], false
	default:
		maxPrior := 0
		for _, p := range priorDays {
			if p > maxPrior {
				maxPrior = p
			}
		}
		next := NextEscalatingDuration(steps, maxPrior)
		if next <= 0 {
			return 0, true
		}
		return next, false
	}
}
