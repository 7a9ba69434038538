package clist

import (
	"strings"

	"clistcal"
)

// Aliases maps short user-facing platform tokens to canonical CLIST hostnames.
var Aliases = map[string]string{
	"leetcode":   "leetcode.com",
	"lc":         "leetcode.com",
	"nowcoder":   "ac.nowcoder.com",
	"nk":         "ac.nowcoder.com",
	"codeforces": "codeforces.com",
	"cf":         "codeforces.com",
	"atcoder":    "atcoder.jp",
	"ac":         "atcoder.jp",
	"luogu":      "luogu.com.cn",
	"lg":         "luogu.com.cn",
}

// DefaultResources is the resource set queried when the user names none.
var DefaultResources = []string{"leetcode", "codeforces", "atcoder", "luogu", "nowcoder"}

// ResourceFilter is a single resolved resource query parameter.
type ResourceFilter struct {
	// API query field, either "resource" or "resource_id".
	Field string

	Value string
}

// ResolveResources maps user-supplied tokens to API resource filters.
// Known aliases become canonical hostnames, all-digit tokens become numeric
// resource IDs, anything else passes through unchanged as a literal hostname.
// The result is deduplicated preserving first-occurrence order. A nil or
// empty token list resolves the default resource set instead.
func ResolveResources(tokens []string) ([]ResourceFilter, error) {
	if len(tokens) == 0 {
		tokens = DefaultResources
	}

	resolved := make([]ResourceFilter, 0, len(tokens))
	seen := make(map[ResourceFilter]struct{})

	for _, raw := range tokens {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}

		var filter ResourceFilter
		if host, ok := Aliases[strings.ToLower(value)]; ok {
			filter = ResourceFilter{Field: "resource", Value: host}
		} else if isDigits(value) {
			filter = ResourceFilter{Field: "resource_id", Value: value}
		} else {
			// Forward unrecognized tokens as-is. The API rejects the ones
			// it does not know about.
			filter = ResourceFilter{Field: "resource", Value: value}
		}

		if _, ok := seen[filter]; ok {
			continue
		}
		seen[filter] = struct{}{}
		resolved = append(resolved, filter)
	}

	if len(resolved) == 0 {
		return nil, clistcal.Errorf(clistcal.EINVALID, "No valid resources resolved. Check the provided resource filters.")
	}

	return resolved, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
