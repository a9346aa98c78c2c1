package event

import "strings"

// MatchPattern reports whether an event name matches a subscription
// pattern.
//
// The grammar is deliberately small:
//
//   - "page.view"  matches exactly the name "page.view"
//   - "page.*"     matches any name with namespace "page" and exactly
//     one further segment ("page.view", not "page.view.detail")
//   - "*"          matches every name
//
// Wildcards are only valid as the sole pattern or as the trailing
// segment after a namespace; mid-pattern wildcards are not supported.
func MatchPattern(pattern, name string) bool {
	if pattern == "" || name == "" {
		return false
	}
	if pattern == "*" || pattern == name {
		return true
	}

	ns, ok := strings.CutSuffix(pattern, ".*")
	if !ok {
		return false
	}

	action, ok := strings.CutPrefix(name, ns+".")
	if !ok {
		return false
	}
	return action != "" && !strings.Contains(action, ".")
}
