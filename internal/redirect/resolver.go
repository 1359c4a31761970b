// Package redirect resolves the destination of a completed journey from
// declarative matching rules and composes the confirmation query string.
package redirect

import "github.com/rulesascode/journey/model"

// Resolve evaluates redirect rules in declaration order against the
// candidate values extracted from a calculation result. Every condition of
// a rule must match for the rule to win; the first winning rule short
// circuits evaluation. A rule without a destination is skipped rather than
// aborting resolution. No match returns ok=false and the default
// confirmation behavior stands.
func Resolve(candidates map[string]any, rules []model.RedirectRule) (string, bool) {
	for _, rule := range rules {
		if rule.Redirect == "" {
			continue
		}
		matched := true
		for _, cond := range rule.Rules {
			value, present := candidates[cond.Variable]
			if !present || !LooseEquals(value, cond.Value) {
				matched = false
				break
			}
		}
		if matched {
			return rule.Redirect, true
		}
	}
	return "", false
}
