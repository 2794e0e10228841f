// Copyright 2024-2026 Aiku AI

package warden

import (
	"fmt"
	"regexp"
	"strings"
)

// ListType classifies a word rule by the action it triggers.
type ListType string

const (
	ListBlacklist ListType = "blacklist"
	ListWatchlist ListType = "watchlist"
	ListGreylist  ListType = "greylist"
)

// FilterType selects how a rule's text is matched against message content.
type FilterType string

const (
	// FilterExact matches the rule text as a whole word, case-insensitively.
	FilterExact FilterType = "exact"
	// FilterIncludes matches the rule text as a plain substring,
	// case-insensitively.
	FilterIncludes FilterType = "includes"
)

// WordRule is a single static moderation rule. Rules are loaded once at
// startup and never mutated.
type WordRule struct {
	Text   string     `yaml:"text"`
	List   ListType   `yaml:"list"`
	Filter FilterType `yaml:"filter"`
}

// Match is the result of classifying a message against the rule set. Both
// fields are zero when no rule matched.
type Match struct {
	Word string
	List ListType
}

// Matched reports whether any rule matched.
func (m Match) Matched() bool {
	return m.Word != ""
}

type compiledRule struct {
	rule    WordRule
	pattern *regexp.Regexp // set for exact rules only
	lower   string         // lowercased text for includes rules
}

// RuleSet holds the compiled word rules in declaration order. Order is
// significant: classification returns the first rule that matches, never the
// best fit.
type RuleSet struct {
	rules []compiledRule
}

// NewRuleSet compiles the given rules, preserving their order. Rule text is
// escaped before pattern construction, so regex metacharacters in a rule are
// matched literally.
func NewRuleSet(rules []WordRule) (*RuleSet, error) {
	rs := &RuleSet{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		cr := compiledRule{rule: r}
		switch r.Filter {
		case FilterExact:
			pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(r.Text) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("failed to compile rule %q: %w", r.Text, err)
			}
			cr.pattern = pattern
		case FilterIncludes:
			cr.lower = strings.ToLower(r.Text)
		default:
			return nil, fmt.Errorf("rule %q has unknown filter type %q", r.Text, r.Filter)
		}
		rs.rules = append(rs.rules, cr)
	}
	return rs, nil
}

// Classify scans the rule list in declaration order and returns the first
// rule that matches the text. Later rules are never consulted once a rule
// has matched. An empty Match is returned only after the entire list has
// been scanned without a hit.
func (rs *RuleSet) Classify(text string) Match {
	lower := strings.ToLower(text)
	for _, cr := range rs.rules {
		switch cr.rule.Filter {
		case FilterExact:
			if cr.pattern.MatchString(text) {
				return Match{Word: cr.rule.Text, List: cr.rule.List}
			}
		case FilterIncludes:
			if strings.Contains(lower, cr.lower) {
				return Match{Word: cr.rule.Text, List: cr.rule.List}
			}
		}
	}
	return Match{}
}
