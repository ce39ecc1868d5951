// Package rules implements the deterministic categorization matcher. The
// engine is pure in-memory state with no store reference.
package rules

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jask/easycat/internal/database/repository"
)

// Match is the result of a rule matching a transaction.
type Match struct {
	Rule        repository.Rule
	MatchedText string
	CategoryID  string
}

// Engine matches transaction text against prioritized rules. Rules are
// held priority-descending; ties keep insertion order. Regex patterns are
// compiled once, and an invalid pattern compiles to "never matches".
type Engine struct {
	rules    []repository.Rule
	compiled map[string]*regexp.Regexp
}

// NewEngine builds an engine over a snapshot of rules.
func NewEngine(rs []repository.Rule) *Engine {
	e := &Engine{compiled: make(map[string]*regexp.Regexp)}
	e.ReplaceRules(rs)
	return e
}

// FindMatch returns the highest-priority matching rule, or nil. The
// description is tried first, then the vendor name.
func (e *Engine) FindMatch(description string, vendorName *string, amount decimal.Decimal) *Match {
	for _, r := range e.rules {
		if m := e.tryRule(r, description, vendorName, amount); m != nil {
			return m
		}
	}
	return nil
}

// FindAllMatches returns every matching rule in priority order. Used for
// batch suggestions over similar transactions.
func (e *Engine) FindAllMatches(description string, vendorName *string, amount decimal.Decimal) []Match {
	var out []Match
	for _, r := range e.rules {
		if m := e.tryRule(r, description, vendorName, amount); m != nil {
			out = append(out, *m)
		}
	}
	return out
}

// AddRule inserts a rule, keeping priority order and the pattern cache.
func (e *Engine) AddRule(r repository.Rule) {
	e.rules = append(e.rules, r)
	sort.SliceStable(e.rules, func(i, j int) bool {
		return e.rules[i].Priority > e.rules[j].Priority
	})
	e.compile(r)
}

// RemoveRule drops a rule and evicts its compiled pattern.
func (e *Engine) RemoveRule(id string) {
	kept := e.rules[:0]
	for _, r := range e.rules {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	e.rules = kept
	delete(e.compiled, id)
}

// ReplaceRules swaps in a new rule set.
func (e *Engine) ReplaceRules(rs []repository.Rule) {
	e.rules = append([]repository.Rule(nil), rs...)
	sort.SliceStable(e.rules, func(i, j int) bool {
		return e.rules[i].Priority > e.rules[j].Priority
	})
	e.compiled = make(map[string]*regexp.Regexp, len(e.rules))
	for _, r := range e.rules {
		e.compile(r)
	}
}

// Rules returns a copy of the rule set in priority order.
func (e *Engine) Rules() []repository.Rule {
	return append([]repository.Rule(nil), e.rules...)
}

func (e *Engine) compile(r repository.Rule) {
	if r.Kind != repository.PatternRegex {
		return
	}
	re, err := regexp.Compile("(?i)" + r.Pattern)
	if err != nil {
		e.compiled[r.ID] = nil // never matches
		return
	}
	e.compiled[r.ID] = re
}

func (e *Engine) tryRule(r repository.Rule, description string, vendorName *string, amount decimal.Decimal) *Match {
	if !r.IsActive {
		return nil
	}
	if !amountInRange(amount, r) {
		return nil
	}
	texts := []string{description}
	if vendorName != nil && *vendorName != "" {
		texts = append(texts, *vendorName)
	}
	for _, text := range texts {
		if matched, ok := e.checkPattern(r, text); ok {
			return &Match{Rule: r, MatchedText: matched, CategoryID: r.CategoryID}
		}
	}
	return nil
}

// amountInRange compares abs(amount) against the rule's inclusive bounds.
func amountInRange(amount decimal.Decimal, r repository.Rule) bool {
	abs := amount.Abs()
	if r.MinAmount != nil && abs.LessThan(*r.MinAmount) {
		return false
	}
	return r.MaxAmount == nil || abs.LessThanOrEqual(*r.MaxAmount)
}

func (e *Engine) checkPattern(r repository.Rule, text string) (string, bool) {
	switch r.Kind {
	case repository.PatternExact:
		if strings.EqualFold(text, r.Pattern) {
			return text, true
		}
	case repository.PatternContains:
		if strings.Contains(strings.ToUpper(text), strings.ToUpper(r.Pattern)) {
			return r.Pattern, true
		}
	case repository.PatternRegex:
		re := e.compiled[r.ID]
		if re == nil {
			return "", false
		}
		if loc := re.FindStringIndex(text); loc != nil {
			return text[loc[0]:loc[1]], true
		}
	}
	return "", false
}
