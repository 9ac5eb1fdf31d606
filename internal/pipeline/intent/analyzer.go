// internal/pipeline/intent/analyzer.go
package intent

import (
	"strings"
	"unicode"

	"smartbuilding-workers/internal/models"
)

// Context carries tenant/user/node information into the rule builders.
// Nodes is the tenant's IoT catalogue, preloaded by the caller so rule
// evaluation stays synchronous and in-memory.
type Context struct {
	TenantID string
	UserID   string
	NodeID   string
	Nodes    []models.Node
}

// Analyze maps free text to zero or more actions by evaluating the fixed,
// ordered category rule table. Categories are independent and
// non-exclusive: one utterance can yield actions from several categories.
// No match yields an empty list, which is not an error.
func Analyze(text string, rctx Context) []models.Action {
	u := parse(text)

	var actions []models.Action
	for _, r := range rules {
		if r.match(u) {
			actions = append(actions, r.build(u, rctx)...)
		}
	}
	return actions
}

// utterance is the case-normalized, tokenized command text.
type utterance struct {
	text   string
	tokens map[string]struct{}
}

func parse(text string) *utterance {
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	normalized = strings.Join(strings.Fields(normalized), " ")

	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(normalized) {
		tokens[tok] = struct{}{}
	}
	return &utterance{text: normalized, tokens: tokens}
}

func (u *utterance) has(word string) bool {
	_, ok := u.tokens[word]
	return ok
}

func (u *utterance) hasAny(words ...string) bool {
	for _, w := range words {
		if u.has(w) {
			return true
		}
	}
	return false
}

func (u *utterance) hasPhrase(phrase string) bool {
	return strings.Contains(u.text, phrase)
}

func (u *utterance) hasAnyPhrase(phrases ...string) bool {
	for _, p := range phrases {
		if u.hasPhrase(p) {
			return true
		}
	}
	return false
}

// stemMatch compares two tokens, tolerating Italian singular/plural
// endings ("luce"/"luci", "porta"/"porte").
func stemMatch(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) < 4 || len(b) < 4 {
		return false
	}
	ra, rb := []rune(a), []rune(b)
	return string(ra[:len(ra)-1]) == string(rb[:len(rb)-1])
}

// matchesNode reports whether every significant token of the node name
// appears in the utterance. Requiring all tokens keeps "le luci del
// soggiorno" from also selecting the kitchen light.
func (u *utterance) matchesNode(n models.Node) bool {
	matched := 0
	for _, nameTok := range strings.Fields(strings.ToLower(n.Name)) {
		if len(nameTok) < 3 {
			continue
		}
		found := false
		for tok := range u.tokens {
			if stemMatch(nameTok, tok) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
		matched++
	}
	return matched > 0
}
