// Package moderation provides the content-moderation predicate used to gate
// room names, descriptions and chat messages. Callers only see the Moderator
// interface; the filtering strategy behind it is interchangeable.
package moderation

import "strings"

// Moderator is the black-box predicate over strings.
type Moderator interface {
	IsProfane(text string) bool
}

// Filter is a word-list Moderator. Matching is case-insensitive and ignores
// surrounding punctuation, but does not attempt substring matches: "class"
// must not trip on "ass".
type Filter struct {
	words map[string]struct{}
}

// NewFilter creates a Filter from the given word list.
func NewFilter(words ...string) *Filter {
	f := &Filter{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			f.words[w] = struct{}{}
		}
	}
	return f
}

// IsProfane implements Moderator.
func (f *Filter) IsProfane(text string) bool {
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?\"'()[]{}<>")
		if _, ok := f.words[token]; ok {
			return true
		}
	}
	return false
}

// None is a Moderator that allows everything. Useful in tests and when
// moderation is disabled by configuration.
type None struct{}

// IsProfane implements Moderator.
func (None) IsProfane(string) bool { return false }
