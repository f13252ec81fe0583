// Package intent decides whether a chat message opens the booking flow or
// goes to the Q&A responder.
package intent

import "strings"

// Matcher reports whether a message carries a given intent. Keyword lists are
// one implementation; a model-backed classifier can satisfy the same contract.
type Matcher interface {
	Match(text string) bool
}

// MatcherFunc adapts a plain function to Matcher.
type MatcherFunc func(text string) bool

// Match calls f(text).
func (f MatcherFunc) Match(text string) bool { return f(text) }

// Keywords is an ordered set of lower-case phrases matched as substrings of
// the lower-cased message.
type Keywords []string

// Match reports whether any keyword occurs in text.
func (k Keywords) Match(text string) bool {
	_, ok := k.First(text)
	return ok
}

// First returns the first keyword, in list order, found in text.
func (k Keywords) First(text string) (string, bool) {
	lowered := strings.ToLower(text)
	if strings.TrimSpace(lowered) == "" {
		return "", false
	}
	for _, kw := range k {
		if kw != "" && strings.Contains(lowered, kw) {
			return kw, true
		}
	}
	return "", false
}

// AppointmentKeywords signal that the visitor wants to book a visit.
var AppointmentKeywords = Keywords{
	"book",
	"appointment",
	"schedule",
	"visit",
	"booking",
	"see a vet",
	"vet visit",
	"checkup",
	"check-up",
	"consultation",
	"want to come in",
	"make an appointment",
	"reserve",
	"slot",
}
