package moderation

import (
	"strings"
	"unicode"
)

// Classify checks a message against the link, forward and abuse policies.
// Priority when several match is Link > Forward > Abuse, a single violation
// is reported per message.
func (p *Policy) Classify(text, caption string, entities []Entity, isForwarded bool) ViolationKind {
	combined := strings.ToLower(strings.TrimSpace(text + " " + caption))

	if p.containsLink(combined, entities) {
		return ViolationLink
	}
	if isForwarded {
		return ViolationForward
	}
	if p.containsAbuse(combined) {
		return ViolationAbuse
	}
	return ViolationNone
}

func (p *Policy) containsLink(text string, entities []Entity) bool {
	for _, pattern := range p.linkPatterns {
		if strings.Contains(text, pattern) {
			return true
		}
	}
	// entity-only links have no visible URL text, e.g. a text_link on
	// arbitrary display text
	for _, entity := range entities {
		if entity.Type == EntityTypeURL || entity.Type == EntityTypeTextLink {
			return true
		}
	}
	return false
}

// containsAbuse matches whole tokens and configured multi-word phrases only,
// a short banned token must not fire inside an unrelated word.
func (p *Policy) containsAbuse(text string) bool {
	tokens := tokenize(text)
	for _, token := range tokens {
		if _, banned := p.bannedTokens[token]; banned {
			return true
		}
	}
	if len(p.bannedPhrases) == 0 {
		return false
	}
	normalized := strings.Join(tokens, " ")
	for _, phrase := range p.bannedPhrases {
		if containsPhrase(normalized, phrase) {
			return true
		}
	}
	return false
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}

func containsPhrase(normalized, phrase string) bool {
	idx := strings.Index(normalized, phrase)
	for idx >= 0 {
		beforeOK := idx == 0 || normalized[idx-1] == ' '
		end := idx + len(phrase)
		afterOK := end == len(normalized) || normalized[end] == ' '
		if beforeOK && afterOK {
			return true
		}
		next := strings.Index(normalized[idx+1:], phrase)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}
