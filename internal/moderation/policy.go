package moderation

import (
	"strings"
	"time"

	"github.com/iamwavecut/guardbot/internal/config"
)

type ViolationKind string

const (
	ViolationNone    ViolationKind = ""
	ViolationLink    ViolationKind = "link"
	ViolationForward ViolationKind = "forward"
	ViolationAbuse   ViolationKind = "abuse"
)

// Policy is the immutable moderation configuration, built once at startup.
type Policy struct {
	WarnThreshold   int
	MuteDuration    time.Duration
	KickOnThreshold string
	NoticeTTL       time.Duration
	RateLimitCount  int
	RateLimitPeriod time.Duration

	bannedTokens  map[string]struct{}
	bannedPhrases []string
	linkPatterns  []string
}

func NewPolicy(mod config.Moderation, flood config.Flood) *Policy {
	p := &Policy{
		WarnThreshold:   mod.WarnThreshold,
		MuteDuration:    mod.MuteDuration,
		KickOnThreshold: mod.KickOnThreshold,
		NoticeTTL:       mod.NoticeTTL,
		RateLimitCount:  flood.RateLimitCount,
		RateLimitPeriod: flood.RateLimitPeriod,
		bannedTokens:    make(map[string]struct{}, len(mod.BannedWords)),
	}
	for _, word := range mod.BannedWords {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		if strings.ContainsRune(word, ' ') {
			p.bannedPhrases = append(p.bannedPhrases, word)
			continue
		}
		p.bannedTokens[word] = struct{}{}
	}
	for _, pattern := range mod.LinkPatterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		p.linkPatterns = append(p.linkPatterns, pattern)
	}
	return p
}

func (p *Policy) NoticeReason(kind ViolationKind) string {
	switch kind {
	case ViolationLink:
		return "prohibited links"
	case ViolationForward:
		return "forwarded content"
	case ViolationAbuse:
		return "abusive language"
	}
	return ""
}
