package scraper

import (
	"bytes"
	"strings"
)

// defaultBlockPhrases are the phrases that mark a body as a block page. The
// list is deliberately narrow: matching on anti-bot vendor names or script
// URLs would flag normal pages that merely include those scripts.
var defaultBlockPhrases = []string{
	"access denied",
	"request blocked",
	"verify you are a human",
	"verify you are human",
	"unusual traffic from your",
	"complete the security check",
}

// PhraseBlockDetector implements BlockDetector with case-insensitive phrase
// matching.
type PhraseBlockDetector struct {
	phrases [][]byte
}

// NewPhraseBlockDetector builds a detector from the configured phrases,
// falling back to the defaults when none are given.
func NewPhraseBlockDetector(phrases []string) *PhraseBlockDetector {
	if len(phrases) == 0 {
		phrases = defaultBlockPhrases
	}
	lowered := make([][]byte, 0, len(phrases))
	for _, p := range phrases {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		lowered = append(lowered, []byte(p))
	}
	return &PhraseBlockDetector{phrases: lowered}
}

// Blocked reports whether the body matches any block phrase.
func (d *PhraseBlockDetector) Blocked(body []byte) bool {
	if d == nil || len(body) == 0 {
		return false
	}
	lowerBody := bytes.ToLower(body)
	for _, phrase := range d.phrases {
		if bytes.Contains(lowerBody, phrase) {
			return true
		}
	}
	return false
}
