// Package matcher implements the token matching shared by every filter gate.
//
// Text and tokens are normalized the same way: every run of characters that
// are not ASCII letters or digits becomes a single space and the result is
// upper-cased. A normalized token then matches
//
//   - as a substring when it contains a space (a phrase),
//   - as a substring when it is longer than three characters,
//   - only on word boundaries when it is three characters or shorter, so "US"
//     matches "REMOTE US" but not "BUSINESS".
package matcher

import (
	"strings"
)

const shortTokenLen = 3

// Normalize prepares text or a token for matching.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	pendingSpace := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Match reports whether token occurs in the already normalized text.
func Match(token, text string) bool {
	return matchNormalized(Normalize(token), text)
}

func matchNormalized(token, text string) bool {
	if token == "" || text == "" {
		return false
	}
	if strings.Contains(token, " ") || len(token) > shortTokenLen {
		return strings.Contains(text, token)
	}
	return containsWord(text, token)
}

// containsWord looks for token delimited by spaces or the ends of text.
func containsWord(text, token string) bool {
	for start := 0; start <= len(text)-len(token); {
		i := strings.Index(text[start:], token)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(token)
		if (i == 0 || text[i-1] == ' ') && (end == len(text) || text[end] == ' ') {
			return true
		}
		start = i + 1
	}
	return false
}

// Set is a list of tokens normalized once and matched many times.
type Set struct {
	tokens []string
}

// NewSet normalizes tokens, dropping empties and duplicates while keeping
// the first-seen order.
func NewSet(tokens ...[]string) Set {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range tokens {
		for _, t := range list {
			n := Normalize(t)
			if n == "" {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return Set{tokens: out}
}

func (s Set) Len() int { return len(s.tokens) }

func (s Set) Empty() bool { return len(s.tokens) == 0 }

// Any reports whether at least one token matches the normalized text.
func (s Set) Any(text string) bool {
	for _, t := range s.tokens {
		if matchNormalized(t, text) {
			return true
		}
	}
	return false
}

// Hits returns the tokens that match the normalized text.
func (s Set) Hits(text string) []string {
	var hits []string
	for _, t := range s.tokens {
		if matchNormalized(t, text) {
			hits = append(hits, t)
		}
	}
	return hits
}
