// Package identity derives the canonical job id used to deduplicate postings
// across runs and sources.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/spigell/bioinfo-job-tracker/internal/posting"
)

const separator = "|"

// NormalizeText lowercases, collapses internal whitespace and trims.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// CanonicalURL keeps scheme, host and path only. A single trailing slash is
// removed, so "https://host/" and "https://host" are the same URL.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return stripTrailingSlash(cutQueryAndFragment(raw))
	}

	var b strings.Builder
	if u.Scheme != "" {
		b.WriteString(strings.ToLower(u.Scheme))
		b.WriteString("://")
	}
	b.WriteString(strings.ToLower(u.Host))
	if u.Opaque != "" {
		b.WriteString(u.Opaque)
	} else {
		b.WriteString(u.EscapedPath())
	}
	return stripTrailingSlash(b.String())
}

// Compute returns the hex SHA-256 digest of the normalized fields.
func Compute(company, title, location, jobURL string) string {
	raw := strings.Join([]string{
		NormalizeText(company),
		NormalizeText(title),
		NormalizeText(location),
		CanonicalURL(jobURL),
	}, separator)

	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Of is a shortcut for Compute over a raw posting.
func Of(p posting.RawPosting) string {
	return Compute(p.Company, p.JobTitle, p.Location, p.JobURL)
}

func cutQueryAndFragment(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}

func stripTrailingSlash(s string) string {
	return strings.TrimSuffix(s, "/")
}
