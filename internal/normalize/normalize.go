// Package normalize holds the pure rules applied to raw provider data
// before it is stored: poster resolution upgrades, genre splitting and
// rating parsing.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// NotAvailable is the provider's placeholder for a missing value.
const NotAvailable = "N/A"

// GenreSeparator joins genres in provider responses.
const GenreSeparator = ", "

const posterHighRes = "_SX1000.jpg"

var (
	posterSizeRe = regexp.MustCompile(`(?i)_SX\d+\.jpg$`)
	externalIDRe = regexp.MustCompile(`^[a-z]{2}\d+$`)
)

// UpgradePosterURL swaps the provider's thumbnail sizing token for the
// high resolution one. Empty URLs and the N/A sentinel pass through.
func UpgradePosterURL(url string) string {
	if url == "" || url == NotAvailable {
		return url
	}
	return posterSizeRe.ReplaceAllString(url, posterHighRes)
}

// PosterOrEmpty is UpgradePosterURL with the sentinel mapped to "".
func PosterOrEmpty(url string) string {
	if url == NotAvailable {
		return ""
	}
	return UpgradePosterURL(url)
}

// SplitGenres splits a comma separated genre string.
func SplitGenres(s string) []string {
	if s == "" || s == NotAvailable {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == NotAvailable {
			continue
		}
		out = append(out, p)
	}
	return out
}

// JoinGenres is the inverse of SplitGenres.
func JoinGenres(genres []string) string {
	return strings.Join(genres, GenreSeparator)
}

// ParseRating parses a decimal rating; anything unparsable is 0.
func ParseRating(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

// IsExternalID reports whether key looks like a provider id (tt1234567).
func IsExternalID(key string) bool {
	return externalIDRe.MatchString(strings.TrimSpace(key))
}

// FoldKey returns a case-folded form of key for equality checks.
// Casers are stateful, so one is built per call.
func FoldKey(key string) string {
	return cases.Fold().String(strings.TrimSpace(key))
}

// Clean trims s and maps the N/A sentinel to "".
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if s == NotAvailable {
		return ""
	}
	return s
}
