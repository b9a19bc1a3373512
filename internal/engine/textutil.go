package engine

import (
	"regexp"
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"
)

var (
	htmlTagRe = regexp.MustCompile(`<[^>]+>`)
	badFileRe = regexp.MustCompile(`[\\/*?:"<>|]`)
	multiWSRe = regexp.MustCompile(`\s+`)
)

// CleanHTML strips HTML tags and trims whitespace.
func CleanHTML(s string) string {
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(s, ""))
}

// CollapseWhitespace folds runs of whitespace into single spaces.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(multiWSRe.ReplaceAllString(s, " "))
}

// SanitizeFilename removes characters that are not allowed in filenames.
func SanitizeFilename(s string) string {
	return strings.TrimSpace(badFileRe.ReplaceAllString(s, ""))
}

// Truncate returns the first n bytes of s.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// TruncateRunes caps s at limit runes, appending suffix if truncated.
// Pass suffix="" for no suffix. Safe for UTF-8 (CJK transcripts).
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}

// TechDelimiter joins technology keywords in the CSV technologies column.
const TechDelimiter = ";"

// ScrubKeyword removes the join delimiter and surrounding whitespace from a
// technology keyword so the CSV column stays splittable.
func ScrubKeyword(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, TechDelimiter, ","))
}

// JoinTechnologies renders keywords for the CSV technologies column,
// dropping empties after scrubbing.
func JoinTechnologies(keywords []string) string {
	var out []string
	for _, k := range keywords {
		if k = ScrubKeyword(k); k != "" {
			out = append(out, k)
		}
	}
	return strings.Join(out, TechDelimiter)
}
