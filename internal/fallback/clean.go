package fallback

import (
	"regexp"
	"strings"

	"github.com/jackzampolin/form32/internal/record"
)

var (
	dateRe        = regexp.MustCompile(`(\d{1,2})[./](\d{1,2})[./](\d{4})`)
	timeRe        = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})\s*(AM|PM)`)
	texasRe       = regexp.MustCompile(`(?i)\bTexas\b`)
	trailingNumRe = regexp.MustCompile(`\d+\.\s*$`)
	spaceRe       = regexp.MustCompile(`\s+`)
	hwSuffixRe    = regexp.MustCompile(`-HW$`)
)

// Clean normalizes a raw regex capture according to the field's category.
// When a category rule does not apply the trimmed value is returned, so an
// empty result means the capture carried nothing usable.
func Clean(f record.Field, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	switch f.Category {
	case record.CategoryDate:
		if m := dateRe.FindStringSubmatch(value); m != nil {
			return m[1] + "/" + m[2] + "/" + m[3]
		}
	case record.CategoryTime:
		if m := timeRe.FindStringSubmatch(value); m != nil {
			return m[1] + ":" + m[2] + " " + strings.ToUpper(m[3])
		}
	case record.CategoryPhone:
		if d := digits(value); len(d) == 10 {
			return d[:3] + "." + d[3:6] + "." + d[6:]
		}
	case record.CategorySSN:
		if d := digits(value); len(d) >= 4 {
			return d[len(d)-4:]
		}
	case record.CategoryAddress:
		value = texasRe.ReplaceAllString(value, "TX")
	case record.CategoryName:
		value = trailingNumRe.ReplaceAllString(value, "")
		value = spaceRe.ReplaceAllString(value, " ")
	case record.CategoryClaim:
		value = spaceRe.ReplaceAllString(value, "")
		value = hwSuffixRe.ReplaceAllString(value, "")
	}
	return strings.TrimSpace(value)
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
