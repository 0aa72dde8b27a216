package document

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var quoteFolder = strings.NewReplacer(
	"\u2018", "'", "\u2019", "'", "\u201a", "'", "\u201b", "'",
	"\u201c", `"`, "\u201d", `"`, "\u201e", `"`,
	"\u2013", "-", "\u2014", "-", "\u2212", "-",
	"\u00a0", " ",
	"\r\n", "\n", "\r", "\n",
)

// Normalize folds extracted text into a form the label patterns expect:
// NFKC compatibility forms, ASCII quotes and dashes, and "\n" line endings.
func Normalize(s string) string {
	return quoteFolder.Replace(norm.NFKC.String(s))
}
