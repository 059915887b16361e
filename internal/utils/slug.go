package utils

import (
	"fmt"
	"strings"
	"time"
)

// slugReplacer lower-cased titles go through.  Punctuation is dropped and
// symbols are spelled out.
var slugReplacer = strings.NewReplacer(
	"ё", "е",
	" ", "-",
	",", "", ".", "", "!", "", "?", "", ":", "", ";", "",
	"(", "", ")", "", "\"", "", "'", "",
	"&", "and",
	"@", "at",
	"#", "sharp",
	"%", "percent",
	"+", "plus",
	"=", "equals",
)

// Slugify turns a title into a URL slug.  It returns "" when nothing
// usable is left.
func Slugify(title string) string {
	s := slugReplacer.Replace(strings.ToLower(strings.TrimSpace(title)))
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

// FallbackSlug is used when a title slugifies to nothing or collides.
func FallbackSlug(kind string, now time.Time) string {
	return fmt.Sprintf("%s-%d", kind, now.UnixNano())
}
