package slug

import (
	"regexp"
	"strings"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// Generate creates a URL-friendly slug from the given name: lowercase,
// non-alphanumeric runs collapsed to single hyphens, leading/trailing hyphens
// trimmed. Turkish characters are transliterated to ASCII equivalents.
//
// Examples:
//   - "Red T-Shirt!!" → "red-t-shirt"
//   - "Kadın Giyim" → "kadin-giyim"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))

	replacer := strings.NewReplacer(
		"ç", "c", "ğ", "g", "ı", "i", "ö", "o", "ş", "s", "ü", "u",
	)
	s = replacer.Replace(s)

	s = slugRegexp.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	return s
}
