package library

import (
	"regexp"
	"strings"
)

// Artist names that contain a separator character and must not be split.
var protectedArtists = regexp.MustCompile(`Tyler, ?[tT]he Creator`)

const commaPlaceholder = "\x00"

// SplitArtists splits a raw artist tag on commas, semicolons and ampersands.
// Known names containing a comma are kept whole.
func SplitArtists(raw string) []string {
	if raw == "" {
		return nil
	}

	protected := protectedArtists.ReplaceAllStringFunc(raw, func(m string) string {
		return strings.Replace(m, ",", commaPlaceholder, 1)
	})

	parts := strings.FieldsFunc(protected, func(r rune) bool {
		return r == ',' || r == ';' || r == '&'
	})

	artists := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ReplaceAll(p, commaPlaceholder, ","))
		if p != "" {
			artists = append(artists, p)
		}
	}
	return artists
}
