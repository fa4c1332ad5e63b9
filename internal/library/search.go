package library

import (
	"regexp"
	"strings"
)

// bracketSuffix matches a trailing "(...)" or "[...]" such as "(Remastered)".
var bracketSuffix = regexp.MustCompile(`\s*[\(\[][^\)\]]*[\)\]]\s*$`)

// NormalizeTitle lowercases a title and strips trailing bracketed
// qualifiers so "Song (Live)" and "song" compare equal.
func NormalizeTitle(title string) string {
	s := strings.TrimSpace(title)
	for {
		stripped := bracketSuffix.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// Search returns tracks whose title, artist or album contains every word of
// query, case-insensitively. An empty query matches nothing.
func (l *Library) Search(query string) []*Track {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*Track
	for _, t := range l.tracks {
		hay := strings.ToLower(t.Title + " " + NormalizeTitle(t.Title) + " " + t.Artist + " " + t.Album + " " + t.FileName)
		match := true
		for _, w := range words {
			if !strings.Contains(hay, w) {
				match = false
				break
			}
		}
		if match {
			out = append(out, t)
		}
	}
	return out
}
