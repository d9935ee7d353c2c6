package plan

import (
	"strings"
	"unicode/utf8"
)

// DefaultPartLimit is the standard single-SMS length limit.
const DefaultPartLimit = 160

// preferredBreaks is ordered by how natural the resulting cut reads:
// paragraph break, line break, sentence end, clause, plain space.
var preferredBreaks = []string{"\n\n", "\n", ". ", "! ", "? ", ", ", " "}

// Split cuts text into transport-sized chunks of at most limit characters.
// Cuts prefer natural break points, and a break is only accepted past the
// midpoint of the window so no chunk ends up pathologically short. Falls back
// to the last space before the limit, then to a hard cut. Chunks are trimmed
// of surrounding whitespace. Deterministic: same input, same sequence.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultPartLimit
	}

	trimmed := strings.TrimSpace(text)
	remaining := []rune(trimmed)
	if len(remaining) <= limit {
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var parts []string
	for len(remaining) > limit {
		window := string(remaining[:limit])
		cut := limit

		found := false
		for _, pattern := range preferredBreaks {
			idx := strings.LastIndex(window, pattern)
			if idx < 0 {
				continue
			}
			runeIdx := utf8.RuneCountInString(window[:idx])
			if runeIdx > limit/2 {
				cut = runeIdx + utf8.RuneCountInString(pattern)
				found = true
				break
			}
		}

		if !found {
			if idx := strings.LastIndex(window, " "); idx >= 0 {
				runeIdx := utf8.RuneCountInString(window[:idx])
				if runeIdx > limit/2 {
					cut = runeIdx + 1
				}
			}
		}

		part := strings.TrimSpace(string(remaining[:cut]))
		if part != "" {
			parts = append(parts, part)
		}

		// Each iteration consumes more than limit/2 runes, so the loop
		// terminates.
		remaining = []rune(strings.TrimSpace(string(remaining[cut:])))
	}

	if len(remaining) > 0 {
		parts = append(parts, string(remaining))
	}

	return parts
}
