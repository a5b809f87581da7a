package extract

import "strings"

// sourceRanks orders well-known AI newsletters for stable report
// ordering. Lower rank sorts first; unknown senders go last.
var sourceRanks = []struct {
	substr string
	rank   int
}{
	{"tldr ai", 1},
	{"tldr", 2},
	{"the rundown", 3},
	{"rundown ai", 3},
	{"superhuman", 4},
	{"the neuron", 5},
	{"ben's bites", 6},
	{"alpha signal", 7},
	{"ai breakfast", 8},
	{"import ai", 9},
	{"the batch", 10},
	{"deeplearning", 10},
	{"mit technology review", 11},
	{"towards data science", 12},
}

const defaultSourceRank = 100

// SourceRank maps a cleaned sender name to its ordering rank.
func SourceRank(source string) int {
	lowered := strings.ToLower(source)
	for _, sr := range sourceRanks {
		if strings.Contains(lowered, sr.substr) {
			return sr.rank
		}
	}
	return defaultSourceRank
}

// CleanSourceName reduces a From header to a display name: the text
// before the address, unquoted, with forwarding noise stripped.
func CleanSourceName(sender string) string {
	name := sender
	if idx := strings.Index(name, "<"); idx >= 0 {
		name = name[:idx]
	}
	name = strings.Trim(strings.TrimSpace(name), `"'`)
	name = strings.TrimSpace(name)

	// "Ben's Bites via Substack" style suffixes carry no information.
	for _, sep := range []string{" via ", " by ", " from "} {
		if idx := strings.Index(strings.ToLower(name), sep); idx > 0 {
			name = strings.TrimSpace(name[:idx])
		}
	}

	if name == "" {
		// Bare address: fall back to the mailbox part.
		addr := strings.Trim(sender, "<> ")
		if at := strings.Index(addr, "@"); at > 0 {
			name = addr[:at]
		} else {
			name = addr
		}
	}
	return name
}

var subjectPrefixes = []string{"fwd:", "fw:", "re:", "rv:"}

// cleanSubject strips forwarding prefixes and caps length for use as a
// fallback headline.
func cleanSubject(subject string) string {
	cleaned := strings.TrimSpace(subject)
	for changed := true; changed; {
		changed = false
		lowered := strings.ToLower(cleaned)
		for _, prefix := range subjectPrefixes {
			if strings.HasPrefix(lowered, prefix) {
				cleaned = strings.TrimSpace(cleaned[len(prefix):])
				changed = true
				break
			}
		}
	}
	if runes := []rune(cleaned); len(runes) > 80 {
		cut := string(runes[:80])
		if idx := strings.LastIndex(cut, " "); idx > 40 {
			cut = cut[:idx]
		}
		cleaned = cut + "..."
	}
	return cleaned
}
