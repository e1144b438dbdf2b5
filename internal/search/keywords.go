package search

import (
	"regexp"
	"sort"
	"strings"
)

var wordPattern = regexp.MustCompile(`[a-zA-Z]{3,}`)

// stopWords are excluded from keyword extraction.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "day": {}, "get": {}, "has": {},
	"him": {}, "his": {}, "how": {}, "its": {}, "may": {}, "new": {},
	"now": {}, "old": {}, "see": {}, "two": {}, "way": {}, "who": {},
	"boy": {}, "did": {}, "use": {}, "make": {}, "than": {}, "them": {},
	"many": {}, "after": {}, "also": {}, "back": {}, "call": {},
	"come": {}, "even": {}, "from": {}, "give": {}, "hand": {},
	"help": {}, "keep": {}, "last": {}, "leave": {}, "most": {},
	"move": {}, "much": {}, "need": {}, "only": {}, "over": {},
	"said": {}, "same": {}, "take": {}, "tell": {}, "that": {},
	"their": {}, "there": {}, "well": {}, "were": {}, "what": {},
	"when": {}, "will": {}, "with": {}, "your": {}, "been": {},
	"called": {}, "could": {}, "find": {}, "into": {}, "look": {},
	"more": {}, "must": {}, "other": {}, "should": {}, "still": {},
	"such": {}, "time": {}, "very": {}, "want": {},
}

// ExtractKeywords runs frequency analysis over alphabetic tokens of length
// >= 3, drops stop words and keeps the top max by frequency. Ties break by
// discovery order so the result is deterministic for a given text.
func ExtractKeywords(text string, max int) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)

	freq := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, seen := freq[w]; !seen {
			firstSeen[w] = i
		}
		freq[w]++
	}

	keywords := make([]string, 0, len(freq))
	for w := range freq {
		keywords = append(keywords, w)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if freq[keywords[i]] != freq[keywords[j]] {
			return freq[keywords[i]] > freq[keywords[j]]
		}
		return firstSeen[keywords[i]] < firstSeen[keywords[j]]
	})

	if len(keywords) > max {
		keywords = keywords[:max]
	}
	return keywords
}
