package analytics

import (
	"regexp"
	"strings"
)

var emotionKeywords = map[string][]string{
	"joy":      {"happy", "excited", "delighted", "pleased", "satisfied", "thrilled"},
	"anger":    {"angry", "furious", "outraged", "irritated", "frustrated", "annoyed"},
	"fear":     {"afraid", "scared", "terrified", "worried", "anxious", "concerned"},
	"sadness":  {"sad", "depressed", "disappointed", "upset", "grief", "sorrow"},
	"surprise": {"surprised", "shocked", "amazed", "astonished", "stunned"},
}

var (
	orgPattern  = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\s+(?:Inc|Corp|Ltd|LLC|Company)\b`)
	datePattern = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b|\b\d{4}\b`)
	locPattern  = regexp.MustCompile(`\b([A-Z][a-z]+),\s*[A-Z]{2}\b`)
)

// DetectEmotion picks the dominant emotion by keyword count; "neutral" when
// no keyword matches.
func DetectEmotion(text string) string {
	lowered := strings.ToLower(text)

	best := "neutral"
	bestScore := 0
	// Fixed iteration order keeps the result stable across runs.
	for _, emotion := range []string{"joy", "anger", "fear", "sadness", "surprise"} {
		score := 0
		for _, kw := range emotionKeywords[emotion] {
			if strings.Contains(lowered, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = emotion
		}
	}
	return best
}

// ReadabilityScore maps sentence length and word complexity into 0..100,
// higher meaning more readable.
func ReadabilityScore(text string) float64 {
	sentences := strings.Split(text, ".")
	words := strings.Fields(text)
	if len(sentences) == 0 || len(words) == 0 {
		return 0
	}

	avgSentenceLength := float64(len(words)) / float64(len(sentences))
	complexWords := 0
	for _, w := range words {
		if len(w) > 6 {
			complexWords++
		}
	}

	readability := (avgSentenceLength + float64(complexWords)/float64(len(words))*100) / 2
	score := 100 - readability
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Entities holds the results of simple pattern-based entity extraction.
type Entities struct {
	Organizations []string `json:"organizations"`
	Locations     []string `json:"locations"`
	Dates         []string `json:"dates"`
}

func ExtractEntities(text string) Entities {
	var e Entities
	for _, m := range orgPattern.FindAllStringSubmatch(text, -1) {
		e.Organizations = append(e.Organizations, m[1])
	}
	e.Dates = datePattern.FindAllString(text, -1)
	for _, m := range locPattern.FindAllStringSubmatch(text, -1) {
		e.Locations = append(e.Locations, m[1])
	}
	return e
}
