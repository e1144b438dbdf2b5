package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectEmotion(t *testing.T) {
	assert.Equal(t, "joy", DetectEmotion("Fans were thrilled and delighted by the result"))
	assert.Equal(t, "anger", DetectEmotion("Residents are furious and outraged over the decision"))
	assert.Equal(t, "fear", DetectEmotion("Investors remain worried and anxious"))
	assert.Equal(t, "neutral", DetectEmotion("The committee met on Tuesday"))
	assert.Equal(t, "neutral", DetectEmotion(""))
}

func TestReadabilityScoreBounds(t *testing.T) {
	assert.Equal(t, 0.0, ReadabilityScore(""))

	simple := ReadabilityScore("The cat sat. The dog ran. It was fun.")
	dense := ReadabilityScore("Notwithstanding macroeconomic considerations, quantitative tightening disproportionately influences speculative instruments.")
	assert.Greater(t, simple, dense)
	assert.GreaterOrEqual(t, simple, 0.0)
	assert.LessOrEqual(t, simple, 100.0)
}

func TestExtractEntities(t *testing.T) {
	text := "Acme Corp announced a merger in Austin, TX on 12/05/2026, following its 2025 results."
	e := ExtractEntities(text)

	assert.Contains(t, e.Organizations, "Acme")
	assert.Contains(t, e.Locations, "Austin")
	assert.Contains(t, e.Dates, "12/05/2026")
	assert.Contains(t, e.Dates, "2025")
}
