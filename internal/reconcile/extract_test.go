package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject_Structured(t *testing.T) {
	obj, level := ExtractObject(`{"title": "Budget Travel Comparison", "scenario_id": 2}`)
	require.NotNil(t, obj)
	assert.Equal(t, LevelStructured, level)
	assert.Equal(t, "Budget Travel Comparison", obj["title"])
}

func TestExtractObject_FencedBlock(t *testing.T) {
	text := "Here is the analysis you asked for:\n```json\n{\"title\": \"Luxury Suite Comparison\"}\n```\nLet me know if you need more."
	obj, level := ExtractObject(text)
	require.NotNil(t, obj)
	assert.Equal(t, LevelFenced, level)
	assert.Equal(t, "Luxury Suite Comparison", obj["title"])
}

func TestExtractObject_BraceMatched(t *testing.T) {
	text := `Sure! The result is {"scenario_id": 4, "title": "Family Stay Rankings"} as requested.`
	obj, level := ExtractObject(text)
	require.NotNil(t, obj)
	assert.Equal(t, LevelBraceMatched, level)
	assert.Equal(t, float64(4), obj["scenario_id"])
}

func TestExtractObject_BraceMatchedIgnoresBracesInStrings(t *testing.T) {
	text := `prefix {"title": "Uses {curly} braces", "note": "escaped \" quote"} suffix`
	obj, level := ExtractObject(text)
	require.NotNil(t, obj)
	assert.Equal(t, LevelBraceMatched, level)
	assert.Equal(t, "Uses {curly} braces", obj["title"])
}

func TestExtractObject_RegexScrape(t *testing.T) {
	// Truncated output: the object never closes, so only field scraping works.
	text := `{"scenario_id": 7, "title": "Airport Hotel Shootout", "competitors_ranked": [{"company": "Acme Hotels"}, {"company": "Beta Resorts"`
	obj, level := ExtractObject(text)
	require.NotNil(t, obj)
	assert.Equal(t, LevelRegexScrape, level)
	assert.Equal(t, "Airport Hotel Shootout", obj["title"])
	assert.Equal(t, float64(7), obj["scenario_id"])
	assert.NotEmpty(t, obj["error"], "scraped objects must carry an error marker")

	comps, ok := obj["competitors_ranked"].([]any)
	require.True(t, ok)
	assert.Len(t, comps, 2)
}

func TestExtractObject_Empty(t *testing.T) {
	for _, text := range []string{"", "   ", "no json here at all"} {
		obj, level := ExtractObject(text)
		assert.Nil(t, obj)
		assert.Equal(t, LevelEmpty, level)
	}
}

func TestBalancedBraceSpan(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{`before {"a": {"b": 2}} after`, `{"a": {"b": 2}}`},
		{`{"a": "}"}`, `{"a": "}"}`},
		{`{"never": "closes"`, ""},
		{`no braces`, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, balancedBraceSpan(tc.in), "input: %s", tc.in)
	}
}

func TestDegradationLevel_String(t *testing.T) {
	assert.Equal(t, "structured", LevelStructured.String())
	assert.Equal(t, "fenced", LevelFenced.String())
	assert.Equal(t, "brace_matched", LevelBraceMatched.String())
	assert.Equal(t, "regex_scrape", LevelRegexScrape.String())
	assert.Equal(t, "empty", LevelEmpty.String())
}
