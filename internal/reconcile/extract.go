package reconcile

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// DegradationLevel records how far down the extraction ladder a payload fell
// before it yielded a usable object. Levels are ordered: lower is better.
type DegradationLevel int

const (
	LevelStructured DegradationLevel = iota // clean JSON parse
	LevelFenced                             // parsed from a ```json fenced block
	LevelBraceMatched                       // parsed from a balanced {...} span
	LevelRegexScrape                        // individual fields scraped by regex
	LevelEmpty                              // nothing usable
)

func (l DegradationLevel) String() string {
	switch l {
	case LevelStructured:
		return "structured"
	case LevelFenced:
		return "fenced"
	case LevelBraceMatched:
		return "brace_matched"
	case LevelRegexScrape:
		return "regex_scrape"
	default:
		return "empty"
	}
}

var (
	fencedRe      = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	titleRe       = regexp.MustCompile(`"title"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	descriptionRe = regexp.MustCompile(`"description"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	scenarioIDRe  = regexp.MustCompile(`"scenario_id"\s*:\s*(\d+)`)
	companyRe     = regexp.MustCompile(`"(?:company|name)"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// ExtractObject pulls a JSON object out of free text produced by an LLM.
// It walks a strict fallback ladder: structured parse, fenced-block
// extraction, balanced-brace substring, regex field scraping, empty. Each
// degradation below structured is logged so silent data loss is visible in
// the run log. A nil map means nothing usable was found.
func ExtractObject(text string) (map[string]any, DegradationLevel) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, LevelEmpty
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
		return obj, LevelStructured
	}

	if m := fencedRe.FindStringSubmatch(trimmed); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &obj); err == nil {
			zap.L().Debug("extract: recovered object from fenced block")
			return obj, LevelFenced
		}
	}

	if span := balancedBraceSpan(trimmed); span != "" {
		if err := json.Unmarshal([]byte(span), &obj); err == nil {
			zap.L().Debug("extract: recovered object from brace-matched span")
			return obj, LevelBraceMatched
		}
	}

	if scraped := scrapeFields(trimmed); len(scraped) > 0 {
		zap.L().Warn("extract: fell back to regex field scraping",
			zap.Int("fields", len(scraped)),
		)
		return scraped, LevelRegexScrape
	}

	zap.L().Warn("extract: no usable object in text",
		zap.Int("length", len(trimmed)),
	)
	return nil, LevelEmpty
}

// balancedBraceSpan returns the first balanced {...} substring, counting
// braces while respecting JSON string literals and escapes. Brace counting
// (not a regex) tolerates trailing prose after the object and prose before
// it, which LLM responses routinely include.
func balancedBraceSpan(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}

// scrapeFields pulls individual known fields out of text that never parsed
// as JSON. The result is a sparse scenario-shaped map carrying an error
// marker so downstream consumers can see the degradation.
func scrapeFields(text string) map[string]any {
	out := map[string]any{}

	if m := titleRe.FindStringSubmatch(text); m != nil {
		out["title"] = unescapeScraped(m[1])
	}
	if m := descriptionRe.FindStringSubmatch(text); m != nil {
		out["description"] = unescapeScraped(m[1])
	}
	if m := scenarioIDRe.FindStringSubmatch(text); m != nil {
		if id, err := strconv.Atoi(m[1]); err == nil {
			out["scenario_id"] = float64(id)
		}
	}

	// Ranked competitors appear in order in the raw text; preserve that order.
	if names := companyRe.FindAllStringSubmatch(text, -1); len(names) > 0 {
		var competitors []any
		seen := map[string]bool{}
		for _, m := range names {
			name := unescapeScraped(m[1])
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			competitors = append(competitors, map[string]any{"company": name})
		}
		if len(competitors) > 0 {
			out["competitors_ranked"] = competitors
		}
	}

	if len(out) == 0 {
		return nil
	}
	out["error"] = "recovered by field scraping; structured parse failed"
	return out
}

func unescapeScraped(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return s
	}
	return out
}
