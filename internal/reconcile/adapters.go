package reconcile

import (
	"go.uber.org/zap"

	"github.com/sentaiment/report-cli/internal/model"
)

// scenarioAdapter recognizes one known upstream fragment shape and
// normalizes it to candidate scenarios. Adapters are tried in order; the
// first one that yields candidates wins for that fragment. This replaces
// the upstream scripts' ad-hoc a||b||c fallback chains with an explicit,
// ordered polymorphic set.
type scenarioAdapter struct {
	name    string
	extract func(frag map[string]any) []model.Scenario
}

// scenarioAdapters in priority order. scenario_rankings comes first: that
// key only appears on data that already passed through full extraction, so
// its candidates are flagged high priority for the merge tie-break.
var scenarioAdapters = []scenarioAdapter{
	{name: "scenario_rankings", extract: func(frag map[string]any) []model.Scenario {
		return scenariosFromList(frag["scenario_rankings"], true)
	}},
	{name: "scenarios", extract: func(frag map[string]any) []model.Scenario {
		return scenariosFromList(frag["scenarios"], false)
	}},
	{name: "original_scenarios", extract: func(frag map[string]any) []model.Scenario {
		return scenariosFromList(frag["original_scenarios"], false)
	}},
	{name: "results_response_text", extract: scenariosFromResults},
}

// CollectScenarios normalizes one fragment into candidate scenarios.
// Fragments with no recognized scenario container contribute nothing;
// that is never an error.
func CollectScenarios(frag model.Fragment) []model.Scenario {
	if frag.Data == nil {
		return nil
	}
	for _, a := range scenarioAdapters {
		if cands := a.extract(frag.Data); len(cands) > 0 {
			zap.L().Debug("reconcile: fragment matched scenario adapter",
				zap.String("adapter", a.name),
				zap.String("branch", frag.Branch),
				zap.Int("candidates", len(cands)),
			)
			return cands
		}
	}
	return nil
}

func scenariosFromList(v any, highPriority bool) []model.Scenario {
	list, ok := toSlice(v)
	if !ok {
		return nil
	}
	var out []model.Scenario
	for _, item := range list {
		m, ok := toMap(item)
		if !ok {
			continue
		}
		out = append(out, parseScenario(m, highPriority))
	}
	return out
}

// scenariosFromResults handles raw branch output: a results array whose
// entries carry free-text LLM responses with JSON embedded somewhere
// inside. Extraction is best-effort; a response that yields nothing is an
// empty contribution, never a failure.
func scenariosFromResults(frag map[string]any) []model.Scenario {
	list, ok := toSlice(frag["results"])
	if !ok {
		return nil
	}
	var out []model.Scenario
	for _, item := range list {
		m, ok := toMap(item)
		if !ok {
			continue
		}
		text := firstString(m, "response_text", "response", "text")
		if text == "" {
			continue
		}
		obj, level := ExtractObject(text)
		if obj == nil {
			continue
		}
		// The embedded object may itself be a container or a bare scenario.
		if nested := scenariosFromList(obj["scenario_rankings"], false); len(nested) > 0 {
			out = append(out, nested...)
			continue
		}
		if nested := scenariosFromList(obj["scenarios"], false); len(nested) > 0 {
			out = append(out, nested...)
			continue
		}
		sc := parseScenario(obj, false)
		if level >= LevelRegexScrape && sc.Error == "" {
			sc.Error = "recovered by field scraping; structured parse failed"
		}
		out = append(out, sc)
	}
	return out
}

// parseScenario normalizes one scenario-shaped object to the canonical
// type. Missing competitors fall back to derivation from analysis_details
// when present. Ranks are left as found; the merge stage renumbers them.
func parseScenario(m map[string]any, highPriority bool) model.Scenario {
	sc := model.Scenario{
		Title:        firstString(m, "title", "scenario_title", "name"),
		Description:  firstString(m, "description", "scenario_description", "summary"),
		KeyFindings:  toStringSlice(m["key_findings"]),
		HighPriority: highPriority,
		Error:        toString(m["error"]),
	}
	if id, ok := toInt(m["scenario_id"]); ok {
		sc.ID = id
	} else if id, ok := toInt(m["id"]); ok {
		sc.ID = id
	}

	for _, key := range []string{"competitors_ranked", "top_competitors", "ranked_competitors"} {
		if comps := parseCompetitors(m[key]); len(comps) > 0 {
			sc.RankedCompetitors = comps
			break
		}
	}
	if len(sc.RankedCompetitors) == 0 {
		if details, ok := toMap(m["analysis_details"]); ok {
			sc.RankedCompetitors = DeriveCompetitors(details)
		}
	}

	sc.Sources = parseSources(m["sources"])
	return sc
}

func parseCompetitors(v any) []model.RankedCompetitor {
	list, ok := toSlice(v)
	if !ok {
		return nil
	}
	var out []model.RankedCompetitor
	for i, item := range list {
		switch val := item.(type) {
		case string:
			if val == "" {
				continue
			}
			out = append(out, model.RankedCompetitor{Company: val, Rank: i + 1})
		case map[string]any:
			c := model.RankedCompetitor{
				Company:   firstString(val, "company", "name", "competitor"),
				Rationale: firstString(val, "rationale", "reasoning", "justification"),
				Rank:      i + 1,
			}
			if c.Company == "" {
				continue
			}
			if score, ok := toFloat64(val["score"]); ok {
				c.Score = &score
			}
			if rank, ok := toInt(val["rank"]); ok && rank > 0 {
				c.Rank = rank
			}
			if metrics, ok := toMap(val["metrics"]); ok {
				c.Metrics = map[string]float64{}
				for k, mv := range metrics {
					if f, ok := toFloat64(mv); ok {
						c.Metrics[k] = f
					}
				}
			}
			out = append(out, c)
		}
	}
	return out
}

func parseSources(v any) []model.SourceRef {
	list, ok := toSlice(v)
	if !ok {
		return nil
	}
	var out []model.SourceRef
	for _, item := range list {
		switch val := item.(type) {
		case string:
			if val != "" {
				out = append(out, model.SourceRef{URL: val})
			}
		case map[string]any:
			ref := model.SourceRef{
				Title: firstString(val, "title", "name"),
				URL:   firstString(val, "url", "source_url", "link"),
			}
			if ref.URL != "" || ref.Title != "" {
				out = append(out, ref)
			}
		}
	}
	return out
}

// citationContainerKeys are every recognized citation container. Unlike
// scenarios, citations are collected from all matching keys in a fragment,
// since branches routinely split citations across containers.
var citationContainerKeys = []string{
	"enhanced_citations",
	"source_citations",
	"scraping_results",
	"research_results",
	"citations",
}

// CollectCitations normalizes one fragment's citations. A bare fragment
// that itself looks like a citation (claim_text + source_url at top level)
// also contributes.
func CollectCitations(frag model.Fragment) []model.Citation {
	if frag.Data == nil {
		return nil
	}
	var out []model.Citation
	for _, key := range citationContainerKeys {
		list, ok := toSlice(frag.Data[key])
		if !ok {
			continue
		}
		for _, item := range list {
			m, ok := toMap(item)
			if !ok {
				continue
			}
			if c, ok := parseCitation(m); ok {
				out = append(out, c)
			}
		}
	}
	if c, ok := parseCitation(frag.Data); ok {
		out = append(out, c)
	}
	return out
}

// parseCitation reads one citation-shaped object. Defaults are NOT applied
// here: absent fields stay zero so the dedupe stage can distinguish
// "missing" from "present" when filling from a richer duplicate.
func parseCitation(m map[string]any) (model.Citation, bool) {
	c := model.Citation{
		ClaimText:   firstString(m, "claim_text", "claim"),
		SourceURL:   firstString(m, "source_url", "url", "link"),
		SourceTitle: firstString(m, "source_title", "title"),
	}
	if c.ClaimText == "" || c.SourceURL == "" {
		return model.Citation{}, false
	}
	if score, ok := toInt(m["authority_score"]); ok {
		c.AuthorityScore = clampAuthority(score)
	}
	if s := toString(m["verification_status"]); s != "" {
		c.VerificationStatus = model.VerificationStatus(s)
	}
	if s := firstString(m, "source_origin", "origin"); s != "" {
		c.SourceOrigin = model.SourceOrigin(s)
	}
	if w, ok := toFloat64(m["influence_weight"]); ok {
		w = clamp01(w)
		c.InfluenceWeight = &w
	}
	if id, ok := toInt(m["scenario_id"]); ok {
		c.ScenarioID = id
	}
	return c, true
}

func clampAuthority(v int) int {
	if v < model.MinAuthorityScore {
		return model.MinAuthorityScore
	}
	if v > model.MaxAuthorityScore {
		return model.MaxAuthorityScore
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
