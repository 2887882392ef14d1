package reconcile

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sentaiment/report-cli/internal/model"
)

// genericTitleRe matches the placeholder titles upstream branches emit when
// they never produced a real one ("Scenario 3").
var genericTitleRe = regexp.MustCompile(`^Scenario\s+\d+$`)

// DeriveCompetitors synthesizes a ranking from an analysis_details map keyed
// by company name, for candidates that carry per-company analysis but no
// explicit ranking. Each company's score is the mean of its numeric metrics;
// the rationale concatenates summary and highlights. Companies sort
// descending by derived score and receive contiguous ranks.
func DeriveCompetitors(details map[string]any) []model.RankedCompetitor {
	var out []model.RankedCompetitor
	for company, raw := range details {
		entry, ok := toMap(raw)
		if !ok {
			continue
		}

		c := model.RankedCompetitor{Company: company}
		if metrics, ok := toMap(entry["metrics"]); ok {
			c.Metrics = map[string]float64{}
			sum, n := 0.0, 0
			for k, v := range metrics {
				f, ok := toFloat64(v)
				if !ok {
					continue
				}
				c.Metrics[k] = f
				sum += f
				n++
			}
			if n > 0 {
				score := sum / float64(n)
				c.Score = &score
			}
		}

		var parts []string
		if s := toString(entry["summary"]); s != "" {
			parts = append(parts, s)
		}
		if hl := toStringSlice(entry["highlights"]); len(hl) > 0 {
			parts = append(parts, strings.Join(hl, " "))
		} else if s := toString(entry["highlights"]); s != "" {
			parts = append(parts, s)
		}
		c.Rationale = strings.Join(parts, " ")

		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		si, sj := scoreOrZero(out[i]), scoreOrZero(out[j])
		if si != sj {
			return si > sj
		}
		return out[i].Company < out[j].Company
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func scoreOrZero(c model.RankedCompetitor) float64 {
	if c.Score == nil {
		return 0
	}
	return *c.Score
}

// MergeScenarios groups candidates by scenario id and selects one winner
// per group, then finalizes each winner's ranking. The output is sorted by
// id. Winner priority within a group:
//
//  1. a high-priority candidate (came through full extraction)
//  2. a non-generic title (not "Scenario {id}", longer than 10 chars)
//  3. the larger competitors+sources completeness count
//
// Ties keep the first-seen candidate, so merging is stable with respect to
// input order.
func MergeScenarios(candidates []model.Scenario) []model.Scenario {
	groups := map[int]model.Scenario{}
	var order []int

	for _, cand := range candidates {
		existing, seen := groups[cand.ID]
		if !seen {
			groups[cand.ID] = cand
			order = append(order, cand.ID)
			continue
		}
		if candidateBeats(cand, existing) {
			zap.L().Debug("reconcile: replacing scenario candidate",
				zap.Int("scenario_id", cand.ID),
				zap.String("kept_title", cand.Title),
				zap.String("dropped_title", existing.Title),
			)
			groups[cand.ID] = cand
		}
	}

	out := make([]model.Scenario, 0, len(order))
	for _, id := range order {
		out = append(out, finalizeScenario(groups[id]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// candidateBeats reports whether challenger should replace incumbent.
// Strictly-better on a higher-priority criterion wins; equal criteria fall
// through to the next. A full tie keeps the incumbent (first seen).
func candidateBeats(challenger, incumbent model.Scenario) bool {
	if challenger.HighPriority != incumbent.HighPriority {
		return challenger.HighPriority
	}

	cTitle, iTitle := hasRealTitle(challenger), hasRealTitle(incumbent)
	if cTitle != iTitle {
		return cTitle
	}

	return completeness(challenger) > completeness(incumbent)
}

func hasRealTitle(sc model.Scenario) bool {
	return len(sc.Title) > 10 && !genericTitleRe.MatchString(sc.Title)
}

func completeness(sc model.Scenario) int {
	return len(sc.RankedCompetitors) + len(sc.Sources)
}

// finalizeScenario enforces the scenario invariants: competitors ordered by
// their claimed rank (input order breaking ties), duplicate company names
// dropped (first kept), ranks renumbered to a contiguous 1..N, and a
// fallback title filled in when none survived the merge.
func finalizeScenario(sc model.Scenario) model.Scenario {
	comps := make([]model.RankedCompetitor, len(sc.RankedCompetitors))
	copy(comps, sc.RankedCompetitors)

	sort.SliceStable(comps, func(i, j int) bool {
		ri, rj := comps[i].Rank, comps[j].Rank
		if ri <= 0 {
			ri = len(comps) + 1
		}
		if rj <= 0 {
			rj = len(comps) + 1
		}
		return ri < rj
	})

	deduped := comps[:0]
	seen := map[string]bool{}
	for _, c := range comps {
		key := strings.ToLower(strings.TrimSpace(c.Company))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, c)
	}
	for i := range deduped {
		deduped[i].Rank = i + 1
	}
	sc.RankedCompetitors = deduped

	if strings.TrimSpace(sc.Title) == "" {
		sc.Title = fmt.Sprintf("Scenario %d", sc.ID)
	}
	return sc
}
