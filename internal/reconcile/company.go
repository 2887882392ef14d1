package reconcile

import (
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sentaiment/report-cli/internal/model"
)

// placeholderCompanyNames is the reserved set an explicit company field must
// not match to be considered valid.
var placeholderCompanyNames = map[string]bool{
	"":                true,
	"report":          true,
	"unknown company": true,
	"company":         true,
	"target company":  true,
}

// companySuffixes are trailing descriptor words stripped before grouping so
// name variants ("Acme", "Acme Hotels", "Acme Hotels Inc") collapse onto
// one key. Checked repeatedly: "ACME HOTELS GROUP" strips to "ACME".
var companySuffixes = map[string]bool{
	"HOTELS": true, "HOTEL": true,
	"RESORTS": true, "RESORT": true,
	"GROUP": true, "INC": true, "CORP": true, "CORPORATION": true,
	"LLC": true, "LTD": true, "LIMITED": true, "CO": true, "COMPANY": true,
	"INTERNATIONAL": true, "WORLDWIDE": true, "COLLECTION": true,
	"HOLDINGS": true, "BRANDS": true,
}

var companyPunctRe = regexp.MustCompile(`[.,'"&-]+`)
var companySpaceRe = regexp.MustCompile(`\s{2,}`)

// ValidCompanyName reports whether an explicit company field carries a real
// name rather than a reserved placeholder.
func ValidCompanyName(name string) bool {
	return !placeholderCompanyNames[strings.ToLower(strings.TrimSpace(name))]
}

// CompanyKey normalizes a company name for cross-scenario grouping:
// uppercase, punctuation stripped, trailing descriptor suffixes removed,
// whitespace collapsed. Never returns an empty key for a non-empty name:
// if stripping would consume the whole name, the unstripped form is kept
// ("Hotel Group" stays "HOTEL GROUP" rather than vanishing).
func CompanyKey(name string) string {
	key := strings.ToUpper(strings.TrimSpace(name))
	if key == "" {
		return ""
	}
	key = companyPunctRe.ReplaceAllString(key, " ")
	key = companySpaceRe.ReplaceAllString(key, " ")
	key = strings.TrimSpace(key)

	words := strings.Fields(key)
	for _, w := range words {
		if !companySuffixes[w] {
			for len(words) > 1 && companySuffixes[words[len(words)-1]] {
				words = words[:len(words)-1]
			}
			return strings.Join(words, " ")
		}
	}
	// Every word is a descriptor suffix; stripping would consume the name.
	return key
}

// companyStanding accumulates one competitor's appearances while scanning
// scenarios.
type companyStanding struct {
	display   string // first-seen raw name, used for output
	mentions  int
	wins      int
	sumScore  float64
	scoreN    int
	sumPos    int
}

// collectStandings folds every competitor appearance across scenarios into
// per-company aggregates keyed by normalized name. Insertion order is
// preserved so downstream sorts stay stable with respect to first mention.
func collectStandings(scenarios []model.Scenario) (map[string]*companyStanding, []string) {
	standings := map[string]*companyStanding{}
	var order []string

	for _, sc := range scenarios {
		for _, c := range sc.RankedCompetitors {
			key := CompanyKey(c.Company)
			if key == "" {
				continue
			}
			st, ok := standings[key]
			if !ok {
				st = &companyStanding{display: c.Company}
				standings[key] = st
				order = append(order, key)
			}
			st.mentions++
			st.sumPos += c.Rank
			if c.Rank == 1 {
				st.wins++
			}
			if c.Score != nil {
				st.sumScore += *c.Score
				st.scoreN++
			}
		}
	}
	return standings, order
}

// InferCompany picks the report's target company when no explicit, valid
// name was provided: the competitor with the highest composite score
// mentions*2 + avgScore - avgPosition*0.5 across all scenarios, where
// position is the 1-indexed rank. Returns false when no competitor exists
// anywhere.
func InferCompany(scenarios []model.Scenario) (string, bool) {
	standings, order := collectStandings(scenarios)
	if len(order) == 0 {
		return "", false
	}

	composite := func(st *companyStanding) float64 {
		avgScore := 0.0
		if st.scoreN > 0 {
			avgScore = st.sumScore / float64(st.scoreN)
		}
		avgPos := float64(st.sumPos) / float64(st.mentions)
		return float64(st.mentions)*2 + avgScore - avgPos*0.5
	}

	best := order[0]
	for _, key := range order[1:] {
		if composite(standings[key]) > composite(standings[best]) {
			best = key
		}
	}

	winner := standings[best]
	zap.L().Info("reconcile: inferred target company",
		zap.String("company", winner.display),
		zap.Int("mentions", winner.mentions),
		zap.Int("wins", winner.wins),
	)
	return winner.display, true
}

// BuildHeadToHead builds the cross-scenario aggregate ranking: per company,
// wins (rank 1 appearances), scenario count, average position, and win
// rate. Sorted by win rate descending, average position ascending, company
// name as the final deterministic tiebreak.
func BuildHeadToHead(scenarios []model.Scenario) []model.HeadToHeadRow {
	standings, order := collectStandings(scenarios)

	rows := make([]model.HeadToHeadRow, 0, len(order))
	for _, key := range order {
		st := standings[key]
		rows = append(rows, model.HeadToHeadRow{
			Company:     st.display,
			Wins:        st.wins,
			Scenarios:   st.mentions,
			AvgPosition: float64(st.sumPos) / float64(st.mentions),
			WinRate:     float64(st.wins) / float64(st.mentions),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].WinRate != rows[j].WinRate {
			return rows[i].WinRate > rows[j].WinRate
		}
		if rows[i].AvgPosition != rows[j].AvgPosition {
			return rows[i].AvgPosition < rows[j].AvgPosition
		}
		return rows[i].Company < rows[j].Company
	})
	return rows
}
