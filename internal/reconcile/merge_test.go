package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentaiment/report-cli/internal/model"
)

func f64(v float64) *float64 { return &v }

func TestDeriveCompetitors_ScoreIsMetricMean(t *testing.T) {
	details := map[string]any{
		"Acme Hotels": map[string]any{
			"metrics":    map[string]any{"quality": 8.0, "value": 6.0},
			"summary":    "Strong brand presence.",
			"highlights": []any{"Wide coverage", "Loyal base"},
		},
	}

	comps := DeriveCompetitors(details)
	require.Len(t, comps, 1)
	assert.Equal(t, "Acme Hotels", comps[0].Company)
	require.NotNil(t, comps[0].Score)
	assert.Equal(t, 7.0, *comps[0].Score)
	assert.Equal(t, 1, comps[0].Rank)
	assert.Contains(t, comps[0].Rationale, "Strong brand presence.")
	assert.Contains(t, comps[0].Rationale, "Wide coverage")
}

func TestDeriveCompetitors_RanksDescendingByScore(t *testing.T) {
	details := map[string]any{
		"Beta":  map[string]any{"metrics": map[string]any{"quality": 5.0}},
		"Acme":  map[string]any{"metrics": map[string]any{"quality": 9.0}},
		"Gamma": map[string]any{"metrics": map[string]any{"quality": 7.0}},
	}

	comps := DeriveCompetitors(details)
	require.Len(t, comps, 3)
	assert.Equal(t, "Acme", comps[0].Company)
	assert.Equal(t, "Gamma", comps[1].Company)
	assert.Equal(t, "Beta", comps[2].Company)
	for i, c := range comps {
		assert.Equal(t, i+1, c.Rank)
	}
}

func TestDeriveCompetitors_NonNumericMetricsSkipped(t *testing.T) {
	details := map[string]any{
		"Acme": map[string]any{
			"metrics": map[string]any{"quality": 8.0, "note": "not a number"},
		},
	}

	comps := DeriveCompetitors(details)
	require.Len(t, comps, 1)
	require.NotNil(t, comps[0].Score)
	assert.Equal(t, 8.0, *comps[0].Score)
	assert.Len(t, comps[0].Metrics, 1)
}

func TestMergeScenarios_HighPriorityWins(t *testing.T) {
	merged := MergeScenarios([]model.Scenario{
		{ID: 1, Title: "A rich raw-branch title", RankedCompetitors: []model.RankedCompetitor{
			{Company: "Acme", Rank: 1}, {Company: "Beta", Rank: 2}, {Company: "Gamma", Rank: 3},
		}},
		{ID: 1, Title: "Short", HighPriority: true},
	})

	require.Len(t, merged, 1)
	assert.Equal(t, "Short", merged[0].Title)
	assert.True(t, merged[0].HighPriority)
}

func TestMergeScenarios_RealTitleBeatsGeneric(t *testing.T) {
	merged := MergeScenarios([]model.Scenario{
		{ID: 3, Title: "Scenario 3", RankedCompetitors: []model.RankedCompetitor{
			{Company: "Acme", Rank: 1},
		}},
		{ID: 3, Title: "Luxury Suite Comparison", RankedCompetitors: []model.RankedCompetitor{
			{Company: "Acme", Rank: 1}, {Company: "Beta", Rank: 2},
			{Company: "Gamma", Rank: 3}, {Company: "Delta", Rank: 4},
		}},
	})

	require.Len(t, merged, 1)
	assert.Equal(t, "Luxury Suite Comparison", merged[0].Title)
	assert.Len(t, merged[0].RankedCompetitors, 4)
}

func TestMergeScenarios_ShortTitleCountsAsGeneric(t *testing.T) {
	// Ten characters or fewer never counts as a real title.
	merged := MergeScenarios([]model.Scenario{
		{ID: 2, Title: "Budget"},
		{ID: 2, Title: "Budget Stay Rankings"},
	})

	require.Len(t, merged, 1)
	assert.Equal(t, "Budget Stay Rankings", merged[0].Title)
}

func TestMergeScenarios_CompletenessBreaksTitleTie(t *testing.T) {
	merged := MergeScenarios([]model.Scenario{
		{ID: 5, Title: "Extended Stay Rankings", RankedCompetitors: []model.RankedCompetitor{
			{Company: "Acme", Rank: 1},
		}},
		{ID: 5, Title: "Weekend Trip Rankings",
			RankedCompetitors: []model.RankedCompetitor{
				{Company: "Acme", Rank: 1}, {Company: "Beta", Rank: 2},
			},
			Sources: []model.SourceRef{{URL: "https://example.com/report"}},
		},
	})

	require.Len(t, merged, 1)
	assert.Equal(t, "Weekend Trip Rankings", merged[0].Title)
}

func TestMergeScenarios_FullTieKeepsFirstSeen(t *testing.T) {
	merged := MergeScenarios([]model.Scenario{
		{ID: 4, Title: "First Candidate Title", RankedCompetitors: []model.RankedCompetitor{{Company: "Acme", Rank: 1}}},
		{ID: 4, Title: "Second Candidate Title", RankedCompetitors: []model.RankedCompetitor{{Company: "Beta", Rank: 1}}},
	})

	require.Len(t, merged, 1)
	assert.Equal(t, "First Candidate Title", merged[0].Title)
}

func TestMergeScenarios_SortedByID(t *testing.T) {
	merged := MergeScenarios([]model.Scenario{
		{ID: 3, Title: "Third Scenario Title"},
		{ID: 1, Title: "First Scenario Title"},
		{ID: 2, Title: "Second Scenario Title"},
	})

	require.Len(t, merged, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{merged[0].ID, merged[1].ID, merged[2].ID})
}

func TestFinalizeScenario_RanksContiguousAfterDedupe(t *testing.T) {
	sc := finalizeScenario(model.Scenario{
		ID:    2,
		Title: "Budget Travel Comparison",
		RankedCompetitors: []model.RankedCompetitor{
			{Company: "Gamma", Rank: 5},
			{Company: "Acme", Rank: 1},
			{Company: "acme", Rank: 3}, // duplicate, case-insensitive
			{Company: "Beta", Rank: 2},
		},
	})

	require.Len(t, sc.RankedCompetitors, 3)
	assert.Equal(t, "Acme", sc.RankedCompetitors[0].Company)
	assert.Equal(t, "Beta", sc.RankedCompetitors[1].Company)
	assert.Equal(t, "Gamma", sc.RankedCompetitors[2].Company)
	for i, c := range sc.RankedCompetitors {
		assert.Equal(t, i+1, c.Rank, "ranks must be contiguous from 1")
	}
}

func TestFinalizeScenario_UnrankedSortLast(t *testing.T) {
	sc := finalizeScenario(model.Scenario{
		ID: 1,
		RankedCompetitors: []model.RankedCompetitor{
			{Company: "NoRank"},
			{Company: "Acme", Rank: 1},
		},
	})

	require.Len(t, sc.RankedCompetitors, 2)
	assert.Equal(t, "Acme", sc.RankedCompetitors[0].Company)
	assert.Equal(t, "NoRank", sc.RankedCompetitors[1].Company)
}

func TestFinalizeScenario_FallbackTitle(t *testing.T) {
	sc := finalizeScenario(model.Scenario{ID: 9})
	assert.Equal(t, "Scenario 9", sc.Title)
}
