package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentaiment/report-cli/internal/model"
)

func fixedTime() time.Time {
	return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
}

func TestReconcile_EmptyInputYieldsPlaceholderDocument(t *testing.T) {
	doc := New(WithClock(fixedTime)).Reconcile(nil)

	require.NotNil(t, doc)
	require.Len(t, doc.Scenarios, 1)
	assert.Equal(t, model.PlaceholderScenarioTitle, doc.Scenarios[0].Title)
	assert.NotNil(t, doc.Scenarios[0].RankedCompetitors)
	assert.Empty(t, doc.Scenarios[0].RankedCompetitors)
	assert.Equal(t, "Unknown Company", doc.Company)
	assert.Equal(t, 0, doc.Metadata.TotalScenarios)
	assert.Equal(t, fixedTime(), doc.Metadata.GeneratedAt)
}

func TestReconcile_ExplicitCompanyOverridesEverything(t *testing.T) {
	frags := []model.Fragment{{Data: map[string]any{
		"company": "Fragment Hotels",
		"scenarios": []any{
			map[string]any{"scenario_id": 1.0, "title": "Explicit Override Check", "competitors_ranked": []any{
				map[string]any{"company": "Beta", "rank": 1.0},
			}},
		},
	}}}

	doc := New(WithCompany("Override Corp"), WithClock(fixedTime)).Reconcile(frags)
	assert.Equal(t, "Override Corp", doc.Company)
	assert.False(t, doc.Metadata.CompanyInferred)
}

func TestReconcile_PlaceholderOverrideFallsThrough(t *testing.T) {
	frags := []model.Fragment{{Data: map[string]any{"company_name": "Fragment Hotels"}}}

	doc := New(WithCompany("Unknown Company")).Reconcile(frags)
	assert.Equal(t, "Fragment Hotels", doc.Company)
}

func TestReconcile_CompanyFromReportMetadata(t *testing.T) {
	frags := []model.Fragment{{Data: map[string]any{
		"report_metadata": map[string]any{"target_company": "Meta Hotels"},
	}}}

	doc := New().Reconcile(frags)
	assert.Equal(t, "Meta Hotels", doc.Company)
	assert.False(t, doc.Metadata.CompanyInferred)
}

func TestReconcile_CompanyInferredFromStandings(t *testing.T) {
	frags := []model.Fragment{{Data: map[string]any{
		"scenarios": []any{
			map[string]any{"scenario_id": 1.0, "title": "Inference Input Scenario", "competitors_ranked": []any{
				map[string]any{"company": "Acme Hotels", "rank": 1.0},
				map[string]any{"company": "Beta Resorts", "rank": 2.0},
			}},
			map[string]any{"scenario_id": 2.0, "title": "Second Inference Input", "competitors_ranked": []any{
				map[string]any{"company": "Acme Hotels", "rank": 1.0},
				map[string]any{"company": "Beta Resorts", "rank": 2.0},
			}},
		},
	}}}

	doc := New().Reconcile(frags)
	assert.Equal(t, "Acme Hotels", doc.Company)
	assert.True(t, doc.Metadata.CompanyInferred)
}

func TestReconcile_MergesAcrossFragments(t *testing.T) {
	frags := []model.Fragment{
		{Branch: "extraction", Data: map[string]any{
			"scenario_rankings": []any{
				map[string]any{"scenario_id": 1.0, "title": "Authoritative Ranked Title", "competitors_ranked": []any{
					map[string]any{"company": "Acme", "rank": 1.0},
				}},
			},
			"enhanced_citations": []any{
				map[string]any{"claim_text": "Acme leads", "source_url": "https://example.com/r?utm_source=x"},
			},
		}},
		{Branch: "raw", Data: map[string]any{
			"scenarios": []any{
				map[string]any{"scenario_id": 1.0, "title": "Scenario 1"},
				map[string]any{"scenario_id": 2.0, "title": "Second Scenario Candidate"},
			},
			"citations": []any{
				map[string]any{"claim_text": "Acme leads", "source_url": "https://example.com/r"},
			},
		}},
	}

	doc := New(WithClock(fixedTime)).Reconcile(frags)

	require.Len(t, doc.Scenarios, 2)
	assert.Equal(t, "Authoritative Ranked Title", doc.Scenarios[0].Title)
	assert.Equal(t, "Second Scenario Candidate", doc.Scenarios[1].Title)

	require.Len(t, doc.Citations, 1, "tracking-param variant must deduplicate")
	assert.Equal(t, model.DefaultAuthorityScore, doc.Citations[0].AuthorityScore)

	require.Len(t, doc.SourcesTable, 1)
	assert.Equal(t, 1, doc.SourcesTable[0].Citations)

	assert.Equal(t, 2, doc.Metadata.TotalScenarios)
	assert.Equal(t, 2, doc.Metadata.FragmentsConsumed)
	assert.Equal(t, []string{"Acme"}, doc.Metadata.CompetitorsAnalyzed)
}

func TestReconcile_DeterministicForSameInput(t *testing.T) {
	frags := []model.Fragment{{Data: map[string]any{
		"scenarios": []any{
			map[string]any{"scenario_id": 2.0, "title": "Determinism Check Two"},
			map[string]any{"scenario_id": 1.0, "title": "Determinism Check One"},
		},
	}}}

	r := New(WithCompany("Acme"), WithClock(fixedTime))
	first := r.Reconcile(frags)
	second := r.Reconcile(frags)
	assert.Equal(t, first, second)
}
