package model

import "time"

// RunStatus represents the current state of a reconciliation run.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusReconciling RunStatus = "reconciling"
	RunStatusRendering   RunStatus = "rendering"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// Fragment is one raw JSON payload from a single upstream analysis branch.
// Shape is unknown and partial; the reconcile package's adapters recognize
// the known container keys inside it.
type Fragment struct {
	Branch string         `json:"branch,omitempty"` // upstream branch label, observability only
	Data   map[string]any `json:"data"`
}

// RankedCompetitor is one entry in a scenario's authoritative ranking.
// Rank 1 is best; Score may be nil when the upstream provided only an
// ordering without numeric scores.
type RankedCompetitor struct {
	Company   string             `json:"company"`
	Score     *float64           `json:"score,omitempty"`
	Rank      int                `json:"rank"`
	Rationale string             `json:"rationale,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// SourceRef is a structured source attached to a scenario.
type SourceRef struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

// Scenario is the canonical post-reconciliation scenario shape.
// Identity key across fragments is ID. Once finalized, ranks in
// RankedCompetitors form a contiguous 1..N permutation and company
// names are unique within the scenario.
type Scenario struct {
	ID                int                `json:"scenario_id"`
	Title             string             `json:"title"`
	Description       string             `json:"description,omitempty"`
	RankedCompetitors []RankedCompetitor `json:"ranked_competitors"`
	KeyFindings       []string           `json:"key_findings,omitempty"`
	Sources           []SourceRef        `json:"sources,omitempty"`
	HighPriority      bool               `json:"-"` // set when the candidate came through full extraction
	Error             string             `json:"error,omitempty"`
}

// VerificationStatus classifies how well a citation's claim is corroborated.
type VerificationStatus string

const (
	VerificationVerified    VerificationStatus = "verified"
	VerificationUnverified  VerificationStatus = "unverified"
	VerificationConflicting VerificationStatus = "conflicting"
)

// SourceOrigin identifies where a citation's evidence came from.
type SourceOrigin string

const (
	OriginTrainingData   SourceOrigin = "training_data"
	OriginRealTimeSearch SourceOrigin = "real_time_search"
	OriginHybrid         SourceOrigin = "hybrid"
	OriginWebResearch    SourceOrigin = "web_research"
	OriginCompanyFiling  SourceOrigin = "company_filing"
	OriginUnknown        SourceOrigin = "unknown"
)

// Citation default values applied when the upstream record omits a field.
const (
	DefaultAuthorityScore = 5
	MinAuthorityScore     = 1
	MaxAuthorityScore     = 10
)

// Citation is a deduplicated claim/source pair. Identity key is the
// normalized (claim text, source URL) composite.
type Citation struct {
	ClaimText          string             `json:"claim_text"`
	SourceURL          string             `json:"source_url"`
	SourceTitle        string             `json:"source_title,omitempty"`
	AuthorityScore     int                `json:"authority_score"`      // 1..10
	VerificationStatus VerificationStatus `json:"verification_status"`
	SourceOrigin       SourceOrigin       `json:"source_origin"`
	InfluenceWeight    *float64           `json:"influence_weight,omitempty"` // 0..1, nil when unreported
	ScenarioID         int                `json:"scenario_id,omitempty"`
}

// SourceRow is one entry in the report's consolidated sources table.
type SourceRow struct {
	Title     string       `json:"title"`
	URL       string       `json:"url"`
	Origin    SourceOrigin `json:"origin"`
	Citations int          `json:"citations"`
}

// HeadToHeadRow aggregates one competitor's standing across all scenarios.
type HeadToHeadRow struct {
	Company     string  `json:"company"`
	Wins        int     `json:"wins"`
	Scenarios   int     `json:"scenarios"`
	AvgPosition float64 `json:"avg_position"`
	WinRate     float64 `json:"win_rate"`
}

// ReportMetadata summarizes the reconciled document.
type ReportMetadata struct {
	TotalScenarios      int       `json:"total_scenarios"`
	CompetitorsAnalyzed []string  `json:"competitors_analyzed"`
	GeneratedAt         time.Time `json:"generated_at"`
	FragmentsConsumed   int       `json:"fragments_consumed"`
	CompanyInferred     bool      `json:"company_inferred,omitempty"`
}

// ReportDocument is the terminal aggregate: built fresh per run, never
// mutated after the final merge, consumed once by the HTML renderer.
type ReportDocument struct {
	Company      string          `json:"company"`
	Scenarios    []Scenario      `json:"scenarios"` // sorted by ID
	Citations    []Citation      `json:"citations"`
	SourcesTable []SourceRow     `json:"sources_table,omitempty"`
	HeadToHead   []HeadToHeadRow `json:"head_to_head,omitempty"`
	Metadata     ReportMetadata  `json:"metadata"`
}

// PlaceholderScenarioTitle flags a document produced from zero usable input.
// The renderer must still produce a structurally valid report from it.
const PlaceholderScenarioTitle = "No scenarios available"

// Run represents a single reconciliation run persisted by the store.
type Run struct {
	ID        string          `json:"id"`
	Company   string          `json:"company"`
	Status    RunStatus       `json:"status"`
	Document  *ReportDocument `json:"document,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
