package reconcile

import (
	"time"

	"go.uber.org/zap"

	"github.com/sentaiment/report-cli/internal/model"
)

// Reconciler turns heterogeneous upstream fragments into one canonical
// ReportDocument. It is a pure, synchronous transform: no I/O, no owned
// goroutines, deterministic given its inputs and clock. Callers that want
// parallelism schedule Reconcile invocations themselves.
type Reconciler struct {
	company string // explicit override; skips inference when valid
	now     func() time.Time
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithCompany sets an explicit target company, used instead of inference
// when it is not a reserved placeholder.
func WithCompany(name string) Option {
	return func(r *Reconciler) { r.company = name }
}

// WithClock overrides the metadata timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New builds a Reconciler.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile merges fragments into a ReportDocument. It never fails: every
// stage degrades locally, and zero usable input yields an explicit
// placeholder document so the downstream renderer always has something
// structurally valid to work with.
func (r *Reconciler) Reconcile(fragments []model.Fragment) *model.ReportDocument {
	var candidates []model.Scenario
	var rawCitations []model.Citation

	for _, frag := range fragments {
		candidates = append(candidates, CollectScenarios(frag)...)
		rawCitations = append(rawCitations, CollectCitations(frag)...)
	}

	scenarios := MergeScenarios(candidates)
	citations := DedupeCitations(rawCitations)

	company, inferred := r.resolveCompany(fragments, scenarios)

	doc := &model.ReportDocument{
		Company:      company,
		Scenarios:    scenarios,
		Citations:    citations,
		SourcesTable: BuildSourcesTable(citations),
		HeadToHead:   BuildHeadToHead(scenarios),
		Metadata: model.ReportMetadata{
			TotalScenarios:      len(scenarios),
			CompetitorsAnalyzed: competitorsAnalyzed(scenarios),
			GeneratedAt:         r.now().UTC(),
			FragmentsConsumed:   len(fragments),
			CompanyInferred:     inferred,
		},
	}

	if len(doc.Scenarios) == 0 {
		zap.L().Warn("reconcile: no usable scenarios in any fragment",
			zap.Int("fragments", len(fragments)),
			zap.Int("citations", len(citations)),
		)
		doc.Scenarios = []model.Scenario{{
			Title:             model.PlaceholderScenarioTitle,
			RankedCompetitors: []model.RankedCompetitor{},
		}}
	}

	zap.L().Info("reconcile: document built",
		zap.String("company", doc.Company),
		zap.Int("scenarios", doc.Metadata.TotalScenarios),
		zap.Int("citations", len(doc.Citations)),
		zap.Int("competitors", len(doc.Metadata.CompetitorsAnalyzed)),
	)
	return doc
}

// resolveCompany walks the fallback chain: explicit override, explicit
// field in any fragment (top level or report_metadata), inference from
// competitor standings, reserved placeholder.
func (r *Reconciler) resolveCompany(fragments []model.Fragment, scenarios []model.Scenario) (string, bool) {
	if ValidCompanyName(r.company) {
		return r.company, false
	}

	for _, frag := range fragments {
		if frag.Data == nil {
			continue
		}
		if name := firstString(frag.Data, "company", "company_name", "target_company"); ValidCompanyName(name) {
			return name, false
		}
		if meta, ok := toMap(frag.Data["report_metadata"]); ok {
			if name := firstString(meta, "company", "company_name", "target_company"); ValidCompanyName(name) {
				return name, false
			}
		}
	}

	if name, ok := InferCompany(scenarios); ok {
		return name, true
	}
	return "Unknown Company", false
}

// competitorsAnalyzed lists the distinct competitors (normalized grouping,
// first-seen display names) across all scenarios.
func competitorsAnalyzed(scenarios []model.Scenario) []string {
	standings, order := collectStandings(scenarios)
	names := make([]string, 0, len(order))
	for _, key := range order {
		names = append(names, standings[key].display)
	}
	return names
}
