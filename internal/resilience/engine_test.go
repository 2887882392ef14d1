package resilience

import (
	"testing"
	"time"

	"github.com/sentaiment/report-cli/internal/model"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func noJitter() float64 { return 0 }

func testEngine(opts ...EngineOption) *Engine {
	base := []EngineOption{
		WithClock(fixedClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))),
		WithJitterSource(noJitter),
	}
	return NewEngine(DefaultPolicyTable(), append(base, opts...)...)
}

func errorItem(status, attempt int) model.RetryItem {
	return model.RetryItem{
		Payload:      map[string]any{"task": "scenario-analysis"},
		Error:        &model.ErrorDescriptor{HTTPCode: status, Message: "upstream failed"},
		RetryAttempt: attempt,
	}
}

func TestEvaluate_NoErrorPassesThrough(t *testing.T) {
	item := model.RetryItem{Payload: map[string]any{"ok": true}}
	d := testEngine().Evaluate(item)

	if d.Kind != model.DecisionPassThrough {
		t.Fatalf("expected pass_through, got %s", d.Kind)
	}
	if d.Item.RetryMetadata != nil {
		t.Error("pass-through item must not gain retry metadata")
	}
}

func TestEvaluate_UnknownStatusPassesThroughWithErrorIntact(t *testing.T) {
	item := errorItem(404, 0)
	d := testEngine().Evaluate(item)

	if d.Kind != model.DecisionPassThrough {
		t.Fatalf("expected pass_through for 404, got %s", d.Kind)
	}
	if d.Item.Error == nil || d.Item.Error.HTTPCode != 404 {
		t.Error("non-retryable error must be kept intact for visibility")
	}
}

func TestEvaluate_RetrySchedules529(t *testing.T) {
	// 529 policy: multiplier 2.5, base 10s. First retry backs off one full
	// multiplier step: 25000ms, plus jitter in [0, 2000).
	engine := testEngine()
	d := engine.Evaluate(errorItem(529, 0))

	if d.Kind != model.DecisionRetry {
		t.Fatalf("expected retry, got %s", d.Kind)
	}
	if d.Item.RetryAttempt != 1 {
		t.Errorf("expected attempt 1, got %d", d.Item.RetryAttempt)
	}
	if d.Item.Error != nil {
		t.Error("retried item must have its error cleared")
	}
	if d.Delay != 25*time.Second {
		t.Errorf("expected 25s delay with zero jitter, got %v", d.Delay)
	}

	meta := d.Item.RetryMetadata
	if meta == nil {
		t.Fatal("expected retry metadata")
	}
	if meta.ErrorType != string(ClassOverloaded) {
		t.Errorf("expected error type %q, got %q", ClassOverloaded, meta.ErrorType)
	}
	if meta.MaxRetries != 5 {
		t.Errorf("expected max retries 5, got %d", meta.MaxRetries)
	}
	if meta.DelayMs != 25000 {
		t.Errorf("expected 25000ms, got %d", meta.DelayMs)
	}
	wantSched := time.Date(2026, 8, 1, 12, 0, 25, 0, time.UTC)
	if !meta.ScheduledTime.Equal(wantSched) {
		t.Errorf("expected scheduled time %v, got %v", wantSched, meta.ScheduledTime)
	}
}

func TestEvaluate_JitterStaysUnderCeiling(t *testing.T) {
	engine := testEngine(WithJitterSource(func() float64 { return 0.999 }))
	d := engine.Evaluate(errorItem(529, 0))

	if d.Delay < 25*time.Second || d.Delay >= 27*time.Second {
		t.Errorf("expected delay in [25s, 27s), got %v", d.Delay)
	}
}

func TestEvaluate_ExhaustedPassesThroughUnchanged(t *testing.T) {
	item := errorItem(529, 5) // 529 maxRetries is 5
	d := testEngine().Evaluate(item)

	if d.Kind != model.DecisionExhausted {
		t.Fatalf("expected exhausted, got %s", d.Kind)
	}
	if d.Item.RetryAttempt != 5 {
		t.Errorf("exhausted item must keep attempt count, got %d", d.Item.RetryAttempt)
	}
	if d.Item.Error == nil {
		t.Error("exhausted item must carry its final error downstream")
	}
	if d.Item.RetryMetadata != nil {
		t.Error("exhausted item must not gain retry metadata")
	}
}

func TestBackoff_MonotonicBeforeJitter(t *testing.T) {
	engine := testEngine()
	policy := DefaultPolicyTable().Policies[429]

	prev := time.Duration(0)
	for attempt := 0; attempt < 10; attempt++ {
		d := engine.Backoff(policy, attempt)
		if d < prev {
			t.Errorf("delay decreased at attempt %d: %v < %v", attempt, d, prev)
		}
		prev = d
	}
}

func TestBackoff_CappedAtMaxDelay(t *testing.T) {
	engine := testEngine()
	policy := DefaultPolicyTable().Policies[529]

	// 10s * 2.5^20 is far past the 5m cap.
	if d := engine.Backoff(policy, 19); d != 5*time.Minute {
		t.Errorf("expected 5m cap, got %v", d)
	}
}

func TestProcessBatch_PreservesOrderAndKinds(t *testing.T) {
	items := []model.RetryItem{
		{Payload: map[string]any{"i": 0.0}},
		errorItem(502, 0),
		errorItem(404, 0),
		errorItem(429, 5), // 429 maxRetries is 5
	}
	decisions := testEngine().ProcessBatch(items)

	if len(decisions) != 4 {
		t.Fatalf("expected 4 decisions, got %d", len(decisions))
	}
	want := []model.DecisionKind{
		model.DecisionPassThrough,
		model.DecisionRetry,
		model.DecisionPassThrough,
		model.DecisionExhausted,
	}
	for i, kind := range want {
		if decisions[i].Kind != kind {
			t.Errorf("decision %d: expected %s, got %s", i, kind, decisions[i].Kind)
		}
	}
}

func TestProcessBatch_GlobalCeiling(t *testing.T) {
	table := DefaultPolicyTable()
	table.GlobalCeiling = 2

	var items []model.RetryItem
	for i := 0; i < 5; i++ {
		items = append(items, errorItem(503, 0))
	}

	decisions := NewEngine(table, WithClock(fixedClock(time.Now())), WithJitterSource(noJitter)).ProcessBatch(items)

	retries := 0
	for _, d := range decisions {
		if d.Kind == model.DecisionRetry {
			retries++
		}
	}
	if retries != 2 {
		t.Errorf("expected 2 retries under ceiling, got %d", retries)
	}
	if decisions[2].Kind != model.DecisionExhausted {
		t.Errorf("expected items past the ceiling to be exhausted, got %s", decisions[2].Kind)
	}
}

func TestPolicyTable_EveryStatusMapsToOnePolicy(t *testing.T) {
	table := DefaultPolicyTable()
	classes := map[int]StatusClass{
		429: ClassRateLimit,
		502: ClassBadGateway,
		503: ClassServiceUnavailable,
		504: ClassGatewayTimeout,
		529: ClassOverloaded,
	}
	for status, class := range classes {
		p, ok := table.Lookup(status)
		if !ok {
			t.Fatalf("expected policy for %d", status)
		}
		if p.Class != class {
			t.Errorf("status %d: expected class %s, got %s", status, class, p.Class)
		}
		if p.Multiplier <= 1.0 {
			t.Errorf("status %d: multiplier must exceed 1.0, got %v", status, p.Multiplier)
		}
	}
	if _, ok := table.Lookup(500); ok {
		t.Error("500 must not be batch-retryable by default")
	}
}
