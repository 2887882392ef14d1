package resilience

import (
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/sentaiment/report-cli/internal/model"
)

// Engine evaluates failed batch items against a PolicyTable and decides,
// per item, whether to requeue it with a computed delay or pass it through.
// The engine never returns an error: malformed or unrecognized error shapes
// are treated as "no error" so a bad marker can't trigger a false retry.
//
// Clock and jitter are injectable so decisions are deterministic under test.
type Engine struct {
	table PolicyTable
	now   func() time.Time
	randF func() float64 // uniform [0,1)
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithJitterSource overrides the engine's uniform random source.
func WithJitterSource(f func() float64) EngineOption {
	return func(e *Engine) { e.randF = f }
}

// NewEngine builds an Engine over the given policy table.
func NewEngine(table PolicyTable, opts ...EngineOption) *Engine {
	e := &Engine{
		table: table.withDefaults(),
		now:   time.Now,
		randF: rand.Float64,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate decides the fate of a single item. Items without a recognized
// retryable error pass through unchanged with their error intact. Items
// whose attempt budget is spent are exhausted: returned unchanged so the
// terminal error stays visible downstream. Otherwise the item is rewritten
// for retry: attempt incremented, error cleared, metadata attached.
func (e *Engine) Evaluate(item model.RetryItem) model.RetryDecision {
	if item.Error == nil || item.Error.HTTPCode == 0 {
		return model.RetryDecision{Kind: model.DecisionPassThrough, Item: item}
	}

	policy, ok := e.table.Lookup(item.Error.HTTPCode)
	if !ok {
		// Non-retryable: keep the original error for visibility.
		return model.RetryDecision{Kind: model.DecisionPassThrough, Item: item}
	}

	if item.RetryAttempt >= policy.MaxRetries {
		zap.L().Warn("retry budget exhausted",
			zap.Int("status", item.Error.HTTPCode),
			zap.String("class", string(policy.Class)),
			zap.Int("attempts", item.RetryAttempt),
		)
		return model.RetryDecision{Kind: model.DecisionExhausted, Item: item}
	}

	delay := e.Backoff(policy, item.RetryAttempt)
	attempt := item.RetryAttempt + 1

	retried := model.RetryItem{
		Payload:      item.Payload,
		RetryAttempt: attempt,
		RetryMetadata: &model.RetryMetadata{
			ErrorType:     string(policy.Class),
			Attempt:       attempt,
			MaxRetries:    policy.MaxRetries,
			DelayMs:       delay.Milliseconds(),
			ScheduledTime: e.now().Add(delay),
		},
	}

	return model.RetryDecision{Kind: model.DecisionRetry, Item: retried, Delay: delay}
}

// Backoff computes the jittered delay before the retry that would consume
// the given item's next attempt. The exponent is attempt+1: even a first
// retry backs off by one full multiplier step from the base. Jitter is
// additive after the cap, so the cap bounds only the exponential term.
func (e *Engine) Backoff(policy Policy, attempt int) time.Duration {
	exp := float64(e.table.BaseDelay) * math.Pow(policy.Multiplier, float64(attempt+1))
	if exp > float64(e.table.MaxDelay) {
		exp = float64(e.table.MaxDelay)
	}
	jitter := e.randF() * float64(e.table.JitterCeiling)
	return time.Duration(exp + jitter).Round(time.Millisecond)
}

// ProcessBatch evaluates every item in order, enforcing the global retry
// ceiling: once the ceiling is reached, further retryable items are treated
// as exhausted even when their per-status budget has room. Input order is
// preserved in the output.
func (e *Engine) ProcessBatch(items []model.RetryItem) []model.RetryDecision {
	decisions := make([]model.RetryDecision, 0, len(items))
	retries := 0

	for _, item := range items {
		d := e.Evaluate(item)
		if d.Kind == model.DecisionRetry {
			if retries >= e.table.GlobalCeiling {
				zap.L().Warn("global retry ceiling reached, not rescheduling",
					zap.Int("ceiling", e.table.GlobalCeiling),
					zap.Int("status", item.Error.HTTPCode),
				)
				d = model.RetryDecision{Kind: model.DecisionExhausted, Item: item}
			} else {
				retries++
			}
		}
		decisions = append(decisions, d)
	}

	return decisions
}
