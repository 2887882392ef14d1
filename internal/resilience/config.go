package resilience

import "time"

// PolicyTableFromConfig builds a PolicyTable over the default per-status
// policies with configured timing values. Non-positive values keep the
// defaults (10s base, 5m cap, 2s jitter, ceiling 10).
func PolicyTableFromConfig(baseDelayMs, maxDelayMs, jitterCeilingMs, globalCeiling int) PolicyTable {
	table := DefaultPolicyTable()
	if baseDelayMs > 0 {
		table.BaseDelay = time.Duration(baseDelayMs) * time.Millisecond
	}
	if maxDelayMs > 0 {
		table.MaxDelay = time.Duration(maxDelayMs) * time.Millisecond
	}
	if jitterCeilingMs > 0 {
		table.JitterCeiling = time.Duration(jitterCeilingMs) * time.Millisecond
	}
	if globalCeiling > 0 {
		table.GlobalCeiling = globalCeiling
	}
	return table
}
