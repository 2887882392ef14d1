package resilience

import "time"

// StatusClass names the error class a retryable HTTP status belongs to.
type StatusClass string

const (
	ClassRateLimit          StatusClass = "rate_limit"
	ClassOverloaded         StatusClass = "overloaded"
	ClassServiceUnavailable StatusClass = "service_unavailable"
	ClassBadGateway         StatusClass = "bad_gateway"
	ClassGatewayTimeout     StatusClass = "gateway_timeout"
)

// Policy governs retry spacing for one error class. Multiplier scales the
// exponential backoff; MaxRetries bounds how many retries a single item may
// consume for this class before it is treated as exhausted.
type Policy struct {
	Class      StatusClass
	Multiplier float64
	MaxRetries int
}

// PolicyTable maps HTTP status codes to retry policies and carries the
// shared timing knobs. Statuses absent from Policies are non-retryable.
type PolicyTable struct {
	// BaseDelay is the pre-multiplier backoff unit. Default: 10s.
	BaseDelay time.Duration

	// MaxDelay caps the exponential term before jitter. Default: 5m.
	MaxDelay time.Duration

	// JitterCeiling bounds the uniform additive jitter. Jitter is applied
	// after capping. Default: 2s.
	JitterCeiling time.Duration

	// GlobalCeiling caps retry decisions across one whole batch, regardless
	// of per-status budgets. Guards against retry storms when many items
	// fail with heterogeneous statuses in a single run. Default: 10.
	GlobalCeiling int

	Policies map[int]Policy
}

// DefaultPolicyTable returns the standard status→policy mapping: 10s base,
// 5m cap, 0–2s jitter, global ceiling 10. Rate limits back off at 2.0x,
// overload classes at 2.5x, transient gateway classes at 1.5x.
func DefaultPolicyTable() PolicyTable {
	return PolicyTable{
		BaseDelay:     10 * time.Second,
		MaxDelay:      5 * time.Minute,
		JitterCeiling: 2 * time.Second,
		GlobalCeiling: 10,
		Policies: map[int]Policy{
			429: {Class: ClassRateLimit, Multiplier: 2.0, MaxRetries: 5},
			502: {Class: ClassBadGateway, Multiplier: 1.5, MaxRetries: 3},
			503: {Class: ClassServiceUnavailable, Multiplier: 1.5, MaxRetries: 4},
			504: {Class: ClassGatewayTimeout, Multiplier: 1.5, MaxRetries: 3},
			529: {Class: ClassOverloaded, Multiplier: 2.5, MaxRetries: 5},
		},
	}
}

// Lookup returns the policy for status, if one exists.
func (t PolicyTable) Lookup(status int) (Policy, bool) {
	p, ok := t.Policies[status]
	return p, ok
}

func (t PolicyTable) withDefaults() PolicyTable {
	if t.BaseDelay <= 0 {
		t.BaseDelay = 10 * time.Second
	}
	if t.MaxDelay <= 0 {
		t.MaxDelay = 5 * time.Minute
	}
	if t.JitterCeiling < 0 {
		t.JitterCeiling = 0
	}
	if t.GlobalCeiling <= 0 {
		t.GlobalCeiling = 10
	}
	if t.Policies == nil {
		t.Policies = DefaultPolicyTable().Policies
	}
	return t
}
