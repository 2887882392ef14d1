package model

import "time"

// ErrorDescriptor is the error marker an upstream step attaches to an item.
type ErrorDescriptor struct {
	HTTPCode int    `json:"httpCode"`
	Message  string `json:"message,omitempty"`
}

// RetryMetadata records the scheduling decision attached to a retried item.
type RetryMetadata struct {
	ErrorType     string    `json:"errorType"`
	Attempt       int       `json:"attempt"`
	MaxRetries    int       `json:"maxRetries"`
	DelayMs       int64     `json:"delayMs"`
	ScheduledTime time.Time `json:"scheduledTime"`
}

// RetryItem is one unit of work flowing through the retry policy engine.
// Payload carries the opaque item body; Error, when present, is the marker
// set by the failed upstream call. RetryAttempt counts retries already
// consumed for this item.
type RetryItem struct {
	Payload       map[string]any   `json:"payload"`
	Error         *ErrorDescriptor `json:"error,omitempty"`
	RetryAttempt  int              `json:"retryAttempt"`
	RetryMetadata *RetryMetadata   `json:"retryMetadata,omitempty"`
}

// DecisionKind classifies the outcome of a retry policy evaluation.
type DecisionKind string

const (
	DecisionPassThrough DecisionKind = "pass_through" // no error, or error not retryable
	DecisionRetry       DecisionKind = "retry"
	DecisionExhausted   DecisionKind = "exhausted"
)

// RetryDecision is the engine's verdict for a single item. For
// DecisionRetry, Item carries the rewritten payload (attempt incremented,
// error cleared, metadata attached) and Delay the computed backoff. For the
// other kinds Item is the input unchanged.
type RetryDecision struct {
	Kind  DecisionKind  `json:"kind"`
	Item  RetryItem     `json:"item"`
	Delay time.Duration `json:"delay"`
}
