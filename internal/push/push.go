// Package push wraps the external push delivery transport behind a batch
// interface: hand over one message per device token, get back a failure count.
package push

import "context"

// Message is one notification addressed to a single device token.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Transport delivers a batch of messages and reports how many failed.
// Per-message failures are counted, not returned; a non-nil error means the
// batch as a whole could not be attempted.
type Transport interface {
	SendAll(ctx context.Context, messages []Message) (failureCount int, err error)
}
