package bootstrap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// MockObserver records events for assertions.
type MockObserver struct {
	events   []Event
	messages []string
}

func NewMockObserver() *MockObserver {
	return &MockObserver{}
}

func (o *MockObserver) Printf(format string, v ...interface{}) {
	o.messages = append(o.messages, fmt.Sprintf(format, v...))
}

func (o *MockObserver) Event(event Event) {
	o.events = append(o.events, event)
}

func (o *MockObserver) hasEvent(eventType EventType) bool {
	for _, event := range o.events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func TestConsoleObserver_FormatEvent(t *testing.T) {
	t.Parallel()

	got := formatEvent(Event{
		Type:     EventResourceCreated,
		Phase:    "discovery",
		Resource: "stack-dev-crossplane-managed",
		Message:  "security group created",
		Fields:   map[string]string{"id": "sg-123"},
	})

	assert.Contains(t, got, "resource.created")
	assert.Contains(t, got, "[discovery]")
	assert.Contains(t, got, "resource=stack-dev-crossplane-managed")
	assert.Contains(t, got, "security group created")
	assert.Contains(t, got, "id=sg-123")
}

func TestLogHelpers_EmitExpectedTypes(t *testing.T) {
	t.Parallel()
	observer := NewMockObserver()

	LogPhaseStart(observer, "trust")
	LogPhaseComplete(observer, "trust", 0)
	LogPhaseSkipped(observer, "trust")
	LogPhaseFailed(observer, "trust", assert.AnError)
	LogResourceCreating(observer, "trust", "role", "crossplane-provider-aws")
	LogResourceCreated(observer, "trust", "role", "crossplane-provider-aws", "arn:...")
	LogResourceExists(observer, "trust", "role", "crossplane-provider-aws", "arn:...")
	LogWarning(observer, "trust", "role pre-exists, trust policy not verified")

	for _, eventType := range []EventType{
		EventPhaseStarted, EventPhaseCompleted, EventPhaseSkipped, EventPhaseFailed,
		EventResourceCreating, EventResourceCreated, EventResourceExists, EventWarning,
	} {
		assert.True(t, observer.hasEvent(eventType), "missing event %s", eventType)
	}
}
