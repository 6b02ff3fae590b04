package twilioapi

import (
	"context"
	"sync"
	"time"

	"github.com/JDK-tech/twilio-web-dialer/model"
)

// MockPort is a test double for ControlPort. Safe for concurrent use.
type MockPort struct {
	mu        sync.Mutex
	statuses  map[string]model.CallStatus
	fetches   []MockCall
	redirects []MockCall

	// FetchFunc and RedirectFunc, when set, override the default behavior
	FetchFunc    func(callSID string) (model.CallStatus, error)
	RedirectFunc func(callSID, controlURL string) error
}

// MockCall records a control port call
type MockCall struct {
	CallSID string
	URL     string
	Time    time.Time
}

// NewMockPort creates a mock where every unknown call is ringing
func NewMockPort() *MockPort {
	return &MockPort{statuses: make(map[string]model.CallStatus)}
}

// SetStatus sets the status FetchStatus reports for a call
func (m *MockPort) SetStatus(callSID string, status model.CallStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[callSID] = status
}

func (m *MockPort) FetchStatus(_ context.Context, callSID string) (model.CallStatus, error) {
	m.mu.Lock()
	m.fetches = append(m.fetches, MockCall{CallSID: callSID, Time: time.Now()})
	fn := m.FetchFunc
	status, ok := m.statuses[callSID]
	m.mu.Unlock()

	if fn != nil {
		return fn(callSID)
	}
	if !ok {
		status = model.CallRinging
	}
	return status, nil
}

func (m *MockPort) Redirect(_ context.Context, callSID, controlURL string) error {
	m.mu.Lock()
	m.redirects = append(m.redirects, MockCall{CallSID: callSID, URL: controlURL, Time: time.Now()})
	fn := m.RedirectFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(callSID, controlURL)
	}
	return nil
}

// Redirects returns a copy of all recorded redirects
func (m *MockPort) Redirects() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.redirects...)
}

// RedirectsFor returns recorded redirects for one call
func (m *MockPort) RedirectsFor(callSID string) []MockCall {
	var result []MockCall
	for _, c := range m.Redirects() {
		if c.CallSID == callSID {
			result = append(result, c)
		}
	}
	return result
}

// Fetches returns a copy of all recorded status fetches
func (m *MockPort) Fetches() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.fetches...)
}

// Reset clears all recorded calls
func (m *MockPort) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches = nil
	m.redirects = nil
}
