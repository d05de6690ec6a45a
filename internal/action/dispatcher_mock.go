package action

import (
	"context"
	"net/url"
	"sync"

	"github.com/qredo/attestation-console/internal/apiclient"
)

type MockDispatcher struct {
	lock sync.Mutex

	SendCalled   bool
	LastAgentID  string
	LastMethod   string
	LastBody     url.Values
	NextEnvelope *apiclient.Envelope
	NextError    error
}

func (m *MockDispatcher) Send(ctx context.Context, agentID, method string, body url.Values) (*apiclient.Envelope, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.SendCalled = true
	m.LastAgentID = agentID
	m.LastMethod = method
	m.LastBody = body
	return m.NextEnvelope, m.NextError
}
