package apiclient

import (
	"context"
	"net/url"
	"sync"
)

type MockCall struct {
	Method       string
	ResourceType string
	ResourceID   string
	Body         url.Values
	Query        url.Values
}

// MockAPIClient records every call and answers through NextFunc, or NextEnvelope/NextError when unset
type MockAPIClient struct {
	lock sync.Mutex

	Calls        []MockCall
	NextEnvelope *Envelope
	NextError    error
	NextFunc     func(call MockCall) (*Envelope, error)
}

func (m *MockAPIClient) Get(ctx context.Context, resourceType, resourceID string, query url.Values) (*Envelope, error) {
	return m.record(MockCall{Method: "GET", ResourceType: resourceType, ResourceID: resourceID, Query: query})
}

func (m *MockAPIClient) Request(ctx context.Context, method, resourceType, resourceID string, body url.Values) (*Envelope, error) {
	return m.record(MockCall{Method: method, ResourceType: resourceType, ResourceID: resourceID, Body: body})
}

func (m *MockAPIClient) record(call MockCall) (*Envelope, error) {
	m.lock.Lock()
	m.Calls = append(m.Calls, call)
	next := m.NextFunc
	m.lock.Unlock()

	if next != nil {
		return next(call)
	}
	return m.NextEnvelope, m.NextError
}

// CallsFor returns the recorded calls for the given method
func (m *MockAPIClient) CallsFor(method string) []MockCall {
	m.lock.Lock()
	defer m.lock.Unlock()

	res := make([]MockCall, 0)
	for _, c := range m.Calls {
		if c.Method == method {
			res = append(res, c)
		}
	}
	return res
}
