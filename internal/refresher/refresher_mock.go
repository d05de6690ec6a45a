package refresher

import (
	"context"
	"sync"
)

type MockAgentRefresher struct {
	lock sync.Mutex

	RefreshAgentCalled bool
	Counter            int
	LastID             string
	NextError          error
	// NextPending is returned by IsPending until a refresh succeeds
	NextPending bool
}

func (m *MockAgentRefresher) RefreshAgent(ctx context.Context, id string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.RefreshAgentCalled = true
	m.Counter++
	m.LastID = id
	if m.NextError == nil {
		m.NextPending = false
	}
	return m.NextError
}

func (m *MockAgentRefresher) IsPending(id string) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.NextPending
}

func (m *MockAgentRefresher) Calls() int {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.Counter
}
