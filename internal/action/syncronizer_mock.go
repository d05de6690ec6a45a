package action

import "sync"

type MockActionSyncronizer struct {
	lock sync.Mutex

	ShouldHandleActionCalled bool
	AcquireLockCalled        bool
	ReleaseCalled            bool
	LastActionId             string
	LastHandled              bool
	NextShouldHandle         bool
	NextLockError            error
	NextReleaseError         error
}

func (m *MockActionSyncronizer) ShouldHandleAction(actionID string) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.ShouldHandleActionCalled = true
	m.LastActionId = actionID
	return m.NextShouldHandle
}

func (m *MockActionSyncronizer) AcquireLock(actionID string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.AcquireLockCalled = true
	m.LastActionId = actionID
	return m.NextLockError
}

func (m *MockActionSyncronizer) Release(actionID string, handled bool) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.ReleaseCalled = true
	m.LastActionId = actionID
	m.LastHandled = handled
	return m.NextReleaseError
}
