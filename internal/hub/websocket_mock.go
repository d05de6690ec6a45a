package hub

import (
	"sync"
	"time"
)

// MockWebsocketConnection blocks ReadMessage until Close is called, unless NextReadError is set
type MockWebsocketConnection struct {
	lock sync.Mutex

	ReadMessageCalled      bool
	WriteMessageCalled     bool
	CloseCalled            bool
	WriteControlCalled     bool
	SetReadDeadlineCalled  bool
	SetPongHandlerCalled   bool
	SetPingHandlerCalled   bool
	SetWriteDeadlineCalled bool
	LastMessageType        int
	NextMessageType        int
	LastData               []byte
	NextData               []byte
	NextError              error
	NextReadError          error

	closeOnce sync.Once
	closed    chan struct{}
}

func NewMockWebsocketConnection() *MockWebsocketConnection {
	return &MockWebsocketConnection{
		closed: make(chan struct{}),
	}
}

func (m *MockWebsocketConnection) ReadMessage() (messageType int, p []byte, err error) {
	m.lock.Lock()
	m.ReadMessageCalled = true
	readErr := m.NextReadError
	closed := m.closed
	m.lock.Unlock()

	if readErr != nil {
		return 0, nil, readErr
	}

	if closed != nil {
		<-closed
	}
	return m.NextMessageType, m.NextData, errConnectionClosed
}

func (m *MockWebsocketConnection) WriteMessage(messageType int, data []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.WriteMessageCalled = true
	m.LastMessageType = messageType
	m.LastData = data
	return m.NextError
}

func (m *MockWebsocketConnection) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.CloseCalled = true
	if m.closed != nil {
		m.closeOnce.Do(func() { close(m.closed) })
	}
	return m.NextError
}

func (m *MockWebsocketConnection) WriteControl(messageType int, data []byte, deadline time.Time) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.WriteControlCalled = true
	m.LastMessageType = messageType

	return m.NextError
}

func (m *MockWebsocketConnection) SetReadDeadline(t time.Time) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.SetReadDeadlineCalled = true
	return nil
}

func (m *MockWebsocketConnection) SetPongHandler(h func(appData string) error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.SetPongHandlerCalled = true
}

func (m *MockWebsocketConnection) SetPingHandler(h func(appData string) error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.SetPingHandlerCalled = true
}

func (m *MockWebsocketConnection) SetWriteDeadline(t time.Time) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.SetWriteDeadlineCalled = true
	return m.NextError
}

// Snapshot returns the recorded calls under the mock lock
func (m *MockWebsocketConnection) Snapshot() MockWebsocketConnection {
	m.lock.Lock()
	defer m.lock.Unlock()

	return MockWebsocketConnection{
		ReadMessageCalled:      m.ReadMessageCalled,
		WriteMessageCalled:     m.WriteMessageCalled,
		CloseCalled:            m.CloseCalled,
		WriteControlCalled:     m.WriteControlCalled,
		SetReadDeadlineCalled:  m.SetReadDeadlineCalled,
		SetPongHandlerCalled:   m.SetPongHandlerCalled,
		SetPingHandlerCalled:   m.SetPingHandlerCalled,
		SetWriteDeadlineCalled: m.SetWriteDeadlineCalled,
		LastMessageType:        m.LastMessageType,
		LastData:               m.LastData,
	}
}
