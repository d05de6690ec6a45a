package hub

import (
	"sync"

	"go.uber.org/zap"

	"github.com/qredo/attestation-console/internal/defs"
)

// Source produces the messages broadcast by the hub
type Source interface {
	Connect() bool
	Disconnect()
	Listen(wg *sync.WaitGroup)
	GetSendChannel() chan []byte
	GetReadyState() string
	GetSourceName() string
}

// Publisher accepts the events of the console
type Publisher interface {
	Publish(ev Event) bool
}

// EventSource is the in-process Source fed by the console service
type EventSource interface {
	Source
	Publisher
}

type eventSource struct {
	name       string
	queueSize  int
	events     chan Event
	rxMessages chan []byte
	readyState string
	lock       sync.RWMutex
	log        *zap.SugaredLogger
}

// NewEventSource returns an EventSource queueing at most queueSize events before dropping
func NewEventSource(name string, queueSize int, log *zap.SugaredLogger) EventSource {
	if queueSize <= 0 {
		queueSize = 1
	}

	return &eventSource{
		name:       name,
		queueSize:  queueSize,
		readyState: defs.ConnectionState.Closed,
		log:        log,
	}
}

// Connect opens the event queue, it fails if the source is already open
func (s *eventSource) Connect() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.readyState == defs.ConnectionState.Open {
		return false
	}

	s.events = make(chan Event, s.queueSize)
	s.rxMessages = make(chan []byte)
	s.readyState = defs.ConnectionState.Open
	s.log.Infof("EventSource: `%s` connected", s.name)
	return true
}

// Disconnect closes the event queue, Listen drains it and closes the send channel
func (s *eventSource) Disconnect() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.readyState != defs.ConnectionState.Open {
		return
	}

	s.readyState = defs.ConnectionState.Closed
	close(s.events)
	s.log.Infof("EventSource: `%s` disconnected", s.name)
}

// Listen forwards the published events to the send channel until the source is disconnected
func (s *eventSource) Listen(wg *sync.WaitGroup) {
	s.lock.RLock()
	events := s.events
	rx := s.rxMessages
	s.lock.RUnlock()

	defer close(rx)
	wg.Done()

	for ev := range events {
		message, err := ev.Marshal()
		if err != nil {
			s.log.Errorf("EventSource: failed to marshal `%s` event, err: %v", ev.Type, err)
			continue
		}
		rx <- message
	}
}

// Publish queues the event. It returns false when the source is closed or the queue is full.
func (s *eventSource) Publish(ev Event) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.readyState != defs.ConnectionState.Open {
		return false
	}

	select {
	case s.events <- ev:
		return true
	default:
		s.log.Warnf("EventSource: queue full, `%s` event for `%s` dropped", ev.Type, ev.ID)
		return false
	}
}

func (s *eventSource) GetSendChannel() chan []byte {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.rxMessages
}

func (s *eventSource) GetReadyState() string {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.readyState
}

func (s *eventSource) GetSourceName() string {
	return s.name
}
