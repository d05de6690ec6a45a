package hub

import (
	"encoding/json"
	"time"

	"github.com/qredo/attestation-console/internal/agent"
	"github.com/qredo/attestation-console/internal/chart"
)

type EventType string

const (
	EventAgentAdded   EventType = "agent_added"
	EventAgentRemoved EventType = "agent_removed"
	EventAgentUpdated EventType = "agent_updated"
	EventTerminal     EventType = "terminal"
	EventCharts       EventType = "charts"

	chartsKey      = "charts"
	agentKeyPrefix = "agent:"
)

// Event is the message sent to every feed client.
// Events with a Key are cached and replayed to newly registered clients until they expire.
type Event struct {
	Type       EventType       `json:"type"`
	Key        string          `json:"key,omitempty"`
	ID         string          `json:"id,omitempty"`
	State      string          `json:"state,omitempty"`
	Overview   *agent.Overview `json:"overview,omitempty"`
	Detail     *agent.Detail   `json:"detail,omitempty"`
	Lines      []string        `json:"lines,omitempty"`
	Charts     *chart.Charts   `json:"charts,omitempty"`
	ExpireTime int64           `json:"expireTime,omitempty"`
}

// NewAgentEvent returns an agent event. The snapshot is nil for pending or removed agents.
func NewAgentEvent(eventType EventType, id, state string, snapshot *agent.Snapshot, ttl time.Duration) Event {
	ev := Event{
		Type:       eventType,
		Key:        agentKeyPrefix + id,
		ID:         id,
		State:      state,
		ExpireTime: time.Now().Add(ttl).Unix(),
	}
	if snapshot != nil {
		ev.Overview = &snapshot.Overview
		ev.Detail = &snapshot.Detail
	}
	return ev
}

func NewTerminalEvent(lines []string) Event {
	return Event{
		Type:  EventTerminal,
		Lines: lines,
	}
}

func NewChartsEvent(charts *chart.Charts, ttl time.Duration) Event {
	return Event{
		Type:       EventCharts,
		Key:        chartsKey,
		Charts:     charts,
		ExpireTime: time.Now().Add(ttl).Unix(),
	}
}

// Evicts is true for events that invalidate the cached event with the same key
func (e *Event) Evicts() bool {
	return e.Type == EventAgentRemoved
}

func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
