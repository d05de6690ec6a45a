package api

import (
	"encoding/json"
	"time"

	"github.com/qredo/attestation-console/internal/agent"
	"github.com/qredo/attestation-console/internal/form"
)

type WebsocketStatus struct {
	ReadyState       string `json:"readyState"`
	Source           string `json:"source"`
	ConnectedClients uint32 `json:"connectedClients"`
}

type PollingStatus struct {
	Running         bool      `json:"running"`
	TrackedAgents   int       `json:"trackedAgents"`
	PendingAgents   int       `json:"pendingAgents"`
	LastAgentList   time.Time `json:"lastAgentList"`
	LastTerminal    time.Time `json:"lastTerminal"`
	LastCharts      time.Time `json:"lastCharts"`
	TerminalOffset  int       `json:"terminalOffset"`
	BackendBreaker  string    `json:"backendBreaker,omitempty"`
	LastPollFailure string    `json:"lastPollFailure,omitempty"`
}

type HealthCheckStatusResponse struct {
	WebsocketStatus WebsocketStatus `json:"websocket"`
	LocalFeedUrl    string          `json:"localFeedURL"`
	Polling         PollingStatus   `json:"polling"`
}

type Version struct {
	BuildVersion string `json:"buildVersion"`
	BuildType    string `json:"buildType"`
	BuildDate    string `json:"buildDate"`
}

// AgentRecordResponse is one tracked agent of the agent list
type AgentRecordResponse struct {
	ID       string          `json:"id"`
	State    string          `json:"state"`
	Overview *agent.Overview `json:"overview,omitempty"`
}

type AgentListResponse struct {
	IDs    []string              `json:"ids"`
	Agents []AgentRecordResponse `json:"agents"`
}

type AgentSnapshotResponse struct {
	ID        string          `json:"id"`
	State     string          `json:"state"`
	Overview  *agent.Overview `json:"overview,omitempty"`
	Detail    *agent.Detail   `json:"detail,omitempty"`
	FetchedAt *time.Time      `json:"fetchedAt,omitempty"`
}

// AgentFragmentResponse carries the rendered DOM fragments of one agent
type AgentFragmentResponse struct {
	ID       string `json:"id"`
	Element  string `json:"element"`
	Overview string `json:"overview,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// ActionResponse is the outcome of an agent action. Dialog is set instead of a backend
// result when the action needs the add-agent form first.
type ActionResponse struct {
	AgentID    string              `json:"agentID"`
	Method     string              `json:"method,omitempty"`
	Status     string              `json:"status,omitempty"`
	HTTPStatus int                 `json:"httpStatus,omitempty"`
	Results    json.RawMessage     `json:"results,omitempty"`
	Dialog     string              `json:"dialog,omitempty"`
	Tabs       *form.TabVisibility `json:"tabs,omitempty"`
}

type TerminalResponse struct {
	Lines    []string `json:"lines"`
	Offset   int      `json:"offset"`
	MaxLines int      `json:"maxLines"`
}
