package service

import (
	"context"
	"net/http"
	"net/url"

	"github.com/qredo/attestation-console/internal/api"
	"github.com/qredo/attestation-console/internal/chart"
)

type MockConsoleService struct {
	StartCalled              bool
	StopCalled               bool
	RegisterClientFeedCalled bool
	LastID                   string

	NextStartError error
	NextError      error
	NextAgentList  *api.AgentListResponse
	NextAgent      *api.AgentSnapshotResponse
	NextFragment   *api.AgentFragmentResponse
	NextCharts     *chart.Charts
	NextTerminal   *api.TerminalResponse
	NextStatus     *api.HealthCheckStatusResponse
	NextPending    bool
}

func (m *MockConsoleService) Start() error {
	m.StartCalled = true
	return m.NextStartError
}

func (m *MockConsoleService) Stop() {
	m.StopCalled = true
}

func (m *MockConsoleService) PopulateAgents(ctx context.Context) error {
	return m.NextError
}

func (m *MockConsoleService) RefreshAgent(ctx context.Context, id string) error {
	m.LastID = id
	return m.NextError
}

func (m *MockConsoleService) RefreshAll(ctx context.Context) error {
	return m.NextError
}

func (m *MockConsoleService) UpdateTerminal(ctx context.Context) error {
	return m.NextError
}

func (m *MockConsoleService) RenderCharts(ctx context.Context) error {
	return m.NextError
}

func (m *MockConsoleService) IsPending(id string) bool {
	m.LastID = id
	return m.NextPending
}

func (m *MockConsoleService) ListAgents() *api.AgentListResponse {
	return m.NextAgentList
}

func (m *MockConsoleService) GetAgent(id string) (*api.AgentSnapshotResponse, error) {
	m.LastID = id
	return m.NextAgent, m.NextError
}

func (m *MockConsoleService) GetFragment(id string) (*api.AgentFragmentResponse, error) {
	m.LastID = id
	return m.NextFragment, m.NextError
}

func (m *MockConsoleService) GetCharts() *chart.Charts {
	return m.NextCharts
}

func (m *MockConsoleService) GetTerminal() *api.TerminalResponse {
	return m.NextTerminal
}

func (m *MockConsoleService) RegisterClientFeed(w http.ResponseWriter, r *http.Request) {
	m.RegisterClientFeedCalled = true
}

func (m *MockConsoleService) GetStatus() *api.HealthCheckStatusResponse {
	return m.NextStatus
}

type MockActionService struct {
	DispatchCalled bool
	AddAgentCalled bool
	LastAgentID    string
	LastValues     url.Values

	NextResponse *api.ActionResponse
	NextError    error
}

func (m *MockActionService) Dispatch(ctx context.Context, agentID string) (*api.ActionResponse, error) {
	m.DispatchCalled = true
	m.LastAgentID = agentID
	return m.NextResponse, m.NextError
}

func (m *MockActionService) AddAgent(ctx context.Context, agentID string, values url.Values) (*api.ActionResponse, error) {
	m.AddAgentCalled = true
	m.LastAgentID = agentID
	m.LastValues = values
	return m.NextResponse, m.NextError
}
