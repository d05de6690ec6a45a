package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/test-go/testify/assert"
	"go.uber.org/goleak"

	"github.com/qredo/attestation-console/internal/agent"
	"github.com/qredo/attestation-console/internal/api"
	"github.com/qredo/attestation-console/internal/apiclient"
	"github.com/qredo/attestation-console/internal/config"
	"github.com/qredo/attestation-console/internal/hub"
	"github.com/qredo/attestation-console/internal/model"
	"github.com/qredo/attestation-console/internal/terminal"
	"github.com/qredo/attestation-console/internal/util"
)

var (
	testLog          = util.NewTestLogger()
	ignoreOpenCensus = goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start")
)

type mockPublisher struct {
	lock   sync.Mutex
	Events []hub.Event
}

func (m *mockPublisher) Publish(ev hub.Event) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.Events = append(m.Events, ev)
	return true
}

func (m *mockPublisher) eventsOf(eventType hub.EventType) []hub.Event {
	m.lock.Lock()
	defer m.lock.Unlock()

	res := make([]hub.Event, 0)
	for _, ev := range m.Events {
		if ev.Type == eventType {
			res = append(res, ev)
		}
	}
	return res
}

type mockFeedHub struct {
	lock sync.Mutex

	NextRun              bool
	RunCalled            bool
	StopCalled           bool
	RegisterClientCalled bool
	LastRegisteredClient *hub.HubFeedClient
	NextWSstatus         api.WebsocketStatus
}

func (m *mockFeedHub) Run() bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.RunCalled = true
	return m.NextRun
}

// Stop closes the registered client feed, like the hub does when it stops
func (m *mockFeedHub) Stop() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.StopCalled = true
	if m.LastRegisteredClient != nil {
		close(m.LastRegisteredClient.Feed)
		m.LastRegisteredClient = nil
	}
}

func (m *mockFeedHub) RegisterClient(client *hub.HubFeedClient) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.RegisterClientCalled = true
	m.LastRegisteredClient = client
}

func (m *mockFeedHub) UnregisterClient(client *hub.HubFeedClient) {}

func (m *mockFeedHub) IsRunning() bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.NextRun
}

func (m *mockFeedHub) GetWebsocketStatus() api.WebsocketStatus {
	return m.NextWSstatus
}

func testConfig() config.Config {
	cfg := config.Config{}
	cfg.Default()
	return cfg
}

func newTestService(client apiclient.APIClient) (*consoleSrv, *mockPublisher) {
	cfg := testConfig()
	pub := &mockPublisher{}
	term := terminal.NewLog(cfg.Terminal.MaxLines)
	srv := NewConsoleService(cfg, client, model.NewViewModel(), term, &mockFeedHub{NextRun: true}, pub, nil, testLog).(*consoleSrv)
	return srv, pub
}

func uuidsEnvelope(ids ...string) *apiclient.Envelope {
	data, _ := json.Marshal(map[string][]string{"uuids": ids})
	return &apiclient.Envelope{Status: "Success", HTTPStatus: http.StatusOK, Results: data}
}

func agentJSON(id string, state int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"id":"%s","operational_state":%d,"ip":"10.0.0.1","port":9002}`, id, state))
}

func agentEnvelope(id string, state int) *apiclient.Envelope {
	return &apiclient.Envelope{Status: "Success", HTTPStatus: http.StatusOK, Results: agentJSON(id, state)}
}

// backend answers the agent listing with ids and every agent with its state in states
func backend(states map[string]int, ids ...string) func(call apiclient.MockCall) (*apiclient.Envelope, error) {
	return func(call apiclient.MockCall) (*apiclient.Envelope, error) {
		if call.ResourceID == "" {
			return uuidsEnvelope(ids...), nil
		}

		state, ok := states[call.ResourceID]
		if !ok {
			return nil, &apiclient.TransportError{Method: call.Method, URL: call.ResourceID, Err: errors.New("connection refused")}
		}
		return agentEnvelope(call.ResourceID, state), nil
	}
}

func testSnapshot(t *testing.T, id string, state int) *agent.Snapshot {
	a, err := agent.Parse(agentJSON(id, state))
	assert.NoError(t, err)
	return agent.NewSnapshot(a, time.Now())
}

// trackAgent adds the agent to the view model, with a snapshot unless state is negative
func trackAgent(t *testing.T, vm *model.ViewModel, id string, state int) {
	ids := append(vm.IDs(), id)
	_, ok := vm.Reconcile(vm.NextGeneration(), ids)
	assert.True(t, ok)

	if state >= 0 {
		assert.True(t, vm.Apply(vm.NextSequence(), testSnapshot(t, id, state)))
	}
}
