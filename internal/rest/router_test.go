package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gavv/httpexpect"
	"github.com/test-go/testify/assert"

	"github.com/qredo/attestation-console/internal/agent"
	"github.com/qredo/attestation-console/internal/api"
	"github.com/qredo/attestation-console/internal/config"
	"github.com/qredo/attestation-console/internal/defs"
	"github.com/qredo/attestation-console/internal/service"
)

func newTestServer(t *testing.T, consoleSrv *service.MockConsoleService, actionSrv *service.MockActionService) (*httpexpect.Expect, func()) {
	var cfg config.Config
	cfg.Default()

	router := NewRouter(testLog, cfg, api.Version{BuildVersion: "v1.0.0", BuildType: "test"}, consoleSrv, actionSrv)
	server := httptest.NewServer(router.Handler())

	return httpexpect.New(t, server.URL), server.Close
}

func TestRouter_routes(t *testing.T) {
	//Arrange
	consoleSrvMock := &service.MockConsoleService{
		NextAgentList: &api.AgentListResponse{
			IDs: []string{"u1", "u2"},
			Agents: []api.AgentRecordResponse{
				{ID: "u1", State: "ready", Overview: &agent.Overview{ID: "u1", Status: "3 (Get Quote)", Class: "processed", Action: http.MethodDelete}},
				{ID: "u2", State: "pending"},
			},
		},
		NextTerminal: &api.TerminalResponse{Lines: []string{"line 1"}, Offset: 1, MaxLines: 100},
	}
	e, closeServer := newTestServer(t, consoleSrvMock, &service.MockActionService{})
	defer closeServer()

	//Act
	agents := e.GET(WrapPathPrefix(PathAgents)).Expect()
	term := e.GET(WrapPathPrefix(PathTerminal)).Expect()
	ver := e.GET(WrapPathPrefix(PathHealthcheckVersion)).Expect()

	//Assert
	agents.Status(http.StatusOK).ContentType("application/json")
	agents.Header(HeaderTraceID).NotEmpty()
	list := agents.JSON().Object()
	list.Value("ids").Array().Elements("u1", "u2")
	list.Value("agents").Array().Length().Equal(2)
	list.Value("agents").Array().Element(0).Object().Value("overview").Object().ValueEqual("class", "processed")
	list.Value("agents").Array().Element(1).Object().ValueEqual("state", "pending")

	term.Status(http.StatusOK)
	term.JSON().Object().ValueEqual("offset", 1)

	ver.Status(http.StatusOK)
	ver.JSON().Object().ValueEqual("buildVersion", "v1.0.0")
}

func TestRouter_config_hides_the_redis_password(t *testing.T) {
	//Arrange
	var cfg config.Config
	cfg.Default()
	cfg.LoadBalancing.RedisConfig.Password = "s3cret"
	router := NewRouter(testLog, cfg, api.Version{}, &service.MockConsoleService{}, &service.MockActionService{})
	server := httptest.NewServer(router.Handler())
	defer server.Close()
	e := httpexpect.New(t, server.URL)

	//Act
	res := e.GET(WrapPathPrefix(PathHealthCheckConfig)).Expect()

	//Assert
	res.Status(http.StatusOK)
	res.Body().NotContains("s3cret")
	res.JSON().Object().Value("loadBalancing").Object().Value("redis").Object().ValueEqual("password", "********")
}

func TestRouter_agent_not_found(t *testing.T) {
	//Arrange
	consoleSrvMock := &service.MockConsoleService{
		NextError: defs.ErrNotFound().WithDetail("agent not tracked"),
	}
	e, closeServer := newTestServer(t, consoleSrvMock, &service.MockActionService{})
	defer closeServer()

	//Act
	res := e.GET(WrapPathPrefix("/agents/u9")).Expect()

	//Assert
	res.Status(http.StatusNotFound)
	obj := res.JSON().Object()
	obj.ValueEqual("code", http.StatusNotFound)
	obj.ValueEqual("detail", "agent not tracked")
	assert.Equal(t, "u9", consoleSrvMock.LastID)
}

func TestRouter_action_routes(t *testing.T) {
	//Arrange
	actionSrvMock := &service.MockActionService{
		NextResponse: &api.ActionResponse{AgentID: "u1", Method: http.MethodDelete, Status: "Success", HTTPStatus: http.StatusOK},
	}
	e, closeServer := newTestServer(t, &service.MockConsoleService{}, actionSrvMock)
	defer closeServer()

	//Act
	res := e.POST(WrapPathPrefix("/agents/u1/action")).Expect()

	//Assert
	res.Status(http.StatusOK)
	res.JSON().Object().ValueEqual("method", http.MethodDelete)
	assert.True(t, actionSrvMock.DispatchCalled)
	assert.False(t, actionSrvMock.AddAgentCalled)
	assert.Equal(t, "u1", actionSrvMock.LastAgentID)
}

func TestRouter_add_agent_form(t *testing.T) {
	//Arrange
	actionSrvMock := &service.MockActionService{
		NextResponse: &api.ActionResponse{AgentID: "u1", Method: http.MethodPost, Status: "Success", HTTPStatus: http.StatusOK},
	}
	e, closeServer := newTestServer(t, &service.MockConsoleService{}, actionSrvMock)
	defer closeServer()

	//Act
	res := e.POST(WrapPathPrefix("/agents/u1")).
		WithFormField("ip", "10.0.0.2").
		WithFormField("port", "9002").
		WithFormField("ptype", "0").
		Expect()

	//Assert
	res.Status(http.StatusOK)
	assert.True(t, actionSrvMock.AddAgentCalled)
	assert.Equal(t, "10.0.0.2", actionSrvMock.LastValues.Get("ip"))
	assert.Equal(t, "0", actionSrvMock.LastValues.Get("ptype"))
}

func TestRouter_method_not_allowed(t *testing.T) {
	//Arrange
	e, closeServer := newTestServer(t, &service.MockConsoleService{}, &service.MockActionService{})
	defer closeServer()

	//Act
	res := e.DELETE(WrapPathPrefix("/agents/u1")).Expect()

	//Assert
	res.Status(http.StatusMethodNotAllowed)
}

func TestRouter_static_shell_and_metrics(t *testing.T) {
	//Arrange
	e, closeServer := newTestServer(t, &service.MockConsoleService{}, &service.MockActionService{})
	defer closeServer()

	//Act
	index := e.GET("/").Expect()
	metrics := e.GET(PathMetrics).Expect()

	//Assert
	index.Status(http.StatusOK)
	index.Body().Contains("agent_body")
	metrics.Status(http.StatusOK)
	metrics.Body().Contains("go_goroutines")
}
