package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/context"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/qredo/attestation-console/internal/api"
	"github.com/qredo/attestation-console/internal/config"
	"github.com/qredo/attestation-console/internal/defs"
	"github.com/qredo/attestation-console/internal/service"
	"github.com/qredo/attestation-console/internal/util"
)

const (
	PathHealthcheckVersion = "/healthcheck/version"
	PathHealthCheckConfig  = "/healthcheck/config"
	PathHealthCheckStatus  = "/healthcheck/status"
	PathAgents             = "/agents"
	PathAgent              = "/agents/{uuid}"
	PathAgentFragment      = "/agents/{uuid}/fragment"
	PathAgentAction        = "/agents/{uuid}/action"
	PathCharts             = "/charts"
	PathTerminal           = "/terminal"
	PathFeed               = "/feed"
	PathMetrics            = "/metrics"

	readHeaderTimeout = 10 * time.Second
)

type route struct {
	path    string
	method  string
	handler appHandlerFunc
}

type Router struct {
	log       *zap.SugaredLogger
	config    config.Config
	handler   http.Handler
	router    *mux.Router
	subRouter *mux.Router
	server    *http.Server

	middleware *Middleware
	version    api.Version

	consoleService service.ConsoleService
	actionService  service.ActionService

	parseForm func(*http.Request) error
}

func NewRouter(log *zap.SugaredLogger, config config.Config, version api.Version, consoleService service.ConsoleService, actionService service.ActionService) *Router {
	router := mux.NewRouter()
	app := &Router{
		log:            log,
		middleware:     NewMiddleware(log, config.HTTP.LogAllRequests),
		router:         router,
		subRouter:      router.PathPrefix(defs.PathPrefix).Subrouter(),
		version:        version,
		config:         config,
		consoleService: consoleService,
		actionService:  actionService,
		parseForm:      util.ParseForm,
	}

	app.setRoutes()
	return app
}

// setRoutes set all handlers
func (a *Router) setRoutes() {
	routes := []route{
		{PathHealthcheckVersion, http.MethodGet, a.HealthCheckVersion},
		{PathHealthCheckConfig, http.MethodGet, a.HealthCheckConfig},
		{PathHealthCheckStatus, http.MethodGet, a.HealthCheckStatus},
		{PathAgents, http.MethodGet, a.ListAgents},
		{PathAgentFragment, http.MethodGet, a.GetAgentFragment},
		{PathAgentAction, http.MethodPost, a.AgentAction},
		{PathAgent, http.MethodGet, a.GetAgent},
		{PathAgent, http.MethodPost, a.AddAgent},
		{PathCharts, http.MethodGet, a.GetCharts},
		{PathTerminal, http.MethodGet, a.GetTerminal},
		{PathFeed, defs.MethodWebsocket, a.ClientFeed},
	}

	for _, route := range routes {
		middle := a.middleware.notProtectedMiddleware
		if route.method == defs.MethodWebsocket {
			a.subRouter.Handle(route.path, a.middleware.sessionMiddleware(middle(route.handler)))
		} else {
			a.subRouter.Handle(route.path, a.middleware.sessionMiddleware(middle(route.handler))).Methods(route.method)
		}
	}

	a.subRouter.Use(a.middleware.loggingMiddleware)

	a.router.Handle(PathMetrics, promhttp.Handler()).Methods(http.MethodGet)
	a.router.PathPrefix("/").Handler(staticHandler()).Methods(http.MethodGet, http.MethodHead)

	a.printRoutes()
	a.setupCORS()
}

// Start starts the console service and serves the API until the server is stopped
func (a *Router) Start() error {
	a.log.Infof("CORS policy: %s", strings.Join(a.config.HTTP.CORSAllowOrigins, ","))
	a.log.Infof("Starting listener on %v", a.config.HTTP.Addr)

	if err := a.consoleService.Start(); err != nil {
		a.log.Errorf("Failed to start the console service, err: %v", err)
		return err
	}

	a.server = &http.Server{
		Addr:              a.config.HTTP.Addr,
		Handler:           context.ClearHandler(a.handler),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	var err error
	if a.config.HTTP.TLS.Enabled {
		a.log.Info("Start listening on HTTPS")
		err = a.server.ListenAndServeTLS(a.config.HTTP.TLS.CertFile, a.config.HTTP.TLS.KeyFile)
	} else {
		a.log.Info("Start listening on HTTP")
		err = a.server.ListenAndServe()
	}

	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts down the console service and closes the listener
func (a *Router) Stop() {
	a.consoleService.Stop()

	if a.server != nil {
		if err := a.server.Close(); err != nil {
			a.log.Errorf("failed to close the server, err: %v", err)
		}
	}
}

// Handler returns the root handler, CORS included
func (a *Router) Handler() http.Handler {
	return a.handler
}

func (a *Router) setupCORS() {
	cors := handlers.CORS(
		handlers.AllowedHeaders([]string{
			"Content-Type",
			"X-Requested-With",
			HeaderTraceID}),
		handlers.AllowedOrigins(a.config.HTTP.CORSAllowOrigins),
		handlers.AllowedMethods([]string{
			http.MethodGet,
			http.MethodPost,
			http.MethodHead}),
		handlers.AllowCredentials(),
	)

	a.handler = cors(a.router)
}

func (a Router) printRoutes() {
	if err := a.router.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		if tpl, err := route.GetPathTemplate(); err == nil {
			if met, err := route.GetMethods(); err == nil {
				for _, m := range met {
					a.log.Debugf("Registered handler %v %v", m, tpl)
				}
			}
		}
		return nil
	}); err != nil {
		panic(err)
	}
}
