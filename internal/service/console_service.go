package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"go.uber.org/zap"

	"github.com/qredo/attestation-console/internal/agent"
	"github.com/qredo/attestation-console/internal/api"
	"github.com/qredo/attestation-console/internal/apiclient"
	"github.com/qredo/attestation-console/internal/chart"
	"github.com/qredo/attestation-console/internal/config"
	"github.com/qredo/attestation-console/internal/defs"
	"github.com/qredo/attestation-console/internal/feed"
	"github.com/qredo/attestation-console/internal/hub"
	"github.com/qredo/attestation-console/internal/model"
	"github.com/qredo/attestation-console/internal/refresher"
	"github.com/qredo/attestation-console/internal/terminal"
)

const (
	loopAgentList    = "agent_list"
	loopAgentRefresh = "agent_refresh"
	loopTerminal     = "terminal"
	loopCharts       = "charts"
)

// ConsoleService keeps the view model of the backend agents up to date and serves it
type ConsoleService interface {
	Start() error
	Stop()

	PopulateAgents(ctx context.Context) error
	RefreshAgent(ctx context.Context, id string) error
	RefreshAll(ctx context.Context) error
	UpdateTerminal(ctx context.Context) error
	RenderCharts(ctx context.Context) error
	IsPending(id string) bool

	ListAgents() *api.AgentListResponse
	GetAgent(id string) (*api.AgentSnapshotResponse, error)
	GetFragment(id string) (*api.AgentFragmentResponse, error)
	GetCharts() *chart.Charts
	GetTerminal() *api.TerminalResponse

	RegisterClientFeed(w http.ResponseWriter, r *http.Request)
	GetStatus() *api.HealthCheckStatusResponse
}

type newClientFeedFunc func(conn hub.WebsocketConnection, log *zap.SugaredLogger, unregister feed.UnregisterFunc, config config.WebSocketConfig) feed.ClientFeed

type consoleSrv struct {
	config    config.Config
	client    apiclient.APIClient
	viewModel *model.ViewModel
	term      *terminal.Log
	poller    *terminal.Poller
	issues    *terminal.IssueReporter

	feedHub           hub.FeedHub
	publisher         hub.Publisher
	upgrader          hub.WebsocketUpgrader
	newClientFeedFunc newClientFeedFunc //function used by the feed clients to unregister themselves from the hub and stop receiving data
	firstRefresher    refresher.FirstRefresher

	log *zap.SugaredLogger

	cancel context.CancelFunc
	loops  sync.WaitGroup

	lock            sync.RWMutex
	running         bool
	charts          *chart.Charts
	published       map[string]time.Time
	lastAgentList   time.Time
	lastTerminal    time.Time
	lastCharts      time.Time
	lastPollFailure string
}

// NewConsoleService returns a ConsoleService polling the backend through client.
// Terminal lines appended to term are broadcast to the feed clients as they arrive.
func NewConsoleService(cfg config.Config, client apiclient.APIClient, viewModel *model.ViewModel, term *terminal.Log,
	feedHub hub.FeedHub, publisher hub.Publisher, upgrader hub.WebsocketUpgrader, log *zap.SugaredLogger) ConsoleService {
	issues := terminal.NewIssueReporter(term, cfg.Base.Debug, log)
	srv := &consoleSrv{
		config:            cfg,
		client:            client,
		viewModel:         viewModel,
		term:              term,
		poller:            terminal.NewPoller(client, term, cfg.Terminal.LogResource, issues),
		issues:            issues,
		feedHub:           feedHub,
		publisher:         publisher,
		upgrader:          upgrader,
		newClientFeedFunc: feed.NewClientFeed,
		log:               log,
		published:         make(map[string]time.Time),
	}
	srv.firstRefresher = refresher.NewFirstRefresher(log, cfg.Polling, srv)

	term.Subscribe(func(lines []string) {
		srv.publish(hub.NewTerminalEvent(lines))
	})

	return srv
}

// Start runs the feed hub, registers the first refresher to it and starts the poll loops
func (s *consoleSrv) Start() error {
	if s.firstRefresher != nil {
		var wg sync.WaitGroup
		wg.Add(1)

		go s.firstRefresher.Listen(&wg)
		wg.Wait()
	}

	if !s.feedHub.Run() {
		s.log.Error("Console Service: failed to start the feed hub")
		if s.firstRefresher != nil {
			close(s.firstRefresher.GetFeedClient().Feed)
			s.firstRefresher.Stop()
		}
		return fmt.Errorf("failed to start the feed hub")
	}

	//feed hub is running, the first refresher gets the agent_added events from now on
	if s.firstRefresher != nil {
		s.feedHub.RegisterClient(s.firstRefresher.GetFeedClient())
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	polling := s.config.Polling
	s.loops.Add(4)
	go s.runLoop(ctx, loopAgentList, polling.AgentListIntervalMs, s.PopulateAgents)
	go s.runLoop(ctx, loopAgentRefresh, polling.AgentRefreshIntervalMs, s.RefreshAll)
	go s.runLoop(ctx, loopTerminal, polling.TerminalIntervalMs, s.UpdateTerminal)
	go s.runLoop(ctx, loopCharts, polling.ChartsIntervalMs, s.RenderCharts)

	s.setRunning(true)
	s.log.Info("Console Service: started")
	return nil
}

// Stop is called to stop the service on request, by ex: when the app is stopped
func (s *consoleSrv) Stop() {
	s.log.Info("Console Service: stopping")

	if s.cancel != nil {
		s.cancel()
	}
	s.loops.Wait()
	s.setRunning(false)

	//closes the feed of every client, the first refresher included
	s.feedHub.Stop()
	if s.firstRefresher != nil {
		s.firstRefresher.Stop()
	}
}

// IsPending is true for tracked agents without a snapshot yet
func (s *consoleSrv) IsPending(id string) bool {
	rec, ok := s.viewModel.Get(id)
	return ok && rec.State == model.StatePending
}

func (s *consoleSrv) ListAgents() *api.AgentListResponse {
	records := s.viewModel.Records()
	resp := &api.AgentListResponse{
		IDs:    make([]string, 0, len(records)),
		Agents: make([]api.AgentRecordResponse, 0, len(records)),
	}

	for _, rec := range records {
		item := api.AgentRecordResponse{
			ID:    rec.ID,
			State: string(rec.State),
		}
		if rec.Snapshot != nil {
			item.Overview = copyOverview(&rec.Snapshot.Overview)
		}

		resp.IDs = append(resp.IDs, rec.ID)
		resp.Agents = append(resp.Agents, item)
	}

	return resp
}

func (s *consoleSrv) GetAgent(id string) (*api.AgentSnapshotResponse, error) {
	rec, ok := s.viewModel.Get(id)
	if !ok {
		return nil, defs.ErrNotFound().WithDetail("agent not tracked")
	}

	resp := &api.AgentSnapshotResponse{
		ID:    rec.ID,
		State: string(rec.State),
	}
	if rec.Snapshot != nil {
		fetchedAt := rec.Snapshot.FetchedAt
		resp.Overview = copyOverview(&rec.Snapshot.Overview)
		resp.Detail = copyDetail(&rec.Snapshot.Detail)
		resp.FetchedAt = &fetchedAt
	}

	return resp, nil
}

// GetFragment renders the DOM element of the agent, with its overview and detail panels once refreshed
func (s *consoleSrv) GetFragment(id string) (*api.AgentFragmentResponse, error) {
	rec, ok := s.viewModel.Get(id)
	if !ok {
		return nil, defs.ErrNotFound().WithDetail("agent not tracked")
	}

	element, err := agent.RenderElement(rec.ID, rec.Snapshot)
	if err != nil {
		s.log.Errorf("Console Service: failed to render agent `%s`, err: %v", id, err)
		return nil, defs.ErrInternal().WithDetail("failed to render agent").Wrap(err)
	}

	resp := &api.AgentFragmentResponse{
		ID:      rec.ID,
		Element: element,
	}
	if rec.Snapshot != nil {
		if resp.Overview, err = rec.Snapshot.RenderOverview(); err != nil {
			return nil, defs.ErrInternal().WithDetail("failed to render agent").Wrap(err)
		}
		if resp.Detail, err = rec.Snapshot.RenderDetail(); err != nil {
			return nil, defs.ErrInternal().WithDetail("failed to render agent").Wrap(err)
		}
	}

	return resp, nil
}

// GetCharts returns the last rendered charts, or charts built from the view model before the first render
func (s *consoleSrv) GetCharts() *chart.Charts {
	s.lock.RLock()
	charts := s.charts
	s.lock.RUnlock()

	if charts != nil {
		return charts
	}
	return chart.Build(s.viewModel.Agents(), time.Now())
}

func (s *consoleSrv) GetTerminal() *api.TerminalResponse {
	return &api.TerminalResponse{
		Lines:    s.term.Lines(),
		Offset:   s.term.NextOffset(),
		MaxLines: s.term.MaxLines(),
	}
}

func (s *consoleSrv) RegisterClientFeed(w http.ResponseWriter, r *http.Request) {
	if !s.feedHub.IsRunning() {
		s.log.Errorf("Console Service: failed to connect feed client, hub not running")
		return
	}

	clientFeed := s.newClientFeed(w, r)
	if clientFeed != nil {
		var wg sync.WaitGroup
		wg.Add(2)

		go clientFeed.Start(&wg)
		go clientFeed.Listen(&wg)

		wg.Wait() //wait for the client to set up the conn handling and start listening

		s.feedHub.RegisterClient(clientFeed.GetFeedClient())
		s.log.Info("Console Service: new local feed client connected")
	}
}

func (s *consoleSrv) GetStatus() *api.HealthCheckStatusResponse {
	records := s.viewModel.Records()
	pending := 0
	for _, rec := range records {
		if rec.State == model.StatePending {
			pending++
		}
	}

	s.lock.RLock()
	polling := api.PollingStatus{
		Running:         s.running,
		TrackedAgents:   len(records),
		PendingAgents:   pending,
		LastAgentList:   s.lastAgentList,
		LastTerminal:    s.lastTerminal,
		LastCharts:      s.lastCharts,
		TerminalOffset:  s.term.NextOffset(),
		LastPollFailure: s.lastPollFailure,
	}
	s.lock.RUnlock()

	if br, ok := s.client.(apiclient.BreakerReporter); ok {
		polling.BackendBreaker = br.BreakerState()
	}

	return &api.HealthCheckStatusResponse{
		WebsocketStatus: s.feedHub.GetWebsocketStatus(),
		LocalFeedUrl:    defs.URLlocalFeed(s.config.HTTP.Addr),
		Polling:         polling,
	}
}

func (s *consoleSrv) newClientFeed(w http.ResponseWriter, r *http.Request) feed.ClientFeed {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("Console Service: failed to upgrade connection, err: %v", err)
		return nil
	}

	return s.newClientFeedFunc(conn, s.log, s.feedHub.UnregisterClient, s.config.Websocket)
}

func (s *consoleSrv) publish(ev hub.Event) {
	if s.publisher == nil {
		return
	}

	if !s.publisher.Publish(ev) {
		s.log.Debugf("Console Service: %s event dropped", ev.Type)
	}
}

func (s *consoleSrv) setRunning(running bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.running = running
}

func (s *consoleSrv) eventTTL() time.Duration {
	return time.Duration(s.config.LoadBalancing.SnapshotExpirationSec) * time.Second
}

func copyOverview(src *agent.Overview) *agent.Overview {
	dst := &agent.Overview{}
	if err := copier.Copy(dst, src); err != nil {
		return src
	}
	return dst
}

func copyDetail(src *agent.Detail) *agent.Detail {
	dst := &agent.Detail{}
	if err := copier.CopyWithOption(dst, src, copier.Option{DeepCopy: true}); err != nil {
		return src
	}
	return dst
}
