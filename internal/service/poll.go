package service

import (
	"context"
	"reflect"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/qredo/attestation-console/internal/agent"
	"github.com/qredo/attestation-console/internal/apiclient"
	"github.com/qredo/attestation-console/internal/chart"
	"github.com/qredo/attestation-console/internal/defs"
	"github.com/qredo/attestation-console/internal/hub"
	"github.com/qredo/attestation-console/internal/model"
	"github.com/qredo/attestation-console/internal/status"
)

const defaultMaxConcurrentFetches = 8

// ErrBackendFailure is returned when the backend answered with a failure envelope, already reported to the terminal
var ErrBackendFailure = errors.New("backend reported a failure")

func (s *consoleSrv) runLoop(ctx context.Context, name string, intervalMs int, poll func(ctx context.Context) error) {
	defer s.loops.Done()

	if intervalMs <= 0 {
		s.log.Warnf("Console Service: %s loop disabled", name)
		return
	}

	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	s.runPoll(ctx, name, poll)
	for {
		select {
		case <-ctx.Done():
			s.log.Debugf("Console Service: %s loop stopped", name)
			return
		case <-ticker.C:
			s.runPoll(ctx, name, poll)
		}
	}
}

func (s *consoleSrv) runPoll(ctx context.Context, name string, poll func(ctx context.Context) error) {
	start := time.Now()
	err := poll(ctx)
	pollDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	s.lock.Lock()
	defer s.lock.Unlock()

	if err != nil {
		pollsTotal.WithLabelValues(name, resultError).Inc()
		if ctx.Err() == nil {
			s.lastPollFailure = name + ": " + err.Error()
		}
		return
	}

	pollsTotal.WithLabelValues(name, resultOK).Inc()
	switch name {
	case loopAgentList:
		s.lastAgentList = time.Now()
	case loopTerminal:
		s.lastTerminal = time.Now()
	case loopCharts:
		s.lastCharts = time.Now()
	}
}

// PopulateAgents fetches the agent id listing and reconciles the view model with it.
// Added agents are tracked as pending and refreshed by the next refresh round.
func (s *consoleSrv) PopulateAgents(ctx context.Context) error {
	generation := s.viewModel.NextGeneration()

	ids, err := s.listAgentIDs(ctx, "populateAgents")
	if err != nil || ids == nil {
		return err
	}

	diff, ok := s.viewModel.Reconcile(generation, ids)
	if !ok {
		staleResponses.WithLabelValues("agent_list").Inc()
		s.log.Debugf("Console Service: stale agent list dropped, generation %d", generation)
		return nil
	}

	for _, id := range diff.Removed {
		s.log.Infof("Console Service: agent `%s` removed", id)
		s.markPublished(id, time.Time{})
		s.publish(hub.NewAgentEvent(hub.EventAgentRemoved, id, "", nil, s.eventTTL()))
	}
	for _, id := range diff.Added {
		s.log.Infof("Console Service: agent `%s` added", id)
		s.publish(hub.NewAgentEvent(hub.EventAgentAdded, id, string(model.StatePending), nil, s.eventTTL()))
	}

	s.updateTrackedGauge()
	return nil
}

// RefreshAgent fetches one agent and applies its snapshot. Failures are reported and not retried.
func (s *consoleSrv) RefreshAgent(ctx context.Context, id string) error {
	seq := s.viewModel.NextSequence()

	a, err := s.fetchAgent(ctx, id, "updateAgent")
	if err != nil {
		return err
	}

	previous, _ := s.viewModel.Get(id)
	snapshot := agent.NewSnapshot(a, time.Now())
	if !s.viewModel.Apply(seq, snapshot) {
		staleResponses.WithLabelValues("agent").Inc()
		s.log.Debugf("Console Service: snapshot of agent `%s` dropped, sequence %d", id, seq)
		return nil
	}

	if s.shouldPublishSnapshot(id, previous.Snapshot, snapshot) {
		s.publish(hub.NewAgentEvent(hub.EventAgentUpdated, id, string(model.StateReady), snapshot, s.eventTTL()))
		s.markPublished(id, snapshot.FetchedAt)
	}

	if previous.State == model.StatePending {
		s.updateTrackedGauge()
	}
	return nil
}

// RefreshAll refreshes every tracked agent, with at most polling.maxConcurrentFetches requests in flight
func (s *consoleSrv) RefreshAll(ctx context.Context) error {
	ids := s.viewModel.IDs()

	g := errgroup.Group{}
	g.SetLimit(s.maxConcurrentFetches())
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			//reported by RefreshAgent, the other agents are still refreshed
			_ = s.RefreshAgent(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return ctx.Err()
}

// UpdateTerminal appends the server log lines past the terminal offset
func (s *consoleSrv) UpdateTerminal(ctx context.Context) error {
	return s.poller.Update(ctx)
}

// RenderCharts lists and fetches every agent, builds the pie and sunburst inputs and broadcasts them
func (s *consoleSrv) RenderCharts(ctx context.Context) error {
	ids, err := s.listAgentIDs(ctx, "drawCharts")
	if err != nil || ids == nil {
		return err
	}

	agents := make([]*agent.Agent, len(ids))
	g := errgroup.Group{}
	g.SetLimit(s.maxConcurrentFetches())
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if a, err := s.fetchAgent(ctx, id, "drawCharts"); err == nil {
				agents[i] = a
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	fetched := make([]*agent.Agent, 0, len(agents))
	for _, a := range agents {
		if a != nil {
			fetched = append(fetched, a)
		}
	}

	charts := chart.Build(fetched, time.Now())
	s.lock.Lock()
	s.charts = charts
	s.lock.Unlock()

	for _, code := range status.Codes() {
		agentStatus.WithLabelValues(strconv.Itoa(int(code))).Set(float64(charts.Counts[code]))
	}
	if charts.Skipped > 0 {
		s.log.Debugf("Console Service: %d agents with unknown status left out of the charts", charts.Skipped)
	}

	s.publish(hub.NewChartsEvent(charts, s.eventTTL()))
	return nil
}

// listAgentIDs returns nil ids and no error when the backend answered with a failure envelope
func (s *consoleSrv) listAgentIDs(ctx context.Context, caller string) ([]string, error) {
	env, err := s.client.Get(ctx, defs.ResourceAgents, "", nil)
	if err != nil {
		s.issues.Issue("ERROR %s: agent list request failed: %v", caller, err)
		return nil, err
	}

	if env.Failed() {
		return nil, nil
	}

	ids, err := apiclient.DecodeUUIDs(env)
	if err != nil {
		s.issues.Issue("ERROR %s: Cannot get uuid list from callback! %v", caller, err)
		return nil, err
	}

	return ids, nil
}

func (s *consoleSrv) fetchAgent(ctx context.Context, id, caller string) (*agent.Agent, error) {
	env, err := s.client.Get(ctx, defs.ResourceAgents, id, nil)
	if err != nil {
		s.issues.Issue("ERROR %s: agent `%s` request failed: %v", caller, id, err)
		return nil, err
	}

	if env.Failed() {
		return nil, ErrBackendFailure
	}

	raw, err := apiclient.DecodeAgent(env)
	if err != nil {
		s.issues.Issue("ERROR %s: Cannot get agent data from callback! %v", caller, err)
		return nil, err
	}

	a, err := agent.Parse(raw)
	if err != nil {
		s.issues.Issue("ERROR %s: Cannot parse agent `%s`! %v", caller, id, err)
		return nil, &apiclient.MalformedEnvelope{Reason: err.Error()}
	}

	if a.ID != id {
		s.issues.Issue("ERROR %s: requested agent `%s` but got `%s`", caller, id, a.ID)
		return nil, &apiclient.MalformedEnvelope{Reason: "agent id mismatch"}
	}

	return a, nil
}

// shouldPublishSnapshot is true when the projections changed, or when the cached event is halfway to expiring
func (s *consoleSrv) shouldPublishSnapshot(id string, prev, next *agent.Snapshot) bool {
	if prev == nil {
		return true
	}

	if !reflect.DeepEqual(prev.Overview, next.Overview) || !reflect.DeepEqual(prev.Detail, next.Detail) {
		return true
	}

	s.lock.RLock()
	last, ok := s.published[id]
	s.lock.RUnlock()

	return !ok || next.FetchedAt.Sub(last) >= s.eventTTL()/2
}

func (s *consoleSrv) markPublished(id string, at time.Time) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if at.IsZero() {
		delete(s.published, id)
		return
	}
	s.published[id] = at
}

func (s *consoleSrv) maxConcurrentFetches() int {
	if s.config.Polling.MaxConcurrentFetches <= 0 {
		return defaultMaxConcurrentFetches
	}
	return s.config.Polling.MaxConcurrentFetches
}

func (s *consoleSrv) updateTrackedGauge() {
	counts := map[model.State]int{
		model.StatePending: 0,
		model.StateReady:   0,
	}
	for _, rec := range s.viewModel.Records() {
		counts[rec.State]++
	}
	for state, n := range counts {
		trackedAgents.WithLabelValues(string(state)).Set(float64(n))
	}
}
