// Package refresher provides an internal feed client that reacts to newly discovered agents.
// A pending agent is refreshed right away instead of waiting for the next refresh tick,
// retrying on a fixed interval until its first snapshot arrives or the retry window ends.
package refresher

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/qredo/attestation-console/internal/config"
	"github.com/qredo/attestation-console/internal/hub"
)

// AgentRefresher is the part of the console service used to refresh an agent
type AgentRefresher interface {
	RefreshAgent(ctx context.Context, id string) error
	IsPending(id string) bool
}

type FirstRefresher interface {
	Listen(wg *sync.WaitGroup)
	GetFeedClient() *hub.HubFeedClient
	Stop()
}

type firstRefresher struct {
	hub.HubFeedClient
	log       *zap.SugaredLogger
	cfg       config.Polling
	refresher AgentRefresher

	ctx       context.Context
	cancel    context.CancelFunc
	inFlight  sync.WaitGroup
	lastError error
	lock      sync.Mutex
}

// NewFirstRefresher returns a FirstRefresher with an internal FeedClient, so it stops when the hub stops
// and closes the Feed channel
func NewFirstRefresher(log *zap.SugaredLogger, cfg config.Polling, refresher AgentRefresher) FirstRefresher {
	ctx, cancel := context.WithCancel(context.Background())
	return &firstRefresher{
		HubFeedClient: hub.NewHubFeedClient(true),
		log:           log,
		cfg:           cfg,
		refresher:     refresher,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Listen is constantly listening for messages on the Feed channel.
// The Feed channel is always closed by the sender. When this happens, the FirstRefresher stops
func (r *firstRefresher) Listen(wg *sync.WaitGroup) {
	r.log.Debug("FirstRefresher: listening")
	wg.Done()

	for {
		if message, ok := <-r.Feed; !ok {
			//channel was closed by the sender
			r.log.Info("FirstRefresher: stopped")
			return
		} else {
			r.inFlight.Add(1)
			go func() {
				defer r.inFlight.Done()
				r.handleMessage(message)
			}()
		}
	}
}

// Stop cancels the pending retries and waits for them to return
func (r *firstRefresher) Stop() {
	r.log.Debug("FirstRefresher: stopping")
	r.cancel()
	r.inFlight.Wait()
}

func (r *firstRefresher) GetFeedClient() *hub.HubFeedClient {
	return &r.HubFeedClient
}

func (r *firstRefresher) handleMessage(message []byte) {
	ev := hub.Event{}
	if err := json.Unmarshal(message, &ev); err != nil {
		r.log.Errorf("FirstRefresher: fail to unmarshal the message `%v`, err: %v", string(message), err)
		r.setLastError(err)
		return
	}

	if ev.Type != hub.EventAgentAdded || ev.ID == "" {
		return
	}

	r.refresh(ev.ID)
}

func (r *firstRefresher) refresh(id string) {
	timer := newRetryTimer(r.cfg.FirstRefreshRetryMs, r.cfg.FirstRefreshRetryMaxMs)
	for {
		if !r.refresher.IsPending(id) {
			//refreshed by the poll loop or removed in the meantime
			return
		}

		if err := r.refresher.RefreshAgent(r.ctx, id); err == nil {
			r.log.Debugf("FirstRefresher: agent `%s` refreshed", id)
			return
		} else {
			r.log.Warnf("FirstRefresher: refresh failed for agent `%s`, err: %v", id, err)
			r.setLastError(err)

			if timer.isTimeOut() {
				r.log.Warnf("FirstRefresher: first refresh timed out for agent `%s`", id)
				return
			}

			if !timer.retry(r.ctx.Done()) {
				return
			}
		}
	}
}

func (r *firstRefresher) setLastError(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.lastError = err
}

func (r *firstRefresher) getLastError() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.lastError
}
