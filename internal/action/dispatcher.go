// Package action sends the status actions of an agent to the backend.
// When load balancing is enabled, the action is coordinated through redis so that
// only one console instance forwards it.
package action

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/qredo/attestation-console/internal/apiclient"
	"github.com/qredo/attestation-console/internal/defs"
)

var (
	ErrUnsupportedMethod = errors.New("unsupported action method")
	ErrAlreadyHandled    = errors.New("action already handled by another console")
)

type Dispatcher interface {
	// Send issues the action method against the agent resource. POST requires a body.
	Send(ctx context.Context, agentID, method string, body url.Values) (*apiclient.Envelope, error)
}

type dispatcher struct {
	client               apiclient.APIClient
	syncronizer          ActionSync
	loadBalancingEnabled bool
	log                  *zap.SugaredLogger
}

func NewDispatcher(client apiclient.APIClient, syncronizer ActionSync, loadBalancingEnabled bool, log *zap.SugaredLogger) Dispatcher {
	return &dispatcher{
		client:               client,
		syncronizer:          syncronizer,
		loadBalancingEnabled: loadBalancingEnabled,
		log:                  log,
	}
}

func (d *dispatcher) Send(ctx context.Context, agentID, method string, body url.Values) (*apiclient.Envelope, error) {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil, errors.Wrapf(ErrUnsupportedMethod, "`%s`", method)
	}

	if method == http.MethodPost && body == nil {
		return nil, apiclient.ErrDetailsRequired
	}

	actionID := agentID + ":" + method
	if d.loadBalancingEnabled {
		if !d.syncronizer.ShouldHandleAction(actionID) {
			d.log.Debugf("Action Dispatcher: action `%s` was already handled", actionID)
			return nil, ErrAlreadyHandled
		}

		if err := d.syncronizer.AcquireLock(actionID); err != nil {
			d.log.Debugf("Action Dispatcher: mutex lock err: %v, action `%s`", err, actionID)
			return nil, errors.Wrap(err, "lock action")
		}
	}

	env, err := d.client.Request(ctx, method, defs.ResourceAgents, agentID, body)
	if d.loadBalancingEnabled {
		handled := err == nil && !env.Failed()
		if rerr := d.syncronizer.Release(actionID, handled); rerr != nil {
			d.log.Debugf("Action Dispatcher: mutex unlock err: %v, action `%s`", rerr, actionID)
		}
	}
	if err != nil {
		return nil, err
	}

	d.log.Infof("Action Dispatcher: %s sent for agent `%s`, status: %s", method, agentID, env.Status)
	return env, nil
}
