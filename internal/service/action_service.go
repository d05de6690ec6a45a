package service

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/qredo/attestation-console/internal/action"
	"github.com/qredo/attestation-console/internal/api"
	"github.com/qredo/attestation-console/internal/apiclient"
	"github.com/qredo/attestation-console/internal/defs"
	"github.com/qredo/attestation-console/internal/form"
	"github.com/qredo/attestation-console/internal/model"
	"github.com/qredo/attestation-console/internal/terminal"
)

// DialogAddAgent is the dialog the console opens to collect the details of an agent before a POST
const DialogAddAgent = "add_agent"

// ActionService sends the status actions of the tracked agents
type ActionService interface {
	// Dispatch sends the action of the agent's current status. A POST needs the add-agent form,
	// so it is answered with the dialog command instead.
	Dispatch(ctx context.Context, agentID string) (*api.ActionResponse, error)
	// AddAgent validates the add-agent form and POSTs it. Nothing is sent when validation fails.
	AddAgent(ctx context.Context, agentID string, values url.Values) (*api.ActionResponse, error)
}

// AgentLookup is the part of the view model used to find the current action of an agent
type AgentLookup interface {
	Get(id string) (model.Record, bool)
}

type actionSrv struct {
	agents     AgentLookup
	dispatcher action.Dispatcher
	term       *terminal.Log
	log        *zap.SugaredLogger
}

func NewActionService(agents AgentLookup, dispatcher action.Dispatcher, term *terminal.Log, log *zap.SugaredLogger) ActionService {
	return &actionSrv{
		agents:     agents,
		dispatcher: dispatcher,
		term:       term,
		log:        log,
	}
}

func (a *actionSrv) Dispatch(ctx context.Context, agentID string) (*api.ActionResponse, error) {
	rec, ok := a.agents.Get(agentID)
	if !ok {
		return nil, defs.ErrNotFound().WithDetail("agent not tracked")
	}

	if rec.Snapshot == nil {
		return nil, defs.ErrConflict().WithDetail("agent not loaded yet")
	}

	method := rec.Snapshot.Overview.Action
	if method == "" {
		return nil, defs.ErrBadRequest().WithDetail("no action for the agent status")
	}

	if method == http.MethodPost {
		a.log.Debugf("Action Service: agent `%s` needs details, opening the add agent dialog", agentID)
		return dialogCommand(agentID), nil
	}

	a.log.Infof("Action Service: sending %s for agent `%s`", method, agentID)
	return a.send(ctx, agentID, method, nil)
}

func (a *actionSrv) AddAgent(ctx context.Context, agentID string, values url.Values) (*api.ActionResponse, error) {
	req, err := form.Parse(values)
	if err != nil {
		return nil, a.formError(err)
	}

	if req.UUID == "" {
		req.UUID = agentID
	}
	if req.UUID != agentID {
		return nil, defs.ErrBadRequest().WithDetail("form uuid doesn't match the agent")
	}

	if err := req.Validate(); err != nil {
		return nil, a.formError(err)
	}

	a.log.Infof("Action Service: adding agent `%s`", agentID)
	return a.send(ctx, agentID, http.MethodPost, req.Encode())
}

func (a *actionSrv) send(ctx context.Context, agentID, method string, body url.Values) (*api.ActionResponse, error) {
	env, err := a.dispatcher.Send(ctx, agentID, method, body)
	if err != nil {
		actionsTotal.WithLabelValues(method, resultError).Inc()
		return nil, a.sendError(agentID, method, err)
	}

	actionsTotal.WithLabelValues(method, resultOK).Inc()
	return &api.ActionResponse{
		AgentID:    agentID,
		Method:     method,
		Status:     env.Status,
		HTTPStatus: env.HTTPStatus,
		Results:    env.Results,
	}, nil
}

func (a *actionSrv) sendError(agentID, method string, err error) error {
	switch {
	case errors.Is(err, apiclient.ErrDetailsRequired):
		return defs.ErrBadRequest().WithDetail("agent details required").Wrap(err)
	case errors.Is(err, action.ErrAlreadyHandled):
		return defs.ErrConflict().WithDetail("action already handled").Wrap(err)
	case errors.Is(err, action.ErrUnsupportedMethod):
		return defs.ErrBadRequest().WithDetail("unsupported action").Wrap(err)
	case apiclient.IsMalformed(err):
		a.log.Errorf("Action Service: malformed response to %s for agent `%s`, err: %v", method, agentID, err)
		return defs.ErrBadGateway().WithDetail("malformed backend response").Wrap(err)
	default:
		a.log.Errorf("Action Service: %s failed for agent `%s`, err: %v", method, agentID, err)
		return defs.ErrBadGateway().WithDetail("backend request failed").Wrap(err)
	}
}

func (a *actionSrv) formError(err error) error {
	var fe *form.FieldError
	if errors.As(err, &fe) {
		if fe.MalformedJSON() {
			a.term.Append([]string{form.MalformedJSONMessage})
		}
		return defs.ErrBadRequest().WithDetail(fe.Error()).Wrap(err)
	}
	return defs.ErrBadRequest().WithDetail("invalid form").Wrap(err)
}

func dialogCommand(agentID string) *api.ActionResponse {
	tabs := form.Tabs(form.PayloadFile)
	return &api.ActionResponse{
		AgentID: agentID,
		Method:  http.MethodPost,
		Dialog:  DialogAddAgent,
		Tabs:    &tabs,
	}
}
