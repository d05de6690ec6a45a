package rest

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/qredo/attestation-console/internal/defs"
	"github.com/qredo/attestation-console/internal/form"
)

func agentID(r *http.Request) (string, error) {
	id := strings.TrimSpace(mux.Vars(r)["uuid"])
	if id == "" {
		return "", defs.ErrBadRequest().WithDetail("empty agent uuid")
	}
	return id, nil
}

func (a Router) HealthCheckVersion(_ *defs.RequestContext, w http.ResponseWriter, r *http.Request) (interface{}, error) {
	return a.version, nil
}

func (a Router) HealthCheckConfig(_ *defs.RequestContext, w http.ResponseWriter, r *http.Request) (interface{}, error) {
	return a.config.Redacted(), nil
}

func (a Router) HealthCheckStatus(_ *defs.RequestContext, w http.ResponseWriter, r *http.Request) (interface{}, error) {
	return a.consoleService.GetStatus(), nil
}

func (a Router) ListAgents(_ *defs.RequestContext, _ http.ResponseWriter, _ *http.Request) (interface{}, error) {
	return a.consoleService.ListAgents(), nil
}

func (a Router) GetAgent(_ *defs.RequestContext, _ http.ResponseWriter, r *http.Request) (interface{}, error) {
	id, err := agentID(r)
	if err != nil {
		return nil, err
	}

	return a.consoleService.GetAgent(id)
}

func (a Router) GetAgentFragment(_ *defs.RequestContext, _ http.ResponseWriter, r *http.Request) (interface{}, error) {
	id, err := agentID(r)
	if err != nil {
		return nil, err
	}

	return a.consoleService.GetFragment(id)
}

func (a Router) AgentAction(ctx *defs.RequestContext, _ http.ResponseWriter, r *http.Request) (interface{}, error) {
	id, err := agentID(r)
	if err != nil {
		return nil, err
	}

	a.log.Debugf("action requested for agent `%s`, trace `%s`", id, ctx.TraceID)
	return a.actionService.Dispatch(r.Context(), id)
}

func (a Router) AddAgent(ctx *defs.RequestContext, _ http.ResponseWriter, r *http.Request) (interface{}, error) {
	id, err := agentID(r)
	if err != nil {
		return nil, err
	}

	if err := a.parseForm(r); err != nil {
		a.log.Debugf("failed to parse the add agent form, %v", err)
		return nil, err
	}

	if r.MultipartForm != nil {
		if err := form.MergeMultipart(r.PostForm, r.MultipartForm.File); err != nil {
			return nil, defs.ErrBadRequest().WithDetail(err.Error()).Wrap(err)
		}
	}

	a.log.Debugf("add agent `%s` submitted, trace `%s`", id, ctx.TraceID)
	return a.actionService.AddAgent(r.Context(), id, r.PostForm)
}

func (a Router) GetCharts(_ *defs.RequestContext, _ http.ResponseWriter, _ *http.Request) (interface{}, error) {
	return a.consoleService.GetCharts(), nil
}

func (a Router) GetTerminal(_ *defs.RequestContext, _ http.ResponseWriter, _ *http.Request) (interface{}, error) {
	return a.consoleService.GetTerminal(), nil
}

func (a Router) ClientFeed(_ *defs.RequestContext, w http.ResponseWriter, r *http.Request) (interface{}, error) {
	a.consoleService.RegisterClientFeed(w, r)
	return nil, nil
}
