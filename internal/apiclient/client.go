// Package apiclient talks to the attestation backend REST API.
// Every response goes through a single envelope parsing step, so callers only ever see
// validated shapes or one of the typed errors.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/qredo/attestation-console/internal/config"
	"github.com/qredo/attestation-console/internal/defs"
	"github.com/qredo/attestation-console/internal/util"
)

const contentTypeForm = "application/x-www-form-urlencoded"

var resourceIDPattern = regexp.MustCompile(`^[A-Za-z0-9._~-]*$`)

// Reporter receives the diagnostics shown in the terminal pane
type Reporter interface {
	Append(lines []string)
}

type APIClient interface {
	// Get fetches a resource, query is optional
	Get(ctx context.Context, resourceType, resourceID string, query url.Values) (*Envelope, error)
	// Request issues a call with a form encoded body. POST requires a body, see ErrDetailsRequired.
	Request(ctx context.Context, method, resourceType, resourceID string, body url.Values) (*Envelope, error)
}

// BreakerReporter is implemented by clients exposing their circuit breaker state
type BreakerReporter interface {
	BreakerState() string
}

type apiClient struct {
	baseURL    string
	apiVersion int

	htc      *util.Client
	breaker  *gobreaker.CircuitBreaker
	reporter Reporter
	log      *zap.SugaredLogger
}

// NewClient returns an APIClient for the backend configured in base
func NewClient(base config.Base, timeout time.Duration, reporter Reporter, log *zap.SugaredLogger) APIClient {
	return &apiClient{
		baseURL:    base.BackendAPI,
		apiVersion: base.APIVersion,
		htc:        util.NewHTTPClient(timeout),
		breaker:    newBreaker(log),
		reporter:   reporter,
		log:        log,
	}
}

func newBreaker(log *zap.SugaredLogger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnf("API Client: circuit breaker `%s` changed from %s to %s", name, from, to)
		},
	})
}

// BreakerState returns the state of the backend circuit breaker: closed, half-open or open
func (c *apiClient) BreakerState() string {
	return c.breaker.State().String()
}

func (c *apiClient) Get(ctx context.Context, resourceType, resourceID string, query url.Values) (*Envelope, error) {
	return c.do(ctx, http.MethodGet, resourceType, resourceID, nil, query)
}

func (c *apiClient) Request(ctx context.Context, method, resourceType, resourceID string, body url.Values) (*Envelope, error) {
	if method == http.MethodPost && body == nil {
		return nil, ErrDetailsRequired
	}

	if method != http.MethodGet && body == nil {
		body = url.Values{}
	}

	return c.do(ctx, method, resourceType, resourceID, body, nil)
}

func (c *apiClient) do(ctx context.Context, method, resourceType, resourceID string, body url.Values, query url.Values) (*Envelope, error) {
	if !resourceIDPattern.MatchString(resourceID) {
		return nil, errors.Wrapf(ErrUnsafeResourceID, "`%s`", resourceID)
	}

	endpoint := defs.URLResource(c.baseURL, c.apiVersion, resourceType, resourceID)
	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}

	header := http.Header{}
	header.Set("Accept", "application/json")

	var payload io.Reader
	if body != nil {
		header.Set("Content-Type", contentTypeForm)
		payload = strings.NewReader(body.Encode())
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.htc.Send(ctx, method, endpoint, payload, header)
		if err != nil {
			return nil, err
		}

		// a backend that answers is healthy, even with unexpected codes
		return resp, nil
	})
	if err != nil {
		return nil, &TransportError{Method: method, URL: endpoint, Err: err}
	}

	return c.handleResponse(method, endpoint, res.(*util.Response))
}

func (c *apiClient) handleResponse(method, endpoint string, resp *util.Response) (*Envelope, error) {
	switch resp.StatusCode {
	case http.StatusOK:
		env, err := parseEnvelope(resp.Body, resp.StatusCode)
		if err != nil {
			if IsMalformed(err) {
				return nil, err
			}
			return nil, &TransportError{Method: method, URL: endpoint, StatusCode: resp.StatusCode, Err: errors.Wrap(err, "decode body")}
		}
		return env, nil

	case http.StatusInternalServerError:
		env := c.failedEnvelope(resp)
		line := fmt.Sprintf("WEBAPP ERROR (AJAX): code=%d, statusText=%s, results=%s", resp.StatusCode, env.Status, env.ResultsText())
		c.log.Warnf("API Client: %s %s failed, status: %s, results: %s", method, endpoint, env.Status, env.ResultsText())
		if c.reporter != nil {
			c.reporter.Append([]string{line})
		}
		return env, nil

	default:
		return nil, &TransportError{Method: method, URL: endpoint, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
}

// failedEnvelope never fails: a body that isn't an envelope becomes the results text
func (c *apiClient) failedEnvelope(resp *util.Response) *Envelope {
	statusText := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprintf("%d", resp.StatusCode)))
	if statusText == "" {
		statusText = http.StatusText(resp.StatusCode)
	}

	env, err := parseEnvelope(resp.Body, resp.StatusCode)
	if env == nil {
		c.log.Debugf("API Client: failure body is not an envelope, err: %v", err)
		raw, _ := json.Marshal(string(resp.Body))
		return &Envelope{
			Status:     statusText,
			Results:    raw,
			HTTPStatus: resp.StatusCode,
		}
	}

	if env.Status == "" {
		env.Status = statusText
	}
	if len(env.Results) == 0 {
		env.Results, _ = json.Marshal(string(resp.Body))
	}

	return env
}
