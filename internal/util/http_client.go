package util

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a thin wrapper over the http client, used for all backend calls
type Client struct {
	htc httpDoer
}

// Response holds the fully read response of a backend call
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

func NewHTTPClient(timeout time.Duration) *Client {
	return &Client{
		htc: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send issues the request and reads the whole body. Any status code is returned to the caller, only
// transport failures are errors.
func (c *Client) Send(ctx context.Context, method, url string, body io.Reader, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.htc.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, url)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
