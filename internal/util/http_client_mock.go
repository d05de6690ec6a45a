package util

import (
	"net/http"
)

var GetDoMockHTTPClientFunc func(r *http.Request) (*http.Response, error)

type mockDoer struct{}

func (m *mockDoer) Do(r *http.Request) (*http.Response, error) {
	return GetDoMockHTTPClientFunc(r)
}

// NewHTTPMockClient returns a Client that routes every request to GetDoMockHTTPClientFunc
func NewHTTPMockClient() *Client {
	return &Client{
		htc: &mockDoer{},
	}
}
