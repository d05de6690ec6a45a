package util

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Send_returns_any_status(t *testing.T) {
	//Arrange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"err"}`))
	}))
	defer srv.Close()

	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	sut := NewHTTPClient(time.Second)

	//Act
	resp, err := sut.Send(context.Background(), http.MethodPost, srv.URL, bytes.NewBufferString("a=b"), header)

	//Assert
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, `{"status":"err"}`, string(resp.Body))
}

func TestClient_Send_transport_error(t *testing.T) {
	//Arrange
	var lastURL string
	GetDoMockHTTPClientFunc = func(r *http.Request) (*http.Response, error) {
		lastURL = r.URL.String()
		return nil, errors.New("connection refused")
	}
	sut := NewHTTPMockClient()

	//Act
	resp, err := sut.Send(context.Background(), http.MethodGet, "http://backend/v2/agents/", nil, nil)

	//Assert
	assert.Nil(t, resp)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "http://backend/v2/agents/", lastURL)
}

func TestClient_Send_mock_response(t *testing.T) {
	//Arrange
	GetDoMockHTTPClientFunc = func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			Status:     "200 OK",
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader([]byte(`{"results":{}}`))),
		}, nil
	}
	sut := NewHTTPMockClient()

	//Act
	resp, err := sut.Send(context.Background(), http.MethodGet, "http://backend", nil, nil)

	//Assert
	require.NoError(t, err)
	assert.Equal(t, "200 OK", resp.Status)
	assert.Equal(t, `{"results":{}}`, string(resp.Body))
}
