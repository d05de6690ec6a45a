package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/context"
	"github.com/test-go/testify/assert"

	"github.com/qredo/attestation-console/internal/defs"
)

func TestMiddleware_sessionMiddleware(t *testing.T) {
	t.Run("generates a trace id", func(t *testing.T) {
		//Arrange
		sut := NewMiddleware(testLog, false)
		var traceID string
		handler := sut.sessionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID = getTraceID(r)
		}))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
		rr := httptest.NewRecorder()
		defer context.Clear(req)

		//Act
		handler.ServeHTTP(rr, req)

		//Assert
		_, err := uuid.Parse(traceID)
		assert.Nil(t, err)
		assert.Equal(t, traceID, rr.Header().Get(HeaderTraceID))
	})

	t.Run("keeps a valid trace id", func(t *testing.T) {
		//Arrange
		sut := NewMiddleware(testLog, false)
		sent := uuid.NewString()
		var traceID string
		handler := sut.sessionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID = getTraceID(r)
		}))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
		req.Header.Set(HeaderTraceID, sent)
		defer context.Clear(req)

		//Act
		handler.ServeHTTP(httptest.NewRecorder(), req)

		//Assert
		assert.Equal(t, sent, traceID)
	})

	t.Run("replaces an invalid trace id", func(t *testing.T) {
		//Arrange
		sut := NewMiddleware(testLog, false)
		var traceID string
		handler := sut.sessionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID = getTraceID(r)
		}))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
		req.Header.Set(HeaderTraceID, "<script>")
		defer context.Clear(req)

		//Act
		handler.ServeHTTP(httptest.NewRecorder(), req)

		//Assert
		assert.NotEqual(t, "<script>", traceID)
		assert.NotEmpty(t, traceID)
	})
}

func TestMiddleware_loggingMiddleware_clears_the_request_stash(t *testing.T) {
	//Arrange
	sut := NewMiddleware(testLog, true)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents/u1", nil)
	handler := sut.loggingMiddleware(sut.sessionMiddleware(appHandlerFunc(
		func(ctx *defs.RequestContext, w http.ResponseWriter, r *http.Request) (interface{}, error) {
			assert.NotEmpty(t, ctx.TraceID)
			return nil, defs.ErrNotFound().WithDetail("agent not tracked")
		})))
	rr := httptest.NewRecorder()

	//Act
	handler.ServeHTTP(rr, req)

	//Assert
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Nil(t, context.Get(req, contextKeyError))
	assert.Nil(t, context.Get(req, contextKeyTraceID))
}

func TestFormatJSONResp(t *testing.T) {
	t.Run("internal error for plain errors", func(t *testing.T) {
		//Arrange
		req := httptest.NewRequest(http.MethodGet, "/api/v1/charts", nil)
		rr := httptest.NewRecorder()
		defer context.Clear(req)

		//Act
		formatJSONResp(rr, req, nil, assert.AnError)

		//Assert
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.Equal(t, `{"code":500,"msg":"Internal Server Error"}`, rr.Body.String())
		_, ok := context.Get(req, contextKeyError).(*defs.APIError)
		assert.True(t, ok)
	})

	t.Run("default body", func(t *testing.T) {
		//Arrange
		req := httptest.NewRequest(http.MethodGet, "/api/v1/charts", nil)
		rr := httptest.NewRecorder()

		//Act
		formatJSONResp(rr, req, nil, nil)

		//Assert
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "{\"Code\":200,\"Msg\":\"OK\"}\n", rr.Body.String())
	})
}
