package refresher

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/test-go/testify/assert"
	"go.uber.org/goleak"

	"github.com/qredo/attestation-console/internal/config"
	"github.com/qredo/attestation-console/internal/hub"
	"github.com/qredo/attestation-console/internal/util"
)

var ignoreOpenCensus = goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start")

func newTestRefresher(mock *MockAgentRefresher, retryMs, retryMaxMs int) *firstRefresher {
	return NewFirstRefresher(util.NewTestLogger(), config.Polling{
		FirstRefreshRetryMs:    retryMs,
		FirstRefreshRetryMaxMs: retryMaxMs,
	}, mock).(*firstRefresher)
}

func agentEvent(t *testing.T, eventType hub.EventType, id string) []byte {
	ev := hub.NewAgentEvent(eventType, id, "pending", nil, time.Minute)
	data, err := ev.Marshal()
	assert.NoError(t, err)
	return data
}

func startListening(sut *firstRefresher) chan struct{} {
	var wg sync.WaitGroup
	wg.Add(1)
	listenDone := make(chan struct{})
	go func() {
		defer close(listenDone)
		sut.Listen(&wg)
	}()
	wg.Wait()
	return listenDone
}

func TestFirstRefresher_Listen_fails_to_unmarshal(t *testing.T) {
	//Arrange
	defer goleak.VerifyNone(t, ignoreOpenCensus)
	mock := &MockAgentRefresher{NextPending: true}
	sut := newTestRefresher(mock, 10, 100)
	listenDone := startListening(sut)

	//Act
	sut.Feed <- []byte("")
	close(sut.Feed)
	<-listenDone
	sut.Stop()

	//Assert
	assert.NotNil(t, sut.getLastError())
	assert.Equal(t, "unexpected end of JSON input", sut.getLastError().Error())
	assert.False(t, mock.RefreshAgentCalled)
}

func TestFirstRefresher_handleMessage_ignores_other_events(t *testing.T) {
	//Arrange
	mock := &MockAgentRefresher{NextPending: true}
	sut := newTestRefresher(mock, 10, 100)

	//Act
	sut.handleMessage(agentEvent(t, hub.EventAgentUpdated, "agent1"))
	sut.handleMessage(agentEvent(t, hub.EventAgentRemoved, "agent1"))

	//Assert
	assert.False(t, mock.RefreshAgentCalled)
	assert.Nil(t, sut.getLastError())
}

func TestFirstRefresher_handleMessage_refreshes_pending_agent(t *testing.T) {
	//Arrange
	mock := &MockAgentRefresher{NextPending: true}
	sut := newTestRefresher(mock, 10, 100)

	//Act
	sut.handleMessage(agentEvent(t, hub.EventAgentAdded, "agent1"))

	//Assert
	assert.True(t, mock.RefreshAgentCalled)
	assert.Equal(t, "agent1", mock.LastID)
	assert.Equal(t, 1, mock.Calls())
}

func TestFirstRefresher_handleMessage_agent_not_pending(t *testing.T) {
	//Arrange
	mock := &MockAgentRefresher{}
	sut := newTestRefresher(mock, 10, 100)

	//Act
	sut.handleMessage(agentEvent(t, hub.EventAgentAdded, "agent1"))

	//Assert
	assert.False(t, mock.RefreshAgentCalled)
}

func TestFirstRefresher_refresh_retries_until_timeout(t *testing.T) {
	//Arrange
	mock := &MockAgentRefresher{
		NextPending: true,
		NextError:   errors.New("some error"),
	}
	sut := newTestRefresher(mock, 10, 100)

	//Act
	sut.refresh("agent1")

	//Assert
	assert.True(t, mock.Calls() > 1)
	assert.Equal(t, "some error", sut.getLastError().Error())
}

func TestFirstRefresher_Stop_cancels_retries(t *testing.T) {
	//Arrange
	defer goleak.VerifyNone(t, ignoreOpenCensus)
	mock := &MockAgentRefresher{
		NextPending: true,
		NextError:   errors.New("some error"),
	}
	sut := newTestRefresher(mock, 50, int(time.Hour/time.Millisecond))
	listenDone := startListening(sut)
	sut.Feed <- agentEvent(t, hub.EventAgentAdded, "agent1")
	<-time.After(20 * time.Millisecond)

	//Act
	close(sut.Feed)
	<-listenDone
	sut.Stop()

	//Assert
	assert.True(t, mock.Calls() >= 1)
}

func TestRetryTimer(t *testing.T) {
	t.Run("times out", func(t *testing.T) {
		//Arrange
		sut := newRetryTimer(1, 0)

		//Act
		res := sut.isTimeOut()

		//Assert
		assert.True(t, res)
	})

	t.Run("default interval", func(t *testing.T) {
		//Arrange
		sut := newRetryTimer(0, 1000)

		//Assert
		assert.Equal(t, 500*time.Millisecond, sut.interval)
		assert.False(t, sut.isTimeOut())
	})

	t.Run("retry stops when done", func(t *testing.T) {
		//Arrange
		sut := newRetryTimer(int(time.Hour/time.Millisecond), 0)
		done := make(chan struct{})
		close(done)

		//Act
		res := sut.retry(done)

		//Assert
		assert.False(t, res)
	})
}
