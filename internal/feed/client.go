// Package feed serves the console events to a websocket client
package feed

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/qredo/attestation-console/internal/config"
	"github.com/qredo/attestation-console/internal/defs"
	"github.com/qredo/attestation-console/internal/hub"
)

const defaultPingPeriodSec = 5

// UnregisterFunc is used by the feed client to unregister itself from the hub and stop receiving data
type UnregisterFunc func(client *hub.HubFeedClient)

type ClientFeed interface {
	Start(wg *sync.WaitGroup)
	Listen(wg *sync.WaitGroup)
	GetFeedClient() *hub.HubFeedClient
}

type clientFeedImpl struct {
	hub.HubFeedClient
	conn       hub.WebsocketConnection
	log        *zap.SugaredLogger
	readyState string
	lock       sync.RWMutex

	unregister UnregisterFunc
	writeWait  time.Duration
	pingPeriod time.Duration
	pongWait   time.Duration
	closeConn  chan bool
}

// NewClientFeed returns a ClientFeed writing the hub messages to the websocket connection
func NewClientFeed(conn hub.WebsocketConnection, log *zap.SugaredLogger, unregister UnregisterFunc, cfg config.WebSocketConfig) ClientFeed {
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = defaultPingPeriodSec
	}

	return &clientFeedImpl{
		HubFeedClient: hub.NewHubFeedClient(false),
		conn:          conn,
		log:           log,
		readyState:    defs.ConnectionState.Open,
		unregister:    unregister,
		writeWait:     time.Duration(cfg.WriteWait) * time.Second,
		pingPeriod:    time.Duration(cfg.PingPeriod) * time.Second,
		pongWait:      time.Duration(cfg.PongWait) * time.Second,
		closeConn:     make(chan bool, 1),
	}
}

func (c *clientFeedImpl) GetFeedClient() *hub.HubFeedClient {
	return &c.HubFeedClient
}

// Start sets up the connection handlers and keeps the connection alive with pings.
// It returns once the connection is closed, after unregistering the client from the hub.
func (c *clientFeedImpl) Start(wg *sync.WaitGroup) {
	readerDone := make(chan struct{})
	defer func() {
		c.setReadyState(defs.ConnectionState.Closed)
		c.conn.Close()
		<-readerDone
		if c.unregister != nil {
			c.unregister(&c.HubFeedClient)
		}
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})
	c.conn.SetPingHandler(func(string) error {
		return c.conn.WriteControl(websocket.PongMessage, []byte{}, time.Now().Add(c.writeWait))
	})

	go c.read(readerDone)

	ticker := time.NewTicker(c.pingPeriod)
	defer ticker.Stop()

	wg.Done()

	for {
		select {
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeWait)); err != nil {
				c.log.Debugf("ClientFeed: ping failed, err: %v", err)
				return
			}
		case <-readerDone:
			c.log.Debug("ClientFeed: connection closed by the client")
			return
		case <-c.closeConn:
			return
		}
	}
}

// read consumes the client frames so pings, pongs and close frames are processed
func (c *clientFeedImpl) read(done chan struct{}) {
	defer close(done)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debugf("ClientFeed: read error: %v", err)
			}
			return
		}
	}
}

// Listen writes every message received from the hub to the connection.
// When the hub closes the Feed channel, a close message is sent and the connection is closed.
func (c *clientFeedImpl) Listen(wg *sync.WaitGroup) {
	wg.Done()

	for message := range c.Feed {
		if c.getReadyState() != defs.ConnectionState.Open {
			continue
		}

		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.log.Errorf("ClientFeed: failed to write message, err: %v", err)
		}
	}

	c.log.Debug("ClientFeed: feed channel closed")
	if c.getReadyState() == defs.ConnectionState.Open {
		if err := c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(c.writeWait)); err != nil {
			c.log.Debugf("ClientFeed: failed to send close message, err: %v", err)
		}
	}

	select {
	case c.closeConn <- true:
	default:
	}
}

func (c *clientFeedImpl) setReadyState(state string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.readyState = state
}

func (c *clientFeedImpl) getReadyState() string {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.readyState
}
