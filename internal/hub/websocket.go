package hub

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/qredo/attestation-console/internal/config"
)

// WebsocketConnection is the part of *websocket.Conn used by the feed clients
type WebsocketConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	SetPingHandler(h func(appData string) error)
	SetWriteDeadline(t time.Time) error
}

type WebsocketUpgrader interface {
	Upgrade(w http.ResponseWriter, r *http.Request, responseHeader http.Header) (WebsocketConnection, error)
}

type defaultUpgrader struct {
	upgrader *websocket.Upgrader
}

// NewDefaultUpgrader returns a WebsocketUpgrader using the configured buffer sizes
func NewDefaultUpgrader(cfg config.WebSocketConfig, checkOrigin func(r *http.Request) bool) WebsocketUpgrader {
	return &defaultUpgrader{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (u *defaultUpgrader) Upgrade(w http.ResponseWriter, r *http.Request, responseHeader http.Header) (WebsocketConnection, error) {
	conn, err := u.upgrader.Upgrade(w, r, responseHeader)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

var errConnectionClosed = errors.New("websocket connection closed")
