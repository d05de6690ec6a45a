package hub

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/qredo/attestation-console/internal/api"
	"github.com/qredo/attestation-console/internal/defs"
	"github.com/qredo/attestation-console/internal/hub/message"
)

type HubFeedClient struct {
	Feed       chan []byte
	IsInternal bool
}

func NewHubFeedClient(isInternal bool) HubFeedClient {
	return HubFeedClient{
		Feed:       make(chan []byte),
		IsInternal: isInternal,
	}
}

// FeedHub maintains the set of active clients
// It provides ways to register and unregister clients
// Broadcasts events from the source to all active clients
type FeedHub interface {
	Run() bool
	Stop()
	RegisterClient(client *HubFeedClient)
	UnregisterClient(client *HubFeedClient)
	IsRunning() bool
	GetWebsocketStatus() api.WebsocketStatus
}

type feedHubImpl struct {
	source    Source
	broadcast chan []byte
	clients   map[*HubFeedClient]bool

	log       *zap.SugaredLogger
	lock      sync.RWMutex
	isRunning bool
	done      chan struct{}

	messageCache message.Cacher
}

// NewFeedHub returns a FeedHub object that's an instance of FeedHubImpl
func NewFeedHub(source Source, log *zap.SugaredLogger, messageCache message.Cacher) FeedHub {
	return &feedHubImpl{
		source:       source,
		log:          log,
		clients:      make(map[*HubFeedClient]bool),
		lock:         sync.RWMutex{},
		messageCache: messageCache,
	}
}

// IsRunning returns true while the hub is broadcasting
func (w *feedHubImpl) IsRunning() bool {
	w.lock.RLock()
	defer w.lock.RUnlock()

	return w.isRunning
}

// Run makes sure the source is connected and the broadcast channel is ready to receive messages
func (w *feedHubImpl) Run() bool {
	if !w.source.Connect() {
		return false
	}
	var wg sync.WaitGroup
	wg.Add(2)

	//channel used to receive the console events and send them to all listening feed clients
	w.broadcast = w.source.GetSendChannel()
	w.done = make(chan struct{})

	go w.startHub(&wg)
	go w.source.Listen(&wg)

	wg.Wait() //wait for the hub to properly start and the source to start listening for events
	return true
}

// Stop is closing the source, the hub stops once the source drained its events
func (w *feedHubImpl) Stop() {
	if w.source.GetReadyState() == defs.ConnectionState.Open {
		w.source.Disconnect()
		if w.done != nil {
			<-w.done
		}
	}

	w.log.Info("FeedHub: stopped")
}

// RegisterClient is adding a new active client to send messages to
func (w *feedHubImpl) RegisterClient(client *HubFeedClient) {
	w.lock.Lock()
	defer w.lock.Unlock()

	//replay the cached events so the client starts from the current state
	if w.messageCache != nil {
		messages := w.messageCache.GetMessages()
		for _, message := range messages {
			client.Feed <- message
		}
	}

	w.clients[client] = true
	w.log.Info("FeedHub: new feed client registered")
}

// UnregisterClient is removing a registered client and closes its Feed channel
func (w *feedHubImpl) UnregisterClient(client *HubFeedClient) {
	w.lock.Lock()
	defer w.lock.Unlock()

	registered := w.clients[client]
	if registered {
		close(client.Feed)
		delete(w.clients, client)
		w.log.Info("FeedHub: feed client unregistered")
	}
}

func (w *feedHubImpl) GetWebsocketStatus() api.WebsocketStatus {
	return api.WebsocketStatus{
		ReadyState:       w.source.GetReadyState(),
		Source:           w.source.GetSourceName(),
		ConnectedClients: uint32(w.getExternalFeedClients()),
	}
}

func (w *feedHubImpl) getExternalFeedClients() int {
	w.lock.RLock()
	defer w.lock.RUnlock()

	count := 0
	for fc := range w.clients {
		if !fc.IsInternal {
			count++
		}
	}

	return count
}

func (w *feedHubImpl) cleanUp() {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.isRunning = false
	for client := range w.clients {
		w.log.Info("FeedHub: closing feed clients")
		close(client.Feed)
		delete(w.clients, client)
	}
}

func (w *feedHubImpl) startHub(wg *sync.WaitGroup) {
	defer func() {
		w.cleanUp()
		close(w.done)
	}()

	w.lock.Lock()
	w.isRunning = true
	w.lock.Unlock()
	wg.Done()

	for {
		if message, ok := <-w.broadcast; !ok {
			w.log.Info("FeedHub: the broadcast channel was closed")
			return
		} else {
			w.lock.Lock()
			w.log.Debugf("FeedHub: message received: %s", string(message))

			w.cache(message)

			//send the message to all connected clients
			for client := range w.clients {
				client.Feed <- message
			}

			w.lock.Unlock()
		}
	}
}

func (w *feedHubImpl) cache(message []byte) {
	if w.messageCache == nil {
		return
	}

	ev := Event{}
	if err := json.Unmarshal(message, &ev); err != nil {
		w.log.Debugf("FeedHub: message not cached, err: %v", err)
		return
	}

	if ev.Key == "" {
		return
	}

	if ev.Evicts() {
		w.messageCache.RemoveMessage(ev.Key)
		return
	}

	w.messageCache.AddMessage(message)
}
