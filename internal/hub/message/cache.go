// Package message caches the latest keyed event of the feed so newly connected clients
// can be brought up to date before they receive live events.
package message

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type messageInfo struct {
	Key        string `json:"key"`
	ExpireTime int64  `json:"expireTime"`
}

func (m *messageInfo) getExpiration() time.Duration {
	return time.Duration(m.ExpireTime-time.Now().Unix()) * time.Second
}

func (m *messageInfo) isExpired() bool {
	return m.ExpireTime <= time.Now().Unix()
}

type CacheRemover interface {
	RemoveMessage(key string)
}

type Cache interface {
	AddMessage(message []byte)
	GetMessages() [][]byte
}

type Cacher interface {
	CacheRemover
	Cache
}

// NewCacher returns the redis backed cache when several console instances share the backend, a local one otherwise
func NewCacher(isMultiInstance bool, log *zap.SugaredLogger, kvStore KVStore) Cacher {
	if isMultiInstance {
		return &distributedCache{
			kvStore: kvStore,
			log:     log,
		}
	}

	return &localCache{
		log:      log,
		lock:     sync.RWMutex{},
		messages: make(map[string][]byte),
	}
}
