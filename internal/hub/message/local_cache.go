package message

import (
	"encoding/json"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// localCache is a messages cache to be used by a single console instance
type localCache struct {
	messages map[string][]byte
	lock     sync.RWMutex
	log      *zap.SugaredLogger
}

// AddMessage stores a message into the cache, replacing the previous one with the same key
func (c *localCache) AddMessage(message []byte) {
	c.lock.Lock()
	defer c.lock.Unlock()

	info := messageInfo{}
	if err := json.Unmarshal(message, &info); err != nil {
		c.log.Debugf("message Cache: error [%v] while unmarshaling the message [%s]", err, string(message))
	} else if info.Key != "" && !info.isExpired() {
		c.messages[info.Key] = message
	}
}

// GetMessages returns all cached and not expired messages ordered by key. Expired or invalid messages are cleared out
func (c *localCache) GetMessages() [][]byte {
	c.lock.Lock()
	defer c.lock.Unlock()

	keys := make([]string, 0, len(c.messages))
	for key, message := range c.messages {
		info := messageInfo{}
		if err := json.Unmarshal(message, &info); err != nil || info.isExpired() {
			delete(c.messages, key)
		} else {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	res := make([][]byte, 0, len(keys))
	for _, key := range keys {
		res = append(res, c.messages[key])
	}

	return res
}

// RemoveMessage deletes the message for the given key
func (c *localCache) RemoveMessage(key string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.log.Debugf("message Cache: removing message with key `%s`", key)
	delete(c.messages, key)
}
