package message

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

const (
	keyPrefix  = "console_event:"
	keyPattern = "console_event:*"
)

var ctx = context.Background()

// distributedCache is a messages cache shared by several console instances
type distributedCache struct {
	kvStore KVStore
	log     *zap.SugaredLogger
}

// AddMessage stores a message into the cache, it expires with the message
func (c *distributedCache) AddMessage(message []byte) {
	info := messageInfo{}
	if err := json.Unmarshal(message, &info); err != nil {
		c.log.Debugf("message Cache: error [%v] while unmarshaling the message [%s]", err, string(message))
	} else if info.Key != "" {
		expiration := info.getExpiration()
		//add only not expired messages
		if expiration > 0 {
			if err := c.kvStore.Set(ctx, c.getKey(info.Key), string(message), expiration).Err(); err != nil {
				c.log.Errorf("message Cache: error while storing message `%s`: %v", info.Key, err)
			}
		}
	}
}

// GetMessages returns all cached messages, redis drops the expired ones
func (c *distributedCache) GetMessages() [][]byte {
	messages := make([][]byte, 0)

	iter := c.kvStore.Scan(ctx, 0, keyPattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		msg, err := c.kvStore.Get(ctx, key).Result()
		if err != nil {
			c.log.Errorf("message Cache: error while retrieving messages: %v", err)
		} else {
			messages = append(messages, []byte(msg))
		}
	}

	if err := iter.Err(); err != nil {
		c.log.Errorf("message Cache: error while retrieving messages: %v", err)
	}

	return messages
}

// RemoveMessage deletes the message for the given key
func (c *distributedCache) RemoveMessage(key string) {
	c.log.Debugf("message Cache: removing message with key `%s`", key)
	c.kvStore.Del(ctx, c.getKey(key))
}

func (c *distributedCache) getKey(key string) string {
	return keyPrefix + key
}
