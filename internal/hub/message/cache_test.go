package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/qredo/attestation-console/internal/util"
)

func TestNewCacher(t *testing.T) {
	for name, tc := range map[string]struct {
		multiInstance bool
		distributed   bool
	}{
		"single console keeps events in memory": {multiInstance: false},
		"load balanced consoles share redis":    {multiInstance: true, distributed: true},
	} {
		t.Run(name, func(t *testing.T) {
			//Act
			sut := NewCacher(tc.multiInstance, util.NewTestLogger(), &KVStoreMock{})

			//Assert
			_, isDistributed := sut.(*distributedCache)
			_, isLocal := sut.(*localCache)
			assert.Equal(t, tc.distributed, isDistributed)
			assert.Equal(t, !tc.distributed, isLocal)
		})
	}
}

func TestMessageInfo_expiration(t *testing.T) {
	//Arrange
	live := &messageInfo{Key: "agent:u1", ExpireTime: time.Now().Add(time.Minute).Unix()}
	stale := &messageInfo{Key: "charts", ExpireTime: time.Now().Add(-time.Second).Unix()}

	//Act/Assert
	assert.False(t, live.isExpired())
	assert.InDelta(t, time.Minute.Seconds(), live.getExpiration().Seconds(), 2)
	assert.True(t, stale.isExpired())
	assert.LessOrEqual(t, stale.getExpiration(), time.Duration(0))
}
