package action

import (
	"context"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/pkg/errors"

	"github.com/qredo/attestation-console/internal/config"
	"github.com/qredo/attestation-console/internal/hub/message"
)

const keyPrefix = "agent_action:"

var ctxBackground = context.Background()

// ActionSync makes sure an agent action is sent once when several console instances run against the same backend
type ActionSync interface {
	ShouldHandleAction(actionID string) bool
	AcquireLock(actionID string) error
	// Release unlocks the action. A handled action is marked so the other consoles skip it until the key expires.
	Release(actionID string, handled bool) error
}

type syncI interface {
	NewMutex(name string, options ...redsync.Option) *redsync.Mutex
}

type mutex interface {
	Lock() error
	Unlock() (bool, error)
}

type syncronize struct {
	cache            message.KVStore
	sync             syncI
	cfgLoadBalancing *config.LoadBalancing

	lock    sync.Mutex
	mutexes map[string]mutex
	// newMutex is replaced in tests
	newMutex func(name string) mutex
}

// NewSyncronizer returns a new ActionSync that's an instance of syncronize
func NewSyncronizer(conf *config.LoadBalancing, cache message.KVStore, rs syncI) ActionSync {
	s := &syncronize{
		cfgLoadBalancing: conf,
		cache:            cache,
		sync:             rs,
		mutexes:          make(map[string]mutex),
	}
	s.newMutex = func(name string) mutex {
		return s.sync.NewMutex(keyPrefix + "lock:" + name)
	}
	return s
}

// ShouldHandleAction returns true if the action wasn't already handled by another console
func (a *syncronize) ShouldHandleAction(actionID string) bool {
	if err := a.cache.Get(ctxBackground, a.getKey(actionID)).Err(); err == nil {
		return false
	}

	// set the mutex to lock the action
	a.lock.Lock()
	a.mutexes[actionID] = a.newMutex(actionID)
	a.lock.Unlock()
	return true
}

// AcquireLock locks the mutex set for the action to be handled
func (a *syncronize) AcquireLock(actionID string) error {
	m, err := a.getMutex(actionID)
	if err != nil {
		return err
	}

	if err := m.Lock(); err != nil {
		time.Sleep(time.Duration(a.cfgLoadBalancing.OnLockErrorTimeOutMs) * time.Millisecond)
		return err
	}

	return nil
}

// Release unlocks the mutex. When handled, the action id is set in the cache to signal it was already handled.
// A failed action is left unmarked so it can be retried right away.
func (a *syncronize) Release(actionID string, handled bool) error {
	m, err := a.getMutex(actionID)
	if err != nil {
		return err
	}

	a.lock.Lock()
	delete(a.mutexes, actionID)
	a.lock.Unlock()

	_, err = m.Unlock()
	if handled {
		a.cache.Set(ctxBackground, a.getKey(actionID), 1, time.Duration(a.cfgLoadBalancing.ActionIDExpirationSec)*time.Second)
	}

	return err
}

func (a *syncronize) getMutex(actionID string) (mutex, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	m, ok := a.mutexes[actionID]
	if !ok {
		return nil, errors.Errorf("no lock set for action `%s`", actionID)
	}
	return m, nil
}

func (a *syncronize) getKey(actionID string) string {
	return keyPrefix + actionID
}
