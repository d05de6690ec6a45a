// Package terminal keeps the bounded log shown in the console terminal pane.
// Server lines are fetched incrementally: the log remembers how many server lines
// it has seen and asks the backend only for the suffix after that offset.
package terminal

import (
	"sync"
)

// Listener receives every non-empty batch of appended lines, in the order they were appended.
// A listener must not append to the log it listens to.
type Listener func(lines []string)

type Log struct {
	// notify serializes appends with their delivery
	notify    sync.Mutex
	lock      sync.RWMutex
	maxLines  int
	lines     []string
	offset    int
	listeners []Listener
}

func NewLog(maxLines int) *Log {
	if maxLines <= 0 {
		maxLines = 1
	}

	return &Log{
		maxLines: maxLines,
		lines:    make([]string, 0, maxLines),
	}
}

// Append adds console generated lines. The server offset is not touched.
func (l *Log) Append(lines []string) {
	l.append(lines, false)
}

// AppendRemote adds lines fetched from the backend and moves the offset past them
func (l *Log) AppendRemote(lines []string) {
	l.append(lines, true)
}

func (l *Log) append(lines []string, remote bool) {
	if len(lines) == 0 {
		return
	}

	l.notify.Lock()
	defer l.notify.Unlock()

	l.lock.Lock()
	if remote {
		l.offset += len(lines)
	}

	l.lines = append(l.lines, lines...)
	if extra := len(l.lines) - l.maxLines; extra > 0 {
		kept := make([]string, l.maxLines)
		copy(kept, l.lines[extra:])
		l.lines = kept
	}

	listeners := make([]Listener, len(l.listeners))
	copy(listeners, l.listeners)
	l.lock.Unlock()

	batch := make([]string, len(lines))
	copy(batch, lines)
	for _, listener := range listeners {
		listener(batch)
	}
}

// NextOffset is the position to request the next server lines from
func (l *Log) NextOffset() int {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return l.offset
}

// Lines returns a copy of the retained lines, oldest first
func (l *Log) Lines() []string {
	l.lock.RLock()
	defer l.lock.RUnlock()

	res := make([]string, len(l.lines))
	copy(res, l.lines)
	return res
}

func (l *Log) MaxLines() int {
	return l.maxLines
}

// Subscribe registers a listener called after every non-empty append
func (l *Log) Subscribe(listener Listener) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.listeners = append(l.listeners, listener)
}
