package refresher

import "time"

const defaultRetryIntervalMs = 500

type retryTimer struct {
	interval time.Duration
	deadline time.Time
}

func newRetryTimer(intervalMs, maxMs int) *retryTimer {
	if intervalMs <= 0 {
		intervalMs = defaultRetryIntervalMs
	}

	return &retryTimer{
		interval: time.Duration(intervalMs) * time.Millisecond,
		deadline: time.Now().Add(time.Duration(maxMs) * time.Millisecond),
	}
}

func (t *retryTimer) isTimeOut() bool {
	return !time.Now().Before(t.deadline)
}

// retry waits for the next attempt and returns false when done is closed first
func (t *retryTimer) retry(done <-chan struct{}) bool {
	timer := time.NewTimer(t.interval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-done:
		return false
	}
}
