package workflow

import "sync"

// briefLocks serializes writes per brief. Entries are dropped once no
// caller holds or waits on them.
type briefLocks struct {
	mu sync.Mutex
	m  map[string]*briefLock
}

type briefLock struct {
	sync.Mutex
	refs int
}

// lock blocks until the caller owns briefID and returns the release func.
func (l *briefLocks) lock(briefID string) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = map[string]*briefLock{}
	}
	bl, ok := l.m[briefID]
	if !ok {
		bl = &briefLock{}
		l.m[briefID] = bl
	}
	bl.refs++
	l.mu.Unlock()

	bl.Lock()
	return func() {
		bl.Unlock()
		l.mu.Lock()
		bl.refs--
		if bl.refs == 0 {
			delete(l.m, briefID)
		}
		l.mu.Unlock()
	}
}
