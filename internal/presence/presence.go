// Package presence tracks which users currently hold an open realtime
// connection. In-process cache, acceptable for a single instance; running
// more than one instance requires moving this to a shared store.
package presence

import "sync"

// Tracker records online user ids. The realtime layer calls Connect and
// Disconnect; the chat persister consults IsOnline to mark messages
// delivered immediately.
type Tracker struct {
	mu     sync.RWMutex
	online map[string]int // user id -> open connection count
}

func NewTracker() *Tracker {
	return &Tracker{online: make(map[string]int)}
}

func (t *Tracker) Connect(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.online[userID]++
}

func (t *Tracker) Disconnect(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.online[userID] <= 1 {
		delete(t.online, userID)
		return
	}
	t.online[userID]--
}

func (t *Tracker) IsOnline(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.online[userID] > 0
}

// Online returns a snapshot of currently connected user ids.
func (t *Tracker) Online() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.online))
	for id := range t.online {
		out = append(out, id)
	}
	return out
}
