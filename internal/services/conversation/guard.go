package conversation

import "sync"

// inflight tracks sessions that are waiting for a bot reply
type inflight struct {
	mu       sync.Mutex
	sessions map[string]struct{}
}

func newInflight() *inflight {
	return &inflight{sessions: make(map[string]struct{})}
}

// acquire marks the session busy. It returns false if it already was.
func (g *inflight) acquire(sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.sessions[sessionID]; busy {
		return false
	}
	g.sessions[sessionID] = struct{}{}
	return true
}

func (g *inflight) release(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, sessionID)
}
