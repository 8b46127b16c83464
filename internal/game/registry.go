package game

// Registry is the process-wide map of active connections to sessions.
// Iteration order is insertion order, which keeps resolution passes
// deterministic. The registry is not internally locked: it is owned by the
// engine and only touched under the engine lock.
type Registry struct {
	sessions map[string]*Session
	order    []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Add inserts a session keyed by its connection ID
func (r *Registry) Add(s *Session) {
	if _, ok := r.sessions[s.ConnID]; !ok {
		r.order = append(r.order, s.ConnID)
	}
	r.sessions[s.ConnID] = s
}

// Remove deletes the session for the given connection
func (r *Registry) Remove(connID string) {
	if _, ok := r.sessions[connID]; !ok {
		return
	}
	delete(r.sessions, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns the session for a connection, or nil
func (r *Registry) Get(connID string) *Session {
	return r.sessions[connID]
}

// ByPlayerID returns the session whose record has the given persistent ID, or nil
func (r *Registry) ByPlayerID(playerID string) *Session {
	for _, id := range r.order {
		if s := r.sessions[id]; s.Record.ID == playerID {
			return s
		}
	}
	return nil
}

// All returns sessions in insertion order
func (r *Registry) All() []*Session {
	out := make([]*Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id])
	}
	return out
}

// Len returns the number of active sessions
func (r *Registry) Len() int {
	return len(r.sessions)
}
