// internal/app/system/presence/presence.go
// Package presence tracks which users currently hold a live push
// connection. Entries are ephemeral and live only in process memory.
package presence

import (
	"sync"
)

// Conn is a live push connection. ID must be unique per connection.
type Conn interface {
	ID() string
	Send(event string, payload any) error
}

// Registry maps a user to the connection that last registered for them.
type Registry interface {
	// Register binds userID to c, replacing any earlier connection.
	Register(userID string, c Conn)
	// Unregister removes c and returns the user it belonged to. It is a
	// no-op for a connection that has since been replaced.
	Unregister(c Conn) (userID string, ok bool)
	// Lookup returns the user's current connection.
	Lookup(userID string) (Conn, bool)
	// Online returns the number of registered users.
	Online() int
}

// Memory is the in-process Registry. It keeps a reverse index from
// connection id to user so Unregister does not scan.
type Memory struct {
	mu     sync.RWMutex
	byUser map[string]Conn
	byConn map[string]string
}

// NewMemory returns an empty registry.
func NewMemory() *Memory {
	return &Memory{
		byUser: make(map[string]Conn),
		byConn: make(map[string]string),
	}
}

func (m *Memory) Register(userID string, c Conn) {
	if userID == "" || c == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.byUser[userID]; ok {
		delete(m.byConn, prev.ID())
	}
	// A connection re-registering as a different user leaves the old user.
	if prevUser, ok := m.byConn[c.ID()]; ok && prevUser != userID {
		delete(m.byUser, prevUser)
	}
	m.byUser[userID] = c
	m.byConn[c.ID()] = userID
}

func (m *Memory) Unregister(c Conn) (string, bool) {
	if c == nil {
		return "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	userID, ok := m.byConn[c.ID()]
	if !ok {
		return "", false
	}
	delete(m.byConn, c.ID())
	delete(m.byUser, userID)
	return userID, true
}

func (m *Memory) Lookup(userID string) (Conn, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byUser[userID]
	return c, ok
}

func (m *Memory) Online() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser)
}
