package realtime

import (
	"sync"

	"restaurant-ops/internal/domain"
)

// Registry tracks live connections keyed by tenant first, then user, so a
// broadcast can never cross a tenant boundary. All mutation goes through
// Admit/Remove/Subscribe; the maps are never exposed.
type Registry struct {
	mu        sync.RWMutex
	byCompany map[string]map[string]*Conn
}

func NewRegistry() *Registry {
	return &Registry{byCompany: make(map[string]map[string]*Conn)}
}

// Admit registers an authenticated connection under its (company, user)
// pair. At most one entry per pair exists: a newer connection replaces the
// old one, and the superseded connection is returned so the caller can close
// it instead of leaving it dangling until the reaper notices.
func (r *Registry) Admit(c *Conn) (superseded *Conn) {
	id := c.Identity()
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.byCompany[id.CompanyID]
	if !ok {
		users = make(map[string]*Conn)
		r.byCompany[id.CompanyID] = users
	}
	prev := users[id.UserID]
	users[id.UserID] = c
	return prev
}

// Remove evicts the connection if it is still the registered entry for its
// user. Idempotent; a connection already replaced or removed is a no-op.
func (r *Registry) Remove(c *Conn) bool {
	id := c.Identity()
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.byCompany[id.CompanyID]
	if !ok || users[id.UserID] != c {
		return false
	}
	delete(users, id.UserID)
	if len(users) == 0 {
		delete(r.byCompany, id.CompanyID)
	}
	return true
}

// Subscribe validates the channel name and the actor's role before adding
// the channel to the connection's set.
func (r *Registry) Subscribe(c *Conn, channel string) error {
	if !domain.KnownChannel(channel) {
		return &domain.UnknownChannelError{Channel: channel}
	}
	if !domain.CanAccessChannel(c.Identity().Role, channel) {
		return &domain.UnauthorizedChannelError{Channel: channel, Role: c.Identity().Role}
	}
	c.subscribe(channel)
	return nil
}

func (r *Registry) Unsubscribe(c *Conn, channel string) error {
	if !domain.KnownChannel(channel) {
		return &domain.UnknownChannelError{Channel: channel}
	}
	c.unsubscribe(channel)
	return nil
}

// ListByCompany returns a snapshot of every live connection for one tenant.
func (r *Registry) ListByCompany(companyID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := r.byCompany[companyID]
	out := make([]*Conn, 0, len(users))
	for _, c := range users {
		out = append(out, c)
	}
	return out
}

// ListByChannel returns the tenant's connections currently subscribed to the
// given channel.
func (r *Registry) ListByChannel(companyID, channel string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Conn
	for _, c := range r.byCompany[companyID] {
		if c.Subscribed(channel) {
			out = append(out, c)
		}
	}
	return out
}

// Snapshot returns every live connection across all tenants; used by the
// reaper.
func (r *Registry) Snapshot() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Conn
	for _, users := range r.byCompany {
		for _, c := range users {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, users := range r.byCompany {
		n += len(users)
	}
	return n
}
