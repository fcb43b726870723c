// Package chat implements the live support channel: who is connected, how
// a message travels from one participant to the others, and the history
// view over persisted messages.
package chat

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/twocards/backoffice/internal/model/chat"
)

// Channel is one live connection the registry can deliver frames to.
type Channel interface {
	Send(ctx context.Context, frame chat.Outbound) error
	Close() error
}

type visitorEntry struct {
	ch          Channel
	connectedAt time.Time
}

// Registry tracks connected staff (one channel per user) and visitors
// (one channel per session id). Each keyspace has its own lock and no
// method performs I/O while holding one.
type Registry struct {
	staffMu sync.RWMutex
	staff   map[int64]Channel

	visitorMu sync.RWMutex
	visitors  map[string]visitorEntry

	closing atomic.Bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		staff:    make(map[int64]Channel),
		visitors: make(map[string]visitorEntry),
	}
}

// AdmitStaff registers ch for userID. A previous channel for the same user
// is replaced and returned so the caller can close it.
// After CloseAll, ch is still registered but closed at once so its
// connection winds down and deregisters normally.
func (r *Registry) AdmitStaff(userID int64, ch Channel) Channel {
	r.staffMu.Lock()
	prev := r.staff[userID]
	r.staff[userID] = ch
	closing := r.closing.Load()
	r.staffMu.Unlock()

	if closing {
		ch.Close()
	}
	return prev
}

// RemoveStaff drops userID's channel. Removing an absent user is a no-op.
func (r *Registry) RemoveStaff(userID int64) {
	r.staffMu.Lock()
	delete(r.staff, userID)
	r.staffMu.Unlock()
}

// RemoveStaffIf drops userID only while ch is still the registered channel,
// so a replaced connection's teardown does not evict its successor.
func (r *Registry) RemoveStaffIf(userID int64, ch Channel) bool {
	r.staffMu.Lock()
	defer r.staffMu.Unlock()
	if cur, ok := r.staff[userID]; ok && cur == ch {
		delete(r.staff, userID)
		return true
	}
	return false
}

// AdmitVisitor registers ch under a fresh random session id.
func (r *Registry) AdmitVisitor(ch Channel) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", err
	}

	r.visitorMu.Lock()
	r.visitors[id] = visitorEntry{ch: ch, connectedAt: time.Now().UTC()}
	closing := r.closing.Load()
	r.visitorMu.Unlock()

	if closing {
		ch.Close()
	}
	return id, nil
}

// RemoveVisitor drops a visitor session. Removing an absent id is a no-op.
func (r *Registry) RemoveVisitor(id string) {
	r.visitorMu.Lock()
	delete(r.visitors, id)
	r.visitorMu.Unlock()
}

// Visitor returns the channel of session id.
func (r *Registry) Visitor(id string) (Channel, bool) {
	r.visitorMu.RLock()
	defer r.visitorMu.RUnlock()
	e, ok := r.visitors[id]
	return e.ch, ok
}

// Staff returns a snapshot of the connected staff channels.
func (r *Registry) Staff() []Channel {
	r.staffMu.RLock()
	defer r.staffMu.RUnlock()
	out := make([]Channel, 0, len(r.staff))
	for _, ch := range r.staff {
		out = append(out, ch)
	}
	return out
}

// Visitors returns a snapshot of the connected visitor channels.
func (r *Registry) Visitors() []Channel {
	r.visitorMu.RLock()
	defer r.visitorMu.RUnlock()
	out := make([]Channel, 0, len(r.visitors))
	for _, e := range r.visitors {
		out = append(out, e.ch)
	}
	return out
}

// Counts returns the number of connected staff and visitors.
func (r *Registry) Counts() (staff, visitors int) {
	r.staffMu.RLock()
	staff = len(r.staff)
	r.staffMu.RUnlock()

	r.visitorMu.RLock()
	visitors = len(r.visitors)
	r.visitorMu.RUnlock()
	return staff, visitors
}

// CloseAll closes every registered channel and every channel admitted
// afterwards. Channels stay registered until their connections deregister.
func (r *Registry) CloseAll() {
	r.closing.Store(true)

	channels := append(r.Staff(), r.Visitors()...)
	for _, ch := range channels {
		ch.Close()
	}
}

// WaitEmpty blocks until no channel is registered or ctx is done.
func (r *Registry) WaitEmpty(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if staff, visitors := r.Counts(); staff == 0 && visitors == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			staff, visitors := r.Counts()
			return fmt.Errorf("%d staff and %d visitor connections still open: %w", staff, visitors, ctx.Err())
		case <-ticker.C:
		}
	}
}

func newSessionID() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}
