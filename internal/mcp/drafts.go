package mcp

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDraftTTL is how long a draft waits for the user's go-ahead.
const DefaultDraftTTL = 15 * time.Minute

// Draft is an email waiting for human confirmation before it is sent.
type Draft struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Address   string    `json:"address"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DraftStore keeps pending drafts in memory.
type DraftStore struct {
	drafts map[string]*Draft
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
}

// NewDraftStore creates a store; a non-positive ttl uses DefaultDraftTTL.
func NewDraftStore(ttl time.Duration) *DraftStore {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &DraftStore{
		drafts: make(map[string]*Draft),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Create stores d, stamps it and returns its ID. Expired drafts are dropped
// on the way.
func (ds *DraftStore) Create(d *Draft) string {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.cleanupLocked()

	now := ds.now()
	d.ID = "draft-" + uuid.NewString()[:8]
	d.CreatedAt = now
	d.ExpiresAt = now.Add(ds.ttl)
	ds.drafts[d.ID] = d
	return d.ID
}

// Take removes and returns a live draft. A draft can only be taken once.
func (ds *DraftStore) Take(id string) (*Draft, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	d, ok := ds.drafts[id]
	if !ok {
		return nil, fmt.Errorf("draft not found: %s", id)
	}
	delete(ds.drafts, id)
	if ds.now().After(d.ExpiresAt) {
		return nil, fmt.Errorf("draft expired: %s", id)
	}
	return d, nil
}

// Restore puts back a draft taken for a send that failed, keeping its
// original expiry.
func (ds *DraftStore) Restore(d *Draft) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.drafts[d.ID] = d
}

// Cleanup removes expired drafts and returns how many were removed.
func (ds *DraftStore) Cleanup() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.cleanupLocked()
}

func (ds *DraftStore) cleanupLocked() int {
	count := 0
	now := ds.now()
	for id, d := range ds.drafts {
		if now.After(d.ExpiresAt) {
			delete(ds.drafts, id)
			count++
		}
	}
	return count
}

// Count returns the number of live drafts.
func (ds *DraftStore) Count() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	count := 0
	now := ds.now()
	for _, d := range ds.drafts {
		if !now.After(d.ExpiresAt) {
			count++
		}
	}
	return count
}
