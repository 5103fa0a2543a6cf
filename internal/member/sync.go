package member

import (
	"context"
	"strings"
	"sync"

	"github.com/checklists-vnext/checklist-service/internal/store"
)

// ActivationCache remembers which {orgId, email} pairs have already been
// through a status sync, so repeat requests skip the membership scan. A
// miss just re-triggers an idempotent check, so any eviction policy is
// safe; MapCache keeps entries for the life of the process.
type ActivationCache interface {
	Seen(orgID, email string) bool
	Mark(orgID, email string)
}

// MapCache is an unbounded in-memory ActivationCache.
type MapCache struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMapCache creates an empty MapCache.
func NewMapCache() *MapCache {
	return &MapCache{seen: make(map[string]struct{})}
}

func (c *MapCache) key(orgID, email string) string {
	return orgID + ":" + email
}

// Seen reports whether the pair was already synced.
func (c *MapCache) Seen(orgID, email string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seen[c.key(orgID, email)]
	return ok
}

// Mark records a synced pair.
func (c *MapCache) Mark(orgID, email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[c.key(orgID, email)] = struct{}{}
}

// StatusSyncer flips a pending membership to active the first time its
// user shows up authenticated.
type StatusSyncer struct {
	repo  *Repository
	cache ActivationCache
}

// NewStatusSyncer creates a StatusSyncer with an injected cache.
func NewStatusSyncer(repo *Repository, cache ActivationCache) *StatusSyncer {
	return &StatusSyncer{repo: repo, cache: cache}
}

// SyncActive activates the membership matching email in orgID if it is
// still pending. Unknown emails are ignored.
func (s *StatusSyncer) SyncActive(ctx context.Context, orgID, email string) error {
	if orgID == "" || email == "" {
		return nil
	}
	if s.cache.Seen(orgID, email) {
		return nil
	}

	members, _, err := s.repo.List(ctx, orgID, 0, "")
	if err != nil {
		return err
	}

	normalized := strings.ToLower(email)
	var match *MemberItem
	for _, m := range members {
		if strings.ToLower(m.Email) == normalized {
			match = m
			break
		}
	}
	if match == nil {
		return nil
	}

	if match.Status == StatusPending {
		err := s.repo.UpdateFields(ctx, orgID, match.UserID, store.Item{
			AttrStatus: store.S(StatusActive),
		})
		if err != nil {
			return err
		}
	}

	s.cache.Mark(orgID, email)
	return nil
}
