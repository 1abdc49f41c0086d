// Package dedup tracks which paper identities have already been
// synchronized. The set is rebuilt from the knowledge store at the start
// of every run; the store is the single source of truth, since the
// execution environment is not guaranteed to retain local files between
// runs.
package dedup

import (
	"context"
	"log"
)

// Lister pages through the knowledge store's existing records.
type Lister interface {
	QueryLinks(ctx context.Context, startCursor string) (links []string, nextCursor string, hasMore bool, err error)
}

// Tracker holds the set of identities already synchronized. It grows
// monotonically within a run and is never persisted locally.
type Tracker struct {
	seen map[string]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]struct{})}
}

// Load rebuilds the tracker from the store's full record listing. On a
// mid-listing error it returns whatever was collected so far: a partial
// dedup set risks a duplicate insert, never data loss.
func Load(ctx context.Context, lister Lister) *Tracker {
	t := NewTracker()

	cursor := ""
	for {
		links, next, more, err := lister.QueryLinks(ctx, cursor)
		for _, link := range links {
			t.seen[link] = struct{}{}
		}
		if err != nil {
			log.Printf("Warning: could not finish listing existing records: %v", err)
			break
		}
		if !more {
			break
		}
		cursor = next
	}

	log.Printf("Found %d existing paper(s) already in the store.", len(t.seen))
	return t
}

// Contains reports whether the identity was already synchronized.
func (t *Tracker) Contains(identity string) bool {
	_, ok := t.seen[identity]
	return ok
}

// Record marks an identity as synchronized. Call only after a confirmed
// successful write, so a write failure does not suppress a retry of the
// same paper on the next run.
func (t *Tracker) Record(identity string) {
	t.seen[identity] = struct{}{}
}

// Len returns the number of tracked identities.
func (t *Tracker) Len() int {
	return len(t.seen)
}
