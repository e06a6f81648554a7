package repository

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"shortly/internal/entities"
	"shortly/internal/errors"
)

// LinkRepository defines the interface for link storage operations
type LinkRepository interface {
	Save(link *entities.Link) error
	Replace(old, next *entities.Link) bool
	FindByCode(code string) (*entities.Link, bool)
	FindByOwner(ownerID uuid.UUID) []*entities.Link
	Delete(code string) bool
	DeleteIf(code string, pred func(*entities.Link) bool) bool
	Exists(code string) bool
	Count() int
	FindAll() []*entities.Link
	Clear()
}

const shardCount = 32

type codeShard struct {
	mu    sync.RWMutex
	links map[string]*entities.Link
}

type ownerShard struct {
	mu    sync.RWMutex
	links map[uuid.UUID]map[string]*entities.Link
}

// MemoryLinkRepository keeps links in process memory, indexed by code and by
// owner. Both indexes are split into shards so unrelated codes do not contend
// on one lock.
//
// Lock order: one code shard, then owner shards in ascending index. Nothing in
// here takes a link's own lock.
type MemoryLinkRepository struct {
	codes  [shardCount]codeShard
	owners [shardCount]ownerShard
}

var _ LinkRepository = (*MemoryLinkRepository)(nil)

// NewMemoryLinkRepository creates an empty repository
func NewMemoryLinkRepository() *MemoryLinkRepository {
	r := &MemoryLinkRepository{}
	for i := range r.codes {
		r.codes[i].links = make(map[string]*entities.Link)
		r.owners[i].links = make(map[uuid.UUID]map[string]*entities.Link)
	}
	return r
}

func codeIndex(code string) int {
	return int(xxhash.Sum64String(code) % shardCount)
}

func ownerIndex(id uuid.UUID) int {
	return int(xxhash.Sum64(id[:]) % shardCount)
}

// lockOwners write-locks the given owner shards in ascending order and
// returns the matching unlock.
func (r *MemoryLinkRepository) lockOwners(indexes ...int) func() {
	sort.Ints(indexes)
	locked := make([]int, 0, len(indexes))
	for _, idx := range indexes {
		if n := len(locked); n > 0 && locked[n-1] == idx {
			continue
		}
		r.owners[idx].mu.Lock()
		locked = append(locked, idx)
	}
	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			r.owners[locked[i]].mu.Unlock()
		}
	}
}

// index and unindex must run with the owner's shard write-locked.
func (r *MemoryLinkRepository) index(link *entities.Link) {
	shard := &r.owners[ownerIndex(link.OwnerID)]
	set, ok := shard.links[link.OwnerID]
	if !ok {
		set = make(map[string]*entities.Link)
		shard.links[link.OwnerID] = set
	}
	set[link.Code] = link
}

func (r *MemoryLinkRepository) unindex(link *entities.Link) {
	shard := &r.owners[ownerIndex(link.OwnerID)]
	set, ok := shard.links[link.OwnerID]
	if !ok {
		return
	}
	delete(set, link.Code)
	if len(set) == 0 {
		delete(shard.links, link.OwnerID)
	}
}

// Save inserts the link or replaces the one stored under the same code.
// A replaced link is also dropped from its previous owner's index.
func (r *MemoryLinkRepository) Save(link *entities.Link) error {
	if link == nil {
		return errors.NewInvalidInputError("link cannot be nil")
	}

	cs := &r.codes[codeIndex(link.Code)]
	cs.mu.Lock()
	defer cs.mu.Unlock()

	prev := cs.links[link.Code]
	shards := []int{ownerIndex(link.OwnerID)}
	if prev != nil {
		shards = append(shards, ownerIndex(prev.OwnerID))
	}
	unlock := r.lockOwners(shards...)
	defer unlock()

	if prev != nil {
		r.unindex(prev)
	}
	cs.links[link.Code] = link
	r.index(link)
	return nil
}

// Replace swaps next in for old only while old is still the link stored
// under its code. It reports false when old was deleted or replaced first.
func (r *MemoryLinkRepository) Replace(old, next *entities.Link) bool {
	if old == nil || next == nil || old.Code != next.Code {
		return false
	}

	cs := &r.codes[codeIndex(old.Code)]
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.links[old.Code] != old {
		return false
	}
	unlock := r.lockOwners(ownerIndex(old.OwnerID), ownerIndex(next.OwnerID))
	defer unlock()

	r.unindex(old)
	cs.links[next.Code] = next
	r.index(next)
	return true
}

// FindByCode returns the link stored under code, if any
func (r *MemoryLinkRepository) FindByCode(code string) (*entities.Link, bool) {
	cs := &r.codes[codeIndex(code)]
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	link, ok := cs.links[code]
	return link, ok
}

// FindByOwner returns a snapshot of the owner's links in no particular order
func (r *MemoryLinkRepository) FindByOwner(ownerID uuid.UUID) []*entities.Link {
	shard := &r.owners[ownerIndex(ownerID)]
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	set := shard.links[ownerID]
	links := make([]*entities.Link, 0, len(set))
	for _, link := range set {
		links = append(links, link)
	}
	return links
}

// Delete removes the link from both indexes and reports whether it existed
func (r *MemoryLinkRepository) Delete(code string) bool {
	return r.DeleteIf(code, nil)
}

// DeleteIf removes the link stored under code only when pred accepts it.
// pred runs under the shard lock and must not block; a nil pred always
// accepts.
func (r *MemoryLinkRepository) DeleteIf(code string, pred func(*entities.Link) bool) bool {
	cs := &r.codes[codeIndex(code)]
	cs.mu.Lock()
	defer cs.mu.Unlock()

	link, ok := cs.links[code]
	if !ok {
		return false
	}
	if pred != nil && !pred(link) {
		return false
	}

	unlock := r.lockOwners(ownerIndex(link.OwnerID))
	defer unlock()

	delete(cs.links, code)
	r.unindex(link)
	return true
}

// Exists checks if a short code is currently stored
func (r *MemoryLinkRepository) Exists(code string) bool {
	_, ok := r.FindByCode(code)
	return ok
}

// Count returns the number of stored links
func (r *MemoryLinkRepository) Count() int {
	total := 0
	for i := range r.codes {
		cs := &r.codes[i]
		cs.mu.RLock()
		total += len(cs.links)
		cs.mu.RUnlock()
	}
	return total
}

// FindAll returns every stored link. Shards are copied one at a time, so a
// link saved concurrently may or may not appear.
func (r *MemoryLinkRepository) FindAll() []*entities.Link {
	var links []*entities.Link
	for i := range r.codes {
		cs := &r.codes[i]
		cs.mu.RLock()
		for _, link := range cs.links {
			links = append(links, link)
		}
		cs.mu.RUnlock()
	}
	return links
}

// Clear drops every link. Intended for tests and resets.
func (r *MemoryLinkRepository) Clear() {
	for i := range r.codes {
		r.codes[i].mu.Lock()
	}
	for i := range r.owners {
		r.owners[i].mu.Lock()
	}

	for i := range r.codes {
		r.codes[i].links = make(map[string]*entities.Link)
		r.owners[i].links = make(map[uuid.UUID]map[string]*entities.Link)
	}

	for i := len(r.owners) - 1; i >= 0; i-- {
		r.owners[i].mu.Unlock()
	}
	for i := len(r.codes) - 1; i >= 0; i-- {
		r.codes[i].mu.Unlock()
	}
}
