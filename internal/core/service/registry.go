package service

import (
	"sort"
	"sync"

	"github.com/yndnr/securestore-go/internal/core/domain"
)

// EntryRef names one logical entry.
type EntryRef struct {
	Key            string
	Classification domain.Classification
}

// keyRegistry remembers the entries this process has stored. It stands in
// for enumeration on backends that cannot list their keys.
type keyRegistry struct {
	mu   sync.Mutex
	refs map[EntryRef]struct{}
}

func newKeyRegistry() *keyRegistry {
	return &keyRegistry{refs: make(map[EntryRef]struct{})}
}

func (r *keyRegistry) add(ref EntryRef) {
	r.mu.Lock()
	r.refs[ref] = struct{}{}
	r.mu.Unlock()
}

func (r *keyRegistry) remove(ref EntryRef) {
	r.mu.Lock()
	delete(r.refs, ref)
	r.mu.Unlock()
}

func (r *keyRegistry) list() []EntryRef {
	r.mu.Lock()
	out := make([]EntryRef, 0, len(r.refs))
	for ref := range r.refs {
		out = append(out, ref)
	}
	r.mu.Unlock()

	sortRefs(out)
	return out
}

func sortRefs(refs []EntryRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Classification != refs[j].Classification {
			return refs[i].Classification < refs[j].Classification
		}
		return refs[i].Key < refs[j].Key
	})
}
