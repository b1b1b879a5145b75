package core

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultPrincipalCacheSize bounds the principal registry when no size is configured.
const DefaultPrincipalCacheSize = 10000

// PrincipalContext is the process-wide registry of authenticated principals keyed by user name.
type PrincipalContext interface {
	Put(p Principal)
	Get(userName string) (Principal, bool)
	Remove(userName string)
}

// LRUPrincipalContext is a bounded PrincipalContext; the least recently
// authenticated principals are evicted first.
type LRUPrincipalContext struct {
	cache *lru.Cache[string, Principal]
}

func NewLRUPrincipalContext(size int) (*LRUPrincipalContext, error) {
	if size <= 0 {
		size = DefaultPrincipalCacheSize
	}
	cache, err := lru.New[string, Principal](size)
	if err != nil {
		return nil, err
	}
	return &LRUPrincipalContext{cache: cache}, nil
}

// Put upserts p. The role set is copied so callers may keep mutating theirs.
func (p *LRUPrincipalContext) Put(principal Principal) {
	principal.Roles = principal.Roles.Clone()
	p.cache.Add(principal.UserName, principal)
}

func (p *LRUPrincipalContext) Get(userName string) (Principal, bool) {
	principal, ok := p.cache.Get(userName)
	if !ok {
		return Principal{}, false
	}
	principal.Roles = principal.Roles.Clone()
	return principal, true
}

func (p *LRUPrincipalContext) Remove(userName string) {
	p.cache.Remove(userName)
}

func (p *LRUPrincipalContext) Len() int {
	return p.cache.Len()
}
