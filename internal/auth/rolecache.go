// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Role cache defaults.
const (
	DefaultRoleCacheSize = 64
	DefaultRoleCacheTTL  = 5 * time.Minute
)

// CachedRoleRepository is a read-through cache in front of a RoleRepository.
// Only successful lookups are cached; misses always reach the backing store.
type CachedRoleRepository struct {
	next   RoleRepository
	cache  *lru.LRU[RoleName, Role]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedRoleRepository wraps next with an LRU of size entries that expire
// after ttl. Non-positive arguments fall back to the defaults.
func NewCachedRoleRepository(next RoleRepository, size int, ttl time.Duration) *CachedRoleRepository {
	if size <= 0 {
		size = DefaultRoleCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultRoleCacheTTL
	}
	return &CachedRoleRepository{
		next:  next,
		cache: lru.NewLRU[RoleName, Role](size, nil, ttl),
	}
}

// GetByName implements RoleRepository.
func (c *CachedRoleRepository) GetByName(ctx context.Context, name RoleName) (*Role, error) {
	if role, ok := c.cache.Get(name); ok {
		c.hits.Add(1)
		return &role, nil
	}
	c.misses.Add(1)

	role, err := c.next.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	c.cache.Add(role.Name, *role)
	return role, nil
}

// FindByNames implements RoleRepository. The backing store is consulted only
// when at least one name is not cached.
func (c *CachedRoleRepository) FindByNames(ctx context.Context, names []RoleName) ([]*Role, error) {
	cached := make([]*Role, 0, len(names))
	for _, name := range names {
		role, ok := c.cache.Get(name)
		if !ok {
			break
		}
		cached = append(cached, &role)
	}
	if len(cached) == len(names) {
		c.hits.Add(1)
		return cached, nil
	}
	c.misses.Add(1)

	found, err := c.next.FindByNames(ctx, names)
	if err != nil {
		return nil, err
	}
	for _, role := range found {
		c.cache.Add(role.Name, *role)
	}
	return found, nil
}

// List implements RoleRepository and always reads the backing store.
func (c *CachedRoleRepository) List(ctx context.Context) ([]*Role, error) {
	roles, err := c.next.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		c.cache.Add(role.Name, *role)
	}
	return roles, nil
}

// Purge drops every cached role.
func (c *CachedRoleRepository) Purge() {
	c.cache.Purge()
}

// Stats returns the cache hit and miss counts.
func (c *CachedRoleRepository) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

var _ RoleRepository = (*CachedRoleRepository)(nil)
