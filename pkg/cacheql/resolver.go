// Package cacheql exposes read-only GraphQL inspection over a block
// cache's state, grounded on pkg/graphql/schema.go and resolver.go's
// Resolver-per-field pattern. Unlike the teacher, this schema has no
// Mutation type: every mutating cache operation (flush, discard, drop)
// already has an HTTP verb in pkg/cacheserver, and letting GraphQL write
// to cache state too would give callers two inconsistent ways to do it.
package cacheql

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/mnohosten/blockcache/pkg/blockcache"
	"github.com/mnohosten/blockcache/pkg/filemgr"
)

// Resolver answers GraphQL fields against a live cache and file manager.
type Resolver struct {
	cache *blockcache.Cache
	files *filemgr.Manager
}

// NewResolver creates a Resolver bound to cache and files.
func NewResolver(cache *blockcache.Cache, files *filemgr.Manager) *Resolver {
	return &Resolver{cache: cache, files: files}
}

// CacheState resolves the root "cacheState" query.
func (r *Resolver) CacheState(p graphql.ResolveParams) (interface{}, error) {
	stats := r.cache.Stats()
	return map[string]interface{}{
		"nBlock":    stats.NBlock,
		"nFree":     stats.NFree,
		"nClean":    stats.NClean,
		"nDirty":    stats.NDirty,
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"evictions": stats.Evictions,
		"flushes":   stats.Flushes,
	}, nil
}

// File resolves the "file(name)" query.
func (r *Resolver) File(p graphql.ResolveParams) (interface{}, error) {
	name, ok := p.Args["name"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("name is required")
	}

	h, ok := r.files.Lookup(name)
	if !ok {
		return nil, nil
	}

	stats := r.cache.Stats()
	return map[string]interface{}{
		"name":        h.Name(),
		"status":      statusLabel(h.Status()),
		"dirtyBlocks": stats.DirtyPerFile[name],
	}, nil
}

// Files resolves the "files" query, listing every file the manager tracks.
func (r *Resolver) Files(p graphql.ResolveParams) (interface{}, error) {
	names := r.files.Names()
	stats := r.cache.Stats()

	out := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		h, ok := r.files.Lookup(name)
		if !ok {
			continue
		}
		out = append(out, map[string]interface{}{
			"name":        name,
			"status":      statusLabel(h.Status()),
			"dirtyBlocks": stats.DirtyPerFile[name],
		})
	}
	return out, nil
}

func statusLabel(s blockcache.FileStatus) string {
	if s == blockcache.StatusCompactOld {
		return "compactOld"
	}
	return "normal"
}
