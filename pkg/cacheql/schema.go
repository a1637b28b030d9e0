package cacheql

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/mnohosten/blockcache/pkg/blockcache"
	"github.com/mnohosten/blockcache/pkg/filemgr"
)

// Schema builds the read-only inspection schema for cache and files,
// grounded on pkg/graphql/schema.go's NewObject/NewSchema shape.
func Schema(cache *blockcache.Cache, files *filemgr.Manager) (graphql.Schema, error) {
	resolver := NewResolver(cache, files)

	fileType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "CacheFile",
		Description: "A file open in the file manager",
		Fields: graphql.Fields{
			"name": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.String),
				Description: "Filename as registered with the file manager",
			},
			"status": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.String),
				Description: `"normal" or "compactOld"`,
			},
			"dirtyBlocks": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Number of unflushed dirty blocks for this file",
			},
		},
	})

	cacheStateType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "CacheState",
		Description: "Point-in-time snapshot of block cache occupancy and counters",
		Fields: graphql.Fields{
			"nBlock":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"nFree":     &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"nClean":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"nDirty":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"hits":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"misses":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"evictions": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"flushes":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Query",
		Description: "Root query type for block cache inspection",
		Fields: graphql.Fields{
			"cacheState": &graphql.Field{
				Type:        graphql.NewNonNull(cacheStateType),
				Description: "Current cache occupancy and counters",
				Resolve:     resolver.CacheState,
			},
			"file": &graphql.Field{
				Type:        fileType,
				Description: "Look up a single tracked file by name",
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{
						Type:        graphql.NewNonNull(graphql.String),
						Description: "Filename",
					},
				},
				Resolve: resolver.File,
			},
			"files": &graphql.Field{
				Type:        graphql.NewList(fileType),
				Description: "List every file the file manager currently has open",
				Resolve:     resolver.Files,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("cacheql: build schema: %w", err)
	}
	return schema, nil
}
