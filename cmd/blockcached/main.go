// Command blockcached runs a block cache with its admin HTTP API,
// grounded on cmd/server/main.go's flag-parsing and config-wiring style.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mnohosten/blockcache/pkg/blockcache"
	"github.com/mnohosten/blockcache/pkg/cacheserver"
	"github.com/mnohosten/blockcache/pkg/filemgr"
)

func main() {
	host := flag.String("host", "localhost", "Admin HTTP server host")
	port := flag.Int("port", 9090, "Admin HTTP server port")
	dataDir := flag.String("data-dir", "./data", "Directory containing the cached files")
	nblock := flag.Int("nblock", 4096, "Number of block frames the cache holds")
	blockSize := flag.Int("block-size", 4096, "Block size in bytes")
	evictRatio := flag.Int("evict-ratio", blockcache.DefaultEvictRatio, "Minimum clean:dirty ratio before preferring direct eviction over flush")
	flushUnit := flag.Int("flush-unit", blockcache.DefaultFlushUnit, "Maximum bytes coalesced into one sequential flush write")
	corsOrigin := flag.String("cors-origin", "*", "CORS allowed origin for the admin API")
	adminToken := flag.String("admin-token", "", "Bearer token required for POST/DELETE admin routes (disabled if empty)")
	enableGraphQL := flag.Bool("graphql", false, "Enable the read-only GraphQL inspection endpoint (/graphql)")
	flag.Parse()

	cfg := blockcache.DefaultConfig(*nblock, *blockSize)
	cfg.EvictRatio = *evictRatio
	cfg.FlushUnit = *flushUnit

	cache, err := blockcache.Init(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "blockcached: init cache: %v\n", err)
		os.Exit(1)
	}
	defer cache.Shutdown()

	files := filemgr.New()
	defer files.CloseAll()

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "blockcached: create data dir: %v\n", err)
		os.Exit(1)
	}
	if entries, err := os.ReadDir(*dataDir); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if _, err := files.Open(filepath.Join(*dataDir, e.Name())); err != nil {
				fmt.Fprintf(os.Stderr, "blockcached: open %s: %v\n", e.Name(), err)
			}
		}
	}

	srvCfg := cacheserver.DefaultConfig()
	srvCfg.Host = *host
	srvCfg.Port = *port
	srvCfg.AllowedOrigins = []string{*corsOrigin}
	srvCfg.EnableGraphQL = *enableGraphQL
	if *adminToken != "" {
		salt, hash, err := cacheserver.NewAdminToken(*adminToken)
		if err != nil {
			fmt.Fprintf(os.Stderr, "blockcached: derive admin token: %v\n", err)
			os.Exit(1)
		}
		srvCfg.AdminTokenSalt = salt
		srvCfg.AdminTokenHash = hash
	}

	srv := cacheserver.New(srvCfg, cache, files)
	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "blockcached: server error: %v\n", err)
		os.Exit(1)
	}
}
