package cacheserver

import "time"

// Config holds the admin HTTP server's configuration, grounded on
// pkg/server/config.go's Config/DefaultConfig shape, trimmed to the
// concerns this read-mostly admin surface actually has (no document cache
// sizing — that belongs to the cache itself).
type Config struct {
	Host string
	Port int

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64

	EnableCORS     bool
	AllowedOrigins []string

	// AdminTokenSalt and AdminTokenHash gate the mutating endpoints
	// (POST/DELETE). Set via NewAdminToken. A zero-length AdminTokenHash
	// disables auth entirely; DefaultConfig leaves both fields empty, so
	// callers must opt in by calling NewAdminToken themselves.
	AdminTokenSalt []byte
	AdminTokenHash []byte

	// EnableCompression wraps JSON responses in zstd when the client sends
	// "Accept-Encoding: zstd".
	EnableCompression bool

	// EnableGraphQL mounts the read-only cacheql inspection schema at
	// POST /graphql.
	EnableGraphQL bool
}

// DefaultConfig returns sensible defaults for local/administrative use.
// The caller is expected to call NewAdminToken before Start if the server
// will be reachable outside a trusted operator's machine.
func DefaultConfig() *Config {
	return &Config{
		Host:              "localhost",
		Port:              9090,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxRequestSize:    1 << 20, // 1MB; admin payloads are small
		EnableCORS:        true,
		AllowedOrigins:    []string{"*"},
		EnableCompression: true,
	}
}
