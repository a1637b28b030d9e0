package cacheserver

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Admin-token derivation parameters, matching pkg/auth/auth.go's SCRAM-style
// PBKDF2 constants (iteration count, key length) since this serves the same
// purpose: proving possession of a secret without storing it in the clear.
const (
	adminSaltLength = 16
	adminIterations = 4096
	adminKeyLength  = 32
)

// ErrTokenRequired is returned by NewAdminToken for an empty secret.
var ErrTokenRequired = errors.New("cacheserver: admin token secret must not be empty")

// NewAdminToken derives a salt and PBKDF2 hash from secret, suitable for
// Config.AdminTokenSalt/AdminTokenHash. The caller distributes secret (as a
// bearer token) to operators out of band; the server never stores it.
func NewAdminToken(secret string) (salt, hash []byte, err error) {
	if secret == "" {
		return nil, nil, ErrTokenRequired
	}
	salt = make([]byte, adminSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("cacheserver: generate salt: %w", err)
	}
	hash = pbkdf2.Key([]byte(secret), salt, adminIterations, adminKeyLength, sha256.New)
	return salt, hash, nil
}

// checkAdminToken reports whether the bearer token in r's Authorization
// header derives to cfg's stored hash.
func checkAdminToken(cfg *Config, r *http.Request) bool {
	if len(cfg.AdminTokenHash) == 0 {
		return true // auth disabled
	}
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return false
	}
	token := strings.TrimPrefix(auth, prefix)
	got := pbkdf2.Key([]byte(token), cfg.AdminTokenSalt, adminIterations, adminKeyLength, sha256.New)
	return hmac.Equal(got, cfg.AdminTokenHash)
}

// adminAuthMiddleware rejects requests lacking a valid bearer token. Wired
// only onto the mutating routes (POST/DELETE); GET endpoints stay open,
// mirroring the teacher's AllowedOrigins-gated-but-unauthenticated reads.
func (s *Server) adminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !checkAdminToken(s.cfg, r) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="blockcache-admin"`)
			http.Error(w, `{"error":"invalid or missing admin token"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// encodedHash base64-encodes a hash for display/debugging; unused in
// request handling, kept for operators inspecting a generated token pair.
func encodedHash(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
