package cacheserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckAdminTokenDisabledWhenNoHash(t *testing.T) {
	cfg := &Config{}
	r := httptest.NewRequest(http.MethodPost, "/flush/a.db", nil)
	if !checkAdminToken(cfg, r) {
		t.Error("expected auth to be disabled with no configured hash")
	}
}

func TestCheckAdminTokenAcceptsCorrectBearer(t *testing.T) {
	salt, hash, err := NewAdminToken("s3cret")
	if err != nil {
		t.Fatalf("NewAdminToken: %v", err)
	}
	cfg := &Config{AdminTokenSalt: salt, AdminTokenHash: hash}

	r := httptest.NewRequest(http.MethodPost, "/flush/a.db", nil)
	r.Header.Set("Authorization", "Bearer s3cret")
	if !checkAdminToken(cfg, r) {
		t.Error("expected correct bearer token to pass")
	}
}

func TestCheckAdminTokenRejectsWrongBearer(t *testing.T) {
	salt, hash, err := NewAdminToken("s3cret")
	if err != nil {
		t.Fatalf("NewAdminToken: %v", err)
	}
	cfg := &Config{AdminTokenSalt: salt, AdminTokenHash: hash}

	r := httptest.NewRequest(http.MethodPost, "/flush/a.db", nil)
	r.Header.Set("Authorization", "Bearer wrong")
	if checkAdminToken(cfg, r) {
		t.Error("expected wrong bearer token to fail")
	}
}

func TestCheckAdminTokenRejectsMissingHeader(t *testing.T) {
	salt, hash, err := NewAdminToken("s3cret")
	if err != nil {
		t.Fatalf("NewAdminToken: %v", err)
	}
	cfg := &Config{AdminTokenSalt: salt, AdminTokenHash: hash}

	r := httptest.NewRequest(http.MethodPost, "/flush/a.db", nil)
	if checkAdminToken(cfg, r) {
		t.Error("expected missing Authorization header to fail")
	}
}

func TestNewAdminTokenRejectsEmptySecret(t *testing.T) {
	if _, _, err := NewAdminToken(""); err != ErrTokenRequired {
		t.Errorf("expected ErrTokenRequired, got %v", err)
	}
}
