package helpers

import (
	"testing"
	"time"
)

func TestJWTManagerRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", "identity", time.Hour)
	tok, exp, err := m.Generate("user-1", "a@b.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatal("expected expiry in the future")
	}
	claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "a@b.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTManagerRejects(t *testing.T) {
	m := NewJWTManager("secret", "identity", time.Hour)
	good, _, _ := m.Generate("user-1", "a@b.com")

	other := NewJWTManager("different", "identity", time.Hour)
	expired := NewJWTManager("secret", "identity", -time.Minute)
	stale, _, _ := expired.Generate("user-1", "a@b.com")
	foreign := NewJWTManager("secret", "someone-else", time.Hour)
	wrongIssuer, _, _ := foreign.Generate("user-1", "a@b.com")

	tests := []struct {
		name  string
		m     *JWTManager
		token string
	}{
		{"wrong secret", other, good},
		{"expired", m, stale},
		{"wrong issuer", m, wrongIssuer},
		{"garbage", m, "not.a.jwt"},
		{"empty", m, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.m.Parse(tt.token); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}
