package utils

import (
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pharmapin/pharmapin/internal/model"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 42, model.RolePharmacist, 15)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := ParseAccessToken("s3cret", tok.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	id, _ := claims.UserID()
	if id != 42 || claims.Role != model.RolePharmacist {
		t.Fatalf("claims = %d %q", id, claims.Role)
	}
}

func TestAccessTokenRejected(t *testing.T) {
	good, _ := NewAccessToken("s3cret", 1, model.RolePatient, 15)
	expired, _ := NewAccessToken("s3cret", 1, model.RolePatient, -1)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "role": "admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	badRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "role": "root"}).
		SignedString([]byte("s3cret"))

	cases := map[string]struct{ secret, raw string }{
		"wrong secret": {"other", good.Token},
		"expired":      {"s3cret", expired.Token},
		"alg none":     {"s3cret", none},
		"unknown role": {"s3cret", badRole},
		"garbage":      {"s3cret", "not.a.jwt"},
	}
	for name, tc := range cases {
		if _, err := ParseAccessToken(tc.secret, tc.raw); err == nil {
			t.Errorf("%s: token accepted", name)
		}
	}
}

func TestRefreshTokenHash(t *testing.T) {
	rt, err := NewRefreshToken(7)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(rt.Raw) != 96 {
		t.Fatalf("raw length %d", len(rt.Raw))
	}
	h := HashRefreshRaw(rt.Raw)
	if len(h) != 64 || h != HashRefreshRaw(rt.Raw) || strings.Contains(h, rt.Raw) {
		t.Fatalf("unexpected hash %q", h)
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword(hash, "correct horse") || VerifyPassword(hash, "wrong") {
		t.Fatal("verify mismatch")
	}
}
