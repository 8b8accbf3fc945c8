package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "storefront",
	ExpirationMinutes: 30,
}

func TestMintAndParseAccessToken(t *testing.T) {
	now := time.Now().UTC()
	userID := uuid.New()

	token, minted, err := MintAccessToken(testJWTConfig, now, AccessTokenPayload{UserID: userID, Role: enums.UserRoleStaff})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	if minted.ID == "" {
		t.Fatalf("expected generated jti")
	}

	claims, err := ParseAccessToken(testJWTConfig, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != userID || claims.Role != enums.UserRoleStaff {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ID != minted.ID {
		t.Fatalf("jti mismatch %q vs %q", claims.ID, minted.ID)
	}
	if claims.Issuer != testJWTConfig.Issuer {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 30*time.Minute {
		t.Fatalf("unexpected lifetime %v", got)
	}
}

func TestMintAccessTokenKeepsProvidedJTI(t *testing.T) {
	_, claims, err := MintAccessToken(testJWTConfig, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleAdmin, JTI: "fixed-jti"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if claims.ID != "fixed-jti" {
		t.Fatalf("expected provided jti, got %q", claims.ID)
	}
}

func TestMintAccessTokenValidation(t *testing.T) {
	if _, _, err := MintAccessToken(testJWTConfig, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: "owner"}); err == nil {
		t.Fatal("expected invalid role error")
	}
	if _, _, err := MintAccessToken(testJWTConfig, time.Now(), AccessTokenPayload{Role: enums.UserRoleAdmin}); err == nil {
		t.Fatal("expected missing user error")
	}
	if _, _, err := MintAccessToken(config.JWTConfig{Issuer: "x", ExpirationMinutes: 1}, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleAdmin}); err == nil {
		t.Fatal("expected missing secret error")
	}
}

func TestParseAccessTokenRejectsExpiredAndForeign(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	expired, _, err := MintAccessToken(testJWTConfig, past, AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleAdmin})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(testJWTConfig, expired); err == nil {
		t.Fatal("expected expired token to be rejected")
	}

	other := testJWTConfig
	other.Secret = "another-secret"
	token, _, _ := MintAccessToken(other, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleAdmin})
	if _, err := ParseAccessToken(testJWTConfig, token); err == nil {
		t.Fatal("expected signature mismatch")
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, AccessTokenClaims{Role: enums.UserRoleAdmin})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := ParseAccessToken(testJWTConfig, unsigned); err == nil || !strings.Contains(err.Error(), "signing method") {
		t.Fatalf("expected signing method error, got %v", err)
	}
}
