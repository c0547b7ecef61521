package jwt

import (
	"testing"
	"time"
)

const testSecret = "test_secret_key"

func TestGenerateAndParseToken(t *testing.T) {
	payload := &Payload{
		ID:   "user-123",
		Name: "Ada",
		Role: RoleStudent,
	}

	tokenString, err := GenerateToken(payload, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	parsed, err := ParseToken(tokenString, testSecret)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}

	if parsed.ID != payload.ID {
		t.Errorf("Expected ID %q, got %q", payload.ID, parsed.ID)
	}
	if parsed.Name != payload.Name {
		t.Errorf("Expected Name %q, got %q", payload.Name, parsed.Name)
	}
	if parsed.Role != RoleStudent {
		t.Errorf("Expected Role %q, got %q", RoleStudent, parsed.Role)
	}
	if parsed.Issuer != TokenIssuer {
		t.Errorf("Expected Issuer %q, got %q", TokenIssuer, parsed.Issuer)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	tokenString, err := GenerateToken(&Payload{ID: "user-123", Role: RoleTeacher}, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := ParseToken(tokenString, "a_different_secret"); err == nil {
		t.Error("Expected parse failure with wrong secret")
	}
}

func TestParseExpiredToken(t *testing.T) {
	tokenString, err := GenerateToken(&Payload{ID: "user-123", Role: RoleAdmin}, testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := ParseToken(tokenString, testSecret); err == nil {
		t.Error("Expected parse failure for expired token")
	}
}

func TestParseGarbageToken(t *testing.T) {
	if _, err := ParseToken("not.a.token", testSecret); err == nil {
		t.Error("Expected parse failure for malformed token")
	}
}
