package pow

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
)

// solve brute-forces a counter for the nonce at the given difficulty.
func solve(t *testing.T, nonce string, difficulty int) string {
	t.Helper()

	prefix := strings.Repeat("0", difficulty)
	for i := 0; i < 1_000_000; i++ {
		counter := fmt.Sprintf("%d", i)
		hash := sha256.Sum256([]byte(nonce + counter))
		if strings.HasPrefix(hex.EncodeToString(hash[:]), prefix) {
			return counter
		}
	}

	t.Fatal("Could not solve challenge within the attempt budget")
	return ""
}

func TestValidateProofIssuesToken(t *testing.T) {
	mgr := NewPoWManager(1)

	nonce := mgr.GenerateNonce()
	counter := solve(t, nonce, 1)

	token, err := mgr.ValidateProof(nonce, counter)
	if err != nil {
		t.Fatalf("ValidateProof failed: %v", err)
	}
	if token == "" {
		t.Fatal("Expected a proof token")
	}

	r := httptest.NewRequest("POST", "/register", nil)
	r.Header.Set(TokenHeaderKey, token)
	if !mgr.CheckProofToken(r) {
		t.Error("Issued proof token failed the check")
	}
}

func TestValidateProofRejectsBadCounter(t *testing.T) {
	mgr := NewPoWManager(6)

	nonce := mgr.GenerateNonce()

	if _, err := mgr.ValidateProof(nonce, "definitely_wrong"); err == nil {
		t.Error("Expected rejection of an unsolved challenge")
	}
}

func TestValidateProofSingleUseNonce(t *testing.T) {
	mgr := NewPoWManager(1)

	nonce := mgr.GenerateNonce()
	counter := solve(t, nonce, 1)

	if _, err := mgr.ValidateProof(nonce, counter); err != nil {
		t.Fatalf("First validation failed: %v", err)
	}
	if _, err := mgr.ValidateProof(nonce, counter); err == nil {
		t.Error("Expected second use of the nonce to fail")
	}
}

func TestCheckProofTokenMissing(t *testing.T) {
	mgr := NewPoWManager(1)

	r := httptest.NewRequest("POST", "/register", nil)
	if mgr.CheckProofToken(r) {
		t.Error("Expected missing token to fail the check")
	}

	r.Header.Set(TokenHeaderKey, "never-issued")
	if mgr.CheckProofToken(r) {
		t.Error("Expected unknown token to fail the check")
	}
}
