package credentials

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	stored, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if !strings.Contains(stored, ":") {
		t.Fatalf("stored hash missing salt delimiter: %q", stored)
	}

	if !VerifyPassword("correct horse battery staple", stored) {
		t.Error("correct password did not verify")
	}
	if VerifyPassword("wrong password", stored) {
		t.Error("wrong password verified")
	}
}

func TestHashPasswordUsesRandomSalt(t *testing.T) {
	first, err := HashPassword("same input")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	second, err := HashPassword("same input")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if first == second {
		t.Error("two hashes of the same password are identical; salt is not random")
	}

	// Both must still verify despite differing salts.
	if !VerifyPassword("same input", first) || !VerifyPassword("same input", second) {
		t.Error("salted hashes did not both verify")
	}
}

func TestVerifyPasswordFailsClosedOnMalformedInput(t *testing.T) {
	cases := []string{
		"",
		"no-delimiter",
		"nothex:abcdef",
		"abcdef:nothex",
		":",
		"abcd:",
		":abcd",
	}
	for _, stored := range cases {
		if VerifyPassword("anything", stored) {
			t.Errorf("malformed stored hash %q verified", stored)
		}
	}
}

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		if len(token) != 43 {
			t.Fatalf("token length = %d, want 43 (32 bytes base64url)", len(token))
		}
		if strings.ContainsAny(token, "+/=") {
			t.Errorf("token %q is not URL-safe", token)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %q", token)
		}
		seen[token] = true
	}
}

func TestHashTokenIsDeterministic(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	first := HashToken(token)
	second := HashToken(token)
	if first != second {
		t.Error("HashToken is not deterministic; lookup-by-hash would break")
	}
	if len(first) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(first))
	}

	if HashToken("different-token") == first {
		t.Error("distinct tokens produced the same digest")
	}
}
