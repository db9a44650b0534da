package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

var fast = Hasher{Cost: bcrypt.MinCost}

func TestHashAndVerify(t *testing.T) {
	tests := []struct {
		name  string
		plain string
	}{
		{"short", "password123"},
		{"exactly 72 bytes", strings.Repeat("a", 72)},
		{"long", strings.Repeat("x", 100)},
		{"multibyte", strings.Repeat("密码", 20)},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := fast.Hash(tt.plain)
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}
			if !fast.Verify(tt.plain, hash) {
				t.Errorf("Verify() = false for the original password")
			}
			if fast.Verify(tt.plain+"!", hash) {
				t.Errorf("Verify() = true for a different password")
			}
		})
	}
}

func TestLongPasswordsDifferAfterByte72(t *testing.T) {
	base := strings.Repeat("a", 72)
	hash, err := fast.Hash(base + "tail-one")
	if err != nil {
		t.Fatal(err)
	}

	// plain bcrypt would accept this because it truncates at 72 bytes
	if fast.Verify(base+"tail-two", hash) {
		t.Error("passwords sharing a 72-byte prefix must not verify against each other")
	}
	if fast.Verify(base, hash) {
		t.Error("the 72-byte prefix alone must not verify")
	}
}

func TestHashIsSalted(t *testing.T) {
	a, _ := fast.Hash("same-password")
	b, _ := fast.Hash("same-password")
	if a == b {
		t.Error("two hashes of the same password should differ")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	if fast.Verify("password123", "not-a-bcrypt-hash") {
		t.Error("Verify() should return false for a malformed hash")
	}
}

func TestDefaultCost(t *testing.T) {
	hash, err := Hash("password123")
	if err != nil {
		t.Fatal(err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatal(err)
	}
	if cost != DefaultCost {
		t.Errorf("cost = %d, want %d", cost, DefaultCost)
	}
	if !Verify("password123", hash) {
		t.Error("package-level Verify failed")
	}
}
