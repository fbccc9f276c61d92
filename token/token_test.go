package token

import (
	"encoding/base64"
	"testing"
)

func TestNewTokenShape(t *testing.T) {
	tok, err := New()
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		t.Fatalf("token is not unpadded base64url: %v", err)
	}
	if len(raw) != rawTokenSize {
		t.Fatalf("token entropy = %d bytes, want %d", len(raw), rawTokenSize)
	}
}

func TestNewTokenUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		tok, err := New()
		if err != nil {
			t.Fatalf("token generation failed: %v", err)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token generated: %q", tok)
		}
		seen[tok] = struct{}{}
	}
}
