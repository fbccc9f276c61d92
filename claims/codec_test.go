package claims

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestCodec(t *testing.T) *Codec {
	t.Helper()

	c, err := NewCodec(testSecret, "authsession-test", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("codec init failed: %v", err)
	}
	return c
}

func TestCodecRejectsShortSecret(t *testing.T) {
	if _, err := NewCodec([]byte("short"), "", time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestCodecRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	in := Payload{
		UserID:             "u-1",
		Name:               "Alice",
		Email:              "alice@example.com",
		Picture:            "https://cdn.example.com/a.png",
		AccessTokenExpires: time.Now().Add(15 * time.Minute).Unix(),
		RefreshToken:       "opaque-refresh-token",
	}

	encoded, err := c.Encode(in)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	out, err := c.Decode(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out != in {
		t.Fatalf("payload did not round-trip: got %+v want %+v", out, in)
	}
}

func TestCodecRoundTripErrorTag(t *testing.T) {
	c := newTestCodec(t)

	for _, tag := range []ErrorTag{ErrorSignIn, ErrorRefreshTokenMissing, ErrorRefreshTokenExpired} {
		encoded, err := c.Encode(Payload{UserID: "u-1", Error: tag})
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}
		out, err := c.Decode(encoded)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if out.Error != tag {
			t.Fatalf("error tag lost: got %q want %q", out.Error, tag)
		}
	}
}

func TestCodecDetectsTampering(t *testing.T) {
	c := newTestCodec(t)

	encoded, err := c.Encode(Payload{UserID: "u-1", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	parts := strings.Split(encoded, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", encoded)
	}

	// Flip a character inside the claims segment.
	body := []byte(parts[1])
	if body[4] == 'A' {
		body[4] = 'B'
	} else {
		body[4] = 'A'
	}
	tampered := parts[0] + "." + string(body) + "." + parts[2]

	if _, err := c.Decode(tampered); !errors.Is(err, ErrTokenTampered) {
		t.Fatalf("expected ErrTokenTampered, got %v", err)
	}
}

func TestCodecRejectsForeignSecret(t *testing.T) {
	c := newTestCodec(t)

	other, err := NewCodec([]byte("ffffffffffffffffffffffffffffffff"), "authsession-test", time.Hour)
	if err != nil {
		t.Fatalf("codec init failed: %v", err)
	}

	encoded, err := other.Encode(Payload{UserID: "u-1"})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	if _, err := c.Decode(encoded); !errors.Is(err, ErrTokenTampered) {
		t.Fatalf("expected ErrTokenTampered, got %v", err)
	}
}

func TestPayloadFresh(t *testing.T) {
	now := time.Now().Unix()

	cases := []struct {
		name    string
		payload Payload
		want    bool
	}{
		{"future expiry", Payload{AccessTokenExpires: now + 60}, true},
		{"past expiry", Payload{AccessTokenExpires: now - 60}, false},
		{"zero expiry", Payload{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.payload.Fresh(now); got != tc.want {
				t.Fatalf("Fresh() = %v, want %v", got, tc.want)
			}
		})
	}
}
