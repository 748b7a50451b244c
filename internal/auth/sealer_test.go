package auth

import (
	"errors"
	"strings"
	"testing"
)

func newTestSealer(t *testing.T) *Sealer {
	t.Helper()
	s, err := NewSealer("token-key-for-tests-0123456789")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	return s
}

func TestNewSealer_ShortKey(t *testing.T) {
	if _, err := NewSealer("short"); err == nil {
		t.Fatal("NewSealer() should reject keys shorter than 16 chars")
	}
}

func TestSeal_RoundTrip(t *testing.T) {
	s := newTestSealer(t)

	sealed, err := s.Seal("ya29.access-token")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if strings.Contains(sealed, "ya29") {
		t.Errorf("Seal() leaked plaintext: %q", sealed)
	}

	got, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got != "ya29.access-token" {
		t.Errorf("Open() = %q, want %q", got, "ya29.access-token")
	}
}

func TestSeal_FreshNonceEachTime(t *testing.T) {
	s := newTestSealer(t)

	a, _ := s.Seal("same")
	b, _ := s.Seal("same")
	if a == b {
		t.Error("Seal() produced identical output for two calls")
	}
}

func TestSeal_Empty(t *testing.T) {
	s := newTestSealer(t)

	sealed, err := s.Seal("")
	if err != nil || sealed != "" {
		t.Fatalf("Seal(\"\") = %q, %v; want empty", sealed, err)
	}
}

func TestOpen_PlaintextPassesThrough(t *testing.T) {
	s := newTestSealer(t)

	got, err := s.Open("legacy-token")
	if err != nil || got != "legacy-token" {
		t.Fatalf("Open() = %q, %v; want legacy-token", got, err)
	}
}

func TestOpen_WrongKey(t *testing.T) {
	s := newTestSealer(t)
	other, _ := NewSealer("a-completely-different-key!!")

	sealed, _ := s.Seal("secret")
	if _, err := other.Open(sealed); !errors.Is(err, ErrUnseal) {
		t.Fatalf("Open() with wrong key error = %v, want ErrUnseal", err)
	}
}

func TestOpen_Corrupted(t *testing.T) {
	s := newTestSealer(t)

	for _, v := range []string{"v1.", "v1.!!!", "v1.AAAA"} {
		if _, err := s.Open(v); !errors.Is(err, ErrUnseal) {
			t.Errorf("Open(%q) error = %v, want ErrUnseal", v, err)
		}
	}
}
