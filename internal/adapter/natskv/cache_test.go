package natskv

import "testing"

func TestEncodeKeyPassesAllowedBytes(t *testing.T) {
	for _, key := range []string{
		"plain",
		"runs/abc-123",
		"a.b.c",
		"UPPER_lower-09",
	} {
		if got := encodeKey(key); got != key {
			t.Errorf("encodeKey(%q) = %q, want unchanged", key, got)
		}
	}
}

func TestEncodeKeyEscapesStatusKeys(t *testing.T) {
	got := encodeKey("status:6f1c2a")
	if got != "status=3A6f1c2a" {
		t.Fatalf("encodeKey(status:...) = %q", got)
	}
}

func TestEncodeKeyInjective(t *testing.T) {
	// A literal "=3A" must not alias an encoded colon.
	a := encodeKey("x:y")
	b := encodeKey("x=3Ay")
	if a == b {
		t.Fatalf("collision: %q and %q both encode to %q", "x:y", "x=3Ay", a)
	}
}

func TestEncodeKeyGuardsDots(t *testing.T) {
	if got := encodeKey(".lead"); got != "=2Elead" {
		t.Errorf("leading dot: got %q", got)
	}
	if got := encodeKey("trail."); got != "trail=2E" {
		t.Errorf("trailing dot: got %q", got)
	}
	if got := encodeKey("mid.dle"); got != "mid.dle" {
		t.Errorf("inner dot should pass: got %q", got)
	}
}
