package auth

import "testing"

func TestLoginLimiter(t *testing.T) {
	l := NewLoginLimiter(1, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Error("fourth attempt within burst window should be refused")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("other clients should not share the limit")
	}
}
