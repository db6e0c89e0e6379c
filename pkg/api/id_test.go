package api

import "testing"

func TestNewAssetID(t *testing.T) {
	id := NewAssetID()
	if !ValidateAssetIDFormat(id) {
		t.Errorf("NewAssetID() = %q does not match format", id)
	}
	if ValidateThreadIDFormat(id) {
		t.Errorf("asset ID %q must not validate as thread ID", id)
	}
}

func TestNewThreadIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewThreadID()
		if !ValidateThreadIDFormat(id) {
			t.Fatalf("NewThreadID() = %q does not match format", id)
		}
		if seen[id] {
			t.Fatalf("duplicate thread ID %q", id)
		}
		seen[id] = true
	}
}

func TestNewRequestID(t *testing.T) {
	if a, b := NewRequestID(), NewRequestID(); a == "" || a == b {
		t.Errorf("request IDs not unique: %q %q", a, b)
	}
}
