package reports

import (
	"encoding/json"
	"testing"
)

func TestFingerprintIgnoresKeyOrder(t *testing.T) {
	a := json.RawMessage(`{"b":1,"a":{"y":[1,2],"x":"v"}}`)
	b := json.RawMessage(`{"a":{"x":"v","y":[1,2]},"b":1}`)

	fpA, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("fingerprint a: %v", err)
	}
	fpB, err := Fingerprint(b)
	if err != nil {
		t.Fatalf("fingerprint b: %v", err)
	}
	if fpA != fpB {
		t.Fatalf("fingerprints differ: %s vs %s", fpA, fpB)
	}
	if len(fpA) != 64 {
		t.Fatalf("fingerprint length = %d, want 64 hex chars", len(fpA))
	}
}

func TestFingerprintSensitiveToValues(t *testing.T) {
	a := json.RawMessage(`{"value":"7.2"}`)
	b := json.RawMessage(`{"value":"7.3"}`)

	fpA, _ := Fingerprint(a)
	fpB, _ := Fingerprint(b)
	if fpA == fpB {
		t.Fatal("distinct payloads produced the same fingerprint")
	}
}

func TestFingerprintRejectsInvalidJSON(t *testing.T) {
	if _, err := Fingerprint(json.RawMessage(`{"broken"`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestNewViewKeyShapeAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := NewViewKey()
		if err != nil {
			t.Fatalf("new view key: %v", err)
		}
		if len(key) != 43 {
			t.Fatalf("key length = %d, want 43", len(key))
		}
		if seen[key] {
			t.Fatalf("duplicate key: %s", key)
		}
		seen[key] = true
	}
}
