package id

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	id := Generate(PrefixProject)

	if !strings.HasPrefix(id, "prj-") {
		t.Errorf("expected ID to start with 'prj-', got %s", id)
	}

	id2 := Generate(PrefixProject)
	if id == id2 {
		t.Error("expected different IDs for consecutive calls")
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate(PrefixFrame)
		if seen[id] {
			t.Errorf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestGenerate_SortsByCreation(t *testing.T) {
	first := Generate(PrefixRender)
	second := Generate(PrefixRender)
	if first >= second {
		t.Errorf("expected %s < %s", first, second)
	}
}

func TestFallback(t *testing.T) {
	id := fallback("rnd")
	if !strings.HasPrefix(id, "rnd-") {
		t.Errorf("expected fallback ID to start with 'rnd-', got %s", id)
	}
}
