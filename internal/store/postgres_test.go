package store

import (
	"errors"
	"testing"
)

func TestAnalysisUUID(t *testing.T) {
	id := "6f1c2d3e-4b5a-4c6d-8e7f-9a0b1c2d3e4f"
	key, err := analysisUUID(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.String() != id {
		t.Errorf("expected %s, got %s", id, key)
	}

	for _, bad := range []string{"", "not-a-uuid", "6f1c2d3e", "6f1c2d3e-4b5a-4c6d-8e7f-9a0b1c2d3e4fff"} {
		if _, err := analysisUUID(bad); !errors.Is(err, ErrNotFound) {
			t.Errorf("%q: expected ErrNotFound, got %v", bad, err)
		}
	}
}
