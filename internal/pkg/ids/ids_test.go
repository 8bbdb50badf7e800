package ids

import (
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestNew_Parses(t *testing.T) {
	id := New()
	if _, err := ulid.ParseStrict(id); err != nil {
		t.Fatalf("not a valid ulid %q: %v", id, err)
	}
}

func TestNew_Monotonic(t *testing.T) {
	prev := New()
	for i := 0; i < 1000; i++ {
		next := New()
		if next <= prev {
			t.Fatalf("ids not increasing: %s then %s", prev, next)
		}
		prev = next
	}
}
