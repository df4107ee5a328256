package ids

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestNewULID_MonotonicWithinMillisecond(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	prev := ""
	for i := 0; i < 100; i++ {
		id, err := NewULID(now)
		if err != nil {
			t.Fatalf("NewULID: %v", err)
		}
		if len(id) != ulid.EncodedSize {
			t.Fatalf("len=%d want=%d", len(id), ulid.EncodedSize)
		}
		if prev != "" && id <= prev {
			t.Fatalf("ids not increasing: %q then %q", prev, id)
		}
		prev = id
	}
}

func TestNewULID_ZeroTimeUsesNow(t *testing.T) {
	id, err := NewULID(time.Time{})
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		t.Fatalf("ParseStrict: %v", err)
	}
	if time.Since(ulid.Time(parsed.Time())) > time.Minute {
		t.Fatalf("expected a current timestamp")
	}
}
