package ledger

import (
	"errors"
	"regexp"
	"testing"
)

var codePattern = regexp.MustCompile(`^NRC[0-9]{8}$`)

func TestRandomCodeFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := randomCode()
		if err != nil {
			t.Fatalf("randomCode error: %v", err)
		}
		if !codePattern.MatchString(code) {
			t.Fatalf("malformed code %q", code)
		}
	}
}

func TestAllocateCodeRedrawsOnCollision(t *testing.T) {
	calls := 0
	code, err := AllocateCode(func(string) (bool, error) {
		calls++
		return calls < 3, nil // first two candidates are taken
	})
	if err != nil {
		t.Fatalf("allocate error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 draws, got %d", calls)
	}
	if !codePattern.MatchString(code) {
		t.Fatalf("malformed code %q", code)
	}
}

func TestAllocateCodePropagatesLookupError(t *testing.T) {
	boom := errors.New("lookup failed")
	if _, err := AllocateCode(func(string) (bool, error) { return false, boom }); !errors.Is(err, boom) {
		t.Fatalf("got %v want lookup error", err)
	}
}
