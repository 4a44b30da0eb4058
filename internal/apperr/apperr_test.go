package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load pharmacy: %w", New(CodeNotFound, "pharmacy not found"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected wrapped not-found to match sentinel")
	}
	if errors.Is(err, ErrForbidden) {
		t.Fatalf("not-found must not match forbidden")
	}
	if CodeOf(err) != CodeNotFound {
		t.Fatalf("CodeOf = %q", CodeOf(err))
	}
}

func TestConflictFamily(t *testing.T) {
	for _, c := range []Code{CodeConflict, CodeDuplicateEntry, CodeIllegalTransition} {
		if !IsConflict(New(c, "x")) {
			t.Fatalf("%s should be a conflict", c)
		}
		if HTTPStatus(c) != http.StatusConflict {
			t.Fatalf("%s status = %d", c, HTTPStatus(c))
		}
	}
	if IsConflict(New(CodeNotFound, "x")) {
		t.Fatalf("not found is not a conflict")
	}
}

func TestUnavailableWrapsOnlyUncoded(t *testing.T) {
	raw := errors.New("dial tcp: refused")
	if CodeOf(Unavailable(raw)) != CodeStoreUnavailable {
		t.Fatalf("raw error should become STORE_UNAVAILABLE")
	}
	coded := New(CodeForbidden, "nope")
	if Unavailable(coded) != error(coded) {
		t.Fatalf("coded errors must pass through")
	}
	if Unavailable(nil) != nil {
		t.Fatalf("nil stays nil")
	}
}

func TestValidationEmpty(t *testing.T) {
	if Validation(nil) != nil {
		t.Fatalf("empty field set should yield nil")
	}
	err := Validation(map[string]string{"name": "required"})
	var e *Error
	if !errors.As(err, &e) || e.Fields["name"] != "required" {
		t.Fatalf("unexpected %v", err)
	}
}

func TestTooManyRequestsStatus(t *testing.T) {
	if got := HTTPStatus(CodeTooManyRequests); got != http.StatusTooManyRequests {
		t.Fatalf("status = %d", got)
	}
	if !errors.Is(New(CodeTooManyRequests, "slow down"), ErrTooManyRequests) {
		t.Fatal("sentinel does not match by code")
	}
}
