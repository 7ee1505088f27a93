package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := Conflict("job can no longer be accepted")
	wrapped := fmt.Errorf("accept job: %w", base)

	if !Is(wrapped, KindConflict) {
		t.Fatalf("expected conflict kind through fmt wrapping")
	}
	domainErr, ok := As(wrapped)
	if !ok || domainErr.HTTPStatus() != http.StatusConflict {
		t.Fatalf("expected conflict status, got %+v", domainErr)
	}
}

func TestUnknownErrorsAreNotClassified(t *testing.T) {
	if GetKind(errors.New("boom")) != KindUnknown {
		t.Fatalf("expected unknown kind for plain errors")
	}
}

func TestUnavailableKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Unavailable("please try again", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if err.HTTPStatus() != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", err.HTTPStatus())
	}
}
