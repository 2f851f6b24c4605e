package errors

import (
	stderrors "errors"
	"io"
	"testing"
)

func TestAPIErrorWithCauseUnwraps(t *testing.T) {
	err := error(NewAPIError("request failed", 502, nil).WithCause(io.ErrUnexpectedEOF))

	if !stderrors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("cause not reachable through errors.Is")
	}
	var apiErr *APIError
	if !stderrors.As(err, &apiErr) || apiErr.Code != CodeAPIError {
		t.Fatalf("expected APIError, got %T", err)
	}
	if got := err.Error(); got != "request failed: unexpected EOF" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestLookupInconclusiveError(t *testing.T) {
	err := NewLookupInconclusiveError("dataPipeline", ReasonAmbiguous, 2, nil)

	if err.Code != CodeLookupInconclusive || err.Matches != 2 {
		t.Fatalf("unexpected error: %+v", err)
	}
	if got := err.Error(); got != `lookup for "dataPipeline" inconclusive (ambiguous)` {
		t.Fatalf("unexpected message: %q", got)
	}
}
