package repository

import (
	"errors"
	"testing"

	"github.com/sethshivam11/social-media-backend/internal/apperr"
	"github.com/sethshivam11/social-media-backend/internal/testutil"
)

func TestTranslate(t *testing.T) {
	if got := translate(testutil.GetRecordNotFoundError()); !errors.Is(got, apperr.ErrNotFound) {
		t.Errorf("translate(record not found) = %v, want ErrNotFound", got)
	}

	passthrough := errors.New("connection refused")
	if got := translate(passthrough); got != passthrough {
		t.Errorf("translate() rewrote an unrelated error: %v", got)
	}
	if got := translate(nil); got != nil {
		t.Errorf("translate(nil) = %v, want nil", got)
	}
}
