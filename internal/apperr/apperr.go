package apperr

import "errors"

// Sentinel errors shared by the service layer. Handlers map these to HTTP
// statuses in httpx; everything else is treated as an internal error.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUploadFailed = errors.New("upload failed")

	// ErrNoOp marks an operation that had nothing to do (e.g. adding members
	// that are all already present). Callers treat it as success with an
	// empty delta, not as a failure.
	ErrNoOp = errors.New("no-op")
)

// Wrap attaches a sentinel to a descriptive message so errors.Is keeps
// working across layers.
func Wrap(sentinel error, msg string) error {
	return &wrapped{sentinel: sentinel, msg: msg}
}

type wrapped struct {
	sentinel error
	msg      string
}

func (w *wrapped) Error() string { return w.msg }

func (w *wrapped) Unwrap() error { return w.sentinel }
