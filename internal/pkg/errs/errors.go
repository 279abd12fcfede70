package errs

import "errors"

var (
	// ErrGeneration wraps any upstream model failure during a stream.
	ErrGeneration = errors.New("generation failed")
	// ErrClientGone means the client stopped reading mid-stream.
	ErrClientGone = errors.New("client gone")
)

func IsClientGone(err error) bool {
	return errors.Is(err, ErrClientGone)
}
