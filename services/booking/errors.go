package booking

import "errors"

// Named resolution failures. The orchestrator catches these specifically and
// turns them back into a menu instead of a generic error reply.
var (
	ErrServiceNotFound      = errors.New("service not found")
	ErrProfessionalNotFound = errors.New("professional not found")
)
