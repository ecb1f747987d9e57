// Package corerr defines the semantic error kinds shared across coordnet's
// components and the CLI exit codes they map to.
package corerr

import "errors"

// Kind identifies one of the semantic error categories from the design: a
// row invariant violation, a resolver outcome, a storage fault, or a user
// cancellation. A Kind travels on an *Error, which wraps an optional cause
// and implements Unwrap, so errors.As (and the As helper below) finds it
// across package boundaries.
type Kind int

const (
	// KindInputMalformed marks a row that violates the message invariants
	// (missing required field, non-finite timestamp, both repost_id and
	// reply_id set). Non-fatal: the row is skipped and counted.
	KindInputMalformed Kind = iota
	// KindResolverTransient marks an HTTP timeout or 5xx on a URL resolve.
	KindResolverTransient
	// KindResolverPermanent marks a 4xx or malformed URL.
	KindResolverPermanent
	// KindStorageCorruption marks an unreadable index or table; fatal.
	KindStorageCorruption
	// KindCancelled marks a user-requested cancellation.
	KindCancelled
	// KindInvalidArguments marks a CLI-boundary argument error.
	KindInvalidArguments
)

// Error is a semantically-kinded error carrying its own CLI exit code.
type Error struct {
	K    Kind
	msg  string
	wrap error
}

func (e *Error) Error() string {
	if e.wrap != nil {
		return e.msg + ": " + e.wrap.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.wrap }

// ExitCode maps the error's kind to the §6.4 process exit code.
func (e *Error) ExitCode() int {
	switch e.K {
	case KindInvalidArguments:
		return 2
	case KindInputMalformed:
		return 3
	case KindStorageCorruption:
		return 4
	default:
		return 4
	}
}

// New builds a kinded error with a message.
func New(k Kind, msg string) error {
	return &Error{K: k, msg: msg}
}

// Wrap builds a kinded error around an underlying cause.
func Wrap(k Kind, msg string, cause error) error {
	return &Error{K: k, msg: msg, wrap: cause}
}

// ErrCancelled is returned by long-running operations when the shared
// cancellation flag is observed between shards or window steps.
var ErrCancelled = New(KindCancelled, "operation cancelled")

// As reports whether err is (or wraps) a *Error and returns it.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// ExitCodeFor returns the process exit code for any error, defaulting to 4
// (internal failure) when the error carries no corerr.Kind.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if e, ok := As(err); ok {
		return e.ExitCode()
	}
	return 4
}
