// README: Closed failure taxonomy shared by all fulfillment operations.
package fault

import (
	"errors"
	"fmt"
)

// Kind enumerates every failure class a fulfillment operation can report.
// Handlers map kinds to HTTP statuses in exactly one place; reasons are
// human-readable and specific enough to drive UI messaging.
type Kind string

const (
	Unauthenticated    Kind = "unauthenticated"
	Forbidden          Kind = "forbidden"
	NotOwner           Kind = "not_owner"
	NotFound           Kind = "not_found"
	InvalidTransition  Kind = "invalid_transition"
	PreconditionFailed Kind = "precondition_failed"
	ExpiredOrExhausted Kind = "expired_or_exhausted"
	Storage            Kind = "storage"
)

type Fault struct {
	Kind   Kind
	Reason string
	err    error
}

func (f *Fault) Error() string {
	if f.Reason == "" {
		return string(f.Kind)
	}
	return string(f.Kind) + ": " + f.Reason
}

func (f *Fault) Unwrap() error { return f.err }

func New(k Kind, reason string) *Fault {
	return &Fault{Kind: k, Reason: reason}
}

func Newf(k Kind, format string, args ...any) *Fault {
	return &Fault{Kind: k, Reason: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying storage or I/O error. The original error stays
// reachable through errors.Unwrap; callers see a generic reason because the
// whole unit of work was rolled back and a retry is safe.
func Wrap(err error) *Fault {
	return &Fault{Kind: Storage, Reason: "storage failure", err: err}
}

// KindOf extracts the failure kind, or Storage for untagged errors.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return Storage
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	var f *Fault
	return errors.As(err, &f) && f.Kind == k
}
