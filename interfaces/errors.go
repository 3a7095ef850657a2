package interfaces

import "errors"

var (
	// ErrInvalidParameter is returned for malformed names, zero durations and
	// other inputs that can never succeed.
	ErrInvalidParameter = errors.New("invalid parameter")

	ErrDuplicateCommitment = errors.New("commitment already pending")
	ErrCommitmentNotFound  = errors.New("commitment not found")

	// ErrCommitmentTooYoung is returned when a commitment is revealed before
	// the minimum commit age has elapsed.
	ErrCommitmentTooYoung = errors.New("commitment too young")

	// ErrCommitmentExpired is returned when a commitment is older than the
	// maximum commit age.
	ErrCommitmentExpired = errors.New("commitment expired")

	ErrDurationTooShort = errors.New("registration duration too short")

	// ErrNameUnavailable is returned when a name (or subdomain label) is live.
	ErrNameUnavailable = errors.New("name unavailable")

	// ErrNameNotActive is returned when a mutation targets a domain that is
	// missing, in grace, or released.
	ErrNameNotActive = errors.New("name not active")

	ErrParentNotActive = errors.New("parent domain not active")

	// ErrParentExpired is returned when reading a subdomain whose parent is no
	// longer active.
	ErrParentExpired = errors.New("parent domain expired")

	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidParameter, "InvalidParameter"},
	{ErrDuplicateCommitment, "DuplicateCommitment"},
	{ErrCommitmentNotFound, "CommitmentNotFound"},
	{ErrCommitmentTooYoung, "CommitmentTooYoung"},
	{ErrCommitmentExpired, "CommitmentExpired"},
	{ErrDurationTooShort, "DurationTooShort"},
	{ErrNameUnavailable, "NameUnavailable"},
	{ErrNameNotActive, "NameNotActive"},
	{ErrParentNotActive, "ParentNotActive"},
	{ErrParentExpired, "ParentExpired"},
	{ErrInsufficientPayment, "InsufficientPayment"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrNotFound, "NotFound"},
}

// ErrorKind returns the stable wire name of the failure wrapped by err, or
// "Internal" when err is not one of the protocol errors. A nil error has no
// kind.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}

// ErrorForKind is the inverse of ErrorKind. Unknown kinds yield nil.
func ErrorForKind(kind string) error {
	for _, k := range errorKinds {
		if k.kind == kind {
			return k.err
		}
	}
	return nil
}
