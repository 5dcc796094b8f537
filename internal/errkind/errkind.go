// Package errkind classifies errors into the taxonomy from the error
// handling design: transient transport, auth expired, venue rejection,
// bad data, rule rejection, risk rejection, fatal config. Retry
// wrappers switch on Kind rather than string-matching error text.
package errkind

import "errors"

// Kind is one bucket of the error taxonomy.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransientTransport
	KindAuthExpired
	KindVenueRejection
	KindBadData
	KindRuleRejection
	KindRiskRejection
	KindFatalConfig
)

func (k Kind) String() string {
	switch k {
	case KindTransientTransport:
		return "transient_transport"
	case KindAuthExpired:
		return "auth_expired"
	case KindVenueRejection:
		return "venue_rejection"
	case KindBadData:
		return "bad_data"
	case KindRuleRejection:
		return "rule_rejection"
	case KindRiskRejection:
		return "risk_rejection"
	case KindFatalConfig:
		return "fatal_config"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a classification.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// New wraps err with the given Kind. Returns nil if err is nil.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Classify extracts the Kind from err, or KindUnknown if err was never
// wrapped by this package.
func Classify(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether the error kind is safe to retry locally
// (transient transport, auth expired — after one forced refresh).
func IsRetryable(err error) bool {
	switch Classify(err) {
	case KindTransientTransport, KindAuthExpired:
		return true
	default:
		return false
	}
}
