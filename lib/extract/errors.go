package extract

import (
	"errors"
	"fmt"
)

// Kind classifies an extraction failure for retry purposes.
type Kind int

const (
	// KindTransient: an element reference went stale mid-read. The
	// same attempt can be restarted immediately.
	KindTransient Kind = iota + 1
	// KindTimeout: the container or markers never became ready
	// within the bound. Retry as a fresh attempt with backoff.
	KindTimeout
	// KindTransport: the session or connection itself broke. Not
	// retryable; propagates to the loop.
	KindTransport
	// KindMalformed: a response was missing an expected field. Not
	// retryable; signals an upstream contract change.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	case KindMalformed:
		return "malformed"
	}
	return "unclassified"
}

// Error tags an underlying failure with its retry classification.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Transient(op string, err error) error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

func Timeout(op string, err error) error {
	return &Error{Kind: KindTimeout, Op: op, Err: err}
}

func Transport(op string, err error) error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

func Malformed(op string, err error) error {
	return &Error{Kind: KindMalformed, Op: op, Err: err}
}

// KindOf returns the classification of err, or 0 if it carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsTransient(err error) bool { return KindOf(err) == KindTransient }
func IsTimeout(err error) bool   { return KindOf(err) == KindTimeout }
func IsTransport(err error) bool { return KindOf(err) == KindTransport }
func IsMalformed(err error) bool { return KindOf(err) == KindMalformed }

// IsFatal reports whether err must stop the poll loop rather than be
// absorbed as an empty cycle.
func IsFatal(err error) bool {
	k := KindOf(err)
	return k == KindTransport || k == KindMalformed
}
