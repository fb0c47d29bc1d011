package dispatch

import "errors"

// The dispatcher distinguishes whole-batch failures, which propagate
// out of Dispatch, from per-recipient failures, which are absorbed
// into RecipientOutcome entries. Whole-batch: ValidationError,
// ErrNoValidRecipients, ConnectError. Per-recipient: SendError,
// SessionError.

// ErrNoValidRecipients is returned when every recipient in a batch
// failed syntax validation. No SMTP session is opened in that case.
var ErrNoValidRecipients = errors.New("no valid recipients in batch")

// ValidationError reports a malformed send request. It is surfaced as
// a client error and never reaches SMTP.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Field + " " + e.Reason
}

// ConnectError means the SMTP session could not be established
// (TCP, TLS, or AUTH failure). The whole batch fails; no per-recipient
// outcomes are produced for unattempted recipients.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return "smtp connect: " + e.Err.Error()
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// SendError is a per-message rejection from the SMTP server (e.g. an
// invalid mailbox). The session remains usable and the batch continues
// with the next recipient.
type SendError struct {
	Detail string
}

func (e *SendError) Error() string {
	return "smtp send: " + e.Detail
}

// SessionError means the session is no longer usable (timeout,
// connection drop, 421 shutdown). The dispatcher stops sending and
// marks all remaining recipients failed with the same root cause.
type SessionError struct {
	Detail string
}

func (e *SessionError) Error() string {
	return "smtp session: " + e.Detail
}
