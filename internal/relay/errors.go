package relay

// Kind classifies a failed inbound message.
type Kind string

const (
	KindParse                 Kind = "parse"
	KindAuthorizationRequired Kind = "authorization_required"
	KindAuthentication        Kind = "authentication"
	KindNotFound              Kind = "not_found"
	KindUnknownType           Kind = "unknown_type"
	KindRecipientNotFound     Kind = "recipient_not_found"
	KindInternal              Kind = "internal"
)

const internalErrorMessage = "Internal error"

// Error is a recoverable failure handling one inbound message. Msg is the
// only part sent to the client; Err is kept for server logs.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Msg + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

func internalError(cause error) *Error {
	return newError(KindInternal, internalErrorMessage, cause)
}
