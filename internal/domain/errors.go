package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindInvalidPayload  ErrorKind = "InvalidPayload"
	KindNotFound        ErrorKind = "NotFound"
	KindInvalidBid      ErrorKind = "InvalidBid"
	KindAuctionEnded    ErrorKind = "AuctionEnded"
	KindBidTooLow       ErrorKind = "BidTooLow"
	KindAuctionNotEnded ErrorKind = "AuctionNotEnded"
	KindStorageFailure  ErrorKind = "StorageFailure"
)

// Error is the only error type returned by the auction service. Err, when
// set, is the underlying cause and is kept for diagnostics only.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrBidTooLow)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidPayload  = &Error{Kind: KindInvalidPayload, Message: "invalid payload"}
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "auction not found"}
	ErrInvalidBid      = &Error{Kind: KindInvalidBid, Message: "invalid bid amount"}
	ErrAuctionEnded    = &Error{Kind: KindAuctionEnded, Message: "auction ended"}
	ErrBidTooLow       = &Error{Kind: KindBidTooLow, Message: "bid too low"}
	ErrAuctionNotEnded = &Error{Kind: KindAuctionNotEnded, Message: "auction not ended yet"}
	ErrStorageFailure  = &Error{Kind: KindStorageFailure, Message: "storage failure"}
)

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// StorageFailure wraps an unexpected store or clock fault.
func StorageFailure(op string, err error) *Error {
	return &Error{Kind: KindStorageFailure, Message: "failed to " + op, Err: err}
}

// KindOf returns the taxonomy kind of err. Anything outside the taxonomy is a
// storage failure.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorageFailure
}

// MessageOf returns the human-readable message without the wrapped cause.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return ErrStorageFailure.Message
}
