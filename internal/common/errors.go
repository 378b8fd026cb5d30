// Package common provides shared utilities used across all features
package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags an Error with its failure category so callers can branch
// without matching on message strings.
type Kind uint8

const (
	KindNetwork Kind = iota
	KindHTTPStatus
	KindValidation
	KindNoQuote
	KindTransaction
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "NETWORK"
	case KindHTTPStatus:
		return "HTTP_STATUS"
	case KindValidation:
		return "VALIDATION"
	case KindNoQuote:
		return "NO_QUOTE"
	case KindTransaction:
		return "TRANSACTION"
	}
	return "UNKNOWN"
}

// Error is the discriminated error type for the sell pipeline.
type Error struct {
	Kind       Kind
	StatusCode int    // set for KindHTTPStatus
	Endpoint   string // set for KindNetwork / KindHTTPStatus
	Signature  string // set for KindTransaction once a transaction was broadcast
	Unknown    bool   // set when the transaction may have landed despite the failure
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("%s: %d from %s: %s", e.Kind, e.StatusCode, e.Endpoint, e.Message)
	case KindNetwork:
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Endpoint, e.Message)
	case KindTransaction:
		if e.Signature != "" {
			return fmt.Sprintf("%s: %s (signature %s)", e.Kind, e.Message, e.Signature)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func messageOrDefault(msg string, defaultMsg string) string {
	if msg != "" {
		return msg
	}
	return defaultMsg
}

// Error constructors

func NetworkError(endpoint string, err error) *Error {
	msg := "network failure"
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: KindNetwork, Endpoint: endpoint, Message: msg, Err: err}
}

func HTTPStatusError(status int, endpoint string, msg string) *Error {
	return &Error{
		Kind:       KindHTTPStatus,
		StatusCode: status,
		Endpoint:   endpoint,
		Message:    messageOrDefault(msg, http.StatusText(status)),
	}
}

func ValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: messageOrDefault(msg, "malformed payload")}
}

func NoQuoteError(msg string) *Error {
	return &Error{Kind: KindNoQuote, Message: messageOrDefault(msg, "no quote available")}
}

func TransactionError(signature string, msg string, err error) *Error {
	return &Error{
		Kind:      KindTransaction,
		Signature: signature,
		Message:   messageOrDefault(msg, "transaction failed"),
		Err:       err,
	}
}

// TransactionUnknownError marks the ambiguous terminal state: the transaction
// was broadcast but its confirmation status could not be established. Funds
// may have moved; callers must not report this as a clean failure.
func TransactionUnknownError(signature string, msg string) *Error {
	return &Error{
		Kind:      KindTransaction,
		Signature: signature,
		Unknown:   true,
		Message:   messageOrDefault(msg, "transaction submitted but confirmation status unknown"),
	}
}

// Retryable reports whether err is transient: transport-level failures always,
// HTTP statuses only for 429, 408 and 5xx. Everything else is fatal.
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindNetwork:
		return true
	case KindHTTPStatus:
		return e.StatusCode == http.StatusTooManyRequests ||
			e.StatusCode == http.StatusRequestTimeout ||
			e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// KindOf extracts the error kind, if err is (or wraps) a tagged Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
