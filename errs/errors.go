package errs

import (
	"errors"
	"fmt"
)

// Code is the stable identifier callers branch on. Codes are part of the
// public API and never renumbered.
type Code string

const (
	CodeUserDeniedIntentSignature Code = "USER_DENIED_INTENT_SIGNATURE"
	CodeUserDeniedAllowance       Code = "USER_DENIED_ALLOWANCE"
	CodePermitUnsupported         Code = "PERMIT_UNSUPPORTED"
	CodeChainNotFound             Code = "CHAIN_NOT_FOUND"
	CodeTokenNotSupported         Code = "TOKEN_NOT_SUPPORTED"
	CodeInsufficientBalance       Code = "INSUFFICIENT_BALANCE"
	CodeLiquidityTimeout          Code = "LIQUIDITY_TIMEOUT"
	CodeRffFeeExpired             Code = "RFF_FEE_EXPIRED"
	CodeProtocolRelayError        Code = "PROTOCOL_RELAY_ERROR"
	CodeTransactionReverted       Code = "TRANSACTION_REVERTED"
	CodeTransactionTimeout        Code = "TRANSACTION_TIMEOUT"
	CodeSlippageExceeded          Code = "SLIPPAGE_EXCEEDED"
	CodeCosmosError               Code = "COSMOS_ERROR"
	CodeRffNotExpired             Code = "RFF_NOT_EXPIRED"
)

type Error struct {
	Code Code
	msg  string
	err  error
}

func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code: code,
		msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap attaches a code to an underlying error. The cause stays reachable
// through errors.Unwrap.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{
		Code: code,
		msg:  fmt.Sprintf(format, args...),
		err:  err,
	}
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.msg, e.err)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.msg)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is matches any *Error carrying the same code so sentinel comparisons like
// errors.Is(err, errs.New(errs.CodeRffFeeExpired, "")) work across wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.Code == t.Code
}

// CodeOf extracts the stable code from an error chain. Unclassified errors
// report an empty code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ""
}

// IsCode reports whether any error in the chain carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
