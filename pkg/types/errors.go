package types

import "errors"

// Fatal parse conditions. Every *ParseError wraps one of these.
var (
	ErrMissingDivision     = errors.New("missing mandatory division")
	ErrUnexpectedToken     = errors.New("unexpected token")
	ErrUnterminatedLiteral = errors.New("unterminated literal")
	ErrNestingTooDeep      = errors.New("nesting too deep")
	ErrInvalidSource       = errors.New("invalid source")
)
