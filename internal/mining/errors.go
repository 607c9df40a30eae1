package mining

import "errors"

var (
	// ErrInvalidInput indicates malformed or empty transaction data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidParameter indicates a threshold or option outside its valid range.
	ErrInvalidParameter = errors.New("invalid parameter")
)
