package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrUnknownProduct   = errors.New("unknown product")
	ErrUnknownSubstrate = errors.New("unknown substrate")
)
