package user

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
)
