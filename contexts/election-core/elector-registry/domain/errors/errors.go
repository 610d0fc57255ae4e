package errors

import "errors"

var (
	ErrElectorNotFound     = errors.New("elector not found")
	ErrInvalidElectorInput = errors.New("invalid elector input")
	ErrAlreadyVoted        = errors.New("elector has already voted")
	ErrCodeIssuance        = errors.New("credential issuance failed")
)
