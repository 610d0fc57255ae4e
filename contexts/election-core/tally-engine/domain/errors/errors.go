package errors

import "errors"

var (
	ErrSessionStillOpen   = errors.New("voting session is still open")
	ErrResultNotCertified = errors.New("no certified result for session")
	ErrInvalidTallyInput  = errors.New("invalid tally input")
	ErrConflict           = errors.New("conflicting tally state")
)
