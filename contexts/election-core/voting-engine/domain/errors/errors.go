package errors

import "errors"

var (
	ErrInvalidCastInput      = errors.New("invalid cast input")
	ErrInvalidOption         = errors.New("option is not part of the session option set")
	ErrIneligibleElector     = errors.New("elector is not on the electoral roll")
	ErrInvalidVotingCode     = errors.New("voting code does not match the electoral roll")
	ErrAlreadyVoted          = errors.New("elector has already cast a ballot")
	ErrVotingClosed          = errors.New("voting session does not accept ballots")
	ErrSessionNotFound       = errors.New("voting session not found")
	ErrInvalidSessionInput   = errors.New("invalid session input")
	ErrSealingFailed         = errors.New("ballot sealing failed")
	ErrInvalidBallotEnvelope = errors.New("sealed ballot envelope is unreadable")
	ErrConflict              = errors.New("ledger conflict")
)
