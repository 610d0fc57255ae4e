// Package http defines the wire-level request and response payloads of the
// voting engine endpoints.
package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type OpenSessionRequest struct {
	Name    string     `json:"name"`
	Options []string   `json:"options"`
	EndsAt  *time.Time `json:"ends_at,omitempty"`
}

type SessionResponse struct {
	SessionID   string     `json:"session_id"`
	Name        string     `json:"name"`
	Options     []string   `json:"options"`
	Status      string     `json:"status"`
	OpensAt     time.Time  `json:"opens_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	BallotCount int        `json:"ballot_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

type CastBallotRequest struct {
	ElectorID        string `json:"elector_id"`
	VotingCode       string `json:"voting_code"`
	VerificationCode string `json:"verification_code"`
	Option           string `json:"option"`
}

type CastBallotResponse struct {
	BallotID   string    `json:"ballot_id"`
	SessionID  string    `json:"session_id"`
	Position   int       `json:"position"`
	RecordedAt time.Time `json:"recorded_at"`
}

type BallotResponse struct {
	BallotID        string    `json:"ballot_id"`
	Position        int       `json:"position"`
	SealedPayload   string    `json:"sealed_payload"`
	SealedSignature string    `json:"sealed_signature"`
	RecordedAt      time.Time `json:"recorded_at"`
}

type BallotListResponse struct {
	SessionID string           `json:"session_id"`
	Ballots   []BallotResponse `json:"ballots"`
}
