// Package http defines the wire-level payloads of the tally endpoints.
package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type OptionCountItem struct {
	Option string `json:"option"`
	Count  int    `json:"count"`
}

type TallyResponse struct {
	SessionID    string            `json:"session_id"`
	Counts       []OptionCountItem `json:"counts"`
	TotalBallots int               `json:"total_ballots"`
	Accepted     int               `json:"accepted"`
	Rejected     int               `json:"rejected"`
	Winners      []string          `json:"winners,omitempty"`
	Final        bool              `json:"final"`
	ComputedAt   time.Time         `json:"computed_at"`
}

type RejectionItem struct {
	Position int    `json:"position"`
	BallotID string `json:"ballot_id"`
	Reason   string `json:"reason"`
}

type ScrutinyResponse struct {
	SessionID  string          `json:"session_id"`
	Result     TallyResponse   `json:"result"`
	Rejections []RejectionItem `json:"rejections"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

type CertifiedResultResponse struct {
	SessionID   string           `json:"session_id"`
	Report      ScrutinyResponse `json:"report"`
	CertifiedAt time.Time        `json:"certified_at"`
}
