package entities

import "time"

// OptionCount is one option's accepted-ballot count. Counts always carry
// every option of the session, including zero-count ones, in the session's
// option order.
type OptionCount struct {
	Option string `json:"option"`
	Count  int    `json:"count"`
}

// TallyResult is a count over one urn snapshot. Final marks a tally computed
// after the session closed; a running tally over an open urn is never final.
type TallyResult struct {
	SessionID    string        `json:"session_id"`
	Counts       []OptionCount `json:"counts"`
	TotalBallots int           `json:"total_ballots"`
	Accepted     int           `json:"accepted"`
	Rejected     int           `json:"rejected"`
	Final        bool          `json:"final"`
	ComputedAt   time.Time     `json:"computed_at"`
}

// Winners returns the options holding the highest count. Ties return every
// tied option.
func (r TallyResult) Winners() []string {
	best := 0
	for _, count := range r.Counts {
		if count.Count > best {
			best = count.Count
		}
	}
	if best == 0 {
		return nil
	}
	winners := make([]string, 0, 1)
	for _, count := range r.Counts {
		if count.Count == best {
			winners = append(winners, count.Option)
		}
	}
	return winners
}

// ScrutinyRejection records one discarded ballot. Position identifies the
// envelope in the urn; no elector identity is ever known here.
type ScrutinyRejection struct {
	Position int    `json:"position"`
	BallotID string `json:"ballot_id"`
	Reason   string `json:"reason"`
}

// Rejection reasons recorded in the scrutiny log.
const (
	RejectionUnreadableEnvelope  = "unreadable_envelope"
	RejectionInvalidSignature    = "invalid_authority_signature"
	RejectionMalformedPayload    = "malformed_payload"
	RejectionUnknownOption       = "unknown_option"
	RejectionUnknownCredential   = "unknown_verification_code"
	RejectionDuplicateCredential = "duplicate_verification_code"
)

// ScrutinyReport is the full outcome of opening an urn: the tally plus the
// log of every rejected envelope.
type ScrutinyReport struct {
	SessionID  string              `json:"session_id"`
	Result     TallyResult         `json:"result"`
	Rejections []ScrutinyRejection `json:"rejections"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

// CertifiedResult is a scrutiny report frozen at session close by the
// certification worker.
type CertifiedResult struct {
	SessionID   string         `json:"session_id"`
	Report      ScrutinyReport `json:"report"`
	EventID     string         `json:"event_id"`
	CertifiedAt time.Time      `json:"certified_at"`
}
