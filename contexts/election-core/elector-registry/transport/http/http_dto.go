package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RegisterElectorRequest struct {
	DisplayName string `json:"display_name"`
}

type SeedElectorsRequest struct {
	Count int `json:"count"`
}

// RegisterElectorResponse is the only place the clear verification code ever
// leaves the service.
type RegisterElectorResponse struct {
	ElectorID        string `json:"elector_id"`
	DisplayName      string `json:"display_name"`
	VotingCode       string `json:"voting_code"`
	VerificationCode string `json:"verification_code"`
}

type SeedElectorsResponse struct {
	Electors []RegisterElectorResponse `json:"electors"`
}

type ElectorResponse struct {
	ElectorID   string `json:"elector_id"`
	DisplayName string `json:"display_name"`
	HasVoted    bool   `json:"has_voted"`
	VotedAt     string `json:"voted_at,omitempty"`
}

type RollResponse struct {
	Electors   []ElectorResponse `json:"electors"`
	VotedCount int               `json:"voted_count"`
}
