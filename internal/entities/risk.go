package entities

type RiskAction string

const (
	RiskActionAllow  RiskAction = "ALLOW"
	RiskActionReview RiskAction = "REVIEW"
	RiskActionReject RiskAction = "REJECT"
)

const RiskTagGateUnavailable = "risk_gate_unavailable"

// AttemptContext describes a booking attempt for the risk gate.
type AttemptContext struct {
	UserID    string
	EventID   string
	Seats     int
	IP        string
	UserAgent string
}

type RiskDecision struct {
	Action RiskAction `json:"action"`
	Score  int        `json:"score"`
	Tags   []string   `json:"tags,omitempty"`
}
