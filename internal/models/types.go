package models

import "time"

// Polarity records which adjective of a pair the respondent picked.
type Polarity string

const (
	PolarityPositive Polarity = "POSITIVE"
	PolarityNegative Polarity = "NEGATIVE"
)

func (p Polarity) Valid() bool { return p == PolarityPositive || p == PolarityNegative }

// Weight is the self-reported frequency of the chosen adjective.
type Weight string

const (
	WeightLow  Weight = "LOW"
	WeightHigh Weight = "HIGH"
)

func (w Weight) Valid() bool { return w == WeightLow || w == WeightHigh }

// InviteStatus is the lifecycle state of an invitation. PENDING moves to
// COMPLETED exactly once and never back.
type InviteStatus string

const (
	InvitePending   InviteStatus = "PENDING"
	InviteCompleted InviteStatus = "COMPLETED"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// AdjectivePair is immutable reference data: a bipolar trait descriptor with
// four language-invariant scoring coordinates.
type AdjectivePair struct {
	ID                string
	PositiveAdjective string
	NegativeAdjective string
	PositiveX         float64
	PositiveY         float64
	NegativeX         float64
	NegativeY         float64
	Quadrant          string
	AuthorityFocus    bool
	DisplayOrder      int
}

// PairTranslation overrides the labels of a pair for one language (e.g. "DE").
type PairTranslation struct {
	PairID            string
	Language          string
	PositiveAdjective string
	NegativeAdjective string
}

type User struct {
	ID        string
	Email     string
	Name      string
	PassHash  []byte
	Role      Role
	Locale    string
	CreatedAt time.Time
}

type Team struct {
	ID                string
	Name              string
	OwnerID           string
	ResultsReleasedAt *time.Time
	ResultsReleasedBy string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Released reports whether an admin opened the team's results.
func (t *Team) Released() bool { return t != nil && t.ResultsReleasedAt != nil }

// Invitation is a token-addressable survey access grant, one per respondent per team.
type Invitation struct {
	ID                 string
	InviteToken        string
	Email              string
	TeamID             string
	UserID             string
	Status             InviteStatus
	CreatedAt          time.Time
	CompletedAt        *time.Time
	LastReminderSentAt *time.Time
}

// Answer is one stored response of an invitation to one pair.
type Answer struct {
	InvitationID string
	PairID       string
	Polarity     Polarity
	Weight       Weight
	CreatedAt    time.Time
}

type AuditEntry struct {
	Time   time.Time
	Actor  string
	Action string
	Target string
	Note   string
}
