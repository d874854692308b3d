package services

import (
	"time"

	"github.com/casanoova/compass/internal/models"
)

// ResponseInput is one submitted answer as it arrives from a client.
type ResponseInput struct {
	PairID   string          `json:"pair_id"`
	Polarity models.Polarity `json:"polarity"`
	Weight   models.Weight   `json:"weight"`
}

// AdjectiveView is a catalog entry with labels resolved for one locale.
type AdjectiveView struct {
	ID                string `json:"id"`
	PositiveAdjective string `json:"positive_adjective"`
	NegativeAdjective string `json:"negative_adjective"`
	DisplayOrder      int    `json:"display_order"`
}

type SubmitResult struct {
	Point Point `json:"point"`
}

type SurveyStatus struct {
	InvitationID string              `json:"invitation_id"`
	TeamID       string              `json:"team_id"`
	Status       models.InviteStatus `json:"status"`
	Point        *Point              `json:"point,omitempty"`
}

// TeamResults is the gated projection of a team's scores. A nil TeamAverage
// means "not yet available"; AllCompleted and ReleasedAt tell the caller why.
type TeamResults struct {
	AllCompleted   bool       `json:"all_completed"`
	TeamAverage    *Point     `json:"team_average,omitempty"`
	UserResult     *Point     `json:"user_result,omitempty"`
	ReleasedAt     *time.Time `json:"released_at,omitempty"`
	MemberCount    int        `json:"member_count"`
	CompletedCount int        `json:"completed_count"`
}

type TeamStats struct {
	MemberCount      int `json:"member_count"`
	CompletedSurveys int `json:"completed_surveys"`
	DaysSinceCreated int `json:"days_since_created"`
}

type TeamOverview struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	OwnerID          string     `json:"owner_id"`
	OwnerEmail       string     `json:"owner_email,omitempty"`
	OwnerName        string     `json:"owner_name,omitempty"`
	MemberCount      int        `json:"member_count"`
	CompletedSurveys int        `json:"completed_surveys"`
	ReleasedAt       *time.Time `json:"released_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type InvitationView struct {
	ID          string              `json:"id"`
	Email       string              `json:"email"`
	TeamID      string              `json:"team_id"`
	UserID      string              `json:"user_id,omitempty"`
	Status      models.InviteStatus `json:"status"`
	InviteToken string              `json:"invite_token,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

type TeamDetails struct {
	TeamOverview
	Invitations []InvitationView `json:"invitations"`
}

func toInvitationView(inv *models.Invitation, withToken bool) InvitationView {
	v := InvitationView{
		ID:          inv.ID,
		Email:       inv.Email,
		TeamID:      inv.TeamID,
		UserID:      inv.UserID,
		Status:      inv.Status,
		CreatedAt:   inv.CreatedAt,
		CompletedAt: inv.CompletedAt,
	}
	if withToken {
		v.InviteToken = inv.InviteToken
	}
	return v
}

func countCompleted(invites []*models.Invitation) int {
	n := 0
	for _, inv := range invites {
		if inv.Status == models.InviteCompleted {
			n++
		}
	}
	return n
}
